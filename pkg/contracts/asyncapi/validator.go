package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// eventTypeKey marks a component schema as the payload of one CloudEvent type
const eventTypeKey = "x-event-type"

// EventValidator validates CloudEvent payloads against AsyncAPI component schemas.
type EventValidator struct {
	schemas map[string]*jsonschema.Schema
}

// CloudEvent is the envelope as it appears on the wire.
type CloudEvent struct {
	SpecVersion     string `json:"specversion"`
	Type            string `json:"type"`
	Source          string `json:"source"`
	Subject         string `json:"subject,omitempty"`
	ID              string `json:"id"`
	Time            string `json:"time,omitempty"`
	DataContentType string `json:"datacontenttype,omitempty"`
	Data            any    `json:"data,omitempty"`
}

type asyncAPISpec struct {
	AsyncAPI   string `yaml:"asyncapi"`
	Components struct {
		Schemas map[string]any `yaml:"schemas"`
	} `yaml:"components"`
}

// NewEventValidator reads the AsyncAPI document at path.
func NewEventValidator(path string) (*EventValidator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AsyncAPI spec: %w", err)
	}
	return NewEventValidatorFromBytes(data)
}

// NewEventValidatorFromBytes compiles every component schema that declares x-event-type.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec asyncAPISpec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema)

	for name, raw := range spec.Components.Schemas {
		schemaMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		eventType, _ := schemaMap[eventTypeKey].(string)
		if eventType == "" {
			continue
		}

		doc, err := toJSONValue(schemaMap)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}

		uri := "asyncapi://schemas/" + name
		if err := compiler.AddResource(uri, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
		}
		compiled, err := compiler.Compile(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		schemas[eventType] = compiled
	}

	return &EventValidator{schemas: schemas}, nil
}

// toJSONValue converts a YAML-decoded value into the representation jsonschema expects
func toJSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

// ValidateEvent validates the envelope and the data payload of event.
func (v *EventValidator) ValidateEvent(event CloudEvent) error {
	if event.SpecVersion != "1.0" {
		return fmt.Errorf("unsupported specversion %q", event.SpecVersion)
	}
	if event.Type == "" || event.Source == "" || event.ID == "" {
		return fmt.Errorf("type, source and id are required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}
	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	data, err := toJSONValue(event.Data)
	if err != nil {
		return fmt.Errorf("failed to normalise event data: %w", err)
	}
	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}
	return nil
}

// ValidateEventJSON validates a CloudEvent from its JSON encoding.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("failed to parse CloudEvent: %w", err)
	}
	return v.ValidateEvent(event)
}

// SupportedEventTypes returns the event types with a schema, sorted.
func (v *EventValidator) SupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for t := range v.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
