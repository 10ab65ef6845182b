package kafka

import (
	"context"
	"fmt"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/cloudevents"
	"github.com/wms-platform/audit-service/pkg/kafka"
)

// EventPublisher publishes audit domain events to Kafka as CloudEvents
type EventPublisher struct {
	producer     *kafka.InstrumentedProducer
	eventFactory *cloudevents.EventFactory
	topic        string
}

// NewEventPublisher creates a new Kafka-based event publisher
func NewEventPublisher(producer *kafka.InstrumentedProducer, eventFactory *cloudevents.EventFactory, topic string) *EventPublisher {
	return &EventPublisher{
		producer:     producer,
		eventFactory: eventFactory,
		topic:        topic,
	}
}

// Publish sends events in order, stopping at the first failure
func (p *EventPublisher) Publish(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		ce, err := p.toCloudEvent(ctx, event)
		if err != nil {
			return err
		}
		if err := p.producer.PublishEvent(ctx, p.topic, ce); err != nil {
			return fmt.Errorf("failed to publish %s to kafka: %w", event.EventType(), err)
		}
	}
	return nil
}

// Topic returns the topic this publisher publishes to
func (p *EventPublisher) Topic() string {
	return p.topic
}

func (p *EventPublisher) toCloudEvent(ctx context.Context, event domain.DomainEvent) (*cloudevents.AuditCloudEvent, error) {
	switch e := event.(type) {
	case *domain.DiscrepancyRaisedEvent:
		return p.eventFactory.CreateEntryEvent(ctx, EntryEventData(e.Entry)), nil
	case *domain.EntryAutoApprovedEvent:
		return p.eventFactory.CreateEntryEvent(ctx, EntryEventData(e.Entry)), nil
	case *domain.EntryResolvedEvent:
		return p.eventFactory.CreateEntryResolvedEvent(ctx, cloudevents.EntryResolvedData{
			EntryEventData: EntryEventData(e.Entry),
			Action:         string(e.Action),
			Comment:        e.Comment,
			RespondedAt:    e.ResolvedAt.UTC(),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported domain event %T", event)
	}
}

// EntryEventData flattens an entry snapshot into the event payload
func EntryEventData(entry domain.EntrySnapshot) cloudevents.EntryEventData {
	return cloudevents.EntryEventData{
		EntryID:          entry.EntryID,
		Kind:             string(entry.Kind),
		ItemID:           entry.ItemID,
		Location:         entry.Location,
		TotalIdentified:  entry.TotalIdentified,
		MinQuantity:      entry.MinQuantity,
		MaxQuantity:      entry.MaxQuantity,
		AuditResult:      string(entry.AuditResult),
		Discrepancy:      entry.Discrepancy,
		Status:           string(entry.Status),
		StaffID:          entry.StaffID,
		AssignedClientID: entry.AssignedClientID,
	}
}
