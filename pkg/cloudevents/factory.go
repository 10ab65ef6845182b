package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/tracing"
)

// EventFactory creates CloudEvents for a single source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent builds an event, copying the correlation ID and trace context from ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *AuditCloudEvent {
	event := &AuditCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = v
	}

	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	event.TraceParent = carrier[ExtTraceParent]

	return event
}

// CreateEntryEvent builds a creation event: discrepancy-raised for pending entries,
// entry-auto-approved otherwise.
func (f *EventFactory) CreateEntryEvent(ctx context.Context, data EntryEventData) *AuditCloudEvent {
	eventType := EntryAutoApproved
	if data.AssignedClientID != "" {
		eventType = DiscrepancyRaised
	}
	event := f.CreateEvent(ctx, eventType, "entry/"+data.EntryID, data)
	event.Location = data.Location
	return event
}

// CreateEntryResolvedEvent builds an entry-resolved event
func (f *EventFactory) CreateEntryResolvedEvent(ctx context.Context, data EntryResolvedData) *AuditCloudEvent {
	event := f.CreateEvent(ctx, EntryResolved, "entry/"+data.EntryID, data)
	event.Location = data.Location
	return event
}
