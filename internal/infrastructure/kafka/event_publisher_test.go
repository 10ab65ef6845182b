package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/cloudevents"
	"github.com/wms-platform/audit-service/pkg/contracts/asyncapi"
	"github.com/wms-platform/audit-service/pkg/kafka"
	"github.com/wms-platform/audit-service/pkg/logging"
)

const asyncAPISpecPath = "../../../api/asyncapi.yaml"

type captureWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func newTestPublisher(w *captureWriter) *EventPublisher {
	producer := kafka.NewProducerWithWriter(kafka.DefaultConfig([]string{"localhost:9092"}), w)
	return NewEventPublisher(
		kafka.NewInstrumentedProducer(producer, nil, logging.NewNop()),
		cloudevents.NewEventFactory(cloudevents.SourceAudit),
		kafka.Topics.AuditEvents,
	)
}

func newEntry(t *testing.T, picking float64, client primitive.ObjectID) *domain.InventoryEntry {
	t.Helper()
	entry, err := domain.NewSkuEntry(domain.NewSkuEntryParams{
		SkuID:            "1001",
		Location:         "Noida",
		Counts:           domain.Counts{Picking: picking},
		Odin:             domain.Thresholds{MinQuantity: 10},
		StaffID:          primitive.NewObjectID(),
		AssignedClientID: client,
		Now:              time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return entry
}

func decode(t *testing.T, msg kafkago.Message) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &out))
	return out
}

func TestEventPublisher_Publish(t *testing.T) {
	writer := &captureWriter{}
	publisher := newTestPublisher(writer)

	client := primitive.NewObjectID()
	pending := newEntry(t, 7, client)
	require.NoError(t, pending.Respond(client, domain.ActionRejected, "recount please", time.Now()))
	matched := newEntry(t, 10, primitive.NilObjectID)

	events := append(pending.GetDomainEvents(), matched.GetDomainEvents()...)
	require.Len(t, events, 3)

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-9")
	require.NoError(t, publisher.Publish(ctx, events))

	require.Len(t, writer.messages, 3)
	types := make([]string, 0, 3)
	for _, msg := range writer.messages {
		body := decode(t, msg)
		types = append(types, body["type"].(string))
		assert.Equal(t, "corr-9", body["wmscorrelationid"])
		assert.Equal(t, "Noida", body["wmslocation"])
	}
	assert.Equal(t, []string{
		cloudevents.DiscrepancyRaised,
		cloudevents.EntryResolved,
		cloudevents.EntryAutoApproved,
	}, types)

	raised := decode(t, writer.messages[0])["data"].(map[string]any)
	assert.Equal(t, "pending-client", raised["status"], "raised event keeps the status it was recorded with")
	assert.Equal(t, pending.ID.Hex(), raised["entryId"])

	resolved := decode(t, writer.messages[1])["data"].(map[string]any)
	assert.Equal(t, "client-rejected", resolved["status"])
	assert.Equal(t, "rejected", resolved["action"])
	assert.Equal(t, "recount please", resolved["comment"])
	assert.Equal(t, client.Hex(), resolved["assignedClientId"])
	assert.Equal(t, kafka.Topics.AuditEvents, publisher.Topic())
}

func TestEventPublisher_StopsAtFirstFailure(t *testing.T) {
	writer := &captureWriter{err: errors.New("broker unavailable")}
	publisher := newTestPublisher(writer)

	entry := newEntry(t, 10, primitive.NilObjectID)
	err := publisher.Publish(context.Background(), entry.GetDomainEvents())
	require.Error(t, err)
	assert.Contains(t, err.Error(), cloudevents.EntryAutoApproved)
}

type unknownEvent struct{}

func (unknownEvent) EventType() string     { return "wms.audit.unknown" }
func (unknownEvent) OccurredAt() time.Time { return time.Time{} }

func TestEventPublisher_UnsupportedEvent(t *testing.T) {
	writer := &captureWriter{}
	err := newTestPublisher(writer).Publish(context.Background(), []domain.DomainEvent{unknownEvent{}})
	assert.ErrorContains(t, err, "unsupported domain event")
	assert.Empty(t, writer.messages)
}

func TestEventPublisher_MatchesAsyncAPIContract(t *testing.T) {
	validator, err := asyncapi.NewEventValidator(asyncAPISpecPath)
	require.NoError(t, err)
	assert.Equal(t, []string{
		cloudevents.DiscrepancyRaised,
		cloudevents.EntryAutoApproved,
		cloudevents.EntryResolved,
	}, validator.SupportedEventTypes())

	writer := &captureWriter{}
	publisher := newTestPublisher(writer)

	client := primitive.NewObjectID()
	pending := newEntry(t, 14, client)
	require.NoError(t, pending.Respond(client, domain.ActionApproved, "", time.Now()))
	matched := newEntry(t, 10, primitive.NilObjectID)

	require.NoError(t, publisher.Publish(context.Background(), append(pending.GetDomainEvents(), matched.GetDomainEvents()...)))
	require.Len(t, writer.messages, 3)

	for _, msg := range writer.messages {
		assert.NoError(t, validator.ValidateEventJSON(msg.Value))
	}
}
