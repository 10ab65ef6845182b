package notification

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/metrics"
	"github.com/wms-platform/audit-service/pkg/resilience"
)

var tracer = otel.Tracer("audit-service/notification")

// ErrNoAddress means the recipient has no address on a channel. It is skipped, not failed.
var ErrNoAddress = errors.New("recipient has no address for channel")

// Message is one notification rendered for every channel
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Channel delivers a message to one identity
type Channel interface {
	Name() string
	Send(ctx context.Context, to *domain.Identity, msg Message) error
}

type guardedChannel struct {
	Channel
	breaker *resilience.CircuitBreaker
}

// Notifier fans messages out to every configured channel. It implements application.Notifier.
type Notifier struct {
	channels []guardedChannel
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewNotifier wraps each channel in its own circuit breaker. m may be nil.
func NewNotifier(logger *logging.Logger, m *metrics.Metrics, channels ...Channel) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("notifier")

	guarded := make([]guardedChannel, 0, len(channels))
	for _, ch := range channels {
		cfg := resilience.DefaultCircuitBreakerConfig("notification-" + ch.Name())
		guarded = append(guarded, guardedChannel{
			Channel: ch,
			breaker: resilience.NewCircuitBreaker(cfg, logger, m),
		})
	}
	return &Notifier{channels: guarded, logger: logger, metrics: m}
}

// Channels lists the enabled channel names
func (n *Notifier) Channels() []string {
	names := make([]string, 0, len(n.channels))
	for _, ch := range n.channels {
		names = append(names, ch.Name())
	}
	return names
}

// NotifyDiscrepancy tells the assigned client an entry awaits review
func (n *Notifier) NotifyDiscrepancy(ctx context.Context, entry *domain.InventoryEntry, client *domain.Identity) error {
	msg, err := DiscrepancyMessage(entry)
	if err != nil {
		return err
	}
	return n.send(ctx, "discrepancy", client, msg)
}

// NotifyResolution tells the submitting staff member how the client decided
func (n *Notifier) NotifyResolution(ctx context.Context, entry *domain.InventoryEntry, staff *domain.Identity) error {
	msg, err := ResolutionMessage(entry)
	if err != nil {
		return err
	}
	return n.send(ctx, "resolution", staff, msg)
}

func (n *Notifier) send(ctx context.Context, kind string, to *domain.Identity, msg Message) error {
	if to == nil || len(n.channels) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "notification."+kind)
	defer span.End()
	span.SetAttributes(attribute.String("recipient.id", to.ID.Hex()))

	var errs []error
	for _, ch := range n.channels {
		err := ch.breaker.Execute(ctx, func(ctx context.Context) error {
			return ch.Send(ctx, to, msg)
		})
		if errors.Is(err, ErrNoAddress) {
			continue
		}

		if n.metrics != nil {
			n.metrics.RecordNotification(ch.Name(), err == nil)
		}
		n.logger.Notification(ctx, ch.Name(), to.ID.Hex(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
