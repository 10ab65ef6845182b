package application

import (
	"context"
	"time"

	"github.com/wms-platform/audit-service/internal/domain"
)

// Notifier delivers best-effort messages to the people involved in an entry
type Notifier interface {
	NotifyDiscrepancy(ctx context.Context, entry *domain.InventoryEntry, client *domain.Identity) error
	NotifyResolution(ctx context.Context, entry *domain.InventoryEntry, staff *domain.Identity) error
}

// EventPublisher publishes domain events to the event stream
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.DomainEvent) error
}

// Broadcaster pushes realtime events to connected subscribers of recipient
type Broadcaster interface {
	Broadcast(recipient, event string, payload any)
}

// CatalogCache caches reference lookups by normalised key
type CatalogCache interface {
	Get(ctx context.Context, key string) (*domain.ReferenceItem, bool, error)
	Set(ctx context.Context, key string, item *domain.ReferenceItem) error
	Invalidate(ctx context.Context) error
}

// UploadLocker serialises bulk uploads across instances. The returned func releases the lock.
type UploadLocker interface {
	Lock(ctx context.Context, name string) (func(), error)
}

// PasswordHasher hashes and verifies passwords and PINs
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) bool
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(identity *domain.Identity) (string, time.Time, error)
}
