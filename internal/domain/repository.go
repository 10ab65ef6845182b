package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryRepository persists inventory entries
type EntryRepository interface {
	// Create inserts the entry and sets its ID
	Create(ctx context.Context, entry *InventoryEntry) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*InventoryEntry, error)
	// FindLatestByKey returns the newest entry for the item key at the normalised location,
	// or ErrEntryNotFound
	FindLatestByKey(ctx context.Context, itemKey, locationKey string) (*InventoryEntry, error)
	// SaveResponse writes the client response only while the stored entry is still pending.
	// It returns ErrEntryNotPending when another response won.
	SaveResponse(ctx context.Context, entry *InventoryEntry) error
	// FindPending lists pending entries, newest first. A zero clientID lists all of them.
	FindPending(ctx context.Context, clientID primitive.ObjectID) ([]*InventoryEntry, error)
	FindByStaff(ctx context.Context, staffID primitive.ObjectID) ([]*InventoryEntry, error)
	Report(ctx context.Context, filter ReportFilter) ([]ReportRow, error)
}

// IdentityRepository persists identities
type IdentityRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*Identity, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByUniqueCode(ctx context.Context, code string) (*Identity, error)
	// FindClientsNear returns clients whose locations could serve loc. Callers apply
	// EligibleApprovers to the result.
	FindClientsNear(ctx context.Context, loc string) ([]*Identity, error)
	List(ctx context.Context, role Role) ([]*Identity, error)
	// Create inserts the identity and sets its ID. A taken email or unique code is ErrIdentityExists.
	Create(ctx context.Context, identity *Identity) error
	Update(ctx context.Context, identity *Identity) error
	// BulkUpsertRoster upserts staff or client rows keyed by unique code
	BulkUpsertRoster(ctx context.Context, identities []*Identity) (BulkResult, error)
	RecordLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	DeleteByRole(ctx context.Context, role Role) (int64, error)
}

// ReferenceRepository persists the reference catalog
type ReferenceRepository interface {
	// Lookup walks the candidates in order and returns the first hit, or ErrReferenceNotFound
	Lookup(ctx context.Context, candidates []LookupCandidate) (*ReferenceItem, error)
	BulkUpsert(ctx context.Context, items []*ReferenceItem) (BulkResult, error)
	DeleteAll(ctx context.Context) (int64, error)
}
