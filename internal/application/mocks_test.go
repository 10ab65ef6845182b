package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/audit-service/internal/domain"
)

// MockEntryRepository stores copies so callers cannot mutate persisted state
type MockEntryRepository struct {
	mu         sync.Mutex
	entries    map[primitive.ObjectID]domain.InventoryEntry
	order      []primitive.ObjectID
	reportRows []domain.ReportRow
	lastFilter domain.ReportFilter
	createErr  error
	findErr    error
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{entries: make(map[primitive.ObjectID]domain.InventoryEntry)}
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *domain.InventoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	stored := *entry
	stored.DomainEvents = nil
	m.entries[entry.ID] = stored
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *MockEntryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.InventoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return &e, nil
}

func (m *MockEntryRepository) FindLatestByKey(ctx context.Context, itemKey, locationKey string) (*domain.InventoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.entries[m.order[i]]
		if e.ItemKey == itemKey && e.LocationKey == locationKey {
			return &e, nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) SaveResponse(ctx context.Context, entry *domain.InventoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.entries[entry.ID]
	if !ok || stored.Status != domain.StatusPendingClient {
		return domain.ErrEntryNotPending
	}
	updated := *entry
	updated.DomainEvents = nil
	m.entries[entry.ID] = updated
	return nil
}

func (m *MockEntryRepository) FindPending(ctx context.Context, clientID primitive.ObjectID) ([]*domain.InventoryEntry, error) {
	return m.filter(func(e domain.InventoryEntry) bool {
		return e.Status == domain.StatusPendingClient && (clientID.IsZero() || e.AssignedClientID == clientID)
	}), nil
}

func (m *MockEntryRepository) FindByStaff(ctx context.Context, staffID primitive.ObjectID) ([]*domain.InventoryEntry, error) {
	return m.filter(func(e domain.InventoryEntry) bool { return e.StaffID == staffID }), nil
}

func (m *MockEntryRepository) Report(ctx context.Context, filter domain.ReportFilter) ([]domain.ReportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	return m.reportRows, nil
}

func (m *MockEntryRepository) filter(keep func(domain.InventoryEntry) bool) []*domain.InventoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.InventoryEntry
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.entries[m.order[i]]
		if keep(e) {
			result = append(result, &e)
		}
	}
	return result
}

func (m *MockEntryRepository) stored(id primitive.ObjectID) domain.InventoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[id]
}

// MockIdentityRepository is an in-memory IdentityRepository
type MockIdentityRepository struct {
	mu         sync.Mutex
	identities map[primitive.ObjectID]*domain.Identity
	upserted   []*domain.Identity
	findErr    error
}

func NewMockIdentityRepository(seed ...*domain.Identity) *MockIdentityRepository {
	m := &MockIdentityRepository{identities: make(map[primitive.ObjectID]*domain.Identity)}
	for _, id := range seed {
		if id.ID.IsZero() {
			id.ID = primitive.NewObjectID()
		}
		m.identities[id.ID] = id
	}
	return m
}

func (m *MockIdentityRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if i, ok := m.identities[id]; ok {
		return i, nil
	}
	return nil, domain.ErrIdentityNotFound
}

func (m *MockIdentityRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Identity
	for _, id := range ids {
		if i, ok := m.identities[id]; ok {
			result = append(result, i)
		}
	}
	return result, nil
}

func (m *MockIdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return m.findOne(func(i *domain.Identity) bool { return i.Email != "" && i.Email == email })
}

func (m *MockIdentityRepository) FindByUniqueCode(ctx context.Context, code string) (*domain.Identity, error) {
	return m.findOne(func(i *domain.Identity) bool { return i.UniqueCode != "" && i.UniqueCode == code })
}

func (m *MockIdentityRepository) findOne(match func(*domain.Identity) bool) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, i := range m.identities {
		if match(i) {
			return i, nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (m *MockIdentityRepository) FindClientsNear(ctx context.Context, loc string) ([]*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var result []*domain.Identity
	for _, i := range m.identities {
		if i.Role == domain.RoleClient {
			result = append(result, i)
		}
	}
	return result, nil
}

func (m *MockIdentityRepository) List(ctx context.Context, role domain.Role) ([]*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Identity
	for _, i := range m.identities {
		if role == "" || i.Role == role {
			result = append(result, i)
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].CreatedAt.After(result[b].CreatedAt) })
	return result, nil
}

func (m *MockIdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity.ID = primitive.NewObjectID()
	m.identities[identity.ID] = identity
	return nil
}

func (m *MockIdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identity.ID]; !ok {
		return domain.ErrIdentityNotFound
	}
	m.identities[identity.ID] = identity
	return nil
}

func (m *MockIdentityRepository) BulkUpsertRoster(ctx context.Context, identities []*domain.Identity) (domain.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, identities...)
	return domain.BulkResult{Received: len(identities), Upserted: int64(len(identities))}, nil
}

func (m *MockIdentityRepository) RecordLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.identities[id]; ok {
		i.LastLoginAt = &at
	}
	return nil
}

func (m *MockIdentityRepository) DeleteByRole(ctx context.Context, role domain.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, i := range m.identities {
		if i.Role == role {
			delete(m.identities, id)
			n++
		}
	}
	return n, nil
}

// MockReferenceRepository is an in-memory ReferenceRepository
type MockReferenceRepository struct {
	mu      sync.Mutex
	items   []*domain.ReferenceItem
	lookups int
}

func (m *MockReferenceRepository) Lookup(ctx context.Context, candidates []domain.LookupCandidate) (*domain.ReferenceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, c := range candidates {
		for _, item := range m.items {
			if c.Matches(item.SkuID) {
				return item, nil
			}
		}
	}
	return nil, domain.ErrReferenceNotFound
}

func (m *MockReferenceRepository) BulkUpsert(ctx context.Context, items []*domain.ReferenceItem) (domain.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, items...)
	return domain.BulkResult{Received: len(items), Upserted: int64(len(items))}, nil
}

func (m *MockReferenceRepository) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.items))
	m.items = nil
	return n, nil
}

// MockCatalogCache records invalidations
type MockCatalogCache struct {
	mu          sync.Mutex
	items       map[string]*domain.ReferenceItem
	invalidated int
}

func NewMockCatalogCache() *MockCatalogCache {
	return &MockCatalogCache{items: make(map[string]*domain.ReferenceItem)}
}

func (m *MockCatalogCache) Get(ctx context.Context, key string) (*domain.ReferenceItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	return item, ok, nil
}

func (m *MockCatalogCache) Set(ctx context.Context, key string, item *domain.ReferenceItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = item
	return nil
}

func (m *MockCatalogCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*domain.ReferenceItem)
	m.invalidated++
	return nil
}

// MockNotifier records deliveries and can fail on demand
type MockNotifier struct {
	mu            sync.Mutex
	discrepancies []string
	resolutions   []string
	err           error
}

func (m *MockNotifier) NotifyDiscrepancy(ctx context.Context, entry *domain.InventoryEntry, client *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discrepancies = append(m.discrepancies, client.ID.Hex())
	return m.err
}

func (m *MockNotifier) NotifyResolution(ctx context.Context, entry *domain.InventoryEntry, staff *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions = append(m.resolutions, staff.ID.Hex())
	return m.err
}

func (m *MockNotifier) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.discrepancies), len(m.resolutions)
}

// MockPublisher records event types
type MockPublisher struct {
	mu    sync.Mutex
	types []string
}

func (m *MockPublisher) Publish(ctx context.Context, events []domain.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.types = append(m.types, e.EventType())
	}
	return nil
}

func (m *MockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.types...)
}

// MockBroadcaster records recipients
type MockBroadcaster struct {
	mu         sync.Mutex
	recipients []string
}

func (m *MockBroadcaster) Broadcast(recipient, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients = append(m.recipients, recipient+"/"+event)
}

func (m *MockBroadcaster) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.recipients...)
}

// MockLocker fails with err when set
type MockLocker struct {
	err    error
	locked []string
}

func (m *MockLocker) Lock(ctx context.Context, name string) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.locked = append(m.locked, name)
	return func() {}, nil
}

type plainHasher struct{}

func (plainHasher) Hash(secret string) (string, error) { return "hashed:" + secret, nil }

func (plainHasher) Compare(hash, secret string) bool { return hash == "hashed:"+secret }

type stubTokens struct{ err error }

func (s stubTokens) Issue(identity *domain.Identity) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "token-" + strings.ToLower(identity.Name), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), nil
}

var errStore = errors.New("store failed")
