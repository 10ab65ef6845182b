package application

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/metrics"
	"github.com/wms-platform/audit-service/pkg/mongodb"
)

// EventNewDiscrepancy is the realtime event pushed to the assigned client
const EventNewDiscrepancy = "new-discrepancy"

const defaultSideEffectTimeout = 30 * time.Second

// AuditDependencies wires the AuditService. Notifier, Publisher, Broadcaster, Cache and Metrics are optional.
type AuditDependencies struct {
	Entries     domain.EntryRepository
	Identities  domain.IdentityRepository
	References  domain.ReferenceRepository
	Cache       CatalogCache
	Notifier    Notifier
	Publisher   EventPublisher
	Broadcaster Broadcaster
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
}

// AuditService handles submissions, client responses and the lookups staff need to submit
type AuditService struct {
	entries     domain.EntryRepository
	identities  domain.IdentityRepository
	references  domain.ReferenceRepository
	cache       CatalogCache
	notifier    Notifier
	publisher   EventPublisher
	broadcaster Broadcaster
	logger      *logging.Logger
	metrics     *metrics.Metrics

	now               func() time.Time
	sideEffectTimeout time.Duration
	background        sync.WaitGroup
}

// NewAuditService creates a new AuditService
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AuditService{
		entries:           deps.Entries,
		identities:        deps.Identities,
		references:        deps.References,
		cache:             deps.Cache,
		notifier:          deps.Notifier,
		publisher:         deps.Publisher,
		broadcaster:       deps.Broadcaster,
		logger:            logger.WithComponent("audit-service"),
		metrics:           deps.Metrics,
		now:               mongodb.Now,
		sideEffectTimeout: defaultSideEffectTimeout,
	}
}

// SubmitEntry classifies a count, routes discrepancies to an eligible client and stores the entry.
// Notifications, events and realtime pushes run after the write and never change the outcome.
func (s *AuditService) SubmitEntry(ctx context.Context, cmd SubmitEntryCommand) (*SubmitEntryResult, error) {
	staffID, err := mongodb.ParseID(cmd.StaffID)
	if err != nil {
		return nil, toAppError(domain.ErrStaffRequired)
	}
	if cmd.Kind == "" {
		cmd.Kind = domain.EntryKindSKU
	}
	if err := s.validateSubmission(cmd); err != nil {
		return nil, err
	}

	var classification domain.Classification
	odin := domain.Thresholds{}
	skuName := strings.TrimSpace(cmd.SkuName)

	switch cmd.Kind {
	case domain.EntryKindSKU:
		if cmd.Odin != nil {
			odin = *cmd.Odin
		} else {
			item, err := s.lookup(ctx, cmd.SkuID)
			if err != nil {
				return nil, err
			}
			odin = item.Thresholds()
			if skuName == "" {
				skuName = item.Name
			}
		}
		if err := odin.Validate(); err != nil {
			return nil, toAppError(err)
		}
		classification = domain.Classify(cmd.Counts, odin)
	case domain.EntryKindBin:
		classification = domain.ClassifyBin(cmd.BookQuantity, cmd.ActualQuantity)
	}

	var approver *domain.Identity
	if classification.Result.IsDiscrepant() {
		approver, err = s.resolveApprover(ctx, cmd.Location, cmd.AssignedClientID)
		if err != nil {
			return nil, err
		}
	}

	var clientID primitive.ObjectID
	if approver != nil {
		clientID = approver.ID
	}

	now := s.now()
	var entry *domain.InventoryEntry
	if cmd.Kind == domain.EntryKindSKU {
		entry, err = domain.NewSkuEntry(domain.NewSkuEntryParams{
			SkuID:            cmd.SkuID,
			SkuName:          skuName,
			Location:         cmd.Location,
			Counts:           cmd.Counts,
			Odin:             odin,
			StaffID:          staffID,
			AssignedClientID: clientID,
			Notes:            cmd.Notes,
			Now:              now,
		})
	} else {
		entry, err = domain.NewBinEntry(domain.NewBinEntryParams{
			BinID:            cmd.BinID,
			Location:         cmd.Location,
			BookQuantity:     cmd.BookQuantity,
			ActualQuantity:   cmd.ActualQuantity,
			StaffID:          staffID,
			AssignedClientID: clientID,
			Notes:            cmd.Notes,
			Now:              now,
		})
	}
	if err != nil {
		return nil, toAppError(err)
	}

	result := &SubmitEntryResult{}
	if prior := s.findPrior(ctx, entry); prior != nil {
		result.DuplicateWarning = ToDuplicateWarningDTO(prior)
		if s.metrics != nil {
			s.metrics.RecordDuplicateWarning()
		}
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to create entry", "item", entry.Key(), "location", entry.Location)
		return nil, toAppError(err)
	}

	events := entry.GetDomainEvents()
	entry.ClearDomainEvents()

	if s.metrics != nil {
		s.metrics.RecordAuditEntry(string(entry.Kind), string(entry.AuditResult), string(entry.Status))
	}
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "audit.entry.submitted",
		EntityType: "inventory_entry",
		EntityID:   entry.ID.Hex(),
		Action:     "submitted",
		RelatedIDs: map[string]string{"staffId": entry.StaffID.Hex(), "assignedClientId": hexOrEmpty(entry.AssignedClientID)},
		Data: map[string]any{
			"item":        entry.Key(),
			"location":    entry.Location,
			"auditResult": string(entry.AuditResult),
			"status":      string(entry.Status),
		},
	})

	result.Entry = ToEntryDTO(entry)
	s.afterSubmit(ctx, entry, approver, events)
	return result, nil
}

func (s *AuditService) validateSubmission(cmd SubmitEntryCommand) error {
	fields := errors.FieldErrors{}

	switch cmd.Kind {
	case domain.EntryKindSKU:
		if strings.TrimSpace(cmd.SkuID) == "" {
			fields.Add("skuId", "is required")
		}
		if err := cmd.Counts.Validate(); err != nil {
			fields.Add("counts", "must be non-negative")
		}
		if cmd.Odin != nil {
			if err := cmd.Odin.Validate(); err != nil {
				fields.Add("odin", "must be non-negative")
			}
		}
	case domain.EntryKindBin:
		if strings.TrimSpace(cmd.BinID) == "" {
			fields.Add("binId", "is required")
		}
		if cmd.BookQuantity < 0 {
			fields.Add("bookQuantity", "must be non-negative")
		}
		if cmd.ActualQuantity < 0 {
			fields.Add("actualQuantity", "must be non-negative")
		}
	default:
		fields.Add("kind", "must be sku or bin")
	}

	if domain.NormalizeLocation(cmd.Location) == "" {
		fields.Add("location", "is required")
	}
	return fields.Err("invalid inventory entry")
}

// resolveApprover returns the requested client when it is eligible for location, otherwise the
// first eligible client. No eligible client is an unresolvable routing error.
func (s *AuditService) resolveApprover(ctx context.Context, location, requested string) (*domain.Identity, error) {
	candidates, err := s.identities.FindClientsNear(ctx, location)
	if err != nil {
		return nil, toAppError(err)
	}
	eligible := domain.EligibleApprovers(candidates, location)

	if requested = strings.TrimSpace(requested); requested != "" {
		id, err := mongodb.ParseID(requested)
		if err != nil {
			return nil, errors.ErrValidationWithFields("invalid assigned client", map[string]string{
				"assignedClientId": "must be a valid id",
			})
		}
		for _, c := range eligible {
			if c.ID == id {
				return c, nil
			}
		}
		return nil, errors.ErrValidationWithFields("assigned client cannot approve this location", map[string]string{
			"assignedClientId": "is not a client serving " + strings.TrimSpace(location),
		})
	}

	if len(eligible) == 0 {
		if s.metrics != nil {
			s.metrics.RecordRoutingFailure()
		}
		s.logger.WithContext(ctx).Warn("No eligible approver", "location", location)
		return nil, errors.ErrUnprocessable(domain.ErrNoEligibleApprover.Error()).
			Wrap(domain.ErrNoEligibleApprover).
			WithDetail("location", strings.TrimSpace(location))
	}
	return eligible[0], nil
}

func (s *AuditService) findPrior(ctx context.Context, entry *domain.InventoryEntry) *domain.InventoryEntry {
	prior, err := s.entries.FindLatestByKey(ctx, entry.ItemKey, entry.LocationKey)
	if err != nil {
		if !stderrors.Is(err, domain.ErrEntryNotFound) {
			s.logger.WithContext(ctx).WithError(err).Warn("Duplicate check failed", "item", entry.ItemKey)
		}
		return nil
	}
	return prior
}

func (s *AuditService) afterSubmit(ctx context.Context, entry *domain.InventoryEntry, approver *domain.Identity, events []domain.DomainEvent) {
	s.runInBackground(ctx, func(ctx context.Context) {
		s.publish(ctx, events)

		if approver == nil || entry.Status != domain.StatusPendingClient {
			return
		}
		if s.broadcaster != nil {
			s.broadcaster.Broadcast(approver.ID.Hex(), EventNewDiscrepancy, ToEntryDTO(entry))
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyDiscrepancy(ctx, entry, approver); err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("Discrepancy notification failed", "entryId", entry.ID.Hex())
			}
		}
	})
}

func (s *AuditService) publish(ctx context.Context, events []domain.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish domain events", "count", len(events))
	}
}

// runInBackground runs fn detached from the request's cancellation, bounded by sideEffectTimeout
func (s *AuditService) runInBackground(ctx context.Context, fn func(ctx context.Context)) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Panic(bgCtx, r)
			}
		}()
		fn(bgCtx)
	}()
}

// Wait blocks until in-flight side effects finish. Called on shutdown.
func (s *AuditService) Wait() {
	s.background.Wait()
}

// Respond applies the assigned client's decision. The write only succeeds while the stored
// entry is still pending, so concurrent responses cannot both win.
func (s *AuditService) Respond(ctx context.Context, cmd RespondCommand) (*EntryDTO, error) {
	if !cmd.Action.IsValid() {
		return nil, toAppError(domain.ErrInvalidAction)
	}
	actorID, err := mongodb.ParseID(cmd.ActorID)
	if err != nil {
		return nil, toAppError(domain.ErrNotAssignedApprover)
	}
	entryID, err := mongodb.ParseID(cmd.EntryID)
	if err != nil {
		return nil, toAppError(domain.ErrEntryNotFound)
	}

	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, toAppError(err)
	}

	if err := entry.Respond(actorID, cmd.Action, cmd.Comment, s.now()); err != nil {
		return nil, toAppError(err)
	}

	if err := s.entries.SaveResponse(ctx, entry); err != nil {
		if !stderrors.Is(err, domain.ErrEntryNotPending) {
			s.logger.WithContext(ctx).WithError(err).Error("Failed to save response", "entryId", cmd.EntryID)
		}
		return nil, toAppError(err)
	}

	events := entry.GetDomainEvents()
	entry.ClearDomainEvents()

	if s.metrics != nil {
		s.metrics.RecordAuditResponse(string(cmd.Action))
	}
	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "audit.entry.resolved",
		EntityType: "inventory_entry",
		EntityID:   entry.ID.Hex(),
		Action:     string(cmd.Action),
		RelatedIDs: map[string]string{"clientId": actorID.Hex(), "staffId": entry.StaffID.Hex()},
		Data:       map[string]any{"status": string(entry.Status)},
	})

	s.runInBackground(ctx, func(ctx context.Context) {
		s.publish(ctx, events)

		if s.notifier == nil {
			return
		}
		staff, err := s.identities.FindByID(ctx, entry.StaffID)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Submitting staff member not found", "staffId", entry.StaffID.Hex())
			return
		}
		if err := s.notifier.NotifyResolution(ctx, entry, staff); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Resolution notification failed", "entryId", entry.ID.Hex())
		}
	})

	dto := ToEntryDTO(entry)
	return &dto, nil
}

// ListPending returns pending entries: a client's own, or every one for an admin
func (s *AuditService) ListPending(ctx context.Context, actor Actor) ([]EntryDTO, error) {
	var clientID primitive.ObjectID
	switch actor.Role {
	case domain.RoleClient:
		id, err := mongodb.ParseID(actor.ID)
		if err != nil {
			return nil, errors.ErrForbidden("")
		}
		clientID = id
	case domain.RoleAdmin:
	default:
		return nil, errors.ErrForbidden("only clients and admins review pending entries")
	}

	entries, err := s.entries.FindPending(ctx, clientID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToEntryDTOs(entries, s.staffNames(ctx, entries)), nil
}

func (s *AuditService) staffNames(ctx context.Context, entries []*domain.InventoryEntry) map[string]string {
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.StaffID]; !ok {
			seen[e.StaffID] = struct{}{}
			ids = append(ids, e.StaffID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	staff, err := s.identities.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to load staff names")
		return nil
	}
	names := make(map[string]string, len(staff))
	for _, st := range staff {
		names[st.ID.Hex()] = st.Name
	}
	return names
}

// StaffHistory returns the staff member's own entries, newest first
func (s *AuditService) StaffHistory(ctx context.Context, staffID string) ([]EntryDTO, error) {
	id, err := mongodb.ParseID(staffID)
	if err != nil {
		return nil, toAppError(domain.ErrStaffRequired)
	}
	entries, err := s.entries.FindByStaff(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToEntryDTOs(entries, nil), nil
}

// LookupReference resolves a raw SKU key through the cache and the lookup chain
func (s *AuditService) LookupReference(ctx context.Context, raw string) (*ReferenceItemDTO, error) {
	item, err := s.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	return ToReferenceItemDTO(item), nil
}

func (s *AuditService) lookup(ctx context.Context, raw string) (*domain.ReferenceItem, error) {
	candidates, err := domain.LookupCandidates(raw)
	if err != nil {
		return nil, toAppError(err)
	}
	key := domain.CatalogCacheKey(raw)

	if s.cache != nil {
		item, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Catalog cache read failed", "key", key)
		}
		if s.metrics != nil && err == nil {
			s.metrics.RecordCacheLookup(ok)
		}
		if ok {
			return item, nil
		}
	}

	item, err := s.references.Lookup(ctx, candidates)
	if err != nil {
		return nil, toAppError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, item); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Catalog cache write failed", "key", key)
		}
	}
	return item, nil
}

// ClientsByLocation lists the clients eligible to approve entries at location
func (s *AuditService) ClientsByLocation(ctx context.Context, location string) ([]IdentityDTO, error) {
	if domain.NormalizeLocation(location) == "" {
		return []IdentityDTO{}, nil
	}
	candidates, err := s.identities.FindClientsNear(ctx, location)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToIdentityDTOs(domain.EligibleApprovers(candidates, location)), nil
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}
