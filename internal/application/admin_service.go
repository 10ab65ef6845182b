package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/metrics"
	"github.com/wms-platform/audit-service/pkg/mongodb"
)

// Upload lock names
const (
	lockReferenceUpload = "reference-upload"
	lockRosterUpload    = "roster-upload"
)

// AdminDependencies wires the AdminService. Cache, Locker and Metrics are optional.
type AdminDependencies struct {
	Entries    domain.EntryRepository
	Identities domain.IdentityRepository
	References domain.ReferenceRepository
	Hasher     PasswordHasher
	Cache      CatalogCache
	Locker     UploadLocker
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
}

// AdminService handles bulk uploads, reports and bulk deletes
type AdminService struct {
	entries    domain.EntryRepository
	identities domain.IdentityRepository
	references domain.ReferenceRepository
	hasher     PasswordHasher
	cache      CatalogCache
	locker     UploadLocker
	logger     *logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewAdminService creates a new AdminService
func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AdminService{
		entries:    deps.Entries,
		identities: deps.Identities,
		references: deps.References,
		hasher:     deps.Hasher,
		cache:      deps.Cache,
		locker:     deps.Locker,
		logger:     logger.WithComponent("admin-service"),
		metrics:    deps.Metrics,
		now:        mongodb.Now,
	}
}

// UploadReference upserts catalog rows keyed by SKU id. Any invalid row rejects the whole batch.
func (s *AdminService) UploadReference(ctx context.Context, rows []ReferenceRow) (*UploadResult, error) {
	if len(rows) == 0 {
		return nil, errors.ErrValidation("expected at least one inventory row")
	}

	now := s.now()
	items := make([]*domain.ReferenceItem, 0, len(rows))
	invalid := errors.FieldErrors{}
	for i, row := range rows {
		item := &domain.ReferenceItem{
			SkuID:           strings.TrimSpace(row.SkuID),
			Name:            strings.TrimSpace(row.Name),
			PickingLocation: strings.TrimSpace(row.PickingLocation),
			BulkLocation:    strings.TrimSpace(row.BulkLocation),
			SystemQuantity:  row.SystemQuantity,
			UpdatedAt:       now,
		}
		if err := item.Validate(); err != nil {
			invalid.Add(rowKey(i), err.Error())
			continue
		}
		items = append(items, item)
	}
	if err := invalid.Err("invalid inventory rows"); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, lockReferenceUpload)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, err := s.references.BulkUpsert(ctx, items)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Reference upload failed", "rows", len(items))
		return nil, toAppError(err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate catalog cache")
		}
	}
	if s.metrics != nil {
		s.metrics.RecordUploadRows("inventory", len(items))
	}
	s.logger.Audit(ctx, "reference.uploaded", "reference_inventory", logging.UserIDFromContext(ctx), map[string]any{
		"received": result.Received, "upserted": result.Upserted, "modified": result.Modified,
	})

	return &UploadResult{
		Message:    fmt.Sprintf("Updated %d inventory items", len(items)),
		BulkResult: result,
	}, nil
}

// AssignStaff upserts staff rows keyed by unique code
func (s *AdminService) AssignStaff(ctx context.Context, rows []RosterRow) (*UploadResult, error) {
	return s.upsertRoster(ctx, domain.RoleStaff, rows)
}

// AssignClients upserts client rows keyed by unique code
func (s *AdminService) AssignClients(ctx context.Context, rows []RosterRow) (*UploadResult, error) {
	return s.upsertRoster(ctx, domain.RoleClient, rows)
}

func (s *AdminService) upsertRoster(ctx context.Context, role domain.Role, rows []RosterRow) (*UploadResult, error) {
	if len(rows) == 0 {
		return nil, errors.ErrValidation("expected at least one row")
	}

	now := s.now()
	identities := make([]*domain.Identity, 0, len(rows))
	invalid := errors.FieldErrors{}
	for i, row := range rows {
		identity := &domain.Identity{
			Name:       strings.TrimSpace(row.Name),
			Role:       role,
			UniqueCode: strings.TrimSpace(row.UniqueCode),
			Email:      strings.ToLower(strings.TrimSpace(row.Email)),
			Phone:      strings.TrimSpace(row.Phone),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		identity.SetLocations(row.Locations)

		switch {
		case identity.UniqueCode == "":
			invalid.Add(rowKey(i), "unique code is required")
			continue
		case identity.Name == "":
			invalid.Add(rowKey(i), "name is required")
			continue
		}

		if pin := strings.TrimSpace(row.LoginPin); pin != "" {
			hash, err := s.hasher.Hash(pin)
			if err != nil {
				return nil, errors.ErrInternal("").Wrap(err)
			}
			identity.PinHash = hash
		}
		identities = append(identities, identity)
	}
	if err := invalid.Err(fmt.Sprintf("invalid %s rows", role)); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, lockRosterUpload)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, err := s.identities.BulkUpsertRoster(ctx, identities)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Roster upload failed", "role", string(role), "rows", len(identities))
		return nil, toAppError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordUploadRows(string(role), len(identities))
	}
	s.logger.Audit(ctx, "roster.uploaded", string(role), logging.UserIDFromContext(ctx), map[string]any{
		"received": result.Received, "upserted": result.Upserted, "modified": result.Modified,
	})

	label := "Staff"
	if role == domain.RoleClient {
		label = "Clients"
	}
	return &UploadResult{Message: label + " updated", BulkResult: result}, nil
}

func (s *AdminService) lock(ctx context.Context, name string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, name)
	if err != nil {
		return nil, toAppError(err)
	}
	return unlock, nil
}

// ListIdentities returns identities newest first. An empty role lists everyone.
func (s *AdminService) ListIdentities(ctx context.Context, role string) ([]IdentityDTO, error) {
	r := domain.Role(strings.ToLower(strings.TrimSpace(role)))
	if r != "" && !r.IsValid() {
		return nil, toAppError(domain.ErrInvalidRole)
	}
	identities, err := s.identities.List(ctx, r)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToIdentityDTOs(identities), nil
}

// InventoryReport returns flattened entries joined with staff, client and catalog data, newest first
func (s *AdminService) InventoryReport(ctx context.Context, query ReportQuery) ([]ReportRowDTO, error) {
	if query.Limit < 0 {
		return nil, errors.ErrValidationWithFields("invalid limit", map[string]string{"limit": "must be non-negative"})
	}

	filter := domain.ReportFilter{StartDate: query.StartDate, Limit: query.Limit}
	if query.EndDate != nil {
		end := domain.EndOfDay(*query.EndDate)
		filter.EndDate = &end
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, errors.ErrValidationWithFields("invalid date range", map[string]string{"startDate": "must not be after endDate"})
	}

	rows, err := s.entries.Report(ctx, filter)
	if err != nil {
		return nil, toAppError(err)
	}

	dtos := make([]ReportRowDTO, 0, len(rows))
	for _, r := range rows {
		dtos = append(dtos, ToReportRowDTO(r))
	}
	return dtos, nil
}

// DeleteAllStaff removes every staff identity
func (s *AdminService) DeleteAllStaff(ctx context.Context) (*DeleteResult, error) {
	return s.deleteRole(ctx, domain.RoleStaff, "staff members")
}

// DeleteAllClients removes every client identity
func (s *AdminService) DeleteAllClients(ctx context.Context) (*DeleteResult, error) {
	return s.deleteRole(ctx, domain.RoleClient, "clients")
}

func (s *AdminService) deleteRole(ctx context.Context, role domain.Role, label string) (*DeleteResult, error) {
	n, err := s.identities.DeleteByRole(ctx, role)
	if err != nil {
		return nil, toAppError(err)
	}
	s.logger.Audit(ctx, "identity.bulk_deleted", string(role), logging.UserIDFromContext(ctx), map[string]any{"deleted": n})
	return &DeleteResult{Message: fmt.Sprintf("Deleted %d %s.", n, label), Deleted: n}, nil
}

// DeleteAllReference empties the reference catalog
func (s *AdminService) DeleteAllReference(ctx context.Context) (*DeleteResult, error) {
	n, err := s.references.DeleteAll(ctx)
	if err != nil {
		return nil, toAppError(err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate catalog cache")
		}
	}
	s.logger.Audit(ctx, "reference.bulk_deleted", "reference_inventory", logging.UserIDFromContext(ctx), map[string]any{"deleted": n})
	return &DeleteResult{Message: fmt.Sprintf("Deleted %d reference items.", n), Deleted: n}, nil
}

func rowKey(i int) string {
	return fmt.Sprintf("row %d", i+1)
}
