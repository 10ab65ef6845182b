package application

import (
	"time"

	"github.com/wms-platform/audit-service/internal/domain"
)

// SubmitEntryCommand is a staff member's count. Odin is optional for SKU entries;
// without it the thresholds come from the reference catalog.
type SubmitEntryCommand struct {
	StaffID          string
	Kind             domain.EntryKind
	SkuID            string
	SkuName          string
	BinID            string
	Location         string
	Counts           domain.Counts
	Odin             *domain.Thresholds
	BookQuantity     float64
	ActualQuantity   float64
	AssignedClientID string
	Notes            string
}

// RespondCommand is a client's decision on a pending entry
type RespondCommand struct {
	EntryID string
	ActorID string
	Action  domain.ResponseAction
	Comment string
}

// Actor identifies the caller of a role dependent query
type Actor struct {
	ID   string
	Role domain.Role
}

// LoginCommand carries either admin or code credentials
type LoginCommand struct {
	Role       domain.Role
	Email      string
	Password   string
	UniqueCode string
	LoginPin   string
}

// RegisterCommand creates or overwrites an identity keyed by email (admin) or unique code
type RegisterCommand struct {
	Name           string
	Role           domain.Role
	Email          string
	Password       string
	UniqueCode     string
	LoginPin       string
	Locations      []string
	MappedLocation string
	Phone          string
}

// UpdateIdentityCommand edits an identity. Nil fields are left unchanged.
type UpdateIdentityCommand struct {
	Name      *string
	LoginPin  *string
	Locations []string
	Phone     *string
}

// ReferenceRow is one catalog upload row
type ReferenceRow struct {
	SkuID           string
	Name            string
	PickingLocation string
	BulkLocation    string
	SystemQuantity  float64
}

// RosterRow is one staff or client upload row
type RosterRow struct {
	UniqueCode string
	LoginPin   string
	Name       string
	Email      string
	Phone      string
	Locations  []string
}

// ReportQuery filters the admin report. EndDate is inclusive of the whole day.
type ReportQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int64
}
