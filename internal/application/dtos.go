package application

import (
	"time"

	"github.com/wms-platform/audit-service/internal/domain"
)

// CountsDTO is the count breakdown as presented to clients
type CountsDTO struct {
	Picking    float64 `json:"picking"`
	Bulk       float64 `json:"bulk"`
	NearExpiry float64 `json:"nearExpiry"`
	JIT        float64 `json:"jit"`
	Damaged    float64 `json:"damaged"`
}

// ThresholdsDTO is the ODIN range captured with an entry
type ThresholdsDTO struct {
	MinQuantity     float64 `json:"minQuantity"`
	BlockedQuantity float64 `json:"blockedQuantity"`
	MaxQuantity     float64 `json:"maxQuantity"`
}

// ClientResponseDTO is the approver's decision
type ClientResponseDTO struct {
	Action  string `json:"action"`
	Comment string `json:"comment,omitempty"`
}

// TimestampsDTO records the workflow steps
type TimestampsDTO struct {
	StaffEntry     time.Time  `json:"staffEntry"`
	ClientResponse *time.Time `json:"clientResponse,omitempty"`
	FinalStatus    *time.Time `json:"finalStatus,omitempty"`
}

// EntryDTO represents an inventory entry
type EntryDTO struct {
	ID               string             `json:"id"`
	Kind             string             `json:"kind"`
	SkuID            string             `json:"skuId,omitempty"`
	SkuName          string             `json:"skuName,omitempty"`
	BinID            string             `json:"binId,omitempty"`
	BookQuantity     *float64           `json:"bookQuantity,omitempty"`
	ActualQuantity   *float64           `json:"actualQuantity,omitempty"`
	Location         string             `json:"location"`
	Counts           *CountsDTO         `json:"counts,omitempty"`
	Odin             *ThresholdsDTO     `json:"odin,omitempty"`
	TotalIdentified  float64            `json:"totalIdentified"`
	MinQuantity      float64            `json:"minQuantity"`
	MaxQuantity      float64            `json:"maxQuantity"`
	AuditResult      string             `json:"auditResult"`
	Discrepancy      float64            `json:"discrepancy"`
	Status           string             `json:"status"`
	StaffID          string             `json:"staffId"`
	StaffName        string             `json:"staffName,omitempty"`
	AssignedClientID string             `json:"assignedClientId,omitempty"`
	ClientResponse   *ClientResponseDTO `json:"clientResponse,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	Timestamps       TimestampsDTO      `json:"timestamps"`
}

// DuplicateWarningDTO points at the latest earlier submission for the same item and location
type DuplicateWarningDTO struct {
	Message         string    `json:"message"`
	EntryID         string    `json:"entryId"`
	Status          string    `json:"status"`
	AuditResult     string    `json:"auditResult"`
	TotalIdentified float64   `json:"totalIdentified"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// SubmitEntryResult is returned by SubmitEntry
type SubmitEntryResult struct {
	Entry            EntryDTO             `json:"entry"`
	DuplicateWarning *DuplicateWarningDTO `json:"duplicateWarning,omitempty"`
}

// ReferenceItemDTO represents a catalog item with its derived thresholds
type ReferenceItemDTO struct {
	SkuID           string  `json:"skuId"`
	Name            string  `json:"name"`
	PickingLocation string  `json:"pickingLocation,omitempty"`
	BulkLocation    string  `json:"bulkLocation,omitempty"`
	SystemQuantity  float64 `json:"systemQuantity"`
	MinQuantity     float64 `json:"minQuantity"`
	BlockedQuantity float64 `json:"blockedQuantity"`
	MaxQuantity     float64 `json:"maxQuantity"`
}

// IdentityDTO represents an identity without its secrets
type IdentityDTO struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	Email          string     `json:"email,omitempty"`
	UniqueCode     string     `json:"uniqueCode,omitempty"`
	Locations      []string   `json:"locations"`
	MappedLocation string     `json:"mappedLocation,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// SessionUserDTO is the user block of a login response
type SessionUserDTO struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Name      string   `json:"name"`
	Locations []string `json:"locations"`
}

// LoginResult is returned by Login
type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      SessionUserDTO `json:"user"`
}

// Register outcome types
const (
	RegisterTypeCreate = "create"
	RegisterTypeUpdate = "update"
)

// RegisterResult is returned by Register
type RegisterResult struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	User    IdentityDTO `json:"user"`
}

// UploadResult summarises a bulk upload
type UploadResult struct {
	Message string `json:"message"`
	domain.BulkResult
}

// DeleteResult summarises a bulk delete
type DeleteResult struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// ReportRowDTO is one flattened report line
type ReportRowDTO struct {
	EntryID           string    `json:"id"`
	Kind              string    `json:"kind"`
	SkuID             string    `json:"skuId"`
	SkuName           string    `json:"skuName"`
	SubmittedLocation string    `json:"submittedLocation"`
	PickingLocation   string    `json:"pickingLocation"`
	BulkLocation      string    `json:"bulkLocation"`
	OdinMin           float64   `json:"odinMin"`
	OdinBlocked       float64   `json:"odinBlocked"`
	OdinMax           float64   `json:"odinMax"`
	CountPicking      float64   `json:"countPicking"`
	CountBulk         float64   `json:"countBulk"`
	CountNearExpiry   float64   `json:"countNearExpiry"`
	CountJIT          float64   `json:"countJit"`
	CountDamaged      float64   `json:"countDamaged"`
	PhysicalCount     float64   `json:"physicalCount"`
	StaffName         string    `json:"staffName"`
	ClientName        string    `json:"clientName"`
	Status            string    `json:"status"`
	AuditResult       string    `json:"auditResult"`
	ClientComment     string    `json:"clientComment"`
	DateSubmitted     time.Time `json:"dateSubmitted"`
}
