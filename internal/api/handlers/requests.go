package handlers

import (
	"strings"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/domain"
)

// LoginRequest accepts either email and password or a unique code and PIN
type LoginRequest struct {
	Role       string `json:"role"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	UniqueCode string `json:"uniqueCode"`
	LoginPin   string `json:"loginPin"`
}

func (r LoginRequest) toCommand() application.LoginCommand {
	return application.LoginCommand{
		Role:       domain.Role(strings.ToLower(strings.TrimSpace(r.Role))),
		Email:      r.Email,
		Password:   r.Password,
		UniqueCode: r.UniqueCode,
		LoginPin:   r.LoginPin,
	}
}

// RegisterRequest creates or overwrites an identity
type RegisterRequest struct {
	Name           string   `json:"name" binding:"required"`
	Role           string   `json:"role" binding:"required,oneof=admin staff client"`
	Email          string   `json:"email" binding:"omitempty,email"`
	Password       string   `json:"password"`
	UniqueCode     string   `json:"uniqueCode" binding:"omitempty,unique_code"`
	LoginPin       string   `json:"loginPin"`
	Locations      []string `json:"locations"`
	MappedLocation string   `json:"mappedLocation"`
	Phone          string   `json:"phone"`
}

func (r RegisterRequest) toCommand() application.RegisterCommand {
	return application.RegisterCommand{
		Name:           r.Name,
		Role:           domain.Role(r.Role),
		Email:          r.Email,
		Password:       r.Password,
		UniqueCode:     r.UniqueCode,
		LoginPin:       r.LoginPin,
		Locations:      r.Locations,
		MappedLocation: r.MappedLocation,
		Phone:          r.Phone,
	}
}

// UpdateIdentityRequest edits an identity. Absent fields are left unchanged.
type UpdateIdentityRequest struct {
	Name      *string  `json:"name"`
	LoginPin  *string  `json:"loginPin"`
	Locations []string `json:"locations"`
	Phone     *string  `json:"phone"`
}

// CountsRequest is the count breakdown of a SKU submission
type CountsRequest struct {
	Picking    float64 `json:"picking" binding:"gte=0"`
	Bulk       float64 `json:"bulk" binding:"gte=0"`
	NearExpiry float64 `json:"nearExpiry" binding:"gte=0"`
	JIT        float64 `json:"jit" binding:"gte=0"`
	Damaged    float64 `json:"damaged" binding:"gte=0"`
}

// OdinRequest is an explicit threshold pair. Older clients send blocked instead of blockedQuantity.
type OdinRequest struct {
	MinQuantity     float64  `json:"minQuantity" binding:"gte=0"`
	BlockedQuantity *float64 `json:"blockedQuantity" binding:"omitempty,gte=0"`
	Blocked         *float64 `json:"blocked" binding:"omitempty,gte=0"`
}

func (o *OdinRequest) thresholds() *domain.Thresholds {
	if o == nil {
		return nil
	}
	t := &domain.Thresholds{MinQuantity: o.MinQuantity}
	switch {
	case o.BlockedQuantity != nil:
		t.BlockedQuantity = *o.BlockedQuantity
	case o.Blocked != nil:
		t.BlockedQuantity = *o.Blocked
	}
	return t
}

// SubmitEntryRequest is a staff count. Kind defaults to sku.
type SubmitEntryRequest struct {
	Kind             string        `json:"kind" binding:"omitempty,oneof=sku bin"`
	SkuID            string        `json:"skuId"`
	SkuName          string        `json:"skuName"`
	BinID            string        `json:"binId"`
	Location         string        `json:"location" binding:"required,location"`
	Counts           CountsRequest `json:"counts"`
	Odin             *OdinRequest  `json:"odin"`
	BookQuantity     float64       `json:"bookQuantity" binding:"gte=0"`
	ActualQuantity   float64       `json:"actualQuantity" binding:"gte=0"`
	AssignedClientID string        `json:"assignedClientId"`
	Notes            string        `json:"notes" binding:"max=1000"`
}

func (r SubmitEntryRequest) toCommand(staffID string) application.SubmitEntryCommand {
	kind := domain.EntryKind(r.Kind)
	if kind == "" {
		kind = domain.EntryKindSKU
	}
	return application.SubmitEntryCommand{
		StaffID:  staffID,
		Kind:     kind,
		SkuID:    r.SkuID,
		SkuName:  r.SkuName,
		BinID:    r.BinID,
		Location: r.Location,
		Counts: domain.Counts{
			Picking:    r.Counts.Picking,
			Bulk:       r.Counts.Bulk,
			NearExpiry: r.Counts.NearExpiry,
			JIT:        r.Counts.JIT,
			Damaged:    r.Counts.Damaged,
		},
		Odin:             r.Odin.thresholds(),
		BookQuantity:     r.BookQuantity,
		ActualQuantity:   r.ActualQuantity,
		AssignedClientID: r.AssignedClientID,
		Notes:            r.Notes,
	}
}

// RespondRequest is a client's decision
type RespondRequest struct {
	Action  string `json:"action" binding:"required,response_action"`
	Comment string `json:"comment" binding:"max=1000"`
}

// ReferenceRowRequest is one JSON catalog upload row
type ReferenceRowRequest struct {
	SkuID           string  `json:"skuId"`
	Name            string  `json:"name"`
	PickingLocation string  `json:"pickingLocation"`
	BulkLocation    string  `json:"bulkLocation"`
	SystemQuantity  float64 `json:"systemQuantity"`
}

// RosterRowRequest is one JSON roster upload row. The sccId, pin and assignedLocations
// names are accepted for older uploads.
type RosterRowRequest struct {
	UniqueCode        string   `json:"uniqueCode"`
	SccID             string   `json:"sccId"`
	LoginPin          string   `json:"loginPin"`
	Pin               string   `json:"pin"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	Locations         []string `json:"locations"`
	AssignedLocations []string `json:"assignedLocations"`
	MappedLocation    string   `json:"mappedLocation"`
}

func (r RosterRowRequest) toRow() application.RosterRow {
	row := application.RosterRow{
		UniqueCode: firstNonEmpty(r.UniqueCode, r.SccID),
		LoginPin:   firstNonEmpty(r.LoginPin, r.Pin),
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Locations:  r.Locations,
	}
	if len(row.Locations) == 0 {
		row.Locations = r.AssignedLocations
	}
	if len(row.Locations) == 0 && r.MappedLocation != "" {
		row.Locations = strings.Split(r.MappedLocation, ",")
	}
	return row
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
