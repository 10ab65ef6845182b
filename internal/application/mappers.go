package application

import (
	"github.com/wms-platform/audit-service/internal/domain"
)

const placeholder = "-"

var round = domain.RoundForDisplay

// ToEntryDTO converts a domain entry to its DTO, rounding quantities for display
func ToEntryDTO(e *domain.InventoryEntry) EntryDTO {
	dto := EntryDTO{
		ID:              e.ID.Hex(),
		Kind:            string(e.Kind),
		Location:        e.Location,
		TotalIdentified: round(e.TotalIdentified),
		MinQuantity:     round(e.MinQuantity),
		MaxQuantity:     round(e.MaxQuantity),
		AuditResult:     string(e.AuditResult),
		Discrepancy:     round(e.Discrepancy),
		Status:          string(e.Status),
		StaffID:         e.StaffID.Hex(),
		Notes:           e.Notes,
		Timestamps: TimestampsDTO{
			StaffEntry:     e.Timestamps.StaffEntry,
			ClientResponse: e.Timestamps.ClientResponse,
			FinalStatus:    e.Timestamps.FinalStatus,
		},
	}

	if !e.AssignedClientID.IsZero() {
		dto.AssignedClientID = e.AssignedClientID.Hex()
	}
	if e.ClientResponse != nil {
		dto.ClientResponse = &ClientResponseDTO{
			Action:  string(e.ClientResponse.Action),
			Comment: e.ClientResponse.Comment,
		}
	}

	switch {
	case e.Sku != nil:
		dto.SkuID = e.Sku.SkuID
		dto.SkuName = e.Sku.SkuName
		dto.Counts = &CountsDTO{
			Picking:    round(e.Sku.Counts.Picking),
			Bulk:       round(e.Sku.Counts.Bulk),
			NearExpiry: round(e.Sku.Counts.NearExpiry),
			JIT:        round(e.Sku.Counts.JIT),
			Damaged:    round(e.Sku.Counts.Damaged),
		}
		dto.Odin = &ThresholdsDTO{
			MinQuantity:     round(e.Sku.Odin.MinQuantity),
			BlockedQuantity: round(e.Sku.Odin.BlockedQuantity),
			MaxQuantity:     round(e.Sku.Odin.MaxQuantity()),
		}
	case e.Bin != nil:
		book, actual := round(e.Bin.BookQuantity), round(e.Bin.ActualQuantity)
		dto.BinID = e.Bin.BinID
		dto.BookQuantity = &book
		dto.ActualQuantity = &actual
	}

	return dto
}

// ToEntryDTOs converts entries, filling staff names from names when present
func ToEntryDTOs(entries []*domain.InventoryEntry, names map[string]string) []EntryDTO {
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := ToEntryDTO(e)
		dto.StaffName = names[dto.StaffID]
		dtos = append(dtos, dto)
	}
	return dtos
}

// ToDuplicateWarningDTO describes prior as an advisory for the submitter
func ToDuplicateWarningDTO(prior *domain.InventoryEntry) *DuplicateWarningDTO {
	return &DuplicateWarningDTO{
		Message:         "this item was already counted at this location",
		EntryID:         prior.ID.Hex(),
		Status:          string(prior.Status),
		AuditResult:     string(prior.AuditResult),
		TotalIdentified: round(prior.TotalIdentified),
		SubmittedAt:     prior.Timestamps.StaffEntry,
	}
}

// ToReferenceItemDTO converts a catalog item
func ToReferenceItemDTO(item *domain.ReferenceItem) *ReferenceItemDTO {
	t := item.Thresholds()
	return &ReferenceItemDTO{
		SkuID:           item.SkuID,
		Name:            item.Name,
		PickingLocation: item.PickingLocation,
		BulkLocation:    item.BulkLocation,
		SystemQuantity:  round(item.SystemQuantity),
		MinQuantity:     round(t.MinQuantity),
		BlockedQuantity: round(t.BlockedQuantity),
		MaxQuantity:     round(t.MaxQuantity()),
	}
}

// ToIdentityDTO converts an identity, dropping password and PIN hashes
func ToIdentityDTO(i *domain.Identity) IdentityDTO {
	locations := i.Locations
	if locations == nil {
		locations = []string{}
	}
	return IdentityDTO{
		ID:             i.ID.Hex(),
		Name:           i.Name,
		Role:           string(i.Role),
		Email:          i.Email,
		UniqueCode:     i.UniqueCode,
		Locations:      locations,
		MappedLocation: i.MappedLocation,
		Phone:          i.Phone,
		LastLoginAt:    i.LastLoginAt,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

// ToIdentityDTOs converts a list of identities
func ToIdentityDTOs(identities []*domain.Identity) []IdentityDTO {
	dtos := make([]IdentityDTO, 0, len(identities))
	for _, i := range identities {
		dtos = append(dtos, ToIdentityDTO(i))
	}
	return dtos
}

// ToReportRowDTO flattens a report row. Missing joins render as "-".
func ToReportRowDTO(r domain.ReportRow) ReportRowDTO {
	picking := r.PickingLocation
	if picking == "" {
		picking = r.SubmittedLocation
	}
	return ReportRowDTO{
		EntryID:           r.EntryID,
		Kind:              string(r.Kind),
		SkuID:             r.ItemID,
		SkuName:           r.ItemName,
		SubmittedLocation: r.SubmittedLocation,
		PickingLocation:   orPlaceholder(picking),
		BulkLocation:      orPlaceholder(r.BulkLocation),
		OdinMin:           round(r.OdinMin),
		OdinBlocked:       round(r.OdinBlocked),
		OdinMax:           round(r.OdinMax),
		CountPicking:      round(r.Counts.Picking),
		CountBulk:         round(r.Counts.Bulk),
		CountNearExpiry:   round(r.Counts.NearExpiry),
		CountJIT:          round(r.Counts.JIT),
		CountDamaged:      round(r.Counts.Damaged),
		PhysicalCount:     round(r.PhysicalCount),
		StaffName:         orDefault(r.StaffName, "Unknown"),
		ClientName:        orPlaceholder(r.ClientName),
		Status:            string(r.Status),
		AuditResult:       string(r.AuditResult),
		ClientComment:     orPlaceholder(r.ClientComment),
		DateSubmitted:     r.DateSubmitted,
	}
}

func orPlaceholder(s string) string {
	return orDefault(s, placeholder)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
