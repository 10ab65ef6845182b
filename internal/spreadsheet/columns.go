package spreadsheet

import (
	"fmt"
	"strings"
)

// Kind selects a column contract
type Kind string

const (
	KindInventory Kind = "inventory"
	KindStaff     Kind = "staff"
	KindClient    Kind = "client"
)

// ParseKind accepts the upload kinds, case-insensitively
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindInventory, KindStaff, KindClient:
		return k, nil
	default:
		return "", fmt.Errorf("unknown spreadsheet kind %q", raw)
	}
}

// Inventory columns
const (
	ColSkuID           = "SKU ID"
	ColSkuName         = "Name of the SKU ID"
	ColPickingLocation = "Picking Location"
	ColBulkLocation    = "Bulk Location"
	ColSystemQuantity  = "Quantity as on the date of Sampling"
)

// Roster columns. Staff rows carry up to six Location columns, clients a single Location.
const (
	ColStaffID  = "Staff ID"
	ColLoginPIN = "Login PIN"
	ColName     = "Name"
	ColLocation = "Location"
	ColPhone    = "Phone"
	ColEmail    = "Email"
)

// MaxStaffLocations is the number of LocationN columns on the staff sheet
const MaxStaffLocations = 6

func staffLocationColumns() []string {
	cols := make([]string, 0, MaxStaffLocations)
	for i := 1; i <= MaxStaffLocations; i++ {
		cols = append(cols, fmt.Sprintf("%s%d", ColLocation, i))
	}
	return cols
}

// RequiredColumns lists the headers an upload of kind must carry
func RequiredColumns(kind Kind) []string {
	switch kind {
	case KindInventory:
		return []string{ColSkuID, ColSkuName, ColPickingLocation, ColBulkLocation, ColSystemQuantity}
	case KindStaff:
		return []string{ColStaffID, ColLoginPIN, ColName, ColLocation + "1"}
	case KindClient:
		return []string{ColStaffID, ColLoginPIN, ColName, ColLocation}
	default:
		return nil
	}
}

// TemplateColumns is the header row of the downloadable template for kind
func TemplateColumns(kind Kind) []string {
	switch kind {
	case KindStaff:
		return append([]string{ColStaffID, ColLoginPIN, ColName}, staffLocationColumns()...)
	default:
		return RequiredColumns(kind)
	}
}

// ReportColumns is the header row of the report export
var ReportColumns = []string{
	"Date Submitted",
	"SKU / Bin ID",
	"SKU Name",
	"Submitted Location",
	"Picking Location",
	"Bulk Location",
	"ODIN Min",
	"ODIN Blocked",
	"ODIN Max",
	"Picking",
	"Bulk",
	"Near Expiry",
	"JIT",
	"Damaged",
	"Physical Count",
	"Staff",
	"Client",
	"Status",
	"Audit Result",
	"Client Comment",
}
