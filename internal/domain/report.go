package domain

import "time"

// ReportFilter selects entries for the admin report. Nil dates are open ended.
type ReportFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int64
}

// EndOfDay returns the last millisecond of t's calendar day, making a date filter inclusive
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// ReportRow is one flattened entry joined with its staff, client and catalog records
type ReportRow struct {
	EntryID           string
	Kind              EntryKind
	ItemID            string
	ItemName          string
	SubmittedLocation string
	PickingLocation   string
	BulkLocation      string
	OdinMin           float64
	OdinBlocked       float64
	OdinMax           float64
	Counts            Counts
	PhysicalCount     float64
	StaffName         string
	ClientName        string
	Status            Status
	AuditResult       AuditResult
	ClientComment     string
	DateSubmitted     time.Time
}

// BulkResult summarises a bulk upsert
type BulkResult struct {
	Received int   `json:"received"`
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
	Upserted int64 `json:"upserted"`
}
