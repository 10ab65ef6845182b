package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wms-platform/audit-service/internal/application"
)

const reportSheet = "Inventory Report"

func reportRecord(r application.ReportRowDTO) []any {
	return []any{
		r.DateSubmitted.UTC().Format(time.RFC3339),
		r.SkuID,
		r.SkuName,
		r.SubmittedLocation,
		r.PickingLocation,
		r.BulkLocation,
		r.OdinMin,
		r.OdinBlocked,
		r.OdinMax,
		r.CountPicking,
		r.CountBulk,
		r.CountNearExpiry,
		r.CountJIT,
		r.CountDamaged,
		r.PhysicalCount,
		r.StaffName,
		r.ClientName,
		r.Status,
		r.AuditResult,
		r.ClientComment,
	}
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// WriteReportCSV writes the report with a header row
func WriteReportCSV(w io.Writer, rows []application.ReportRowDTO) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := reportRecord(r)
		line := make([]string, len(rec))
		for i, v := range rec {
			line[i] = formatCell(v)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReportXLSX writes the report as a single sheet workbook
func WriteReportXLSX(w io.Writer, rows []application.ReportRowDTO) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(ReportColumns))
	for i, h := range ReportColumns {
		header[i] = h
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		rec := reportRecord(r)
		if err := f.SetSheetRow(reportSheet, cell, &rec); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	return f.Write(w)
}

// WriteTemplateCSV writes an empty upload template for kind
func WriteTemplateCSV(w io.Writer, kind Kind) error {
	cols := TemplateColumns(kind)
	if cols == nil {
		return fmt.Errorf("no template for %q", kind)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
