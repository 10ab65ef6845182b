package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/pkg/errors"
)

// firstDataRow is the spreadsheet row number of Table.Rows[0], used in error details
const firstDataRow = 2

func checkHeaders(t *Table, kind Kind) error {
	missing := t.Missing(RequiredColumns(kind))
	if len(missing) == 0 {
		return nil
	}
	return errors.ErrValidation(fmt.Sprintf("missing required columns for %s upload", kind)).
		WithDetail("missing", strings.Join(missing, ", ")).
		WithDetail("detected", strings.Join(t.Headers, ", "))
}

// ReferenceRows maps an inventory sheet onto catalog rows. Row-level checks happen in
// the admin service; only unparseable quantities are rejected here.
func ReferenceRows(t *Table) ([]application.ReferenceRow, error) {
	if err := checkHeaders(t, KindInventory); err != nil {
		return nil, err
	}

	idx := t.index()
	fields := errors.FieldErrors{}
	rows := make([]application.ReferenceRow, 0, len(t.Rows))
	for i, values := range t.Rows {
		r := row{values: values, idx: idx}

		qty, err := parseQuantity(r.get(ColSystemQuantity), t.DecimalComma)
		if err != nil {
			fields.Add(fmt.Sprintf("row %d", i+firstDataRow), err.Error())
			continue
		}
		rows = append(rows, application.ReferenceRow{
			SkuID:           r.get(ColSkuID),
			Name:            r.get(ColSkuName),
			PickingLocation: r.get(ColPickingLocation),
			BulkLocation:    r.get(ColBulkLocation),
			SystemQuantity:  qty,
		})
	}
	if err := fields.Err("invalid inventory rows"); err != nil {
		return nil, err
	}
	return rows, nil
}

// RosterRows maps a staff or client sheet onto roster rows
func RosterRows(t *Table, kind Kind) ([]application.RosterRow, error) {
	if kind != KindStaff && kind != KindClient {
		return nil, errors.ErrValidation(fmt.Sprintf("%s is not a roster kind", kind))
	}
	if err := checkHeaders(t, kind); err != nil {
		return nil, err
	}

	locationCols := []string{ColLocation}
	if kind == KindStaff {
		locationCols = staffLocationColumns()
	}

	idx := t.index()
	rows := make([]application.RosterRow, 0, len(t.Rows))
	for _, values := range t.Rows {
		r := row{values: values, idx: idx}

		var locations []string
		for _, col := range locationCols {
			if v := r.get(col); v != "" {
				locations = append(locations, v)
			}
		}
		rows = append(rows, application.RosterRow{
			UniqueCode: r.get(ColStaffID),
			LoginPin:   r.get(ColLoginPIN),
			Name:       r.get(ColName),
			Email:      r.get(ColEmail),
			Phone:      r.get(ColPhone),
			Locations:  locations,
		})
	}
	return rows, nil
}

// parseQuantity accepts blanks as zero. With decimalComma, "," is the decimal mark and
// "." groups thousands when both appear; otherwise "," groups thousands.
func parseQuantity(raw string, decimalComma bool) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	if decimalComma {
		if strings.Contains(value, ",") {
			value = strings.ReplaceAll(value, ".", "")
			if strings.Count(value, ",") > 1 {
				return 0, fmt.Errorf("quantity %q is not a number", raw)
			}
			value = strings.Replace(value, ",", ".", 1)
		}
	} else {
		value = strings.ReplaceAll(value, ",", "")
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a number", raw)
	}
	return v, nil
}
