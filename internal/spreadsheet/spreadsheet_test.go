package spreadsheet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/pkg/errors"
)

const inventoryCSV = "SKU ID,Name of the SKU ID,Picking Location,Bulk Location,Quantity as on the date of Sampling\n" +
	"1001,Widget,A-1,B-9,\"1,200\"\n" +
	",,,,\n" +
	"AbC-9,Gadget,A-2,,7.5\n"

func TestReadCSV_DetectsDelimiterAndStripsBOM(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "comma", input: "Staff ID,Login PIN,Name,Location\nC1,1234,Amy,Noida\n"},
		{name: "semicolon", input: "Staff ID;Login PIN;Name;Location\nC1;1234;Amy;Noida\n"},
		{name: "bom and padded headers", input: "\xEF\xBB\xBF Staff ID , Login PIN,Name,Location\r\nC1,1234,Amy,Noida\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, []string{"Staff ID", "Login PIN", "Name", "Location"}, table.Headers)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, "Amy", table.Rows[0][2])
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReferenceRows(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(inventoryCSV))
	require.NoError(t, err)

	rows, err := ReferenceRows(table)
	require.NoError(t, err)
	assert.Equal(t, []application.ReferenceRow{
		{SkuID: "1001", Name: "Widget", PickingLocation: "A-1", BulkLocation: "B-9", SystemQuantity: 1200},
		{SkuID: "AbC-9", Name: "Gadget", PickingLocation: "A-2", SystemQuantity: 7.5},
	}, rows)
}

func TestReferenceRows_BadQuantity(t *testing.T) {
	input := "SKU ID,Name of the SKU ID,Picking Location,Bulk Location,Quantity as on the date of Sampling\n" +
		"1001,Widget,A-1,B-9,ten\n"
	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	_, err = ReferenceRows(table)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.HTTPStatus)
	assert.Contains(t, appErr.Details["row 2"], "ten")
}

func TestReferenceRows_SemicolonFileUsesDecimalComma(t *testing.T) {
	input := "SKU ID;Name of the SKU ID;Picking Location;Bulk Location;Quantity as on the date of Sampling\n" +
		"1001;Rice;A1;B1;12,5\n" +
		"1002;Oil;A2;B2;1.250,75\n" +
		"1003;Salt;A3;B3;4.5\n"
	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, table.DecimalComma)

	rows, err := ReferenceRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 12.5, rows[0].SystemQuantity)
	assert.Equal(t, 1250.75, rows[1].SystemQuantity)
	assert.Equal(t, 4.5, rows[2].SystemQuantity)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		decimalComma bool
		want         float64
		wantErr      bool
	}{
		{name: "blank", raw: "  ", want: 0},
		{name: "thousands comma", raw: "1,200", want: 1200},
		{name: "decimal point", raw: "7.5", want: 7.5},
		{name: "decimal comma", raw: "12,5", decimalComma: true, want: 12.5},
		{name: "grouped decimal comma", raw: "1.200,5", decimalComma: true, want: 1200.5},
		{name: "two decimal commas", raw: "1,2,3", decimalComma: true, wantErr: true},
		{name: "not a number", raw: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuantity(tt.raw, tt.decimalComma)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMissingColumnsNameDetectedHeaders(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("SKU,Name\n1001,Widget\n"))
	require.NoError(t, err)

	_, err = ReferenceRows(table)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "SKU, Name", appErr.Details["detected"])
	assert.Contains(t, appErr.Details["missing"], ColSkuID)
}

func TestRosterRows(t *testing.T) {
	staffCSV := "Staff ID,Login PIN,Name,Location1,Location2,Location3,Location4,Location5,Location6,Phone\n" +
		"S1,1111,Sam,Noida,,Pune,,,,9876543210\n"
	table, err := ReadCSV(strings.NewReader(staffCSV))
	require.NoError(t, err)

	rows, err := RosterRows(table, KindStaff)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, application.RosterRow{
		UniqueCode: "S1",
		LoginPin:   "1111",
		Name:       "Sam",
		Phone:      "9876543210",
		Locations:  []string{"Noida", "Pune"},
	}, rows[0])

	clientCSV := "staff id;login pin;name;location\nC1;2222;Amy;Noida WH\n"
	table, err = ReadCSV(strings.NewReader(clientCSV))
	require.NoError(t, err)

	rows, err = RosterRows(table, KindClient)
	require.NoError(t, err)
	assert.Equal(t, []string{"Noida WH"}, rows[0].Locations)

	_, err = RosterRows(table, KindInventory)
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []any{ColSkuID, ColSkuName, ColPickingLocation, ColBulkLocation, ColSystemQuantity}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	data := []any{"1001", "Widget", "A-1", "B-9", 12}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &data))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	table, err := Read("catalog.XLSX", &buf)
	require.NoError(t, err)

	rows, err := ReferenceRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12.0, rows[0].SystemQuantity)
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := Read("catalog.pdf", strings.NewReader("x"))
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestWriteReportCSV(t *testing.T) {
	rows := []application.ReportRowDTO{{
		SkuID:             "1001",
		SkuName:           "Widget",
		SubmittedLocation: "Noida",
		PickingLocation:   "A-1",
		BulkLocation:      "-",
		OdinMin:           10,
		OdinMax:           12,
		CountPicking:      7.5,
		PhysicalCount:     7.5,
		StaffName:         "Sam",
		ClientName:        "-",
		Status:            "pending-client",
		AuditResult:       "Shortfall",
		ClientComment:     "-",
		DateSubmitted:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteReportCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(ReportColumns, ","), lines[0])
	assert.Equal(t, "2026-03-01T09:30:00Z,1001,Widget,Noida,A-1,-,10,0,12,7.5,0,0,0,0,7.5,Sam,-,pending-client,Shortfall,-", lines[1])
}

func TestWriteReportXLSX(t *testing.T) {
	rows := []application.ReportRowDTO{{SkuID: "1001", StaffName: "Sam", DateSubmitted: time.Now()}}

	var buf bytes.Buffer
	require.NoError(t, WriteReportXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	got, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ReportColumns, got[0])
	assert.Equal(t, "1001", got[1][1])
	assert.Equal(t, "Sam", got[1][15])
}

func TestWriteTemplateCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplateCSV(&buf, KindStaff))
	assert.Equal(t, "Staff ID,Login PIN,Name,Location1,Location2,Location3,Location4,Location5,Location6\n", buf.String())

	table, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, table.Missing(RequiredColumns(KindStaff)))

	assert.Error(t, WriteTemplateCSV(&buf, Kind("bogus")))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Staff ")
	require.NoError(t, err)
	assert.Equal(t, KindStaff, k)

	_, err = ParseKind("admins")
	assert.Error(t, err)
}
