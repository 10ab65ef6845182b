package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/auth"
	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/internal/spreadsheet"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/middleware"
)

// MaxUploadSize bounds multipart spreadsheet uploads
const MaxUploadSize = 10 << 20

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AdminHandler serves bulk uploads, the report and roster administration
type AdminHandler struct {
	service AdminService
	logger  *logging.Logger
	now     func() time.Time
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminService, logger *logging.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger, now: time.Now}
}

// RegisterRoutes mounts the admin routes
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	group := r.Group("/admin", authenticate, auth.RequireRole(domain.RoleAdmin))
	{
		group.POST("/upload-inventory", h.UploadReference)
		group.POST("/assign-staff", h.AssignStaff)
		group.POST("/assign-client", h.AssignClients)
		group.GET("/users", h.ListIdentities)
		group.GET("/inventory-all", h.InventoryReport)
		group.GET("/templates/:kind", h.Template)
		group.DELETE("/delete-all-staff", h.DeleteAllStaff)
		group.DELETE("/delete-all-clients", h.DeleteAllClients)
		group.DELETE("/delete-all-reference-inventory", h.DeleteAllReference)
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data")
}

// readUpload parses the multipart "file" field into a table
func (h *AdminHandler) readUpload(c *gin.Context) (*spreadsheet.Table, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		return nil, errors.ErrValidation("a file field is required for multipart uploads")
	}
	f, err := header.Open()
	if err != nil {
		return nil, errors.ErrBadRequest("failed to open uploaded file").Wrap(err)
	}
	defer func() { _ = f.Close() }()

	table, err := spreadsheet.Read(header.Filename, f)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	return table, nil
}

// UploadReference handles POST /api/admin/upload-inventory
func (h *AdminHandler) UploadReference(c *gin.Context) {
	var rows []application.ReferenceRow
	if isMultipart(c) {
		table, err := h.readUpload(c)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if rows, err = spreadsheet.ReferenceRows(table); err != nil {
			respondError(c, h.logger, err)
			return
		}
	} else {
		var req []ReferenceRowRequest
		if !bindJSON(c, h.logger, &req) {
			return
		}
		rows = make([]application.ReferenceRow, 0, len(req))
		for _, r := range req {
			rows = append(rows, application.ReferenceRow{
				SkuID:           r.SkuID,
				Name:            r.Name,
				PickingLocation: r.PickingLocation,
				BulkLocation:    r.BulkLocation,
				SystemQuantity:  r.SystemQuantity,
			})
		}
	}

	middleware.AddSpanAttributes(c, attribute.Int("upload.rows", len(rows)))

	result, err := h.service.UploadReference(c.Request.Context(), rows)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AssignStaff handles POST /api/admin/assign-staff
func (h *AdminHandler) AssignStaff(c *gin.Context) {
	h.assignRoster(c, spreadsheet.KindStaff, h.service.AssignStaff)
}

// AssignClients handles POST /api/admin/assign-client
func (h *AdminHandler) AssignClients(c *gin.Context) {
	h.assignRoster(c, spreadsheet.KindClient, h.service.AssignClients)
}

func (h *AdminHandler) assignRoster(c *gin.Context, kind spreadsheet.Kind, assign func(ctx context.Context, rows []application.RosterRow) (*application.UploadResult, error)) {
	var rows []application.RosterRow
	if isMultipart(c) {
		table, err := h.readUpload(c)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if rows, err = spreadsheet.RosterRows(table, kind); err != nil {
			respondError(c, h.logger, err)
			return
		}
	} else {
		var req []RosterRowRequest
		if !bindJSON(c, h.logger, &req) {
			return
		}
		rows = make([]application.RosterRow, 0, len(req))
		for _, r := range req {
			rows = append(rows, r.toRow())
		}
	}

	middleware.AddSpanAttributes(c, attribute.Int("upload.rows", len(rows)))

	result, err := assign(c.Request.Context(), rows)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListIdentities handles GET /api/admin/users
func (h *AdminHandler) ListIdentities(c *gin.Context) {
	result, err := h.service.ListIdentities(c.Request.Context(), c.Query("role"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// InventoryReport handles GET /api/admin/inventory-all
func (h *AdminHandler) InventoryReport(c *gin.Context) {
	query, err := parseReportQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "csv" && format != "xlsx" {
		respondError(c, h.logger, errors.ErrValidation("format must be one of: json, csv, xlsx"))
		return
	}

	rows, err := h.service.InventoryReport(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("inventory-report-%s", h.now().UTC().Format("2006-01-02"))
	var buf bytes.Buffer
	switch format {
	case "csv":
		if err := spreadsheet.WriteReportCSV(&buf, rows); err != nil {
			respondError(c, h.logger, err)
			return
		}
		attachment(c, filename+".csv", contentTypeCSV, buf.Bytes())
	case "xlsx":
		if err := spreadsheet.WriteReportXLSX(&buf, rows); err != nil {
			respondError(c, h.logger, err)
			return
		}
		attachment(c, filename+".xlsx", contentTypeXLSX, buf.Bytes())
	default:
		c.JSON(http.StatusOK, rows)
	}
}

func parseReportQuery(c *gin.Context) (application.ReportQuery, error) {
	var query application.ReportQuery
	fields := errors.FieldErrors{}

	if raw := c.Query("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			fields.Add("startDate", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		} else {
			query.StartDate = &t
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			fields.Add("endDate", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		} else {
			query.EndDate = &t
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields.Add("limit", "must be an integer")
		} else {
			query.Limit = limit
		}
	}
	return query, fields.Err("invalid report query")
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, body)
}

// Template handles GET /api/admin/templates/:kind
func (h *AdminHandler) Template(c *gin.Context) {
	kind, err := spreadsheet.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, h.logger, errors.ErrNotFound("template"))
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteTemplateCSV(&buf, kind); err != nil {
		respondError(c, h.logger, err)
		return
	}
	attachment(c, string(kind)+"-template.csv", contentTypeCSV, buf.Bytes())
}

// DeleteAllStaff handles DELETE /api/admin/delete-all-staff
func (h *AdminHandler) DeleteAllStaff(c *gin.Context) {
	h.deleteAll(c, h.service.DeleteAllStaff)
}

// DeleteAllClients handles DELETE /api/admin/delete-all-clients
func (h *AdminHandler) DeleteAllClients(c *gin.Context) {
	h.deleteAll(c, h.service.DeleteAllClients)
}

// DeleteAllReference handles DELETE /api/admin/delete-all-reference-inventory
func (h *AdminHandler) DeleteAllReference(c *gin.Context) {
	h.deleteAll(c, h.service.DeleteAllReference)
}

func (h *AdminHandler) deleteAll(c *gin.Context, del func(ctx context.Context) (*application.DeleteResult, error)) {
	result, err := del(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
