package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/auth"
	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/middleware"
)

// DefaultHeartbeat is the keep-alive interval of realtime streams
const DefaultHeartbeat = 25 * time.Second

// InventoryHandler serves the staff and client audit workflow
type InventoryHandler struct {
	service   AuditService
	streams   Subscriber
	logger    *logging.Logger
	heartbeat time.Duration
}

// NewInventoryHandler creates a new InventoryHandler. streams may be nil, which disables /stream.
func NewInventoryHandler(service AuditService, streams Subscriber, logger *logging.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:   service,
		streams:   streams,
		logger:    logger,
		heartbeat: DefaultHeartbeat,
	}
}

// RegisterRoutes mounts the inventory routes. idempotent guards submissions and may be nil.
func (h *InventoryHandler) RegisterRoutes(r *gin.RouterGroup, authenticate, idempotent gin.HandlerFunc) {
	group := r.Group("/inventory", authenticate)

	submit := []gin.HandlerFunc{auth.RequireRole(domain.RoleStaff)}
	if idempotent != nil {
		submit = append(submit, idempotent)
	}
	group.POST("", append(submit, h.SubmitEntry)...)

	group.GET("/pending", auth.RequireRole(domain.RoleClient, domain.RoleAdmin), h.ListPending)
	group.POST("/:id/respond", auth.RequireRole(domain.RoleClient), h.Respond)
	group.GET("/lookup/:skuId", auth.RequireRole(domain.RoleStaff, domain.RoleAdmin), h.LookupReference)
	group.GET("/clients-by-location", auth.RequireRole(domain.RoleStaff, domain.RoleAdmin), h.ClientsByLocation)
	group.GET("/staff-history", auth.RequireRole(domain.RoleStaff), h.StaffHistory)
	if h.streams != nil {
		group.GET("/stream", auth.RequireRole(domain.RoleClient), h.Stream)
	}
}

// SubmitEntry handles POST /api/inventory
func (h *InventoryHandler) SubmitEntry(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	var req SubmitEntryRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	cmd := req.toCommand(p.ID.Hex())
	middleware.AddSpanAttributes(c,
		attribute.String("entry.kind", string(cmd.Kind)),
		attribute.String("entry.location", cmd.Location),
	)

	result, err := h.service.SubmitEntry(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Respond handles POST /api/inventory/:id/respond
func (h *InventoryHandler) Respond(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	var req RespondRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	entryID := c.Param("id")
	middleware.AddSpanAttributes(c, attribute.String("entry.id", entryID))

	result, err := h.service.Respond(c.Request.Context(), application.RespondCommand{
		EntryID: entryID,
		ActorID: p.ID.Hex(),
		Action:  domain.ResponseAction(req.Action),
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPending handles GET /api/inventory/pending
func (h *InventoryHandler) ListPending(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	result, err := h.service.ListPending(c.Request.Context(), application.Actor{ID: p.ID.Hex(), Role: p.Role})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StaffHistory handles GET /api/inventory/staff-history
func (h *InventoryHandler) StaffHistory(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	result, err := h.service.StaffHistory(c.Request.Context(), p.ID.Hex())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LookupReference handles GET /api/inventory/lookup/:skuId
func (h *InventoryHandler) LookupReference(c *gin.Context) {
	skuID := c.Param("skuId")
	middleware.AddSpanAttributes(c, attribute.String("sku.id", skuID))

	result, err := h.service.LookupReference(c.Request.Context(), skuID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClientsByLocation handles GET /api/inventory/clients-by-location
func (h *InventoryHandler) ClientsByLocation(c *gin.Context) {
	result, err := h.service.ClientsByLocation(c.Request.Context(), c.Query("location"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stream handles GET /api/inventory/stream, a server-sent event feed of
// discrepancies assigned to the calling client.
func (h *InventoryHandler) Stream(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	events, cancel := h.streams.Subscribe(p.ID.Hex())
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"recipient": p.ID.Hex()})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case ev, open := <-events:
			if !open {
				return
			}
			c.SSEvent(ev.Name, ev.Payload)
		case t := <-ticker.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
		}
		c.Writer.Flush()
	}
}
