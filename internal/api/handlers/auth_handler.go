package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/auth"
	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/middleware"
)

// AuthHandler serves sessions and identity administration
type AuthHandler struct {
	service AuthService
	logger  *logging.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService, logger *logging.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// RegisterRoutes mounts the auth routes. Login sits in front of authenticate and
// behind loginLimit, which may be nil.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authenticate, loginLimit gin.HandlerFunc) {
	group := r.Group("/auth")

	login := []gin.HandlerFunc{h.Login}
	if loginLimit != nil {
		login = append([]gin.HandlerFunc{loginLimit}, login...)
	}
	group.POST("/login", login...)

	protected := group.Group("", authenticate)
	protected.GET("/me", h.Me)
	protected.POST("/register", auth.RequireRole(domain.RoleAdmin), h.Register)
	protected.PUT("/users/:id", auth.RequireRole(domain.RoleAdmin), h.UpdateIdentity)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.toCommand())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := principal(c, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Me(c.Request.Context(), p.ID.Hex())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	middleware.AddSpanAttributes(c, attribute.String("identity.role", req.Role))

	result, err := h.service.Register(c.Request.Context(), req.toCommand())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if result.Type == application.RegisterTypeCreate {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// UpdateIdentity handles PUT /api/auth/users/:id
func (h *AuthHandler) UpdateIdentity(c *gin.Context) {
	var req UpdateIdentityRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	id := c.Param("id")
	middleware.AddSpanAttributes(c, attribute.String("identity.id", id))

	result, err := h.service.UpdateIdentity(c.Request.Context(), id, application.UpdateIdentityCommand{
		Name:      req.Name,
		LoginPin:  req.LoginPin,
		Locations: req.Locations,
		Phone:     req.Phone,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
