package auth

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/middleware"
	"github.com/wms-platform/audit-service/pkg/mongodb"
)

const principalKey = "auth.principal"

// Principal is the authenticated caller, loaded fresh from the identity store
type Principal struct {
	ID        primitive.ObjectID
	Role      domain.Role
	Name      string
	Locations []string
}

// IdentityLoader loads the identity behind a token
type IdentityLoader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Identity, error)
}

// Authenticate verifies the bearer token and loads its identity on every request,
// so tokens of deleted identities stop working immediately.
// EventSource clients cannot set headers and may pass the token as ?access_token=.
func Authenticate(tokens *TokenManager, loader IdentityLoader, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("missing bearer token"))
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("invalid or expired token"))
			return
		}

		id, err := mongodb.ParseID(claims.User.ID)
		if err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("invalid or expired token"))
			return
		}

		identity, err := loader.FindByID(c.Request.Context(), id)
		switch {
		case stderrors.Is(err, domain.ErrIdentityNotFound):
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("account no longer exists"))
			return
		case mongodb.IsUnavailable(err):
			middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("identity store").Wrap(err))
			return
		case err != nil:
			logger.WithError(err).Error("Failed to load identity", "identityId", claims.User.ID)
			middleware.AbortWithAppError(c, errors.ErrInternal("").Wrap(err))
			return
		}

		c.Set(principalKey, &Principal{
			ID:        identity.ID,
			Role:      identity.Role,
			Name:      identity.Name,
			Locations: identity.Locations,
		})
		c.Request = c.Request.WithContext(logging.ContextWithUserID(c.Request.Context(), identity.ID.Hex()))
		c.Next()
	}
}

// RequireRole rejects principals whose role is not listed
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized(""))
			return
		}
		for _, r := range roles {
			if principal.Role == r {
				c.Next()
				return
			}
		}
		middleware.AbortWithAppError(c, errors.ErrForbidden("role "+string(principal.Role)+" cannot access this resource"))
	}
}

// PrincipalFrom returns the principal set by Authenticate
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

// WithPrincipal stores p on the gin context. Used by handler tests.
func WithPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}
