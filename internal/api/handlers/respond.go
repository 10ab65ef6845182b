package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/audit-service/internal/auth"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/middleware"
)

func respondError(c *gin.Context, logger *logging.Logger, err error) {
	middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
}

func bindJSON(c *gin.Context, logger *logging.Logger, obj any) bool {
	if appErr := middleware.BindAndValidate(c, obj); appErr != nil {
		middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(appErr)
		return false
	}
	return true
}

// principal returns the authenticated caller, or answers 401
func principal(c *gin.Context, logger *logging.Logger) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(errors.ErrUnauthorized(""))
		return nil, false
	}
	return p, true
}
