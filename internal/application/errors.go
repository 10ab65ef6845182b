package application

import (
	stderrors "errors"

	"github.com/wms-platform/audit-service/internal/domain"
	"github.com/wms-platform/audit-service/pkg/errors"
	"github.com/wms-platform/audit-service/pkg/mongodb"
)

// ErrUploadInProgress is returned when another bulk upload holds the lock
var ErrUploadInProgress = stderrors.New("another upload is in progress")

func notFound(target error, resource string) errors.Mapping {
	return errors.Mapping{
		Target: target,
		Build: func(err error) *errors.AppError {
			return errors.ErrNotFound(resource).Wrap(err)
		},
	}
}

var domainErrorMappings = []errors.Mapping{
	errors.Map(domain.ErrNegativeQuantity, errors.ErrValidation),
	errors.Map(domain.ErrLocationRequired, errors.ErrValidation),
	errors.Map(domain.ErrItemIDRequired, errors.ErrValidation),
	errors.Map(domain.ErrStaffRequired, errors.ErrValidation),
	errors.Map(domain.ErrInvalidKind, errors.ErrValidation),
	errors.Map(domain.ErrApproverRequired, errors.ErrValidation),
	errors.Map(domain.ErrInvalidAction, errors.ErrValidation),
	errors.Map(domain.ErrReferenceNameRequired, errors.ErrValidation),
	errors.Map(domain.ErrLookupKeyRequired, errors.ErrValidation),
	errors.Map(domain.ErrInvalidRole, errors.ErrValidation),
	notFound(domain.ErrEntryNotFound, "inventory entry"),
	notFound(domain.ErrReferenceNotFound, "sku"),
	notFound(domain.ErrIdentityNotFound, "user"),
	errors.Map(domain.ErrNotAssignedApprover, errors.ErrForbidden),
	errors.Map(domain.ErrEntryNotPending, errors.ErrConflict),
	errors.Map(domain.ErrIdentityExists, errors.ErrConflict),
	errors.Map(ErrUploadInProgress, errors.ErrConflict),
	errors.Map(domain.ErrNoEligibleApprover, errors.ErrUnprocessable),
}

// toAppError maps domain and storage errors onto AppErrors.
// An unreachable database is a retryable 503.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	if mongodb.IsUnavailable(err) {
		return errors.ErrServiceUnavailable("database").Wrap(err)
	}
	return errors.MapError(err, domainErrorMappings...)
}
