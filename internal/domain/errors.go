package domain

import "errors"

// Errors
var (
	ErrNegativeQuantity      = errors.New("quantities must be non-negative")
	ErrLocationRequired      = errors.New("location is required")
	ErrItemIDRequired        = errors.New("sku or bin id is required")
	ErrStaffRequired         = errors.New("submitting staff member is required")
	ErrInvalidKind           = errors.New("entry kind must be sku or bin")
	ErrApproverRequired      = errors.New("discrepant entry requires an assigned client")
	ErrNoEligibleApprover    = errors.New("no client serves this location")
	ErrInvalidAction         = errors.New("action must be approved or rejected")
	ErrNotAssignedApprover   = errors.New("entry is assigned to another client")
	ErrEntryNotPending       = errors.New("entry is not awaiting a client response")
	ErrEntryNotFound         = errors.New("inventory entry not found")
	ErrReferenceNotFound     = errors.New("sku not found in reference inventory")
	ErrReferenceNameRequired = errors.New("sku name is required")
	ErrLookupKeyRequired     = errors.New("lookup key is required")
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrIdentityExists        = errors.New("email or unique code already registered")
	ErrInvalidRole           = errors.New("role must be admin, staff or client")
)
