package errs

import "errors"

var (
	ErrProblemNotFound = errors.New("problem not found")
	ErrInvalidProblem  = errors.New("invalid problem")
	ErrSourceTooLarge  = errors.New("source too large")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrCatalogReadOnly = errors.New("catalog is read only")

	ErrRuntimeUnavailable = errors.New("candidate runtime unavailable")
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrMissingToken    = errors.New("authorization token missing")
	ErrPermission      = errors.New("permission denied")
	ErrGeneratingToken = errors.New("error generating token")
	ErrInternal        = errors.New("internal error")
)
