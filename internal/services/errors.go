package services

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
	// ErrBadCredentials is a failed login. It never says which half was wrong.
	ErrBadCredentials = errors.New("bad credentials")
)

// DomainError is a failure the HTTP layer can map to a status code without
// knowing which service produced it.
type DomainError struct {
	Status  int
	Code    string
	Message string
	kind    error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is match the sentinel kinds above.
func (e *DomainError) Unwrap() error {
	return e.kind
}

func notFound(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

func conflict(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusConflict, Code: "CONFLICT", Message: fmt.Sprintf(format, args...), kind: ErrConflict}
}

func validation(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusUnprocessableEntity, Code: "VALIDATION_ERROR", Message: fmt.Sprintf(format, args...), kind: ErrValidation}
}

func forbidden(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: fmt.Sprintf(format, args...), kind: ErrForbidden}
}

func badCredentials() *DomainError {
	return &DomainError{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid username or password", kind: ErrBadCredentials}
}

// storeError classifies a gorm error. Record-not-found becomes NotFound for
// the named entity, a unique violation becomes Conflict, anything else is
// wrapped as a plain store failure.
func storeError(entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound("%s not found", entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflict("%s already exists", entity)
	default:
		return fmt.Errorf("store %s: %w", entity, err)
	}
}
