package services

import (
	"errors"
	"fmt"
)

// Error types. Handlers map each type to an HTTP status.
const (
	ErrTypeDatabase     = "database_error"
	ErrTypeStorage      = "storage_error"
	ErrTypeValidation   = "validation_error"
	ErrTypeNotFound     = "not_found_error"
	ErrTypeUpstream     = "upstream_error"
	ErrTypeUnauthorized = "unauthorized_error"
)

// Error codes.
const (
	ErrCodeDBQuery           = "db_query_failed"
	ErrCodeDBInsert          = "db_insert_failed"
	ErrCodeFileUpload        = "file_upload_failed"
	ErrCodeInvalidInput      = "invalid_input"
	ErrCodeInvalidFile       = "invalid_file"
	ErrCodeTooManyIDs        = "too_many_ids"
	ErrCodeResourceNotFound  = "resource_not_found"
	ErrCodeCameraUnavailable = "camera_unavailable"
	ErrCodeUnauthorized      = "unauthorized_access"
)

// ServiceError carries a classified failure up to the HTTP layer.
type ServiceError struct {
	Type    string
	Code    string
	Message string // safe to show to clients
	Err     error
}

// Error implements error.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %s", e.Type, e.Code, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s - %s", e.Type, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches on Type and Code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// AsServiceError extracts a *ServiceError from err's chain.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsType reports whether err is a ServiceError of type errType.
func IsType(err error, errType string) bool {
	se, ok := AsServiceError(err)
	return ok && se.Type == errType
}

func validationError(code, message string) *ServiceError {
	return &ServiceError{Type: ErrTypeValidation, Code: code, Message: message}
}

func notFoundError(message string, err error) *ServiceError {
	return &ServiceError{Type: ErrTypeNotFound, Code: ErrCodeResourceNotFound, Message: message, Err: err}
}

func databaseError(code, message string, err error) *ServiceError {
	return &ServiceError{Type: ErrTypeDatabase, Code: code, Message: message, Err: err}
}
