package utils

import (
	"errors"
	"fmt"
	"net/http"

	"safewatch/models"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// Error code constants
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodePrecondition     = "PRECONDITION_ERROR"
	ErrCodeDelivery         = "DELIVERY_ERROR"
	ErrCodePermanentFailure = "PERMANENT_FAILURE"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeDatabase         = "DATABASE_ERROR"
)

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewValidationError marks malformed zone or coordinate data. Callers skip the
// offending item and carry on.
func NewValidationError(message string, cause error) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusBadRequest,
	}
}

// NewPreconditionError is returned when panic activation cannot proceed.
// reason is one of models.PreconditionLocationRequired or models.PreconditionNoContacts.
func NewPreconditionError(reason string) error {
	return ServiceError{
		Code:       ErrCodePrecondition,
		Message:    preconditionMessage(reason),
		Details:    reason,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewDeliveryError wraps a transient send failure. The queue retries these.
func NewDeliveryError(message string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDelivery,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewPermanentFailure reports a task that exhausted its delivery attempts.
func NewPermanentFailure(taskID string, attempts int, cause error) error {
	return ServiceError{
		Code:       ErrCodePermanentFailure,
		Message:    fmt.Sprintf("Alert %s could not be delivered after %d attempts", taskID, attempts),
		Details:    taskID,
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
	}
}

func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewBadRequestError(message string) error {
	return ServiceError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

func WrapDatabaseError(err error, operation string) error {
	return NewDatabaseError(operation, err)
}

// GetServiceError extracts a ServiceError from anywhere in an error chain
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// IsServiceError checks if an error is a service error
func IsServiceError(err error) bool {
	_, ok := GetServiceError(err)
	return ok
}

func HasCode(err error, code string) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == code
}

func IsValidationError(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

func IsPreconditionError(err error) bool {
	return HasCode(err, ErrCodePrecondition)
}

func IsDeliveryError(err error) bool {
	return HasCode(err, ErrCodeDelivery)
}

func IsPermanentFailure(err error) bool {
	return HasCode(err, ErrCodePermanentFailure)
}

// PreconditionReason returns the typed reason carried by a precondition error.
func PreconditionReason(err error) string {
	serviceErr, ok := GetServiceError(err)
	if !ok || serviceErr.Code != ErrCodePrecondition {
		return ""
	}
	return serviceErr.Details
}

// UserMessage maps an error to the text shown in the app. Transient delivery
// problems never read as errors.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	serviceErr, ok := GetServiceError(err)
	if !ok {
		return "Something went wrong. Please try again."
	}

	switch serviceErr.Code {
	case ErrCodePrecondition:
		return preconditionMessage(serviceErr.Details)
	case ErrCodeDelivery:
		return "Alert saved. Pending sync, it will be sent when you are back online."
	case ErrCodePermanentFailure:
		return "We could not deliver your alert. Call your emergency contacts directly or retry from the alerts screen."
	case ErrCodeValidation:
		return "Some safety zone data was invalid and has been ignored."
	default:
		return serviceErr.Message
	}
}

func preconditionMessage(reason string) string {
	switch reason {
	case models.PreconditionLocationRequired:
		return "Your location is unavailable. Turn on location services so we can share where you are."
	case models.PreconditionNoContacts:
		return "No emergency contacts configured. Add at least one contact to use the panic button."
	default:
		return "Panic activation requirements not met"
	}
}
