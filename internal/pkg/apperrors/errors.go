package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrRiskReject      ErrorType = "RISK_REJECT"
	ErrInvalidConfig   ErrorType = "INVALID_CONFIG"
	ErrAuthFailed      ErrorType = "AUTH_FAILED"
	ErrSystemEmergency ErrorType = "SYSTEM_EMERGENCY"
	ErrInvalidRequest  ErrorType = "INVALID_REQUEST"
	ErrInternal        ErrorType = "INTERNAL_ERROR"
	ErrNotFound        ErrorType = "NOT_FOUND"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidConfig(msg string) *AppError {
	return New(ErrInvalidConfig, msg, nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrRiskReject, ErrInvalidRequest, ErrInvalidConfig:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrSystemEmergency:
		return http.StatusServiceUnavailable
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrRiskReject:
		return "Retry with a smaller size or wait for the window to reset."
	case ErrInvalidConfig:
		return "Limits and thresholds must be positive."
	case ErrAuthFailed:
		return "Check API keys."
	case ErrSystemEmergency:
		return "Wait for the emergency stop to be lifted."
	default:
		return ""
	}
}
