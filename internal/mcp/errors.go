package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/report"
)

var (
	// ErrUnknownMethod indicates a method name Handle does not dispatch.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidParams indicates params that do not decode into the method's arguments.
	ErrInvalidParams = errors.New("invalid params")
	// ErrUnauthenticated indicates a call without a signed-in login.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrCompanyRequired indicates a multi-company caller that has not picked a company.
	ErrCompanyRequired = errors.New("company required")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, access.ErrAccessDenied):
		return &APIError{Code: "ACCESS_DENIED", Message: err.Error(), RecoveryHint: "Pick a company, team or member you are entitled to"}
	case errors.Is(err, access.ErrUnknownCompany):
		return &APIError{Code: "UNKNOWN_COMPANY", Message: err.Error(), RecoveryHint: "Call resolve_access to list your companies"}
	case errors.Is(err, access.ErrInvalidCredentials):
		return &APIError{Code: "INVALID_CREDENTIALS", Message: "invalid login or password"}
	case errors.Is(err, report.ErrUnsupportedView):
		return &APIError{Code: "UNSUPPORTED_VIEW", Message: err.Error(), RecoveryHint: "Use overdue, customers or bonuses"}
	case errors.Is(err, report.ErrNotConfigured):
		return &APIError{Code: "NOT_CONFIGURED", Message: err.Error(), RecoveryHint: "Ask an administrator to configure this view"}
	case errors.Is(err, report.ErrDataUnavailable):
		return &APIError{Code: "DATA_UNAVAILABLE", Message: err.Error(), RecoveryHint: "Retry once the worksheet is available"}
	case errors.Is(err, ErrCompanyRequired):
		return &APIError{Code: "COMPANY_REQUIRED", Message: "no company selected", RecoveryHint: "Pass company or select one first"}
	case errors.Is(err, ErrUnauthenticated):
		return &APIError{Code: "UNAUTHENTICATED", Message: "sign in first"}
	case errors.Is(err, ErrInvalidParams):
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error()}
	default:
		return nil
	}
}
