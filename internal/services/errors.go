package services

import (
	"errors"
	"fmt"

	apperrors "github.com/clinicore/scale-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Scale specific errors
	ErrScaleNotFound       = errors.New("scale not found")
	ErrScaleInactive       = errors.New("scale is not active")
	ErrScaleDefinitionBad  = errors.New("scale definition failed validation")
	ErrScaleAlreadyExists  = errors.New("scale abbreviation already registered")
	ErrScaleHasAdministrations = errors.New("scale cannot be removed - has existing administrations")

	// Session specific errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrSessionTerminal   = errors.New("session already reached a final status")
	ErrSessionHasActive  = errors.New("session has administrations still in progress")

	// Administration specific errors
	ErrAdministrationNotFound         = errors.New("administration not found")
	ErrAdministrationNotActive        = errors.New("administration is not active")
	ErrAdministrationAlreadyComplete  = errors.New("administration already completed")
	ErrAdministrationAlreadyExists    = errors.New("an active administration for this scale already exists in the session")
	ErrAdministrationAccessDenied     = errors.New("access denied to administration")

	// Report specific errors
	ErrReportNoData        = errors.New("no data available for report")
	ErrReportFormatUnknown = errors.New("unknown report format")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	ActorID    string `json:"actor_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: actor %s cannot %s %s %d - %s",
		pe.ActorID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(actorID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		ActorID:    actorID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrScaleNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrAdministrationNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrAdministrationAccessDenied) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var single *apperrors.ValidationError
	if errors.As(err, &single) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrScaleAlreadyExists) ||
		errors.Is(err, ErrScaleHasAdministrations) ||
		errors.Is(err, ErrAdministrationAlreadyComplete) ||
		errors.Is(err, ErrAdministrationAlreadyExists) ||
		errors.Is(err, ErrSessionHasActive)
}
