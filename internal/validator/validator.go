package validator

import (
	"reflect"
	"strings"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines struct-tag
// validation with scale definition validation.
type Validator struct {
	structValidator *validator.Validate
	scaleValidator  *ScaleValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		scaleValidator:  NewScaleValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs struct-tag validation and converts field errors to the
// shared type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// Scale returns the scale definition validator
func (v *Validator) Scale() *ScaleValidator {
	return v.scaleValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("response_type", validateResponseType)
	validate.RegisterValidation("administration_mode", validateAdministrationMode)
	validate.RegisterValidation("scoring_method", validateScoringMethod)
	validate.RegisterValidation("severity_level", validateSeverityLevel)
	validate.RegisterValidation("session_status", validateSessionStatus)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateResponseType(fl validator.FieldLevel) bool {
	validTypes := []models.ResponseType{
		models.ResponseLikert,
		models.ResponseYesNo,
		models.ResponseMultipleChoice,
		models.ResponseNumeric,
		models.ResponseText,
		models.ResponseVisualAnalog,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateAdministrationMode(fl validator.FieldLevel) bool {
	validModes := []models.AdministrationMode{
		models.ModeSelfAdministered,
		models.ModeClinicianAdministered,
		models.ModeHybrid,
	}

	value := fl.Field().String()
	for _, validMode := range validModes {
		if string(validMode) == value {
			return true
		}
	}
	return false
}

func validateScoringMethod(fl validator.FieldLevel) bool {
	validMethods := []models.ScoringMethod{
		models.ScoringSum,
		models.ScoringWeighted,
		models.ScoringSubscaleAggregate,
		models.ScoringAlgorithm,
	}

	value := fl.Field().String()
	for _, validMethod := range validMethods {
		if string(validMethod) == value {
			return true
		}
	}
	return false
}

func validateSeverityLevel(fl validator.FieldLevel) bool {
	validLevels := []models.Severity{
		models.SeverityMinimal,
		models.SeverityMild,
		models.SeverityModerate,
		models.SeveritySevere,
	}

	value := fl.Field().String()
	for _, validLevel := range validLevels {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}

func validateSessionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.SessionStatus{
		models.SessionScheduled,
		models.SessionInProgress,
		models.SessionCompleted,
		models.SessionCancelled,
		models.SessionIncomplete,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}
