package utils

import (
	"fmt"
	"regexp"

	"safewatch/models"

	"github.com/go-playground/validator/v10"
)

var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)

type ValidationService struct {
	validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func NewValidationService() *ValidationService {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("latitude_range", validateLatitude)
	v.RegisterValidation("longitude_range", validateLongitude)
	v.RegisterValidation("safety_level", validateSafetyLevel)
	v.RegisterValidation("alert_priority", validateAlertPriority)
	v.RegisterValidation("alert_type", validateAlertType)

	return &ValidationService{
		validator: v,
	}
}

func (vs *ValidationService) ValidateStruct(s interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := vs.validator.Struct(s)
	if err != nil {
		fieldErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return []ValidationError{{Message: err.Error()}}
		}
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fe.Namespace(),
				Tag:     fe.Tag(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Message: vs.getErrorMessage(fe),
			})
		}
	}

	return validationErrors
}

// ValidateZone returns a VALIDATION_ERROR describing the first problem with
// the zone, or nil if it is usable.
func (vs *ValidationService) ValidateZone(zone models.SafetyZone) error {
	if errs := vs.ValidateStruct(zone); len(errs) > 0 {
		return NewValidationError(
			fmt.Sprintf("zone %q is malformed", zone.ID),
			fmt.Errorf("%s: %s", errs[0].Field, errs[0].Message),
		)
	}
	if _, err := NewZonePolygon(zone.Boundary); err != nil {
		return NewValidationError(fmt.Sprintf("zone %q has an unusable boundary", zone.ID), err)
	}
	return nil
}

// ValidateCoordinate checks a single location fix.
func (vs *ValidationService) ValidateCoordinate(coord models.Coordinate) error {
	if errs := vs.ValidateStruct(coord); len(errs) > 0 {
		return NewValidationError("invalid coordinate", fmt.Errorf("%s: %s", errs[0].Field, errs[0].Message))
	}
	return nil
}

func (vs *ValidationService) IsValidPhone(phone string) bool {
	return vs.validator.Var(phone, "phone") == nil
}

func (vs *ValidationService) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "phone":
		return "Invalid phone number format"
	case "min":
		return fmt.Sprintf("%s must have at least %s items", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "latitude_range":
		return "Latitude must be between -90 and 90"
	case "longitude_range":
		return "Longitude must be between -180 and 180"
	case "safety_level":
		return "Safety level must be safe, caution or restricted"
	case "alert_priority":
		return "Invalid alert priority"
	case "alert_type":
		return "Invalid alert type"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Custom validation functions
func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func validateLatitude(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90 && lat <= 90
}

func validateLongitude(fl validator.FieldLevel) bool {
	lon := fl.Field().Float()
	return lon >= -180 && lon <= 180
}

func validateSafetyLevel(fl validator.FieldLevel) bool {
	return models.SafetyLevel(fl.Field().String()).IsValid()
}

func validateAlertPriority(fl validator.FieldLevel) bool {
	return models.AlertPriority(fl.Field().String()).Rank() > 0
}

func validateAlertType(fl validator.FieldLevel) bool {
	switch models.AlertType(fl.Field().String()) {
	case models.AlertTypeEmergency, models.AlertTypeLocationUpdate, models.AlertTypeGeofenceNotice:
		return true
	}
	return false
}
