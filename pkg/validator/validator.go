// Package validator wraps go-playground/validator with the request
// conventions of the claims API: failures are reported under JSON field
// names, and the wire vocabularies shared by several endpoints are
// registered as named rules.
package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Wire-level vocabularies accepted by the invitation and claim endpoints.
var (
	profileKinds  = []string{"employee", "agent", "client_admin", "affiliate"}
	claimStatuses = []string{"open", "in_review", "approved", "rejected", "closed"}
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// Message renders the failure the way the API reports it to callers.
func (v ValidationError) Message() string {
	field := strings.ToLower(strings.ReplaceAll(v.Field, "_", " "))
	if field == "" {
		field = "field"
	}

	switch v.Tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, v.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, v.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, v.Param)
	case "profile_kind":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(profileKinds, " "))
	case "claim_status":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(claimStatuses, " "))
	}

	if v.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, v.Tag, v.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, v.Tag)
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		parts[i] = err.Message()
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonFieldName)

		// Fixed tag names, registered exactly once.
		_ = validate.RegisterValidation("profile_kind", memberOf(profileKinds))
		_ = validate.RegisterValidation("claim_status", memberOf(claimStatuses))
	})
	return validate
}

func memberOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, candidate := range values {
			if value == candidate {
				return true
			}
		}
		return false
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := fld.Tag.Get("json")
	if name == "" {
		return fld.Name
	}

	comma := strings.Index(name, ",")
	if comma != -1 {
		name = name[:comma]
	}

	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
