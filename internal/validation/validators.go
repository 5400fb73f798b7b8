package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/keisuke70/tasklazy/internal/models"
)

// MaxTaskNameLength bounds task names accepted by the API
const MaxTaskNameLength = 200

// Validate is the shared validator instance
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("repeat_rule", validateRepeatRule); err != nil {
		panic(fmt.Sprintf("failed to register repeat_rule validator: %v", err))
	}
	if err := Validate.RegisterValidation("clock", validateClock); err != nil {
		panic(fmt.Sprintf("failed to register clock validator: %v", err))
	}
	if err := Validate.RegisterValidation("iso_date", validateDate); err != nil {
		panic(fmt.Sprintf("failed to register iso_date validator: %v", err))
	}
}

func validateRepeatRule(fl validator.FieldLevel) bool {
	return models.RepeatRule(fl.Field().String()).Valid()
}

func validateClock(fl validator.FieldLevel) bool {
	c, err := models.ParseClock(fl.Field().String())
	return err == nil && c.InDay()
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := models.ParseDate(fl.Field().String())
	return err == nil
}

// SanitizeTaskName trims a task name and strips every control character
func SanitizeTaskName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeText trims text and removes control characters other than newline and tab
func SanitizeText(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateRepeatRule reports whether value names a known repeat rule
func ValidateRepeatRule(value string) error {
	if models.RepeatRule(value).Valid() {
		return nil
	}
	return fmt.Errorf("invalid repeat_rule: %s (must be None, Daily, Weekly, or Monthly)", value)
}

// Describe flattens validator errors into a single readable message
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is not a valid %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
