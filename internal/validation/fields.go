package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"skillswap/internal/models"
)

var timeOfDayRegex = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

var weekdays = map[string]struct{}{
	"monday":    {},
	"tuesday":   {},
	"wednesday": {},
	"thursday":  {},
	"friday":    {},
	"saturday":  {},
	"sunday":    {},
}

// Errors accumulates per-field failures for one request.
type Errors []models.FieldError

// Add records a failure for field.
func (e *Errors) Add(field, format string, args ...interface{}) {
	*e = append(*e, models.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Length checks the rune length of value. Empty values pass when min is 0.
func (e *Errors) Length(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case min > 0 && n == 0:
		e.Add(field, "%s is required", field)
	case n < min:
		e.Add(field, "%s must be at least %d characters", field, min)
	case n > max:
		e.Add(field, "%s must not exceed %d characters", field, max)
	}
}

// OptionalLength checks value only when it is set.
func (e *Errors) OptionalLength(field string, value *string, min, max int) {
	if value != nil {
		e.Length(field, *value, min, max)
	}
}

// Range checks min <= value <= max.
func (e *Errors) Range(field string, value, min, max int) {
	if value < min || value > max {
		e.Add(field, "%s must be between %d and %d", field, min, max)
	}
}

// Check records message for field when ok is false.
func (e *Errors) Check(ok bool, field, message string) {
	if !ok {
		e.Add(field, "%s", message)
	}
}

// Err returns a ValidationError carrying every recorded field, or nil.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return models.NewValidationError("Validation error", e...)
}

// ValidTimeOfDay reports whether s is an "H:MM" or "HH:MM" 24-hour time.
func ValidTimeOfDay(s string) bool {
	return timeOfDayRegex.MatchString(s)
}

// ValidWeekdays reports whether every entry is a lowercase English weekday name.
func ValidWeekdays(days []string) bool {
	for _, d := range days {
		if _, ok := weekdays[d]; !ok {
			return false
		}
	}
	return true
}
