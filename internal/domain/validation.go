package domain

import (
	"fmt"
	"time"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidateEvent performs strict checks on the event payload.
// now: reference time (injectable for tests)
// skew: allowable future skew (positive duration)
func ValidateEvent(ev *Event, now time.Time, skew time.Duration) []FieldError {
	var errs []FieldError

	if ev.Name == "" {
		errs = append(errs, FieldError{"event_name", "required"})
	} else if !ev.Name.Known() {
		errs = append(errs, FieldError{"event_name", "unknown event type"})
	}

	// Timestamp is optional (the dispatcher stamps it) but must not be in the
	// future beyond the allowed skew when supplied.
	if ev.OccurredAt != 0 {
		ts := time.Unix(ev.OccurredAt, 0).UTC()
		if ts.After(now.Add(skew)) {
			errs = append(errs, FieldError{"occurred_at", "must not be in the future (beyond allowed skew)"})
		}
	}

	if len(ev.ContentIDs) > MaxContentIDs {
		errs = append(errs, FieldError{"content_ids", fmt.Sprintf("max %d items", MaxContentIDs)})
	} else {
		for i, id := range ev.ContentIDs {
			if id == "" {
				errs = append(errs, FieldError{fmt.Sprintf("content_ids[%d]", i), "must be non-empty"})
				continue
			}
			if len(id) > MaxContentIDLen {
				errs = append(errs, FieldError{fmt.Sprintf("content_ids[%d]", i), fmt.Sprintf("max length %d", MaxContentIDLen)})
			}
		}
	}

	if ev.Value != "" {
		if len(ev.Value) > MaxValueLen {
			errs = append(errs, FieldError{"value", fmt.Sprintf("max length %d", MaxValueLen)})
		} else if !validDecimal(ev.Value) {
			errs = append(errs, FieldError{"value", "must be a decimal amount, e.g. 59.90"})
		}
		if ev.Currency == "" {
			errs = append(errs, FieldError{"currency", "required when value is set"})
		}
	}
	if ev.Currency != "" && !validCurrency(ev.Currency) {
		errs = append(errs, FieldError{"currency", "must be a 3-letter ISO-4217 code"})
	}

	return errs
}

// ValidAccountID checks the external platform's account identifier format:
// numeric, between MinAccountIDLen and MaxAccountIDLen digits. A tenant with
// a malformed account ID is a configuration error and must not emit.
func ValidAccountID(id string) bool {
	if len(id) < MinAccountIDLen || len(id) > MaxAccountIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// validDecimal accepts digits with an optional single dot and up to two
// fractional digits ("12", "12.5", "12.50").
func validDecimal(s string) bool {
	dot := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if dot >= 0 {
				return false
			}
			dot = i
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	if dot == 0 || dot == len(s)-1 {
		return false
	}
	if dot >= 0 && len(s)-dot-1 > 2 {
		return false
	}
	return len(s) > 0
}

func validCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
