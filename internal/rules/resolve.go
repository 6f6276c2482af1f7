package rules

import (
	"time"

	"github.com/flowdesk/flowdesk/internal/models"
)

// ResolveRequired walks the field's conditional rules in order and returns the
// outcome of the first rule that matches, falling back to the field's static
// Required flag when none do.
func ResolveRequired(f models.FormField, values ValueContext, row RowContext) bool {
	for _, r := range f.ConditionalRules {
		if EvaluateRule(r, values, row) {
			return r.Outcome.Required
		}
	}
	return f.Required
}

// ResolveDateValidation returns the date restrictions in effect for the field.
// The base comes from the field's static validation (all days allowed when
// unset); the first matching rule that carries a date outcome replaces it
// wholesale. This search is independent of ResolveRequired: it restarts from
// the top of the rule list and skips matching rules without a date outcome.
// Non-DATE fields get their rules' date outcomes ignored by the validator.
func ResolveDateValidation(f models.FormField, values ValueContext, row RowContext) models.DateValidation {
	dv := models.DefaultDateValidation()
	if f.Validation != nil && f.Validation.DateValidation != nil {
		dv = *f.Validation.DateValidation
	}
	for _, r := range f.ConditionalRules {
		if r.Outcome.DateValidation == nil {
			continue
		}
		if EvaluateRule(r, values, row) {
			return *r.Outcome.DateValidation
		}
	}
	return dv
}

// Bounds is the inclusive calendar-day interval a DATE field accepts.
// Unsatisfiable marks a designer misconfiguration that admits no day at all;
// callers should render an empty picker rather than treat it as unbounded.
type Bounds struct {
	Min           time.Time
	Max           time.Time
	HasMin        bool
	HasMax        bool
	Unsatisfiable bool
}

// Contains reports whether day falls inside the bounds. Time-of-day is
// ignored; comparison is by local calendar day.
func (b Bounds) Contains(day time.Time) bool {
	if b.Unsatisfiable {
		return false
	}
	d := StartOfDay(day)
	if b.HasMin && d.Before(b.Min) {
		return false
	}
	if b.HasMax && d.After(b.Max) {
		return false
	}
	return true
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateBounds converts date restrictions into an inclusive min/max interval
// relative to the supplied reference day. The reference is explicit so the
// computation stays deterministic under test; callers pass their "now".
func DateBounds(dv models.DateValidation, today time.Time) Bounds {
	day := StartOfDay(today)
	var b Bounds
	if !dv.AllowPastDates {
		b.HasMin = true
		if dv.AllowToday {
			b.Min = day
		} else {
			b.Min = day.AddDate(0, 0, 1)
		}
	}
	if !dv.AllowFutureDates {
		b.HasMax = true
		if dv.AllowToday {
			b.Max = day
		} else {
			b.Max = day.AddDate(0, 0, -1)
		}
	}
	if b.HasMin && b.HasMax && b.Min.After(b.Max) {
		b.Unsatisfiable = true
	}
	return b
}
