package rules

import (
	"fmt"
	"regexp"
	"time"

	"github.com/flowdesk/flowdesk/internal/models"
)

// ViolationKind classifies a validation failure.
type ViolationKind string

const (
	RequiredFieldMissing ViolationKind = "required_field_missing"
	TooShort             ViolationKind = "too_short"
	TooLong              ViolationKind = "too_long"
	PatternMismatch      ViolationKind = "pattern_mismatch"
	BelowMinimum         ViolationKind = "below_minimum"
	AboveMaximum         ViolationKind = "above_maximum"
	InvalidNumber        ViolationKind = "invalid_number"
	DateOutOfRange       ViolationKind = "date_out_of_range"
	TooFewRows           ViolationKind = "too_few_rows"
)

// DateReason is the sub-reason attached to a DateOutOfRange violation.
type DateReason string

const (
	PastDisallowed   DateReason = "past_disallowed"
	TodayDisallowed  DateReason = "today_disallowed"
	FutureDisallowed DateReason = "future_disallowed"
)

// Violation is one validation failure, with enough context for the caller to
// render a message ("Amount is required in row 2"). Row is 1-based and zero
// outside repeating sections.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	FieldKey   string        `json:"field_key,omitempty"`
	Label      string        `json:"label"`
	Row        int           `json:"row,omitempty"`
	DateReason DateReason    `json:"date_reason,omitempty"`
	Detail     string        `json:"detail,omitempty"`
}

// Message renders a human-readable description of the violation.
func (v Violation) Message() string {
	var msg string
	switch v.Kind {
	case RequiredFieldMissing:
		msg = fmt.Sprintf("%s is required", v.Label)
	case TooShort, TooLong, PatternMismatch, BelowMinimum, AboveMaximum, InvalidNumber, DateOutOfRange:
		msg = fmt.Sprintf("%s %s", v.Label, v.Detail)
	case TooFewRows:
		msg = fmt.Sprintf("%s %s", v.Label, v.Detail)
	default:
		msg = v.Label
	}
	if v.Row > 0 {
		msg = fmt.Sprintf("%s in row %d", msg, v.Row)
	}
	return msg
}

// ValidateField checks one submitted value against the field's constraints.
// required and dv must already be resolved against the current contexts
// (ResolveRequired / ResolveDateValidation). Empty optional values pass
// without further checks. Returns nil when the value is acceptable.
func ValidateField(f models.FormField, value any, required bool, dv models.DateValidation, today time.Time) *Violation {
	empty := IsEmptyValue(value)
	if required && empty {
		return &Violation{Kind: RequiredFieldMissing, FieldKey: f.FieldKey, Label: f.Label}
	}
	if empty {
		return nil
	}
	switch f.FieldType {
	case models.FieldText, models.FieldTextarea:
		return validateText(f, value)
	case models.FieldNumber:
		return validateNumber(f, value)
	case models.FieldDate:
		return validateDate(f, value, dv, today)
	}
	return nil
}

func validateText(f models.FormField, value any) *Violation {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if f.Validation == nil {
		return nil
	}
	n := len([]rune(s))
	if f.Validation.MinLength > 0 && n < f.Validation.MinLength {
		return &Violation{
			Kind: TooShort, FieldKey: f.FieldKey, Label: f.Label,
			Detail: fmt.Sprintf("must be at least %d characters", f.Validation.MinLength),
		}
	}
	if f.Validation.MaxLength > 0 && n > f.Validation.MaxLength {
		return &Violation{
			Kind: TooLong, FieldKey: f.FieldKey, Label: f.Label,
			Detail: fmt.Sprintf("must be at most %d characters", f.Validation.MaxLength),
		}
	}
	if p := f.Validation.RegexPattern; p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			// An uncompilable designer pattern skips the check rather than
			// failing the field.
			return nil
		}
		if !re.MatchString(s) {
			return &Violation{
				Kind: PatternMismatch, FieldKey: f.FieldKey, Label: f.Label,
				Detail: "does not match the expected format",
			}
		}
	}
	return nil
}

func validateNumber(f models.FormField, value any) *Violation {
	n, ok := toNumber(value)
	if !ok {
		return &Violation{Kind: InvalidNumber, FieldKey: f.FieldKey, Label: f.Label, Detail: "must be a number"}
	}
	if f.Validation == nil {
		return nil
	}
	if f.Validation.MinValue != nil && n < *f.Validation.MinValue {
		return &Violation{
			Kind: BelowMinimum, FieldKey: f.FieldKey, Label: f.Label,
			Detail: fmt.Sprintf("must be at least %v", *f.Validation.MinValue),
		}
	}
	if f.Validation.MaxValue != nil && n > *f.Validation.MaxValue {
		return &Violation{
			Kind: AboveMaximum, FieldKey: f.FieldKey, Label: f.Label,
			Detail: fmt.Sprintf("must be at most %v", *f.Validation.MaxValue),
		}
	}
	return nil
}

func validateDate(f models.FormField, value any, dv models.DateValidation, today time.Time) *Violation {
	d, ok := parseDay(value)
	if !ok {
		// Unparseable input comes from callers bypassing the date picker;
		// the bounds check has nothing to compare, so it is skipped.
		return nil
	}
	ref := StartOfDay(today)
	day := StartOfDay(d)
	switch {
	case day.Equal(ref) && !dv.AllowToday:
		return dateViolation(f, TodayDisallowed, "cannot be today")
	case day.Before(ref) && !dv.AllowPastDates:
		return dateViolation(f, PastDisallowed, "cannot be in the past")
	case day.After(ref) && !dv.AllowFutureDates:
		return dateViolation(f, FutureDisallowed, "cannot be in the future")
	}
	return nil
}

func dateViolation(f models.FormField, reason DateReason, detail string) *Violation {
	return &Violation{Kind: DateOutOfRange, FieldKey: f.FieldKey, Label: f.Label, DateReason: reason, Detail: detail}
}

func parseDay(value any) (time.Time, bool) {
	switch t := value.(type) {
	case time.Time:
		return t, true
	case string:
		if d, err := time.Parse("2006-01-02", t); err == nil {
			return d, true
		}
		if d, err := time.Parse(time.RFC3339, t); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// ValidateStep validates a whole form: every top-level field against the
// global context, and every repeating section's fields once per submitted row
// with that row as the row context. Section minimum-row checks are emitted at
// the section level; absent rows are not field-validated.
func ValidateStep(step models.WorkflowStep, values ValueContext, today time.Time) []Violation {
	var out []Violation
	sections := make(map[string]models.FormSection, len(step.Sections))
	for _, sec := range step.Sections {
		sections[sec.SectionID] = sec
	}

	fieldsBySection := make(map[string][]models.FormField)
	var topLevel []models.FormField
	for _, f := range step.Fields {
		sec, ok := sections[f.SectionID]
		if f.SectionID != "" && ok && sec.IsRepeating {
			fieldsBySection[f.SectionID] = append(fieldsBySection[f.SectionID], f)
			continue
		}
		topLevel = append(topLevel, f)
	}

	for _, f := range topLevel {
		required := ResolveRequired(f, values, nil)
		dv := ResolveDateValidation(f, values, nil)
		if v := ValidateField(f, values[f.FieldKey], required, dv, today); v != nil {
			out = append(out, *v)
		}
	}

	for _, sec := range step.Sections {
		if !sec.IsRepeating {
			continue
		}
		rows := sectionRows(values, sec.SectionID)
		if len(rows) < sec.MinRows {
			out = append(out, Violation{
				Kind: TooFewRows, FieldKey: SectionKey(sec.SectionID), Label: sec.Title,
				Detail: fmt.Sprintf("needs at least %d rows", sec.MinRows),
			})
		}
		for i, row := range rows {
			for _, f := range fieldsBySection[sec.SectionID] {
				required := ResolveRequired(f, values, row)
				dv := ResolveDateValidation(f, values, row)
				if v := ValidateField(f, row[f.FieldKey], required, dv, today); v != nil {
					v.Row = i + 1
					out = append(out, *v)
				}
			}
		}
	}
	return out
}

// sectionRows extracts a repeating section's rows from the value context,
// tolerating both decoded-JSON and typed shapes.
func sectionRows(values ValueContext, sectionID string) []RowContext {
	raw, ok := values[SectionKey(sectionID)]
	if !ok || raw == nil {
		return nil
	}
	switch list := raw.(type) {
	case []RowContext:
		return list
	case []map[string]any:
		rows := make([]RowContext, 0, len(list))
		for _, m := range list {
			rows = append(rows, RowContext(m))
		}
		return rows
	case []any:
		rows := make([]RowContext, 0, len(list))
		for _, e := range list {
			if m, ok := e.(map[string]any); ok {
				rows = append(rows, RowContext(m))
			}
		}
		return rows
	}
	return nil
}
