package rules

import (
	"testing"
	"time"

	"github.com/flowdesk/flowdesk/internal/models"
)

func dvPtr(dv models.DateValidation) *models.DateValidation { return &dv }

func TestResolveRequiredFirstMatchWins(t *testing.T) {
	f := models.FormField{
		FieldKey: "approval_amount", Label: "Approval Amount", FieldType: models.FieldNumber,
		Required: false,
		ConditionalRules: []models.ConditionalRule{
			{
				RuleID:    "r1",
				Condition: models.Condition{FieldKey: "request_type", Operator: models.OpEquals, Value: "EXPENSE"},
				Outcome:   models.RuleOutcome{Required: true},
			},
			{
				RuleID:    "r2",
				Condition: models.Condition{FieldKey: "request_type", Operator: models.OpIsNotEmpty},
				Outcome:   models.RuleOutcome{Required: false},
			},
		},
	}
	values := ValueContext{"request_type": "EXPENSE"}
	// Both rules match; rule 1 decides.
	if !ResolveRequired(f, values, nil) {
		t.Fatalf("first matching rule should win with required=true")
	}
	if ResolveRequired(f, ValueContext{"request_type": "LEAVE"}, nil) != false {
		t.Fatalf("second rule should decide required=false for LEAVE")
	}
	if ResolveRequired(f, ValueContext{}, nil) != false {
		t.Fatalf("no match should fall back to static required=false")
	}
}

func TestResolveRequiredStaticFallback(t *testing.T) {
	f := models.FormField{FieldKey: "notes", Label: "Notes", FieldType: models.FieldText, Required: true}
	if !ResolveRequired(f, ValueContext{}, nil) {
		t.Fatalf("field without rules should keep static required=true")
	}
}

func TestResolveDateValidationSeparateSearch(t *testing.T) {
	dv := models.DateValidation{AllowPastDates: false, AllowToday: true, AllowFutureDates: true}
	f := models.FormField{
		FieldKey: "due_date", Label: "Due Date", FieldType: models.FieldDate,
		ConditionalRules: []models.ConditionalRule{
			// Matches first but carries no date outcome: decides requiredness only.
			{
				RuleID:    "r1",
				Condition: models.Condition{FieldKey: "urgent", Operator: models.OpEquals, Value: true},
				Outcome:   models.RuleOutcome{Required: true},
			},
			{
				RuleID:    "r2",
				Condition: models.Condition{FieldKey: "urgent", Operator: models.OpIsNotEmpty},
				Outcome:   models.RuleOutcome{Required: false, DateValidation: dvPtr(dv)},
			},
		},
	}
	values := ValueContext{"urgent": true}
	if !ResolveRequired(f, values, nil) {
		t.Fatalf("rule 1 should decide requiredness")
	}
	got := ResolveDateValidation(f, values, nil)
	if got != dv {
		t.Fatalf("date validation = %+v, want rule 2's %+v", got, dv)
	}
}

func TestResolveDateValidationDefaults(t *testing.T) {
	f := models.FormField{FieldKey: "d", FieldType: models.FieldDate}
	got := ResolveDateValidation(f, ValueContext{}, nil)
	if got != models.DefaultDateValidation() {
		t.Fatalf("unset validation should default to all-true, got %+v", got)
	}

	base := models.DateValidation{AllowPastDates: true, AllowToday: false, AllowFutureDates: true}
	f.Validation = &models.FieldValidation{DateValidation: &base}
	if got := ResolveDateValidation(f, ValueContext{}, nil); got != base {
		t.Fatalf("static date validation = %+v, want %+v", got, base)
	}
}

func TestDateBounds(t *testing.T) {
	today := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name          string
		dv            models.DateValidation
		wantMin       time.Time
		wantMax       time.Time
		hasMin        bool
		hasMax        bool
		unsatisfiable bool
	}{
		{
			name:    "past disallowed, today allowed",
			dv:      models.DateValidation{AllowPastDates: false, AllowToday: true, AllowFutureDates: true},
			hasMin:  true,
			wantMin: day,
		},
		{
			name:    "past and today disallowed",
			dv:      models.DateValidation{AllowPastDates: false, AllowToday: false, AllowFutureDates: true},
			hasMin:  true,
			wantMin: day.AddDate(0, 0, 1),
		},
		{
			name:    "future and today disallowed",
			dv:      models.DateValidation{AllowPastDates: true, AllowToday: false, AllowFutureDates: false},
			hasMax:  true,
			wantMax: day.AddDate(0, 0, -1),
		},
		{
			name:    "only today allowed",
			dv:      models.DateValidation{AllowPastDates: false, AllowToday: true, AllowFutureDates: false},
			hasMin:  true,
			hasMax:  true,
			wantMin: day,
			wantMax: day,
		},
		{
			name:          "everything disallowed",
			dv:            models.DateValidation{},
			hasMin:        true,
			hasMax:        true,
			wantMin:       day.AddDate(0, 0, 1),
			wantMax:       day.AddDate(0, 0, -1),
			unsatisfiable: true,
		},
		{
			name: "everything allowed",
			dv:   models.DefaultDateValidation(),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := DateBounds(tc.dv, today)
			if b.HasMin != tc.hasMin || b.HasMax != tc.hasMax {
				t.Fatalf("has(min,max) = (%v,%v), want (%v,%v)", b.HasMin, b.HasMax, tc.hasMin, tc.hasMax)
			}
			if b.HasMin && !b.Min.Equal(tc.wantMin) {
				t.Fatalf("min = %v, want %v", b.Min, tc.wantMin)
			}
			if b.HasMax && !b.Max.Equal(tc.wantMax) {
				t.Fatalf("max = %v, want %v", b.Max, tc.wantMax)
			}
			if b.Unsatisfiable != tc.unsatisfiable {
				t.Fatalf("unsatisfiable = %v, want %v", b.Unsatisfiable, tc.unsatisfiable)
			}
		})
	}
}

func TestBoundsContains(t *testing.T) {
	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	b := DateBounds(models.DateValidation{AllowPastDates: false, AllowToday: true, AllowFutureDates: true}, today)
	if b.Contains(today.AddDate(0, 0, -1)) {
		t.Fatalf("yesterday should be outside min=today")
	}
	if !b.Contains(today) || !b.Contains(today.AddDate(0, 1, 0)) {
		t.Fatalf("today and future days should be inside")
	}

	empty := DateBounds(models.DateValidation{}, today)
	for _, d := range []time.Time{today.AddDate(0, 0, -1), today, today.AddDate(0, 0, 1)} {
		if empty.Contains(d) {
			t.Fatalf("unsatisfiable bounds should contain nothing, accepted %v", d)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	f := models.FormField{
		FieldKey: "amount", Label: "Amount", FieldType: models.FieldNumber,
		ConditionalRules: []models.ConditionalRule{{
			RuleID:    "r1",
			Condition: models.Condition{FieldKey: "kind", Operator: models.OpEquals, Value: "EXPENSE"},
			Outcome:   models.RuleOutcome{Required: true},
		}},
	}
	values := ValueContext{"kind": "EXPENSE"}
	if ResolveRequired(f, values, nil) != ResolveRequired(f, values, nil) {
		t.Fatalf("ResolveRequired is not idempotent")
	}
	if ResolveDateValidation(f, values, nil) != ResolveDateValidation(f, values, nil) {
		t.Fatalf("ResolveDateValidation is not idempotent")
	}
}
