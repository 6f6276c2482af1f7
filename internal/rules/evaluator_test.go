package rules

import (
	"testing"

	"github.com/flowdesk/flowdesk/internal/models"
)

func TestEvaluateConditionOperators(t *testing.T) {
	cases := []struct {
		name     string
		operator models.Operator
		expected any
		actual   any
		want     bool
	}{
		{"equals match", models.OpEquals, "EXPENSE", "EXPENSE", true},
		{"equals mismatch", models.OpEquals, "EXPENSE", "LEAVE", false},
		{"equals numeric cross-type", models.OpEquals, 5, float64(5), true},
		{"equals missing value", models.OpEquals, "EXPENSE", nil, false},
		{"not_equals mismatch", models.OpNotEquals, "EXPENSE", "LEAVE", true},
		{"not_equals match", models.OpNotEquals, "EXPENSE", "EXPENSE", false},
		{"in member", models.OpIn, []any{"A", "B"}, "B", true},
		{"in non-member", models.OpIn, []any{"A", "B"}, "C", false},
		{"in non-list expected", models.OpIn, "A", "A", false},
		{"in string list", models.OpIn, []string{"A", "B"}, "A", true},
		{"not_in non-member", models.OpNotIn, []any{"A", "B"}, "C", true},
		{"not_in member", models.OpNotIn, []any{"A", "B"}, "A", false},
		{"not_in non-list expected", models.OpNotIn, "A", "B", false},
		{"is_empty nil", models.OpIsEmpty, nil, nil, true},
		{"is_empty blank string", models.OpIsEmpty, nil, "", true},
		{"is_empty empty list", models.OpIsEmpty, nil, []any{}, true},
		{"is_empty filled", models.OpIsEmpty, nil, "x", false},
		{"is_not_empty filled", models.OpIsNotEmpty, nil, "x", true},
		{"is_not_empty blank", models.OpIsNotEmpty, nil, "", false},
		{"unknown operator fails closed", models.Operator("matches"), "x", "x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := models.Condition{FieldKey: "f", Operator: tc.operator, Value: tc.expected}
			values := ValueContext{}
			if tc.actual != nil {
				values["f"] = tc.actual
			}
			if got := EvaluateCondition(c, values, nil); got != tc.want {
				t.Fatalf("EvaluateCondition(%s) = %v, want %v", tc.operator, got, tc.want)
			}
		})
	}
}

func TestEvaluateConditionRowPrecedence(t *testing.T) {
	c := models.Condition{FieldKey: "amount", Operator: models.OpEquals, Value: float64(100)}
	values := ValueContext{"amount": float64(999)}
	row := RowContext{"amount": float64(100)}

	if !EvaluateCondition(c, values, row) {
		t.Fatalf("row value should win over global value")
	}
	if EvaluateCondition(c, values, nil) {
		t.Fatalf("without a row the global value applies")
	}
	// Row present but key absent falls back to the global context.
	if EvaluateCondition(c, values, RowContext{"other": "x"}) {
		t.Fatalf("row without the key should fall back to global")
	}
	if !EvaluateCondition(models.Condition{FieldKey: "amount", Operator: models.OpEquals, Value: float64(999)}, values, RowContext{"other": "x"}) {
		t.Fatalf("global fallback should resolve amount=999")
	}
}

func TestEvaluateRuleCompoundLogic(t *testing.T) {
	values := ValueContext{"a": "1", "b": "2"}
	trueCond := models.Condition{FieldKey: "a", Operator: models.OpEquals, Value: "1"}
	falseCond := models.Condition{FieldKey: "b", Operator: models.OpEquals, Value: "X"}

	and := models.ConditionalRule{Condition: trueCond, Logic: models.LogicAnd, Conditions: []models.Condition{falseCond}}
	if EvaluateRule(and, values, nil) {
		t.Fatalf("AND over [true,false] = true, want false")
	}
	or := models.ConditionalRule{Condition: trueCond, Logic: models.LogicOr, Conditions: []models.Condition{falseCond}}
	if !EvaluateRule(or, values, nil) {
		t.Fatalf("OR over [true,false] = false, want true")
	}
	// Unset logic with extra conditions means AND.
	implicit := models.ConditionalRule{Condition: trueCond, Conditions: []models.Condition{falseCond}}
	if EvaluateRule(implicit, values, nil) {
		t.Fatalf("implicit AND over [true,false] = true, want false")
	}
}

func TestEvaluateRuleSingleConditionIgnoresLogic(t *testing.T) {
	values := ValueContext{"a": "1"}
	cond := models.Condition{FieldKey: "a", Operator: models.OpEquals, Value: "1"}
	for _, logic := range []models.Logic{"", models.LogicAnd, models.LogicOr, "XOR"} {
		r := models.ConditionalRule{Condition: cond, Logic: logic}
		if !EvaluateRule(r, values, nil) {
			t.Fatalf("logic=%q changed a single-condition result", logic)
		}
	}
}

func TestEvaluateConditionIdempotent(t *testing.T) {
	c := models.Condition{FieldKey: "f", Operator: models.OpIn, Value: []any{"A", "B"}}
	values := ValueContext{"f": "A"}
	first := EvaluateCondition(c, values, nil)
	second := EvaluateCondition(c, values, nil)
	if first != second {
		t.Fatalf("repeated evaluation diverged: %v then %v", first, second)
	}
	if len(values) != 1 {
		t.Fatalf("evaluation mutated the value context: %v", values)
	}
}
