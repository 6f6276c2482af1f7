// Package rules evaluates designer-authored conditional requirements against
// in-flight form values. Everything here is a pure computation over the
// arguments: no clocks, no I/O, no package state, so callers can re-run it on
// every edit without coordination.
package rules

import (
	"reflect"
	"strconv"

	"github.com/flowdesk/flowdesk/internal/models"
)

// ValueContext holds the current form values keyed by field key. Repeating
// section rows are stored under the synthetic SectionKey as a list of row maps.
type ValueContext map[string]any

// RowContext is one repeating-section row. When a field lives inside a
// repeating section, its conditions resolve against the row first and fall
// back to the global context.
type RowContext map[string]any

// SectionKey returns the ValueContext key under which a repeating section's
// rows are stored.
func SectionKey(sectionID string) string {
	return "__section_" + sectionID
}

// EvaluateCondition resolves the condition's source field (row context wins
// over the global context when it contains the key) and applies the operator.
// Unknown operators evaluate to false.
func EvaluateCondition(c models.Condition, values ValueContext, row RowContext) bool {
	actual := lookup(c.FieldKey, values, row)
	switch c.Operator {
	case models.OpEquals:
		return valueEquals(actual, c.Value)
	case models.OpNotEquals:
		return !valueEquals(actual, c.Value)
	case models.OpIn:
		return listContains(c.Value, actual)
	case models.OpNotIn:
		if !isList(c.Value) {
			return false
		}
		return !listContains(c.Value, actual)
	case models.OpIsEmpty:
		return IsEmptyValue(actual)
	case models.OpIsNotEmpty:
		return !IsEmptyValue(actual)
	default:
		return false
	}
}

// EvaluateRule evaluates the rule's primary condition and any additional
// conditions against the same contexts, combined with the rule's logic.
// A missing logic with additional conditions present means AND.
func EvaluateRule(r models.ConditionalRule, values ValueContext, row RowContext) bool {
	primary := EvaluateCondition(r.Condition, values, row)
	if len(r.Conditions) == 0 {
		return primary
	}
	if r.Logic == models.LogicOr {
		if primary {
			return true
		}
		for _, c := range r.Conditions {
			if EvaluateCondition(c, values, row) {
				return true
			}
		}
		return false
	}
	if !primary {
		return false
	}
	for _, c := range r.Conditions {
		if !EvaluateCondition(c, values, row) {
			return false
		}
	}
	return true
}

// EvaluateGroup combines a free-standing condition list (a transition's
// routing guard) with AND or OR semantics. An empty group passes: a
// condition-less transition is the designer's default route.
func EvaluateGroup(conds []models.Condition, logic models.Logic, values ValueContext, row RowContext) bool {
	if len(conds) == 0 {
		return true
	}
	if logic == models.LogicOr {
		for _, c := range conds {
			if EvaluateCondition(c, values, row) {
				return true
			}
		}
		return false
	}
	for _, c := range conds {
		if !EvaluateCondition(c, values, row) {
			return false
		}
	}
	return true
}

// IsEmptyValue reports whether a form value counts as "not filled in":
// nil, the empty string, or an empty list.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		return rv.Len() == 0
	}
	return false
}

func lookup(key string, values ValueContext, row RowContext) any {
	if row != nil {
		if v, ok := row[key]; ok {
			return v
		}
	}
	if values == nil {
		return nil
	}
	return values[key]
}

// valueEquals compares a form value with an expected value. Numbers compare
// numerically across int/float representations since decoded JSON and typed Go
// callers disagree on the concrete type.
func valueEquals(actual, expected any) bool {
	if af, ok := toFloat(actual); ok {
		if ef, ok := toFloat(expected); ok {
			return af == ef
		}
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Slice
}

// listContains reports whether expected is a list holding actual. A non-list
// expected fails the check.
func listContains(expected, actual any) bool {
	switch list := expected.(type) {
	case []any:
		for _, e := range list {
			if valueEquals(actual, e) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range list {
			if valueEquals(actual, e) {
				return true
			}
		}
		return false
	}
	return false
}

// toNumber coerces a submitted value to a float64 for NUMBER field checks.
func toNumber(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
