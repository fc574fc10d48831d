package workflow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ConditionEvaluator evaluates workflow conditions against a record snapshot.
// Evaluation is pure: a malformed condition degrades to false, never an error,
// so a single bad condition cannot abort the whole workflow evaluation.
type ConditionEvaluator struct{}

// NewConditionEvaluator creates a new condition evaluator
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{}
}

// EvaluateAll resolves the full condition list: conditions are partitioned by
// condition group, folded within each group using each condition's own
// logical operator, and the group results are ORed together. Groups are
// evaluated in ascending group number so results are deterministic.
// An empty condition list is vacuously true.
func (e *ConditionEvaluator) EvaluateAll(conditions []Condition, record map[string]interface{}) bool {
	if len(conditions) == 0 {
		return true
	}

	groups := make(map[int][]Condition)
	for _, condition := range conditions {
		groups[condition.ConditionGroup] = append(groups[condition.ConditionGroup], condition)
	}

	groupNumbers := make([]int, 0, len(groups))
	for number := range groups {
		groupNumbers = append(groupNumbers, number)
	}
	sort.Ints(groupNumbers)

	for _, number := range groupNumbers {
		if e.evaluateGroup(groups[number], record) {
			return true
		}
	}
	return false
}

// evaluateGroup left-folds the group's conditions in position order. The
// first condition seeds the result; each subsequent condition combines with
// the running result using its own logical operator (OR means boolean-or,
// anything else means boolean-and).
func (e *ConditionEvaluator) evaluateGroup(conditions []Condition, record map[string]interface{}) bool {
	if len(conditions) == 0 {
		return true
	}

	sort.SliceStable(conditions, func(i, j int) bool {
		return conditions[i].Position < conditions[j].Position
	})

	result := e.Evaluate(conditions[0], record)
	for _, condition := range conditions[1:] {
		current := e.Evaluate(condition, record)
		if strings.EqualFold(condition.LogicalOperator, "OR") {
			result = result || current
		} else {
			result = result && current
		}
	}
	return result
}

// Evaluate resolves a single condition against the record
func (e *ConditionEvaluator) Evaluate(condition Condition, record map[string]interface{}) bool {
	fieldValue := record[condition.Field]

	switch condition.Operator {
	case OpEquals:
		return equalsFold(fieldValue, condition.Value)

	case OpNotEquals:
		return !equalsFold(fieldValue, condition.Value)

	case OpContains:
		return containsFold(fieldValue, condition.Value)

	case OpNotContains:
		return !containsFold(fieldValue, condition.Value)

	case OpGreaterThan:
		fieldNum, condNum, ok := bothNumeric(fieldValue, condition.Value)
		return ok && fieldNum > condNum

	case OpLessThan:
		fieldNum, condNum, ok := bothNumeric(fieldValue, condition.Value)
		return ok && fieldNum < condNum

	case OpIsNull:
		return isNullValue(fieldValue)

	case OpIsNotNull:
		return !isNullValue(fieldValue)

	case OpIn:
		return inSetFold(fieldValue, condition.Values)

	case OpNotIn:
		return !inSetFold(fieldValue, condition.Values)

	default:
		log.Warn().
			Str("operator", string(condition.Operator)).
			Str("field", condition.Field).
			Msg("unsupported condition operator, evaluating to false")
		return false
	}
}

// equalsFold compares the stringified values case-insensitively
func equalsFold(fieldValue, conditionValue interface{}) bool {
	return strings.EqualFold(stringify(fieldValue), stringify(conditionValue))
}

// containsFold checks case-insensitive substring containment
func containsFold(fieldValue, conditionValue interface{}) bool {
	field := strings.ToLower(stringify(fieldValue))
	substr := strings.ToLower(stringify(conditionValue))
	return strings.Contains(field, substr)
}

// inSetFold checks case-insensitive membership in the value set
func inSetFold(fieldValue interface{}, values []interface{}) bool {
	for _, item := range values {
		if equalsFold(fieldValue, item) {
			return true
		}
	}
	return false
}

// isNullValue treats nil, missing fields and empty strings as null
func isNullValue(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	return false
}

func bothNumeric(fieldValue, conditionValue interface{}) (float64, float64, bool) {
	fieldNum, err := toFloat64(fieldValue)
	if err != nil {
		return 0, 0, false
	}
	condNum, err := toFloat64(conditionValue)
	if err != nil {
		return 0, 0, false
	}
	return fieldNum, condNum, true
}

// toFloat64 coerces numeric types and numeric strings to float64
func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

// stringify renders any value the way it would appear in a form field
func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
