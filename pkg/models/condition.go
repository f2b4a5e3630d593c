package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ConditionType is the value type a condition compares.
type ConditionType string

const (
	ConditionTypeString   ConditionType = "string"
	ConditionTypeNumber   ConditionType = "number"
	ConditionTypeDateTime ConditionType = "datetime"
	ConditionTypeBoolean  ConditionType = "boolean"
	ConditionTypeArray    ConditionType = "array"
	ConditionTypeObject   ConditionType = "object"
)

// CombineMode joins the results of a condition list.
type CombineMode string

const (
	CombineAnd CombineMode = "and"
	CombineOr  CombineMode = "or"
)

// DefaultConditionOperator is the operator a fresh condition starts with.
const DefaultConditionOperator = "is equal to"

// ConditionOperator describes one operator available for a condition type.
// The label doubles as the stored operator identifier, so these strings are
// part of the persisted contract.
type ConditionOperator struct {
	Label      string `json:"label"`
	NeedsValue bool   `json:"needs_value"`
}

var conditionOperators = map[ConditionType][]ConditionOperator{
	ConditionTypeString: {
		{Label: "exists", NeedsValue: false},
		{Label: "does not exist", NeedsValue: false},
		{Label: "is empty", NeedsValue: false},
		{Label: "is not empty", NeedsValue: false},
		{Label: "is equal to", NeedsValue: true},
		{Label: "is not equal to", NeedsValue: true},
		{Label: "contains", NeedsValue: true},
		{Label: "does not contain", NeedsValue: true},
		{Label: "starts with", NeedsValue: true},
		{Label: "does not start with", NeedsValue: true},
		{Label: "ends with", NeedsValue: true},
		{Label: "does not end with", NeedsValue: true},
		{Label: "matches regex", NeedsValue: true},
		{Label: "does not match regex", NeedsValue: true},
	},
	ConditionTypeNumber: {
		{Label: "exists", NeedsValue: false},
		{Label: "does not exist", NeedsValue: false},
		{Label: "is equal to", NeedsValue: true},
		{Label: "is not equal to", NeedsValue: true},
		{Label: "is greater than", NeedsValue: true},
		{Label: "is less than", NeedsValue: true},
		{Label: "is greater than or equal to", NeedsValue: true},
		{Label: "is less than or equal to", NeedsValue: true},
	},
	ConditionTypeDateTime: {
		{Label: "exists", NeedsValue: false},
		{Label: "does not exist", NeedsValue: false},
		{Label: "is equal to", NeedsValue: true},
		{Label: "is not equal to", NeedsValue: true},
		{Label: "is after", NeedsValue: true},
		{Label: "is before", NeedsValue: true},
		{Label: "is after or equal to", NeedsValue: true},
		{Label: "is before or equal to", NeedsValue: true},
	},
	ConditionTypeBoolean: {
		{Label: "exists", NeedsValue: false},
		{Label: "does not exist", NeedsValue: false},
		{Label: "is true", NeedsValue: false},
		{Label: "is false", NeedsValue: false},
	},
	ConditionTypeArray: {
		{Label: "exists", NeedsValue: false},
		{Label: "does not exist", NeedsValue: false},
		{Label: "is empty", NeedsValue: false},
		{Label: "is not empty", NeedsValue: false},
		{Label: "contains", NeedsValue: true},
		{Label: "does not contain", NeedsValue: true},
		{Label: "length equal to", NeedsValue: true},
		{Label: "length not equal to", NeedsValue: true},
		{Label: "length greater than", NeedsValue: true},
		{Label: "length less than", NeedsValue: true},
	},
	ConditionTypeObject: {
		{Label: "exists", NeedsValue: false},
		{Label: "does not exist", NeedsValue: false},
		{Label: "is empty", NeedsValue: false},
		{Label: "is not empty", NeedsValue: false},
	},
}

// ConditionTypes returns every condition type in display order.
func ConditionTypes() []ConditionType {
	return []ConditionType{
		ConditionTypeString,
		ConditionTypeNumber,
		ConditionTypeDateTime,
		ConditionTypeBoolean,
		ConditionTypeArray,
		ConditionTypeObject,
	}
}

// OperatorsFor returns the fixed operator set for a condition type. Unknown
// types get the string operators, matching the coercion default.
func OperatorsFor(conditionType ConditionType) []ConditionOperator {
	if operators, ok := conditionOperators[conditionType]; ok {
		return operators
	}

	return conditionOperators[ConditionTypeString]
}

// OperatorNeedsValue reports whether the operator requires a right operand.
// Operators not registered for the type return false, which renders safely.
func OperatorNeedsValue(conditionType ConditionType, operator string) bool {
	for _, op := range conditionOperators[conditionType] {
		if op.Label == operator {
			return op.NeedsValue
		}
	}

	return false
}

// IfCondition is one row of an IF node's condition list. Left and Right are
// operand expressions and may contain template placeholders.
type IfCondition struct {
	ID       string        `json:"id"`
	Type     ConditionType `json:"type"`
	Operator string        `json:"operator"`
	Left     string        `json:"left"`
	Right    string        `json:"right"`
}

// IfNodeConfig is the well-typed view of an IF node's config bag. The
// condition list is never empty.
type IfNodeConfig struct {
	Combine      CombineMode   `json:"combine"`
	Conditions   []IfCondition `json:"conditions"`
	IgnoreCase   bool          `json:"ignore_case"`
	ConvertTypes bool          `json:"convert_types"`
}

// DefaultIfCondition returns a fresh blank condition.
func DefaultIfCondition() IfCondition {
	return IfCondition{
		ID:       uuid.New().String(),
		Type:     ConditionTypeString,
		Operator: DefaultConditionOperator,
		Left:     "",
		Right:    "",
	}
}

// DefaultIfConfig returns the config a new IF node starts with.
func DefaultIfConfig() IfNodeConfig {
	return IfNodeConfig{
		Combine:    CombineAnd,
		Conditions: []IfCondition{DefaultIfCondition()},
	}
}

// CoerceIfConfig tolerantly parses a persisted config bag into a well-typed
// IfNodeConfig. It never fails: unknown combine modes become AND, a missing
// or empty condition list becomes a single blank condition, elements that are
// not objects are dropped, and operand values are stringified.
func CoerceIfConfig(raw map[string]any) IfNodeConfig {
	config := IfNodeConfig{
		Combine:      coerceCombine(raw["combine"]),
		IgnoreCase:   coerceBool(raw["ignore_case"]),
		ConvertTypes: coerceBool(raw["convert_types"]),
	}

	for _, element := range coerceSlice(raw["conditions"]) {
		entry, ok := element.(map[string]any)
		if !ok {
			continue
		}

		config.Conditions = append(config.Conditions, coerceCondition(entry))
	}

	if len(config.Conditions) == 0 {
		config.Conditions = []IfCondition{DefaultIfCondition()}
	}

	return config
}

// ReplaceCondition returns a copy of the config with the condition matching
// the given ID replaced. Unknown IDs leave the list unchanged.
func (c IfNodeConfig) ReplaceCondition(condition IfCondition) IfNodeConfig {
	conditions := make([]IfCondition, len(c.Conditions))

	for i, existing := range c.Conditions {
		if existing.ID == condition.ID {
			conditions[i] = condition
		} else {
			conditions[i] = existing
		}
	}

	c.Conditions = conditions

	return c
}

// RemoveCondition returns a copy of the config without the condition matching
// the given ID. Removing the last condition reinserts a fresh blank one; the
// list never collapses to empty.
func (c IfNodeConfig) RemoveCondition(id string) IfNodeConfig {
	conditions := make([]IfCondition, 0, len(c.Conditions))

	for _, existing := range c.Conditions {
		if existing.ID != id {
			conditions = append(conditions, existing)
		}
	}

	if len(conditions) == 0 {
		conditions = []IfCondition{DefaultIfCondition()}
	}

	c.Conditions = conditions

	return c
}

// ToConfig serializes the typed view back into a config bag for persistence.
func (c IfNodeConfig) ToConfig() map[string]any {
	conditions := make([]any, 0, len(c.Conditions))

	for _, condition := range c.Conditions {
		conditions = append(conditions, map[string]any{
			"id":       condition.ID,
			"type":     string(condition.Type),
			"operator": condition.Operator,
			"left":     condition.Left,
			"right":    condition.Right,
		})
	}

	return map[string]any{
		"combine":       string(c.Combine),
		"conditions":    conditions,
		"ignore_case":   c.IgnoreCase,
		"convert_types": c.ConvertTypes,
	}
}

func coerceCondition(entry map[string]any) IfCondition {
	condition := IfCondition{
		ID:       stringify(entry["id"]),
		Type:     coerceConditionType(entry["type"]),
		Operator: strings.TrimSpace(stringify(entry["operator"])),
		Left:     stringify(entry["left"]),
		Right:    stringify(entry["right"]),
	}

	if condition.ID == "" {
		condition.ID = uuid.New().String()
	}

	if condition.Operator == "" {
		condition.Operator = DefaultConditionOperator
	}

	return condition
}

func coerceCombine(value any) CombineMode {
	if raw, ok := value.(string); ok {
		if strings.EqualFold(strings.TrimSpace(raw), string(CombineOr)) {
			return CombineOr
		}
	}

	return CombineAnd
}

func coerceConditionType(value any) ConditionType {
	raw, ok := value.(string)
	if !ok {
		return ConditionTypeString
	}

	candidate := ConditionType(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := conditionOperators[candidate]; ok {
		return candidate
	}

	return ConditionTypeString
}

func coerceSlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []map[string]any:
		elements := make([]any, len(v))
		for i, element := range v {
			elements[i] = element
		}

		return elements
	default:
		return nil
	}
}

func coerceBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))

		return err == nil && parsed
	default:
		return false
	}
}

// stringify renders an operand value as a string: strings pass through,
// nil becomes empty, everything else uses the default Go formatting.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
