package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Attribute names a skip condition may reference. The attribute set is
// closed: predicates compare order fields, they never execute code.
const (
	AttrTotalAmount   = "total_amount"   // numeric
	AttrPartnerName   = "partner_name"   // string
	AttrPriorityLevel = "priority_level" // enum: urgent | high | normal | low
)

// Comparison operators supported by skip condition leaves.
const (
	OpEq  = "eq"
	OpNe  = "ne"
	OpGt  = "gt"
	OpGte = "gte"
	OpLt  = "lt"
	OpLte = "lte"
	OpIn  = "in"
)

// OrderAttributes is the read-only view of an order that skip conditions
// are evaluated against. Supplied by the order collaborator; the workflow
// core never mutates order business fields.
type OrderAttributes struct {
	TotalAmount   float64  `json:"total_amount"`
	PartnerName   string   `json:"partner_name"`
	PriorityLevel Priority `json:"priority_level"`
}

// get returns the named attribute value, or an error for an unknown name.
func (a OrderAttributes) get(name string) (any, error) {
	switch name {
	case AttrTotalAmount:
		return a.TotalAmount, nil
	case AttrPartnerName:
		return a.PartnerName, nil
	case AttrPriorityLevel:
		return string(a.PriorityLevel), nil
	default:
		return nil, fmt.Errorf("unknown order attribute %q", name)
	}
}

// SkipCondition is a recursive boolean predicate over order attributes.
// Exactly one of the following must be present:
//   - AnyOf: OR across child conditions
//   - AllOf: AND across child conditions
//   - Leaf comparison: Attribute + Operator + Value
//
// Example JSON:
//
//	{
//	  "anyOf": [
//	    {"attribute": "total_amount", "operator": "lt", "value": 1000},
//	    {
//	      "allOf": [
//	        {"attribute": "priority_level", "operator": "eq", "value": "urgent"},
//	        {"attribute": "partner_name", "operator": "in", "value": ["acme", "globex"]}
//	      ]
//	    }
//	  ]
//	}
//
// This means: total_amount < 1000 OR (priority is urgent AND the partner is
// acme or globex).
type SkipCondition struct {
	AnyOf []SkipCondition `json:"anyOf,omitempty"`
	AllOf []SkipCondition `json:"allOf,omitempty"`

	Attribute string `json:"attribute,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Value     any    `json:"value,omitempty"`
}

// Validate checks that the condition tree is well-formed. A malformed tree
// is a configuration error; evaluation of an unvalidated tree fails closed.
func (sc *SkipCondition) Validate() error {
	return sc.validate("condition")
}

func (sc *SkipCondition) validate(path string) error {
	hasAny := len(sc.AnyOf) > 0
	hasAll := len(sc.AllOf) > 0
	hasLeaf := sc.Attribute != "" || sc.Operator != "" || sc.Value != nil

	definedCount := 0
	if hasAny {
		definedCount++
	}
	if hasAll {
		definedCount++
	}
	if hasLeaf {
		definedCount++
	}

	if definedCount == 0 {
		return fmt.Errorf("%s must define one of anyOf, allOf, or a comparison", path)
	}
	if definedCount > 1 {
		return fmt.Errorf("%s must define exactly one of anyOf, allOf, or a comparison", path)
	}

	if hasAny {
		for i, child := range sc.AnyOf {
			if err := child.validate(fmt.Sprintf("%s.anyOf[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	if hasAll {
		for i, child := range sc.AllOf {
			if err := child.validate(fmt.Sprintf("%s.allOf[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	return sc.validateLeaf(path)
}

func (sc *SkipCondition) validateLeaf(path string) error {
	if strings.TrimSpace(sc.Attribute) == "" {
		return fmt.Errorf("%s has empty attribute", path)
	}
	switch sc.Attribute {
	case AttrTotalAmount, AttrPartnerName, AttrPriorityLevel:
	default:
		return fmt.Errorf("%s references unknown attribute %q", path, sc.Attribute)
	}
	if sc.Value == nil {
		return fmt.Errorf("%s has no comparison value", path)
	}

	switch sc.Operator {
	case OpEq, OpNe:
		// Any scalar value is comparable for equality
	case OpGt, OpGte, OpLt, OpLte:
		if sc.Attribute != AttrTotalAmount {
			return fmt.Errorf("%s uses ordering operator %q on non-numeric attribute %q", path, sc.Operator, sc.Attribute)
		}
		if _, ok := toFloat(sc.Value); !ok {
			return fmt.Errorf("%s uses ordering operator %q with non-numeric value", path, sc.Operator)
		}
	case OpIn:
		if _, ok := sc.Value.([]any); !ok {
			return fmt.Errorf("%s uses operator 'in' with a non-array value", path)
		}
	default:
		return fmt.Errorf("%s has unknown operator %q", path, sc.Operator)
	}
	return nil
}

// Evaluate applies the condition tree to the given order attributes. Any
// structural problem (unknown attribute, type mismatch, unknown operator)
// is returned as an error so that callers can fail closed instead of
// silently skipping.
func (sc *SkipCondition) Evaluate(attrs OrderAttributes) (bool, error) {
	if err := sc.Validate(); err != nil {
		return false, err
	}
	return sc.evaluate(attrs)
}

func (sc *SkipCondition) evaluate(attrs OrderAttributes) (bool, error) {
	if len(sc.AnyOf) > 0 {
		for _, child := range sc.AnyOf {
			ok, err := child.evaluate(attrs)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	if len(sc.AllOf) > 0 {
		for _, child := range sc.AllOf {
			ok, err := child.evaluate(attrs)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}

	return sc.evaluateLeaf(attrs)
}

func (sc *SkipCondition) evaluateLeaf(attrs OrderAttributes) (bool, error) {
	actual, err := attrs.get(sc.Attribute)
	if err != nil {
		return false, err
	}

	switch sc.Operator {
	case OpEq:
		return scalarEqual(actual, sc.Value), nil
	case OpNe:
		return !scalarEqual(actual, sc.Value), nil
	case OpGt, OpGte, OpLt, OpLte:
		left, ok := toFloat(actual)
		if !ok {
			return false, fmt.Errorf("attribute %q is not numeric", sc.Attribute)
		}
		right, ok := toFloat(sc.Value)
		if !ok {
			return false, fmt.Errorf("comparison value for %q is not numeric", sc.Attribute)
		}
		switch sc.Operator {
		case OpGt:
			return left > right, nil
		case OpGte:
			return left >= right, nil
		case OpLt:
			return left < right, nil
		default:
			return left <= right, nil
		}
	case OpIn:
		values, ok := sc.Value.([]any)
		if !ok {
			return false, fmt.Errorf("operator 'in' requires an array value")
		}
		for _, v := range values {
			if scalarEqual(actual, v) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown operator %q", sc.Operator)
	}
}

// scalarEqual compares two scalar values, treating all numeric types as
// float64 (the type JSON decoding produces).
func scalarEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MarshalJSON implements json.Marshaler for SkipCondition.
func (sc SkipCondition) MarshalJSON() ([]byte, error) {
	type Alias SkipCondition
	return json.Marshal(Alias(sc))
}

// UnmarshalJSON implements json.Unmarshaler for SkipCondition.
func (sc *SkipCondition) UnmarshalJSON(data []byte) error {
	type Alias SkipCondition
	var alias Alias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*sc = SkipCondition(alias)
	return nil
}
