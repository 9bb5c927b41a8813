package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Clause is a single typed predicate: property, operator, value.
type Clause struct {
	property string
	op       Operator
	value    any
}

// ParseKey splits a filter key on its last whitespace run. When the trailing
// token is a known marker it selects the operator; otherwise the whole key
// is the property name and the operator is equality.
func ParseKey(key string) (string, Operator, error) {
	property, op := key, OpEq
	if i := strings.LastIndexFunc(key, unicode.IsSpace); i >= 0 {
		_, size := utf8.DecodeRuneInString(key[i:])
		if m, ok := markers[key[i+size:]]; ok {
			property = strings.TrimRightFunc(key[:i], unicode.IsSpace)
			op = m
		}
	}
	property = strings.TrimSpace(property)
	if property == "" {
		return "", "", fmt.Errorf("filter key %q has no property name", key)
	}
	return property, op, nil
}

// NewClause parses key and checks value against the operator.
func NewClause(key string, value any) (Clause, error) {
	property, op, err := ParseKey(key)
	if err != nil {
		return Clause{}, err
	}
	return newClause(property, op, normalize(value))
}

func newClause(property string, op Operator, value any) (Clause, error) {
	switch op {
	case OpLike:
		if _, ok := value.(string); !ok {
			return Clause{}, fmt.Errorf("%q: like needs a string pattern, got %s", property, typeName(value))
		}
	case OpGt, OpGe, OpLt, OpLe:
		if !isNumber(value) {
			return Clause{}, fmt.Errorf("%q: %s needs a number, got %s", property, op, typeName(value))
		}
	case OpContains:
		list, ok := value.([]any)
		if !ok {
			list = []any{value}
		}
		if len(list) == 0 {
			return Clause{}, fmt.Errorf("%q: contains needs at least one value", property)
		}
		for _, v := range list {
			if !isScalar(v) {
				return Clause{}, fmt.Errorf("%q: contains values must be scalars, got %s", property, typeName(v))
			}
		}
		value = list
	default:
		if !isScalar(value) {
			return Clause{}, fmt.Errorf("%q: %s needs a scalar, got %s", property, op, typeName(value))
		}
	}
	return Clause{property: property, op: op, value: value}, nil
}

// Property returns the filtered property name.
func (c Clause) Property() string { return c.property }

// Operator returns the comparison operator.
func (c Clause) Operator() Operator { return c.op }

// Value returns the comparison value. For contains it is a []any.
func (c Clause) Value() any { return c.value }

// Values returns the candidate values of a contains clause, or the single
// value wrapped in a slice for every other operator.
func (c Clause) Values() []any {
	if list, ok := c.value.([]any); ok {
		return list
	}
	return []any{c.value}
}

// Pattern returns the wildcard pattern of a like clause.
func (c Clause) Pattern() Pattern {
	s, _ := c.value.(string)
	return NewPattern(s)
}

// Key renders the clause back into "<property> <marker>" form.
func (c Clause) Key() string { return c.property + " " + c.op.Symbol() }

// String renders the clause as "property marker value".
func (c Clause) String() string {
	return c.property + " " + c.op.Symbol() + " " + formatValue(c.value)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case []any:
		parts := make([]string, len(t))
		for i, x := range t {
			parts[i] = formatValue(x)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int64, float64:
		return true
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
