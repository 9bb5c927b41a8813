package filter

import (
	"strings"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
)

// MaxClausesPerGroup is the maximum number of clauses per filter group.
const MaxClausesPerGroup = 32

// Schema resolves the indexed type of a property. Properties it does not
// know are not filterable.
type Schema interface {
	PropertyType(property string) (field.Type, bool)
}

// Expression is the compiled filter tree: (ALL AND ...) AND (ANY OR ...).
// An empty group contributes nothing; an empty Expression matches everything.
type Expression struct {
	all []Clause
	any []Clause
}

// Compile turns the having_all and having_any sources into an Expression.
// schema may be nil.
func Compile(all, anyOf *Source, schema Schema) (Expression, error) {
	allClauses, err := compileGroup("having_all", all)
	if err != nil {
		return Expression{}, err
	}
	anyClauses, err := compileGroup("having_any", anyOf)
	if err != nil {
		return Expression{}, err
	}
	e := Expression{all: allClauses, any: anyClauses}
	if err := e.Validate(schema); err != nil {
		return Expression{}, err
	}
	return e, nil
}

func compileGroup(field string, src *Source) ([]Clause, error) {
	if src.Len() == 0 {
		return nil, nil
	}
	if src.Len() > MaxClausesPerGroup {
		return nil, domain.NewValidationError(field, "too many clauses (max %d)", MaxClausesPerGroup)
	}
	clauses := make([]Clause, 0, src.Len())
	for _, e := range src.Entries() {
		c, err := NewClause(e.Key, e.Value)
		if err != nil {
			return nil, domain.NewValidationError(field, "%s", err.Error())
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// Validate checks the clauses against schema. A nil schema accepts everything.
func (e Expression) Validate(schema Schema) error {
	if schema == nil {
		return nil
	}
	check := func(group string, clauses []Clause) error {
		for _, c := range clauses {
			ft, ok := schema.PropertyType(c.property)
			if !ok {
				return domain.NewValidationError(group, "%q is not an indexed property", c.property)
			}
			if reason := c.mismatch(ft); reason != "" {
				return domain.NewValidationError(group, "%q: %s", c.property, reason)
			}
		}
		return nil
	}
	if err := check("having_all", e.all); err != nil {
		return err
	}
	return check("having_any", e.any)
}

// mismatch describes why c cannot apply to a property of type ft, or
// returns "" when it can.
func (c Clause) mismatch(ft field.Type) string {
	switch c.op {
	case OpContains:
		if ft != field.TagList {
			return "not a list property, contains is not applicable"
		}
	case OpGt, OpGe, OpLt, OpLe:
		if ft != field.Numeric {
			return string(c.op) + " needs a numeric property, got " + string(ft)
		}
	case OpLike:
		if ft != field.Tag && ft != field.TagList && ft != field.Text {
			return "like needs a string property, got " + string(ft)
		}
	default:
		switch {
		case ft == field.Numeric && !isNumber(c.value):
			return "numeric property compared to " + typeName(c.value)
		case ft == field.Bool:
			if _, ok := c.value.(bool); !ok {
				return "bool property compared to " + typeName(c.value)
			}
		}
	}
	return ""
}

// All returns the conjunctive clauses.
func (e Expression) All() []Clause { return e.all }

// Any returns the disjunctive clauses.
func (e Expression) Any() []Clause { return e.any }

// IsEmpty reports whether the expression matches everything.
func (e Expression) IsEmpty() bool { return len(e.all) == 0 && len(e.any) == 0 }

// Sources renders the expression back into filter sources. Compiling them
// again yields an equal Expression.
func (e Expression) Sources() (all, anyOf *Source) {
	return toSource(e.all), toSource(e.any)
}

func toSource(clauses []Clause) *Source {
	if len(clauses) == 0 {
		return nil
	}
	entries := make([]Entry, len(clauses))
	for i, c := range clauses {
		entries[i] = Entry{Key: c.Key(), Value: c.value}
	}
	return NewSource(entries...)
}

// String renders the tree, e.g. `x != 5 AND (y == 1 OR z == 2)`.
func (e Expression) String() string {
	parts := make([]string, 0, len(e.all)+1)
	for _, c := range e.all {
		parts = append(parts, c.String())
	}
	if len(e.any) > 0 {
		alts := make([]string, len(e.any))
		for i, c := range e.any {
			alts[i] = c.String()
		}
		group := strings.Join(alts, " OR ")
		if len(e.any) > 1 {
			group = "(" + group + ")"
		}
		parts = append(parts, group)
	}
	return strings.Join(parts, " AND ")
}
