package filter

// Operator is the comparison applied by a predicate clause.
type Operator string

// Filter operators.
const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpLike     Operator = "like"
	OpGt       Operator = "gt"
	OpGe       Operator = "ge"
	OpLt       Operator = "lt"
	OpLe       Operator = "le"
	OpContains Operator = "contains"
)

// markers maps the key suffix to its operator. A key without a recognized
// suffix compares for equality.
var markers = map[string]Operator{
	"==": OpEq,
	"!=": OpNe,
	"~":  OpLike,
	">":  OpGt,
	">=": OpGe,
	"<":  OpLt,
	"<=": OpLe,
	"@":  OpContains,
}

var symbols = map[Operator]string{
	OpEq:       "==",
	OpNe:       "!=",
	OpLike:     "~",
	OpGt:       ">",
	OpGe:       ">=",
	OpLt:       "<",
	OpLe:       "<=",
	OpContains: "@",
}

// Symbol returns the key marker for the operator.
func (o Operator) Symbol() string { return symbols[o] }

// IsValid reports whether o is a known operator.
func (o Operator) IsValid() bool {
	_, ok := symbols[o]
	return ok
}

// IsRange reports whether o is an ordering comparison.
func (o Operator) IsRange() bool {
	return o == OpGt || o == OpGe || o == OpLt || o == OpLe
}
