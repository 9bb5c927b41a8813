package filter

import "strings"

// Wildcard is the only metacharacter of a like pattern.
const Wildcard = "*"

// Pattern is a like pattern split into literal pieces around wildcards.
type Pattern struct {
	parts []string
}

// NewPattern splits s on "*". Every other character is literal.
func NewPattern(s string) Pattern {
	return Pattern{parts: strings.Split(s, Wildcard)}
}

// Escape renders the pattern with each literal piece passed through escape
// and the wildcards left intact.
func (p Pattern) Escape(escape func(string) string) string {
	out := make([]string, len(p.parts))
	for i, part := range p.parts {
		out[i] = escape(part)
	}
	return strings.Join(out, Wildcard)
}

// Literals returns the literal pieces between wildcards.
func (p Pattern) Literals() []string {
	out := make([]string, len(p.parts))
	copy(out, p.parts)
	return out
}

// HasWildcard reports whether the pattern matches more than one literal.
func (p Pattern) HasWildcard() bool { return len(p.parts) > 1 }

func (p Pattern) String() string { return strings.Join(p.parts, Wildcard) }
