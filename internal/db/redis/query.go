package redis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/chunkdex/internal/db"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/filter"
)

// buildKNNQuery renders the FT.SEARCH query string: the pre-filter followed
// by the KNN clause whose distance is returned as db.DistanceField.
func buildKNNQuery(q *db.KNNQuery) (string, error) {
	pre, err := buildFilter(q)
	if err != nil {
		return "", err
	}
	if pre == "" {
		pre = "*"
	} else {
		pre = "(" + pre + ")"
	}
	return fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", pre, q.K, q.VectorField, db.DistanceField), nil
}

// buildFilter translates the filter tree and the level selection into an
// FT.SEARCH pre-filter. Juxtaposition is AND, "|" is OR, "-" negates.
func buildFilter(q *db.KNNQuery) (string, error) {
	var parts []string

	for _, c := range q.Filters.All() {
		s, err := buildClause(c, q.FieldTypes)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}

	if anyOf := q.Filters.Any(); len(anyOf) > 0 {
		alts := make([]string, 0, len(anyOf))
		for _, c := range anyOf {
			s, err := buildClause(c, q.FieldTypes)
			if err != nil {
				return "", err
			}
			alts = append(alts, s)
		}
		if len(alts) == 1 {
			parts = append(parts, alts[0])
		} else {
			parts = append(parts, "("+strings.Join(alts, " | ")+")")
		}
	}

	if n, ok := q.Levels.Level(); ok {
		lvl := strconv.Itoa(n)
		parts = append(parts, fmt.Sprintf("@%s:[%s %s]", q.LevelField, lvl, lvl))
	}

	return strings.Join(parts, " "), nil
}

func buildClause(c filter.Clause, types map[string]db.IndexFieldType) (string, error) {
	prop := c.Property()
	ft, ok := types[prop]
	if !ok {
		ft = inferType(c.Value())
	}

	switch c.Operator() {
	case filter.OpEq:
		return buildEquals(prop, ft, c.Value())
	case filter.OpNe:
		s, err := buildEquals(prop, ft, c.Value())
		if err != nil {
			return "", err
		}
		return "-" + s, nil
	case filter.OpGt, filter.OpGe, filter.OpLt, filter.OpLe:
		if ft != db.IndexFieldNumeric {
			return "", fmt.Errorf("property %q: %s needs a numeric field", prop, c.Operator())
		}
		v, _ := toFloat(c.Value())
		return buildRange(prop, c.Operator(), v), nil
	case filter.OpContains:
		if ft != db.IndexFieldTag {
			return "", fmt.Errorf("property %q: contains needs a tag field", prop)
		}
		vals := c.Values()
		escaped := make([]string, len(vals))
		for i, v := range vals {
			escaped[i] = escapeTag(formatScalar(v))
		}
		return fmt.Sprintf("@%s:{%s}", prop, strings.Join(escaped, " | ")), nil
	case filter.OpLike:
		pattern := c.Pattern().Escape(escapeWildcardLiteral)
		if ft == db.IndexFieldTag {
			return fmt.Sprintf("@%s:{w'%s'}", prop, pattern), nil
		}
		if ft == db.IndexFieldText {
			return fmt.Sprintf("@%s:w'%s'", prop, pattern), nil
		}
		return "", fmt.Errorf("property %q: like needs a tag or text field", prop)
	default:
		return "", fmt.Errorf("property %q: unsupported operator %q", prop, c.Operator())
	}
}

func buildEquals(prop string, ft db.IndexFieldType, v any) (string, error) {
	switch ft {
	case db.IndexFieldNumeric:
		f, ok := toFloat(v)
		if !ok {
			return "", fmt.Errorf("property %q: numeric field compared to %T", prop, v)
		}
		n := formatFloat(f)
		return fmt.Sprintf("@%s:[%s %s]", prop, n, n), nil
	case db.IndexFieldText:
		return fmt.Sprintf("@%s:\"%s\"", prop, escapeQuery(formatScalar(v))), nil
	default:
		return fmt.Sprintf("@%s:{%s}", prop, escapeTag(formatScalar(v))), nil
	}
}

func buildRange(prop string, op filter.Operator, v float64) string {
	n := formatFloat(v)
	lo, hi := "-inf", "+inf"
	switch op {
	case filter.OpGt:
		lo = "(" + n
	case filter.OpGe:
		lo = n
	case filter.OpLt:
		hi = "(" + n
	case filter.OpLe:
		hi = n
	}
	return fmt.Sprintf("@%s:[%s %s]", prop, lo, hi)
}

func inferType(v any) db.IndexFieldType {
	if _, ok := toFloat(v); ok {
		return db.IndexFieldNumeric
	}
	return db.IndexFieldTag
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func escapeTag(s string) string {
	return tagEscaper.Replace(s)
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

// escapeWildcardLiteral escapes a literal piece of a w'...' pattern.
func escapeWildcardLiteral(s string) string {
	return wildcardEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	"?", "\\?",
	" ", "\\ ",
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
)

var wildcardEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`?`, `\?`,
)
