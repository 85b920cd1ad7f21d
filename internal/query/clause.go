// Package query extracts structural clauses from translated filter
// expressions. The supported grammar subset is:
//
//	key: value
//	key: "value"
//
// where key is a bare identifier ([A-Za-z0-9_.]+) and value is either
// a quoted string or a run of non-whitespace characters (OSDU kinds
// like osdu:wks:Well:1.0.0 contain colons and must survive intact).
package query

import "regexp"

// Result classifies a clause extraction outcome.
type Result int

const (
	// NoMatch means the expression contains no recognizable clause.
	NoMatch Result = iota
	// Match means exactly one clause was found.
	Match
	// Ambiguous means more than one clause matched; Clause holds the
	// first one, but callers should treat the extraction as a hint
	// rather than a fact.
	Ambiguous
)

func (r Result) String() string {
	switch r {
	case Match:
		return "match"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no match"
	}
}

// Clause is a single key-scoped filter term.
type Clause struct {
	Key   string
	Value string
}

var clausePattern = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_.]*)\s*:\s*("([^"]*)"|[^\s"]+)`)

// ExtractClause scans expr for structural clauses. Quotes around the
// value are stripped. With multiple clauses present the first one is
// returned together with Ambiguous.
func ExtractClause(expr string) (Clause, Result) {
	matches := clausePattern.FindAllStringSubmatch(expr, 2)
	if len(matches) == 0 {
		return Clause{}, NoMatch
	}

	clause := toClause(matches[0])
	if len(matches) > 1 {
		return clause, Ambiguous
	}
	return clause, Match
}

func toClause(m []string) Clause {
	value := m[2]
	if m[3] != "" || (len(m[2]) >= 2 && m[2][0] == '"') {
		value = m[3]
	}
	return Clause{Key: m[1], Value: value}
}
