// Package query translates Google-style boolean queries into the daemon's
// extended query syntax.
//
// Supported input: bare words, "quoted phrases", AND/OR/NOT (any case),
// field:value scoping and one level of (parenthesised) grouping.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/unisearch/internal/domain"
)

var (
	// A token is a quoted or parenthesised span (with any prefix glued to it) or a bare word.
	tokenRe      = regexp.MustCompile(`[^"()\s]*["(][^")]*[")]|[^"()\s]+`)
	groupRe      = regexp.MustCompile(`^(.*?)\((.*)\)(.*?)$`)
	quoteSpaceRe = regexp.MustCompile(`^"\s+|\s+"$`)
	fieldRe      = regexp.MustCompile(`^(.*?):(.*)$`)
	spacesRe     = regexp.MustCompile(` {2,}`)
	apostropheRe = regexp.MustCompile(`(\w)'(\w)`)
)

// Daemon renderings of the boolean operators.
const (
	opAnd = ""
	opOr  = "|"
	opNot = "-"
)

func operator(tok string) (string, bool) {
	switch strings.ToUpper(tok) {
	case "AND":
		return opAnd, true
	case "OR":
		return opOr, true
	case "NOT":
		return opNot, true
	}
	return "", false
}

type clause struct {
	op      string
	content string
}

// Parse renders raw in the daemon's query syntax. A blank query becomes
// domain.EmptyQuery, which matches every indexed record.
func Parse(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.EmptyQuery, nil
	}
	return parse(raw)
}

// MustParse is Parse for tests and static queries.
func MustParse(raw string) string {
	q, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return q
}

func parse(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	clauses, err := tokenStream(raw)
	if err != nil {
		return "", err
	}
	out := render(group(clauses))
	return strings.TrimSpace(spacesRe.ReplaceAllString(strings.Join(out, " "), " ")), nil
}

// tokenStream pairs every content token with the operator preceding it.
func tokenStream(raw string) ([]clause, error) {
	tokens := tokenRe.FindAllString(raw, -1)

	stream := make([]string, 0, len(tokens)*2)
	hasOp := false
	for i, tok := range tokens {
		if m := groupRe.FindStringSubmatch(tok); m != nil {
			inner, err := parse(m[2])
			if err != nil {
				return nil, err
			}
			tok = m[1] + "(" + inner + ")" + m[3]
		}

		op, isOp := operator(tok)
		switch {
		case !hasOp && isOp && i != len(tokens)-1:
			stream = append(stream, op)
			hasOp = true
		case !hasOp:
			// a trailing operator is plain content
			stream = append(stream, opAnd, tok)
		case isOp:
			// two operators in a row: the second one is dropped
		default:
			stream = append(stream, tok)
			hasOp = false
		}
	}

	if len(stream)%2 != 0 {
		return nil, fmt.Errorf("%w: %q is not a valid token stream", domain.ErrParse, raw)
	}

	clauses := make([]clause, 0, len(stream)/2)
	for i := 0; i < len(stream); i += 2 {
		clauses = append(clauses, clause{op: stream[i], content: stream[i+1]})
	}
	return clauses, nil
}

type fieldGroup struct {
	field   string
	clauses []clause
}

// group buckets clauses by field scope. Unscoped clauses come first, then
// fields in name order; clause order within a bucket is preserved.
func group(clauses []clause) []fieldGroup {
	byField := make(map[string]*fieldGroup)
	var order []string
	for _, c := range clauses {
		content := quoteSpaceRe.ReplaceAllString(c.content, `"`)
		field := ""
		if m := fieldRe.FindStringSubmatch(content); m != nil && m[1] != "" {
			field, content = m[1], m[2]
		}
		g, ok := byField[field]
		if !ok {
			g = &fieldGroup{field: field}
			byField[field] = g
			order = append(order, field)
		}
		g.clauses = append(g.clauses, clause{op: c.op, content: content})
	}

	sort.Strings(order)
	out := make([]fieldGroup, len(order))
	for i, f := range order {
		out[i] = *byField[f]
	}
	return out
}

func render(groups []fieldGroup) []string {
	var out []string
	for _, g := range groups {
		scoped := g.field != ""
		wrap := scoped && len(g.clauses) > 1

		// the first operator binds outside the field scope
		out = append(out, g.clauses[0].op)
		if scoped {
			out = append(out, "@"+g.field)
		}
		if wrap {
			out = append(out, "(")
		}
		for i, c := range g.clauses {
			switch {
			case i == 0:
			case !scoped && c.op == opNot:
				out = append(out, opNot+c.content)
				continue
			default:
				out = append(out, c.op)
			}
			out = append(out, c.content)
		}
		if wrap {
			out = append(out, ")")
		}
	}

	// a leading binary or unary operator is pushed past the first operand
	if len(out) > 1 && (out[0] == opOr || out[0] == opNot) {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

// Words returns the plain search words of a parsed query, for excerpt
// highlighting: operators, field scopes and grouping are removed and
// apostrophes inside words are dropped so they are not split in two.
func Words(parsed string) string {
	if parsed == domain.EmptyQuery {
		return ""
	}
	var words []string
	for _, tok := range strings.Fields(parsed) {
		if _, isOp := operator(tok); isOp {
			continue
		}
		if strings.HasPrefix(tok, "@") {
			continue
		}
		tok = strings.TrimLeft(tok, opNot+opOr+"(")
		tok = strings.TrimRight(tok, ")")
		if tok == "" {
			continue
		}
		words = append(words, apostropheRe.ReplaceAllString(tok, "$1$2"))
	}
	return strings.Join(words, " ")
}
