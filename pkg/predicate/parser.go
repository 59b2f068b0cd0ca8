package predicate

import (
	"fmt"
	"strings"

	"coredb/pkg/expr"
)

// ParseError reports a malformed predicate string.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "parse error: " + e.Msg }

// Parser is a recursive-descent parser over a token stream, using a
// single-token lookahead (cur) over the word-token grammar tokenize
// produces.
type Parser struct {
	tokens []string
	pos    int
}

// Parse parses a full predicate string into an expr.Node. An empty
// (or all-whitespace) input parses to a tautology.
func Parse(s string) (expr.Node, error) {
	if strings.TrimSpace(s) == "" {
		return expr.True, nil
	}
	p := &Parser{tokens: tokenize(s)}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, &ParseError{Msg: fmt.Sprintf("unexpected token %q", p.cur())}
	}
	return node, nil
}

func (p *Parser) cur() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *Parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *Parser) advance() string {
	t := p.cur()
	p.pos++
	return t
}

func (p *Parser) curUpper() string { return strings.ToUpper(p.cur()) }

// expr := term ( OR term )*
func (p *Parser) parseExpr() (expr.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.curUpper() == "OR" {
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = expr.Or{Left: left, Right: right}
	}
	return left, nil
}

// term := factor ( AND factor )*
func (p *Parser) parseTerm() (expr.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.curUpper() == "AND" {
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = expr.And{Left: left, Right: right}
	}
	return left, nil
}

// factor := NOT factor | '(' expr ')' | predicate
func (p *Parser) parseFactor() (expr.Node, error) {
	if p.curUpper() == "NOT" {
		p.advance()
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return expr.Not{Inner: inner}, nil
	}
	if p.cur() == "(" {
		p.advance()
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur() != ")" {
			return nil, &ParseError{Msg: "missing closing ')'"}
		}
		p.advance()
		return node, nil
	}
	return p.parsePredicate()
}

// predicate := value ( compOp value
//
//	| (IS NULL | IS NOT NULL)
//	| ([NOT] BETWEEN) value AND value
//	| ([NOT] IN) '(' value (',' value)* ')'
//	| ([NOT] LIKE) value
//	| ε )
func (p *Parser) parsePredicate() (expr.Node, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	switch p.curUpper() {
	case "IS NULL":
		p.advance()
		return expr.IsNull{Inner: left}, nil
	case "IS NOT NULL":
		p.advance()
		return expr.IsNull{Inner: left, Negate: true}, nil
	case "BETWEEN", "NOT BETWEEN":
		negate := p.curUpper() == "NOT BETWEEN"
		p.advance()
		lo, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if p.curUpper() != "AND" {
			return nil, &ParseError{Msg: "missing AND in BETWEEN"}
		}
		p.advance()
		hi, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return expr.Between{Value: left, Low: lo, High: hi, Negate: negate}, nil
	case "IN", "NOT IN":
		negate := p.curUpper() == "NOT IN"
		p.advance()
		if p.cur() != "(" {
			return nil, &ParseError{Msg: "missing '(' in IN list"}
		}
		p.advance()
		var list []expr.Node
		for {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			list = append(list, v)
			if p.cur() == "," {
				p.advance()
				continue
			}
			break
		}
		if p.cur() != ")" {
			return nil, &ParseError{Msg: "missing ')' in IN list"}
		}
		p.advance()
		return expr.In{Value: left, List: list, Negate: negate}, nil
	case "LIKE", "NOT LIKE":
		negate := p.curUpper() == "NOT LIKE"
		p.advance()
		right, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		cmp := expr.Node(expr.Comparison{Left: left, Op: expr.OpLike, Right: right})
		if negate {
			return expr.Not{Inner: cmp}, nil
		}
		return cmp, nil
	}

	if op, ok := compareOp(p.cur()); ok {
		p.advance()
		right, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return expr.Comparison{Left: left, Op: op, Right: right}, nil
	}

	// ε: a bare value used as a boolean predicate.
	return left, nil
}

func compareOp(tok string) (expr.CompareOp, bool) {
	switch tok {
	case "=":
		return expr.OpEQ, true
	case "!=":
		return expr.OpNE, true
	case ">":
		return expr.OpGT, true
	case "<":
		return expr.OpLT, true
	case ">=":
		return expr.OpGE, true
	case "<=":
		return expr.OpLE, true
	default:
		return 0, false
	}
}

// value := quoted-string | signed-integer | identifier
//
// Classification: quoted -> Literal (quotes stripped); starts with a
// digit or '-' followed by a digit -> Literal (kept verbatim for
// later numeric coercion); otherwise -> ColumnRef.
func (p *Parser) parseValue() (expr.Node, error) {
	if p.atEnd() {
		return nil, &ParseError{Msg: "unexpected end of predicate"}
	}
	tok := p.advance()
	if isQuoted(tok) {
		return expr.Literal{Value: unquote(tok)}, nil
	}
	if looksLikeSignedNumber(tok) {
		return expr.Literal{Value: tok}, nil
	}
	return expr.ColumnRef{Name: tok}, nil
}
