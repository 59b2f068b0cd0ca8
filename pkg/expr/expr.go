// Package expr implements the predicate expression tree: a tagged
// variant over Literal, ColumnRef, Comparison, And, Or, Not, IsNull,
// Between, and In nodes, each exposing a single Evaluate(row, columns)
// operation.
//
// Expressed as a sum type with recursive children held by value
// (interface-boxed, heap-allocated only where Go's escape analysis
// requires it) rather than a class hierarchy with virtual dispatch.
package expr

import (
	"strings"

	"coredb/pkg/types"
)

// Column is the minimal column shape Evaluate needs: a case-preserving
// name used for case-insensitive resolution.
type Column struct {
	Name string
}

// Node is any evaluable expression tree node.
type Node interface {
	// Evaluate computes the boolean result of this node against a
	// single row and its table's column list.
	Evaluate(row []string, columns []Column) bool
}

// findColumn resolves name against columns case-insensitively,
// returning its position or -1.
func findColumn(name string, columns []Column) int {
	for i, c := range columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// cellAt returns the cell at the resolved column position, or "" with
// ok=false if the column doesn't exist or the row is too short.
func cellAt(name string, row []string, columns []Column) (string, bool) {
	idx := findColumn(name, columns)
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

// Literal is a constant string value. Its truthiness is the shared
// Literal rule: falsy only when empty, "0", or case-insensitive
// "false".
type Literal struct {
	Value string
}

func (l Literal) Evaluate(row []string, columns []Column) bool {
	return types.IsTruthy(l.Value)
}

// ColumnRef resolves a column name case-insensitively against the row.
type ColumnRef struct {
	Name string
}

func (c ColumnRef) Evaluate(row []string, columns []Column) bool {
	cell, ok := cellAt(c.Name, row, columns)
	if !ok {
		return false
	}
	return types.IsTruthy(cell)
}

// CompareOp is one of the six comparison operators plus LIKE.
type CompareOp int

const (
	OpEQ CompareOp = iota
	OpNE
	OpGT
	OpLT
	OpGE
	OpLE
	OpLike
)

// Comparison compares two operands. When both operands are ColumnRef
// or Literal, numeric coercion is tried first on both sides; when
// both operands are compound boolean expressions, only OpEQ/OpNE are
// defined over their boolean evaluations.
type Comparison struct {
	Left  Node
	Op    CompareOp
	Right Node
}

// simpleValue extracts the string value of an operand if it is a
// Literal or a ColumnRef, reporting false for compound expressions.
func simpleValue(n Node, row []string, columns []Column) (string, bool) {
	switch v := n.(type) {
	case Literal:
		return v.Value, true
	case ColumnRef:
		cell, ok := cellAt(v.Name, row, columns)
		if !ok {
			return "", true // resolved column reference, missing cell: empty string
		}
		return cell, true
	default:
		return "", false
	}
}

func (c Comparison) Evaluate(row []string, columns []Column) bool {
	left, leftSimple := simpleValue(c.Left, row, columns)
	right, rightSimple := simpleValue(c.Right, row, columns)

	if !leftSimple || !rightSimple {
		// Both operands must be compound boolean expressions for this
		// fallback to be meaningful; only = and != are defined.
		switch c.Op {
		case OpEQ:
			return c.Left.Evaluate(row, columns) == c.Right.Evaluate(row, columns)
		case OpNE:
			return c.Left.Evaluate(row, columns) != c.Right.Evaluate(row, columns)
		default:
			return false
		}
	}

	if c.Op == OpLike {
		return matchLike(left, right)
	}

	if ln, lok := types.ParseNumeric(left); lok {
		if rn, rok := types.ParseNumeric(right); rok {
			return compareNumeric(ln, rn, c.Op)
		}
	}
	return compareLexicographic(left, right, c.Op)
}

func compareNumeric(l, r float64, op CompareOp) bool {
	switch op {
	case OpEQ:
		return types.NumericEqual(l, r)
	case OpNE:
		return !types.NumericEqual(l, r)
	case OpGT:
		return l > r
	case OpLT:
		return l < r
	case OpGE:
		return l >= r
	case OpLE:
		return l <= r
	default:
		return false
	}
}

func compareLexicographic(l, r string, op CompareOp) bool {
	switch op {
	case OpEQ:
		return l == r
	case OpNE:
		return l != r
	case OpGT:
		return l > r
	case OpLT:
		return l < r
	case OpGE:
		return l >= r
	case OpLE:
		return l <= r
	default:
		return false
	}
}

// matchLike implements SQL-style LIKE matching: % matches any
// sequence (including empty), _ matches exactly one character.
func matchLike(value, pattern string) bool {
	return likeMatch([]rune(value), []rune(pattern))
}

func likeMatch(value, pattern []rune) bool {
	if len(pattern) == 0 {
		return len(value) == 0
	}
	switch pattern[0] {
	case '%':
		// Try matching zero or more characters.
		for i := 0; i <= len(value); i++ {
			if likeMatch(value[i:], pattern[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(value) == 0 {
			return false
		}
		return likeMatch(value[1:], pattern[1:])
	default:
		if len(value) == 0 || value[0] != pattern[0] {
			return false
		}
		return likeMatch(value[1:], pattern[1:])
	}
}

// And is short-circuit logical conjunction, left-to-right.
type And struct {
	Left, Right Node
}

func (a And) Evaluate(row []string, columns []Column) bool {
	return a.Left.Evaluate(row, columns) && a.Right.Evaluate(row, columns)
}

// Or is short-circuit logical disjunction, left-to-right.
type Or struct {
	Left, Right Node
}

func (o Or) Evaluate(row []string, columns []Column) bool {
	return o.Left.Evaluate(row, columns) || o.Right.Evaluate(row, columns)
}

// Not negates its inner expression.
type Not struct {
	Inner Node
}

func (n Not) Evaluate(row []string, columns []Column) bool {
	return !n.Inner.Evaluate(row, columns)
}

// IsNull tests whether a column's cell is empty (NULL), XOR-composed
// with Negate (true for IS NOT NULL).
type IsNull struct {
	Inner  Node
	Negate bool
}

func (n IsNull) Evaluate(row []string, columns []Column) bool {
	ref, ok := n.Inner.(ColumnRef)
	if !ok {
		return false
	}
	cell, found := cellAt(ref.Name, row, columns)
	isNull := !found || types.IsNullCell(cell)
	return isNull != n.Negate
}

// Between tests value against [Low, High] inclusive, numeric when all
// three parse else lexicographic; Negate inverts the outcome.
type Between struct {
	Value, Low, High Node
	Negate           bool
}

func (b Between) Evaluate(row []string, columns []Column) bool {
	v, vok := simpleValue(b.Value, row, columns)
	lo, lok := simpleValue(b.Low, row, columns)
	hi, hok := simpleValue(b.High, row, columns)
	if !vok || !lok || !hok {
		return false
	}

	var result bool
	if vn, ok1 := types.ParseNumeric(v); ok1 {
		if lon, ok2 := types.ParseNumeric(lo); ok2 {
			if hin, ok3 := types.ParseNumeric(hi); ok3 {
				result = vn >= lon && vn <= hin
				if b.Negate {
					return !result
				}
				return result
			}
		}
	}
	result = v >= lo && v <= hi
	if b.Negate {
		return !result
	}
	return result
}

// In tests whether Value equals (exact string match) any entry in
// List; Negate inverts the outcome.
type In struct {
	Value  Node
	List   []Node
	Negate bool
}

func (in In) Evaluate(row []string, columns []Column) bool {
	v, ok := simpleValue(in.Value, row, columns)
	if !ok {
		return false
	}
	for _, item := range in.List {
		iv, ok := simpleValue(item, row, columns)
		if ok && iv == v {
			return !in.Negate
		}
	}
	return in.Negate
}

// True is a tautology, returned by the parser for an empty predicate
// string.
var True Node = Literal{Value: "1"}
