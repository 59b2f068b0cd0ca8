package expr

import "testing"

func cols(names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{Name: n}
	}
	return out
}

func TestLiteralTruthiness(t *testing.T) {
	falsy := []string{"", "0", "false", "FALSE"}
	for _, v := range falsy {
		if (Literal{Value: v}).Evaluate(nil, nil) {
			t.Errorf("Literal(%q) truthy, want falsy", v)
		}
	}
	if !(Literal{Value: "1"}).Evaluate(nil, nil) {
		t.Error("Literal(\"1\") falsy, want truthy")
	}
}

func TestColumnRefMissing(t *testing.T) {
	c := ColumnRef{Name: "missing"}
	if c.Evaluate([]string{"1"}, cols("x")) {
		t.Error("expected false for unresolved column")
	}
}

func TestComparisonNumericLeadingZero(t *testing.T) {
	columns := cols("x")
	cmp := Comparison{Left: ColumnRef{Name: "x"}, Op: OpGT, Right: Literal{Value: "1"}}
	if !cmp.Evaluate([]string{"01"}, columns) {
		t.Error("expected \"01\" > 1 to be true via numeric coercion")
	}
	if !cmp.Evaluate([]string{"2"}, columns) {
		t.Error("expected \"2\" > 1 to be true")
	}
}

func TestComparisonToleranceEquality(t *testing.T) {
	columns := cols("x")
	cmp := Comparison{Left: ColumnRef{Name: "x"}, Op: OpEQ, Right: Literal{Value: "1.0000000001"}}
	if !cmp.Evaluate([]string{"1"}, columns) {
		t.Error("expected values within 1e-9 tolerance to be equal")
	}
}

func TestComparisonLexicographicFallback(t *testing.T) {
	columns := cols("name")
	cmp := Comparison{Left: ColumnRef{Name: "name"}, Op: OpLT, Right: Literal{Value: "banana"}}
	if !cmp.Evaluate([]string{"apple"}, columns) {
		t.Error("expected \"apple\" < \"banana\" lexicographically")
	}
}

func TestComparisonBooleanOperandsOnlyEqNe(t *testing.T) {
	left := And{Left: Literal{Value: "1"}, Right: Literal{Value: "1"}}
	right := Or{Left: Literal{Value: "0"}, Right: Literal{Value: "0"}}
	eq := Comparison{Left: left, Op: OpEQ, Right: right}
	if eq.Evaluate(nil, nil) {
		t.Error("expected true != false to compare unequal")
	}
	gt := Comparison{Left: left, Op: OpGT, Right: right}
	if gt.Evaluate(nil, nil) {
		t.Error("expected unsupported operator over booleans to be false")
	}
}

func TestLikeWildcards(t *testing.T) {
	columns := cols("name")
	cmp := Comparison{Left: ColumnRef{Name: "name"}, Op: OpLike, Right: Literal{Value: "alph%"}}
	for _, name := range []string{"alpha", "alphabet"} {
		if !cmp.Evaluate([]string{name}, columns) {
			t.Errorf("expected %q to match alph%%", name)
		}
	}
	if cmp.Evaluate([]string{"beta"}, columns) {
		t.Error("expected \"beta\" not to match alph%")
	}
}

func TestLikeSingleCharWildcard(t *testing.T) {
	if !matchLike("cat", "c_t") {
		t.Error("expected c_t to match cat")
	}
	if matchLike("ct", "c_t") {
		t.Error("expected c_t not to match ct")
	}
}

func TestAndOrTruthValues(t *testing.T) {
	if !(And{Left: Literal{Value: "1"}, Right: Literal{Value: "1"}}).Evaluate(nil, nil) {
		t.Error("expected true AND true")
	}
	if (And{Left: Literal{Value: "0"}, Right: Literal{Value: "1"}}).Evaluate(nil, nil) {
		t.Error("expected false AND true to be false")
	}
	if !(Or{Left: Literal{Value: "0"}, Right: Literal{Value: "1"}}).Evaluate(nil, nil) {
		t.Error("expected false OR true")
	}
}

func TestIsNull(t *testing.T) {
	columns := cols("x")
	isNull := IsNull{Inner: ColumnRef{Name: "x"}}
	if !isNull.Evaluate([]string{""}, columns) {
		t.Error("expected IS NULL true for empty cell")
	}
	if isNull.Evaluate([]string{"a"}, columns) {
		t.Error("expected IS NULL false for non-empty cell")
	}
	isNotNull := IsNull{Inner: ColumnRef{Name: "x"}, Negate: true}
	if !isNotNull.Evaluate([]string{"a"}, columns) {
		t.Error("expected IS NOT NULL true for non-empty cell")
	}
}

func TestBetweenNumericAndLexicographic(t *testing.T) {
	columns := cols("x")
	between := Between{Value: ColumnRef{Name: "x"}, Low: Literal{Value: "1"}, High: Literal{Value: "10"}}
	if !between.Evaluate([]string{"5"}, columns) {
		t.Error("expected 5 BETWEEN 1 AND 10")
	}
	if between.Evaluate([]string{"20"}, columns) {
		t.Error("expected 20 NOT in [1,10]")
	}
	notBetween := Between{Value: ColumnRef{Name: "x"}, Low: Literal{Value: "1"}, High: Literal{Value: "10"}, Negate: true}
	if !notBetween.Evaluate([]string{"20"}, columns) {
		t.Error("expected NOT BETWEEN true for 20")
	}
	words := Between{Value: ColumnRef{Name: "x"}, Low: Literal{Value: "apple"}, High: Literal{Value: "cherry"}}
	if !words.Evaluate([]string{"banana"}, columns) {
		t.Error("expected \"banana\" BETWEEN \"apple\" AND \"cherry\" lexicographically")
	}
}

func TestIn(t *testing.T) {
	columns := cols("x")
	in := In{Value: ColumnRef{Name: "x"}, List: []Node{Literal{Value: "a"}, Literal{Value: "b"}}}
	if !in.Evaluate([]string{"b"}, columns) {
		t.Error("expected \"b\" IN (a,b)")
	}
	if in.Evaluate([]string{"c"}, columns) {
		t.Error("expected \"c\" NOT IN (a,b)")
	}
	notIn := In{Value: ColumnRef{Name: "x"}, List: []Node{Literal{Value: "a"}}, Negate: true}
	if !notIn.Evaluate([]string{"c"}, columns) {
		t.Error("expected NOT IN true for non-member")
	}
}
