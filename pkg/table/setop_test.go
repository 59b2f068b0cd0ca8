package table

import "testing"

func sampleSets() (ResultSet, ResultSet) {
	cols := []Column{{Name: "id"}}
	a := ResultSet{Columns: cols, Rows: [][]string{{"1"}, {"2"}, {"2"}}}
	b := ResultSet{Columns: cols, Rows: [][]string{{"2"}, {"3"}}}
	return a, b
}

func TestUnionDeduplicates(t *testing.T) {
	a, b := sampleSets()
	rs := Union(a, b)
	if len(rs.Rows) != 3 {
		t.Fatalf("expected 3 distinct rows (1,2,3), got %d: %+v", len(rs.Rows), rs.Rows)
	}
}

func TestUnionAllKeepsDuplicates(t *testing.T) {
	a, b := sampleSets()
	rs := UnionAll(a, b)
	if len(rs.Rows) != 5 {
		t.Fatalf("expected 5 rows (3+2), got %d", len(rs.Rows))
	}
}

func TestIntersect(t *testing.T) {
	a, b := sampleSets()
	rs := Intersect(a, b)
	if len(rs.Rows) != 1 || rs.Rows[0][0] != "2" {
		t.Fatalf("expected single row {2}, got %+v", rs.Rows)
	}
}

func TestExcept(t *testing.T) {
	a, b := sampleSets()
	rs := Except(a, b)
	if len(rs.Rows) != 1 || rs.Rows[0][0] != "1" {
		t.Fatalf("expected single row {1}, got %+v", rs.Rows)
	}
}
