package table

import "strings"

func rowKey(row []string) string {
	return strings.Join(row, "\x1f")
}

// Union returns the distinct rows across a and b. Both result sets
// must share a column list shape; the output columns are taken from
// a.
func Union(a, b ResultSet) ResultSet {
	seen := make(map[string]bool)
	var rows [][]string
	for _, row := range a.Rows {
		k := rowKey(row)
		if !seen[k] {
			seen[k] = true
			rows = append(rows, row)
		}
	}
	for _, row := range b.Rows {
		k := rowKey(row)
		if !seen[k] {
			seen[k] = true
			rows = append(rows, row)
		}
	}
	return ResultSet{Columns: a.Columns, Rows: rows}
}

// UnionAll concatenates a and b, keeping duplicates.
func UnionAll(a, b ResultSet) ResultSet {
	rows := append(append([][]string(nil), a.Rows...), b.Rows...)
	return ResultSet{Columns: a.Columns, Rows: rows}
}

// Intersect returns the distinct rows present in both a and b.
func Intersect(a, b ResultSet) ResultSet {
	inB := make(map[string]bool, len(b.Rows))
	for _, row := range b.Rows {
		inB[rowKey(row)] = true
	}
	seen := make(map[string]bool)
	var rows [][]string
	for _, row := range a.Rows {
		k := rowKey(row)
		if inB[k] && !seen[k] {
			seen[k] = true
			rows = append(rows, row)
		}
	}
	return ResultSet{Columns: a.Columns, Rows: rows}
}

// Except returns the distinct rows in a that are not present in b.
func Except(a, b ResultSet) ResultSet {
	inB := make(map[string]bool, len(b.Rows))
	for _, row := range b.Rows {
		inB[rowKey(row)] = true
	}
	seen := make(map[string]bool)
	var rows [][]string
	for _, row := range a.Rows {
		k := rowKey(row)
		if !inB[k] && !seen[k] {
			seen[k] = true
			rows = append(rows, row)
		}
	}
	return ResultSet{Columns: a.Columns, Rows: rows}
}
