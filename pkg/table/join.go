package table

import (
	"strings"

	"coredb/pkg/predicate"
)

func qualify(tableName string, cols []Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{Name: tableName + "." + c.Name, Type: c.Type, NotNull: c.NotNull}
	}
	return out
}

func nullRow(n int) []string {
	return make([]string, n)
}

// Inner returns the cross product of left and right filtered by
// condition. Column names in the result are qualified as
// "table.column" to support disambiguated projection.
func Inner(leftName string, left *Table, rightName string, right *Table, condition string) (ResultSet, error) {
	node, err := predicate.Parse(condition)
	if err != nil {
		return ResultSet{}, err
	}
	leftCols, rightCols := left.Columns(), right.Columns()
	outCols := append(qualify(leftName, leftCols), qualify(rightName, rightCols)...)
	exprCols := outCols2Expr(outCols)

	var outRows [][]string
	left.mu.RLock()
	defer left.mu.RUnlock()
	right.mu.RLock()
	defer right.mu.RUnlock()
	for _, lrow := range left.rows {
		for _, rrow := range right.rows {
			combined := append(append([]string(nil), lrow...), rrow...)
			if node.Evaluate(combined, exprCols) {
				outRows = append(outRows, combined)
			}
		}
	}
	return ResultSet{Columns: outCols, Rows: outRows}, nil
}

// LeftOuter keeps every left row, pairing it with matching right rows
// or a single all-NULL right extension if none match.
func LeftOuter(leftName string, left *Table, rightName string, right *Table, condition string) (ResultSet, error) {
	node, err := predicate.Parse(condition)
	if err != nil {
		return ResultSet{}, err
	}
	leftCols, rightCols := left.Columns(), right.Columns()
	outCols := append(qualify(leftName, leftCols), qualify(rightName, rightCols)...)
	exprCols := outCols2Expr(outCols)

	var outRows [][]string
	left.mu.RLock()
	defer left.mu.RUnlock()
	right.mu.RLock()
	defer right.mu.RUnlock()
	for _, lrow := range left.rows {
		matched := false
		for _, rrow := range right.rows {
			combined := append(append([]string(nil), lrow...), rrow...)
			if node.Evaluate(combined, exprCols) {
				outRows = append(outRows, combined)
				matched = true
			}
		}
		if !matched {
			combined := append(append([]string(nil), lrow...), nullRow(len(rightCols))...)
			outRows = append(outRows, combined)
		}
	}
	return ResultSet{Columns: outCols, Rows: outRows}, nil
}

// RightOuter is LeftOuter with the operand roles reversed, with the
// output re-ordered so left columns still precede right columns.
func RightOuter(leftName string, left *Table, rightName string, right *Table, condition string) (ResultSet, error) {
	swapped, err := LeftOuter(rightName, right, leftName, left, condition)
	if err != nil {
		return ResultSet{}, err
	}
	leftCols, rightCols := left.Columns(), right.Columns()
	outCols := append(qualify(leftName, leftCols), qualify(rightName, rightCols)...)
	outRows := make([][]string, len(swapped.Rows))
	rn := len(rightCols)
	for i, row := range swapped.Rows {
		reordered := append(append([]string(nil), row[rn:]...), row[:rn]...)
		outRows[i] = reordered
	}
	return ResultSet{Columns: outCols, Rows: outRows}, nil
}

// FullOuter is the union of LeftOuter and RightOuter, with matched
// pairs appearing once.
func FullOuter(leftName string, left *Table, rightName string, right *Table, condition string) (ResultSet, error) {
	leftResult, err := LeftOuter(leftName, left, rightName, right, condition)
	if err != nil {
		return ResultSet{}, err
	}
	rightResult, err := RightOuter(leftName, left, rightName, right, condition)
	if err != nil {
		return ResultSet{}, err
	}

	seen := make(map[string]bool, len(leftResult.Rows))
	for _, row := range leftResult.Rows {
		seen[strings.Join(row, "\x1f")] = true
	}
	outRows := append([][]string(nil), leftResult.Rows...)
	for _, row := range rightResult.Rows {
		key := strings.Join(row, "\x1f")
		if !seen[key] {
			outRows = append(outRows, row)
			seen[key] = true
		}
	}
	return ResultSet{Columns: leftResult.Columns, Rows: outRows}, nil
}

// Natural performs an equi-join on every column name shared by both
// tables, with shared columns appearing once in the output.
func Natural(leftName string, left *Table, rightName string, right *Table) (ResultSet, error) {
	leftCols, rightCols := left.Columns(), right.Columns()
	var shared []string
	for _, lc := range leftCols {
		for _, rc := range rightCols {
			if strings.EqualFold(lc.Name, rc.Name) {
				shared = append(shared, lc.Name)
				break
			}
		}
	}

	var condBuilder strings.Builder
	for i, name := range shared {
		if i > 0 {
			condBuilder.WriteString(" AND ")
		}
		condBuilder.WriteString(leftName + "." + name + " = " + rightName + "." + name)
	}
	condition := condBuilder.String()

	joined, err := Inner(leftName, left, rightName, right, condition)
	if err != nil {
		return ResultSet{}, err
	}

	dropIndices := make(map[int]bool)
	for _, name := range shared {
		for i, c := range joined.Columns {
			if c.Name == rightName+"."+name {
				dropIndices[i] = true
			}
		}
	}

	outCols := make([]Column, 0, len(joined.Columns))
	for i, c := range joined.Columns {
		if !dropIndices[i] {
			name := c.Name
			for _, sharedName := range shared {
				if c.Name == leftName+"."+sharedName {
					name = sharedName
				}
			}
			outCols = append(outCols, Column{Name: name, Type: c.Type, NotNull: c.NotNull})
		}
	}
	outRows := make([][]string, len(joined.Rows))
	for ri, row := range joined.Rows {
		newRow := make([]string, 0, len(outCols))
		for i, v := range row {
			if !dropIndices[i] {
				newRow = append(newRow, v)
			}
		}
		outRows[ri] = newRow
	}
	return ResultSet{Columns: outCols, Rows: outRows}, nil
}
