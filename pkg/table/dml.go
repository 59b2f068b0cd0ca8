package table

import (
	"sort"
	"strconv"
	"strings"

	"coredb/pkg/aggregate"
	"coredb/pkg/expr"
	"coredb/pkg/predicate"
)

// AddRow validates and appends a new row.
func (t *Table) AddRow(values []string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(values) != len(t.columns) {
		return 0, ErrColumnCountMismatch
	}
	if err := t.validateRowLocked(values, -1); err != nil {
		return 0, err
	}
	row := append([]string(nil), values...)
	t.rows = append(t.rows, row)
	id := t.nextRowID
	t.rowIDs = append(t.rowIDs, id)
	t.nextRowID++
	return id, nil
}

// UpdateRows parses condition once, applies updates to every matching
// row, validates the rewritten row against
// every constraint, and reports the number of rows changed. On a
// constraint violation the whole call fails and no row is mutated
// (rows are staged first, applied only if every candidate validates).
func (t *Table) UpdateRows(updates map[string]string, condition string) (int, error) {
	node, err := predicate.Parse(condition)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cols := exprColumns(t.columns)
	type pending struct {
		idx  int
		next []string
	}
	var staged []pending

	for i, row := range t.rows {
		if !node.Evaluate(row, cols) {
			continue
		}
		next := append([]string(nil), row...)
		for colName, value := range updates {
			ci := t.columnIndexLocked(colName)
			if ci < 0 {
				return 0, ErrColumnNotFound
			}
			next[ci] = value
		}
		if err := t.validateRowLocked(next, i); err != nil {
			return 0, err
		}
		staged = append(staged, pending{idx: i, next: next})
	}

	for _, p := range staged {
		t.rows[p.idx] = p.next
	}
	return len(staged), nil
}

// DeleteRows removes every row matching condition. Referenced-by
// foreign-key enforcement against other
// tables is the caller's (engine-level) responsibility, since this
// table has no visibility into tables that reference it.
func (t *Table) DeleteRows(condition string) (int, error) {
	node, err := predicate.Parse(condition)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cols := exprColumns(t.columns)
	keptRows := t.rows[:0]
	keptIDs := t.rowIDs[:0]
	removed := 0
	for i, row := range t.rows {
		if node.Evaluate(row, cols) {
			removed++
			continue
		}
		keptRows = append(keptRows, row)
		keptIDs = append(keptIDs, t.rowIDs[i])
	}
	t.rows = keptRows
	t.rowIDs = keptIDs
	return removed, nil
}

// Upsert inserts a new row, or updates the existing row matching
// keyColumns if one is found.
func (t *Table) Upsert(values []string, keyColumns []string) (inserted bool, err error) {
	t.mu.Lock()

	keyIndices := make([]int, len(keyColumns))
	for i, name := range keyColumns {
		keyIndices[i] = t.columnIndexLocked(name)
	}

	matchIdx := -1
	for rowIdx, row := range t.rows {
		match := true
		for _, ci := range keyIndices {
			if ci < 0 || ci >= len(row) || ci >= len(values) || row[ci] != values[ci] {
				match = false
				break
			}
		}
		if match {
			matchIdx = rowIdx
			break
		}
	}

	if matchIdx < 0 {
		t.mu.Unlock()
		_, err := t.AddRow(values)
		return true, err
	}

	if err := t.validateRowLocked(values, matchIdx); err != nil {
		t.mu.Unlock()
		return false, err
	}
	t.rows[matchIdx] = append([]string(nil), values...)
	t.mu.Unlock()
	return false, nil
}

// SelectOptions configures SelectRows.
type SelectOptions struct {
	Columns   []string // "*" or empty selects all
	Condition string
	OrderBy   string
	OrderDesc bool
	GroupBy   []string
	Having    string
	// Aggregates maps an output column name to an aggregate spec
	// (function name + source column), applied per group when GroupBy
	// is non-empty.
	Aggregates map[string]AggregateSpec
}

// AggregateSpec names an aggregate function and its source column.
type AggregateSpec struct {
	Function string // SUM, MEAN, MIN, MAX, COUNT, COUNT_ALL, MEDIAN, MODE, STDDEV, VARIANCE, STRING_CONCAT, PERCENTILE
	Column   string
	Arg      float64 // PERCENTILE's p, STRING_CONCAT's separator ignored here (use ArgStr)
	ArgStr   string
	Sample   bool
}

// SelectRows returns a materialized result set.
func (t *Table) SelectRows(opts SelectOptions) (ResultSet, error) {
	node, err := predicate.Parse(opts.Condition)
	if err != nil {
		return ResultSet{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	cols := exprColumns(t.columns)
	var matched [][]string
	for _, row := range t.rows {
		if node.Evaluate(row, cols) {
			matched = append(matched, row)
		}
	}

	selected := opts.Columns
	if len(selected) == 0 || (len(selected) == 1 && selected[0] == "*") {
		selected = make([]string, len(t.columns))
		for i, c := range t.columns {
			selected[i] = c.Name
		}
	}

	if len(opts.GroupBy) > 0 {
		return t.groupedSelectLocked(matched, selected, opts)
	}

	if opts.OrderBy != "" {
		sortRows(matched, t.columnIndexLocked(opts.OrderBy), opts.OrderDesc)
	}

	outCols := make([]Column, len(selected))
	outRows := make([][]string, len(matched))
	for i := range outRows {
		outRows[i] = make([]string, len(selected))
	}
	for ci, name := range selected {
		srcIdx := t.columnIndexLocked(name)
		outCols[ci] = Column{Name: name}
		for ri, row := range matched {
			if srcIdx >= 0 && srcIdx < len(row) {
				outRows[ri][ci] = row[srcIdx]
			}
		}
	}
	return ResultSet{Columns: outCols, Rows: outRows}, nil
}

func (t *Table) groupedSelectLocked(matched [][]string, selected []string, opts SelectOptions) (ResultSet, error) {
	groupIndices := make([]int, len(opts.GroupBy))
	for i, name := range opts.GroupBy {
		groupIndices[i] = t.columnIndexLocked(name)
	}

	order := []string{}
	groups := map[string][][]string{}
	for _, row := range matched {
		parts := make([]string, len(groupIndices))
		for i, idx := range groupIndices {
			if idx >= 0 && idx < len(row) {
				parts[i] = row[idx]
			}
		}
		key := strings.Join(parts, "\x1f")
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	var havingNode expr.Node
	if opts.Having != "" {
		n, err := predicate.Parse(opts.Having)
		if err != nil {
			return ResultSet{}, err
		}
		havingNode = n
	}

	outCols := make([]Column, len(selected))
	for i, name := range selected {
		outCols[i] = Column{Name: name}
	}

	var outRows [][]string
	for _, key := range order {
		groupRows := groups[key]
		representative := groupRows[0]
		outRow := make([]string, len(selected))
		for ci, name := range selected {
			if spec, ok := opts.Aggregates[name]; ok {
				outRow[ci] = evalAggregate(spec, groupRows, t)
				continue
			}
			srcIdx := t.columnIndexLocked(name)
			if srcIdx >= 0 && srcIdx < len(representative) {
				outRow[ci] = representative[srcIdx]
			}
		}
		if havingNode != nil && !havingNode.Evaluate(outRow, outCols2Expr(outCols)) {
			continue
		}
		outRows = append(outRows, outRow)
	}
	return ResultSet{Columns: outCols, Rows: outRows}, nil
}

func outCols2Expr(cols []Column) []expr.Column {
	out := make([]expr.Column, len(cols))
	for i, c := range cols {
		out[i] = expr.Column{Name: c.Name}
	}
	return out
}

func evalAggregate(spec AggregateSpec, rows [][]string, t *Table) string {
	idx := t.columnIndexLocked(spec.Column)
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if idx >= 0 && idx < len(row) {
			values = append(values, row[idx])
		}
	}
	switch strings.ToUpper(spec.Function) {
	case "SUM":
		return formatF(aggregate.Sum(values))
	case "MEAN", "AVG":
		return formatF(aggregate.Mean(values))
	case "MIN":
		return formatF(aggregate.Min(values))
	case "MAX":
		return formatF(aggregate.Max(values))
	case "COUNT":
		return strconv.Itoa(aggregate.Count(values, false))
	case "COUNT_ALL":
		return strconv.Itoa(aggregate.Count(values, true))
	case "MEDIAN":
		return aggregate.Median(values)
	case "MODE":
		return aggregate.Mode(values)
	case "STDDEV":
		return formatF(aggregate.StdDev(values, spec.Sample))
	case "VARIANCE":
		return formatF(aggregate.Variance(values, spec.Sample))
	case "STRING_CONCAT":
		return aggregate.StringConcat(values, spec.ArgStr)
	case "PERCENTILE":
		return formatF(aggregate.Percentile(values, spec.Arg))
	default:
		return ""
	}
}

func formatF(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// sortRows sorts rows in place by the cell at colIdx: lexicographic
// unless every value parses as numeric. No-op if colIdx is out of
// range.
func sortRows(rows [][]string, colIdx int, desc bool) {
	if colIdx < 0 {
		return
	}
	allNumeric := true
	for _, row := range rows {
		if colIdx >= len(row) {
			continue
		}
		if _, ok := parseNumericSort(row[colIdx]); !ok {
			allNumeric = false
			break
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := cellOrEmpty(rows[i], colIdx), cellOrEmpty(rows[j], colIdx)
		var less bool
		if allNumeric {
			fa, _ := parseNumericSort(a)
			fb, _ := parseNumericSort(b)
			less = fa < fb
		} else {
			less = a < b
		}
		if desc {
			return !less && a != b
		}
		return less
	})
}

func cellOrEmpty(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseNumericSort(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
