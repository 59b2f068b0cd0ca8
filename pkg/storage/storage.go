// Package storage implements a save/load text format for tables: a
// column header, a row count, and the rows themselves, tab-separated
// within a row and newline-separated across rows. It is a thin
// collaborator the engine hands tables to — it has no knowledge of
// constraints, locks, or transactions.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"coredb/pkg/table"
	"coredb/pkg/types"
)

// SaveTable writes a table's schema and rows to w. The first line is
// the column count; column headers follow as "name:TYPE[:NOTNULL]",
// one per line, then a line with the row count, then the rows
// themselves (tab-separated fields).
func SaveTable(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(w)

	cols := t.Columns()
	if _, err := fmt.Fprintf(bw, "%d\n", len(cols)); err != nil {
		return err
	}
	for _, c := range cols {
		nn := ""
		if c.NotNull {
			nn = ":NOTNULL"
		}
		if _, err := fmt.Fprintf(bw, "%s:%s%s\n", c.Name, c.Type, nn); err != nil {
			return err
		}
	}

	rs, err := t.SelectRows(table.SelectOptions{})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "%d\n", len(rs.Rows)); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		if _, err := fmt.Fprintln(bw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadTable parses the format SaveTable writes, returning a new table
// named name with no foreign-key registry attached; the caller
// (engine) is responsible for registering it and re-attaching any
// constraints, since constraints are catalog-level metadata, not part
// of this row-level format.
//
// Identity of the serialization round-trip is not guaranteed for
// numeric values: a cell written as "1.50" reads back as the scanned
// string verbatim here, but re-parsing through a numeric column type
// elsewhere may normalize it.
func LoadTable(r io.Reader, name string) (*table.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	numCols, err := readCount(sc)
	if err != nil {
		return nil, fmt.Errorf("storage: reading column count: %w", err)
	}

	cols := make([]table.Column, 0, numCols)
	for i := 0; i < numCols; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("storage: unexpected EOF reading column %d", i)
		}
		col, err := parseColumnHeader(sc.Text())
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	t := table.New(name, cols, nil)

	numRows, err := readCount(sc)
	if err != nil {
		return nil, fmt.Errorf("storage: reading row count: %w", err)
	}
	for i := 0; i < numRows; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("storage: unexpected EOF reading row %d", i)
		}
		fields := strings.Split(sc.Text(), "\t")
		if _, err := t.AddRow(fields); err != nil {
			return nil, fmt.Errorf("storage: row %d: %w", i, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func readCount(sc *bufio.Scanner) (int, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(strings.TrimSpace(sc.Text()))
}

func parseColumnHeader(line string) (table.Column, error) {
	parts := strings.Split(line, ":")
	if len(parts) < 2 {
		return table.Column{}, fmt.Errorf("storage: malformed column header %q", line)
	}
	ct, err := parseColumnType(parts[1])
	if err != nil {
		return table.Column{}, err
	}
	col := table.Column{Name: parts[0], Type: ct}
	if len(parts) > 2 && parts[2] == "NOTNULL" {
		col.NotNull = true
	}
	return col, nil
}

func parseColumnType(s string) (types.ColumnType, error) {
	switch s {
	case "INTEGER":
		return types.Integer, nil
	case "FLOAT":
		return types.Float, nil
	case "STRING":
		return types.StringType, nil
	case "TEXT":
		return types.Text, nil
	case "BOOLEAN":
		return types.Boolean, nil
	case "COMPOSITE":
		return types.Composite, nil
	default:
		return 0, fmt.Errorf("storage: unknown column type %q", s)
	}
}
