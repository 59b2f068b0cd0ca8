// Package table implements the in-memory table engine: schema
// mutation, row DML, constraint validation, joins, and set operations
// over materialized result sets.
package table

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"coredb/pkg/expr"
	"coredb/pkg/fk"
	"coredb/pkg/predicate"
	"coredb/pkg/types"
)

var (
	ErrColumnCountMismatch = errors.New("row length does not match column count")
	ErrColumnNotFound      = errors.New("column not found")
	ErrColumnExists        = errors.New("column already exists")
)

// ConstraintType tags the kind of a Constraint.
type ConstraintType int

const (
	ConstraintPrimaryKey ConstraintType = iota
	ConstraintUnique
	ConstraintNotNull
	ConstraintCheck
	ConstraintForeignKey
)

func (ct ConstraintType) String() string {
	switch ct {
	case ConstraintPrimaryKey:
		return "PRIMARY KEY"
	case ConstraintUnique:
		return "UNIQUE"
	case ConstraintNotNull:
		return "NOT NULL"
	case ConstraintCheck:
		return "CHECK"
	case ConstraintForeignKey:
		return "FOREIGN KEY"
	default:
		return "UNKNOWN"
	}
}

// ConstraintError reports a constraint violation during insert or
// update, carrying the offending constraint's name.
type ConstraintError struct {
	ConstraintName string
	Kind           ConstraintType
}

func (e *ConstraintError) Error() string {
	name := e.ConstraintName
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s constraint %q violated", e.Kind, name)
}

// Constraint is a tagged-variant row constraint.
type Constraint struct {
	Type    ConstraintType
	Name    string
	Columns []string

	// CHECK
	CheckExpr string

	// FOREIGN_KEY
	RefTable      string
	RefColumns    []string
	CascadeDelete bool
	CascadeUpdate bool

	checkOnce   sync.Once
	checkParsed expr.Node
	checkErr    error
}

// parsedCheck lazily parses CheckExpr via the predicate grammar.
func (c *Constraint) parsedCheck() (expr.Node, error) {
	c.checkOnce.Do(func() {
		c.checkParsed, c.checkErr = predicate.Parse(c.CheckExpr)
	})
	return c.checkParsed, c.checkErr
}

// Column is a table column definition.
type Column struct {
	Name    string
	Type    types.ColumnType
	NotNull bool
}

// Table is the in-memory row store: ordered columns, ordered rows, a
// constraint list, a monotonic row-id counter, and a reader/writer
// lock guarding the whole table.
type Table struct {
	mu         sync.RWMutex
	name       string
	columns    []Column
	rows       [][]string
	rowIDs     []uint64
	nextRowID  uint64
	constraint []*Constraint
	fkRegistry *fk.Registry
}

// New creates an empty table with the given name, columns, and
// foreign-key registry (may be nil if the table never participates in
// FK validation).
func New(name string, columns []Column, registry *fk.Registry) *Table {
	return &Table{
		name:       name,
		columns:    append([]Column(nil), columns...),
		fkRegistry: registry,
	}
}

// Name returns the table's name.
func (t *Table) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// Columns returns a copy of the table's current column list.
func (t *Table) Columns() []Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Column(nil), t.columns...)
}

// RowCount returns the number of rows currently stored.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// CloneRows returns a deep copy of every row currently stored, for use
// as a transaction snapshot.
func (t *Table) CloneRows() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// ReplaceRows discards the current row list and row-id sequence,
// replacing it with a deep copy of rows — used to restore a
// transaction snapshot on rollback.
func (t *Table) ReplaceRows(rows [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make([][]string, len(rows))
	t.rowIDs = make([]uint64, len(rows))
	for i, row := range rows {
		t.rows[i] = append([]string(nil), row...)
		t.rowIDs[i] = t.nextRowID
		t.nextRowID++
	}
}

// AddConstraint registers a constraint against this table's current
// schema. Constraint name uniqueness within the table is the caller's
// responsibility, enforced here for safety.
func (t *Table) AddConstraint(c *Constraint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c.Name != "" {
		for _, existing := range t.constraint {
			if existing.Name == c.Name {
				return fmt.Errorf("constraint %q already exists on table %q", c.Name, t.name)
			}
		}
	}
	t.constraint = append(t.constraint, c)
	if c.Type == ConstraintForeignKey && t.fkRegistry != nil {
		t.fkRegistry.RegisterReference(c.RefTable, fk.Reference{
			ChildTable:     t.name,
			ConstraintName: c.Name,
			ChildColumns:   append([]string(nil), c.Columns...),
			ParentColumns:  append([]string(nil), c.RefColumns...),
			CascadeDelete:  c.CascadeDelete,
			CascadeUpdate:  c.CascadeUpdate,
		})
	}
	return nil
}

// Constraints returns the table's constraint list.
func (t *Table) Constraints() []*Constraint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Constraint(nil), t.constraint...)
}

func (t *Table) columnIndexLocked(name string) int {
	for i, c := range t.columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// AddColumn appends a new column to the schema, giving every existing
// row an empty (NULL) cell at that position.
func (t *Table) AddColumn(col Column) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.columnIndexLocked(col.Name) >= 0 {
		return ErrColumnExists
	}
	t.columns = append(t.columns, col)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
	return nil
}

// DropColumn removes a column and the corresponding position from
// every row.
func (t *Table) DropColumn(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.columnIndexLocked(name)
	if idx < 0 {
		return ErrColumnNotFound
	}
	t.columns = append(t.columns[:idx], t.columns[idx+1:]...)
	for i, row := range t.rows {
		t.rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return nil
}

// RenameColumn is a metadata-only change; the new name must not
// collide with an existing column (case-insensitive).
func (t *Table) RenameColumn(oldName, newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.columnIndexLocked(oldName)
	if idx < 0 {
		return ErrColumnNotFound
	}
	if t.columnIndexLocked(newName) >= 0 {
		return ErrColumnExists
	}
	t.columns[idx].Name = newName
	return nil
}

// exprColumns converts the table's Column slice to the shape
// pkg/expr.Node.Evaluate expects.
func exprColumns(cols []Column) []expr.Column {
	out := make([]expr.Column, len(cols))
	for i, c := range cols {
		out[i] = expr.Column{Name: c.Name}
	}
	return out
}

// validateRowLocked runs the constraint validation procedure against
// candidate: each constraint in the order it was added to the table
// (NOT NULL, UNIQUE, PRIMARY KEY as NOT NULL plus UNIQUE, CHECK,
// FOREIGN KEY), then every column's own NOT NULL flag. It returns the
// first violation found, so when several apply the one reported
// follows registration order, not constraint kind. excludeRowIdx
// excludes a row index from UNIQUE/PRIMARY KEY comparisons (used by
// UpdateRows and Upsert, where the row
// being updated should not conflict with its own prior values);
// pass -1 when validating a fresh insert. Caller must hold t.mu.
func (t *Table) validateRowLocked(candidate []string, excludeRowIdx int) error {
	for _, c := range t.constraint {
		switch c.Type {
		case ConstraintNotNull:
			if err := t.checkNotNullLocked(c, candidate); err != nil {
				return err
			}
		case ConstraintUnique:
			if err := t.checkUniqueLocked(c, candidate, excludeRowIdx); err != nil {
				return err
			}
		case ConstraintPrimaryKey:
			if err := t.checkNotNullLocked(c, candidate); err != nil {
				return err
			}
			if err := t.checkUniqueLocked(c, candidate, excludeRowIdx); err != nil {
				return err
			}
		case ConstraintCheck:
			if err := t.checkCheckLocked(c, candidate); err != nil {
				return err
			}
		case ConstraintForeignKey:
			if err := t.checkForeignKeyLocked(c, candidate); err != nil {
				return err
			}
		}
	}
	for i, col := range t.columns {
		if col.NotNull && i < len(candidate) && types.IsAbsent(candidate[i]) {
			return &ConstraintError{ConstraintName: col.Name + "_not_null", Kind: ConstraintNotNull}
		}
	}
	return nil
}

func (t *Table) checkNotNullLocked(c *Constraint, candidate []string) error {
	for _, colName := range c.Columns {
		idx := t.columnIndexLocked(colName)
		if idx < 0 || idx >= len(candidate) || types.IsAbsent(candidate[idx]) {
			return &ConstraintError{ConstraintName: c.Name, Kind: c.Type}
		}
	}
	return nil
}

func (t *Table) checkUniqueLocked(c *Constraint, candidate []string, excludeRowIdx int) error {
	indices := make([]int, len(c.Columns))
	for i, colName := range c.Columns {
		indices[i] = t.columnIndexLocked(colName)
	}
	for rowIdx, row := range t.rows {
		if rowIdx == excludeRowIdx {
			continue
		}
		match := true
		for _, idx := range indices {
			if idx < 0 || idx >= len(row) || idx >= len(candidate) || row[idx] != candidate[idx] {
				match = false
				break
			}
		}
		if match {
			return &ConstraintError{ConstraintName: c.Name, Kind: c.Type}
		}
	}
	return nil
}

func (t *Table) checkCheckLocked(c *Constraint, candidate []string) error {
	node, err := c.parsedCheck()
	if err != nil {
		return err
	}
	if !node.Evaluate(candidate, exprColumns(t.columns)) {
		return &ConstraintError{ConstraintName: c.Name, Kind: ConstraintCheck}
	}
	return nil
}

func (t *Table) checkForeignKeyLocked(c *Constraint, candidate []string) error {
	if t.fkRegistry == nil {
		return nil
	}
	sourceColumns := make([]string, len(t.columns))
	for i, col := range t.columns {
		sourceColumns[i] = col.Name
	}
	fc := fk.Constraint{
		Name:            c.Name,
		Columns:         c.Columns,
		ReferencedTable: c.RefTable,
		ReferencedCols:  c.RefColumns,
	}
	if !t.fkRegistry.Validate(fc, candidate, sourceColumns) {
		return &ConstraintError{ConstraintName: c.Name, Kind: ConstraintForeignKey}
	}
	return nil
}
