// Package engine is the database facade: it ties the catalog,
// foreign-key registry, lock manager, and transaction factory
// together behind a single entry point for DDL/DML.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"coredb/pkg/catalog"
	"coredb/pkg/config"
	"coredb/pkg/fk"
	"coredb/pkg/lockmgr"
	"coredb/pkg/table"
	"coredb/pkg/txn"
	"coredb/pkg/types"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
)

// Engine is the database-level facade. It owns the catalog, the
// foreign-key registry, the lock manager, and every live table;
// transactions are spawned from it and operate against the same
// shared state.
type Engine struct {
	mu      sync.RWMutex
	tables  map[string]*table.Table // lower-cased name -> table
	catalog *catalog.Catalog
	fkReg   *fk.Registry
	locks   *lockmgr.LockManager

	cfg    *config.Config
	logger *log.Logger

	nextTxnID atomic.Uint64
	txnsMu    sync.Mutex
	txns      map[uint64]*txn.Transaction
}

// New creates an empty engine. logOut receives structured log lines;
// pass nil to discard them.
func New(cfg *config.Config, logOut io.Writer) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logOut == nil {
		logOut = io.Discard
	}
	return &Engine{
		tables:  make(map[string]*table.Table),
		catalog: catalog.New(),
		fkReg:   fk.NewRegistry(),
		locks:   lockmgr.New(),
		cfg:     cfg,
		logger:  log.New(logOut, "coredb: ", log.LstdFlags),
		txns:    make(map[uint64]*txn.Transaction),
	}
}

func key(name string) string { return strings.ToLower(name) }

// GetTable satisfies txn.Database and is used directly by callers
// that only need read access outside of a transaction.
func (e *Engine) GetTable(name string) (*table.Table, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tables[key(name)]
	return t, ok
}

// TableExists reports whether name is registered.
func (e *Engine) TableExists(name string) bool {
	return e.catalog.TableExists(name)
}

// CreateTable registers a new table in the catalog and instantiates
// its row store, wiring it into the foreign-key registry so other
// tables may reference it.
func (e *Engine) CreateTable(name string, columns []table.Column) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.catalog.AddTable(name); err != nil {
		return ErrTableExists
	}
	t := table.New(name, columns, e.fkReg)
	e.tables[key(name)] = t
	e.fkReg.Register(fk.TableInfo{
		TableName: name,
		Columns:   columnNames(columns),
		ValueExists: func(column, value string) bool {
			return e.valueExists(name, column, value)
		},
		GetAllRows: func() [][]string {
			return e.allRows(name)
		},
	})
	e.logger.Printf("table %q created", name)
	return nil
}

func columnNames(cols []table.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func (e *Engine) valueExists(tableName, column, value string) bool {
	e.mu.RLock()
	t, ok := e.tables[key(tableName)]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	rs, err := t.SelectRows(table.SelectOptions{Columns: []string{column}})
	if err != nil {
		return false
	}
	for _, row := range rs.Rows {
		if len(row) > 0 && row[0] == value {
			return true
		}
	}
	return false
}

func (e *Engine) allRows(tableName string) [][]string {
	e.mu.RLock()
	t, ok := e.tables[key(tableName)]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	rs, err := t.SelectRows(table.SelectOptions{})
	if err != nil {
		return nil
	}
	return rs.Rows
}

// DropTable unregisters a table, cascading to its catalog entries
// (indexes, privileges) and un-registering it from the FK registry.
func (e *Engine) DropTable(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.catalog.DropTable(name); err != nil {
		return ErrTableNotFound
	}
	delete(e.tables, key(name))
	e.fkReg.Unregister(name)
	e.logger.Printf("table %q dropped", name)
	return nil
}

// RenameTable renames a table in both the catalog and the live table
// map, re-registering it with the FK registry under its new name.
func (e *Engine) RenameTable(oldName, newName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.catalog.RenameTable(oldName, newName); err != nil {
		return err
	}
	t, ok := e.tables[key(oldName)]
	if !ok {
		return ErrTableNotFound
	}
	delete(e.tables, key(oldName))
	e.tables[key(newName)] = t
	e.fkReg.Unregister(oldName)
	e.fkReg.Register(fk.TableInfo{
		TableName: newName,
		Columns:   columnNames(t.Columns()),
		ValueExists: func(column, value string) bool {
			return e.valueExists(newName, column, value)
		},
		GetAllRows: func() [][]string {
			return e.allRows(newName)
		},
	})
	return nil
}

// Catalog exposes the underlying catalog for DDL-adjacent operations
// (views, indexes, types, assertions, privileges) that don't need
// row-level access.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Begin starts a new transaction bound to this engine's tables and
// lock manager.
func (e *Engine) Begin(level txn.IsolationLevel) (*txn.Transaction, error) {
	id := e.nextTxnID.Add(1)
	tx := txn.New(id, level, e, e.locks)
	if err := tx.Begin(); err != nil {
		return nil, err
	}
	e.txnsMu.Lock()
	e.txns[id] = tx
	e.txnsMu.Unlock()
	return tx, nil
}

// Commit commits tx and forgets it.
func (e *Engine) Commit(tx *txn.Transaction) error {
	if err := tx.Commit(); err != nil {
		return err
	}
	e.txnsMu.Lock()
	delete(e.txns, tx.ID())
	e.txnsMu.Unlock()
	return nil
}

// Rollback rolls tx back and forgets it.
func (e *Engine) Rollback(tx *txn.Transaction) error {
	if err := tx.Rollback(); err != nil {
		return err
	}
	e.txnsMu.Lock()
	delete(e.txns, tx.ID())
	e.txnsMu.Unlock()
	return nil
}

// withImplicitTxn runs fn under tx if non-nil, else spins up an
// auto-committing transaction for the single operation — for callers
// that issue DML outside an explicit BEGIN.
func (e *Engine) withImplicitTxn(tx *txn.Transaction, tableName string, fn func(tx *txn.Transaction) error) error {
	if tx != nil {
		return fn(tx)
	}
	implicit, err := e.Begin(txn.Serializable)
	if err != nil {
		return err
	}
	defer implicit.Close()
	if err := fn(implicit); err != nil {
		e.Rollback(implicit)
		return err
	}
	return e.Commit(implicit)
}

// AddRow inserts a row under tx (or an implicit auto-commit
// transaction if tx is nil).
func (e *Engine) AddRow(tx *txn.Transaction, tableName string, values []string) error {
	return e.withImplicitTxn(tx, tableName, func(tx *txn.Transaction) error {
		if err := tx.PrepareWrite(tableName); err != nil {
			return err
		}
		t, ok := e.GetTable(tableName)
		if !ok {
			return ErrTableNotFound
		}
		_, err := t.AddRow(values)
		return err
	})
}

// UpdateRows updates matching rows under tx.
func (e *Engine) UpdateRows(tx *txn.Transaction, tableName string, updates map[string]string, condition string) (int, error) {
	var n int
	err := e.withImplicitTxn(tx, tableName, func(tx *txn.Transaction) error {
		if err := tx.PrepareWrite(tableName); err != nil {
			return err
		}
		t, ok := e.GetTable(tableName)
		if !ok {
			return ErrTableNotFound
		}
		var err error
		n, err = t.UpdateRows(updates, condition)
		return err
	})
	return n, err
}

// DeleteRows deletes matching rows under tx. Before removing anything
// it consults the FK registry for tables that reference tableName: a
// reference with no matching child rows is ignored, one with
// CascadeDelete set has its matching child rows removed first
// (recursively, so a chain of cascades unwinds from the bottom up),
// and anything else fails the whole call with a ConstraintError,
// leaving every table untouched.
func (e *Engine) DeleteRows(tx *txn.Transaction, tableName string, condition string) (int, error) {
	var n int
	err := e.withImplicitTxn(tx, tableName, func(tx *txn.Transaction) error {
		if err := tx.PrepareWrite(tableName); err != nil {
			return err
		}
		t, ok := e.GetTable(tableName)
		if !ok {
			return ErrTableNotFound
		}
		matched, err := t.SelectRows(table.SelectOptions{Condition: condition})
		if err != nil {
			return err
		}
		if err := e.enforceReferencedBy(tx, tableName, matched); err != nil {
			return err
		}
		n, err = t.DeleteRows(condition)
		return err
	})
	return n, err
}

// enforceReferencedBy walks every table that references tableName and,
// for each row about to be deleted, checks whether a child row still
// points at it.
func (e *Engine) enforceReferencedBy(tx *txn.Transaction, tableName string, matched table.ResultSet) error {
	refs := e.fkReg.ReferencesTo(tableName)
	if len(refs) == 0 || len(matched.Rows) == 0 {
		return nil
	}

	parentCols := make([]string, len(matched.Columns))
	for i, c := range matched.Columns {
		parentCols[i] = c.Name
	}

	for _, ref := range refs {
		parentIdx := columnPositions(parentCols, ref.ParentColumns)
		childTbl, ok := e.GetTable(ref.ChildTable)
		if !ok {
			continue
		}
		for _, row := range matched.Rows {
			key, complete := extractKey(row, parentIdx)
			if !complete {
				continue // NULL/missing parent key: nothing can reference it
			}
			cond := equalityCondition(ref.ChildColumns, key)
			if cond == "" {
				continue
			}
			rs, err := childTbl.SelectRows(table.SelectOptions{Condition: cond})
			if err != nil {
				return err
			}
			if len(rs.Rows) == 0 {
				continue
			}
			if !ref.CascadeDelete {
				return &table.ConstraintError{ConstraintName: ref.ConstraintName, Kind: table.ConstraintForeignKey}
			}
			if _, err := e.DeleteRows(tx, ref.ChildTable, cond); err != nil {
				return err
			}
		}
	}
	return nil
}

// columnPositions maps each name in names to its index within cols
// (case-insensitive), or -1 if absent.
func columnPositions(cols []string, names []string) []int {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = -1
		for j, c := range cols {
			if strings.EqualFold(c, name) {
				idx[i] = j
				break
			}
		}
	}
	return idx
}

// extractKey reads the cells at idx out of row, reporting false if any
// position is missing, out of range, or NULL.
func extractKey(row []string, idx []int) ([]string, bool) {
	key := make([]string, len(idx))
	for i, pos := range idx {
		if pos < 0 || pos >= len(row) || types.IsAbsent(row[pos]) {
			return nil, false
		}
		key[i] = row[pos]
	}
	return key, true
}

// equalityCondition builds a predicate-grammar condition string
// matching columns to values by position, ANDed together.
func equalityCondition(columns []string, values []string) string {
	n := len(columns)
	if len(values) < n {
		n = len(values)
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, columns[i]+" = "+quoteLiteral(values[i]))
	}
	return strings.Join(parts, " AND ")
}

// quoteLiteral renders v as a single-quoted predicate-grammar string
// literal, backslash-escaping quotes and backslashes.
func quoteLiteral(v string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// SelectRows reads rows under tx, acquiring a shared lock unless tx
// already holds an exclusive lock.
func (e *Engine) SelectRows(tx *txn.Transaction, tableName string, opts table.SelectOptions) (table.ResultSet, error) {
	var rs table.ResultSet
	err := e.withImplicitTxn(tx, tableName, func(tx *txn.Transaction) error {
		if _, err := tx.LockShared(tableName); err != nil {
			return err
		}
		t, ok := e.GetTable(tableName)
		if !ok {
			return ErrTableNotFound
		}
		var err error
		rs, err = t.SelectRows(opts)
		return err
	})
	return rs, err
}

// Upsert inserts or updates a row by keyColumns under tx.
func (e *Engine) Upsert(tx *txn.Transaction, tableName string, values []string, keyColumns []string) (bool, error) {
	var inserted bool
	err := e.withImplicitTxn(tx, tableName, func(tx *txn.Transaction) error {
		if err := tx.PrepareWrite(tableName); err != nil {
			return err
		}
		t, ok := e.GetTable(tableName)
		if !ok {
			return ErrTableNotFound
		}
		var err error
		inserted, err = t.Upsert(values, keyColumns)
		return err
	})
	return inserted, err
}

// String renders a short diagnostic summary: the number of live
// tables.
func (e *Engine) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fmt.Sprintf("coredb engine: %d tables", len(e.tables))
}
