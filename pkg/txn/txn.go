// Package txn implements the transaction state machine:
// begin/commit/rollback, write-path snapshot capture, and
// lock-upgrade delegation to pkg/lockmgr.
package txn

import (
	"errors"
	"strings"
	"sync"

	"coredb/pkg/lockmgr"
	"coredb/pkg/table"
)

// IsolationLevel is a recognized isolation tag.
// Every level takes the same locks in this engine (strict two-phase
// locking); the tag is only recorded for caller inspection.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

var (
	ErrAlreadyActive   = errors.New("transaction already active")
	ErrNotActive       = errors.New("no active transaction")
	ErrTableNotFound   = errors.New("table not found")
	ErrLockUnavailable = errors.New("lock not currently available")
)

type state int

const (
	stateNew state = iota
	stateActive
	stateCommitted
	stateRolledBack
)

// Database is the subset of the engine facade the transaction needs
// to snapshot and restore table state on rollback.
type Database interface {
	GetTable(name string) (*table.Table, bool)
	CreateTable(name string, columns []table.Column) error
	DropTable(name string) error
}

// TableState is a captured schema + row snapshot, taken the first
// time a transaction writes to a table.
type TableState struct {
	TableName string
	Columns   []table.Column // nil/empty means the table was freshly created in this txn
	Rows      [][]string
}

// Transaction is a state machine: New -> Active ->
// (Committed | RolledBack), with snapshot-based rollback and
// two-phase-locked table access.
type Transaction struct {
	mu    sync.Mutex
	id    uint64
	level IsolationLevel
	state state

	db    Database
	locks *lockmgr.LockManager

	tableStates    map[string]*TableState
	sharedLocks    map[string]bool
	exclusiveLocks map[string]bool

	closeOnce sync.Once
}

// New creates an inactive transaction; it becomes active only once
// Begin is called.
func New(id uint64, level IsolationLevel, db Database, locks *lockmgr.LockManager) *Transaction {
	return &Transaction{
		id:             id,
		level:          level,
		db:             db,
		locks:          locks,
		tableStates:    make(map[string]*TableState),
		sharedLocks:    make(map[string]bool),
		exclusiveLocks: make(map[string]bool),
	}
}

// ID returns the transaction's id.
func (tx *Transaction) ID() uint64 { return tx.id }

// IsolationLevel returns the transaction's isolation tag.
func (tx *Transaction) IsolationLevel() IsolationLevel { return tx.level }

// Active reports whether the transaction is currently active.
func (tx *Transaction) Active() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state == stateActive
}

// Begin activates the transaction. Double-activation is an error —
// each instance activates at most once, so Begin on an active,
// committed, or rolled-back transaction returns ErrAlreadyActive.
func (tx *Transaction) Begin() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != stateNew {
		return ErrAlreadyActive
	}
	tx.state = stateActive
	return nil
}

func (tx *Transaction) requireActiveLocked() error {
	if tx.state != stateActive {
		return ErrNotActive
	}
	return nil
}

// LockShared acquires a shared lock on tableName unless the
// transaction already holds an exclusive lock on it.
func (tx *Transaction) LockShared(tableName string) (bool, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.requireActiveLocked(); err != nil {
		return false, err
	}
	key := strings.ToLower(tableName)
	if tx.exclusiveLocks[key] {
		return true, nil
	}
	granted, err := tx.locks.TryAcquire(tx.id, key, lockmgr.ResourceTable, lockmgr.Shared)
	if err != nil {
		return false, err
	}
	if granted {
		tx.sharedLocks[key] = true
	}
	return granted, nil
}

// LockExclusive acquires an exclusive lock on tableName, upgrading
// from a held shared lock if necessary.
func (tx *Transaction) LockExclusive(tableName string) (bool, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if err := tx.requireActiveLocked(); err != nil {
		return false, err
	}
	key := strings.ToLower(tableName)
	if tx.exclusiveLocks[key] {
		return true, nil
	}
	granted, err := tx.locks.TryAcquire(tx.id, key, lockmgr.ResourceTable, lockmgr.Exclusive)
	if err != nil {
		return false, err
	}
	if granted {
		delete(tx.sharedLocks, key)
		tx.exclusiveLocks[key] = true
	}
	return granted, nil
}

// PrepareWrite acquires an exclusive lock on tableName and, on first
// write to that table within this transaction, captures its current
// schema and row snapshot.
func (tx *Transaction) PrepareWrite(tableName string) error {
	granted, err := tx.LockExclusive(tableName)
	if err != nil {
		return err
	}
	if !granted {
		return ErrLockUnavailable // caller retries or lets deadlock detection resolve it
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	key := strings.ToLower(tableName)
	if _, exists := tx.tableStates[key]; exists {
		return nil
	}
	tbl, ok := tx.db.GetTable(tableName)
	if !ok {
		return ErrTableNotFound
	}
	tx.tableStates[key] = &TableState{
		TableName: tableName,
		Columns:   tbl.Columns(),
		Rows:      tbl.CloneRows(),
	}
	return nil
}

// CreateTable delegates to the database and records the table as
// freshly created for this transaction, so rollback drops it again.
func (tx *Transaction) CreateTable(tableName string, columns []table.Column) error {
	if _, err := tx.LockExclusive(tableName); err != nil {
		return err
	}
	if err := tx.db.CreateTable(tableName, columns); err != nil {
		return err
	}
	tx.mu.Lock()
	key := strings.ToLower(tableName)
	if _, exists := tx.tableStates[key]; !exists {
		tx.tableStates[key] = &TableState{TableName: tableName}
	}
	tx.mu.Unlock()
	return nil
}

// DropTable captures the table's current state before delegating the
// drop, so rollback can recreate it.
func (tx *Transaction) DropTable(tableName string) error {
	if err := tx.PrepareWrite(tableName); err != nil {
		return err
	}
	return tx.db.DropTable(tableName)
}

// Commit releases every lock held, drops all captured snapshots, and
// marks the transaction committed.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	if err := tx.requireActiveLocked(); err != nil {
		tx.mu.Unlock()
		return err
	}
	tx.state = stateCommitted
	tx.tableStates = make(map[string]*TableState)
	tx.mu.Unlock()

	tx.locks.ReleaseAll(tx.id)
	return nil
}

// Rollback restores every captured snapshot, releases locks, and
// marks the transaction rolled back.
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	if err := tx.requireActiveLocked(); err != nil {
		tx.mu.Unlock()
		return err
	}
	states := tx.tableStates
	tx.tableStates = make(map[string]*TableState)
	tx.state = stateRolledBack
	tx.mu.Unlock()

	for _, st := range states {
		tx.restoreTableState(st)
	}
	tx.locks.ReleaseAll(tx.id)
	return nil
}

// restoreTableState undoes one table's captured state: a
// freshly-created table (no captured columns) is dropped; a table
// dropped during the transaction is recreated with its captured
// schema and refilled; otherwise the row list is simply replaced with
// the snapshot.
func (tx *Transaction) restoreTableState(st *TableState) {
	tbl, exists := tx.db.GetTable(st.TableName)
	if len(st.Columns) == 0 {
		if exists {
			tx.db.DropTable(st.TableName)
		}
		return
	}
	if !exists {
		if err := tx.db.CreateTable(st.TableName, st.Columns); err != nil {
			return
		}
		tbl, _ = tx.db.GetTable(st.TableName)
	}
	if tbl != nil {
		tbl.ReplaceRows(st.Rows)
	}
}

// Close rolls back the transaction if it is still active — Go has no
// deterministic destructors, so callers must invoke Close (typically
// via defer) to get implicit-rollback semantics for a transaction that
// goes out of scope still active. Safe to call more than once.
func (tx *Transaction) Close() error {
	var err error
	tx.closeOnce.Do(func() {
		if tx.Active() {
			err = tx.Rollback()
		}
	})
	return err
}
