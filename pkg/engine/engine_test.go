package engine

import (
	"testing"

	"coredb/pkg/table"
	"coredb/pkg/types"
)

func usersCols() []table.Column {
	return []table.Column{
		{Name: "id", Type: types.Integer, NotNull: true},
		{Name: "name", Type: types.StringType},
	}
}

func TestCreateAndDropTable(t *testing.T) {
	e := New(nil, nil)
	if err := e.CreateTable("users", usersCols()); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if !e.TableExists("USERS") {
		t.Error("expected case-insensitive table existence")
	}
	if err := e.CreateTable("users", usersCols()); err != ErrTableExists {
		t.Errorf("expected ErrTableExists, got %v", err)
	}
	if err := e.DropTable("users"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if e.TableExists("users") {
		t.Error("expected table to be gone after drop")
	}
}

func TestAddRowWithoutExplicitTransaction(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())
	if err := e.AddRow(nil, "users", []string{"1", "Alice"}); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}
	rs, err := e.SelectRows(nil, "users", table.SelectOptions{})
	if err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	if len(rs.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rs.Rows))
	}
}

func TestImplicitTransactionRollsBackOnConstraintViolation(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())
	if err := e.AddRow(nil, "users", []string{"1", "Alice"}); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}
	// NOT NULL violation: empty id.
	err := e.AddRow(nil, "users", []string{"", "Bob"})
	if err == nil {
		t.Fatal("expected NOT NULL violation")
	}
	rs, _ := e.SelectRows(nil, "users", table.SelectOptions{})
	if len(rs.Rows) != 1 {
		t.Errorf("expected row count unaffected by failed insert, got %d", len(rs.Rows))
	}
}

func TestExplicitTransactionCommit(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())

	tx, err := e.Begin(0)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := e.AddRow(tx, "users", []string{"1", "Alice"}); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}
	if err := e.Commit(tx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	rs, _ := e.SelectRows(nil, "users", table.SelectOptions{})
	if len(rs.Rows) != 1 {
		t.Errorf("expected 1 row after commit, got %d", len(rs.Rows))
	}
}

func TestExplicitTransactionRollback(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())
	e.AddRow(nil, "users", []string{"1", "Alice"})

	tx, _ := e.Begin(0)
	if err := e.AddRow(tx, "users", []string{"2", "Bob"}); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}
	if err := e.Rollback(tx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	rs, _ := e.SelectRows(nil, "users", table.SelectOptions{})
	if len(rs.Rows) != 1 {
		t.Errorf("expected rollback to discard the second insert, got %d rows", len(rs.Rows))
	}
}

func TestForeignKeyValidationAcrossTables(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())
	e.AddRow(nil, "users", []string{"1", "Alice"})

	ordersCols := []table.Column{
		{Name: "id", Type: types.Integer},
		{Name: "user_id", Type: types.Integer},
	}
	e.CreateTable("orders", ordersCols)
	ordersTbl, _ := e.GetTable("orders")
	ordersTbl.AddConstraint(&table.Constraint{
		Type:       table.ConstraintForeignKey,
		Name:       "fk_user",
		Columns:    []string{"user_id"},
		RefTable:   "users",
		RefColumns: []string{"id"},
	})

	if err := e.AddRow(nil, "orders", []string{"100", "1"}); err != nil {
		t.Fatalf("expected valid FK insert to succeed: %v", err)
	}
	if err := e.AddRow(nil, "orders", []string{"101", "999"}); err == nil {
		t.Fatal("expected FK violation for nonexistent user_id")
	}
}

func TestRenameTableKeepsFKRegistrationWorking(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())
	e.AddRow(nil, "users", []string{"1", "Alice"})

	if err := e.RenameTable("users", "accounts"); err != nil {
		t.Fatalf("RenameTable failed: %v", err)
	}
	if e.TableExists("users") {
		t.Error("expected old name to be gone")
	}
	rs, err := e.SelectRows(nil, "accounts", table.SelectOptions{})
	if err != nil {
		t.Fatalf("SelectRows on renamed table failed: %v", err)
	}
	if len(rs.Rows) != 1 {
		t.Errorf("expected renamed table to retain its row, got %d", len(rs.Rows))
	}
}

func TestUpsertInsertsThenUpdates(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())

	inserted, err := e.Upsert(nil, "users", []string{"1", "Alice"}, []string{"id"})
	if err != nil || !inserted {
		t.Fatalf("expected first Upsert to insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = e.Upsert(nil, "users", []string{"1", "Alicia"}, []string{"id"})
	if err != nil || inserted {
		t.Fatalf("expected second Upsert to update: inserted=%v err=%v", inserted, err)
	}
	rs, _ := e.SelectRows(nil, "users", table.SelectOptions{})
	if len(rs.Rows) != 1 || rs.Rows[0][1] != "Alicia" {
		t.Errorf("expected updated row, got %v", rs.Rows)
	}
}

func TestDropUnknownTableFails(t *testing.T) {
	e := New(nil, nil)
	if err := e.DropTable("ghost"); err != ErrTableNotFound {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func setupParentChild(t *testing.T, cascade bool) *Engine {
	t.Helper()
	e := New(nil, nil)
	e.CreateTable("p", []table.Column{{Name: "id", Type: types.Integer}})
	e.AddRow(nil, "p", []string{"1"})
	e.AddRow(nil, "p", []string{"2"})

	e.CreateTable("c", []table.Column{{Name: "pid", Type: types.Integer}})
	cTbl, _ := e.GetTable("c")
	cTbl.AddConstraint(&table.Constraint{
		Type:          table.ConstraintForeignKey,
		Name:          "fk_pid",
		Columns:       []string{"pid"},
		RefTable:      "p",
		RefColumns:    []string{"id"},
		CascadeDelete: cascade,
	})
	e.AddRow(nil, "c", []string{"1"})
	e.AddRow(nil, "c", []string{"1"})
	e.AddRow(nil, "c", []string{"2"})
	return e
}

func TestDeleteRowsCascadesToReferencingRows(t *testing.T) {
	e := setupParentChild(t, true)

	n, err := e.DeleteRows(nil, "p", "id = 1")
	if err != nil {
		t.Fatalf("expected cascade delete to succeed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 parent row removed, got %d", n)
	}

	rs, _ := e.SelectRows(nil, "c", table.SelectOptions{})
	if len(rs.Rows) != 1 || rs.Rows[0][0] != "2" {
		t.Errorf("expected only the pid=2 child row to survive, got %v", rs.Rows)
	}

	rsP, _ := e.SelectRows(nil, "p", table.SelectOptions{})
	if len(rsP.Rows) != 1 || rsP.Rows[0][0] != "2" {
		t.Errorf("expected only parent row id=2 to survive, got %v", rsP.Rows)
	}
}

func TestDeleteRowsRejectsWithoutCascade(t *testing.T) {
	e := setupParentChild(t, false)

	_, err := e.DeleteRows(nil, "p", "id = 1")
	if err == nil {
		t.Fatal("expected delete to fail without cascade")
	}
	ce, ok := err.(*table.ConstraintError)
	if !ok || ce.Kind != table.ConstraintForeignKey {
		t.Fatalf("expected a foreign-key ConstraintError, got %v (%T)", err, err)
	}

	rsP, _ := e.SelectRows(nil, "p", table.SelectOptions{})
	if len(rsP.Rows) != 2 {
		t.Errorf("expected no parent rows removed on rejection, got %d", len(rsP.Rows))
	}
	rsC, _ := e.SelectRows(nil, "c", table.SelectOptions{})
	if len(rsC.Rows) != 3 {
		t.Errorf("expected no child rows removed on rejection, got %d", len(rsC.Rows))
	}
}

func TestDeleteRowsWithoutReferencesIsUnaffected(t *testing.T) {
	e := New(nil, nil)
	e.CreateTable("users", usersCols())
	e.AddRow(nil, "users", []string{"1", "Alice"})
	e.AddRow(nil, "users", []string{"2", "Bob"})

	n, err := e.DeleteRows(nil, "users", "id = 1")
	if err != nil {
		t.Fatalf("expected delete with no referencing tables to succeed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row removed, got %d", n)
	}
}
