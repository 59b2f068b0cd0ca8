package catalog

import "testing"

func TestAddTableCaseInsensitiveDuplicate(t *testing.T) {
	c := New()
	if err := c.AddTable("Users"); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}
	if err := c.AddTable("users"); err != ErrTableExists {
		t.Fatalf("expected ErrTableExists for case-insensitive duplicate, got %v", err)
	}
}

func TestTableExistsCaseInsensitive(t *testing.T) {
	c := New()
	c.AddTable("Orders")
	if !c.TableExists("ORDERS") {
		t.Error("expected case-insensitive lookup to find the table")
	}
}

func TestDisplayNamePreservesCase(t *testing.T) {
	c := New()
	c.AddTable("Orders")
	name, ok := c.DisplayName("orders")
	if !ok || name != "Orders" {
		t.Errorf("DisplayName = %q, %v, want Orders, true", name, ok)
	}
}

func TestDropTableCascadesIndexesAndPrivileges(t *testing.T) {
	c := New()
	c.AddTable("Orders")
	c.AddIndex(&IndexInfo{Name: "idx_orders_id", TableName: "Orders", Columns: []string{"id"}})
	c.Grant("alice", "Orders", "SELECT", false)

	if err := c.DropTable("orders"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if _, ok := c.Index("idx_orders_id"); ok {
		t.Error("expected dependent index to be dropped")
	}
	if c.CheckPrivilege("alice", "Orders", "SELECT") {
		t.Error("expected dependent privilege to be revoked on drop")
	}
}

func TestRenameTableRewritesDependents(t *testing.T) {
	c := New()
	c.AddTable("Orders")
	c.AddIndex(&IndexInfo{Name: "idx", TableName: "Orders"})
	c.Grant("alice", "Orders", "SELECT", false)

	if err := c.RenameTable("Orders", "Purchases"); err != nil {
		t.Fatalf("RenameTable failed: %v", err)
	}
	idx, _ := c.Index("idx")
	if idx.TableName != "Purchases" {
		t.Errorf("index.TableName = %q, want Purchases", idx.TableName)
	}
	if !c.CheckPrivilege("alice", "Purchases", "SELECT") {
		t.Error("expected privilege to follow the rename")
	}
}

func TestGrantRevokeAndAllPrivilege(t *testing.T) {
	c := New()
	c.AddTable("T")
	c.Grant("bob", "T", "ALL", false)
	if !c.CheckPrivilege("bob", "T", "DELETE") {
		t.Error("expected ALL privilege to cover DELETE")
	}
	c.Revoke("bob", "T", "ALL")
	if c.CheckPrivilege("bob", "T", "DELETE") {
		t.Error("expected revoke to remove the privilege")
	}
}

func TestDropTableNotFound(t *testing.T) {
	c := New()
	if err := c.DropTable("missing"); err != ErrTableNotFound {
		t.Errorf("DropTable(missing) = %v, want ErrTableNotFound", err)
	}
}
