package storage

import (
	"bytes"
	"testing"

	"coredb/pkg/table"
	"coredb/pkg/types"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	cols := []table.Column{
		{Name: "id", Type: types.Integer, NotNull: true},
		{Name: "name", Type: types.StringType},
	}
	tbl := table.New("users", cols, nil)
	if _, err := tbl.AddRow([]string{"1", "Alice"}); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}
	if _, err := tbl.AddRow([]string{"2", "Bob"}); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}
	return tbl
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tbl := sampleTable(t)

	var buf bytes.Buffer
	if err := SaveTable(&buf, tbl); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	loaded, err := LoadTable(&buf, "users")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if loaded.RowCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", loaded.RowCount())
	}
	cols := loaded.Columns()
	if len(cols) != 2 || cols[0].Name != "id" || !cols[0].NotNull || cols[1].Name != "name" {
		t.Errorf("unexpected columns after round trip: %+v", cols)
	}
	rs, err := loaded.SelectRows(table.SelectOptions{})
	if err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	if rs.Rows[0][1] != "Alice" || rs.Rows[1][1] != "Bob" {
		t.Errorf("unexpected row data after round trip: %v", rs.Rows)
	}
}

func TestLoadTableRejectsTruncatedInput(t *testing.T) {
	if _, err := LoadTable(bytes.NewBufferString("2\nid:INTEGER\n"), "t"); err == nil {
		t.Error("expected error for truncated column section")
	}
}

func TestLoadTableRejectsUnknownType(t *testing.T) {
	in := "1\nid:WIDGET\n0\n"
	if _, err := LoadTable(bytes.NewBufferString(in), "t"); err == nil {
		t.Error("expected error for unknown column type")
	}
}
