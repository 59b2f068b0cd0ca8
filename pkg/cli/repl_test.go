// pkg/cli/repl_test.go
package cli

import (
	"bytes"
	"strings"
	"testing"

	"coredb/pkg/table"
	"coredb/pkg/types"
)

func newTestREPL() (*REPL, *bytes.Buffer, *bytes.Buffer) {
	output := &bytes.Buffer{}
	errOutput := &bytes.Buffer{}
	repl := NewREPLWithInput(nil, strings.NewReader(""), output, errOutput)
	return repl, output, errOutput
}

func TestDispatchCreatesAndListsTables(t *testing.T) {
	repl, output, _ := newTestREPL()
	repl.eng.CreateTable("users", []table.Column{
		{Name: "id", Type: types.Integer},
		{Name: "name", Type: types.StringType},
	})

	repl.dispatch(".tables")
	if !strings.Contains(output.String(), "users") {
		t.Errorf("expected .tables to list users, got: %s", output.String())
	}
}

func TestDispatchInsertAndSelect(t *testing.T) {
	repl, output, errOutput := newTestREPL()
	repl.eng.CreateTable("users", []table.Column{
		{Name: "id", Type: types.Integer},
		{Name: "name", Type: types.StringType},
	})

	repl.dispatch(".insert users 1, Alice")
	if errOutput.Len() > 0 {
		t.Fatalf("unexpected error: %s", errOutput.String())
	}

	output.Reset()
	repl.dispatch(".select users")
	result := output.String()
	if !strings.Contains(result, "Alice") {
		t.Errorf("expected select output to contain Alice, got: %s", result)
	}
	if !strings.Contains(result, "1 row(s)") {
		t.Errorf("expected row count footer, got: %s", result)
	}
}

func TestDispatchSelectWithWhere(t *testing.T) {
	repl, output, _ := newTestREPL()
	repl.eng.CreateTable("users", []table.Column{
		{Name: "id", Type: types.Integer},
		{Name: "name", Type: types.StringType},
	})
	repl.dispatch(".insert users 1, Alice")
	repl.dispatch(".insert users 2, Bob")

	output.Reset()
	repl.dispatch(".select users where name = 'Bob'")
	result := output.String()
	if strings.Contains(result, "Alice") {
		t.Errorf("expected filtered select to exclude Alice, got: %s", result)
	}
	if !strings.Contains(result, "Bob") {
		t.Errorf("expected filtered select to include Bob, got: %s", result)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	repl, _, errOutput := newTestREPL()
	repl.dispatch(".frobnicate")
	if !strings.Contains(errOutput.String(), "Unknown command") {
		t.Errorf("expected unknown command error, got: %s", errOutput.String())
	}
}

func TestDispatchRejectsNonDotCommands(t *testing.T) {
	repl, _, errOutput := newTestREPL()
	repl.dispatch("SELECT * FROM users")
	if !strings.Contains(errOutput.String(), "dot-commands") {
		t.Errorf("expected rejection of non-dot input, got: %s", errOutput.String())
	}
}

func TestBeginRollbackLifecycle(t *testing.T) {
	repl, output, errOutput := newTestREPL()
	repl.eng.CreateTable("users", []table.Column{{Name: "id", Type: types.Integer}})

	repl.dispatch(".begin")
	if repl.tx == nil {
		t.Fatal("expected .begin to start a transaction")
	}
	repl.dispatch(".begin")
	if !strings.Contains(errOutput.String(), "already active") {
		t.Errorf("expected double-begin error, got: %s", errOutput.String())
	}

	errOutput.Reset()
	repl.dispatch(".insert users 1")
	repl.dispatch(".rollback")
	if repl.tx != nil {
		t.Error("expected .rollback to clear the active transaction")
	}

	output.Reset()
	repl.dispatch(".select users")
	if strings.Contains(output.String(), "1 row(s)") {
		t.Errorf("expected rollback to discard the insert, got: %s", output.String())
	}
}

func TestExplainPrintsWithoutError(t *testing.T) {
	repl, output, errOutput := newTestREPL()
	repl.dispatch(".explain id = 1")
	if errOutput.Len() > 0 {
		t.Fatalf("unexpected error: %s", errOutput.String())
	}
	if output.Len() == 0 {
		t.Error("expected .explain to print the parsed expression tree")
	}
}

func TestRunExitsOnDotExit(t *testing.T) {
	output := &bytes.Buffer{}
	errOutput := &bytes.Buffer{}
	repl := NewREPLWithInput(nil, strings.NewReader(".exit\n"), output, errOutput)

	repl.Run()

	if errOutput.Len() > 0 {
		t.Errorf("unexpected error output: %s", errOutput.String())
	}
}
