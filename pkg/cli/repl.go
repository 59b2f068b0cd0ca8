// pkg/cli/repl.go
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"

	"coredb/pkg/config"
	"coredb/pkg/engine"
	"coredb/pkg/predicate"
	"coredb/pkg/table"
	"coredb/pkg/txn"
)

// REPL is the thin interactive loop the engine hands results off to.
// Its command language is dot-commands only — it never compiles SQL.
type REPL struct {
	eng   *engine.Engine
	shell *Shell

	output    io.Writer
	errOutput io.Writer

	running       bool
	exitRequested bool
	tx            *txn.Transaction
}

// NewREPL creates a REPL reading from stdin, writing to output/errOutput.
func NewREPL(cfg *config.Config, output, errOutput io.Writer) *REPL {
	return NewREPLWithInput(cfg, os.Stdin, output, errOutput)
}

// NewREPLWithInput creates a REPL with custom input/output streams —
// useful for scripted or test-driven operation.
func NewREPLWithInput(cfg *config.Config, input io.Reader, output, errOutput io.Writer) *REPL {
	return &REPL{
		eng:       engine.New(cfg, output),
		shell:     NewShell(input, output, errOutput),
		output:    output,
		errOutput: errOutput,
	}
}

// Close ends any still-active transaction, rolling it back.
func (r *REPL) Close() error {
	if r.tx != nil {
		return r.tx.Close()
	}
	return nil
}

// Run starts the loop, reading and dispatching commands until EOF or
// .exit.
func (r *REPL) Run() {
	r.running = true
	r.exitRequested = false

	fmt.Fprintln(r.output, "coredb")
	fmt.Fprintln(r.output, `Enter ".help" for usage hints.`)

	for r.running && !r.exitRequested {
		stmt, eof := r.shell.ReadStatement()

		if eof && stmt == "" {
			fmt.Fprintln(r.output)
			break
		}

		stmt = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
		if stmt == "" {
			if eof {
				break
			}
			continue
		}

		r.dispatch(stmt)

		if eof {
			break
		}
	}

	r.running = false
}

func (r *REPL) dispatch(cmd string) {
	if !strings.HasPrefix(cmd, ".") {
		fmt.Fprintln(r.errOutput, `Error: only dot-commands are supported; try ".help"`)
		return
	}

	parts := strings.Fields(cmd)
	switch strings.ToLower(parts[0]) {
	case ".exit", ".quit":
		r.exitRequested = true
	case ".help":
		r.printHelp()
	case ".tables":
		r.showTables()
	case ".schema":
		if len(parts) > 1 {
			r.showSchema(parts[1])
		} else {
			r.showAllSchemas()
		}
	case ".dump":
		r.dump(parts[1:])
	case ".explain":
		r.explain(strings.TrimSpace(strings.TrimPrefix(cmd, parts[0])))
	case ".begin":
		r.begin()
	case ".commit":
		r.commit()
	case ".rollback":
		r.rollback()
	case ".insert":
		r.insert(parts[1:])
	case ".select":
		r.selectRows(parts[1:])
	case ".delete":
		r.delete(parts[1:])
	default:
		fmt.Fprintf(r.errOutput, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(r.errOutput, `Use ".help" for usage hints.`)
	}
}

func (r *REPL) printHelp() {
	help := `
.begin                        Start a transaction
.commit                        Commit the active transaction
.rollback                       Roll back the active transaction
.delete TABLE WHERE_CLAUSE      Delete matching rows
.dump TABLE                     Pretty-print every row in TABLE
.explain CONDITION               Parse CONDITION and print its expression tree
.exit / .quit                    Exit this program
.help                             Show this help message
.insert TABLE v1,v2,...          Insert a row of comma-separated values
.schema [TABLE]                   Show column layout for table(s)
.select TABLE [WHERE_CLAUSE]      Select and print matching rows
.tables                            List all tables

Commands are terminated with a semicolon. Multi-line input is supported.
`
	fmt.Fprintln(r.output, help)
}

func (r *REPL) showTables() {
	names := r.eng.Catalog().TableNames()
	if len(names) == 0 {
		fmt.Fprintln(r.output, "(no tables)")
		return
	}
	for _, name := range names {
		fmt.Fprintln(r.output, name)
	}
}

func (r *REPL) showSchema(tableName string) {
	t, ok := r.eng.GetTable(tableName)
	if !ok {
		fmt.Fprintf(r.errOutput, "Error: no such table: %s\n", tableName)
		return
	}
	fmt.Fprintln(r.output, describeTable(t))
}

func (r *REPL) showAllSchemas() {
	for _, name := range r.eng.Catalog().TableNames() {
		t, ok := r.eng.GetTable(name)
		if ok {
			fmt.Fprintln(r.output, describeTable(t))
		}
	}
}

func describeTable(t *table.Table) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (", t.Name())
	for i, c := range t.Columns() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", c.Name, c.Type)
		if c.NotNull {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

func (r *REPL) dump(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.errOutput, "Error: .dump requires a table name")
		return
	}
	rs, err := r.eng.SelectRows(r.tx, args[0], table.SelectOptions{})
	if err != nil {
		r.printError(err)
		return
	}
	printer := pp.New()
	printer.SetOutput(r.output)
	printer.Println(rs)
}

func (r *REPL) explain(condition string) {
	node, err := predicate.Parse(condition)
	if err != nil {
		r.printError(err)
		return
	}
	printer := pp.New()
	printer.SetOutput(r.output)
	printer.Println(node)
}

func (r *REPL) begin() {
	if r.tx != nil {
		fmt.Fprintln(r.errOutput, "Error: transaction already active")
		return
	}
	tx, err := r.eng.Begin(txn.Serializable)
	if err != nil {
		r.printError(err)
		return
	}
	r.tx = tx
	fmt.Fprintln(r.output, "transaction started")
}

func (r *REPL) commit() {
	if r.tx == nil {
		fmt.Fprintln(r.errOutput, "Error: no active transaction")
		return
	}
	err := r.eng.Commit(r.tx)
	r.tx = nil
	if err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintln(r.output, "commit")
}

func (r *REPL) rollback() {
	if r.tx == nil {
		fmt.Fprintln(r.errOutput, "Error: no active transaction")
		return
	}
	err := r.eng.Rollback(r.tx)
	r.tx = nil
	if err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintln(r.output, "rollback")
}

func (r *REPL) insert(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(r.errOutput, "Error: usage is .insert TABLE v1,v2,...")
		return
	}
	values := strings.Split(strings.Join(args[1:], " "), ",")
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	if err := r.eng.AddRow(r.tx, args[0], values); err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintln(r.output, "1 row inserted")
}

func (r *REPL) selectRows(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.errOutput, "Error: usage is .select TABLE [WHERE_CLAUSE]")
		return
	}
	condition := ""
	if len(args) > 1 && strings.EqualFold(args[1], "where") {
		condition = strings.Join(args[2:], " ")
	}
	rs, err := r.eng.SelectRows(r.tx, args[0], table.SelectOptions{Condition: condition})
	if err != nil {
		r.printError(err)
		return
	}
	r.displayTable(rs)
}

func (r *REPL) delete(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.errOutput, "Error: usage is .delete TABLE WHERE_CLAUSE")
		return
	}
	condition := ""
	if len(args) > 1 && strings.EqualFold(args[1], "where") {
		condition = strings.Join(args[2:], " ")
	}
	n, err := r.eng.DeleteRows(r.tx, args[0], condition)
	if err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintf(r.output, "%d row(s) deleted\n", n)
}

func (r *REPL) displayTable(rs table.ResultSet) {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	widths := make([]int, len(names))
	for i, n := range names {
		widths[i] = len(n)
	}
	for _, row := range rs.Rows {
		for i, v := range row {
			if i < len(widths) && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	r.printSeparator(widths)
	r.printRow(names, widths)
	r.printSeparator(widths)
	for _, row := range rs.Rows {
		r.printRow(row, widths)
	}
	r.printSeparator(widths)
	fmt.Fprintf(r.output, "%d row(s)\n", len(rs.Rows))
}

func (r *REPL) printSeparator(widths []int) {
	fmt.Fprint(r.output, "+")
	for _, w := range widths {
		fmt.Fprint(r.output, strings.Repeat("-", w+2)+"+")
	}
	fmt.Fprintln(r.output)
}

func (r *REPL) printRow(values []string, widths []int) {
	fmt.Fprint(r.output, "|")
	for i, v := range values {
		fmt.Fprintf(r.output, " %-*s |", widths[i], v)
	}
	fmt.Fprintln(r.output)
}

func (r *REPL) printError(err error) {
	fmt.Fprintf(r.errOutput, "Error: %v\n", err)
}
