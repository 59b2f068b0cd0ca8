// Package fk implements the cross-table foreign-key validator: a
// per-database registry of referenced tables, keyed by lowercased
// name, each carrying its column list and two closures for probing
// values without the caller needing direct access to the referenced
// table's internals.
//
// The registry is an explicit value owned by the database rather than
// a process-wide singleton, so multiple engines in the same process
// never share FK state.
package fk

import (
	"strings"
	"sync"

	"coredb/pkg/types"
)

// TableInfo is what the registry knows about a referenced table.
type TableInfo struct {
	TableName   string
	Columns     []string
	ValueExists func(column, value string) bool
	GetAllRows  func() [][]string
}

// Registry is the foreign-key validator.
type Registry struct {
	mu          sync.Mutex
	tables      map[string]TableInfo
	referencing map[string][]Reference // referenced table (lower) -> who references it
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tables:      make(map[string]TableInfo),
		referencing: make(map[string][]Reference),
	}
}

// Register adds or replaces the referenced-table entry for
// tableName. Registration and table drops are paired — callers must
// call Unregister on drop.
func (r *Registry) Register(info TableInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[strings.ToLower(info.TableName)] = info
}

// Unregister removes tableName's entry, along with any reference edges
// naming it either as the referenced table or as the referencing
// (child) table.
func (r *Registry) Unregister(tableName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(tableName)
	delete(r.tables, key)
	delete(r.referencing, key)
	for parent, refs := range r.referencing {
		kept := refs[:0]
		for _, ref := range refs {
			if strings.ToLower(ref.ChildTable) != key {
				kept = append(kept, ref)
			}
		}
		r.referencing[parent] = kept
	}
}

// Reference is one FOREIGN_KEY edge pointing at a referenced table,
// recorded from the referencing (child) table's side.
type Reference struct {
	ChildTable     string
	ConstraintName string
	ChildColumns   []string
	ParentColumns  []string
	CascadeDelete  bool
	CascadeUpdate  bool
}

// RegisterReference records that childTable's constraint ref points at
// parentTable, so a later delete/update against parentTable can find
// every row that would be left dangling.
func (r *Registry) RegisterReference(parentTable string, ref Reference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(parentTable)
	r.referencing[key] = append(r.referencing[key], ref)
}

// ReferencesTo returns every reference edge recorded against
// parentTable.
func (r *Registry) ReferencesTo(parentTable string) []Reference {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reference(nil), r.referencing[strings.ToLower(parentTable)]...)
}

// Constraint is the minimal shape of a FOREIGN_KEY constraint the
// validator needs.
type Constraint struct {
	Name            string
	Columns         []string
	ReferencedTable string
	ReferencedCols  []string
}

// Validate locates the referenced table, extracts FK values from row
// by position, short-circuits on NULL, then probes for a match — a
// direct single-column probe when possible, else a full scan of the
// referenced rows.
//
// The registry's mutex is released before invoking the registered
// closures, to avoid lock inversion with the referenced table's own
// lock.
func (r *Registry) Validate(c Constraint, row []string, sourceColumns []string) bool {
	r.mu.Lock()
	info, ok := r.tables[strings.ToLower(c.ReferencedTable)]
	r.mu.Unlock()
	if !ok {
		return false
	}

	fkValues := make([]string, 0, len(c.Columns))
	for _, colName := range c.Columns {
		idx := indexOf(sourceColumns, colName)
		if idx < 0 || idx >= len(row) {
			return false
		}
		if types.IsAbsent(row[idx]) {
			return true // FK NULL semantics: satisfied.
		}
		fkValues = append(fkValues, row[idx])
	}

	refIndices := make([]int, 0, len(c.ReferencedCols))
	for _, colName := range c.ReferencedCols {
		idx := indexOf(info.Columns, colName)
		if idx < 0 {
			return false
		}
		refIndices = append(refIndices, idx)
	}

	if len(c.Columns) == 1 && len(c.ReferencedCols) == 1 {
		return info.ValueExists(c.ReferencedCols[0], fkValues[0])
	}

	for _, refRow := range info.GetAllRows() {
		if rowMatches(refRow, refIndices, fkValues) {
			return true
		}
	}
	return false
}

func rowMatches(refRow []string, refIndices []int, fkValues []string) bool {
	for i, idx := range refIndices {
		if idx >= len(refRow) || refRow[idx] != fkValues[i] {
			return false
		}
	}
	return true
}

func indexOf(haystack []string, needle string) int {
	for i, v := range haystack {
		if v == needle {
			return i
		}
	}
	return -1
}
