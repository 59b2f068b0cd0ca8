// Package catalog implements the in-memory metadata registry: tables,
// views, indexes, user-defined types, assertions, and privileges, all
// looked up case-insensitively while preserving the original display
// case.
package catalog

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrTableExists       = errors.New("table already exists")
	ErrTableNotFound     = errors.New("table not found")
	ErrViewExists        = errors.New("view already exists")
	ErrViewNotFound      = errors.New("view not found")
	ErrIndexExists       = errors.New("index already exists")
	ErrIndexNotFound     = errors.New("index not found")
	ErrTypeExists        = errors.New("type already exists")
	ErrTypeNotFound      = errors.New("type not found")
	ErrAssertionExists   = errors.New("assertion already exists")
	ErrAssertionNotFound = errors.New("assertion not found")
)

// IndexInfo is an index catalog entry.
type IndexInfo struct {
	Name      string
	TableName string
	Columns   []string
	Unique    bool
}

// ViewInfo is a view catalog entry.
type ViewInfo struct {
	Name       string
	Definition string
}

// TypeInfo is a user-defined composite type catalog entry.
type TypeInfo struct {
	Name       string
	Attributes []string
}

// AssertionInfo is a standalone CHECK-like assertion catalog entry.
type AssertionInfo struct {
	Name      string
	Condition string
}

// PrivilegeInfo records a grant of a privilege on an object to a
// user. Full authentication/authorization storage is out of scope;
// this is only the catalog-level record of a grant.
type PrivilegeInfo struct {
	Username        string
	ObjectName      string
	PrivilegeType   string
	WithGrantOption bool
}

// Catalog is the case-insensitive metadata registry. Every map is
// keyed by lower-cased name; the stored struct carries the original
// display case rather than folding it at ingestion.
type Catalog struct {
	mu         sync.RWMutex
	tableNames map[string]string // lower -> display case
	views      map[string]*ViewInfo
	indexes    map[string]*IndexInfo
	types      map[string]*TypeInfo
	assertions map[string]*AssertionInfo
	privileges []*PrivilegeInfo
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		tableNames: make(map[string]string),
		views:      make(map[string]*ViewInfo),
		indexes:    make(map[string]*IndexInfo),
		types:      make(map[string]*TypeInfo),
		assertions: make(map[string]*AssertionInfo),
	}
}

func key(name string) string { return strings.ToLower(name) }

// AddTable registers a table name. Table row/schema storage itself
// lives in pkg/table; the catalog only tracks the name for case-
// insensitive existence checks and cascades.
func (c *Catalog) AddTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	if _, exists := c.tableNames[k]; exists {
		return ErrTableExists
	}
	c.tableNames[k] = name
	return nil
}

// TableExists reports whether name is registered (case-insensitive).
func (c *Catalog) TableExists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tableNames[key(name)]
	return ok
}

// DisplayName returns the originally-registered case for name, or
// ("", false) if unregistered.
func (c *Catalog) DisplayName(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.tableNames[key(name)]
	return d, ok
}

// TableNames returns every registered table's display name.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tableNames))
	for _, d := range c.tableNames {
		out = append(out, d)
	}
	return out
}

// DropTable unregisters a table and cascades to its indexes and
// privileges.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	if _, exists := c.tableNames[k]; !exists {
		return ErrTableNotFound
	}
	delete(c.tableNames, k)

	for idxKey, idx := range c.indexes {
		if key(idx.TableName) == k {
			delete(c.indexes, idxKey)
		}
	}
	c.cascadePrivilegesLocked(name)
	return nil
}

// RenameTable changes a table's display name and rewrites every
// dependent index's and privilege's referenced name.
func (c *Catalog) RenameTable(oldName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	oldKey, newKey := key(oldName), key(newName)
	if _, exists := c.tableNames[oldKey]; !exists {
		return ErrTableNotFound
	}
	if _, exists := c.tableNames[newKey]; exists {
		return ErrTableExists
	}
	delete(c.tableNames, oldKey)
	c.tableNames[newKey] = newName

	for _, idx := range c.indexes {
		if key(idx.TableName) == oldKey {
			idx.TableName = newName
		}
	}
	for _, p := range c.privileges {
		if key(p.ObjectName) == oldKey {
			p.ObjectName = newName
		}
	}
	return nil
}

// AddView registers a view.
func (c *Catalog) AddView(v *ViewInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(v.Name)
	if _, exists := c.views[k]; exists {
		return ErrViewExists
	}
	c.views[k] = v
	return nil
}

// DropView unregisters a view, cascading to its privileges.
func (c *Catalog) DropView(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	if _, exists := c.views[k]; !exists {
		return ErrViewNotFound
	}
	delete(c.views, k)
	c.cascadePrivilegesLocked(name)
	return nil
}

// View returns the registered view, if any.
func (c *Catalog) View(name string) (*ViewInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[key(name)]
	return v, ok
}

// AddIndex registers an index definition.
func (c *Catalog) AddIndex(idx *IndexInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(idx.Name)
	if _, exists := c.indexes[k]; exists {
		return ErrIndexExists
	}
	c.indexes[k] = idx
	return nil
}

// DropIndex unregisters an index.
func (c *Catalog) DropIndex(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	if _, exists := c.indexes[k]; !exists {
		return ErrIndexNotFound
	}
	delete(c.indexes, k)
	return nil
}

// Index returns the registered index, if any.
func (c *Catalog) Index(name string) (*IndexInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexes[key(name)]
	return idx, ok
}

// IndexesOnTable returns every index registered against tableName.
func (c *Catalog) IndexesOnTable(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*IndexInfo
	tk := key(tableName)
	for _, idx := range c.indexes {
		if key(idx.TableName) == tk {
			out = append(out, idx)
		}
	}
	return out
}

// AddType registers a user-defined composite type.
func (c *Catalog) AddType(t *TypeInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(t.Name)
	if _, exists := c.types[k]; exists {
		return ErrTypeExists
	}
	c.types[k] = t
	return nil
}

// DropType unregisters a user-defined type.
func (c *Catalog) DropType(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	if _, exists := c.types[k]; !exists {
		return ErrTypeNotFound
	}
	delete(c.types, k)
	return nil
}

// Type returns the registered user-defined type, if any.
func (c *Catalog) Type(name string) (*TypeInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[key(name)]
	return t, ok
}

// AddAssertion registers a standalone assertion.
func (c *Catalog) AddAssertion(a *AssertionInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(a.Name)
	if _, exists := c.assertions[k]; exists {
		return ErrAssertionExists
	}
	c.assertions[k] = a
	return nil
}

// DropAssertion unregisters an assertion.
func (c *Catalog) DropAssertion(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	if _, exists := c.assertions[k]; !exists {
		return ErrAssertionNotFound
	}
	delete(c.assertions, k)
	return nil
}

// Grant records a privilege grant.
func (c *Catalog) Grant(username, objectName, privilegeType string, withGrantOption bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.privileges = append(c.privileges, &PrivilegeInfo{
		Username:        username,
		ObjectName:      objectName,
		PrivilegeType:   privilegeType,
		WithGrantOption: withGrantOption,
	})
}

// Revoke removes a matching privilege grant, if any.
func (c *Catalog) Revoke(username, objectName, privilegeType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.privileges[:0]
	for _, p := range c.privileges {
		if p.Username == username && key(p.ObjectName) == key(objectName) && strings.EqualFold(p.PrivilegeType, privilegeType) {
			continue
		}
		kept = append(kept, p)
	}
	c.privileges = kept
}

// CheckPrivilege reports whether username has privilegeType on
// objectName.
func (c *Catalog) CheckPrivilege(username, objectName, privilegeType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.privileges {
		if p.Username == username && key(p.ObjectName) == key(objectName) &&
			(strings.EqualFold(p.PrivilegeType, privilegeType) || strings.EqualFold(p.PrivilegeType, "ALL")) {
			return true
		}
	}
	return false
}

// UserPrivileges returns every privilege granted to username.
func (c *Catalog) UserPrivileges(username string) []PrivilegeInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []PrivilegeInfo
	for _, p := range c.privileges {
		if p.Username == username {
			out = append(out, *p)
		}
	}
	return out
}

// cascadePrivilegesLocked removes every privilege referencing
// objectName. Caller must hold c.mu.
func (c *Catalog) cascadePrivilegesLocked(objectName string) {
	ok := key(objectName)
	kept := c.privileges[:0]
	for _, p := range c.privileges {
		if key(p.ObjectName) == ok {
			continue
		}
		kept = append(kept, p)
	}
	c.privileges = kept
}
