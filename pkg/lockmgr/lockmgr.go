// Package lockmgr implements the resource lock table, compatibility
// matrix, and wait-for-graph deadlock detector.
package lockmgr

import (
	"sync"
)

// ResourceKind tags what a lock resource name refers to.
type ResourceKind int

const (
	ResourceTable ResourceKind = iota
	ResourceRow
	ResourceDatabase
)

// Mode is a lock's requested/granted mode.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

// LockRequest is one entry in a resource's lock queue.
type LockRequest struct {
	TxnID    uint64
	Resource string
	Kind     ResourceKind
	Mode     Mode
	Granted  bool
}

// LockManager is a single resource-name -> ordered lock-request-list
// table protected by a reader/writer mutex.
type LockManager struct {
	mu    sync.RWMutex
	table map[string][]*LockRequest
}

// New creates an empty LockManager.
func New() *LockManager {
	return &LockManager{table: make(map[string][]*LockRequest)}
}

// ErrUpgradeDenied is returned by TryAcquire when a shared-to-exclusive
// upgrade is requested but other transactions also hold the shared
// lock.
type ErrUpgradeDenied struct{ Resource string }

func (e *ErrUpgradeDenied) Error() string {
	return "lock upgrade denied on resource " + e.Resource
}

// TryAcquire attempts to grant txnID a lock in mode on resource.
// Returns (granted, error): error is non-nil only for a rejected
// upgrade; granted is false (with nil error) when the request was
// queued because of an incompatible existing grant.
func (lm *LockManager) TryAcquire(txnID uint64, resource string, kind ResourceKind, mode Mode) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	locks := lm.table[resource]

	if len(locks) == 0 {
		req := &LockRequest{TxnID: txnID, Resource: resource, Kind: kind, Mode: mode, Granted: true}
		lm.table[resource] = append(locks, req)
		return true, nil
	}

	for _, existing := range locks {
		if existing.TxnID != txnID {
			continue
		}
		if !existing.Granted {
			return false, nil // still queued
		}
		switch {
		case existing.Mode == mode:
			return true, nil
		case existing.Mode == Shared && mode == Exclusive:
			if countGrantedShared(locks) == 1 {
				existing.Mode = Exclusive
				return true, nil
			}
			return false, &ErrUpgradeDenied{Resource: resource}
		default: // held Exclusive, requesting Shared: downgrade
			existing.Mode = Shared
			return true, nil
		}
	}

	req := &LockRequest{TxnID: txnID, Resource: resource, Kind: kind, Mode: mode}
	if compatible(mode, locks) {
		req.Granted = true
		lm.table[resource] = append(locks, req)
		return true, nil
	}
	lm.table[resource] = append(locks, req)
	return false, nil
}

func countGrantedShared(locks []*LockRequest) int {
	n := 0
	for _, l := range locks {
		if l.Granted && l.Mode == Shared {
			n++
		}
	}
	return n
}

// compatible reports whether mode may be granted alongside the
// currently-granted entries in locks: SHARED is compatible with other
// granted SHARED locks; EXCLUSIVE is never compatible with any
// granted lock.
func compatible(mode Mode, locks []*LockRequest) bool {
	for _, l := range locks {
		if !l.Granted {
			continue
		}
		if mode == Exclusive || l.Mode == Exclusive {
			return false
		}
	}
	return true
}

// ReleaseAll removes every lock entry owned by txnID, then promotes
// queued requests that are now compatible, FIFO order within each
// resource.
func (lm *LockManager) ReleaseAll(txnID uint64) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for resource, locks := range lm.table {
		kept := locks[:0]
		for _, l := range locks {
			if l.TxnID != txnID {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			delete(lm.table, resource)
			continue
		}
		promoteQueued(kept)
		lm.table[resource] = kept
	}
}

// promoteQueued grants ungranted entries in FIFO order as soon as they
// become compatible with the currently-granted set; each promotion is
// visible to the compatibility check of subsequent entries in the
// same pass.
func promoteQueued(locks []*LockRequest) {
	for _, l := range locks {
		if l.Granted {
			continue
		}
		if compatible(l.Mode, locks) {
			l.Granted = true
		}
	}
}

// LocksHeldBy returns every lock request (granted or queued) owned by
// txnID, across all resources — an introspection accessor for
// diagnostics and deadlock-victim selection.
func (lm *LockManager) LocksHeldBy(txnID uint64) []LockRequest {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	var out []LockRequest
	for _, locks := range lm.table {
		for _, l := range locks {
			if l.TxnID == txnID {
				out = append(out, *l)
			}
		}
	}
	return out
}

// holders returns the set of transaction IDs holding a granted lock on
// resource.
func (lm *LockManager) holders(resource string) []uint64 {
	var out []uint64
	for _, l := range lm.table[resource] {
		if l.Granted {
			out = append(out, l.TxnID)
		}
	}
	return out
}

// waiters returns the set of transaction IDs with an ungranted
// (queued) request on resource.
func (lm *LockManager) waiters(resource string) []uint64 {
	var out []uint64
	for _, l := range lm.table[resource] {
		if !l.Granted {
			out = append(out, l.TxnID)
		}
	}
	return out
}

// DetectDeadlock builds the wait-for graph (an edge from every waiter
// to every granted holder on the same resource) and reports whether
// it contains a cycle, via DFS with a recursion stack.
func (lm *LockManager) DetectDeadlock() bool {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	graph := make(map[uint64]map[uint64]struct{})
	for resource := range lm.table {
		holders := lm.holders(resource)
		for _, waiter := range lm.waiters(resource) {
			if graph[waiter] == nil {
				graph[waiter] = make(map[uint64]struct{})
			}
			for _, holder := range holders {
				if holder != waiter {
					graph[waiter][holder] = struct{}{}
				}
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[uint64]int)

	var dfs func(node uint64) bool
	dfs = func(node uint64) bool {
		color[node] = gray
		for next := range graph[node] {
			switch color[next] {
			case gray:
				return true
			case white:
				if dfs(next) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for node := range graph {
		if color[node] == white {
			if dfs(node) {
				return true
			}
		}
	}
	return false
}
