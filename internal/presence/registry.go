package presence

import (
	"sort"
	"sync"
)

// Registry is the process-wide mapping from operator ID to the set of
// active connection handles. It is the only shared mutable state in the
// core; every mutation and the snapshot read run under one mutex so a
// broadcast always observes a consistent membership.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Registry struct {
	mu sync.RWMutex

	// conns maps connection ID to the operator it authenticated as.
	conns map[string]string

	// operators maps operator ID to that operator's connection IDs.
	operators map[string]map[string]struct{}
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]string),
		operators: make(map[string]map[string]struct{}),
	}
}

// Connect records a connection handle for an operator, creating the
// operator's entry on their first connection. Re-registering the same
// connection ID is idempotent; if the ID was previously bound to a
// different operator it is moved.
//
// Returns the post-mutation online snapshot and whether the online
// operator set changed. The snapshot is taken inside the same critical
// section as the mutation, so callers that publish it in mutation order
// never publish a stale membership.
func (r *Registry) Connect(connID, operatorID string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[connID]; ok {
		if prev == operatorID {
			return r.onlineLocked(), false
		}
		r.removeLocked(connID, prev)
	}

	r.conns[connID] = operatorID

	handles, existed := r.operators[operatorID]
	if !existed {
		handles = make(map[string]struct{})
		r.operators[operatorID] = handles
	}
	handles[connID] = struct{}{}

	return r.onlineLocked(), !existed
}

// Disconnect removes a connection handle. The operator's entry is
// dropped when their handle set empties. Unknown connection IDs are
// ignored.
//
// Returns the post-mutation online snapshot and whether the online
// operator set changed, with the same ordering guarantee as Connect.
func (r *Registry) Disconnect(connID string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	operatorID, ok := r.conns[connID]
	if !ok {
		return r.onlineLocked(), false
	}
	changed := r.removeLocked(connID, operatorID)
	return r.onlineLocked(), changed
}

// removeLocked unbinds a connection from an operator. Caller holds the lock.
func (r *Registry) removeLocked(connID, operatorID string) bool {
	delete(r.conns, connID)

	handles := r.operators[operatorID]
	delete(handles, connID)
	if len(handles) == 0 {
		delete(r.operators, operatorID)
		return true
	}
	return false
}

// Online returns the sorted, duplicate-free list of operator IDs with
// at least one active connection. An operator connected from N devices
// contributes exactly one entry.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

// onlineLocked builds the sorted snapshot. Caller holds the lock.
func (r *Registry) onlineLocked() []string {
	ids := make([]string, 0, len(r.operators))
	for id := range r.operators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ConnectionCount returns the number of active connection handles.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
