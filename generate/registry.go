package generate

import (
	"context"
	"sync"
)

// TaskRegistry tracks cancellation for subordinate tasks keyed by a
// composite (owner, task) pair. One registry replaces ad hoc nested
// cancellation maps: matrix fills register every cell under the matrix
// node, committee runs register every member under the committee node,
// and a single CancelAll stops everything owned by one node at once.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]map[string]context.CancelFunc
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]map[string]context.CancelFunc)}
}

// Register records the cancel func for (owner, task), replacing any
// previous registration for the same pair.
func (r *TaskRegistry) Register(owner, task string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks[owner] == nil {
		r.tasks[owner] = make(map[string]context.CancelFunc)
	}
	r.tasks[owner][task] = cancel
}

// Unregister drops (owner, task) without canceling it. Called when a task
// finishes on its own.
func (r *TaskRegistry) Unregister(owner, task string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks[owner], task)
	if len(r.tasks[owner]) == 0 {
		delete(r.tasks, owner)
	}
}

// Cancel cancels one task and reports whether it was registered.
func (r *TaskRegistry) Cancel(owner, task string) bool {
	r.mu.Lock()
	cancel, ok := r.tasks[owner][task]
	if ok {
		delete(r.tasks[owner], task)
		if len(r.tasks[owner]) == 0 {
			delete(r.tasks, owner)
		}
	}
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// CancelAll cancels every task registered under owner and returns how many
// were canceled.
func (r *TaskRegistry) CancelAll(owner string) int {
	r.mu.Lock()
	owned := r.tasks[owner]
	delete(r.tasks, owner)
	r.mu.Unlock()

	for _, cancel := range owned {
		cancel()
	}
	return len(owned)
}

// ActiveCount returns the number of tasks registered under owner.
func (r *TaskRegistry) ActiveCount(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks[owner])
}
