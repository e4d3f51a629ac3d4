package scheduler

import "sync"

// HandlerFunc executes a scheduled entry's effect.
type HandlerFunc func(guildID, subjectID string, args []string) error

// Registry maps task names to handlers. Registration happens once at
// process start; lookup at fire time fails closed, so an entry whose task
// name is unknown is a permanent error and is never retried.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register installs a handler under a task name. A later registration for
// the same name replaces the earlier one.
func (r *Registry) Register(taskName string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[taskName] = h
}

// Lookup returns the handler for a task name.
func (r *Registry) Lookup(taskName string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskName]
	return h, ok
}
