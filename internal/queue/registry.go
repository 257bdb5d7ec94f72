// Package queue implements the durable Postgres-backed task queue:
// submission, claim-under-row-lock, worker-pool dispatch, per-type rate
// limiting, timeout enforcement, retry/backoff, and stale-task reaping.
package queue

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

// Result is what a handler returns on success; Unrecoverable signals
// that retry logic must be bypassed.
type Result struct {
	Output        json.RawMessage
	Unrecoverable bool
}

// Handler is the dispatch target resolved from a task's Type. Returning a
// non-nil error with Unrecoverable set bypasses retry logic immediately.
type Handler func(ctx context.Context, task *models.Task) (Result, error)

// Registry resolves task types to handlers, a plain map the application
// populates at startup; handlers are owned by the same process as the
// queue, so there is no separate lifetime to manage.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(taskType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[taskType] = h
}

func (r *Registry) Resolve(taskType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskType]
	if !ok {
		return nil, mdlerr.New(mdlerr.KindInternal, "no handler registered for task type "+taskType)
	}
	return h, nil
}
