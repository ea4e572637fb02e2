// Package actions implements server actions: named server-side functions
// the client invokes over a JSON POST endpoint.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Func is one server action. Args arrive as raw JSON positional arguments;
// the return value is serialized back to the client.
type Func func(ctx context.Context, args json.RawMessage) (any, error)

// ErrUnknownAction is returned when an invocation names an unregistered
// action ID.
type ErrUnknownAction struct {
	ID string
}

// Error implements the error interface.
func (e *ErrUnknownAction) Error() string {
	return fmt.Sprintf("unknown action %q", e.ID)
}

// Registry maps stable action IDs to their implementations. IDs are
// assigned at registration time and shipped to the client inside page
// markup, so they must stay stable across deploys for open tabs to keep
// working.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Func
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Func)}
}

// Register binds an action ID to its implementation. Re-registering an ID
// replaces the previous binding; dev mode relies on this after reloads.
func (r *Registry) Register(id string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[id] = fn
}

// Lookup returns the action bound to an ID.
func (r *Registry) Lookup(id string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[id]
	return fn, ok
}

// Invocation is the wire shape of one action call.
type Invocation struct {
	ID   string          `json:"actionId"`
	Args json.RawMessage `json:"args"`
}

// Result is the wire shape of an action response.
type Result struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Invoke runs the action named by the invocation.
func (r *Registry) Invoke(ctx context.Context, inv Invocation) (any, error) {
	fn, ok := r.Lookup(inv.ID)
	if !ok {
		return nil, &ErrUnknownAction{ID: inv.ID}
	}
	return callAction(ctx, fn, inv.Args)
}

// callAction runs an action, converting panics to errors.
func callAction(ctx context.Context, fn Func, args json.RawMessage) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action panic: %v", rec)
		}
	}()
	return fn(ctx, args)
}
