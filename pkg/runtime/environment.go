package runtime

import (
	"sort"
	"sync"
)

// Environment is one lexical scope: a binding map plus a link to the
// enclosing scope. Lookups walk outward; writes are always local.
type Environment struct {
	values map[string]Value
	parent *Environment
	mu     sync.RWMutex
}

// NewEnvironment creates a new environment, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// NewBoundEnvironment creates a child of parent binding names to values by
// position. Extra names or values are ignored; callers check arity first.
func NewBoundEnvironment(parent *Environment, names []string, values []Value) *Environment {
	env := NewEnvironment(parent)
	for i, name := range names {
		if i >= len(values) {
			break
		}
		env.values[name] = values[i]
	}
	return env
}

// Parent exposes the lexical parent (nil for the top level).
func (e *Environment) Parent() *Environment {
	e.mu.RLock()
	parent := e.parent
	e.mu.RUnlock()
	return parent
}

// Get returns the nearest binding for name. The boolean is false when no
// scope in the chain binds it, which is distinct from a binding to Null.
func (e *Environment) Get(name string) (Value, bool) {
	e.mu.RLock()
	if v, ok := e.values[name]; ok {
		e.mu.RUnlock()
		return v, true
	}
	parent := e.parent
	e.mu.RUnlock()
	if parent != nil {
		return parent.Get(name)
	}
	return nil, false
}

// Lookup returns the binding held by this scope only.
func (e *Environment) Lookup(name string) (Value, bool) {
	e.mu.RLock()
	v, ok := e.values[name]
	e.mu.RUnlock()
	return v, ok
}

// Set writes name into this scope, shadowing any outer binding.
func (e *Environment) Set(name string, value Value) {
	e.mu.Lock()
	e.values[name] = value
	e.mu.Unlock()
}

// Delete removes a local binding. Outer scopes are untouched.
func (e *Environment) Delete(name string) {
	e.mu.Lock()
	delete(e.values, name)
	e.mu.Unlock()
}

// Has reports whether the binding exists anywhere in the scope chain.
func (e *Environment) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Snapshot returns a copy of the local bindings.
func (e *Environment) Snapshot() map[string]Value {
	e.mu.RLock()
	out := make(map[string]Value, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	e.mu.RUnlock()
	return out
}

// Keys returns the local binding names in sorted order.
func (e *Environment) Keys() []string {
	e.mu.RLock()
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	e.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Extend creates a new child scope.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}
