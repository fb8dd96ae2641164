package component

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateName = errors.New("duplicate component name")
	ErrStackClosed   = errors.New("stack is closed")
)

// Registry is the naming namespace for one deployment pass. Logical names must be unique within
// their parent's scope; root components share the empty scope.
type Registry struct {
	mu     sync.Mutex
	scopes map[string]map[string]string // scope -> name -> type tag
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string]map[string]string)}
}

func (r *Registry) Register(scope, name, typ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrStackClosed
	}
	names, ok := r.scopes[scope]
	if !ok {
		names = make(map[string]string)
		r.scopes[scope] = names
	}
	if existing, ok := names[name]; ok {
		where := "at the root"
		if scope != "" {
			where = fmt.Sprintf("under %s", scope)
		}
		return fmt.Errorf("%w: %q (%s) is already registered %s as a %s", ErrDuplicateName, name, typ, where, existing)
	}
	names[name] = typ
	return nil
}

func (r *Registry) Registered(scope, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.scopes[scope][name]
	return ok
}

// Close ends the registry's lifetime. Names are released and further registrations fail.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.scopes = nil
}
