package output

import (
	"fmt"
	"sort"
	"sync"

	"github.com/klothoplatform/platform/pkg/construct"
)

// Table tracks the resource attributes that outputs have been created for. The orchestration runtime
// reports provisioned resources through [Table.Resolve], which settles every output reading from them.
type Table struct {
	mu       sync.Mutex
	pending  map[construct.ResourceId]map[string]*state
	resolved map[construct.ResourceId]map[string]any
}

func NewTable() *Table {
	return &Table{
		pending:  make(map[construct.ResourceId]map[string]*state),
		resolved: make(map[construct.ResourceId]map[string]any),
	}
}

// Attr returns the Output for `property` of resource `id`. Repeated calls for the same attribute share
// one underlying value.
func Attr[T any](t *Table, id construct.ResourceId, property string) Output[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	ref := &construct.PropertyRef{Resource: id, Property: property}
	if attrs, ok := t.resolved[id]; ok {
		s := &state{done: true, ref: ref, deps: []construct.ResourceId{id}}
		v, ok := attrs[property]
		if ok {
			s.value = v
		} else {
			s.err = missingAttrError(id, property)
		}
		return Output[T]{s: s}
	}

	props, ok := t.pending[id]
	if !ok {
		props = make(map[string]*state)
		t.pending[id] = props
	}
	s, ok := props[property]
	if !ok {
		s = &state{ref: ref, deps: []construct.ResourceId{id}}
		props[property] = s
	}
	return Output[T]{s: s}
}

func missingAttrError(id construct.ResourceId, property string) error {
	return fmt.Errorf("resource %s has no attribute %q", id, property)
}

// Resolve records the attributes of a provisioned resource. Outputs for attributes that are absent
// from `attrs` are rejected.
func (t *Table) Resolve(id construct.ResourceId, attrs map[string]any) error {
	t.mu.Lock()
	if _, ok := t.resolved[id]; ok {
		t.mu.Unlock()
		return fmt.Errorf("resource %s: %w", id, ErrAlreadyResolved)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	t.resolved[id] = attrs
	props := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()

	// Settle every attribute first, then run the callbacks in declaration order.
	var waiters []waiter
	for name, s := range props {
		v, ok := attrs[name]
		var err error
		if !ok {
			v, err = nil, missingAttrError(id, name)
		}
		ws, _ := s.complete(v, err)
		waiters = append(waiters, ws...)
	}
	runWaiters(waiters)
	return nil
}

// Pending lists the attributes still waiting on their resource, sorted.
func (t *Table) Pending() []construct.PropertyRef {
	t.mu.Lock()
	defer t.mu.Unlock()

	var refs []construct.PropertyRef
	for id, props := range t.pending {
		for name := range props {
			refs = append(refs, construct.PropertyRef{Resource: id, Property: name})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Resource != refs[j].Resource {
			return construct.ResourceIdLess(refs[i].Resource, refs[j].Resource)
		}
		return refs[i].Property < refs[j].Property
	})
	return refs
}
