// Package output implements deferred values: values that a component receives or computes during
// construction but which only become known once an upstream resource has been provisioned.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/klothoplatform/platform/pkg/construct"
)

const computedPlaceholder = "<computed>"

var (
	ErrAlreadyResolved = errors.New("output already resolved")
	ErrUnknown         = errors.New("output value is not yet known")
)

type (
	// Output is a value of type T which may not be known yet. The zero Output is known and holds T's zero value.
	Output[T any] struct {
		s *state
	}

	// Resolver settles the Output it was created with. Only the first call to Resolve or Reject has an effect.
	Resolver[T any] struct {
		s *state
	}

	// Input is the untyped view of an Output, used where outputs of differing types are mixed
	// (property maps, [Format] arguments).
	Input interface {
		construct.Dependent
		IsKnown() bool
		await(func(v any, err error))
		raw() (v any, known bool, err error)
	}

	state struct {
		mu      sync.Mutex
		done    bool
		value   any
		err     error
		ref     *construct.PropertyRef
		deps    []construct.ResourceId
		waiters []waiter
	}

	// waiter is a callback on a state. seq orders callbacks across states by when they were declared.
	waiter struct {
		seq uint64
		fn  func()
	}
)

var waiterSeq atomic.Uint64

// Of returns an Output that is already known.
func Of[T any](v T) Output[T] {
	return Output[T]{s: &state{done: true, value: v}}
}

// New returns an unknown Output and the Resolver which settles it. `deps` are the resources whose
// provisioning the value waits on.
func New[T any](deps ...construct.ResourceId) (Output[T], Resolver[T]) {
	s := &state{deps: deps}
	return Output[T]{s: s}, Resolver[T]{s: s}
}

// Failed returns an Output which is rejected with err.
func Failed[T any](err error) Output[T] {
	return Output[T]{s: &state{done: true, err: err}}
}

func (r Resolver[T]) Resolve(v T) error {
	return r.s.settle(v, nil)
}

func (r Resolver[T]) Reject(err error) error {
	if err == nil {
		err = errors.New("rejected with nil error")
	}
	return r.s.settle(nil, err)
}

func (s *state) settle(v any, err error) error {
	waiters, err := s.complete(v, err)
	if err != nil {
		return err
	}
	runWaiters(waiters)
	return nil
}

// complete settles the state and returns its waiters without running them.
func (s *state) complete(v any, err error) ([]waiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil, ErrAlreadyResolved
	}
	s.done = true
	s.value = v
	s.err = err
	waiters := s.waiters
	s.waiters = nil
	return waiters, nil
}

// runWaiters runs the waiters of one or more states in declaration order.
func runWaiters(waiters []waiter) {
	sort.Slice(waiters, func(i, j int) bool { return waiters[i].seq < waiters[j].seq })
	for _, w := range waiters {
		w.fn()
	}
}

// onDone runs fn once the state is settled, immediately if it already is. Callbacks run in the order they
// were registered, also across the states settled together by [Table.Resolve].
func (s *state) onDone(fn func()) {
	s.mu.Lock()
	if !s.done {
		s.waiters = append(s.waiters, waiter{seq: waiterSeq.Add(1), fn: fn})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *state) snapshot() (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.done, s.err
}

func castValue[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("output holds %T, expected %T", v, zero)
	}
	return t, nil
}

// Value returns the value if it is known. It never blocks.
func (o Output[T]) Value() (v T, known bool, err error) {
	if o.s == nil {
		return v, true, nil
	}
	raw, known, err := o.s.snapshot()
	if !known || err != nil {
		return v, known, err
	}
	v, err = castValue[T](raw)
	return v, true, err
}

func (o Output[T]) IsKnown() bool {
	if o.s == nil {
		return true
	}
	_, known, _ := o.s.snapshot()
	return known
}

// Ref returns the resource attribute this output reads from, if it was created by [Attr].
func (o Output[T]) Ref() (construct.PropertyRef, bool) {
	if o.s == nil || o.s.ref == nil {
		return construct.PropertyRef{}, false
	}
	return *o.s.ref, true
}

func (o Output[T]) Dependencies() []construct.ResourceId {
	if o.s == nil {
		return nil
	}
	return o.s.deps
}

func (o Output[T]) await(fn func(v any, err error)) {
	if o.s == nil {
		var zero T
		fn(zero, nil)
		return
	}
	o.s.onDone(func() {
		v, _, err := o.s.snapshot()
		fn(v, err)
	})
}

func (o Output[T]) raw() (any, bool, error) {
	if o.s == nil {
		var zero T
		return zero, true, nil
	}
	return o.s.snapshot()
}

// Any converts the Output to an untyped one.
func (o Output[T]) Any() Output[any] {
	if o.s == nil {
		var zero T
		return Of[any](zero)
	}
	return Output[any]{s: o.s}
}

func (o Output[T]) String() string {
	v, known, err := o.raw()
	switch {
	case err != nil:
		return fmt.Sprintf("<error: %v>", err)
	case known:
		return fmt.Sprint(v)
	}
	if ref, ok := o.Ref(); ok {
		return ref.String()
	}
	return computedPlaceholder
}

// placeholder is what an unknown output is rendered as: its property ref when there is one.
func (o Output[T]) placeholder() string {
	if ref, ok := o.Ref(); ok {
		return ref.String()
	}
	return computedPlaceholder
}

func (o Output[T]) MarshalYAML() (any, error) {
	v, known, err := o.raw()
	if err != nil {
		return nil, err
	}
	if !known {
		return o.placeholder(), nil
	}
	return v, nil
}

func (o Output[T]) MarshalJSON() ([]byte, error) {
	v, known, err := o.raw()
	if err != nil {
		return nil, err
	}
	if !known {
		return json.Marshal(o.placeholder())
	}
	return json.Marshal(v)
}

// Apply returns an Output holding fn's result, computed once `o` is known. A rejected `o`
// rejects the result with the same error, without calling fn.
func Apply[T, U any](o Output[T], fn func(T) (U, error)) Output[U] {
	out, res := New[U](o.Dependencies()...)
	o.await(func(v any, err error) {
		if err != nil {
			_ = res.Reject(err)
			return
		}
		t, err := castValue[T](v)
		if err != nil {
			_ = res.Reject(err)
			return
		}
		u, err := fn(t)
		if err != nil {
			_ = res.Reject(err)
			return
		}
		_ = res.Resolve(u)
	})
	return out
}

// All returns an Output of every input's value, known once all of them are.
func All[T any](outs ...Output[T]) Output[[]T] {
	inputs := make([]Input, len(outs))
	for i, o := range outs {
		inputs[i] = o
	}
	return Apply(join(inputs), func(vs []any) ([]T, error) {
		ts := make([]T, len(vs))
		for i, v := range vs {
			t, err := castValue[T](v)
			if err != nil {
				return nil, err
			}
			ts[i] = t
		}
		return ts, nil
	})
}

// join waits on every input, rejecting with the first (by position) rejection.
func join(inputs []Input) Output[[]any] {
	var deps []construct.ResourceId
	for _, in := range inputs {
		deps = append(deps, in.Dependencies()...)
	}
	out, res := New[[]any](deps...)
	if len(inputs) == 0 {
		_ = res.Resolve([]any{})
		return out
	}

	var mu sync.Mutex
	values := make([]any, len(inputs))
	errs := make([]error, len(inputs))
	remaining := len(inputs)
	for i, in := range inputs {
		i := i
		in.await(func(v any, err error) {
			mu.Lock()
			values[i] = v
			errs[i] = err
			remaining--
			finished := remaining == 0
			mu.Unlock()
			if !finished {
				return
			}
			for _, err := range errs {
				if err != nil {
					_ = res.Reject(err)
					return
				}
			}
			_ = res.Resolve(values)
		})
	}
	return out
}

// Format is [fmt.Sprintf] over arguments which may be outputs.
func Format(format string, args ...any) Output[string] {
	var inputs []Input
	positions := make([]int, 0, len(args))
	for i, a := range args {
		if in, ok := a.(Input); ok {
			inputs = append(inputs, in)
			positions = append(positions, i)
		}
	}
	return Apply(join(inputs), func(vs []any) (string, error) {
		resolved := make([]any, len(args))
		copy(resolved, args)
		for i, pos := range positions {
			resolved[pos] = vs[i]
		}
		return fmt.Sprintf(format, resolved...), nil
	})
}
