package output

import (
	"fmt"
	"sort"

	"github.com/klothoplatform/platform/pkg/construct"
)

// Resolved returns a copy of `v` with every output inside it (in maps and slices, at any depth) replaced by its
// value. It fails with [ErrUnknown] if any output is not yet known, or with an output's rejection.
func Resolved(v any) (any, error) {
	switch v := v.(type) {
	case Input:
		raw, known, err := v.raw()
		if err != nil {
			return nil, err
		}
		if !known {
			if d, ok := v.(interface{ placeholder() string }); ok {
				return nil, fmt.Errorf("%s: %w", d.placeholder(), ErrUnknown)
			}
			return nil, ErrUnknown
		}
		return Resolved(raw)

	case map[string]any:
		out := make(map[string]any, len(v))
		for _, k := range sortedKeys(v) {
			r, err := Resolved(v[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil

	case construct.Properties:
		r, err := Resolved(map[string]any(v))
		if err != nil {
			return nil, err
		}
		return construct.Properties(r.(map[string]any)), nil

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			r, err := Resolved(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

// ResolvedMap is [Resolved] for the common case of a string-keyed map.
func ResolvedMap(m map[string]any) (map[string]any, error) {
	r, err := Resolved(m)
	if err != nil {
		return nil, err
	}
	return r.(map[string]any), nil
}

// OnResolved calls fn with the resolved copy of `v` once every output inside it is known, or with the first
// rejection. Deferred values nested in `v` are awaited in the order they are found; maps are walked in
// sorted key order.
func OnResolved(v any, fn func(any, error)) {
	inputs := collectInputs(v, nil)
	join(inputs).await(func(_ any, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(Resolved(v))
	})
}

// Await is an Output of the resolved copy of `v`. It depends on every output inside `v`.
func Await(v any) Output[any] {
	return Apply(join(collectInputs(v, nil)), func([]any) (any, error) {
		return Resolved(v)
	})
}

func collectInputs(v any, into []Input) []Input {
	switch v := v.(type) {
	case Input:
		into = append(into, v)
	case map[string]any:
		for _, k := range sortedKeys(v) {
			into = collectInputs(v[k], into)
		}
	case construct.Properties:
		into = collectInputs(map[string]any(v), into)
	case []any:
		for _, e := range v {
			into = collectInputs(e, into)
		}
	}
	return into
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
