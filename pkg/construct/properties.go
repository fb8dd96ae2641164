package construct

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type (
	Properties map[string]any

	// Dependent is implemented by property values that can only be known after other resources
	// have been provisioned.
	Dependent interface {
		Dependencies() []ResourceId
	}

	PropertyTypeError struct {
		Path  []string
		Cause error
	}
)

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("error in path %s: %v", strings.Join(e.Path, ""), e.Cause)
}

func (e *PropertyTypeError) Unwrap() error {
	return e.Cause
}

// splitPath splits a property path into its parts, keeping the delimiter of each part after the first:
// "foo.bar[0]" becomes ["foo", ".bar", "[0]"].
func splitPath(path string) []string {
	var parts []string
	var delim string
	for path != "" {
		partIdx := strings.IndexAny(path, ".[")
		var part string
		if partIdx == -1 {
			part = delim + path
			path = ""
		} else {
			part = delim + path[:partIdx]
			delim = path[partIdx : partIdx+1]
			path = path[partIdx+1:]
		}
		parts = append(parts, part)
	}
	return parts
}

func partKey(part string) string {
	switch {
	case strings.HasPrefix(part, "."):
		return part[1:]
	case strings.HasPrefix(part, "["):
		return strings.TrimSuffix(part[1:], "]")
	}
	return part
}

// GetProperty returns the value at the path, or nil if any part of the path is missing.
func (p Properties) GetProperty(path string) (any, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	var current any = map[string]any(p)
	for i, part := range parts {
		switch on := current.(type) {
		case nil:
			return nil, nil
		case map[string]any:
			current = on[partKey(part)]
		case Properties:
			current = on[partKey(part)]
		case []any:
			idx, err := strconv.Atoi(partKey(part))
			if err != nil {
				return nil, &PropertyTypeError{Path: parts[:i+1], Cause: err}
			}
			if idx < 0 || idx >= len(on) {
				return nil, nil
			}
			current = on[idx]
		default:
			return nil, &PropertyTypeError{
				Path:  parts[:i+1],
				Cause: fmt.Errorf("expected map or array, got %T", on),
			}
		}
	}
	return current, nil
}

// SetProperty sets the value at the path, creating intermediate maps as needed.
func (p Properties) SetProperty(path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("empty path")
	}
	current := map[string]any(p)
	for i, part := range parts[:len(parts)-1] {
		key := partKey(part)
		next, ok := current[key]
		if !ok || next == nil {
			m := make(map[string]any)
			current[key] = m
			current = m
			continue
		}
		switch next := next.(type) {
		case map[string]any:
			current = next
		case Properties:
			current = next
		default:
			return &PropertyTypeError{
				Path:  parts[:i+1],
				Cause: fmt.Errorf("expected map, got %T", next),
			}
		}
	}
	current[partKey(parts[len(parts)-1])] = value
	return nil
}

// Clone returns a shallow copy of the properties: nested values are shared.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	c := make(Properties, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Dependencies walks the properties and collects the resources referenced by any [Dependent] value.
func (p Properties) Dependencies() []ResourceId {
	var deps []ResourceId
	collectDependencies(reflect.ValueOf(map[string]any(p)), &deps)
	return deps
}

func collectDependencies(v reflect.Value, deps *[]ResourceId) {
	if !v.IsValid() {
		return
	}
	if v.CanInterface() {
		if d, ok := v.Interface().(Dependent); ok {
			*deps = append(*deps, d.Dependencies()...)
			return
		}
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if !v.IsNil() {
			collectDependencies(v.Elem(), deps)
		}
	case reflect.Map:
		for _, k := range v.MapKeys() {
			collectDependencies(v.MapIndex(k), deps)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			collectDependencies(v.Index(i), deps)
		}
	}
}
