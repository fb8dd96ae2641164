// Package link defines the Linkable capability: the properties and permissions a component exposes to the
// functions and sites it is linked to.
package link

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/output"
)

type (
	// Linkable is implemented by components which can be linked to a consumer.
	Linkable interface {
		LinkName() string
		Link() (*Definition, error)
	}

	Definition struct {
		// Properties are exposed to the consumer at runtime. Values may be outputs but must resolve to
		// JSON-serializable data.
		Properties map[string]any
		// Include is merged into the consumer's permissions.
		Include []Permission
	}

	Effect string

	Permission struct {
		Effect    Effect
		Actions   []string
		Resources []output.Output[string]
	}

	// Statement is a single (effect, action, resource) grant, the unit permissions are deduplicated by.
	Statement struct {
		Effect   Effect
		Action   string
		Resource output.Output[string]
	}
)

const (
	Allow Effect = "allow"
	Deny  Effect = "deny"

	EnvPrefix = "SST_RESOURCE_"
)

// AllowPermission is a convenience for the common allow grant.
func AllowPermission(actions []string, resources ...output.Output[string]) Permission {
	return Permission{Effect: Allow, Actions: actions, Resources: resources}
}

func (p Permission) Validate() error {
	switch p.Effect {
	case Allow, Deny:
	default:
		return fmt.Errorf("invalid permission effect %q (must be %q or %q)", p.Effect, Allow, Deny)
	}
	if len(p.Actions) == 0 {
		return fmt.Errorf("permission must have at least one action")
	}
	if len(p.Resources) == 0 {
		return fmt.Errorf("permission must have at least one resource")
	}
	return nil
}

// Resolved returns the properties with every output replaced by its value.
func (d *Definition) Resolved() (map[string]any, error) {
	if d == nil || d.Properties == nil {
		return map[string]any{}, nil
	}
	return output.ResolvedMap(d.Properties)
}

// JSON serializes the resolved properties.
func (d *Definition) JSON() ([]byte, error) {
	props, err := d.Resolved()
	if err != nil {
		return nil, err
	}
	return json.Marshal(props)
}

// resourceKey identifies a resource for deduplication. Computed values without a ref cannot be compared and
// are never considered duplicates.
func resourceKey(o output.Output[string], fallback int) string {
	if v, known, err := o.Value(); known && err == nil {
		return "=" + v
	}
	if ref, ok := o.Ref(); ok {
		return "#" + ref.String()
	}
	return fmt.Sprintf("@%d", fallback)
}

// Statements flattens permissions into individual grants, deduplicated by (effect, action, resource) with the
// first occurrence's position kept. Resources which are not known yet are compared by the attribute they read.
func Statements(perms ...Permission) ([]Statement, error) {
	seen := make(map[string]struct{})
	var out []Statement
	n := 0
	for _, p := range perms {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		for _, action := range p.Actions {
			for _, r := range p.Resources {
				n++
				key := strings.Join([]string{string(p.Effect), action, resourceKey(r, n)}, "\x00")
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, Statement{Effect: p.Effect, Action: action, Resource: r})
			}
		}
	}
	return out, nil
}

// Merge combines the include permissions of every definition.
func Merge(defs ...*Definition) ([]Statement, error) {
	var perms []Permission
	for _, d := range defs {
		if d == nil {
			continue
		}
		perms = append(perms, d.Include...)
	}
	return Statements(perms...)
}

// Collect calls Link on each linkable, wrapping failures with the link's name.
func Collect(links ...Linkable) (map[string]*Definition, []*Definition, error) {
	byName := make(map[string]*Definition, len(links))
	ordered := make([]*Definition, 0, len(links))
	for _, l := range links {
		name := l.LinkName()
		if _, ok := byName[name]; ok {
			return nil, nil, fmt.Errorf("%q is linked more than once", name)
		}
		d, err := l.Link()
		if err != nil {
			return nil, nil, fmt.Errorf("could not link %s: %w", name, err)
		}
		byName[name] = d
		ordered = append(ordered, d)
	}
	return byName, ordered, nil
}

// EnvName is the environment variable a linked resource's properties are exposed through.
func EnvName(name string) string {
	return EnvPrefix + strcase.ToCamel(name)
}

// Environment returns the environment variables for linked definitions. Each value is an output of the
// JSON-encoded properties, known once all of the definition's outputs are.
func Environment(defs map[string]*Definition) map[string]output.Output[string] {
	env := make(map[string]output.Output[string], len(defs))
	for name, d := range defs {
		name, d := name, d
		if d == nil {
			d = &Definition{}
		}
		props := construct.Properties(d.Properties)
		value, res := output.New[string](props.Dependencies()...)
		output.OnResolved(map[string]any(props), func(v any, err error) {
			if err != nil {
				_ = res.Reject(fmt.Errorf("link %s: %w", name, err))
				return
			}
			b, err := json.Marshal(v)
			if err != nil {
				_ = res.Reject(fmt.Errorf("link %s properties are not serializable: %w", name, err))
				return
			}
			_ = res.Resolve(string(b))
		})
		env[EnvName(name)] = value
	}
	return env
}
