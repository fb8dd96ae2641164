package component

import (
	"reflect"

	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/mitchellh/mapstructure"
)

type (
	// Transform customises the arguments of a resource before it is recorded. Either form may be set:
	// Patch fields replace the matching top-level arguments (shallow merge, patch wins) and Func may then
	// mutate the arguments and options in place.
	Transform struct {
		Patch construct.Properties
		Func  TransformFunc
	}

	TransformFunc func(args construct.Properties, opts *construct.Options, name string)
)

func TransformWith(fn TransformFunc) *Transform {
	return &Transform{Func: fn}
}

func TransformPatch(patch construct.Properties) *Transform {
	return &Transform{Patch: patch}
}

// ApplyTransform runs the hook over copies of the defaults. A nil hook passes the defaults through unchanged.
func ApplyTransform(
	hook *Transform,
	name string,
	defaults construct.Properties,
	opts construct.Options,
) (string, construct.Properties, construct.Options) {
	if hook == nil {
		return name, defaults, opts
	}
	args := defaults.Clone()
	for k, v := range hook.Patch {
		args[k] = v
	}
	if hook.Func != nil {
		hook.Func(args, &opts, name)
	}
	return name, args, opts
}

var transformType = reflect.TypeOf(Transform{})

// DecodeHook lets mapstructure decode a plain map (as found in project files) into a patch [Transform].
func DecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != transformType {
			return data, nil
		}
		m, ok := data.(map[string]any)
		if !ok {
			return data, nil
		}
		return Transform{Patch: construct.Properties(m)}, nil
	}
}
