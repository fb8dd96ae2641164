package aws

import (
	"errors"
	"fmt"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/iam"
	"github.com/klothoplatform/platform/pkg/link"
	"github.com/klothoplatform/platform/pkg/output"
)

const FunctionType = "aws:Function"

const (
	defaultRuntime = "nodejs20.x"
	defaultMemory  = 1024
	defaultTimeout = 20

	basicExecutionPolicy = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
)

type (
	FunctionArgs struct {
		// Handler is `<file>.<export>` inside Bundle.
		Handler     string
		Bundle      string
		Runtime     string
		Description string
		// Memory in MB.
		Memory int
		// Timeout in seconds.
		Timeout     int
		Environment map[string]string
		// Url creates a public function URL.
		Url       bool
		Streaming bool
		// Link grants the function access to the linked components and exposes their properties in its
		// environment.
		Link        []link.Linkable
		Permissions []link.Permission `mapstructure:"-"`

		Transform struct {
			Role     *component.Transform
			Policy   *component.Transform
			Function *component.Transform
			Url      *component.Transform
		}
	}

	Function struct {
		*component.Component
		role *construct.Resource
		fn   *construct.Resource
		url  *construct.Resource
	}
)

var _ link.Linkable = (*Function)(nil)

func (args *FunctionArgs) validate() error {
	var err error
	if args.Handler == "" {
		err = errors.Join(err, errors.New("handler is required"))
	}
	if args.Bundle == "" {
		err = errors.Join(err, errors.New("bundle is required"))
	}
	if args.Memory != 0 && (args.Memory < 128 || args.Memory > 10240) {
		err = errors.Join(err, fmt.Errorf("memory %d MB is outside 128 - 10240", args.Memory))
	}
	if args.Timeout != 0 && (args.Timeout < 1 || args.Timeout > 900) {
		err = errors.Join(err, fmt.Errorf("timeout %ds is outside 1 - 900", args.Timeout))
	}
	if args.Streaming && !args.Url {
		err = errors.Join(err, errors.New("streaming requires a function url"))
	}
	return err
}

func NewFunction(stack *component.Stack, name string, args FunctionArgs, opts ...component.Option) (*Function, error) {
	if err := args.validate(); err != nil {
		return nil, fmt.Errorf("invalid function %s: %w", name, err)
	}
	c, err := component.New(stack, FunctionType, name, opts...)
	if err != nil {
		return nil, err
	}
	f := &Function{Component: c}

	links, ordered, err := link.Collect(args.Link...)
	if err != nil {
		return nil, err
	}

	f.role, err = c.AddResource("role", resource("iam_role", construct.Properties{
		"name":              c.PhysicalName("role", 64),
		"assumeRolePolicy":  assumeRolePolicy("lambda.amazonaws.com"),
		"managedPolicyArns": []any{basicExecutionPolicy},
	}, args.Transform.Role))
	if err != nil {
		return nil, err
	}

	stmts, err := link.Merge(append(ordered, &link.Definition{Include: args.Permissions})...)
	if err != nil {
		return nil, err
	}
	if len(stmts) > 0 {
		doc, err := iam.FromStatements(stmts)
		if err != nil {
			return nil, err
		}
		if _, err := c.AddResource("policy", resource("iam_role_policy", construct.Properties{
			"role":   c.Attr(f.role, "name"),
			"policy": doc.JSON(),
		}, args.Transform.Policy)); err != nil {
			return nil, err
		}
	}

	f.fn, err = c.AddResource("function", resource("lambda_function", construct.Properties{
		"name":        c.PhysicalName("function", 64),
		"description": args.Description,
		"role":        c.Attr(f.role, "arn"),
		"handler":     args.Handler,
		"runtime":     orDefault(args.Runtime, defaultRuntime),
		"code":        map[string]any{"path": args.Bundle},
		"memorySize":  orDefault(args.Memory, defaultMemory),
		"timeout":     orDefault(args.Timeout, defaultTimeout),
		"environment": map[string]any{"variables": f.environment(args.Environment, links)},
	}, args.Transform.Function))
	if err != nil {
		return nil, err
	}

	outputs := map[string]any{"name": f.FunctionName(), "arn": f.Arn()}
	if args.Url {
		invokeMode := "BUFFERED"
		if args.Streaming {
			invokeMode = "RESPONSE_STREAM"
		}
		f.url, err = c.AddResource("url", resource("lambda_function_url", construct.Properties{
			"function":          f.FunctionName(),
			"authorizationType": "NONE",
			"invokeMode":        invokeMode,
		}, args.Transform.Url))
		if err != nil {
			return nil, err
		}
		outputs["url"] = f.Url()
	}
	if err := c.RegisterOutputs(outputs); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Function) environment(vars map[string]string, links map[string]*link.Definition) map[string]any {
	env := map[string]any{
		"SST_APP":   f.Stack().App,
		"SST_STAGE": f.Stack().Stage,
	}
	for k, v := range vars {
		env[k] = v
	}
	for k, v := range link.Environment(links) {
		env[k] = v
	}
	return env
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func (f *Function) FunctionName() output.Output[string] { return f.Attr(f.fn, "name") }
func (f *Function) Arn() output.Output[string]          { return f.Attr(f.fn, "arn") }

// Url is the function URL, or the empty string when the function has none.
func (f *Function) Url() output.Output[string] {
	if f.url == nil {
		return output.Of("")
	}
	return f.Attr(f.url, "functionUrl")
}

func (f *Function) FunctionResource() *construct.Resource { return f.fn }
func (f *Function) RoleResource() *construct.Resource     { return f.role }

func (f *Function) LinkName() string { return f.Name() }

func (f *Function) Link() (*link.Definition, error) {
	return linkOf(
		map[string]any{"name": f.FunctionName(), "url": f.Url()},
		[]string{"lambda:InvokeFunction"},
		f.Arn(),
	), nil
}
