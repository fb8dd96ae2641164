// Package program builds a stack from a project file's component declarations.
package program

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/components/aws"
	"github.com/klothoplatform/platform/pkg/config"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/logging"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type (
	// Program is a project being turned into a stack.
	Program struct {
		Project *config.Project
		// Fs is what site builds and schema files are read from. Defaults to the project's directory.
		Fs afero.Fs

		stack      *component.Stack
		components map[string]component.Resource
	}

	// constructor decodes a component's args and creates it.
	constructor func(p *Program, name string, args map[string]any) (component.Resource, error)
)

var constructors = map[string]constructor{
	aws.BucketType:   build(aws.NewBucket, nil),
	aws.FunctionType: build(aws.NewFunction, nil),
	aws.CronType:     build(aws.NewCron, nil),
	aws.EmailType:    build(aws.NewEmail, nil),
	aws.AppSyncType: build(aws.NewAppSync, func(p *Program, args *aws.AppSyncArgs) {
		args.Fs = p.Fs
	}),
	aws.NuxtType:       build(aws.NewNuxt, withSiteFs),
	aws.RemixType:      build(aws.NewRemix, withSiteFs),
	aws.AnalogType:     build(aws.NewAnalog, withSiteFs),
	aws.SolidStartType: build(aws.NewSolidStart, withSiteFs),
}

func withSiteFs(p *Program, args *aws.SsrSiteArgs) {
	args.Fs = p.Fs
}

// build adapts a component's constructor. prepare fills in args which cannot come from the project file.
func build[A any, C component.Resource](
	create func(*component.Stack, string, A, ...component.Option) (C, error),
	prepare func(*Program, *A),
) constructor {
	return func(p *Program, name string, raw map[string]any) (component.Resource, error) {
		var args A
		if err := p.decode(raw, &args); err != nil {
			return nil, err
		}
		if prepare != nil {
			prepare(p, &args)
		}
		c, err := create(p.stack, name, args)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Types lists the component types a project can declare.
func Types() []string {
	types := make([]string, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Run builds the project's components into a new stack, in the order they are declared.
func Run(ctx context.Context, project *config.Project) (*component.Stack, error) {
	p := &Program{Project: project}
	return p.Run(ctx)
}

func (p *Program) Run(ctx context.Context) (*component.Stack, error) {
	if err := p.Project.Validate(); err != nil {
		return nil, err
	}
	app, err := config.App(p.Project.App)
	if err != nil {
		return nil, err
	}
	if p.Fs == nil {
		p.Fs = afero.NewOsFs()
		if p.Project.Dir != "" {
			p.Fs = afero.NewBasePathFs(p.Fs, p.Project.Dir)
		}
	}
	p.stack, err = component.NewStack(ctx, app.Name, p.Project.Stage)
	if err != nil {
		return nil, err
	}
	p.components = make(map[string]component.Resource, len(p.Project.Components))
	log := logging.GetLogger(ctx).Named("program")

	for _, qualifiedType := range sortedKeys(p.Project.Transforms) {
		if id, err := construct.ParseId(qualifiedType); err != nil || id.Type == "" || id.Name != "" {
			p.stack.Close()
			return nil, fmt.Errorf("invalid transform type %q (expected `<provider>:<type>`)", qualifiedType)
		}
		p.stack.AddTransform(qualifiedType, component.TransformPatch(p.Project.Transforms[qualifiedType]))
	}

	for _, decl := range p.Project.Components {
		c, err := p.create(decl)
		if err != nil {
			p.stack.Close()
			return nil, fmt.Errorf("could not create %s %s: %w", decl.Type, decl.Name, err)
		}
		p.components[decl.Name] = c
		log.Debug("created component", logging.ComponentField(c.Base().URN(), decl.Type))
	}
	log.Info("built stack",
		zap.Int("components", len(p.components)),
		zap.Int("resources", graphSize(p.stack.Graph())),
	)
	return p.stack, nil
}

func (p *Program) create(decl config.Component) (component.Resource, error) {
	newComponent, ok := constructors[decl.Type]
	if !ok {
		return nil, fmt.Errorf("unknown component type %q (must be one of %v)", decl.Type, Types())
	}
	args := make(map[string]any, len(decl.Args)+1)
	for k, v := range decl.Args {
		args[k] = v
	}
	if len(decl.Link) > 0 {
		if _, ok := args["link"]; ok {
			return nil, fmt.Errorf("link must be set on the component, not in its args")
		}
		names := make([]any, len(decl.Link))
		for i, l := range decl.Link {
			names[i] = l
		}
		args["link"] = names
	}
	return newComponent(p, decl.Name, args)
}

// Component returns a component built so far by its declared name.
func (p *Program) Component(name string) (component.Resource, bool) {
	c, ok := p.components[name]
	return c, ok
}

func (p *Program) decode(raw map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			component.DecodeHook(),
			dnsAdapterHook,
			domainHook,
			p.componentHook,
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}

var resourceType = reflect.TypeOf((*component.Resource)(nil)).Elem()

// componentHook resolves the name of a component declared earlier to the component, for args which take one (such
// as a cron's function) or an interface it implements (such as link.Linkable).
func (p *Program) componentHook(from, to reflect.Type, data any) (any, error) {
	name, ok := data.(string)
	if !ok {
		return data, nil
	}
	switch {
	case to.Kind() == reflect.Ptr && to.Implements(resourceType):
	case to.Kind() == reflect.Interface && to.NumMethod() > 0 && to != adapterType:
	default:
		return data, nil
	}
	c, ok := p.components[name]
	if !ok {
		return nil, fmt.Errorf("unknown component %q", name)
	}
	if !reflect.TypeOf(c).AssignableTo(to) {
		return nil, fmt.Errorf("component %q is a %s, which cannot be used as %s", name, c.Base().Type(), to)
	}
	return c, nil
}

// domainHook accepts a bare domain name where a [aws.Domain] is expected.
func domainHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(aws.Domain{}) {
		return data, nil
	}
	if name, ok := data.(string); ok {
		return aws.Domain{Name: name}, nil
	}
	return data, nil
}

func graphSize(g construct.Graph) int {
	n, err := g.Order()
	if err != nil {
		return 0
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
