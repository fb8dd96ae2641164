package component

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/logging"
	"github.com/klothoplatform/platform/pkg/output"
	"go.uber.org/zap"
)

// Stack is a single deployment pass of an app to a stage. It owns the naming registry, the resource
// graph the components record into and the table of deferred resource attributes.
type Stack struct {
	App   string
	Stage string

	ctx        context.Context
	graph      construct.Graph
	outputs    *output.Table
	registry   *Registry
	mu         sync.Mutex
	transforms map[string][]*Transform
	components []*Component
}

func NewStack(ctx context.Context, app, stage string) (*Stack, error) {
	var err error
	if app == "" {
		err = errors.Join(err, errors.New("app name is required"))
	}
	if stage == "" {
		err = errors.Join(err, errors.New("stage is required"))
	}
	if err != nil {
		return nil, err
	}
	log := logging.GetLogger(ctx).Named("component").With(zap.String("app", app), zap.String("stage", stage))
	return &Stack{
		App:        app,
		Stage:      stage,
		ctx:        logging.WithLogger(ctx, log),
		graph:      construct.NewGraph(),
		outputs:    output.NewTable(),
		registry:   NewRegistry(),
		transforms: make(map[string][]*Transform),
	}, nil
}

func (s *Stack) Context() context.Context {
	return s.ctx
}

func (s *Stack) Graph() construct.Graph {
	return s.graph
}

func (s *Stack) Outputs() *output.Table {
	return s.outputs
}

func (s *Stack) Registry() *Registry {
	return s.registry
}

// Close ends the deployment pass. No components can be created afterwards.
func (s *Stack) Close() {
	s.registry.Close()
}

// AddTransform registers a hook applied to every resource of the qualified type (eg `aws:s3_bucket`)
// recorded after this call, before any component-level transform.
func (s *Stack) AddTransform(qualifiedType string, t *Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transforms[qualifiedType] = append(s.transforms[qualifiedType], t)
}

func (s *Stack) stackTransforms(qualifiedType string) []*Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Transform(nil), s.transforms[qualifiedType]...)
}

// Components returns every component created in the pass, in creation order.
func (s *Stack) Components() []*Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Component(nil), s.components...)
}

func (s *Stack) addComponent(c *Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = append(s.components, c)
}

// Provision reports that a resource has been created with the given attributes, settling every output
// which reads from it.
func (s *Stack) Provision(id construct.ResourceId, attrs map[string]any) error {
	if _, err := s.graph.Vertex(id); err != nil {
		return fmt.Errorf("cannot provision %s: %w", id, err)
	}
	logging.GetLogger(s.ctx).Debug("provisioned", logging.ResourceIdField(id))
	return s.outputs.Resolve(id, attrs)
}
