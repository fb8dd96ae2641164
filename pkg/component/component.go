package component

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/logging"
	"github.com/klothoplatform/platform/pkg/output"
	"go.uber.org/zap"
)

var ErrOutputsRegistered = errors.New("outputs already registered")

var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-]*$`)

type (
	// Component is the base every component embeds. It carries the component's identity, records the resources
	// it creates into the stack's graph and publishes its outputs.
	Component struct {
		stack  *Stack
		typ    string
		name   string
		parent *Component
		urn    string
		chain  string
		log    *zap.Logger

		// namespace is the path of ancestor names, eg `Site/Server`. Empty for top-level components.
		namespace string

		mu         sync.Mutex
		nodes      map[string]any
		nodeOrder  []string
		outputs    map[string]any
		registered bool
	}

	Option func(*Component)

	// ResourceArgs describes a resource for [Component.AddResource].
	ResourceArgs struct {
		Provider   string
		Type       string
		Properties construct.Properties
		Options    construct.Options
		Transform  *Transform
	}
)

// WithParent makes the component a child of `parent`: its name only needs to be unique among its siblings.
func WithParent(parent *Component) Option {
	return func(c *Component) {
		c.parent = parent
	}
}

// New registers a component of the given type tag (eg `aws:Bucket`) under a logical name.
func New(stack *Stack, typ, name string, opts ...Option) (*Component, error) {
	if stack == nil {
		return nil, errors.New("stack is required")
	}
	if typ == "" {
		return nil, errors.New("component type is required")
	}
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid component name %q (must match %s)", name, namePattern)
	}
	c := &Component{
		stack: stack,
		typ:   typ,
		name:  name,
		nodes: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}

	scope := ""
	c.chain = typ
	if c.parent != nil {
		if c.parent.stack != stack {
			return nil, fmt.Errorf("parent %s belongs to a different stack", c.parent.urn)
		}
		scope = c.parent.urn
		c.chain = c.parent.chain + "$" + typ
		c.namespace = c.parent.name
		if c.parent.namespace != "" {
			c.namespace = c.parent.namespace + "/" + c.parent.name
		}
	}
	if err := stack.registry.Register(scope, name, typ); err != nil {
		return nil, err
	}
	c.urn = fmt.Sprintf("urn:%s::%s::%s::%s", stack.Stage, stack.App, c.chain, name)
	c.log = logging.GetLogger(stack.ctx).With(logging.ComponentField(c.urn, typ))

	if c.parent != nil {
		if err := c.parent.addNode(name, c); err != nil {
			return nil, err
		}
	}
	stack.addComponent(c)
	c.log.Debug("created component")
	return c, nil
}

func (c *Component) Type() string        { return c.typ }
func (c *Component) Name() string        { return c.name }
func (c *Component) URN() string         { return c.urn }
func (c *Component) Parent() *Component  { return c.parent }
func (c *Component) Namespace() string   { return c.namespace }
func (c *Component) Stack() *Stack       { return c.stack }
func (c *Component) Logger() *zap.Logger { return c.log }
func (c *Component) Base() *Component    { return c }
func (c *Component) String() string      { return c.urn }

// Resource is implemented by every component through its embedded [Component].
type Resource interface {
	Base() *Component
}

func (c *Component) addNode(node string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.nodes[node]; ok {
		return fmt.Errorf("%s already has a node named %q", c.urn, node)
	}
	c.nodes[node] = v
	c.nodeOrder = append(c.nodeOrder, node)
	return nil
}

func (c *Component) hasNode(node string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.nodes[node]
	return ok
}

// Nodes maps the friendly names of the resources and child components created by this component to them.
func (c *Component) Nodes() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	nodes := make(map[string]any, len(c.nodes))
	for k, v := range c.nodes {
		nodes[k] = v
	}
	return nodes
}

// NodeNames returns the node names in the order they were added.
func (c *Component) NodeNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.nodeOrder...)
}

func (c *Component) Node(node string) (*construct.Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.nodes[node].(*construct.Resource)
	return r, ok
}

// LogicalName is the name of the resource created for `node`, eg `MyBucket` + `policy` = `MyBucketPolicy`.
// Resources of child components also carry the parent's [Component.Namespace] in their id.
func (c *Component) LogicalName(node string) string {
	return c.name + strcase.ToCamel(node)
}

// AddResource records a resource for `node` into the stack's graph. Stack-wide transforms for the resource type run
// first, then args.Transform.
func (c *Component) AddResource(node string, args ResourceArgs) (*construct.Resource, error) {
	id := construct.ResourceId{
		Provider:  args.Provider,
		Type:      args.Type,
		Namespace: c.namespace,
		Name:      c.LogicalName(node),
	}
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resource for %s node %q: %w", c.urn, node, err)
	}
	props := args.Properties
	if props == nil {
		props = make(construct.Properties)
	}
	name, opts := id.Name, args.Options
	for _, t := range c.stack.stackTransforms(id.QualifiedTypeName()) {
		name, props, opts = ApplyTransform(t, name, props, opts)
	}
	name, props, opts = ApplyTransform(args.Transform, name, props, opts)
	id.Name = name
	opts.Parent = c.urn

	r := &construct.Resource{ID: id, Properties: props, Options: opts}
	if c.hasNode(node) {
		return nil, fmt.Errorf("%s already has a node named %q", c.urn, node)
	}
	if err := construct.AddResource(c.stack.graph, r); err != nil {
		return nil, err
	}
	if err := c.addNode(node, r); err != nil {
		return nil, err
	}
	c.log.Debug("added resource", logging.ResourceField(r))
	return r, nil
}

// Attr is the deferred string attribute `property` of a resource, known once the resource is provisioned.
func (c *Component) Attr(r *construct.Resource, property string) output.Output[string] {
	return output.Attr[string](c.stack.outputs, r.ID, property)
}

// RegisterOutputs publishes the component's computed values. It may only be called once.
func (c *Component) RegisterOutputs(outputs map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return fmt.Errorf("%s: %w", c.urn, ErrOutputsRegistered)
	}
	c.registered = true
	c.outputs = make(map[string]any, len(outputs))
	for k, v := range outputs {
		c.outputs[k] = v
	}
	return nil
}

func (c *Component) RegisteredOutputs() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}
	return out
}

// PhysicalName is a deterministic cloud-side name for `node`, at most maxLen characters:
// `<app>-<stage>-<logical name>-<hash>` in kebab case.
func (c *Component) PhysicalName(node string, maxLen int) string {
	sum := sha256.Sum256([]byte(c.urn + "/" + node))
	suffix := hex.EncodeToString(sum[:])[:8]

	base := strcase.ToKebab(fmt.Sprintf("%s-%s-%s", c.stack.App, c.stack.Stage, c.LogicalName(node)))
	if limit := maxLen - len(suffix) - 1; len(base) > limit {
		if limit < 0 {
			limit = 0
		}
		base = strings.TrimRight(base[:limit], "-")
	}
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
