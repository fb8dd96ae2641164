package aws

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/iam"
	"github.com/klothoplatform/platform/pkg/link"
	"github.com/klothoplatform/platform/pkg/output"
	"github.com/spf13/afero"
)

const AppSyncType = "aws:AppSync"

type (
	AppSyncArgs struct {
		// Schema is the path to the GraphQL schema file.
		Schema string
		Domain *Domain
		Fs     afero.Fs `mapstructure:"-"`
		// DataSources and Resolvers (keyed by operation) are added as if by AddDataSource and AddResolver.
		DataSources []DataSourceArgs
		Resolvers   map[string]ResolverArgs

		Transform struct {
			Api         *component.Transform
			DomainName  *component.Transform
			Certificate *component.Transform
		}
	}

	AppSync struct {
		*component.Component
		domain      *Domain
		api         *construct.Resource
		dataSources map[string]*construct.Resource
		resolvers   map[string]*construct.Resource
	}

	DataSourceArgs struct {
		Name string
		// Exactly one of Function, Http or None selects the data source type.
		Function *Function
		Http     string
		None     bool
	}

	ResolverArgs struct {
		DataSource       string
		RequestTemplate  string
		ResponseTemplate string
		// Code is an APPSYNC_JS resolver, used instead of the templates.
		Code string
	}
)

var (
	_ link.Linkable = (*AppSync)(nil)

	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func NewAppSync(stack *component.Stack, name string, args AppSyncArgs, opts ...component.Option) (*AppSync, error) {
	if args.Schema == "" {
		return nil, fmt.Errorf("invalid appsync %s: schema is required", name)
	}
	if err := args.Domain.validate(); err != nil {
		return nil, fmt.Errorf("invalid appsync %s: %w", name, err)
	}
	fs := args.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	schema, err := afero.ReadFile(fs, args.Schema)
	if err != nil {
		return nil, fmt.Errorf("could not read schema for appsync %s: %w", name, err)
	}
	if len(strings.TrimSpace(string(schema))) == 0 {
		return nil, fmt.Errorf("invalid appsync %s: schema %s is empty", name, args.Schema)
	}

	c, err := component.New(stack, AppSyncType, name, opts...)
	if err != nil {
		return nil, err
	}
	a := &AppSync{
		Component:   c,
		domain:      args.Domain,
		dataSources: make(map[string]*construct.Resource),
		resolvers:   make(map[string]*construct.Resource),
	}

	a.api, err = c.AddResource("api", resource("appsync_graphql_api", construct.Properties{
		"name":               c.PhysicalName("api", 65),
		"authenticationType": "API_KEY",
		"schema":             string(schema),
	}, args.Transform.Api))
	if err != nil {
		return nil, err
	}

	if args.Domain != nil {
		if err := a.createDomain(args); err != nil {
			return nil, err
		}
	}
	for _, ds := range args.DataSources {
		if _, err := a.AddDataSource(ds); err != nil {
			return nil, err
		}
	}
	operations := make([]string, 0, len(args.Resolvers))
	for op := range args.Resolvers {
		operations = append(operations, op)
	}
	sort.Strings(operations)
	for _, op := range operations {
		if _, err := a.AddResolver(op, args.Resolvers[op]); err != nil {
			return nil, err
		}
	}
	if err := c.RegisterOutputs(map[string]any{"id": a.Id(), "url": a.Url()}); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AppSync) createDomain(args AppSyncArgs) error {
	cert, err := newCertificate(a.Component, args.Domain, args.Transform.Certificate)
	if err != nil {
		return err
	}
	domainName, err := a.AddResource("domain", resource("appsync_domain_name", construct.Properties{
		"domainName":     args.Domain.Name,
		"certificateArn": cert.arn,
	}, args.Transform.DomainName))
	if err != nil {
		return err
	}
	if _, err := a.AddResource("domain-association", resource("appsync_domain_name_api_association", construct.Properties{
		"apiId":      a.Id(),
		"domainName": a.Attr(domainName, "domainName"),
	}, nil)); err != nil {
		return err
	}
	if args.Domain.Dns == nil {
		return nil
	}
	_, err = args.Domain.Dns.CreateAlias(a.Component, "alias", dns.AliasRecord{
		Name:      args.Domain.Name,
		AliasName: a.Attr(domainName, "appsyncDomainName"),
		AliasZone: a.Attr(domainName, "hostedZoneId"),
	})
	return err
}

// AddDataSource connects a function, an HTTP endpoint or nothing (for local resolvers) to the API.
func (a *AppSync) AddDataSource(args DataSourceArgs) (*construct.Resource, error) {
	if !identPattern.MatchString(args.Name) {
		return nil, fmt.Errorf("invalid data source name %q (must match %s)", args.Name, identPattern)
	}
	// node names are camel-cased into resource names, so `my_ds` and `myDs` are the same data source
	for existing := range a.dataSources {
		if strcase.ToCamel(existing) == strcase.ToCamel(args.Name) {
			return nil, fmt.Errorf("%s already has a data source named %q", a.Name(), existing)
		}
	}
	set := 0
	for _, ok := range []bool{args.Function != nil, args.Http != "", args.None} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of function, http and none is required for a data source")
	}

	props := construct.Properties{
		"apiId": a.Id(),
		"name":  args.Name,
	}
	switch {
	case args.Function != nil:
		invoke, err := iam.FromPermissions(link.AllowPermission([]string{"lambda:InvokeFunction"}, args.Function.Arn()))
		if err != nil {
			return nil, err
		}
		role, err := a.AddResource("data-source-role-"+args.Name, resource("iam_role", construct.Properties{
			"assumeRolePolicy": assumeRolePolicy("appsync.amazonaws.com"),
			"inlinePolicies":   []any{map[string]any{"name": "invoke", "policy": invoke.JSON()}},
		}, nil))
		if err != nil {
			return nil, err
		}
		props["type"] = "AWS_LAMBDA"
		props["serviceRoleArn"] = a.Attr(role, "arn")
		props["lambdaConfig"] = map[string]any{"functionArn": args.Function.Arn()}
	case args.Http != "":
		props["type"] = "HTTP"
		props["httpConfig"] = map[string]any{"endpoint": args.Http}
	default:
		props["type"] = "NONE"
	}

	ds, err := a.AddResource("data-source-"+args.Name, resource("appsync_data_source", props, nil))
	if err != nil {
		return nil, err
	}
	a.dataSources[args.Name] = ds
	return ds, nil
}

// AddResolver attaches a resolver for an operation such as `Query user` to a data source added earlier.
func (a *AppSync) AddResolver(operation string, args ResolverArgs) (*construct.Resource, error) {
	parts := strings.Fields(operation)
	if len(parts) != 2 || !identPattern.MatchString(parts[0]) || !identPattern.MatchString(parts[1]) {
		return nil, fmt.Errorf("invalid resolver operation %q (expected `<type> <field>`, eg `Query user`)", operation)
	}
	typ, field := parts[0], parts[1]
	key := typ + " " + field
	for existing := range a.resolvers {
		if strcase.ToCamel(existing) == strcase.ToCamel(key) {
			return nil, fmt.Errorf("%s already has a resolver for %q", a.Name(), existing)
		}
	}
	ds, ok := a.dataSources[args.DataSource]
	if !ok {
		return nil, fmt.Errorf("resolver %q references unknown data source %q", key, args.DataSource)
	}
	if args.Code != "" && (args.RequestTemplate != "" || args.ResponseTemplate != "") {
		return nil, fmt.Errorf("resolver %q: code cannot be combined with request/response templates", key)
	}

	props := construct.Properties{
		"apiId":      a.Id(),
		"type":       typ,
		"field":      field,
		"dataSource": a.Attr(ds, "name"),
		"kind":       "UNIT",
	}
	if args.Code != "" {
		props["code"] = args.Code
		props["runtime"] = map[string]any{"name": "APPSYNC_JS", "runtimeVersion": "1.0.0"}
	} else {
		props["requestTemplate"] = args.RequestTemplate
		props["responseTemplate"] = args.ResponseTemplate
	}

	r, err := a.AddResource("resolver-"+typ+"-"+field, resource("appsync_resolver", props, nil))
	if err != nil {
		return nil, err
	}
	a.resolvers[key] = r
	return r, nil
}

func (a *AppSync) Id() output.Output[string]  { return a.Attr(a.api, "id") }
func (a *AppSync) Arn() output.Output[string] { return a.Attr(a.api, "arn") }

// Url is the GraphQL endpoint, on the custom domain when there is one.
func (a *AppSync) Url() output.Output[string] {
	if a.domain != nil {
		return output.Of(fmt.Sprintf("https://%s/graphql", a.domain.Name))
	}
	return a.Attr(a.api, "uris.GRAPHQL")
}

func (a *AppSync) LinkName() string { return a.Name() }

func (a *AppSync) Link() (*link.Definition, error) {
	return linkOf(
		map[string]any{"url": a.Url()},
		[]string{"appsync:*"},
		a.Arn(),
	), nil
}
