package aws

import (
	"testing"

	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns/vercel"
	"github.com/klothoplatform/platform/pkg/output"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
type Query {
  user(id: ID!): User
  health: String
}

type User {
  id: ID!
  name: String
}
`

func schemaFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "schema.graphql", []byte(testSchema), 0o644))
	require.NoError(t, afero.WriteFile(fs, "empty.graphql", []byte("\n  \n"), 0o644))
	return fs
}

func TestNewAppSync(t *testing.T) {
	assert := assert.New(t)
	s := newTestStack(t)

	users, err := NewFunction(s, "Users", FunctionArgs{Handler: "users.handler", Bundle: "dist/users"})
	require.NoError(t, err)

	api, err := NewAppSync(s, "Api", AppSyncArgs{
		Schema: "schema.graphql",
		Fs:     schemaFs(t),
		DataSources: []DataSourceArgs{
			{Name: "users", Function: users},
			{Name: "local", None: true},
		},
		Resolvers: map[string]ResolverArgs{
			"Query user":   {DataSource: "users"},
			"Query health": {DataSource: "local", Code: "export function request() { return {} }"},
		},
	})
	require.NoError(t, err)

	assert.Equal([]string{
		"api",
		"data-source-role-users",
		"data-source-users",
		"data-source-local",
		"resolver-Query-health",
		"resolver-Query-user",
	}, api.NodeNames())
	assert.Contains(node(t, api, "api").Properties["schema"], "type Query")

	ds := node(t, api, "data-source-users")
	assert.Equal("AWS_LAMBDA", ds.Properties["type"])
	deps, err := construct.AllDownstreamDependencies(s.Graph(), ds.ID)
	require.NoError(t, err)
	assert.Contains(deps, users.FunctionResource().ID)

	health := node(t, api, "resolver-Query-health")
	assert.Equal("APPSYNC_JS", health.Properties["runtime"].(map[string]any)["name"])

	_, err = api.AddDataSource(DataSourceArgs{Name: "users", None: true})
	assert.ErrorContains(err, "already has a data source")
	_, err = api.AddDataSource(DataSourceArgs{Name: "both", None: true, Http: "https://example.com"})
	assert.ErrorContains(err, "exactly one of")
	_, err = api.AddResolver("Query user", ResolverArgs{DataSource: "users"})
	assert.ErrorContains(err, "already has a resolver")
	_, err = api.AddResolver("Mutation addUser", ResolverArgs{DataSource: "missing"})
	assert.ErrorContains(err, `unknown data source "missing"`)
	_, err = api.AddResolver("Query", ResolverArgs{DataSource: "local"})
	assert.ErrorContains(err, "invalid resolver operation")

	upstream, err := api.AddDataSource(DataSourceArgs{Name: "upstream", Http: "https://api.example.com"})
	require.NoError(t, err)
	assert.Equal("HTTP", upstream.Properties["type"])

	require.NoError(t, s.Provision(node(t, api, "api").ID, map[string]any{
		"id":           "abc123",
		"arn":          "arn:aws:appsync:us-east-1:123:apis/abc123",
		"uris.GRAPHQL": "https://abc123.appsync-api.us-east-1.amazonaws.com/graphql",
	}))
	url, _, err := api.Url().Value()
	require.NoError(t, err)
	assert.Equal("https://abc123.appsync-api.us-east-1.amazonaws.com/graphql", url)
}

func TestNewAppSync_domain(t *testing.T) {
	assert := assert.New(t)
	s := newTestStack(t)
	adapter, err := vercel.New(vercel.Args{Domain: "example.com"})
	require.NoError(t, err)

	api, err := NewAppSync(s, "Api", AppSyncArgs{
		Schema: "schema.graphql",
		Fs:     schemaFs(t),
		Domain: &Domain{Name: "api.example.com", Dns: adapter},
	})
	require.NoError(t, err)

	names := api.NodeNames()
	assert.Contains(names, "certificate")
	assert.Contains(names, "caa-CAA-record-0")
	assert.Contains(names, "validation-CNAME-record")
	assert.Contains(names, "domain")
	assert.Contains(names, "domain-association")

	alias := node(t, api, "alias-CNAME-record")
	assert.Equal("api", alias.Properties["name"])
	assert.Equal("vercel:dns_record", alias.ID.QualifiedTypeName())

	validation := node(t, api, "certificate-validation")
	deps, err := construct.DirectDownstreamDependencies(s.Graph(), validation.ID)
	require.NoError(t, err)
	assert.Contains(deps, node(t, api, "validation-CNAME-record").ID)

	url, known, err := api.Url().Value()
	require.NoError(t, err)
	assert.True(known)
	assert.Equal("https://api.example.com/graphql", url)

	def, err := api.Link()
	require.NoError(t, err)
	linked, _, err := def.Properties["url"].(output.Output[string]).Value()
	require.NoError(t, err)
	assert.Equal(url, linked)
}

func TestNewAppSync_invalid(t *testing.T) {
	s := newTestStack(t)
	fs := schemaFs(t)
	adapter, err := vercel.New(vercel.Args{Domain: "example.com"})
	require.NoError(t, err)

	tests := []struct {
		name string
		args AppSyncArgs
		want string
	}{
		{name: "no schema", args: AppSyncArgs{Fs: fs}, want: "schema is required"},
		{name: "missing schema", args: AppSyncArgs{Schema: "nope.graphql", Fs: fs}, want: "could not read schema"},
		{name: "empty schema", args: AppSyncArgs{Schema: "empty.graphql", Fs: fs}, want: "is empty"},
		{
			name: "domain outside zone",
			args: AppSyncArgs{Schema: "schema.graphql", Fs: fs, Domain: &Domain{Name: "api.example.org", Dns: adapter}},
			want: "is not the domain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAppSync(s, "Api", tt.args)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestAppSync_sameResourceName(t *testing.T) {
	tests := []struct {
		name string
		add  func(api *AppSync) error
		want string
	}{
		{
			name: "data source",
			add: func(api *AppSync) error {
				_, err := api.AddDataSource(DataSourceArgs{Name: "myDs", None: true})
				return err
			},
			want: `already has a data source named "my_ds"`,
		},
		{
			name: "resolver",
			add: func(api *AppSync) error {
				_, err := api.AddResolver("Query User", ResolverArgs{DataSource: "my_ds"})
				return err
			},
			want: `already has a resolver for "Query user"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t)
			api, err := NewAppSync(s, "Api", AppSyncArgs{
				Schema:      "schema.graphql",
				Fs:          schemaFs(t),
				DataSources: []DataSourceArgs{{Name: "my_ds", None: true}},
				Resolvers:   map[string]ResolverArgs{"Query user": {DataSource: "my_ds"}},
			})
			require.NoError(t, err)
			nodes := len(api.NodeNames())

			assert.ErrorContains(t, tt.add(api), tt.want)
			assert.Len(t, api.NodeNames(), nodes)
		})
	}
}
