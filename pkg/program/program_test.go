package program

import (
	"context"
	"strings"
	"testing"

	"github.com/klothoplatform/platform/pkg/components/aws"
	"github.com/klothoplatform/platform/pkg/config"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/output"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = `
app:
  name: my-app
  home: aws
stage: dev
transforms:
  aws:lambda_function:
    architectures: [arm64]
components:
  - type: aws:Bucket
    name: Uploads
    args:
      cors:
        allowOrigins: ["https://example.com"]
      transform:
        bucket:
          forceDestroy: true
  - type: aws:Function
    name: Api
    args:
      handler: index.handler
      bundle: dist/api
      memory: "512"
      url: true
    link: [Uploads]
  - type: aws:Cron
    name: Nightly
    args:
      schedule: "0 3 * * *"
      function: Api
  - type: aws:Email
    name: Mail
    args:
      sender: mail.example.com
      dns:
        provider: vercel
        domain: example.com
        teamId: team_1
  - type: aws:Nuxt
    name: Docs
    args:
      path: /site
      domain:
        name: docs.example.com
        dns:
          provider: cloudflare
          domain: example.com
          zoneId: zone-1
    link: [Uploads, Api]
`

func siteFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	for name, content := range map[string]string{
		"/site/.output/nitro.json":              `{"preset": "aws-lambda"}`,
		"/site/.output/server/index.mjs":        "",
		"/site/.output/public/_nuxt/app.abc.js": "",
		"/site/.output/public/favicon.ico":      "",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func decode(t *testing.T, src string) *config.Project {
	p, err := config.DecodeProject(strings.NewReader(src), "yaml")
	require.NoError(t, err)
	return p
}

func TestProgram_Run(t *testing.T) {
	assert := assert.New(t)
	p := &Program{Project: decode(t, project), Fs: siteFs(t)}
	stack, err := p.Run(context.Background())
	require.NoError(t, err)
	t.Cleanup(stack.Close)

	assert.Equal("my-app", stack.App)
	assert.Equal("dev", stack.Stage)

	c, ok := p.Component("Uploads")
	require.True(t, ok)
	uploads := c.(*aws.Bucket)
	assert.Equal(true, uploads.BucketResource().Properties["forceDestroy"])
	_, hasCors := uploads.Node("cors")
	assert.True(hasCors)

	c, _ = p.Component("Api")
	api := c.(*aws.Function)
	fn := api.FunctionResource()
	assert.Equal(512, fn.Properties["memorySize"])
	assert.Equal([]any{"arm64"}, fn.Properties["architectures"], "stack transform applies to every function")
	vars := fn.Properties["environment"].(map[string]any)["variables"].(map[string]any)
	assert.Contains(vars, "SST_RESOURCE_Uploads")

	c, _ = p.Component("Nightly")
	cron := c.(*aws.Cron)
	assert.Equal(api.URN(), cron.Job.URN())
	target, _ := cron.Node("target")
	deps, err := construct.DirectDownstreamDependencies(stack.Graph(), target.ID)
	require.NoError(t, err)
	assert.Contains(deps, fn.ID)

	c, _ = p.Component("Mail")
	mail := c.(*aws.Email)
	dkim, ok := mail.Node("dkim-0-CNAME-record")
	require.True(t, ok)
	assert.Equal("vercel:dns_record", dkim.ID.QualifiedTypeName())
	assert.Equal("team_1", dkim.Properties["teamId"])

	c, _ = p.Component("Docs")
	docs := c.(*aws.SsrSite)
	alias, ok := docs.Node("alias-CNAME-record")
	require.True(t, ok)
	zone, _, err := alias.Properties["zoneId"].(output.Output[string]).Value()
	require.NoError(t, err)
	assert.Equal("zone-1", zone)
	serverVars := docs.Server().FunctionResource().Properties["environment"].(map[string]any)["variables"].(map[string]any)
	assert.Contains(serverVars, "SST_RESOURCE_Uploads")
	assert.Contains(serverVars, "SST_RESOURCE_Api")

	var top []string
	for _, c := range stack.Components() {
		if c.Parent() == nil {
			top = append(top, c.Name())
		}
	}
	assert.Equal([]string{"Uploads", "Api", "Nightly", "Mail", "Docs"}, top)
}

func TestProgram_Run_errors(t *testing.T) {
	tests := []struct {
		name    string
		project string
		want    string
	}{
		{
			name:    "unknown type",
			project: `components: [{type: "aws:Queue", name: Jobs}]`,
			want:    `unknown component type "aws:Queue"`,
		},
		{
			name:    "unknown arg",
			project: `components: [{type: "aws:Bucket", name: Uploads, args: {versioned: true}}]`,
			want:    "invalid args",
		},
		{
			name: "unknown component reference",
			project: `components:
  - {type: "aws:Cron", name: Nightly, args: {schedule: "rate(1 day)", function: Missing}}`,
			want: `unknown component "Missing"`,
		},
		{
			name: "wrong component type",
			project: `components:
  - {type: "aws:Bucket", name: Uploads}
  - {type: "aws:Cron", name: Nightly, args: {schedule: "rate(1 day)", function: Uploads}}`,
			want: `component "Uploads" is a aws:Bucket, which cannot be used as *aws.Function`,
		},
		{
			name: "link on a component without links",
			project: `components:
  - {type: "aws:Bucket", name: Uploads}
  - {type: "aws:Bucket", name: Backups, link: [Uploads]}`,
			want: "invalid args",
		},
		{
			name: "unknown dns provider",
			project: `components:
  - {type: "aws:Email", name: Mail, args: {sender: example.com, dns: {provider: gandi, domain: example.com}}}`,
			want: `unknown dns provider "gandi"`,
		},
		{
			name:    "bad transform type",
			project: "transforms: {lambda_function: {memorySize: 1}}",
			want:    `invalid transform type "lambda_function"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decode(t, "app: {name: my-app, home: aws}\nstage: dev\n"+tt.project)
			_, err := Run(context.Background(), p)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{
		"aws:Analog",
		"aws:AppSync",
		"aws:Bucket",
		"aws:Cron",
		"aws:Email",
		"aws:Function",
		"aws:Nuxt",
		"aws:Remix",
		"aws:SolidStart",
	}, Types())
}
