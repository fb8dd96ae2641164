package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klothoplatform/platform/pkg/cli_config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlProject = `
app:
  name: my-app
  home: aws
  providers:
    cloudflare:
      apiToken: secret
stage: production
components:
  - type: aws:Bucket
    name: Uploads
    args:
      public: true
  - type: aws:Function
    name: Api
    args:
      handler: index.handler
      bundle: dist/api
      memory: 512
    link: [Uploads]
`

const tomlProject = `
stage = "production"

[app]
name = "my-app"
home = "aws"

[app.providers.cloudflare]
apiToken = "secret"

[[components]]
type = "aws:Bucket"
name = "Uploads"
args = { public = true }

[[components]]
type = "aws:Function"
name = "Api"
link = ["Uploads"]

[components.args]
handler = "index.handler"
bundle = "dist/api"
memory = 512
`

func TestDecodeProject(t *testing.T) {
	for _, format := range []string{"yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			assert := assert.New(t)
			src := yamlProject
			if format == "toml" {
				src = tomlProject
			}
			p, err := DecodeProject(strings.NewReader(src), format)
			require.NoError(t, err)

			assert.Equal(format, p.Format)
			assert.Equal("production", p.Stage)
			assert.Equal("my-app", p.App.Name)
			assert.Equal("secret", p.App.Providers["cloudflare"].(map[string]any)["apiToken"])
			require.Len(t, p.Components, 2)
			assert.Equal(Component{Type: "aws:Bucket", Name: "Uploads", Args: map[string]any{"public": true}}, p.Components[0])
			assert.Equal([]string{"Uploads"}, p.Components[1].Link)
			assert.Equal("index.handler", p.Components[1].Args["handler"])
			assert.EqualValues(512, p.Components[1].Args["memory"])
		})
	}
}

func TestDecodeProject_defaultStage(t *testing.T) {
	t.Setenv(string(cli_config.StageEnv), "preview")
	p, err := DecodeProject(strings.NewReader(`{"app": {"name": "my-app", "home": "local"}}`), "json")
	require.NoError(t, err)
	assert.Equal(t, "preview", p.Stage)
	assert.Empty(t, p.Components)
}

func TestProject_Validate(t *testing.T) {
	p := &Project{
		App: AppInput{Name: "my-app", Home: "aws"},
		Components: []Component{
			{Type: "aws:Function", Name: "Api", Link: []string{"Uploads"}},
			{Type: "aws:Bucket", Name: "Uploads"},
			{Type: "aws:Bucket", Name: "Uploads"},
			{Name: "Untyped"},
		},
	}
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, `"Api" links to "Uploads", which is not declared before it`)
	assert.ErrorContains(t, err, `duplicate component name "Uploads"`)
	assert.ErrorContains(t, err, "component 3 (Untyped) is missing a type")
}

func TestApp(t *testing.T) {
	tests := []struct {
		name    string
		input   AppInput
		want    AppConfig
		wantErr string
	}{
		{
			name:  "home added to providers",
			input: AppInput{Name: "my-app", Home: "aws", Providers: map[string]any{"vercel": map[string]any{"team": "t"}}},
			want: AppConfig{Name: "my-app", Home: "aws", Providers: map[string]any{
				"aws":    map[string]any{},
				"vercel": map[string]any{"team": "t"},
			}},
		},
		{
			name:  "local home",
			input: AppInput{Name: "site", Home: "local"},
			want:  AppConfig{Name: "site", Home: "local", Providers: map[string]any{}},
		},
		{name: "bad name", input: AppInput{Name: "1app", Home: "aws"}, wantErr: `invalid app name "1app"`},
		{name: "bad home", input: AppInput{Name: "app", Home: "gcp"}, wantErr: `invalid home "gcp"`},
		{
			name:    "unknown provider",
			input:   AppInput{Name: "app", Home: "aws", Providers: map[string]any{"azure": nil}},
			wantErr: `unknown provider "azure"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := App(tt.input)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadProject(t *testing.T) {
	dir := t.TempDir()
	fpath := filepath.Join(dir, "platform.yaml")
	require.NoError(t, os.WriteFile(fpath, []byte(yamlProject), 0o644))

	p, err := ReadProject(fpath)
	require.NoError(t, err)
	assert.Equal(t, "yaml", p.Format)
	assert.Equal(t, dir, p.Dir)

	_, err = ReadProject(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "could not open project file")

	bad := filepath.Join(dir, "platform.ini")
	require.NoError(t, os.WriteFile(bad, nil, 0o644))
	_, err = ReadProject(bad)
	assert.ErrorContains(t, err, "unsupported project file")

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("app = ["), 0o644))
	_, err = ReadProject(invalid)
	assert.ErrorContains(t, err, "could not load project file")
}
