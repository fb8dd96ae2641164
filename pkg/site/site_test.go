package site

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFs(t *testing.T, files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
	return fs
}

func TestNitroPlanner(t *testing.T) {
	tests := []struct {
		name    string
		planner *NitroPlanner
		files   map[string]string
		want    *Plan
		wantErr string
	}{
		{
			name:    "nuxt",
			planner: Nuxt,
			files: map[string]string{
				"/app/.output/nitro.json": `{"preset": "aws-lambda"}`,
				"/app/nuxt.config.ts":     "export default defineNuxtConfig({\n  app: {\n    baseURL: '/docs/',\n  },\n})",
			},
			want: &Plan{
				Framework: "nuxt",
				Base:      "docs",
				Server:    Server{Handler: "index.handler", Bundle: "/app/.output/server", Description: "nuxt server"},
				Assets:    []Asset{{From: "/app/.output/public", To: "docs", Cached: true, VersionedSubDir: "_nuxt"}},
			},
		},
		{
			name:    "nuxt streaming without config file",
			planner: Nuxt,
			files: map[string]string{
				"/app/.output/nitro.json": `{"preset": "aws-lambda-streaming"}`,
			},
			want: &Plan{
				Framework: "nuxt",
				Server:    Server{Handler: "index.handler", Bundle: "/app/.output/server", Streaming: true, Description: "nuxt server"},
				Assets:    []Asset{{From: "/app/.output/public", Cached: true, VersionedSubDir: "_nuxt"}},
			},
		},
		{
			name:    "analog",
			planner: Analog,
			files: map[string]string{
				"/app/dist/analog/nitro.json": `{"preset": "aws-lambda", "config": {"awsLambda": {"streaming": true}}}`,
				"/app/vite.config.ts":         `export default defineConfig(({ mode }) => ({ base: "/" }))`,
			},
			want: &Plan{
				Framework: "analog",
				Server:    Server{Handler: "index.handler", Bundle: "/app/dist/analog/server", Streaming: true, Description: "analog server"},
				Assets:    []Asset{{From: "/app/dist/analog/public", Cached: true}},
			},
		},
		{
			name:    "solid start",
			planner: SolidStart,
			files: map[string]string{
				"/app/.output/nitro.json": `{"preset": "aws-lambda"}`,
				"/app/app.config.ts":      `export default defineConfig({ server: { baseURL: "/shop" } })`,
			},
			want: &Plan{
				Framework: "solid-start",
				Base:      "shop",
				Server:    Server{Handler: "index.handler", Bundle: "/app/.output/server", Description: "solid-start server"},
				Assets:    []Asset{{From: "/app/.output/public", To: "shop", Cached: true, VersionedSubDir: "_build"}},
			},
		},
		{
			name:    "unsupported preset",
			planner: Nuxt,
			files: map[string]string{
				"/app/.output/nitro.json": `{"preset": "node-server"}`,
			},
			wantErr: `"node-server"`,
		},
		{
			name:    "missing preset",
			planner: Analog,
			files: map[string]string{
				"/app/dist/analog/nitro.json": `{}`,
			},
			wantErr: "unsupported preset",
		},
		{
			name:    "missing manifest",
			planner: Nuxt,
			files:   map[string]string{"/app/nuxt.config.ts": ""},
			wantErr: "not found",
		},
		{
			name:    "malformed manifest",
			planner: Nuxt,
			files:   map[string]string{"/app/.output/nitro.json": `{"preset":`},
			wantErr: "invalid JSON",
		},
		{
			name:    "relative base",
			planner: Nuxt,
			files: map[string]string{
				"/app/.output/nitro.json": `{"preset": "aws-lambda"}`,
				"/app/nuxt.config.ts":     `baseURL: "docs"`,
			},
			wantErr: "must start with a slash",
		},
		{
			name:    "framework too old",
			planner: Nuxt,
			files: map[string]string{
				"/app/.output/nitro.json": `{"preset": "aws-lambda"}`,
				"/app/package.json":       `{"dependencies": {"nuxt": "^2.17.0"}}`,
			},
			wantErr: "nuxt 3.0.0 or later is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.planner.Plan(memFs(t, tt.files), "/app")
			if tt.wantErr != "" {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, plan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan)
		})
	}
}

func TestRemixPlanner_vite(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/app/vite.config.ts":           `export default defineConfig({ base: "/blog/", plugins: [remix()] })`,
		"/app/build/server/index.js":    "export const routes = {};",
		"/app/build/client/favicon.ico": "",
	})

	plan, err := Remix.Plan(fs, "/app")
	require.NoError(t, err)
	assert.Equal(t, &Plan{
		Framework: "remix",
		Base:      "blog",
		Server:    Server{Handler: "server.handler", Bundle: "/app/build/server", Description: "remix server"},
		Assets:    []Asset{{From: "/app/build/client", To: "blog", Cached: true, VersionedSubDir: "assets"}},
	}, plan)

	wrapper, err := afero.ReadFile(fs, "/app/build/server/server.mjs")
	require.NoError(t, err)
	assert.Contains(t, string(wrapper), `import * as build from "./index.js";`)
	assert.Contains(t, string(wrapper), "export const handler = async (event)")
}

func TestRemixPlanner_classic(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/app/remix.config.js":   `module.exports = { serverBuildPath: "./build/server.js" };`,
		"/app/build/server.js":   "",
		"/app/public/build/a.js": "",
	})

	plan, err := (&RemixPlanner{Streaming: true}).Plan(fs, "/app")
	require.NoError(t, err)
	assert.Equal(t, "/app/build", plan.Server.Bundle)
	assert.True(t, plan.Server.Streaming)
	assert.Equal(t, []Asset{{From: "/app/public", Cached: true, VersionedSubDir: "build"}}, plan.Assets)

	wrapper, err := afero.ReadFile(fs, "/app/build/server.mjs")
	require.NoError(t, err)
	assert.Contains(t, string(wrapper), `import * as build from "./server.js";`)
	assert.Contains(t, string(wrapper), "awslambda.streamifyResponse")
}

func TestRemixPlanner_errors(t *testing.T) {
	var verr *ValidationError

	_, err := Remix.Plan(memFs(t, map[string]string{"/app/package.json": "{}"}), "/app")
	assert.ErrorAs(t, err, &verr)

	_, err = Remix.Plan(memFs(t, map[string]string{"/app/vite.config.ts": ""}), "/app")
	assert.ErrorAs(t, err, &verr)
	assert.ErrorContains(t, err, "server build not found")

	_, err = Remix.Plan(memFs(t, map[string]string{"/app/remix.config.js": `serverBuildPath: "build/server"`}), "/app")
	assert.ErrorContains(t, err, "must be a JavaScript file")
}

func TestRenderRemixHandler(t *testing.T) {
	src, err := RenderRemixHandler("./index.js", false)
	require.NoError(t, err)
	assert.Regexp(t, `^import \{ createRequestHandler \}`, src, "template is dedented")
	assert.NotContains(t, src, "streamifyResponse")
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		declared string
		wantErr  bool
	}{
		{declared: "^3.8.1"},
		{declared: "~3.0"},
		{declared: ">=3 <4"},
		{declared: "3.0.0-rc.1", wantErr: true},
		{declared: "2.17.2", wantErr: true},
		{declared: "^2", wantErr: true},
		{declared: "latest"},
		{declared: "workspace:*"},
		{declared: "3.x"},
	}
	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			fs := memFs(t, map[string]string{"/app/package.json": `{"devDependencies": {"nuxt": "` + tt.declared + `"}}`})
			err := CheckVersion(fs, "/app", "nuxt", "3.0.0")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
	assert.NoError(t, CheckVersion(afero.NewMemMapFs(), "/app", "nuxt", "3.0.0"), "no package.json")
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"nuxt", "Remix", "analog", "solid-start"} {
		p, err := Lookup(name)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}
	_, err := Lookup("gatsby")
	assert.ErrorContains(t, err, "gatsby")
	assert.Equal(t, []string{"analog", "nuxt", "remix", "solid-start"}, Frameworks())
}

func TestPlan_unsupportedPresetIsNotPartial(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/app/.output/nitro.json": `{"preset": "vercel"}`,
		"/app/nuxt.config.ts":     `baseURL: "/x"`,
	})
	plan, err := PlanFramework(fs, "nuxt", "/app")
	assert.Nil(t, plan)
	assert.ErrorContains(t, err, `"vercel"`)
}
