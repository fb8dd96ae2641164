package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--color", "never"}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	fpath := filepath.Join(dir, "platform.yaml")
	require.NoError(t, os.WriteFile(fpath, []byte(`
app: {name: my-app, home: aws}
stage: dev
components:
  - {type: "aws:Bucket", name: Uploads}
  - {type: "aws:Function", name: Api, args: {handler: index.handler, bundle: dist}, link: [Uploads]}
`), 0o644))

	out, err := run(t, "plan", fpath, "--stage", "prod")
	require.NoError(t, err)

	docs := strings.Split(out, "\n---\n")
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0], "aws:s3_bucket")
	assert.Contains(t, docs[0], "aws:lambda_function")

	var plan struct {
		Outputs map[string]map[string]any `yaml:"outputs"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(docs[1]), &plan))
	assert.Len(t, plan.Outputs, 2)
	assert.Contains(t, plan.Outputs, "Uploads")
	assert.Contains(t, plan.Outputs, "Api")
}

func TestPlan_errors(t *testing.T) {
	_, err := run(t, "plan", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "could not open project file")

	_, err = run(t, "plan")
	assert.Error(t, err)
}

func TestSite(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		".output/nitro.json":              `{"preset": "aws-lambda"}`,
		".output/server/index.mjs":        "",
		".output/public/_nuxt/app.abc.js": "",
	} {
		fpath := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(fpath), 0o755))
		require.NoError(t, os.WriteFile(fpath, []byte(content), 0o644))
	}

	out, err := run(t, "site", "nuxt", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "handler: index.handler")
	assert.Contains(t, out, "versionedSubDir: _nuxt")

	_, err = run(t, "site", "gatsby", dir)
	assert.ErrorContains(t, err, `unsupported framework "gatsby"`)
}

func TestSite_remixBuildUnchanged(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"package.json":             `{"devDependencies": {"@remix-run/dev": "^2.8.0"}}`,
		"vite.config.ts":           `export default defineConfig({ plugins: [remix()] })`,
		"build/server/index.js":    "export const mode = 'production'",
		"build/client/favicon.ico": "",
	} {
		fpath := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(fpath), 0o755))
		require.NoError(t, os.WriteFile(fpath, []byte(content), 0o644))
	}

	out, err := run(t, "site", "remix", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "handler: server.handler")
	assert.NoFileExists(t, filepath.Join(dir, "build", "server", "server.mjs"))
}

func TestTypes(t *testing.T) {
	out, err := run(t, "types")
	require.NoError(t, err)
	assert.Equal(t, "aws:Analog", strings.SplitN(out, "\n", 2)[0])
	assert.Contains(t, out, "aws:SolidStart\n")
}
