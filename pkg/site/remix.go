package site

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/lithammer/dedent"
	"github.com/spf13/afero"
)

// RemixPlanner plans Remix sites. Vite builds (Remix 2.2+) write the server and client to build/server and
// build/client; classic builds are configured by remix.config.js and serve the public directory.
type RemixPlanner struct {
	// Streaming wraps the server build in a response-streaming handler.
	Streaming bool
}

const remixWrapperFile = "server.mjs"

var (
	Remix = &RemixPlanner{}

	remixViteConfigs   = []string{"vite.config.ts", "vite.config.js", "vite.config.mjs"}
	remixClassicConfig = "remix.config.js"

	viteBasePattern        = regexp.MustCompile(`base: ['"](.*)['"]`)
	remixServerPathPattern = regexp.MustCompile(`serverBuildPath: ['"](.*)['"]`)

	remixWrapper = template.Must(template.New(remixWrapperFile).Funcs(sprig.TxtFuncMap()).Parse(dedent.Dedent(`
		import { createRequestHandler } from "@remix-run/node";
		import * as build from {{ .Entry | quote }};
		{{- if .Streaming }}

		const handleRequest = createRequestHandler(build, "production");

		export const handler = awslambda.streamifyResponse(async (event, responseStream) => {
		  const response = await handleRequest(toRequest(event));
		  responseStream = awslambda.HttpResponseStream.from(responseStream, {
		    statusCode: response.status,
		    headers: Object.fromEntries(response.headers.entries()),
		  });
		  if (response.body) {
		    for await (const chunk of response.body) responseStream.write(chunk);
		  }
		  responseStream.end();
		});
		{{- else }}

		const handleRequest = createRequestHandler(build, "production");

		export const handler = async (event) => {
		  const response = await handleRequest(toRequest(event));
		  return {
		    statusCode: response.status,
		    headers: Object.fromEntries(response.headers.entries()),
		    body: await response.text(),
		  };
		};
		{{- end }}

		function toRequest(event) {
		  const host = event.headers["x-forwarded-host"] || event.headers.host;
		  const search = event.rawQueryString ? "?" + event.rawQueryString : "";
		  const url = new URL(event.rawPath + search, "https://" + host);
		  const init = { method: event.requestContext.http.method, headers: event.headers };
		  if (event.body && init.method !== "GET" && init.method !== "HEAD") {
		    init.body = event.isBase64Encoded ? Buffer.from(event.body, "base64") : event.body;
		  }
		  return new Request(url, init);
		}
	`)))
)

func (r *RemixPlanner) Name() string { return "remix" }

// Plan writes the Lambda handler `server.mjs` into the server build directory of `fs`, the bundle deployed as the
// site's function. Pass a copy-on-write fs to leave the build untouched.
func (r *RemixPlanner) Plan(fs afero.Fs, dir string) (*Plan, error) {
	if err := CheckVersion(fs, dir, "@remix-run/dev", "2.0.0"); err != nil {
		return nil, err
	}
	if cfg, ok := firstExisting(fs, dir, remixViteConfigs...); ok {
		return r.planVite(fs, dir, cfg)
	}
	if ok, _ := afero.Exists(fs, path.Join(dir, remixClassicConfig)); ok {
		return r.planClassic(fs, dir)
	}
	return nil, &ValidationError{
		File:   remixClassicConfig,
		Reason: fmt.Sprintf("no %s or %s found", strings.Join(remixViteConfigs, ", "), remixClassicConfig),
	}
}

func (r *RemixPlanner) planVite(fs afero.Fs, dir, cfg string) (*Plan, error) {
	base, err := matchBase(fs, dir, cfg, viteBasePattern)
	if err != nil {
		return nil, err
	}
	serverDir := path.Join(dir, "build", "server")
	bundle, err := r.writeWrapper(fs, serverDir, "index.js")
	if err != nil {
		return nil, err
	}
	return &Plan{
		Framework: "remix",
		Base:      base,
		Server:    r.server(bundle),
		Assets: []Asset{{
			From:            path.Join(dir, "build", "client"),
			To:              base,
			Cached:          true,
			VersionedSubDir: "assets",
		}},
	}, nil
}

func (r *RemixPlanner) planClassic(fs afero.Fs, dir string) (*Plan, error) {
	b, err := afero.ReadFile(fs, path.Join(dir, remixClassicConfig))
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", remixClassicConfig, err)
	}
	serverPath := "build/index.js"
	if m := remixServerPathPattern.FindSubmatch(b); m != nil {
		serverPath = strings.TrimPrefix(string(m[1]), "./")
	}
	if !strings.HasSuffix(serverPath, ".js") && !strings.HasSuffix(serverPath, ".mjs") && !strings.HasSuffix(serverPath, ".cjs") {
		return nil, &ValidationError{File: remixClassicConfig, Value: serverPath, Reason: "serverBuildPath must be a JavaScript file"}
	}
	bundle, err := r.writeWrapper(fs, path.Join(dir, path.Dir(serverPath)), path.Base(serverPath))
	if err != nil {
		return nil, err
	}
	return &Plan{
		Framework: "remix",
		Server:    r.server(bundle),
		Assets: []Asset{{
			From:            path.Join(dir, "public"),
			Cached:          true,
			VersionedSubDir: "build",
		}},
	}, nil
}

func (r *RemixPlanner) server(bundle string) Server {
	return Server{
		Handler:     strings.TrimSuffix(remixWrapperFile, ".mjs") + ".handler",
		Bundle:      bundle,
		Streaming:   r.Streaming,
		Description: "remix server",
	}
}

// writeWrapper writes the Lambda handler next to the server build, returning the bundle directory.
func (r *RemixPlanner) writeWrapper(fs afero.Fs, serverDir, entry string) (string, error) {
	if ok, _ := afero.Exists(fs, path.Join(serverDir, entry)); !ok {
		return "", &ValidationError{File: path.Join(serverDir, entry), Reason: "server build not found, run the production build first"}
	}
	src, err := RenderRemixHandler("./"+entry, r.Streaming)
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(fs, path.Join(serverDir, remixWrapperFile), []byte(src), 0644); err != nil {
		return "", fmt.Errorf("could not write server handler: %w", err)
	}
	return serverDir, nil
}

// RenderRemixHandler is the source of the Lambda handler wrapping the Remix server build at entry.
func RenderRemixHandler(entry string, streaming bool) (string, error) {
	var buf bytes.Buffer
	err := remixWrapper.Execute(&buf, map[string]any{
		"Entry":     entry,
		"Streaming": streaming,
	})
	if err != nil {
		return "", fmt.Errorf("could not render server handler: %w", err)
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}
