package site

import (
	"path"
	"regexp"

	"github.com/spf13/afero"
)

const (
	presetLambda          = "aws-lambda"
	presetLambdaStreaming = "aws-lambda-streaming"
)

type (
	// NitroPlanner plans sites built with the Nitro server toolkit, which Nuxt, Analog and SolidStart share. They
	// differ only in where the build writes its output and which file declares the base path.
	NitroPlanner struct {
		Framework string
		// Manifest is the nitro.json the build emits.
		Manifest    string
		ConfigFiles []string
		BasePattern *regexp.Regexp
		ServerDir   string
		PublicDir   string
		// VersionedSubDir is where the build writes hashed client assets, relative to PublicDir.
		VersionedSubDir string
		// Package and MinVersion check the installed framework version when set.
		Package    string
		MinVersion string
	}

	nitroManifest struct {
		Preset string `json:"preset"`
		Config struct {
			AWSLambda struct {
				Streaming bool `json:"streaming"`
			} `json:"awsLambda"`
		} `json:"config"`
	}
)

var (
	Nuxt = &NitroPlanner{
		Framework:       "nuxt",
		Manifest:        ".output/nitro.json",
		ConfigFiles:     []string{"nuxt.config.ts", "nuxt.config.js", "nuxt.config.mjs"},
		BasePattern:     regexp.MustCompile(`baseURL: ['"](.*)['"]`),
		ServerDir:       ".output/server",
		PublicDir:       ".output/public",
		VersionedSubDir: "_nuxt",
		Package:         "nuxt",
		MinVersion:      "3.0.0",
	}

	Analog = &NitroPlanner{
		Framework:   "analog",
		Manifest:    "dist/analog/nitro.json",
		ConfigFiles: []string{"vite.config.ts", "vite.config.js", "vite.config.mjs"},
		BasePattern: regexp.MustCompile(`base: ['"](.*)['"]`),
		ServerDir:   "dist/analog/server",
		PublicDir:   "dist/analog/public",
		Package:     "@analogjs/platform",
		MinVersion:  "1.0.0",
	}

	SolidStart = &NitroPlanner{
		Framework:       "solid-start",
		Manifest:        ".output/nitro.json",
		ConfigFiles:     []string{"app.config.ts", "app.config.js"},
		BasePattern:     regexp.MustCompile(`baseURL: ['"](.*)['"]`),
		ServerDir:       ".output/server",
		PublicDir:       ".output/public",
		VersionedSubDir: "_build",
		Package:         "@solidjs/start",
		MinVersion:      "1.0.0",
	}
)

func (n *NitroPlanner) Name() string { return n.Framework }

// Plan reads the build output in dir. The build must have been produced with one of the AWS Lambda presets.
func (n *NitroPlanner) Plan(fs afero.Fs, dir string) (*Plan, error) {
	if n.Package != "" {
		if err := CheckVersion(fs, dir, n.Package, n.MinVersion); err != nil {
			return nil, err
		}
	}

	var manifest nitroManifest
	if err := readJSON(fs, dir, n.Manifest, &manifest); err != nil {
		return nil, err
	}
	switch manifest.Preset {
	case presetLambda, presetLambdaStreaming:
	default:
		return nil, &ValidationError{
			File:   n.Manifest,
			Value:  manifest.Preset,
			Reason: `unsupported preset, set the nitro preset to "aws-lambda" or "aws-lambda-streaming"`,
		}
	}

	base := ""
	if cfg, ok := firstExisting(fs, dir, n.ConfigFiles...); ok {
		var err error
		if base, err = matchBase(fs, dir, cfg, n.BasePattern); err != nil {
			return nil, err
		}
	}

	return &Plan{
		Framework: n.Framework,
		Base:      base,
		Server: Server{
			Handler:     "index.handler",
			Bundle:      path.Join(dir, n.ServerDir),
			Streaming:   manifest.Preset == presetLambdaStreaming || manifest.Config.AWSLambda.Streaming,
			Description: n.Framework + " server",
		},
		Assets: []Asset{{
			From:            path.Join(dir, n.PublicDir),
			To:              base,
			Cached:          true,
			VersionedSubDir: n.VersionedSubDir,
		}},
	}, nil
}
