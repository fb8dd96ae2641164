package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/klothoplatform/platform/pkg/cli_config"
	"github.com/klothoplatform/platform/pkg/closenicely"
	"github.com/pelletier/go-toml/v2"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type (
	// Project is the contents of a project file: the app, the stage to deploy it to and its components.
	Project struct {
		App        AppInput                  `json:"app" yaml:"app" toml:"app"`
		Stage      string                    `json:"stage,omitempty" yaml:"stage,omitempty" toml:"stage,omitempty"`
		Components []Component               `json:"components" yaml:"components" toml:"components"`
		// Transforms patch the args of every resource of a qualified type, eg `aws:lambda_function`.
		Transforms map[string]map[string]any `json:"transforms,omitempty" yaml:"transforms,omitempty" toml:"transforms,omitempty"`

		// Format is what format the file was originally in.
		Format string `json:"-" yaml:"-" toml:"-"`
		// Dir is the directory of the project file, which relative paths in args are resolved against.
		Dir string `json:"-" yaml:"-" toml:"-"`
	}

	AppInput struct {
		Name string `json:"name" yaml:"name" toml:"name"`
		// Home is the provider which stores the app's state.
		Home      string         `json:"home" yaml:"home" toml:"home"`
		Providers map[string]any `json:"providers,omitempty" yaml:"providers,omitempty" toml:"providers,omitempty"`
	}

	// Component declares a component by type, eg `aws:Bucket`. Args are decoded into the type's args struct.
	Component struct {
		Type string         `json:"type" yaml:"type" toml:"type"`
		Name string         `json:"name" yaml:"name" toml:"name"`
		Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
		// Link names components declared earlier whose links are granted to this one.
		Link []string `json:"link,omitempty" yaml:"link,omitempty" toml:"link,omitempty"`
	}

	AppConfig struct {
		Name      string
		Home      string
		Providers map[string]any
	}
)

// Homes are the providers an app's state can be stored with.
var Homes = []string{"aws", "cloudflare", "local"}

// Providers are the providers components and DNS adapters can use.
var Providers = []string{"aws", "cloudflare", "vercel"}

var appNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// App validates the app input. The home provider is added to the providers when it is not listed.
func App(input AppInput) (AppConfig, error) {
	var err error
	if !appNamePattern.MatchString(input.Name) {
		err = errors.Join(err, fmt.Errorf("invalid app name %q (must match %s)", input.Name, appNamePattern))
	}
	if !contains(Homes, input.Home) {
		err = errors.Join(err, fmt.Errorf("invalid home %q (must be one of %v)", input.Home, Homes))
	}
	names := make([]string, 0, len(input.Providers))
	for name := range input.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !contains(Providers, name) {
			err = errors.Join(err, fmt.Errorf("unknown provider %q (must be one of %v)", name, Providers))
		}
	}
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{Name: input.Name, Home: input.Home, Providers: make(map[string]any, len(input.Providers)+1)}
	for k, v := range input.Providers {
		cfg.Providers[k] = v
	}
	if _, ok := cfg.Providers[input.Home]; !ok && input.Home != "local" {
		cfg.Providers[input.Home] = map[string]any{}
	}
	return cfg, nil
}

// ReadProject reads and validates a project file, choosing the format by its extension.
func ReadProject(fpath string) (*Project, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "could not open project file")
	}
	defer closenicely.OrDebug(f, zap.String("project", fpath))

	var format string
	switch filepath.Ext(fpath) {
	case ".json":
		format = "json"
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, pkgerrors.Errorf("unsupported project file %s (expected .yaml, .yml, .toml or .json)", fpath)
	}
	p, err := DecodeProject(f, format)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "could not load project file %s", fpath)
	}
	if p.Dir, err = filepath.Abs(filepath.Dir(fpath)); err != nil {
		return nil, pkgerrors.Wrap(err, "could not resolve project directory")
	}
	return p, nil
}

// DecodeProject decodes and validates a project. A missing stage defaults to [cli_config.DefaultStage].
func DecodeProject(r io.Reader, format string) (*Project, error) {
	p := &Project{Format: format}
	var err error
	switch format {
	case "json":
		err = json.NewDecoder(r).Decode(p)
	case "yaml":
		err = yaml.NewDecoder(r).Decode(p)
	case "toml":
		err = toml.NewDecoder(r).Decode(p)
	default:
		return nil, pkgerrors.Errorf("unknown project format %q", format)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrapf(err, "could not decode %s", format)
	}
	if p.Stage == "" {
		p.Stage = cli_config.DefaultStage()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the app and that every component has a type and a unique name, and only links to components
// declared before it.
func (p *Project) Validate() error {
	_, err := App(p.App)
	seen := make(map[string]bool, len(p.Components))
	for i, c := range p.Components {
		if c.Type == "" {
			err = errors.Join(err, fmt.Errorf("component %d (%s) is missing a type", i, c.Name))
		}
		if c.Name == "" {
			err = errors.Join(err, fmt.Errorf("component %d (%s) is missing a name", i, c.Type))
		}
		if seen[c.Name] {
			err = errors.Join(err, fmt.Errorf("duplicate component name %q", c.Name))
		}
		for _, l := range c.Link {
			if !seen[l] {
				err = errors.Join(err, fmt.Errorf("component %q links to %q, which is not declared before it", c.Name, l))
			}
		}
		seen[c.Name] = true
	}
	return err
}
