// Package site reads the output of a web framework's production build and turns it into a Plan: where the server
// bundle is, how to invoke it and which static assets to upload.
package site

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

type (
	Plan struct {
		Framework string  `yaml:"framework"`
		Base      string  `yaml:"base,omitempty"`
		Server    Server  `yaml:"server"`
		Assets    []Asset `yaml:"assets"`
	}

	Server struct {
		// Handler is `<file>.<export>` relative to Bundle.
		Handler     string `yaml:"handler"`
		Bundle      string `yaml:"bundle"`
		Streaming   bool   `yaml:"streaming,omitempty"`
		Description string `yaml:"description,omitempty"`
	}

	Asset struct {
		From string `yaml:"from"`
		To   string `yaml:"to,omitempty"`
		// Cached assets are fingerprinted by the build and can be cached forever.
		Cached bool `yaml:"cached"`
		// VersionedSubDir holds the hashed files inside From.
		VersionedSubDir string `yaml:"versionedSubDir,omitempty"`
	}

	ValidationError struct {
		File   string
		Value  string
		Reason string
	}
)

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Reason)
	}
	return fmt.Sprintf("%s: %s (found %q)", e.File, e.Reason, e.Value)
}

// readJSON decodes the file at `file` (relative to dir). A missing file is a *ValidationError.
func readJSON(fs afero.Fs, dir, file string, v any) error {
	p := path.Join(dir, file)
	b, err := afero.ReadFile(fs, p)
	if err != nil {
		if exists, _ := afero.Exists(fs, p); !exists {
			return &ValidationError{File: file, Reason: "not found, run the production build first"}
		}
		return fmt.Errorf("could not read %s: %w", p, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &ValidationError{File: file, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// firstExisting returns the first of the candidate files present in dir.
func firstExisting(fs afero.Fs, dir string, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if ok, _ := afero.Exists(fs, path.Join(dir, c)); ok {
			return c, true
		}
	}
	return "", false
}

// matchBase extracts the base path declared in a framework config file with the given pattern. No declaration is
// the root.
func matchBase(fs afero.Fs, dir, file string, pattern *regexp.Regexp) (string, error) {
	b, err := afero.ReadFile(fs, path.Join(dir, file))
	if err != nil {
		return "", fmt.Errorf("could not read %s: %w", file, err)
	}
	m := pattern.FindSubmatch(b)
	if m == nil {
		return "", nil
	}
	return normalizeBase(file, string(m[1]))
}

// normalizeBase returns the base without leading or trailing slashes.
func normalizeBase(file, base string) (string, error) {
	if base == "" || base == "/" {
		return "", nil
	}
	if !strings.HasPrefix(base, "/") {
		return "", &ValidationError{File: file, Value: base, Reason: "base path must start with a slash"}
	}
	return strings.Trim(base, "/"), nil
}
