package cli_config

import (
	"os"
	"os/user"
	"path/filepath"
)

// HomeDir is where the CLI keeps logs and state: HomeEnv, or ~/.platform.
func HomeDir() (string, error) {
	if dir := HomeEnv.GetOr(""); dir != "" {
		return dir, nil
	}
	osUser, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(osUser.HomeDir, ".platform"), nil
}

// ConfigPath returns a path to a file in the home directory.
func ConfigPath(file string) (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, file), nil
}

// CreateConfigPath creates the directory for ConfigPath(file) if it doesn't exist.
func CreateConfigPath(file string) (string, error) {
	p, err := ConfigPath(file)
	if err != nil {
		return "", err
	}
	return p, os.MkdirAll(filepath.Dir(p), 0o755)
}
