package cli_config

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

// EnvVar is the name of an environment variable. Use GetOr to read it with a default.
type EnvVar string

const (
	// StageEnv selects the stage when the project file does not name one.
	StageEnv EnvVar = "PLATFORM_STAGE"
	// HomeEnv overrides the directory the CLI keeps its state in.
	HomeEnv EnvVar = "PLATFORM_HOME"
)

// GetOr returns the variable's value, or defaultValue when it is unset or empty.
func (s EnvVar) GetOr(defaultValue string) string {
	if value := os.Getenv(string(s)); value != "" {
		return value
	}
	return defaultValue
}

var stageInvalid = regexp.MustCompile(`[^a-z0-9-]+`)

// DefaultStage is StageEnv if set, otherwise a personal stage named after the current user.
func DefaultStage() string {
	if stage := StageEnv.GetOr(""); stage != "" {
		return stage
	}
	name := "dev"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	stage := strings.Trim(stageInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if stage == "" {
		return "dev"
	}
	return stage
}
