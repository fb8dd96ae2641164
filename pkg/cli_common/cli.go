package clicommon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/klothoplatform/platform/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type CommonConfig struct {
	Verbose   LevelledFlag
	Color     string
	JsonLog   bool
	LogsDir   string
	ProfileTo string
}

// LogOpts turns the flags into logger options. One -v logs at debug level, a second also includes the per-resource
// logs of components.
func (cfg *CommonConfig) LogOpts() logging.LogOpts {
	opts := logging.LogOpts{
		Verbose: cfg.Verbose > 0,
		Color:   cfg.Color,
		LogsDir: cfg.LogsDir,
	}
	if cfg.Verbose < 2 {
		opts.Levels = map[string]zapcore.Level{"component": zap.InfoLevel}
	}
	if cfg.JsonLog {
		opts.Encoding = "json"
	}
	return opts
}

func setupProfiling(cfg *CommonConfig) (func(), error) {
	if cfg.ProfileTo == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ProfileTo), 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	profileF, err := os.OpenFile(cfg.ProfileTo, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(profileF); err != nil {
		profileF.Close()
		return nil, fmt.Errorf("failed to start profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		profileF.Close()
	}, nil
}

// SetupRoot adds the logging and profiling flags to root. Before any command runs, the logger is installed as the
// global logger and in the command's context.
func SetupRoot(root *cobra.Command, cfg *CommonConfig) {
	flags := root.PersistentFlags()
	flags.VarP(&cfg.Verbose, "verbose", "v", "Enable verbose logging (repeat for more)")
	flags.Lookup("verbose").NoOptDefVal = "true"
	flags.StringVar(&cfg.Color, "color", "auto", "When to color output: auto, always or never")
	flags.BoolVar(&cfg.JsonLog, "json-log", false, "Enable JSON logging")
	flags.StringVar(&cfg.LogsDir, "logs-dir", "", "Directory to write per-category logs to")
	flags.StringVar(&cfg.ProfileTo, "profiling", "", "Profile to file")

	profileClose := func() {}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch cfg.Color {
		case "always", "on":
			color.NoColor = false
		case "never", "off":
			color.NoColor = true
		}
		log, err := cfg.LogOpts().NewLogger()
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(log)
		cmd.SetContext(logging.WithLogger(cmd.Context(), log))

		profileClose, err = setupProfiling(cfg)
		return err
	}

	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		zap.L().Sync() //nolint:errcheck

		profileClose()
	}
}
