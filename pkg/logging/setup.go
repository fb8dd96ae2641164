package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	prettyconsole "github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// LevelEnv overrides the level of named loggers, eg `LOG_LEVEL=component=debug,dns=warn`.
const LevelEnv = "LOG_LEVEL"

// LogOpts configures the root logger.
type LogOpts struct {
	Verbose bool
	// Color is one of auto (the default), always/on or never/off.
	Color string
	// Encoding is console (the default) or json.
	Encoding string
	// LogsDir, when set, also writes each logger's category to its own file in the directory.
	LogsDir string
	// Levels for named loggers, replaced entirely by LevelEnv when it is set.
	Levels map[string]zapcore.Level
}

func (opts LogOpts) useColor() bool {
	switch opts.Color {
	case "always", "on":
		return true
	case "never", "off":
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (opts LogOpts) Encoder() (zapcore.Encoder, error) {
	switch opts.Encoding {
	case "json":
		if opts.Verbose {
			return zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig()), nil
		}
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil

	case "console", "":
		color := opts.useColor()
		if color {
			cfg := prettyconsole.NewEncoderConfig()
			cfg.EncodeTime = ElapsedTimeEncoder(time.Now(), color)
			return prettyconsole.NewEncoder(cfg), nil
		}
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = ElapsedTimeEncoder(time.Now(), color)
		return zapcore.NewConsoleEncoder(cfg), nil
	}
	return nil, fmt.Errorf("unknown log encoding %q", opts.Encoding)
}

// ParseLevels reads `name=level` pairs separated by commas. Malformed pairs are skipped.
func ParseLevels(s string) map[string]zapcore.Level {
	levels := make(map[string]zapcore.Level)
	for _, pair := range strings.Split(s, ",") {
		name, lvl, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			continue
		}
		levels[strings.TrimSpace(name)] = level
	}
	return levels
}

func (opts LogOpts) levels() map[string]zapcore.Level {
	if env, ok := os.LookupEnv(LevelEnv); ok {
		return ParseLevels(env)
	}
	return opts.Levels
}

func (opts LogOpts) NewCore(w zapcore.WriteSyncer) (zapcore.Core, error) {
	enc, err := opts.Encoder()
	if err != nil {
		return nil, err
	}
	level := zap.InfoLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(enc, w, zap.NewAtomicLevelAt(level))
	if levels := opts.levels(); len(levels) > 0 {
		core = NewEntryLeveller(core, levels)
	}
	if opts.LogsDir != "" {
		fileEnc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		if opts.Encoding == "json" {
			fileEnc = zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig())
		}
		core = zapcore.NewTee(core, NewCategoryWriter(fileEnc, opts.LogsDir))
	}
	return core, nil
}

func (opts LogOpts) NewLogger() (*zap.Logger, error) {
	core, err := opts.NewCore(zapcore.Lock(os.Stderr))
	if err != nil {
		return nil, err
	}
	return zap.New(core), nil
}

// ElapsedTimeEncoder writes entry times as the time since start, which reads better than wall clock time for a
// short-lived command.
func ElapsedTimeEncoder(start time.Time, color bool) zapcore.TimeEncoder {
	pre, post := "\x1b[90m", "\x1b[0m"
	if !color {
		pre, post = "", ""
	}
	return func(t time.Time, e zapcore.PrimitiveArrayEncoder) {
		d := t.Sub(start)
		switch {
		case d < time.Second:
			e.AppendString(fmt.Sprintf(" %s%3dms%s", pre, d.Milliseconds(), post))
		case d < 5*time.Minute:
			e.AppendString(fmt.Sprintf("%s%5.1fs%s", pre, d.Seconds(), post))
		default:
			e.AppendString(fmt.Sprintf("%s%5.1fm%s", pre, d.Minutes(), post))
		}
	}
}
