package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller filters entries by logger name. A level set for `component` applies to `component.dns` too, unless
// `component.dns` has its own. The empty name sets the level for every other named logger.
type EntryLeveller struct {
	zapcore.Core

	levels map[string]zapcore.Level
	// resolved caches the level found for each logger name, nil when none applies.
	resolved *sync.Map
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	copied := make(map[string]zapcore.Level, len(levels))
	for k, v := range levels {
		copied[k] = v
	}
	return &EntryLeveller{Core: core, levels: copied, resolved: &sync.Map{}}
}

func (el *EntryLeveller) With(fields []zapcore.Field) zapcore.Core {
	return &EntryLeveller{Core: el.Core.With(fields), levels: el.levels, resolved: el.resolved}
}

// LevelFor returns the level configured for the logger name or its closest parent.
func (el *EntryLeveller) LevelFor(name string) (zapcore.Level, bool) {
	if v, ok := el.resolved.Load(name); ok {
		if v == nil {
			return 0, false
		}
		return v.(zapcore.Level), true
	}
	level, ok := el.lookup(name)
	if ok {
		el.resolved.Store(name, level)
	} else {
		el.resolved.Store(name, nil)
	}
	return level, ok
}

func (el *EntryLeveller) lookup(name string) (zapcore.Level, bool) {
	if name == "" {
		return 0, false
	}
	for module := name; ; {
		if level, ok := el.levels[module]; ok {
			return level, true
		}
		i := strings.LastIndexByte(module, '.')
		if i < 0 {
			break
		}
		module = module[:i]
	}
	level, ok := el.levels[""]
	return level, ok
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	level, ok := el.LevelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < level {
		return ce
	}
	return ce.AddCore(e, el)
}
