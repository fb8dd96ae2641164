package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// CategoryWriter writes entries from named loggers to `<dir>/<category>.log`, where the category is the first
// segment of the logger name. Entries from the root logger are not written.
type CategoryWriter struct {
	Encoder zapcore.Encoder
	Dir     string

	files *categoryFiles
}

type categoryFiles struct {
	mu    sync.Mutex
	files map[string]*os.File
}

func NewCategoryWriter(enc zapcore.Encoder, dir string) *CategoryWriter {
	return &CategoryWriter{
		Encoder: enc,
		Dir:     dir,
		files:   &categoryFiles{files: make(map[string]*os.File)},
	}
}

func (c *CategoryWriter) Enabled(zapcore.Level) bool { return true }

func (c *CategoryWriter) With(fields []zapcore.Field) zapcore.Core {
	clone := &CategoryWriter{Encoder: c.Encoder.Clone(), Dir: c.Dir, files: c.files}
	for i := range fields {
		fields[i].AddTo(clone.Encoder)
	}
	return clone
}

func (c *CategoryWriter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(ent, c)
}

// Category splits a logger name into the file it is written to and the name shown in that file.
func Category(loggerName string) (category, rest string) {
	category, rest, _ = strings.Cut(loggerName, ".")
	category = strings.ReplaceAll(strings.TrimSpace(category), string(os.PathSeparator), "_")
	return category, rest
}

func (c *CategoryWriter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	categ, rest := Category(ent.LoggerName)
	if categ == "" {
		return nil
	}
	ent.LoggerName = rest
	f, err := c.files.open(c.Dir, categ)
	if err != nil {
		return err
	}

	buf, err := c.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	if ent.Level > zapcore.ErrorLevel {
		return f.Sync()
	}
	return nil
}

// open truncates each category's file the first time it is written to in this process.
func (cf *categoryFiles) open(dir, categ string) (*os.File, error) {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	if f, ok := cf.files[categ]; ok {
		return f, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, categ+".log"), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	cf.files[categ] = f
	return f, nil
}

func (c *CategoryWriter) Sync() error {
	c.files.mu.Lock()
	defer c.files.mu.Unlock()
	var errs error
	for _, f := range c.files.files {
		errs = errors.Join(errs, f.Sync())
	}
	return errs
}
