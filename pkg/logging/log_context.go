package logging

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// GetLogger returns the logger carried by ctx, or the global logger.
func GetLogger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.L()
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
