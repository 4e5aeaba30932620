package logging

import (
	"context"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// FromContext extracts the logger from context
// If no logger is found, returns a disabled logger (no-op)
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// WithComponent creates a child logger with a component field
func WithComponent(ctx context.Context, component string) context.Context {
	logger := FromContext(ctx)
	childLogger := logger.With().Str("component", component).Logger()
	return WithContext(ctx, childLogger)
}

// WithSurfaceID creates a child logger with a surface_id field
func WithSurfaceID(ctx context.Context, surfaceID uint64) context.Context {
	logger := FromContext(ctx)
	childLogger := logger.With().Uint64("surface_id", surfaceID).Logger()
	return WithContext(ctx, childLogger)
}

// TruncateURL shortens a URL for log output to at most maxLen bytes,
// cutting on a rune boundary.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 3 || len(url) <= maxLen {
		return url
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(url[cut]) {
		cut--
	}
	return url[:cut] + "..."
}
