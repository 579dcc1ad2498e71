// Package logging defines the structured-logging interface used across the
// service and its slog-backed implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are key-value pairs:
//
//	log.Info(ctx, "login locked account", "user_id", id)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)

	// Warn is for conditions a client caused or the service recovered from.
	Warn(ctx context.Context, msg string, args ...any)

	// Error is for failures that produced a 5xx or lost work.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
