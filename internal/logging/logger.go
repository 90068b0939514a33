// Package logging is the structured logger shared by the server and
// contactsctl. New picks the slog or zap backend from configuration.
package logging

import "context"

// Logger takes a message plus alternating keys and values:
//
//	log.Info(ctx, "contact created", "user_id", userID, "contact_id", id)
type Logger interface {
	// Debug is off unless the configured level is "debug".
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is used for degraded dependencies (cache, limiter, mail) that do
	// not fail the request.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every entry.
	With(args ...any) Logger
}
