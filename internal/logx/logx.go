// Package logx holds small pslog helpers shared by the list components.
package logx

import (
	"context"
	"strings"

	"pkt.systems/pslog"
)

type contextKey int

const userKey contextKey = iota

// Or returns log when set, the context logger otherwise.
func Or(ctx context.Context, log pslog.Logger) pslog.Logger {
	if log != nil {
		return log
	}
	return pslog.Ctx(ctx)
}

// WithUser annotates the logger with the user id if present.
func WithUser(log pslog.Logger, userID string) pslog.Logger {
	if userID != "" {
		log = log.With("user", userID)
	}
	return log
}

// ContextWithUser stores the user id on the context and binds an annotated logger.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	if current, ok := ctx.Value(userKey).(string); ok && current == userID {
		return ctx
	}
	ctx = pslog.ContextWithLogger(ctx, WithUser(pslog.Ctx(ctx), userID))
	return context.WithValue(ctx, userKey, userID)
}

// Options maps a config level name onto pslog options for the CLI.
func Options(level string, structured bool) pslog.Options {
	opts := pslog.Options{Mode: pslog.ModeConsole, MinLevel: pslog.InfoLevel}
	if structured {
		opts.Mode = pslog.ModeStructured
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	return opts
}
