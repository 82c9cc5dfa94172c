package logx

import (
	"context"

	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/schema"
)

type contextKey int

const (
	sessionKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with the session kind and id when
// present, skipping the annotation if the context already carries the
// same session marker.
func WithSession(ctx context.Context, ref schema.SessionRef) pslog.Logger {
	log := pslog.Ctx(ctx)
	if ref.ID == "" {
		return log
	}
	if current, ok := ctx.Value(sessionKey).(schema.SessionRef); ok && current == ref {
		return log
	}
	return log.With("session_kind", ref.Kind, "session", ref.ID)
}

// WithDocument annotates the logger with a blueprint document id when
// available.
func WithDocument(log pslog.Logger, id schema.BlueprintID) pslog.Logger {
	if id == "" {
		return log
	}
	return log.With("blueprint", id)
}

// ContextWithSession stores the session marker on the context for log
// de-duplication.
func ContextWithSession(ctx context.Context, ref schema.SessionRef) context.Context {
	if ctx == nil || ref.ID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, ref)
}
