package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates records with session and probe attributes carried in the
// context, so every log line emitted during a negotiation carries enough to
// correlate it with the session and query that produced it.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("id", sd.SessionID),
			slog.String("server_jid", sd.ServerJID),
		))
	}

	if pd, ok := ctx.Value(probeDataKey{}).(*ProbeData); ok {
		r.AddAttrs(slog.Group("probe",
			slog.String("feature", pd.Feature),
			slog.String("node", pd.Node),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type sessionDataKey struct{}

type SessionData struct {
	SessionID string
	ServerJID string
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}

type probeDataKey struct{}

type ProbeData struct {
	Feature string
	Node    string
}

func WithProbeData(ctx context.Context, data *ProbeData) context.Context {
	return context.WithValue(ctx, probeDataKey{}, data)
}
