package context

import (
	"context"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

type key string

const sessionKey key = "session"

// WithSession returns a copy of ctx carrying the browser session.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// Session returns the session stored in ctx, or nil if none was set.
func Session(ctx context.Context) *models.Session {
	val := ctx.Value(sessionKey)
	session, ok := val.(*models.Session)
	if !ok {
		return nil
	}
	return session
}
