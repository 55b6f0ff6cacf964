package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tallysheet/internal/transport"
)

// sessionMetaKey carries the data-entry session id in request _meta.
const sessionMetaKey = "session_id"

type contextKey int

const sessionIDKey contextKey = iota

// WithSessionID returns ctx carrying a data-entry session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext extracts the data-entry session id from ctx.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// sessionMiddleware extracts the data-entry session id from the
// Tally-Session-Id header (HTTP) or _meta.session_id (stdio).
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var sessionID string

			extra := req.GetExtra()
			if extra != nil && extra.Header != nil {
				sessionID = extra.Header.Get(transport.SessionHeader)
			}

			// Notifications such as "initialized" carry nil params behind
			// a non-nil interface, so GetMeta may panic.
			if sessionID == "" {
				if params := req.GetParams(); params != nil {
					func() {
						defer func() { recover() }()
						if meta := params.GetMeta(); meta != nil {
							if sid, ok := meta[sessionMetaKey].(string); ok {
								sessionID = sid
							}
						}
					}()
				}
			}

			return next(WithSessionID(ctx, sessionID), method, req)
		}
	}
}
