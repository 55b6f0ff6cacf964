package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, sessionID, method string, params json.RawMessage) (any, error)
}

// Info is reported by the health endpoint.
type Info struct {
	Service  string `json:"service"`
	Version  string `json:"version"`
	BasePath string `json:"base_path"`
	HomePath string `json:"home_path"`
}

// Options configures the HTTP router.
type Options struct {
	Info Info
	// MCP, when set, is mounted at /mcp (streamable HTTP).
	MCP http.Handler
	// Sessions reports the number of open data-entry sessions.
	Sessions func() int
	Logger   *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
	opts    Options
	logger  *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(handler MCPHandler, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(SessionMiddleware)

	srv := &Server{handler: handler, opts: opts, logger: logger}

	r.Post("/rpc", srv.handleRPC)
	r.Get("/health", srv.handleHealth)
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	return r
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Info
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Info: s.opts.Info}
	if s.opts.Sessions != nil {
		resp.Sessions = s.opts.Sessions()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		if errors.Is(err, errParse) {
			WriteError(w, nil, ErrParseCode, "parse error", nil)
			return
		}
		WriteError(w, nil, ErrInvalidReq, "invalid request", nil)
		return
	}

	sessionID, _ := SessionIDFromContext(r.Context())

	result, err := s.handler.Handle(r.Context(), sessionID, req.Method, req.Params)
	if err != nil {
		rpcErr := ErrorFor(err)
		if rpcErr.Code == ErrInternal {
			s.logger.Error("rpc failed", "method", req.Method, "session_id", sessionID, "error", err)
		}
		WriteError(w, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	WriteResult(w, req.ID, result)
}
