package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/dataentry"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/tally"
)

// DataEntryService defines data-entry operations needed by MCP.
type DataEntryService interface {
	CreateTallySheet(ctx context.Context, req dataentry.CreateTallySheetRequest) (*tally.TallySheet, error)
	ListTallySheets(ctx context.Context, electionID string) ([]tally.TallySheet, error)
	Open(ctx context.Context, tallySheetID string) (*dataentry.SessionView, error)
	Get(sessionID string) (*dataentry.SessionView, error)
	UpdateRow(sessionID, refID string, field tally.Field, raw string) (*dataentry.SessionView, error)
	UpdateSummary(sessionID string, field tally.Field, raw string) (*dataentry.SessionView, error)
	UpdateTotal(sessionID, raw string) (*dataentry.SessionView, error)
	Save(ctx context.Context, sessionID string) (*dataentry.SessionView, error)
	Edit(sessionID string) (*dataentry.SessionView, error)
	Submit(ctx context.Context, sessionID string) (*dataentry.SessionView, error)
	Reload(ctx context.Context, sessionID string) (*dataentry.SessionView, error)
	Close(ctx context.Context, sessionID string) error
}

// ElectionService defines election operations needed by MCP.
type ElectionService interface {
	Create(ctx context.Context, req election.CreateRequest) (*election.Election, error)
	Get(ctx context.Context, id string) (*election.Election, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	Recent(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error)
}

// LayoutRegistry resolves tally-sheet layouts by code.
type LayoutRegistry interface {
	Get(code tally.Code) (tally.Layout, error)
	Codes() []tally.Code
}

// Services contains all domain services needed by MCP.
type Services struct {
	DataEntry DataEntryService
	Elections ElectionService
	Activity  ActivityService
	Layouts   LayoutRegistry
}

// Config contains server configuration.
type Config struct {
	Services      Services
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tallysheet",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	handler := NewHandler(cfg.Services.DataEntry, cfg.Services.Elections, cfg.Services.Activity, cfg.Services.Layouts)
	registerTools(server, handler)

	logger.Info("mcp server configured", "transport", cfg.TransportMode, "tools", len(Methods))
	return server
}
