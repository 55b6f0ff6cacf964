package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tallysheet/internal/config"
	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/dataentry"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/mcp"
	"github.com/rpggio/tallysheet/internal/store"
	"github.com/rpggio/tallysheet/internal/tabulation"
	"github.com/rpggio/tallysheet/internal/transport"
)

var version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("TALLY_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	timestamps, err := tally.NewTimestampFormat(cfg.Timestamps.Offset)
	if err != nil {
		logger.Error("invalid timestamp offset", "error", err)
		os.Exit(1)
	}

	db, err := openDB(cfg.DB)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	activityRepo := store.NewActivityRepository(db)
	activitySvc := activity.NewService(activityRepo, logger)

	var (
		sheets    dataentry.TallySheetRepository
		elections election.Repository
		versions  dataentry.VersionRepository
	)
	switch cfg.Persistence.Backend {
	case "remote":
		client := tabulation.NewClient(cfg.Persistence.Endpoint, cfg.Persistence.Timeout.Std(), logger)
		sheets, elections, versions = client, client, client
	default:
		sheets = store.NewTallySheetRepository(db)
		elections = store.NewElectionRepository(db)
		versions = store.NewVersionRepository(db)
	}
	logger.Info("persistence configured", "backend", cfg.Persistence.Backend, "db_driver", cfg.DB.Driver)

	registry := tally.DefaultRegistry()
	electionSvc := election.NewService(elections, logger)
	entrySvc := dataentry.NewService(sheets, electionSvc, versions, activitySvc, registry, dataentry.Config{
		NavigationDelay: cfg.App.NavigationDelay.Std(),
		BasePath:        cfg.App.BasePath,
		Timestamps:      timestamps,
	}, logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			DataEntry: entrySvc,
			Elections: electionSvc,
			Activity:  activitySvc,
			Layouts:   registry,
		},
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	handler := mcp.NewHandler(entrySvc, electionSvc, activitySvc, registry)
	router := transport.NewServer(handler, transport.Options{
		Info: transport.Info{
			Service:  "tallysheet",
			Version:  version,
			BasePath: cfg.App.BasePath,
			HomePath: cfg.App.HomePath,
		},
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		),
		Sessions: entrySvc.Count,
		Logger:   logger,
	})
	runHTTPMode(logger, router, cfg.Server.Host, cfg.Server.Port)
}

func openDB(cfg config.DBConfig) (*store.DB, error) {
	if cfg.Driver == string(store.DialectPostgres) {
		return store.Open(store.DialectPostgres, cfg.DSN)
	}
	if err := ensureDBDir(cfg.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	return store.Open(store.DialectSQLite, cfg.Path)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a log file and trims it to its newest
// keepLogSizeBytes once it grows past maxLogSizeBytes.
type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	n, err := w.file.ReadAt(buf, size-keepLogSizeBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end, offset 0.
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
