// Package testserver runs the full JSON-RPC stack over an in-memory SQLite
// store for end-to-end tests.
package testserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/dataentry"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/mcp"
	"github.com/rpggio/tallysheet/internal/store"
	"github.com/rpggio/tallysheet/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server    *httptest.Server
	DB        *store.DB
	DataEntry *dataentry.Service
	Scheduler *Scheduler
}

// Scheduler records delayed calls and runs them on Fire.
type Scheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, f)
}

// Fire runs every pending call.
func (s *Scheduler) Fire() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

// Delays returns the delays requested so far.
func (s *Scheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func New(t *testing.T) *TestServer {
	t.Helper()

	db, err := store.Open(store.DialectSQLite, ":memory:")
	require.NoError(t, err)

	electionRepo := store.NewElectionRepository(db)
	sheetRepo := store.NewTallySheetRepository(db)
	versionRepo := store.NewVersionRepository(db)
	activityRepo := store.NewActivityRepository(db)

	activitySvc := activity.NewService(activityRepo, nil)
	electionSvc := election.NewService(electionRepo, nil)
	scheduler := &Scheduler{}
	registry := tally.DefaultRegistry()
	entrySvc := dataentry.NewService(sheetRepo, electionSvc, versionRepo, activitySvc, registry, dataentry.Config{
		BasePath:  "tabulation",
		Scheduler: scheduler,
	}, nil)

	handler := mcp.NewHandler(entrySvc, electionSvc, activitySvc, registry)
	server := httptest.NewServer(transport.NewServer(handler, transport.Options{
		Info:     transport.Info{Service: "tallysheet", BasePath: "tabulation", HomePath: "/home"},
		Sessions: entrySvc.Count,
	}))

	ts := &TestServer{
		Server:    server,
		DB:        db,
		DataEntry: entrySvc,
		Scheduler: scheduler,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// Call posts one JSON-RPC request and returns the raw result or error.
func (ts *TestServer) Call(t *testing.T, sessionID, method string, params any) (json.RawMessage, *transport.Error) {
	t.Helper()

	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(transport.SessionHeader, sessionID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result json.RawMessage  `json:"result"`
		Error  *transport.Error `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Result, out.Error
}

// MustCall is Call that fails the test on a JSON-RPC error and decodes the
// result into out, which is zeroed first so omitted fields don't linger.
func (ts *TestServer) MustCall(t *testing.T, sessionID, method string, params, out any) {
	t.Helper()
	result, rpcErr := ts.Call(t, sessionID, method, params)
	require.Nil(t, rpcErr, "%s: %+v", method, rpcErr)
	if out != nil {
		v := reflect.ValueOf(out).Elem()
		v.Set(reflect.Zero(v.Type()))
		require.NoError(t, json.Unmarshal(result, out))
	}
}
