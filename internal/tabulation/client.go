// Package tabulation is the remote persistence service: a JSON client for the
// tabulation API that stores tally sheets and their versions.
package tabulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/repository"
)

// ErrUnsupported indicates the API has no endpoint for the operation.
var ErrUnsupported = errors.New("operation not supported by tabulation API")

// DefaultTimeout bounds each request.
const DefaultTimeout = 30 * time.Second

// Client talks to the tabulation API. It makes exactly one attempt per call.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a client for endpoint, e.g.
// "https://api.tabulation.example.org".
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type versionBody struct {
	Content json.RawMessage `json:"content"`
	Summary json.RawMessage `json:"summary,omitempty"`
}

type submitBody struct {
	SubmittedVersionID string `json:"submittedVersionId"`
}

// GetTallySheet fetches tally sheet metadata.
func (c *Client) GetTallySheet(ctx context.Context, id string) (*tally.TallySheet, error) {
	var out tally.TallySheet
	if err := c.do(ctx, http.MethodGet, "/tally-sheet/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTallySheets lists the tally sheets of an election.
func (c *Client) ListTallySheets(ctx context.Context, electionID string) ([]tally.TallySheet, error) {
	var out []tally.TallySheet
	path := "/tally-sheet?" + url.Values{"electionId": {electionID}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTallySheet is not offered by the API; sheets are provisioned there.
func (c *Client) CreateTallySheet(context.Context, *tally.TallySheet) error {
	return ErrUnsupported
}

// Create is not offered by the API; elections are provisioned there.
func (c *Client) Create(context.Context, *election.Election) error {
	return ErrUnsupported
}

// Get fetches an election with its parties and candidates.
func (c *Client) Get(ctx context.Context, id string) (*election.Election, error) {
	var out election.Election
	if err := c.do(ctx, http.MethodGet, "/election/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchVersion fetches one version of a tally sheet.
func (c *Client) FetchVersion(ctx context.Context, tallySheetID string, code tally.Code, versionID string) (*tally.Version, error) {
	var out tally.Version
	if err := c.do(ctx, http.MethodGet, versionPath(code, tallySheetID)+"/"+url.PathEscape(versionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveVersion posts payload as a new version.
func (c *Client) SaveVersion(ctx context.Context, tallySheetID string, code tally.Code, payload tally.Payload) (*tally.Version, error) {
	var out tally.Version
	body := versionBody{Content: payload.Content, Summary: payload.Summary}
	if err := c.do(ctx, http.MethodPost, versionPath(code, tallySheetID), body, &out); err != nil {
		return nil, err
	}
	if out.TallySheetID == "" {
		out.TallySheetID = tallySheetID
	}
	return &out, nil
}

// SubmitSheet submits a version. The API answers with the tally sheet, whose
// election id identifies the sub-election.
func (c *Client) SubmitSheet(ctx context.Context, tallySheetID, versionID string) (*tally.Submission, error) {
	var out tally.TallySheet
	path := "/tally-sheet/" + url.PathEscape(tallySheetID) + "/submit"
	if err := c.do(ctx, http.MethodPut, path, submitBody{SubmittedVersionID: versionID}, &out); err != nil {
		return nil, err
	}
	submitted := out.SubmittedVersionID
	if submitted == "" {
		submitted = versionID
	}
	return &tally.Submission{TallySheetID: tallySheetID, VersionID: submitted, ElectionID: out.ElectionID}, nil
}

func versionPath(code tally.Code, tallySheetID string) string {
	return "/tally-sheet/" + url.PathEscape(string(code)) + "/" + url.PathEscape(tallySheetID) + "/version"
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", lifecycle.ErrNotReachable, method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("tabulation api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, method, path, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func statusError(status int, method, path, msg string) error {
	var kind error
	switch {
	case status == http.StatusNotFound:
		kind = repository.ErrNotFound
	case status == http.StatusConflict:
		kind = repository.ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = repository.ErrInvalidInput
	case status >= 500:
		kind = lifecycle.ErrNotReachable
	default:
		return fmt.Errorf("tabulation api: %s %s: http %d: %s", method, path, status, msg)
	}
	return fmt.Errorf("%w: %s %s: http %d: %s", kind, method, path, status, msg)
}
