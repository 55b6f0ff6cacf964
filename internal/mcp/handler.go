package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpggio/tallysheet/internal/domain/activity"
	"github.com/rpggio/tallysheet/internal/domain/dataentry"
	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/tally"
)

// Handler dispatches MCP commands.
type Handler struct {
	entry     DataEntryService
	elections ElectionService
	activity  ActivityService
	layouts   LayoutRegistry
}

// NewHandler creates a new MCP handler. A nil layouts uses the default registry.
func NewHandler(entry DataEntryService, elections ElectionService, activitySvc ActivityService, layouts LayoutRegistry) *Handler {
	if layouts == nil {
		layouts = tally.DefaultRegistry()
	}
	return &Handler{
		entry:     entry,
		elections: elections,
		activity:  activitySvc,
		layouts:   layouts,
	}
}

// Methods lists the commands Handle accepts.
var Methods = []string{
	"create_election",
	"get_election",
	"list_layouts",
	"get_layout",
	"create_tally_sheet",
	"list_tally_sheets",
	"open_tally_sheet",
	"get_session",
	"update_row",
	"update_summary",
	"update_total",
	"save",
	"edit",
	"submit",
	"reload",
	"close_session",
	"list_activity",
}

// Handle dispatches MCP requests to domain services. sessionID is the
// data-entry session carried by the request, used when params omit one.
func (h *Handler) Handle(ctx context.Context, sessionID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "create_election":
		var req CreateElectionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		el, err := h.elections.Create(ctx, election.CreateRequest{
			ID:       req.ID,
			Name:     req.Name,
			ParentID: req.ParentID,
			Parties:  req.Parties,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return el, nil
	case "get_election":
		var req GetElectionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		el, err := h.elections.Get(ctx, req.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return el, nil
	case "list_layouts":
		codes := h.layouts.Codes()
		resp := ListLayoutsResponse{Layouts: make([]LayoutResponse, 0, len(codes))}
		for _, code := range codes {
			layout, err := h.layouts.Get(code)
			if err != nil {
				return nil, mapError(err)
			}
			resp.Layouts = append(resp.Layouts, LayoutResponse{Code: code, Schema: layout.Schema()})
		}
		return resp, nil
	case "get_layout":
		var req GetLayoutParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		layout, err := h.layouts.Get(req.Code)
		if err != nil {
			return nil, mapError(err)
		}
		return LayoutResponse{Code: layout.Code(), Schema: layout.Schema()}, nil
	case "create_tally_sheet":
		var req CreateTallySheetParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sheet, err := h.entry.CreateTallySheet(ctx, dataentry.CreateTallySheetRequest{
			ID:         req.ID,
			Code:       req.Code,
			ElectionID: req.ElectionID,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return sheet, nil
	case "list_tally_sheets":
		var req ListTallySheetsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sheets, err := h.entry.ListTallySheets(ctx, req.ElectionID)
		if err != nil {
			return nil, mapError(err)
		}
		if sheets == nil {
			sheets = []tally.TallySheet{}
		}
		return TallySheetListResponse{TallySheets: sheets}, nil
	case "open_tally_sheet":
		var req OpenTallySheetParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		view, err := h.entry.Open(ctx, req.TallySheetID)
		if err != nil {
			return nil, mapError(err)
		}
		return SessionResponse{Session: view}, nil
	case "get_session":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.Get(currentSession(req.SessionID, sessionID)))
	case "update_row":
		var req UpdateRowParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.UpdateRow(currentSession(req.SessionID, sessionID), req.RefID, req.Field, req.Value))
	case "update_summary":
		var req UpdateSummaryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.UpdateSummary(currentSession(req.SessionID, sessionID), req.Field, req.Value))
	case "update_total":
		var req UpdateTotalParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.UpdateTotal(currentSession(req.SessionID, sessionID), req.Value))
	case "save":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.Save(ctx, currentSession(req.SessionID, sessionID)))
	case "edit":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.Edit(currentSession(req.SessionID, sessionID)))
	case "submit":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.Submit(ctx, currentSession(req.SessionID, sessionID)))
	case "reload":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.entry.Reload(ctx, currentSession(req.SessionID, sessionID)))
	case "close_session":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		id := currentSession(req.SessionID, sessionID)
		if err := h.entry.Close(ctx, id); err != nil {
			return nil, mapError(err)
		}
		return CloseSessionResponse{SessionID: id, Status: "closed"}, nil
	case "list_activity":
		var req ListActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListOptions{
			TallySheetID: req.TallySheetID,
			Limit:        req.Limit,
			Offset:       req.Offset,
		}
		if req.SessionID != "" {
			opts.SessionID = &req.SessionID
		}
		if req.Type != "" {
			opts.Type = &req.Type
		}
		entries, err := h.activity.Recent(ctx, opts)
		if err != nil {
			return nil, mapError(err)
		}
		resp := ActivityListResponse{Entries: make([]ActivityEntryResponse, 0, len(entries))}
		for _, entry := range entries {
			resp.Entries = append(resp.Entries, ActivityEntryResponse{
				Timestamp: entry.CreatedAt,
				Type:      entry.Type,
				SessionID: stringValue(entry.SessionID),
				VersionID: stringValue(entry.VersionID),
				Summary:   entry.Summary,
				Details:   entry.Details,
			})
		}
		return resp, nil
	default:
		return nil, &APIError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", method)}
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

// sessionResponse folds a lifecycle error into the response when a view
// exists; without a view the error fails the call.
func sessionResponse(view *dataentry.SessionView, err error) (any, error) {
	if view == nil {
		if err == nil {
			err = dataentry.ErrSessionNotFound
		}
		return nil, mapError(err)
	}
	return SessionResponse{Session: view, Error: toAPIError(err)}, nil
}

func currentSession(fromParams, fromRequest string) string {
	if id := strings.TrimSpace(fromParams); id != "" {
		return id
	}
	return fromRequest
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
