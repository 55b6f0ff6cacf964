package testserver_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rpggio/tallysheet/internal/domain/election"
	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
	"github.com/rpggio/tallysheet/internal/domain/tally"
	"github.com/rpggio/tallysheet/internal/mcp"
	"github.com/rpggio/tallysheet/internal/testserver"
	"github.com/rpggio/tallysheet/internal/transport"
	"github.com/stretchr/testify/require"
)

func TestFlow_PostalVoteSheet(t *testing.T) {
	ts := testserver.New(t)

	ts.MustCall(t, "", "create_election", mcp.CreateElectionParams{ID: "el-pv", Name: "Postal Votes"}, nil)
	var sheet tally.TallySheet
	ts.MustCall(t, "", "create_tally_sheet", mcp.CreateTallySheetParams{ID: "ts-1", Code: tally.CodeCE201PV, ElectionID: "el-pv"}, &sheet)
	require.Equal(t, "ts-1", sheet.ID)

	var resp mcp.SessionResponse
	ts.MustCall(t, "", "open_tally_sheet", mcp.OpenTallySheetParams{TallySheetID: "ts-1"}, &resp)
	require.Nil(t, resp.Error)
	require.Equal(t, lifecycle.StateEditing, resp.Session.State)
	require.Len(t, resp.Session.Rows, tally.PostalVoteMinRows)
	sid := resp.Session.SessionID

	for i, v := range []string{"3", "4", "5"} {
		ts.MustCall(t, sid, "update_row", mcp.UpdateRowParams{RefID: resp.Session.Rows[i].RefID, Field: tally.FieldAPacketsFound, Value: v}, &resp)
	}
	require.NotNil(t, resp.Session.Aggregate)
	require.Equal(t, int64(12), *resp.Session.Aggregate)

	// Declared total still pending: the gate rejects the save.
	ts.MustCall(t, sid, "save", nil, &resp)
	require.NotNil(t, resp.Error)
	require.Equal(t, "INPUT_INVALID", resp.Error.Code)
	require.Len(t, resp.Session.Notifications, 1)
	require.Equal(t, lifecycle.Message(lifecycle.MsgInputInvalid), resp.Session.Notifications[0].Message)
	require.Equal(t, lifecycle.StateEditing, resp.Session.State)

	ts.MustCall(t, sid, "update_total", mcp.UpdateTotalParams{Value: "12"}, &resp)
	require.True(t, resp.Session.Valid)

	ts.MustCall(t, sid, "save", nil, &resp)
	require.Nil(t, resp.Error)
	require.Equal(t, lifecycle.StateSavedUnsubmitted, resp.Session.State)
	require.NotEmpty(t, resp.Session.VersionID)

	ts.MustCall(t, sid, "submit", nil, &resp)
	require.Nil(t, resp.Error)
	require.Equal(t, lifecycle.StateSubmitted, resp.Session.State)
	require.Len(t, resp.Session.Notifications, 1)
	require.Equal(t, lifecycle.SeveritySuccess, resp.Session.Notifications[0].Severity)
	require.Nil(t, resp.Session.Navigation)
	require.Equal(t, []time.Duration{lifecycle.DefaultNavigationDelay}, ts.Scheduler.Delays())

	ts.Scheduler.Fire()
	ts.MustCall(t, sid, "get_session", nil, &resp)
	require.NotNil(t, resp.Session.Navigation)
	require.Equal(t, "el-pv", resp.Session.Navigation.ElectionID)
	require.Equal(t, "el-pv", resp.Session.Navigation.SubElectionID)
	require.Contains(t, resp.Session.Navigation.Path, "/data-entry/CE-201-PV")

	var history mcp.ActivityListResponse
	ts.MustCall(t, "", "list_activity", mcp.ListActivityParams{TallySheetID: "ts-1"}, &history)
	types := make([]string, 0, len(history.Entries))
	for _, e := range history.Entries {
		types = append(types, string(e.Type))
	}
	require.Contains(t, types, "version_saved")
	require.Contains(t, types, "sheet_submitted")
	require.Contains(t, types, "session_opened")

	ts.MustCall(t, sid, "close_session", nil, nil)

	// A submitted sheet reopens read-only with its saved values.
	ts.MustCall(t, "", "open_tally_sheet", mcp.OpenTallySheetParams{TallySheetID: "ts-1"}, &resp)
	require.Equal(t, lifecycle.StateSubmitted, resp.Session.State)
	require.Equal(t, "3", resp.Session.Rows[0].Values[string(tally.FieldAPacketsFound)])
	require.Equal(t, "12", *resp.Session.DeclaredTotal)

	ts.MustCall(t, resp.Session.SessionID, "update_row", mcp.UpdateRowParams{RefID: "0", Field: tally.FieldAPacketsFound, Value: "9"}, &resp)
	require.NotNil(t, resp.Error)
	require.Equal(t, "INVALID_TRANSITION", resp.Error.Code)
}

func TestFlow_PreferenceSheet(t *testing.T) {
	ts := testserver.New(t)

	ts.MustCall(t, "", "create_election", mcp.CreateElectionParams{
		ID:   "el-pre",
		Name: "Presidential",
		Parties: []election.Party{
			{Name: "Party A", Candidates: []election.Candidate{{ID: 101, Name: "Alpha"}}},
			{Name: "Party B", Candidates: []election.Candidate{{ID: 102, Name: "Beta"}}},
		},
	}, nil)
	ts.MustCall(t, "", "create_tally_sheet", mcp.CreateTallySheetParams{ID: "ts-pre", Code: tally.CodePRE34CO, ElectionID: "el-pre"}, nil)

	var resp mcp.SessionResponse
	ts.MustCall(t, "", "open_tally_sheet", mcp.OpenTallySheetParams{TallySheetID: "ts-pre"}, &resp)
	require.Len(t, resp.Session.Rows, 2)
	require.Equal(t, "101", resp.Session.Rows[0].RefID)
	sid := resp.Session.SessionID

	ts.MustCall(t, sid, "update_row", mcp.UpdateRowParams{RefID: "101", Field: tally.FieldSecondPreferenceCount, Value: "2"}, nil)
	ts.MustCall(t, sid, "update_row", mcp.UpdateRowParams{RefID: "101", Field: tally.FieldThirdPreferenceCount, Value: "3"}, nil)
	ts.MustCall(t, sid, "update_row", mcp.UpdateRowParams{RefID: "101", Field: tally.FieldTotalCount, Value: "4"}, &resp)
	require.False(t, resp.Session.Valid)
	require.Len(t, resp.Session.Issues, 1)
	require.Equal(t, tally.IssueRowTotalWrong, resp.Session.Issues[0].Kind)

	ts.MustCall(t, sid, "update_row", mcp.UpdateRowParams{RefID: "101", Field: tally.FieldTotalCount, Value: "5"}, &resp)
	require.True(t, resp.Session.Valid)
	ts.MustCall(t, sid, "save", nil, &resp)
	require.Nil(t, resp.Error)
	require.Equal(t, lifecycle.StateSavedUnsubmitted, resp.Session.State)

	ts.MustCall(t, sid, "edit", nil, &resp)
	require.Equal(t, lifecycle.StateEditing, resp.Session.State)
	require.Equal(t, "5", resp.Session.Rows[0].Values[string(tally.FieldTotalCount)])
}

func TestFlow_Errors(t *testing.T) {
	ts := testserver.New(t)

	_, rpcErr := ts.Call(t, "", "open_tally_sheet", mcp.OpenTallySheetParams{TallySheetID: "nope"})
	require.NotNil(t, rpcErr)
	require.Equal(t, transport.ErrServer, rpcErr.Code)

	_, rpcErr = ts.Call(t, "missing", "save", nil)
	require.NotNil(t, rpcErr)
	data, ok := rpcErr.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "SESSION_NOT_FOUND", data["code"])

	_, rpcErr = ts.Call(t, "", "frobnicate", nil)
	require.Equal(t, transport.ErrMethodNotFound, rpcErr.Code)

	_, rpcErr = ts.Call(t, "", "create_tally_sheet", mcp.CreateTallySheetParams{Code: "PRE-41", ElectionID: "el"})
	require.NotNil(t, rpcErr)
}

func TestFlow_Health(t *testing.T) {
	ts := testserver.New(t)
	ts.MustCall(t, "", "create_election", mcp.CreateElectionParams{ID: "el", Name: "E"}, nil)
	ts.MustCall(t, "", "create_tally_sheet", mcp.CreateTallySheetParams{ID: "ts", Code: tally.CodeCE201PV, ElectionID: "el"}, nil)
	ts.MustCall(t, "", "open_tally_sheet", mcp.OpenTallySheetParams{TallySheetID: "ts"}, nil)

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, float64(1), body["sessions"])
	require.Equal(t, 1, ts.DataEntry.Count())
}
