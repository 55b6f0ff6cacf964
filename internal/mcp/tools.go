package mcp

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NoParams is the input of tools that take no arguments.
type NoParams struct{}

// registerTools exposes every Handler method as an MCP tool.
func registerTools(server *sdkmcp.Server, h *Handler) {
	// Elections and layouts
	addTool[CreateElectionParams](server, h, "create_election",
		"Register an election with its parties and candidates")
	addTool[GetElectionParams](server, h, "get_election",
		"Get an election and its ballot")
	addTool[NoParams](server, h, "list_layouts",
		"List the tally sheet codes with their row and summary fields")
	addTool[GetLayoutParams](server, h, "get_layout",
		"Get the fields of one tally sheet layout")

	// Tally sheets
	addTool[CreateTallySheetParams](server, h, "create_tally_sheet",
		"Create a tally sheet for an election")
	addTool[ListTallySheetsParams](server, h, "list_tally_sheets",
		"List the tally sheets of an election")

	// Data entry
	addTool[OpenTallySheetParams](server, h, "open_tally_sheet",
		"Open a data entry session on a tally sheet and load its latest version")
	addTool[SessionParams](server, h, "get_session",
		"Get the current rows, totals, validity and pending notifications of a session")
	addTool[UpdateRowParams](server, h, "update_row",
		"Set one field of one row; values are kept as typed and validated on save")
	addTool[UpdateSummaryParams](server, h, "update_summary",
		"Set one summary field of the sheet")
	addTool[UpdateTotalParams](server, h, "update_total",
		"Set the declared total of the sheet")
	addTool[SessionParams](server, h, "save",
		"Validate the sheet and save it as a new version")
	addTool[SessionParams](server, h, "edit",
		"Reopen a saved, unsubmitted sheet for editing")
	addTool[SessionParams](server, h, "submit",
		"Submit the saved version; the session then navigates back to the data entry list")
	addTool[SessionParams](server, h, "reload",
		"Retry loading a sheet whose load failed")
	addTool[SessionParams](server, h, "close_session",
		"Close a session, discarding unsaved edits")

	// History
	addTool[ListActivityParams](server, h, "list_activity",
		"List recent lifecycle events of a tally sheet")
}

func addTool[In any](server *sdkmcp.Server, h *Handler, name, description string) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			params, err := json.Marshal(in)
			if err != nil {
				return toolResult(nil, err), nil, nil
			}
			result, err := h.Handle(ctx, SessionIDFromContext(ctx), name, params)
			return toolResult(result, err), nil, nil
		})
}

func toolResult(result any, err error) *sdkmcp.CallToolResult {
	if err != nil {
		return &sdkmcp.CallToolResult{
			IsError: true,
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: formatPayload(toAPIError(err))}},
		}
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: formatPayload(result)}},
	}
}
