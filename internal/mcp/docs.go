package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tallysheet is the data entry side of an election tabulation system.

Core concepts:
- Election: a ballot of parties and candidates. Preference sheets have one row per candidate.
- Tally sheet: a paper form identified by a code (CE-201-PV postal vote count, PRE-34-CO preference count).
- Version: an immutable saved snapshot of a sheet's content. Submitting pins one version.
- Session: one user's in-memory editing of one sheet. Values are kept exactly as typed.

Workflow:
1) open_tally_sheet(tally_sheet_id) returns a session id and the seeded or loaded rows.
2) update_row / update_summary / update_total as values are read off the paper form.
3) save validates the whole sheet. Any non-numeric count or a total mismatch rejects the save
   with "issues" describing each field; nothing is sent.
4) submit the saved version. A success notification is queued and the session navigates back
   to the data entry list after a short delay.
5) close_session when done.

Every session tool returns the session view plus any notifications not yet delivered.
A load failure opens the session in the failed state; call reload to retry.

Transport notes:
- HTTP: pass the session id via the Tally-Session-Id header.
- Stdio: pass the session id via _meta.session_id, or as the session_id argument.

Docs:
- tally://docs/index
- tally://docs/workflows/data-entry
- tally://docs/layouts
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "tally://docs/index",
		Name:        "docs_index",
		Title:       "tallysheet docs index",
		Description: "Entry point for agent-facing docs.",
		Content: `# tallysheet: Agent Docs Index

## Quick start

1. ` + "`list_tally_sheets`" + ` for an election, or ` + "`create_tally_sheet`" + `.
2. ` + "`open_tally_sheet`" + ` to start a session.
3. Enter values with ` + "`update_row`" + `, ` + "`update_summary`" + ` and ` + "`update_total`" + `.
4. ` + "`save`" + `, then ` + "`submit`" + `.
5. ` + "`close_session`" + `.

## Docs

- ` + "`tally://docs/workflows/data-entry`" + ` for the session lifecycle and failure handling.
- ` + "`tally://docs/layouts`" + ` for the fields of each tally sheet code.
`,
	},
	{
		URI:         "tally://docs/workflows/data-entry",
		Name:        "workflow_data_entry",
		Title:       "Data entry lifecycle",
		Description: "Session states, what each tool does in each state, and failure handling.",
		Content: `# Data entry lifecycle

States: ` + "`editing`" + ` → ` + "`saved_unsubmitted`" + ` → ` + "`submitting`" + ` → ` + "`submitted`" + `.
A failed load leaves the session in ` + "`failed`" + ` with default rows; ` + "`reload`" + ` retries.

- Updates are accepted only while editing (or failed). Raw text is stored as typed.
- ` + "`save`" + ` runs the validity gate. When it fails the response error is INPUT_INVALID and
  the view's ` + "`issues`" + ` list the offending fields. Nothing is persisted.
- A save failure from the persistence service keeps the session editable (SAVE_FAILED).
- ` + "`edit`" + ` returns a saved sheet to editing.
- ` + "`submit`" + ` requires a saved version. A submit failure returns to saved_unsubmitted.
- After a successful submit the session's ` + "`navigation`" + ` holds the data entry list target.
- While a save or submit is in flight other calls fail with BUSY.
- Submitted sheets open read-only.
`,
	},
	{
		URI:         "tally://docs/layouts",
		Name:        "layouts",
		Title:       "Tally sheet layouts",
		Description: "Row and summary fields of each supported tally sheet code.",
		Content: `# Tally sheet layouts

## CE-201-PV (postal votes, counting centre)

Six ballot box rows by default. Row fields: ` + "`ballotBoxId`" + `, ` + "`numberOfPacketsInserted`" + `,
` + "`numberOfAPacketsFound`" + `. Summary fields: ` + "`situation`" + `, ` + "`timeOfCommencementOfCount`" + `,
` + "`numberOfACoversRejected`" + `, ` + "`numberOfBCoversRejected`" + `, ` + "`numberOfValidBallotPapers`" + `.

The declared total (` + "`update_total`" + `) must equal the sum of ` + "`numberOfAPacketsFound`" + `.
The time of commencement is entered as ` + "`2006-01-02T15:04`" + ` local time.

## PRE-34-CO (second and third preferences)

One row per candidate, ` + "`refId`" + ` is the candidate id. Row fields:
` + "`secondPreferenceCount`" + `, ` + "`thirdPreferenceCount`" + `, ` + "`totalCount`" + `.
Each row's total must equal second plus third preferences. No declared total.

Use ` + "`get_layout`" + ` for the authoritative field list.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
