package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `rollcall records class attendance through button menus.

The chat front-end forwards every interaction to one of two tools and renders the result:
- press: an inline button was pressed. Pass the route token carried by the button.
- command: a slash command was sent. Pass the name and the raw argument text.

Both return a Render:
- text + menu: replace the current screen with text and the button grid.
- alert only: show a short popup and leave the screen as it is.
- deliveries: extra messages to post to other chats (e.g. the log chat).
- notice: machine-readable outcome (unauthorized, no_active_process, not_found, invalid_choice, failure).

Only configured operators may act; everyone else gets notice=unauthorized and nothing changes.

Docs:
- rollcall://docs/routes
- rollcall://docs/commands
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
		URI:         "rollcall://docs/routes",
		Name:        "docs_routes",
		Title:       "Route tokens",
		Description: "Button route tokens accepted by the press tool and the flows they drive.",
		Content: `# Route tokens

A token is ` + "`name`" + ` or ` + "`name::payload`" + `. Payloads are percent-encoded, so names with spaces or colons survive.

## Menus

- ` + "`menu_attendance`" + `, ` + "`menu_reports`" + `, ` + "`menu_help`" + `, ` + "`back_main`" + `, ` + "`noop`" + `

## Taking attendance

1. ` + "`att_group::<group>`" + ` starts a roll for the group; everyone starts present.
2. ` + "`toggle::<student>`" + ` cycles present → absent (unexcused) → absent (excused) → present.
3. ` + "`bulk::present`" + ` / ` + "`bulk::absent_unexcused`" + ` / ` + "`bulk::absent_excused`" + ` marks everyone.
4. ` + "`confirm_students`" + ` moves to period selection; ` + "`back_groups`" + ` returns to the group list.
5. ` + "`period::1`" + ` … ` + "`period::4`" + ` or ` + "`period::all`" + `; ` + "`back_students`" + ` keeps the marks.
6. ` + "`final_confirm`" + ` saves the record; ` + "`back_period`" + ` and ` + "`final_cancel`" + ` step back or abandon.

## Reports

1. ` + "`report::daily`" + `, ` + "`report::weekly`" + `, ` + "`report::monthly`" + ` or ` + "`report::yearly`" + `.
2. ` + "`rep_group::<group>`" + ` picks the group; monthly reports then ask for ` + "`month::<n>`" + ` (September through June).
3. ` + "`back_reports`" + ` returns to the report menu.

` + "`select_group::<group>`" + ` is accepted from older keyboards and follows whichever flow is open.
`,
	},
	{
		URI:         "rollcall://docs/commands",
		Name:        "docs_commands",
		Title:       "Slash commands",
		Description: "Commands accepted by the command tool.",
		Content: `# Slash commands

- ` + "`start`" + `, ` + "`help`" + `: show the main menu or help.
- ` + "`cancel`" + `: drop any open flow.
- ` + "`list_groups`" + `: list groups with student counts.
- ` + "`add_group name | code | a; b; c`" + `: create or replace a group.
- ` + "`delete_group name`" + `: remove a group; its records stay.
- ` + "`sample`" + `: add the sample groups.
- ` + "`get_log_chat`" + `, ` + "`set_log_chat [id]`" + `, ` + "`clear_log_chat`" + `: where summaries are posted. In a group chat ` + "`set_log_chat`" + ` uses that chat.
- ` + "`backup`" + `, ` + "`backups`" + `, ` + "`restore_from name`" + `: snapshots of the attendance document.
- ` + "`admins`" + `: list operator ids.
- ` + "`activity`" + `: recent operator activity.
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
