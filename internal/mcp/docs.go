package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `salesportal serves role-gated sales reports over shared worksheets.

Core concepts:
- Company: a tenant whose worksheets you may view. Most users have one; admins see all.
- Scope: which sales reps' rows you may see in a company (all_records, team_roster or self_only).
- View: overdue, customers or bonuses. Each is a worksheet filtered to the company and your scope.
- Notification: an expiring-service card. Acknowledging appends your login to its "Noted By" cell.

Workflow:
1) Call resolve_access to learn your companies and scope.
2) Call prepare_view / team_dashboard / list_notifications. Pass company when you have several.
3) Results carry warnings instead of failing when a worksheet is missing or misconfigured; read them.
4) acknowledge_notification is idempotent; a false result means the write did not land.

Docs:
- portal://docs/index
- portal://docs/views
- portal://docs/access
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
		URI:         "portal://docs/index",
		Name:        "docs_index",
		Title:       "salesportal docs index",
		Description: "Entry point: which tool answers which question.",
		Content: `# salesportal docs

- ` + "`resolve_access`" + `: who am I, which companies, what scope.
- ` + "`prepare_view`" + `: one tabular view (overdue, customers, bonuses).
- ` + "`team_dashboard`" + `: leads, directors and admins pick a team or member.
- ` + "`list_notifications`" + ` / ` + "`unread_count`" + ` / ` + "`acknowledge_notification`" + `: expiring services.
- ` + "`get_recent_activity`" + `: audit log.

Read ` + "`portal://docs/views`" + ` for filtering rules and ` + "`portal://docs/access`" + ` for roles.
`,
	},
	{
		URI:         "portal://docs/views",
		Name:        "docs_views",
		Title:       "Views and filters",
		Description: "How each view is filtered, totalled and highlighted.",
		Content: `# Views

Every view starts from the company's worksheet, keeps rows whose filter column
matches the company value (and drops excluded values), then keeps rows owned
by someone in your scope.

## overdue
- Total is summed over the scoped rows before search is applied.
- ` + "`search`" + ` matches the customer column, case-insensitive.

## customers
- ` + "`status`" + ` keeps rows whose status equals the value exactly.
- ` + "`status_options`" + ` lists the statuses present after search.
- Summary columns are returned unless ` + "`show_all_columns`" + ` is set.

## bonuses
- Only rows for the current month are shown.
- ` + "`search`" + ` matches the shipment column.

## Warnings
- configuration_missing: the view or a column is not configured for the company.
- data_unavailable: the worksheet is empty or could not be read.
`,
	},
	{
		URI:         "portal://docs/access",
		Name:        "docs_access",
		Title:       "Roles and scope",
		Description: "How a login's scope is resolved per company.",
		Content: `# Access

- Admin logins see every company and every row.
- A director sees the members of the teams they oversee.
- A team lead (a team named after the login) sees the team.
- Everyone else sees only rows they own.

Ownership is matched on a canonical fragment of the login: the part before
"@", lower-cased, without dots, hyphens or spaces. ` + "`Erik.S@corp.com`" + `
owns rows whose sales rep cell contains ` + "`eriks`" + `.
The team dashboard can narrow a scope to one team or one member, never widen it.
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
