package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/services"
)

// listCommand builds a list command for a Generic Handler resource.
func listCommand[T any](resource func(s *services.Services) *services.Resource[T], headers []string, line func(*T) []string) *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Args:  cobra.NoArgs,
		RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
			params, err := queryParams(cmd.Flags())
			if err != nil {
				return err
			}
			r := resource(a.svc)
			res, err := r.List(a.ctx, params)
			if err != nil {
				return err
			}
			if a.json {
				printJSON(cmd.OutOrStdout(), map[string]any{"data": res.Items, "meta": res.Meta})
				return nil
			}
			rows := make([][]string, 0, len(res.Items))
			for _, item := range res.Items {
				rows = append(rows, line(item))
			}
			printTable(cmd.OutOrStdout(), headers, rows)
			if res.Total() > len(res.Items) {
				fmt.Fprintln(cmd.OutOrStdout(), faint(fmt.Sprintf("showing %d of %d %s", len(res.Items), res.Total(), r.Name())))
			}
			return nil
		}),
	}
	addQueryFlags(c.Flags(), true)
	return c
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands, require an admin account",
}

var adminUsersCmd = &cobra.Command{Use: "users", Short: "Manage users"}
var adminTenantsCmd = &cobra.Command{Use: "tenants", Short: "Manage tenants"}
var adminOrganizationsCmd = &cobra.Command{Use: "organizations", Aliases: []string{"orgs"}, Short: "Manage organizations"}

var adminUsersListCmd = listCommand(
	func(s *services.Services) *services.Resource[model.User] { return s.Users },
	[]string{"id", "email", "name", "tier", "admin", "created"},
	func(u *model.User) []string {
		return []string{u.ID, u.Email, u.Name, string(u.SubscriptionTier), cell(u.IsAdmin), cell(u.CreatedAt)}
	},
)

var adminTenantsListCmd = listCommand(
	func(s *services.Services) *services.Resource[model.Tenant] { return s.Tenants },
	[]string{"id", "name", "slug", "owner", "plan", "created"},
	func(t *model.Tenant) []string {
		return []string{t.ID, t.Name, t.Slug, t.OwnerID, t.Plan, cell(t.CreatedAt)}
	},
)

var adminOrganizationsListCmd = listCommand(
	func(s *services.Services) *services.Resource[model.Organization] { return s.Organizations },
	[]string{"id", "tenant", "name", "slug", "owner", "created"},
	func(o *model.Organization) []string {
		return []string{o.ID, o.TenantID, o.Name, o.Slug, o.OwnerID, cell(o.CreatedAt)}
	},
)

var complianceCmd = &cobra.Command{Use: "compliance", Short: "Read compliance reports"}

var complianceListCmd = listCommand(
	func(s *services.Services) *services.Resource[model.ComplianceReport] { return s.Compliance },
	[]string{"id", "type", "status", "project", "summary", "findings", "generated"},
	func(r *model.ComplianceReport) []string {
		return []string{r.ID, r.Type, r.Status, r.ProjectID, r.Summary, cell(len(r.Findings)), cell(r.GeneratedAt)}
	},
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect the backend database",
}

var debugTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the backend tables with their columns and row counts",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		tables, err := a.svc.Debug.Tables(a.ctx)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), tables)
			return nil
		}
		rows := make([][]string, 0, len(tables))
		for _, t := range tables {
			rows = append(rows, []string{t.Schema, t.Name, cell(len(t.Columns)), cell(t.RowCount)})
		}
		printTable(cmd.OutOrStdout(), []string{"schema", "table", "columns", "rows"}, rows)
		return nil
	}),
}

var debugTableDataCmd = &cobra.Command{
	Use:   "table-data [schema] [table]",
	Short: "Show raw rows of a backend table",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		rows, err := a.svc.Debug.TableData(a.ctx, args[0], args[1], mustFlagInt(cmd, "limit"), mustFlagInt(cmd, "offset"))
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), rows)
			return nil
		}
		cols := rowColumns(nil, rows)
		printTable(cmd.OutOrStdout(), cols, rowsTable(cols, rows))
		return nil
	}),
}

func init() {
	adminUsersListCmd.Short = "List users"
	adminTenantsListCmd.Short = "List tenants"
	adminOrganizationsListCmd.Short = "List organizations"
	complianceListCmd.Short = "List compliance reports"

	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminUsersCmd, adminTenantsCmd, adminOrganizationsCmd, complianceCmd, debugCmd)
	adminUsersCmd.AddCommand(adminUsersListCmd)
	adminTenantsCmd.AddCommand(adminTenantsListCmd)
	adminOrganizationsCmd.AddCommand(adminOrganizationsListCmd)
	complianceCmd.AddCommand(complianceListCmd)
	debugCmd.AddCommand(debugTablesCmd, debugTableDataCmd)
	debugTableDataCmd.Flags().Int("limit", 50, "maximum number of rows")
	debugTableDataCmd.Flags().Int("offset", 0, "number of rows to skip")
}
