package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/query"
	"github.com/tablecraft/tablecraft/internal/schema"
	"github.com/tablecraft/tablecraft/internal/services"
	"github.com/tablecraft/tablecraft/internal/util"
)

func addQueryFlags(flags *pflag.FlagSet, paging bool) {
	flags.StringArray("filter", nil, "filter as field:op[:value], op is one of eq, neq, gt, gte, lt, lte, like, in, is_null or not_null")
	flags.String("search", "", "full text search")
	if !paging {
		return
	}
	flags.StringSlice("sort", nil, "sort by field, prefix with - for descending")
	flags.Int("page", 0, "page number starting at 1")
	flags.Int("page-size", 0, "rows per page")
	flags.Int("limit", 0, "maximum number of rows")
	flags.Int("offset", 0, "number of rows to skip")
	flags.StringSlice("include", nil, "related tables to include")
}

// queryParams builds list parameters from the flags added by addQueryFlags.
func queryParams(flags *pflag.FlagSet) (*query.Params, error) {
	var params query.Params
	filters, _ := flags.GetStringArray("filter")
	for _, val := range filters {
		f, err := query.ParseFilter(val)
		if err != nil {
			return nil, err
		}
		params.Filters = append(params.Filters, f)
	}
	params.Search, _ = flags.GetString("search")
	if flags.Lookup("sort") != nil {
		sorts, _ := flags.GetStringSlice("sort")
		for _, val := range sorts {
			params.Sort = append(params.Sort, query.ParseSort(val))
		}
		params.Page, _ = flags.GetInt("page")
		params.PageSize, _ = flags.GetInt("page-size")
		params.Limit, _ = flags.GetInt("limit")
		params.Offset, _ = flags.GetInt("offset")
		params.Include, _ = flags.GetStringSlice("include")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

func fieldNames(table *model.Table) []string {
	names := make([]string, 0, len(table.Fields))
	for _, f := range table.Fields {
		names = append(names, f.Name)
	}
	return names
}

func printRows(w io.Writer, table *model.Table, rows []services.Row) {
	cols := rowColumns(fieldNames(table), rows)
	printTable(w, cols, rowsTable(cols, rows))
}

// printProblems lists validation problems one line per field.
func printProblems(w io.Writer, fields map[string][]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(fields[name], ", "))
	}
}

// rowCommand resolves the project and the table named by the first argument.
func rowCommand(fn func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error) func(cmd *cobra.Command, args []string) error {
	return run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		table, err := findTable(project, args[0])
		if err != nil {
			return err
		}
		return fn(a, cmd, project, table, args[1:])
	})
}

var rowsCmd = &cobra.Command{
	Use:     "rows",
	Aliases: []string{"row", "data"},
	Short:   "Read and write the data of a table",
}

var rowsListCmd = &cobra.Command{
	Use:   "list [table]",
	Short: "List the rows of a table",
	Args:  cobra.ExactArgs(1),
	Example: util.GenerateExamples(
		"tablecraft rows list orders --filter paid:eq:true --sort -total",
		"tablecraft rows list orders --filter status:in:open|pending --page 2 --page-size 50",
	),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		params, err := queryParams(cmd.Flags())
		if err != nil {
			return err
		}
		res, err := a.svc.Rows.List(a.ctx, project, table, params)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), map[string]any{"data": res.Items, "meta": res.Meta})
			return nil
		}
		printRows(cmd.OutOrStdout(), table, res.Items)
		if res.Meta != nil && res.Meta.TotalPages > 1 {
			fmt.Fprintln(cmd.OutOrStdout(), faint(fmt.Sprintf("page %d of %d, %d rows", res.Meta.Page, res.Meta.TotalPages, res.Meta.Total)))
		}
		return nil
	}),
}

var rowsCountCmd = &cobra.Command{
	Use:   "count [table]",
	Short: "Count the rows of a table",
	Args:  cobra.ExactArgs(1),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		params, err := queryParams(cmd.Flags())
		if err != nil {
			return err
		}
		count, err := a.svc.Rows.Count(a.ctx, project, table, params)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), map[string]int{"count": count})
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), count)
		return nil
	}),
}

var rowsGetCmd = &cobra.Command{
	Use:   "get [table] [row-id]",
	Short: "Show a single row",
	Args:  cobra.ExactArgs(2),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		row, err := a.svc.Rows.Get(a.ctx, project, table, args[0])
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), row)
			return nil
		}
		cols := rowColumns(fieldNames(table), []services.Row{row})
		lines := make([][]string, 0, len(cols))
		for _, c := range cols {
			lines = append(lines, []string{c, cell(row[c])})
		}
		printTable(cmd.OutOrStdout(), []string{"field", "value"}, lines)
		return nil
	}),
}

// writeRow reports a validation failure field by field instead of as a single message.
func writeRow(a *app, cmd *cobra.Command, table *model.Table, fn func() (services.Row, error)) error {
	row, err := fn()
	if err != nil {
		var verr *apiclient.ValidationError
		if errors.As(err, &verr) && len(verr.Fields) > 0 && !a.json {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", red("invalid row:"), verr.Message)
			printProblems(cmd.ErrOrStderr(), verr.Fields)
		}
		return err
	}
	if a.json {
		printJSON(cmd.OutOrStdout(), row)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s saved row %s in %s\n", green("✓"), cell(row["id"]), table.Name)
	return nil
}

var rowsCreateCmd = &cobra.Command{
	Use:     "create [table] [field=value...]",
	Short:   "Create a row",
	Args:    cobra.MinimumNArgs(1),
	Example: util.GenerateExamples("tablecraft rows create orders number=A-100 total=19.99 paid=false"),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		row, err := schema.CoerceRow(table, args)
		if err != nil {
			return err
		}
		return writeRow(a, cmd, table, func() (services.Row, error) {
			return a.svc.Rows.Create(a.ctx, project, table, row)
		})
	}),
}

var rowsUpdateCmd = &cobra.Command{
	Use:     "update [table] [row-id] [field=value...]",
	Short:   "Change some fields of a row",
	Args:    cobra.MinimumNArgs(3),
	Example: util.GenerateExamples("tablecraft rows update orders 42 paid=true"),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		changes, err := schema.CoerceRow(table, args[1:])
		if err != nil {
			return err
		}
		return writeRow(a, cmd, table, func() (services.Row, error) {
			return a.svc.Rows.Update(a.ctx, project, table, args[0], changes)
		})
	}),
}

var rowsDeleteCmd = &cobra.Command{
	Use:   "delete [table] [row-id]",
	Short: "Delete a row",
	Args:  cobra.ExactArgs(2),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		if err := a.svc.Rows.Delete(a.ctx, project, table, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s deleted row %s from %s\n", green("✓"), args[0], table.Name)
		return nil
	}),
}

// readRows loads every object of a new line delimited json file.
func readRows(fn string) ([]services.Row, error) {
	dec, err := util.NewNDJSONDecoder(fn)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	var rows []services.Row
	for dec.More() {
		var row services.Row
		if err := dec.Decode(&row); err != nil {
			return nil, errors.Wrapf(err, "error reading %s", fn)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var rowsImportCmd = &cobra.Command{
	Use:   "import [table] [file]",
	Short: "Create rows from a new line delimited json file",
	Long:  "Create rows from a new line delimited json file, gzipped when the name ends in .gz.\n\nEvery row is validated first. Invalid rows are skipped and listed at the end.",
	Args:  cobra.ExactArgs(2),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		rows, err := readRows(args[0])
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), faint("nothing to import"))
			return nil
		}
		a.logger.Debug("importing %d rows into %s", len(rows), table.Name)
		var res *services.ImportResult
		ctx, cancel := context.WithCancel(a.ctx)
		defer cancel()
		err = util.RunWithProgress(ctx, cancel, func(bar *util.ProgressBar) error {
			bar.SetMessage("validating " + cell(len(rows)) + " rows")
			var err error
			res, err = a.svc.Rows.Import(ctx, project, table, rows, func(done, total int) {
				bar.Track(done, total, "imported")
			})
			return err
		})
		if res == nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), map[string]any{"created": res.Created, "invalid": res.Invalid})
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s imported %d of %d rows into %s\n", green("✓"), res.Created, len(rows), table.Name)
		if len(res.Invalid) > 0 {
			lines := make([]int, 0, len(res.Invalid))
			for i := range res.Invalid {
				lines = append(lines, i)
			}
			sort.Ints(lines)
			fmt.Fprintf(cmd.OutOrStdout(), "%s skipped %d invalid rows\n", yellow("!"), len(lines))
			for _, i := range lines {
				fmt.Fprintf(cmd.OutOrStdout(), "line %d\n", i+1)
				printProblems(cmd.OutOrStdout(), res.Invalid[i])
			}
		}
		return err
	}),
}

var rowsExportCmd = &cobra.Command{
	Use:   "export [table]",
	Short: "Write every row of a table as new line delimited json",
	Args:  cobra.ExactArgs(1),
	Example: util.GenerateExamples(
		"tablecraft rows export orders --output orders.ndjson.gz",
		"tablecraft rows export orders --filter paid:eq:false | jq .total",
	),
	RunE: rowCommand(func(a *app, cmd *cobra.Command, project *model.Project, table *model.Table, args []string) error {
		params, err := queryParams(cmd.Flags())
		if err != nil {
			return err
		}
		params.PageSize, _ = cmd.Flags().GetInt("page-size")
		out := mustFlagString(cmd, "output", false)
		if out == "" {
			_, err := a.svc.Rows.Export(a.ctx, project, table, params, func(row services.Row) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), util.JSONStringify(row))
				return err
			})
			return err
		}
		enc, err := util.NewNDJSONEncoder(out)
		if err != nil {
			return err
		}
		_, err = a.svc.Rows.Export(a.ctx, project, table, params, func(row services.Row) error {
			return enc.Encode(row)
		})
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s exported %d rows to %s\n", green("✓"), enc.Count(), out)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(rowsCmd)
	rowsCmd.AddCommand(rowsListCmd, rowsCountCmd, rowsGetCmd, rowsCreateCmd, rowsUpdateCmd, rowsDeleteCmd, rowsImportCmd, rowsExportCmd)
	addQueryFlags(rowsListCmd.Flags(), true)
	addQueryFlags(rowsCountCmd.Flags(), false)
	addQueryFlags(rowsExportCmd.Flags(), false)
	rowsExportCmd.Flags().Int("page-size", 100, "rows fetched per request")
	rowsExportCmd.Flags().StringP("output", "o", "", "the file to write, gzipped when it ends in .gz, stdout when empty")
}
