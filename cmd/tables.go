package cmd

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/schema"
	"github.com/tablecraft/tablecraft/internal/services"
	"github.com/tablecraft/tablecraft/internal/store"
)

func addFieldFlags(flags *pflag.FlagSet) {
	flags.String("type", string(model.FieldTypeString), "the field type, one of "+fieldTypeNames())
	flags.Bool("required", false, "the field must have a value")
	flags.Int("min-length", 0, "the minimum length of a string")
	flags.Int("max-length", 0, "the maximum length of a string")
	flags.String("pattern", "", "a regular expression a string must match")
	flags.StringSlice("enum", nil, "the allowed values of a string")
	flags.Float64("min", 0, "the minimum of a number, currency or weight")
	flags.Float64("max", 0, "the maximum of a number, currency or weight")
	flags.String("currency", "", "the currency code of a currency field")
	flags.String("unit", "", "the unit of a weight field")
	flags.String("min-date", "", "the earliest allowed date (YYYY-MM-DD)")
	flags.String("max-date", "", "the latest allowed date (YYYY-MM-DD)")
}

func fieldTypeNames() string {
	names := make([]string, 0, len(model.FieldTypes))
	for _, ft := range model.FieldTypes {
		names = append(names, string(ft))
	}
	return strings.Join(names, ", ")
}

// applyFieldFlags sets on field whatever was passed on the command line, leaving the rest as is.
func applyFieldFlags(flags *pflag.FlagSet, field *model.Field) error {
	if flags.Changed("type") || field.Type == "" {
		val, _ := flags.GetString("type")
		ft, err := model.ParseFieldType(val)
		if err != nil {
			return err
		}
		field.Type = ft
	}
	if flags.Changed("required") {
		field.Required, _ = flags.GetBool("required")
	}
	v := model.FieldValidation{}
	if field.Validation != nil {
		v = *field.Validation
	}
	if flags.Changed("min-length") {
		n, _ := flags.GetInt("min-length")
		v.MinLength = &n
	}
	if flags.Changed("max-length") {
		n, _ := flags.GetInt("max-length")
		v.MaxLength = &n
	}
	if flags.Changed("pattern") {
		v.Pattern, _ = flags.GetString("pattern")
	}
	if flags.Changed("enum") {
		v.Enum, _ = flags.GetStringSlice("enum")
	}
	if flags.Changed("min") {
		n, _ := flags.GetFloat64("min")
		v.Min = &n
	}
	if flags.Changed("max") {
		n, _ := flags.GetFloat64("max")
		v.Max = &n
	}
	if flags.Changed("currency") {
		v.Currency, _ = flags.GetString("currency")
	}
	if flags.Changed("unit") {
		v.Unit, _ = flags.GetString("unit")
	}
	if flags.Changed("min-date") {
		val, _ := flags.GetString("min-date")
		t, err := cast.ToTimeE(val)
		if err != nil {
			return errors.Wrap(err, "invalid --min-date")
		}
		v.MinDate = &t
	}
	if flags.Changed("max-date") {
		val, _ := flags.GetString("max-date")
		t, err := cast.ToTimeE(val)
		if err != nil {
			return errors.Wrap(err, "invalid --max-date")
		}
		v.MaxDate = &t
	}
	if !emptyValidation(&v) {
		field.Validation = &v
	}
	return nil
}

func emptyValidation(v *model.FieldValidation) bool {
	return v.MinLength == nil && v.MaxLength == nil && v.Pattern == "" && len(v.Enum) == 0 &&
		v.Min == nil && v.Max == nil && v.Currency == "" && v.Unit == "" && v.MinDate == nil && v.MaxDate == nil
}

func rules(f *model.Field) string {
	v := f.Validation
	if v == nil {
		return ""
	}
	var parts []string
	if v.MinLength != nil {
		parts = append(parts, fmt.Sprintf("minLength=%d", *v.MinLength))
	}
	if v.MaxLength != nil {
		parts = append(parts, fmt.Sprintf("maxLength=%d", *v.MaxLength))
	}
	if v.Pattern != "" {
		parts = append(parts, "pattern="+v.Pattern)
	}
	if len(v.Enum) > 0 {
		parts = append(parts, "enum="+strings.Join(v.Enum, "|"))
	}
	if v.Min != nil {
		parts = append(parts, "min="+cast.ToString(*v.Min))
	}
	if v.Max != nil {
		parts = append(parts, "max="+cast.ToString(*v.Max))
	}
	if v.Currency != "" {
		parts = append(parts, "currency="+v.Currency)
	}
	if v.Unit != "" {
		parts = append(parts, "unit="+v.Unit)
	}
	if v.MinDate != nil {
		parts = append(parts, "minDate="+v.MinDate.Format("2006-01-02"))
	}
	if v.MaxDate != nil {
		parts = append(parts, "maxDate="+v.MaxDate.Format("2006-01-02"))
	}
	return strings.Join(parts, " ")
}

var tablesCmd = &cobra.Command{
	Use:     "tables",
	Aliases: []string{"table"},
	Short:   "Manage the tables of a project",
}

var tablesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tables of the project",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), project.Tables)
			return nil
		}
		rows := make([][]string, 0, len(project.Tables))
		for _, t := range project.Tables {
			rows = append(rows, []string{t.ID, t.Name, cell(len(t.Fields))})
		}
		printTable(cmd.OutOrStdout(), []string{"id", "name", "fields"}, rows)
		return nil
	}),
}

var tablesCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create an empty table",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		user, err := a.user()
		if err != nil {
			return err
		}
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		if err := services.CheckTableQuota(user, project); err != nil {
			return err
		}
		table := &model.Table{Name: args[0]}
		if _, err := a.updateSchema(project, func(p *model.Project) error {
			return schema.AddTable(p, table)
		}); err != nil {
			return err
		}
		a.store.Dispatch(store.Action{Type: store.ActionSelectTable, TableID: table.ID})
		fmt.Fprintf(cmd.OutOrStdout(), "%s created table %s\n", green("✓"), table.Name)
		return nil
	}),
}

var tablesDeleteCmd = &cobra.Command{
	Use:   "delete [table]",
	Short: "Delete a table and the relationships pointing at it",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		t, err := findTable(project, args[0])
		if err != nil {
			return err
		}
		ok, err := confirm(cmd, fmt.Sprintf("Delete table %s and all of its rows?", t.Name))
		if err != nil || !ok {
			return err
		}
		if _, err := a.updateSchema(project, func(p *model.Project) error {
			return schema.RemoveTable(p, t.ID)
		}); err != nil {
			return err
		}
		a.store.Dispatch(store.Action{Type: store.ActionDeleteTable, ProjectID: project.ID, TableID: t.ID})
		fmt.Fprintf(cmd.OutOrStdout(), "%s deleted table %s\n", green("✓"), t.Name)
		return nil
	}),
}

var fieldsCmd = &cobra.Command{
	Use:     "fields",
	Aliases: []string{"field"},
	Short:   "Manage the fields of a table",
}

var fieldsListCmd = &cobra.Command{
	Use:   "list [table]",
	Short: "List the fields of a table in order",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		t, err := findTable(project, args[0])
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), t.Fields)
			return nil
		}
		rows := make([][]string, 0, len(t.Fields))
		for i, f := range t.Fields {
			rows = append(rows, []string{cell(i), f.Name, string(f.Type), cell(f.Required), rules(f), cell(len(f.Relationships))})
		}
		printTable(cmd.OutOrStdout(), []string{"#", "name", "type", "required", "rules", "relations"}, rows)
		return nil
	}),
}

var fieldsAddCmd = &cobra.Command{
	Use:   "add [table] [name]",
	Short: "Add a field to a table",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		field := &model.Field{Name: args[1]}
		if err := applyFieldFlags(cmd.Flags(), field); err != nil {
			return err
		}
		if _, err := a.updateSchema(project, func(p *model.Project) error {
			return schema.AddField(p, args[0], field)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s added field %s (%s)\n", green("✓"), field.Name, field.Type)
		return nil
	}),
}

var fieldsUpdateCmd = &cobra.Command{
	Use:   "update [table] [field]",
	Short: "Change the name, type or rules of a field",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		var name string
		if _, err := a.updateSchema(project, func(p *model.Project) error {
			t := p.FindTable(args[0])
			if t == nil {
				return errors.Wrapf(schema.ErrNotFound, "table %s", args[0])
			}
			current := t.FindField(args[1])
			if current == nil {
				return errors.Wrapf(schema.ErrNotFound, "field %s", args[1])
			}
			field := current.Clone()
			if cmd.Flags().Changed("name") {
				field.Name = mustFlagString(cmd, "name", true)
			}
			if err := applyFieldFlags(cmd.Flags(), field); err != nil {
				return err
			}
			name = field.Name
			return schema.UpdateField(p, t.ID, field)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated field %s\n", green("✓"), name)
		return nil
	}),
}

var fieldsMoveCmd = &cobra.Command{
	Use:   "move [table] [from] [to]",
	Short: "Move a field from one position to another",
	Args:  cobra.ExactArgs(3),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		from, err := cast.ToIntE(args[1])
		if err != nil {
			return errors.Wrap(err, "invalid from position")
		}
		to, err := cast.ToIntE(args[2])
		if err != nil {
			return errors.Wrap(err, "invalid to position")
		}
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		if _, err := a.updateSchema(project, func(p *model.Project) error {
			return schema.ReorderField(p, args[0], from, to)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s moved field %d to %d\n", green("✓"), from, to)
		return nil
	}),
}

var fieldsRemoveCmd = &cobra.Command{
	Use:   "remove [table] [field]",
	Short: "Remove a field and the relationships pointing at it",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		if _, err := a.updateSchema(project, func(p *model.Project) error {
			return schema.RemoveField(p, args[0], args[1])
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed field %s\n", green("✓"), args[1])
		return nil
	}),
}

var relationsCmd = &cobra.Command{
	Use:     "relations",
	Aliases: []string{"relation"},
	Short:   "Manage relationships between fields",
}

var relationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every relationship of the project",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		var rows [][]string
		for _, t := range project.Tables {
			for _, f := range t.Fields {
				for _, r := range f.Relationships {
					target, targetField := r.TargetTableID, r.TargetFieldID
					if tt := project.FindTable(r.TargetTableID); tt != nil {
						target = tt.Name
						if tf := tt.FindField(r.TargetFieldID); tf != nil {
							targetField = tf.Name
						}
					}
					rows = append(rows, []string{r.ID, t.Name + "." + f.Name, string(r.Type), target + "." + targetField, cell(r.CascadeDelete)})
				}
			}
		}
		printTable(cmd.OutOrStdout(), []string{"id", "source", "type", "target", "cascade"}, rows)
		return nil
	}),
}

var relationsAddCmd = &cobra.Command{
	Use:   "add [table] [field] [target-table] [target-field]",
	Short: "Relate a field to a field of another table",
	Args:  cobra.ExactArgs(4),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		rt, err := model.ParseRelationshipType(mustFlagString(cmd, "type", true))
		if err != nil {
			return err
		}
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		rel := &model.FieldRelationship{
			TargetTableID: args[2],
			TargetFieldID: args[3],
			Type:          rt,
			CascadeDelete: mustFlagBool(cmd, "cascade"),
		}
		updated, err := a.updateSchema(project, func(p *model.Project) error {
			return schema.AddRelationship(p, args[0], args[1], rel)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s added relationship %s\n", green("✓"), rel.ID)
		if cycles := schema.FindRelationshipCycles(updated); len(cycles) > 0 {
			for _, c := range cycles {
				fmt.Fprintf(cmd.OutOrStdout(), "%s relationship cycle: %s\n", yellow("!"), strings.Join(append(c, c[0]), " → "))
			}
		}
		return nil
	}),
}

var relationsRemoveCmd = &cobra.Command{
	Use:   "remove [table] [field] [relationship-id]",
	Short: "Remove a relationship",
	Args:  cobra.ExactArgs(3),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		if _, err := a.updateSchema(project, func(p *model.Project) error {
			return schema.RemoveRelationship(p, args[0], args[1], args[2])
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed relationship %s\n", green("✓"), args[2])
		return nil
	}),
}

var relationsCyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Report relationship cycles between tables",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		cycles := schema.FindRelationshipCycles(project)
		if a.json {
			printJSON(cmd.OutOrStdout(), cycles)
			return nil
		}
		if len(cycles) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s no relationship cycles\n", green("✓"))
			return nil
		}
		for _, c := range cycles {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(append(c, c[0]), " → "))
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(tablesCmd, fieldsCmd, relationsCmd)
	tablesCmd.AddCommand(tablesListCmd, tablesCreateCmd, tablesDeleteCmd)
	tablesDeleteCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	fieldsCmd.AddCommand(fieldsListCmd, fieldsAddCmd, fieldsUpdateCmd, fieldsMoveCmd, fieldsRemoveCmd)
	addFieldFlags(fieldsAddCmd.Flags())
	addFieldFlags(fieldsUpdateCmd.Flags())
	fieldsUpdateCmd.Flags().String("name", "", "the new field name")
	relationsCmd.AddCommand(relationsListCmd, relationsAddCmd, relationsRemoveCmd, relationsCyclesCmd)
	relationsAddCmd.Flags().String("type", string(model.OneToMany), "one_to_one (1:1), one_to_many (1:N) or many_to_many (N:N)")
	relationsAddCmd.Flags().Bool("cascade", false, "delete related rows with the source row")
}
