package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/services"
	"github.com/tablecraft/tablecraft/internal/store"
	"github.com/tablecraft/tablecraft/internal/util"
)

func projectRows(projects []*model.Project, selected string) [][]string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		mark := ""
		if p.ID == selected {
			mark = green("*")
		}
		rows = append(rows, []string{mark, p.ID, p.Name, cell(p.Description), cell(len(p.Tables)), cell(p.CreatedAt)})
	}
	return rows
}

// confirm asks before a destructive action unless --yes was passed.
func confirm(cmd *cobra.Command, title string) (bool, error) {
	if mustFlagBool(cmd, "yes") {
		return true, nil
	}
	if !interactive() {
		return false, errors.New("refusing to continue without confirmation, use --yes")
	}
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Affirmative("Delete").Negative("Cancel").Value(&ok),
	)).WithTheme(huh.ThemeBase()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		user, err := a.user()
		if err != nil {
			return err
		}
		projects, err := a.svc.Projects.ForUser(a.ctx, user.ID)
		if err != nil {
			return err
		}
		state := a.store.Dispatch(store.Action{Type: store.ActionSetProjects, Projects: projects})
		if a.json {
			printJSON(cmd.OutOrStdout(), projects)
			return nil
		}
		printTable(cmd.OutOrStdout(), []string{"", "id", "name", "description", "tables", "created"}, projectRows(projects, state.SelectedProjectID))
		return nil
	}),
}

var projectsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the selected project or the one named by --project",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), project)
			return nil
		}
		printTable(cmd.OutOrStdout(), []string{"setting", "value"}, [][]string{
			{"id", project.ID},
			{"name", project.Name},
			{"description", project.Description},
			{"api key", util.MaskToken(project.APIKey)},
			{"tables", cell(len(project.Tables))},
			{"rate limit", cell(project.Settings.RateLimit)},
			{"webhook", project.Settings.WebhookURL},
			{"require auth", cell(project.Settings.RequireAuth)},
			{"created", cell(project.CreatedAt)},
			{"updated", cell(project.UpdatedAt)},
		})
		return nil
	}),
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		user, err := a.user()
		if err != nil {
			return err
		}
		project, err := a.svc.Projects.CreateFor(a.ctx, user, services.ProjectInput{
			Name:        args[0],
			Description: mustFlagString(cmd, "description", false),
		})
		if err != nil {
			return err
		}
		a.store.Dispatch(store.Action{Type: store.ActionAddProject, Project: project})
		if mustFlagBool(cmd, "select") {
			a.store.Dispatch(store.Action{Type: store.ActionSelectProject, ProjectID: project.ID})
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), project)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s created project %s (%s)\n", green("✓"), project.Name, project.ID)
		return nil
	}),
}

var projectsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change the name, description or settings of a project",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("name") {
			project.Name = mustFlagString(cmd, "name", true)
		}
		if flags.Changed("description") {
			project.Description = mustFlagString(cmd, "description", false)
		}
		if flags.Changed("webhook-url") {
			project.Settings.WebhookURL = mustFlagString(cmd, "webhook-url", false)
		}
		if flags.Changed("rate-limit") {
			project.Settings.RateLimit = mustFlagInt(cmd, "rate-limit")
		}
		if flags.Changed("require-auth") {
			project.Settings.RequireAuth = mustFlagBool(cmd, "require-auth")
		}
		updated, err := a.svc.Projects.Save(a.ctx, project)
		if err != nil {
			return err
		}
		a.store.Dispatch(store.Action{Type: store.ActionUpdateProject, Project: updated})
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated project %s\n", green("✓"), updated.Name)
		return nil
	}),
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a project and all of its data",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		ok, err := confirm(cmd, fmt.Sprintf("Delete project %s and all of its tables?", project.Name))
		if err != nil || !ok {
			return err
		}
		if err := a.svc.Projects.Delete(a.ctx, project.ID); err != nil {
			return err
		}
		a.store.Dispatch(store.Action{Type: store.ActionDeleteProject, ProjectID: project.ID})
		fmt.Fprintf(cmd.OutOrStdout(), "%s deleted project %s\n", green("✓"), project.Name)
		return nil
	}),
}

var projectsSelectCmd = &cobra.Command{
	Use:   "select [project]",
	Short: "Select the project used by table, field, key and row commands",
	Args:  cobra.MaximumNArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := cmd.Flags().Set("project", args[0]); err != nil {
				return err
			}
		}
		if mustFlagString(cmd, "project", false) == "" {
			return errors.New("name the project to select")
		}
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		a.store.Dispatch(store.Action{Type: store.ActionSelectProject, ProjectID: project.ID})
		fmt.Fprintf(cmd.OutOrStdout(), "%s selected project %s\n", green("✓"), strings.TrimSpace(project.Name))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsGetCmd, projectsCreateCmd, projectsUpdateCmd, projectsDeleteCmd, projectsSelectCmd)
	projectsCreateCmd.Flags().String("description", "", "the project description")
	projectsCreateCmd.Flags().Bool("select", false, "select the new project")
	projectsUpdateCmd.Flags().String("name", "", "the new project name")
	projectsUpdateCmd.Flags().String("description", "", "the project description")
	projectsUpdateCmd.Flags().String("webhook-url", "", "the url called when data changes")
	projectsUpdateCmd.Flags().Int("rate-limit", 0, "requests per minute allowed with the project keys")
	projectsUpdateCmd.Flags().Bool("require-auth", false, "require an api key for data access")
	projectsDeleteCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}
