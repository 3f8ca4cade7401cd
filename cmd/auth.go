package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/services"
	"github.com/tablecraft/tablecraft/internal/store"
	"github.com/tablecraft/tablecraft/internal/util"
)

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

// promptCredentials asks for whatever was not passed as a flag.
func promptCredentials(email, password, name *string, askName bool) error {
	var fields []huh.Field
	if *email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(email).Validate(func(s string) error {
			if s == "" {
				return errors.New("email is required")
			}
			return nil
		}))
	}
	if askName && *name == "" {
		fields = append(fields, huh.NewInput().Title("Name").Value(name))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(password))
	}
	if len(fields) == 0 {
		return nil
	}
	if !interactive() {
		return errors.New("email and password are required, use --email and --password")
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeBase()).Run()
}

func finishLogin(a *app, cmd *cobra.Command, sess *services.Session) error {
	a.store.Dispatch(store.Action{Type: store.ActionLogin, User: sess.User})
	a.store.Dispatch(store.Action{Type: store.ActionSetProjects, Projects: sess.Projects})
	if a.json {
		printJSON(cmd.OutOrStdout(), sess)
		return nil
	}
	who := "unknown user"
	if sess.User != nil {
		who = sess.User.Email
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s logged in as %s (%d projects)\n", green("✓"), who, len(sess.Projects))
	return nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to tablecraft",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		email := mustFlagString(cmd, "email", false)
		password := mustFlagString(cmd, "password", false)
		if password == "" {
			password = os.Getenv("TABLECRAFT_PASSWORD")
		}
		var name string
		if err := promptCredentials(&email, &password, &name, false); err != nil {
			return err
		}
		a.logger.Debug("logging in as %s", util.MaskEmail(email))
		var sess *services.Session
		err := util.RunTaskWithSpinner(a.ctx, "Logging in...", func(ctx context.Context) error {
			var err error
			sess, err = a.svc.Auth.Login(ctx, apiclient.Credentials{Email: email, Password: password})
			return err
		})
		if err != nil {
			return err
		}
		return finishLogin(a, cmd, sess)
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a tablecraft account",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		email := mustFlagString(cmd, "email", false)
		password := mustFlagString(cmd, "password", false)
		name := mustFlagString(cmd, "name", false)
		if err := promptCredentials(&email, &password, &name, true); err != nil {
			return err
		}
		var sess *services.Session
		err := util.RunTaskWithSpinner(a.ctx, "Creating account...", func(ctx context.Context) error {
			var err error
			sess, err = a.svc.Auth.Register(ctx, apiclient.Registration{Email: email, Password: password, Name: name})
			return err
		})
		if err != nil {
			return err
		}
		return finishLogin(a, cmd, sess)
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the current session",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		if err := a.svc.Auth.Logout(); err != nil {
			return err
		}
		a.store.Dispatch(store.Action{Type: store.ActionLogout})
		fmt.Fprintf(cmd.OutOrStdout(), "%s logged out\n", green("✓"))
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		user, err := a.user()
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), user)
			return nil
		}
		state := a.store.State()
		selected := ""
		if p := state.SelectedProject(); p != nil {
			selected = p.Name
		}
		printTable(cmd.OutOrStdout(), []string{"id", "email", "name", "tier", "projects", "tables", "admin", "selected"}, [][]string{{
			user.ID, user.Email, user.Name, string(user.SubscriptionTier),
			cell(user.MaxProjects), cell(user.MaxTables), cell(user.IsAdmin), selected,
		}})
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().String("email", "", "the account email")
		c.Flags().String("password", "", "the account password, prompted for when missing")
	}
	registerCmd.Flags().String("name", "", "your name")
}
