package cmd

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/services"
	"github.com/tablecraft/tablecraft/internal/util"
)

func keyStatus(k *model.APIKey, now time.Time) string {
	switch {
	case !k.Active:
		return "revoked"
	case k.Expired(now):
		return "expired"
	}
	return green("active")
}

// parseExpiry accepts a duration from now (e.g. 720h) or a date.
func parseExpiry(val string, now time.Time) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(val); err == nil {
		t := now.Add(d)
		return &t, nil
	}
	t, err := cast.ToTimeE(val)
	if err != nil {
		return nil, errors.Newf("invalid expiry %q, use a duration like 720h or a date", val)
	}
	return &t, nil
}

var keysCmd = &cobra.Command{
	Use:     "keys",
	Aliases: []string{"key"},
	Short:   "Manage the api keys of a project",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scoped api keys of the project",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		keys, err := a.svc.APIKeys.ForProject(a.ctx, project.ID)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), keys)
			return nil
		}
		now := time.Now()
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			perms := make([]string, 0, len(k.Permissions))
			for _, p := range k.Permissions {
				perms = append(perms, string(p))
			}
			rows = append(rows, []string{k.ID, k.Name, util.MaskToken(k.Key), cell(perms), keyStatus(k, now), cell(k.UsageCount), cell(k.LastUsedAt), cell(k.ExpiresAt)})
		}
		printTable(cmd.OutOrStdout(), []string{"id", "name", "key", "permissions", "status", "uses", "last used", "expires"}, rows)
		return nil
	}),
}

var keysCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Issue a scoped api key for the project",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		vals, _ := cmd.Flags().GetStringSlice("permissions")
		perms, err := model.ParsePermissions(vals)
		if err != nil {
			return err
		}
		expires, err := parseExpiry(mustFlagString(cmd, "expires", false), time.Now())
		if err != nil {
			return err
		}
		project, err := a.project(cmd)
		if err != nil {
			return err
		}
		key, err := a.svc.APIKeys.Issue(a.ctx, services.APIKeyInput{
			ProjectID:   project.ID,
			Name:        args[0],
			Permissions: perms,
			ExpiresAt:   expires,
		})
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), key)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s created key %s\n\n  %s\n\n%s\n", green("✓"), key.Name, key.Key, yellow("the key is only shown once, store it somewhere safe"))
		return nil
	}),
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke [key-id]",
	Short: "Deactivate a scoped api key",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		key, err := a.svc.APIKeys.Revoke(a.ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s revoked key %s\n", green("✓"), key.Name)
		return nil
	}),
}

var keysRegenerateCmd = &cobra.Command{
	Use:   "regenerate [key-id]",
	Short: "Replace the secret of a scoped api key",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		key, err := a.svc.APIKeys.Regenerate(a.ctx, args[0])
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), key)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s regenerated key %s\n\n  %s\n", green("✓"), args[0], key.Key)
		return nil
	}),
}

var keysMasterCmd = &cobra.Command{
	Use:   "master",
	Short: "List the master admin keys",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		keys, err := a.svc.APIKeys.MasterAdmin(a.ctx)
		if err != nil {
			return err
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), keys)
			return nil
		}
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k.ID, k.Name, k.KeyPrefix + "…", cell(k.Active), cell(k.CreatedAt), cell(k.LastUsedAt), k.Description})
		}
		printTable(cmd.OutOrStdout(), []string{"id", "name", "prefix", "active", "created", "last used", "description"}, rows)
		return nil
	}),
}

var keysMasterRevokeCmd = &cobra.Command{
	Use:   "revoke [key-id]",
	Short: "Delete a master admin key",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		ok, err := confirm(cmd, "Delete master admin key "+args[0]+"?")
		if err != nil || !ok {
			return err
		}
		if err := a.svc.APIKeys.RevokeMasterAdmin(a.ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s deleted master admin key %s\n", green("✓"), args[0])
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysListCmd, keysCreateCmd, keysRevokeCmd, keysRegenerateCmd, keysMasterCmd)
	keysMasterCmd.AddCommand(keysMasterRevokeCmd)
	keysCreateCmd.Flags().StringSlice("permissions", []string{string(model.PermissionRead)}, "read, write, delete or admin")
	keysCreateCmd.Flags().String("expires", "", "when the key expires, a duration from now (720h) or a date")
	keysMasterRevokeCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}
