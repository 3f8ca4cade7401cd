package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tablecraft/tablecraft/internal/util"
)

// fileConfig is the layout of config.toml. Durations are kept in their string form (e.g. 30s).
type fileConfig struct {
	APIURL            string `toml:"api-url"`
	RetryCount        int    `toml:"retry-count"`
	RetryDelay        string `toml:"retry-delay"`
	Timeout           string `toml:"timeout"`
	CatalogTTL        string `toml:"catalog-ttl"`
	ImportConcurrency int    `toml:"import-concurrency"`
}

func fileConfigFrom(v *viper.Viper) fileConfig {
	return fileConfig{
		APIURL:            v.GetString("api-url"),
		RetryCount:        v.GetInt("retry-count"),
		RetryDelay:        v.GetDuration("retry-delay").String(),
		Timeout:           v.GetDuration("timeout").String(),
		CatalogTTL:        v.GetDuration("catalog-ttl").String(),
		ImportConcurrency: v.GetInt("import-concurrency"),
	}
}

func writeConfig(fn string, cfg fileConfig) error {
	f, err := os.OpenFile(fn, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "error creating config file")
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errors.Wrap(err, "error writing config file")
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the local configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write config.toml in the data directory from the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir := v.GetString("data-dir")
		if err := util.EnsureDir(dir); err != nil {
			return errors.Wrapf(err, "data directory %s is not usable", dir)
		}
		fn := filepath.Join(dir, configFilename)
		if util.Exists(fn) && !mustFlagBool(cmd, "force") {
			return errors.Newf("%s already exists, use --force to overwrite", fn)
		}
		cfg := fileConfigFrom(v)
		if !cmd.Flags().Changed("api-url") && interactive() {
			if err := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("API url").Value(&cfg.APIURL),
			)).WithTheme(huh.ThemeBase()).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}
		}
		if err := writeConfig(fn, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", green("✓"), fn)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration and session",
	Args:  cobra.NoArgs,
	RunE: run(func(a *app, cmd *cobra.Command, args []string) error {
		cfg := fileConfigFrom(a.config)
		token := a.session.Token()
		masked := ""
		if token != "" {
			masked = util.MaskToken(token)
		}
		apiURL, err := util.MaskURL(cfg.APIURL)
		if err != nil {
			apiURL = cfg.APIURL
		}
		user := ""
		if u, err := a.client.CurrentUser(); err == nil {
			user = util.MaskEmail(u.Email)
		}
		if a.json {
			printJSON(cmd.OutOrStdout(), map[string]any{
				"config":        cfg,
				"apiUrl":        apiURL,
				"dataDir":       a.config.GetString("data-dir"),
				"configFile":    a.config.ConfigFileUsed(),
				"token":         masked,
				"user":          user,
				"authenticated": a.client.IsAuthenticated(),
			})
			return nil
		}
		printTable(cmd.OutOrStdout(), []string{"setting", "value"}, [][]string{
			{"api-url", apiURL},
			{"data-dir", a.config.GetString("data-dir")},
			{"config-file", a.config.ConfigFileUsed()},
			{"retry-count", cell(cfg.RetryCount)},
			{"retry-delay", cfg.RetryDelay},
			{"timeout", cfg.Timeout},
			{"catalog-ttl", cfg.CatalogTTL},
			{"import-concurrency", cell(cfg.ImportConcurrency)},
			{"user", user},
			{"token", masked},
			{"authenticated", cell(a.client.IsAuthenticated())},
		})
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")
}
