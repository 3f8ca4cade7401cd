package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/util"
)

var Version string // set in main

const (
	envPrefix      = "TABLECRAFT"
	configFilename = "config.toml"
	defaultAPIURL  = "http://localhost:3000/api/v1"
)

func mustFlagBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	return val
}

func mustFlagString(cmd *cobra.Command, name string, required bool) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	if required && val == "" {
		fmt.Printf("error: required flag --%s missing\n", name)
		os.Exit(1)
	}
	return val
}

func mustFlagInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	return val
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tablecraft"
	}
	return filepath.Join(dir, "tablecraft")
}

// loadConfig resolves settings from flags, then TABLECRAFT_* env (including a .env file), then
// config.toml in the data directory, then defaults.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "error loading .env")
	}
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("api-url", defaultAPIURL)
	v.SetDefault("data-dir", defaultDataDir())
	v.SetDefault("retry-count", apiclient.DefaultRetryCount)
	v.SetDefault("retry-delay", apiclient.DefaultRetryDelay)
	v.SetDefault("timeout", apiclient.DefaultTimeout)
	v.SetDefault("catalog-ttl", 5*time.Minute)
	v.SetDefault("import-concurrency", 4)
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "error binding flags")
	}
	fn := filepath.Join(v.GetString("data-dir"), configFilename)
	if util.Exists(fn) {
		v.SetConfigFile(fn)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "error reading %s", fn)
		}
	}
	return v, nil
}

func newLogger(config *viper.Viper) logger.Logger {
	switch {
	case config.GetBool("verbose"):
		return logger.NewConsoleLogger(logger.LevelTrace)
	case config.GetBool("silent"):
		return logger.NewConsoleLogger(logger.LevelError)
	}
	return logger.NewConsoleLogger(logger.LevelInfo)
}

var rootCmd = &cobra.Command{
	Use:   "tablecraft",
	Short: "Manage tablecraft projects, tables and data from the command line",
	Long: util.GenerateHelpSection("tablecraft", "Design tables, manage api keys and work with row data of your tablecraft projects.") + "\n\n" +
		util.GenerateExamples(
			"tablecraft login",
			"tablecraft projects create shop --select",
			"tablecraft tables create orders",
			"tablecraft fields add orders total --type currency --required --min 0",
			"tablecraft rows import orders orders.ndjson.gz",
		),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var red = color.New(color.FgRed, color.Bold).SprintFunc()

// errorMessage is the user facing message for err. Not found errors name what was missing.
func errorMessage(err error) string {
	msg := apiclient.Message(err)
	var nf *apiclient.NotFoundError
	if errors.As(err, &nf) && nf.Message != "" {
		msg += " (" + nf.Message + ")"
	}
	return msg
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), errorMessage(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("api-url", defaultAPIURL, "the tablecraft api url")
	rootCmd.PersistentFlags().String("data-dir", defaultDataDir(), "the directory for the session database and config file")
	rootCmd.PersistentFlags().StringP("project", "p", "", "the project id or name, defaults to the selected project")
	rootCmd.PersistentFlags().Bool("json", false, "print results as json")
	rootCmd.PersistentFlags().Bool("verbose", false, "turn on verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "turn off all logging except errors")
}
