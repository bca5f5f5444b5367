package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/neomorfeo/providerhub/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Every invocation gets its own viper
// instance so flags bound by one command never leak into another.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "providerd",
		Short:         "Provider registry with an approval lifecycle and CSV import",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "env-format config file")
	flags.String("db", "", "SQLite database path (DATABASE_PATH)")
	flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	flags.String("log-format", "", "text or json (LOG_FORMAT)")

	mustBind(v, config.KeyConfigFile, flags.Lookup("config"))
	mustBind(v, config.KeyDatabasePath, flags.Lookup("db"))
	mustBind(v, config.KeyLogLevel, flags.Lookup("log-level"))
	mustBind(v, config.KeyLogFormat, flags.Lookup("log-format"))

	root.AddCommand(
		newServeCmd(v),
		newImportCmd(v),
		newTemplateCmd(),
	)
	return root
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// loadConfig resolves configuration for a command after its flags are parsed.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
