package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logLevel string
	log      *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reveriectl",
	Short: "reveriectl is the operator CLI for the Reverie API.",
	Long: `A CLI for administrative tasks around the Reverie API: applying migrations,
minting development tokens, previewing share cards and granting manual retries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, err := logger.Setup(logger.LoggerConfig{
			Level:  logLevel,
			Format: "text",
			Output: cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("database-driver", "postgres", "Entry store driver (postgres or mongo)")
	rootCmd.PersistentFlags().String("database-url", "", "Entry store connection URL")
	rootCmd.PersistentFlags().String("mongo-database", "reverie", "MongoDB database name")

	bindFlag("database.driver", "database-driver")
	bindFlag("database.url", "database-url")
	bindFlag("database.mongo_database", "mongo-database")
}

// initConfig reads ENV variables using the same names as the server.
func initConfig() {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		slog.Error("Error binding flag", "flag", flag, "error", err)
		os.Exit(1)
	}
}
