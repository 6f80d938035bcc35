package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mailflow/pkg/config"
	"mailflow/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mailflow",
	Short: "Fetch email into Postgres and run rule workflows against it",
	Long: "mailflow ingests messages from a mail provider into a relational " +
		"store and applies rule-based workflows (filter and act) to them.",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfg = config.Load()
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
