package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codefuturist/mailwatch/internal/model"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string
	cfg        *model.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "mailwatchd",
	Short: "mailwatchd - mailbox watching and automated triage daemon",
	Long: "Mailwatch holds IMAP IDLE sessions on configured mailboxes, " +
		"triages new mail with hook rules and an AI classifier, and " +
		"dispatches alerts to the log, desktop, and webhooks.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		path := configPath
		if path == "" {
			path = model.DefaultConfigPath()
		}

		var err error
		cfg, err = model.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mailwatchd version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: ~/.config/mailwatch/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
