package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codefuturist/mailwatch/internal/notify"
	"github.com/codefuturist/mailwatch/internal/triage"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		var problems []string

		if len(cfg.Accounts) == 0 {
			problems = append(problems, "no accounts configured")
		}
		for _, acc := range cfg.Accounts {
			if acc.Name == "" {
				problems = append(problems, "account with empty name")
			}
			if acc.Host == "" {
				problems = append(problems,
					fmt.Sprintf("account %q has no host", acc.Name))
			}
		}

		for _, r := range cfg.Rules {
			if r.Name == "" {
				problems = append(problems, "rule with empty name")
			}
			if r.Match.Empty() {
				problems = append(problems,
					fmt.Sprintf("rule %q has no conditions and will never match", r.Name))
			}
		}

		if !triage.KnownPreset(cfg.Triage.Preset) {
			problems = append(problems,
				fmt.Sprintf("unknown preset %q (falls back to default)", cfg.Triage.Preset))
		}

		if cfg.Alerts.WebhookURL != "" {
			if err := notify.ValidateWebhookURL(cfg.Alerts.WebhookURL); err != nil {
				problems = append(problems,
					fmt.Sprintf("webhook URL rejected: %v", err))
			}
		}

		if len(problems) == 0 {
			fmt.Println("configuration OK")
			return nil
		}

		for _, p := range problems {
			fmt.Println("problem:", p)
		}
		return fmt.Errorf("%d configuration problem(s)", len(problems))
	},
}
