package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/codefuturist/mailwatch/internal/model"
	"github.com/codefuturist/mailwatch/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	normalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured targets and recent triage activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("Watch targets"))
		if len(cfg.Accounts) == 0 {
			fmt.Println(mutedStyle.Render("  none configured"))
		}
		for _, acc := range cfg.Accounts {
			for _, folder := range acc.Folders {
				fmt.Printf("  %s/%s %s\n", acc.Name, folder,
					mutedStyle.Render(fmt.Sprintf("(%s@%s)", acc.Username, acc.Host)))
			}
		}

		fmt.Println()
		fmt.Println(headerStyle.Render("Rules"))
		if len(cfg.Rules) == 0 {
			fmt.Println(mutedStyle.Render("  none configured"))
		}
		for _, r := range cfg.Rules {
			fmt.Printf("  %s %s\n", r.Name, mutedStyle.Render(describeRule(r)))
		}

		db, err := store.NewSQLiteStore(filepath.Join(cfg.StateDir, "mailwatch.db"))
		if err != nil {
			// No database yet means the daemon never ran; not an error.
			return nil
		}
		defer db.Close()

		records, err := db.RecentTriage(context.Background(), 15)
		if err != nil || len(records) == 0 {
			return nil
		}

		fmt.Println()
		fmt.Println(headerStyle.Render("Recent triage"))
		for _, rec := range records {
			fmt.Printf("  %s %s %s %s\n",
				priorityDot(rec.Priority),
				rec.CreatedAt.Local().Format(time.DateTime),
				rec.Subject,
				mutedStyle.Render(fmt.Sprintf("(%s, %s)", rec.Account, rec.Path)))
		}
		return nil
	},
}

// describeRule renders a rule's conditions compactly.
func describeRule(r model.HookRule) string {
	var parts []string
	if r.Match.From != "" {
		parts = append(parts, "from="+r.Match.From)
	}
	if r.Match.To != "" {
		parts = append(parts, "to="+r.Match.To)
	}
	if r.Match.Subject != "" {
		parts = append(parts, "subject="+r.Match.Subject)
	}
	if len(parts) == 0 {
		return "(no conditions, never matches)"
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// priorityDot returns a colored marker for a priority tier.
func priorityDot(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return urgentStyle.Render("●")
	case model.PriorityHigh:
		return highStyle.Render("●")
	case model.PriorityLow:
		return mutedStyle.Render("○")
	default:
		return normalStyle.Render("●")
	}
}
