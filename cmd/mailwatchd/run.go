package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codefuturist/mailwatch/internal/bus"
	"github.com/codefuturist/mailwatch/internal/calendar"
	"github.com/codefuturist/mailwatch/internal/classify"
	"github.com/codefuturist/mailwatch/internal/credential"
	"github.com/codefuturist/mailwatch/internal/mailbox"
	"github.com/codefuturist/mailwatch/internal/notify"
	"github.com/codefuturist/mailwatch/internal/store"
	"github.com/codefuturist/mailwatch/internal/triage"
	"github.com/codefuturist/mailwatch/internal/watch"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watcher and triage pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func runDaemon() error {
	log := newLogger(cfg.LogLevel)

	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("creating state dir %s: %w", cfg.StateDir, err)
	}

	db, err := store.NewSQLiteStore(filepath.Join(cfg.StateDir, "mailwatch.db"))
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer db.Close()

	client := mailbox.NewIMAPClient(cfg.Accounts, func(account string) (string, error) {
		return credential.Get("imap:" + account)
	})

	var classifier classify.Classifier
	if cfg.AI.Enabled {
		apiKey, err := credential.Get("anthropic_api_key")
		if err != nil {
			log.Warn("classifier API key unavailable, AI path disabled", "error", err)
		} else {
			classifier = classify.NewAnthropic(apiKey, cfg.AI.Model, cfg.AI.MaxTokens)
		}
	}

	notifier := notify.New(cfg.Alerts, log)
	scheduler := calendar.NewFileScheduler(cfg.StateDir, log)

	engine := triage.New(triage.Config{
		BatchDelay:         time.Duration(cfg.Triage.BatchDelaySec) * time.Second,
		Preset:             cfg.Triage.Preset,
		CustomInstructions: cfg.Triage.CustomInstructions,
		AutoCalendar:       cfg.Triage.AutoCalendar,
		AIEnabled:          cfg.AI.Enabled,
	}, triage.Deps{
		Actions:    client,
		Alerter:    notifier,
		Classifier: classifier,
		Calendar:   scheduler,
		Changes:    db,
		Recorder:   db,
		Rules:      cfg.Rules,
		Log:        log,
	})

	b := bus.New()
	b.Subscribe(engine.HandleEvent)

	watcher := watch.New(client, b, db, log)
	watcher.Start(context.Background(), cfg.Accounts)

	log.Info("mailwatchd started",
		"accounts", len(cfg.Accounts), "rules", len(cfg.Rules),
		"preset", cfg.Triage.Preset)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			// SIGHUP dumps watcher status to the log.
			for key, st := range watcher.Status() {
				log.Info("watch status", "target", key,
					"state", st.State.String(), "last_uid", st.LastSeenUID,
					"last_error", st.LastError)
			}
			continue
		}
		break
	}

	log.Info("shutting down")
	watcher.Stop()
	engine.Stop()
	return nil
}

// newLogger builds the daemon's slog logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
}
