// Package notify dispatches urgency-routed alerts through the log,
// desktop notifications, sound, and an optional webhook.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/codefuturist/mailwatch/internal/model"
	"github.com/codefuturist/mailwatch/internal/rate"
)

const (
	desktopCapPerWindow = 5
	desktopCapWindow    = time.Minute
	webhookTimeout      = 10 * time.Second
)

// CommandRunner invokes a native OS command. Injectable for tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Notifier fans a single alert out to the configured channels. Alert
// never returns an error; every failure path logs and continues.
type Notifier struct {
	log    *slog.Logger
	cfg    model.AlertConfig
	cap    *rate.Window
	runner CommandRunner
	client *http.Client

	// Platform overrides runtime.GOOS when non-empty (tests).
	Platform string

	// Now stamps webhook payloads; defaults to time.Now.
	Now func() time.Time
}

// New creates a notifier for the given alert configuration.
func New(cfg model.AlertConfig, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		log:    log,
		cfg:    cfg,
		cap:    rate.NewWindow(desktopCapPerWindow, desktopCapWindow),
		runner: execRunner{},
		client: &http.Client{Timeout: webhookTimeout},
		Now:    time.Now,
	}
}

// SetRunner replaces the native command runner.
func (n *Notifier) SetRunner(r CommandRunner) { n.runner = r }

// Cap exposes the desktop notification counter for clock injection.
func (n *Notifier) Cap() *rate.Window { return n.cap }

// Alert routes one alert payload. It always logs; desktop, sound, and
// webhook channels fire only when their gates pass.
func (n *Notifier) Alert(ctx context.Context, p model.AlertPayload, forceDesktop bool) {
	n.logAlert(p)

	wantDesktop := n.cfg.Desktop &&
		(forceDesktop || p.Priority.AtLeast(model.ParsePriority(n.cfg.MinPriority)))
	if wantDesktop {
		if n.cap.Allow() {
			n.sendDesktop(ctx, p)
		} else {
			n.log.Debug("desktop notification cap reached, dropping",
				"account", p.Account, "subject", p.Subject)
		}
	}

	if n.webhookWants(p.Priority) {
		n.sendWebhook(ctx, p)
	}
}

// logAlert writes the alert at a level derived from its priority.
func (n *Notifier) logAlert(p model.AlertPayload) {
	args := []any{
		"account", p.Account,
		"sender", p.Sender,
		"subject", p.Subject,
		"priority", string(p.Priority),
	}
	if len(p.Labels) > 0 {
		args = append(args, "labels", p.Labels)
	}
	if p.RuleName != "" {
		args = append(args, "rule", p.RuleName)
	}

	switch p.Priority {
	case model.PriorityUrgent:
		n.log.Error("mail alert", args...)
	case model.PriorityHigh:
		n.log.Warn("mail alert", args...)
	case model.PriorityLow:
		n.log.Debug("mail alert", args...)
	default:
		n.log.Info("mail alert", args...)
	}
}

// webhookWants reports whether the webhook channel is configured for
// this priority.
func (n *Notifier) webhookWants(p model.Priority) bool {
	if n.cfg.WebhookURL == "" {
		return false
	}
	for _, ev := range n.cfg.WebhookEvents {
		if model.Priority(ev) == p {
			return true
		}
	}
	return false
}
