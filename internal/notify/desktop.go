package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/codefuturist/mailwatch/internal/model"
)

// maxArgLen caps the length of any string handed to a native command.
const maxArgLen = 200

// execRunner runs native commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// sendDesktop dispatches a banner notification for the current
// platform, plus a sound for the highest tier. Unsupported platforms
// degrade to log-only.
func (n *Notifier) sendDesktop(ctx context.Context, p model.AlertPayload) {
	platform := n.Platform
	if platform == "" {
		platform = runtime.GOOS
	}

	title := Sanitize(fmt.Sprintf("Mail: %s", p.Account))
	body := Sanitize(fmt.Sprintf("%s: %s", p.Sender, p.Subject))

	var err error
	switch platform {
	case "darwin":
		script := fmt.Sprintf(
			"display notification %q with title %q", body, title,
		)
		err = n.runner.Run(ctx, "osascript", "-e", script)
	case "linux":
		urgency := "normal"
		if p.Priority == model.PriorityUrgent {
			urgency = "critical"
		}
		err = n.runner.Run(ctx, "notify-send", "-u", urgency, title, body)
	default:
		n.log.Info("desktop notifications unsupported on platform, logged only",
			"platform", platform)
		return
	}
	if err != nil {
		n.log.Warn("desktop notification failed", "error", err)
		return
	}

	if n.cfg.Sound && p.Priority == model.PriorityUrgent {
		n.playSound(ctx, platform)
	}
}

// playSound plays the alert sound; failures are logged and dropped.
func (n *Notifier) playSound(ctx context.Context, platform string) {
	var err error
	switch platform {
	case "darwin":
		err = n.runner.Run(ctx, "afplay", "/System/Library/Sounds/Glass.aiff")
	case "linux":
		err = n.runner.Run(ctx, "paplay",
			"/usr/share/sounds/freedesktop/stereo/message.oga")
	default:
		return
	}
	if err != nil {
		n.log.Debug("alert sound failed", "error", err)
	}
}

// Sanitize strips shell metacharacters and control characters from a
// string bound for a native command, and caps its length.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		switch r {
		case '`', '$', '\\', '"', '\'', ';', '&', '|', '<', '>':
			continue
		}
		b.WriteRune(r)
		if b.Len() >= maxArgLen {
			break
		}
	}
	return b.String()
}
