package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/codefuturist/mailwatch/internal/model"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c[0] == name {
			n++
		}
	}
	return n
}

func newTestNotifier(cfg model.AlertConfig) (*Notifier, *fakeRunner) {
	n := New(cfg, slogDiscard())
	n.Platform = "linux"
	runner := &fakeRunner{}
	n.SetRunner(runner)
	return n, runner
}

func TestAlertDesktopThreshold(t *testing.T) {
	tests := []struct {
		name     string
		priority model.Priority
		force    bool
		want     bool
	}{
		{name: "above-threshold", priority: model.PriorityUrgent, want: true},
		{name: "at-threshold", priority: model.PriorityHigh, want: true},
		{name: "below-threshold", priority: model.PriorityNormal, want: false},
		{name: "below-but-forced", priority: model.PriorityLow, force: true, want: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			n, runner := newTestNotifier(model.AlertConfig{
				Desktop:     true,
				MinPriority: "high",
			})

			n.Alert(context.Background(), model.AlertPayload{
				Account:  "work",
				Sender:   "a@b.com",
				Subject:  "hi",
				Priority: tc.priority,
			}, tc.force)

			got := runner.count("notify-send") == 1
			if got != tc.want {
				t.Fatalf("desktop fired = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAlertDesktopDisabled(t *testing.T) {
	n, runner := newTestNotifier(model.AlertConfig{Desktop: false})

	n.Alert(context.Background(), model.AlertPayload{
		Priority: model.PriorityUrgent,
	}, true)

	if len(runner.calls) != 0 {
		t.Fatalf("expected no native calls, got %v", runner.calls)
	}
}

func TestAlertSoundOnlyForUrgent(t *testing.T) {
	n, runner := newTestNotifier(model.AlertConfig{
		Desktop:     true,
		MinPriority: "low",
		Sound:       true,
	})

	n.Alert(context.Background(), model.AlertPayload{Priority: model.PriorityHigh}, false)
	if runner.count("paplay") != 0 {
		t.Fatal("sound must not play below urgent")
	}

	n.Alert(context.Background(), model.AlertPayload{Priority: model.PriorityUrgent}, false)
	if runner.count("paplay") != 1 {
		t.Fatal("sound should play for urgent desktop notification")
	}
}

func TestDesktopCapDropsExcess(t *testing.T) {
	n, runner := newTestNotifier(model.AlertConfig{
		Desktop:     true,
		MinPriority: "low",
	})

	now := time.Unix(1700000000, 0)
	n.Cap().Clock = func() time.Time { return now }

	for i := 0; i < 6; i++ {
		n.Alert(context.Background(), model.AlertPayload{
			Priority: model.PriorityHigh,
		}, true)
	}

	if got := runner.count("notify-send"); got != 5 {
		t.Fatalf("native invocations = %d, want 5", got)
	}

	// The next window opens the gate again.
	now = now.Add(61 * time.Second)
	n.Alert(context.Background(), model.AlertPayload{Priority: model.PriorityHigh}, true)
	if got := runner.count("notify-send"); got != 6 {
		t.Fatalf("native invocations after window reset = %d, want 6", got)
	}
}

func TestAlertNeverPanicsOnRunnerFailure(t *testing.T) {
	n, runner := newTestNotifier(model.AlertConfig{
		Desktop:     true,
		MinPriority: "low",
		Sound:       true,
	})
	runner.err = context.DeadlineExceeded

	n.Alert(context.Background(), model.AlertPayload{Priority: model.PriorityUrgent}, true)
}

func TestUnsupportedPlatformDegradesToLog(t *testing.T) {
	n, runner := newTestNotifier(model.AlertConfig{
		Desktop:     true,
		MinPriority: "low",
	})
	n.Platform = "plan9"

	n.Alert(context.Background(), model.AlertPayload{Priority: model.PriorityUrgent}, true)

	if len(runner.calls) != 0 {
		t.Fatalf("expected no native calls on unsupported platform, got %v", runner.calls)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello world", want: "hello world"},
		{name: "metachars", in: `rm -rf; echo "$(pwd)" | cat`, want: "rm -rf echo (pwd)  cat"},
		{name: "control-chars", in: "a\x00b\nc\x1bd", want: "abcd"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'a'
	}
	if got := Sanitize(string(long)); len(got) != maxArgLen {
		t.Fatalf("sanitized length = %d, want %d", len(got), maxArgLen)
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
