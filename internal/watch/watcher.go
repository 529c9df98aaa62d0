// Package watch maintains one persistent await-push session per
// configured (account, folder) target and publishes new-message events.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codefuturist/mailwatch/internal/bus"
	"github.com/codefuturist/mailwatch/internal/mailbox"
	"github.com/codefuturist/mailwatch/internal/model"
)

// State is a watch target's connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Awaiting
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Awaiting:
		return "awaiting"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = time.Minute
)

// StateStore persists last-seen UIDs across restarts. Persistence is
// best-effort; the watcher works without it.
type StateStore interface {
	GetWatchState(ctx context.Context, account, folder string) (uint32, error)
	SetWatchState(ctx context.Context, account, folder string, lastUID uint32) error
}

// TargetStatus is the externally visible state of one watch target.
type TargetStatus struct {
	Account     string
	Folder      string
	State       State
	LastSeenUID uint32
	LastError   string
}

// target holds the mutable state of one (account, folder) pair. It is
// mutated only by its own watch loop; the mutex guards Status reads.
type target struct {
	account string
	folder  string

	mu       sync.Mutex
	state    State
	lastSeen uint32
	lastErr  error
}

func (t *target) setState(s State, err error) {
	t.mu.Lock()
	t.state = s
	t.lastErr = err
	t.mu.Unlock()
}

func (t *target) status() TargetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := TargetStatus{
		Account:     t.account,
		Folder:      t.folder,
		State:       t.state,
		LastSeenUID: t.lastSeen,
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	return st
}

// Watcher runs the watch loops and publishes events on the bus.
type Watcher struct {
	client mailbox.Client
	bus    *bus.Bus
	states StateStore
	log    *slog.Logger

	// Backoff bounds for the reconnect loop.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	mu      sync.Mutex
	targets map[string]*target
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a watcher. states may be nil to disable persistence.
func New(client mailbox.Client, b *bus.Bus, states StateStore, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		client:         client,
		bus:            b,
		states:         states,
		log:            log,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
		targets:        make(map[string]*target),
	}
}

// Start opens one await-push loop per configured (account, folder).
// Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context, accounts []model.AccountConfig) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true

	ctx, w.cancel = context.WithCancel(ctx)

	for _, acc := range accounts {
		for _, folder := range acc.Folders {
			t := &target{account: acc.Name, folder: folder}
			w.targets[targetKey(acc.Name, folder)] = t

			if w.states != nil {
				if last, err := w.states.GetWatchState(ctx, acc.Name, folder); err == nil {
					t.lastSeen = last
				} else {
					w.log.Warn("loading watch state",
						"account", acc.Name, "folder", folder, "error", err)
				}
			}

			w.wg.Add(1)
			go func(t *target) {
				defer w.wg.Done()
				w.run(ctx, t)
			}(t)
		}
	}
	w.mu.Unlock()
}

// Stop cancels all sessions and waits for the loops to exit. It is
// idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// Status returns the connection state of every target, keyed by
// "account/folder".
func (w *Watcher) Status() map[string]TargetStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]TargetStatus, len(w.targets))
	for key, t := range w.targets {
		out[key] = t.status()
	}
	return out
}

// run drives one target's state machine until the context is canceled:
// Connecting -> Awaiting -> (signal) fetch -> Awaiting, any failure ->
// Reconnecting with capped exponential backoff.
func (w *Watcher) run(ctx context.Context, t *target) {
	defer t.setState(Disconnected, nil)

	delay := w.InitialBackoff

	for ctx.Err() == nil {
		t.setState(Connecting, nil)

		sess, err := w.client.OpenPush(ctx, t.account, t.folder)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("push session failed to open",
				"account", t.account, "folder", t.folder,
				"retry_in", delay, "error", err)
			t.setState(Reconnecting, err)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextBackoff(delay, w.MaxBackoff)
			continue
		}

		// A session that opened successfully resets the backoff.
		delay = w.InitialBackoff

		err = w.await(ctx, t, sess)
		_ = sess.Close()
		if ctx.Err() != nil {
			return
		}

		w.log.Warn("push session dropped",
			"account", t.account, "folder", t.folder,
			"retry_in", delay, "error", err)
		t.setState(Reconnecting, err)
		if !sleepCtx(ctx, delay) {
			return
		}
		delay = nextBackoff(delay, w.MaxBackoff)
	}
}

// await blocks on the push session, fetching and publishing on each
// signal, until the session or the context fails.
func (w *Watcher) await(ctx context.Context, t *target, sess mailbox.PushSession) error {
	for {
		t.setState(Awaiting, nil)

		if err := sess.Wait(ctx); err != nil {
			return err
		}

		msgs, err := w.client.FetchSince(ctx, t.account, t.folder, t.lastSeen)
		if err != nil {
			return fmt.Errorf("fetching new messages: %w", err)
		}
		if len(msgs) == 0 {
			continue
		}

		w.bus.Publish(model.NewMessageEvent{
			Account:  t.account,
			Folder:   t.folder,
			Messages: msgs,
		})

		// Advance only after the event is on the bus: a crash between
		// fetch and publish re-delivers on restart (at-least-once).
		var maxUID uint32
		for _, m := range msgs {
			if m.UID > maxUID {
				maxUID = m.UID
			}
		}
		t.mu.Lock()
		t.lastSeen = maxUID
		t.mu.Unlock()

		if w.states != nil {
			if err := w.states.SetWatchState(ctx, t.account, t.folder, maxUID); err != nil {
				w.log.Warn("persisting watch state",
					"account", t.account, "folder", t.folder, "error", err)
			}
		}

		w.log.Info("new messages",
			"account", t.account, "folder", t.folder,
			"count", len(msgs), "last_uid", maxUID)
	}
}

// sleepCtx sleeps for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles the delay up to the cap.
func nextBackoff(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}

func targetKey(account, folder string) string {
	return account + "/" + folder
}
