// Package triage consumes new-message events, batches them, applies
// static hook rules, falls through to AI-assisted classification with
// rate limiting, and dispatches the resulting actions and alerts.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codefuturist/mailwatch/internal/classify"
	"github.com/codefuturist/mailwatch/internal/model"
	"github.com/codefuturist/mailwatch/internal/rate"
	"github.com/codefuturist/mailwatch/internal/rules"
)

const (
	defaultBatchDelay   = 15 * time.Second
	classifierPerWindow = 10
	classifierWindow    = time.Minute
)

// Actions is the slice of the mailbox client the engine mutates
// messages through.
type Actions interface {
	AddLabel(ctx context.Context, account, folder string, uid uint32, label string) error
	SetFlag(ctx context.Context, account, folder string, uid uint32, flagged bool) error
	MarkRead(ctx context.Context, account, folder string, uid uint32) error
}

// Alerter dispatches one alert; it must not fail.
type Alerter interface {
	Alert(ctx context.Context, p model.AlertPayload, forceDesktop bool)
}

// Scheduler creates a calendar or reminder entry, best-effort.
type Scheduler interface {
	CreateEventOrReminder(ctx context.Context, ref model.MessageRef) error
}

// ChangeNotifier receives the best-effort per-account "state changed"
// signal after a flush.
type ChangeNotifier interface {
	TouchAccount(ctx context.Context, account string) error
}

// Recorder appends to the triage audit log, best-effort.
type Recorder interface {
	RecordTriage(ctx context.Context, rec model.TriageRecord) error
}

// Config tunes the engine.
type Config struct {
	BatchDelay         time.Duration
	Preset             string
	CustomInstructions string
	AutoCalendar       bool
	AIEnabled          bool
}

// Deps are the engine's collaborators. Classifier, Calendar, Changes,
// and Recorder may be nil; the corresponding paths degrade gracefully.
type Deps struct {
	Actions    Actions
	Alerter    Alerter
	Classifier classify.Classifier
	Calendar   Scheduler
	Changes    ChangeNotifier
	Recorder   Recorder
	Rules      []model.HookRule
	Log        *slog.Logger
}

// pendingMessage is one message queued for the next flush.
type pendingMessage struct {
	account string
	folder  string
	msg     model.MessageSummary
}

// Engine batches incoming events and triages each flush.
type Engine struct {
	deps    Deps
	cfg     Config
	preset  Preset
	limiter *rate.Window
	log     *slog.Logger

	mu         sync.Mutex
	pending    []pendingMessage
	timer      *time.Timer
	timerArmed bool
	stopped    bool

	flushWG sync.WaitGroup
}

// New creates an engine. Call HandleEvent (typically via a bus
// subscription) to feed it.
func New(cfg Config, deps Deps) *Engine {
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = defaultBatchDelay
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		deps:    deps,
		cfg:     cfg,
		preset:  ResolvePreset(cfg.Preset, cfg.CustomInstructions),
		limiter: rate.NewWindow(classifierPerWindow, classifierWindow),
		log:     log,
	}
}

// Limiter exposes the classifier rate window for clock injection.
func (e *Engine) Limiter() *rate.Window { return e.limiter }

// HandleEvent queues an event's messages for the next flush. The
// debounce timer is armed on the first message of a quiet period and is
// not reset by later arrivals, so a continuous trickle still flushes on
// a fixed cadence.
func (e *Engine) HandleEvent(ev model.NewMessageEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}

	for _, m := range ev.Messages {
		e.pending = append(e.pending, pendingMessage{
			account: ev.Account,
			folder:  ev.Folder,
			msg:     m,
		})
	}

	if !e.timerArmed && len(e.pending) > 0 {
		e.timerArmed = true
		e.timer = time.AfterFunc(e.cfg.BatchDelay, func() {
			e.flushWG.Add(1)
			defer e.flushWG.Done()
			e.Flush(context.Background())
		})
	}
}

// Flush processes everything accumulated so far. It is called by the
// debounce timer and on shutdown to drain the queue.
func (e *Engine) Flush(ctx context.Context) {
	e.mu.Lock()
	batch := e.pending
	e.pending = nil
	e.timerArmed = false
	e.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	e.process(ctx, batch)
}

// Stop cancels the pending timer and waits for an in-flight flush.
// Queued messages are drained through one final flush. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	e.flushWG.Wait()
	e.Flush(context.Background())
}

// process triages one batch: static rules first, then the AI path for
// the remainder, then concurrent per-message action application.
func (e *Engine) process(ctx context.Context, batch []pendingMessage) {
	e.log.Info("triaging batch", "count", len(batch))

	var ruled []int
	var ruleFor []*model.HookRule
	var unruled []int

	for i := range batch {
		if r := rules.FirstMatch(e.deps.Rules, batch[i].msg); r != nil {
			ruled = append(ruled, i)
			ruleFor = append(ruleFor, r)
		} else {
			unruled = append(unruled, i)
		}
	}

	results, fellBack := e.classifyBatch(ctx, batch, unruled)

	var wg sync.WaitGroup
	for n, i := range ruled {
		wg.Add(1)
		go func(pm pendingMessage, rule *model.HookRule) {
			defer wg.Done()
			e.applyRule(ctx, pm, rule)
		}(batch[i], ruleFor[n])
	}
	for n, i := range unruled {
		wg.Add(1)
		if fellBack {
			go func(pm pendingMessage) {
				defer wg.Done()
				e.applyFallback(ctx, pm)
			}(batch[i])
		} else {
			go func(pm pendingMessage, res model.TriageResult) {
				defer wg.Done()
				e.applyResult(ctx, pm, res)
			}(batch[i], results[n])
		}
	}
	wg.Wait()

	e.notifyChanged(ctx, batch)
}

// classifyBatch runs the AI path for the unruled messages. It returns
// fellBack=true when the classifier was skipped or failed, in which
// case every unruled message takes the notify-only fallback.
func (e *Engine) classifyBatch(
	ctx context.Context,
	batch []pendingMessage,
	unruled []int,
) ([]model.TriageResult, bool) {
	if len(unruled) == 0 {
		return nil, false
	}

	if !e.cfg.AIEnabled || !e.preset.UseAI || e.deps.Classifier == nil {
		e.log.Debug("classifier unavailable or opted out, using fallback",
			"count", len(unruled))
		return nil, true
	}

	if !e.limiter.Allow() {
		e.log.Info("classifier rate limit reached, using fallback",
			"count", len(unruled))
		return nil, true
	}

	sub := make([]pendingMessage, len(unruled))
	for n, i := range unruled {
		sub[n] = batch[i]
	}

	text, err := e.deps.Classifier.Classify(ctx, e.preset.SystemPrompt, buildPrompt(sub))
	if err != nil {
		// Classifier failure degrades the whole sub-batch, never the
		// caller.
		e.log.Warn("classifier call failed, using fallback", "error", err)
		return nil, true
	}

	return classify.ParseResults(text, len(unruled)), false
}

// applyRule applies a matched rule's actions to one message.
func (e *Engine) applyRule(ctx context.Context, pm pendingMessage, rule *model.HookRule) {
	for _, label := range rule.Actions.Labels {
		if err := e.deps.Actions.AddLabel(ctx, pm.account, pm.folder, pm.msg.UID, label); err != nil {
			e.log.Warn("adding label failed",
				"account", pm.account, "uid", pm.msg.UID,
				"label", label, "error", err)
		}
	}
	if rule.Actions.Flag {
		if err := e.deps.Actions.SetFlag(ctx, pm.account, pm.folder, pm.msg.UID, true); err != nil {
			e.log.Warn("flagging failed",
				"account", pm.account, "uid", pm.msg.UID, "error", err)
		}
	}
	if rule.Actions.MarkRead {
		if err := e.deps.Actions.MarkRead(ctx, pm.account, pm.folder, pm.msg.UID); err != nil {
			e.log.Warn("marking read failed",
				"account", pm.account, "uid", pm.msg.UID, "error", err)
		}
	}

	priority := model.PriorityNormal
	if rule.Actions.Flag {
		priority = model.PriorityHigh
	}

	e.deps.Alerter.Alert(ctx, model.AlertPayload{
		Account:  pm.account,
		Sender:   pm.msg.From.String(),
		Subject:  pm.msg.Subject,
		Priority: priority,
		Labels:   rule.Actions.Labels,
		RuleName: rule.Name,
	}, rule.Actions.ForceAlert)

	if rule.Actions.AddToCalendar || e.cfg.AutoCalendar {
		e.scheduleCalendar(ctx, pm)
	}

	e.record(ctx, pm, model.TriageRecord{
		Path:     model.PathRule,
		RuleName: rule.Name,
		Priority: priority,
		Labels:   rule.Actions.Labels,
	})
}

// applyResult applies one classifier result to one message.
func (e *Engine) applyResult(ctx context.Context, pm pendingMessage, res model.TriageResult) {
	for _, label := range res.Labels {
		if err := e.deps.Actions.AddLabel(ctx, pm.account, pm.folder, pm.msg.UID, label); err != nil {
			e.log.Warn("adding label failed",
				"account", pm.account, "uid", pm.msg.UID,
				"label", label, "error", err)
		}
	}
	if res.Flag {
		if err := e.deps.Actions.SetFlag(ctx, pm.account, pm.folder, pm.msg.UID, true); err != nil {
			e.log.Warn("flagging failed",
				"account", pm.account, "uid", pm.msg.UID, "error", err)
		}
	}

	priority := res.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	e.deps.Alerter.Alert(ctx, model.AlertPayload{
		Account:  pm.account,
		Sender:   pm.msg.From.String(),
		Subject:  pm.msg.Subject,
		Priority: priority,
		Labels:   res.Labels,
	}, false)

	if res.AddToCalendar || e.cfg.AutoCalendar {
		e.scheduleCalendar(ctx, pm)
	}

	e.record(ctx, pm, model.TriageRecord{
		Path:     model.PathAI,
		Priority: priority,
		Labels:   res.Labels,
	})
}

// applyFallback alerts at normal priority with no mailbox mutations.
func (e *Engine) applyFallback(ctx context.Context, pm pendingMessage) {
	e.deps.Alerter.Alert(ctx, model.AlertPayload{
		Account:  pm.account,
		Sender:   pm.msg.From.String(),
		Subject:  pm.msg.Subject,
		Priority: model.PriorityNormal,
	}, false)

	e.record(ctx, pm, model.TriageRecord{
		Path:     model.PathFallback,
		Priority: model.PriorityNormal,
	})
}

// scheduleCalendar fires a detached best-effort calendar call whose
// completion is never awaited.
func (e *Engine) scheduleCalendar(ctx context.Context, pm pendingMessage) {
	if e.deps.Calendar == nil {
		return
	}

	ref := model.MessageRef{
		Account: pm.account,
		Folder:  pm.folder,
		UID:     pm.msg.UID,
		Sender:  pm.msg.From.String(),
		Subject: pm.msg.Subject,
		Date:    pm.msg.Date,
	}

	go func(ctx context.Context) {
		if err := e.deps.Calendar.CreateEventOrReminder(ctx, ref); err != nil {
			e.log.Warn("calendar entry failed",
				"account", ref.Account, "uid", ref.UID, "error", err)
		}
	}(context.WithoutCancel(ctx))
}

// notifyChanged emits one detached state-changed signal per distinct
// account in the batch; errors are swallowed.
func (e *Engine) notifyChanged(ctx context.Context, batch []pendingMessage) {
	if e.deps.Changes == nil {
		return
	}

	seen := make(map[string]bool)
	for _, pm := range batch {
		if seen[pm.account] {
			continue
		}
		seen[pm.account] = true

		account := pm.account
		go func(ctx context.Context) {
			if err := e.deps.Changes.TouchAccount(ctx, account); err != nil {
				e.log.Debug("state-change signal failed",
					"account", account, "error", err)
			}
		}(context.WithoutCancel(ctx))
	}
}

// record appends to the audit log, best-effort.
func (e *Engine) record(ctx context.Context, pm pendingMessage, rec model.TriageRecord) {
	if e.deps.Recorder == nil {
		return
	}

	rec.Account = pm.account
	rec.Folder = pm.folder
	rec.UID = pm.msg.UID
	rec.Sender = pm.msg.From.String()
	rec.Subject = pm.msg.Subject

	if err := e.deps.Recorder.RecordTriage(ctx, rec); err != nil {
		e.log.Warn("recording triage failed",
			"account", pm.account, "uid", pm.msg.UID, "error", err)
	}
}

// buildPrompt renders a numbered natural-language summary of each
// message for the classifier.
func buildPrompt(msgs []pendingMessage) string {
	var sb strings.Builder
	sb.WriteString("New messages:\n")
	for i, pm := range msgs {
		var icons []string
		if !pm.msg.Seen {
			icons = append(icons, "[unread]")
		}
		if pm.msg.Flagged {
			icons = append(icons, "[flagged]")
		}
		if pm.msg.Answered {
			icons = append(icons, "[answered]")
		}
		if pm.msg.HasAttachments {
			icons = append(icons, "[attachments]")
		}

		fmt.Fprintf(&sb, "%d. From: %s | Subject: %s | Date: %s",
			i+1, pm.msg.From.String(), pm.msg.Subject,
			pm.msg.Date.Format("2006-01-02 15:04"))
		if len(icons) > 0 {
			sb.WriteString(" | " + strings.Join(icons, " "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
