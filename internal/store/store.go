package store

import (
	"context"

	"github.com/codefuturist/mailwatch/internal/model"
)

// Store defines the persistence interface for watcher state, the triage
// audit log, and per-account change markers.
type Store interface {
	// === Watch state ===

	// GetWatchState returns the last-seen UID for a target, or 0 when
	// the target has never been seen.
	GetWatchState(ctx context.Context, account, folder string) (uint32, error)
	SetWatchState(ctx context.Context, account, folder string, lastUID uint32) error

	// === Triage audit log ===

	RecordTriage(ctx context.Context, rec model.TriageRecord) error
	RecentTriage(ctx context.Context, limit int) ([]model.TriageRecord, error)

	// === Change markers ===

	// TouchAccount records that an account's mailboxes changed, backing
	// the best-effort resource-change signal.
	TouchAccount(ctx context.Context, account string) error

	Close() error
}
