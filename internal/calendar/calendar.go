// Package calendar is the best-effort reminder collaborator. Created
// entries are tracked in a JSON state file shared across process
// instances, guarded by the lock primitive.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codefuturist/mailwatch/internal/lockfile"
	"github.com/codefuturist/mailwatch/internal/model"
)

// Scheduler creates a calendar or reminder entry for a message.
type Scheduler interface {
	CreateEventOrReminder(ctx context.Context, ref model.MessageRef) error
}

// entry is one tracked reminder in the state file.
type entry struct {
	Key       string    `json:"key"`
	Account   string    `json:"account"`
	Folder    string    `json:"folder"`
	UID       uint32    `json:"uid"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Due       time.Time `json:"due"`
	CreatedAt time.Time `json:"created_at"`
}

// stateFile is the on-disk document guarded by the lock.
type stateFile struct {
	Entries []entry `json:"entries"`
}

// FileScheduler records reminders in a JSON file, deduplicating by
// message identity so repeated triage of the same message creates one
// entry.
type FileScheduler struct {
	path string
	lock *lockfile.Lock
	log  *slog.Logger

	// Now stamps new entries; defaults to time.Now.
	Now func() time.Time
}

// NewFileScheduler creates a scheduler persisting to dir/reminders.json.
func NewFileScheduler(dir string, log *slog.Logger) *FileScheduler {
	if log == nil {
		log = slog.Default()
	}
	path := filepath.Join(dir, "reminders.json")
	return &FileScheduler{
		path: path,
		lock: lockfile.New(path+".lock", log),
		log:  log,
		Now:  time.Now,
	}
}

// CreateEventOrReminder appends a reminder entry for ref under the
// state-file lock. Already-tracked messages are a no-op.
func (s *FileScheduler) CreateEventOrReminder(
	_ context.Context,
	ref model.MessageRef,
) error {
	key := fmt.Sprintf("%s/%s/%d", ref.Account, ref.Folder, ref.UID)

	return s.lock.WithLock(func() error {
		state, err := s.read()
		if err != nil {
			return err
		}

		for _, e := range state.Entries {
			if e.Key == key {
				return nil
			}
		}

		due := ref.Date
		if due.IsZero() {
			due = s.Now()
		}

		state.Entries = append(state.Entries, entry{
			Key:       key,
			Account:   ref.Account,
			Folder:    ref.Folder,
			UID:       ref.UID,
			Sender:    ref.Sender,
			Subject:   ref.Subject,
			Due:       due,
			CreatedAt: s.Now(),
		})

		s.log.Info("reminder created",
			"account", ref.Account, "subject", ref.Subject)
		return s.write(state)
	})
}

// read loads the state file, treating a missing file as empty.
func (s *FileScheduler) read() (*stateFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &stateFile{}, nil
		}
		return nil, fmt.Errorf("reading reminder state %s: %w", s.path, err)
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt state file should not wedge reminders forever.
		s.log.Warn("reminder state corrupt, resetting", "path", s.path)
		return &stateFile{}, nil
	}
	return &state, nil
}

// write persists the state file atomically via a temp file rename.
func (s *FileScheduler) write(state *stateFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding reminder state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing reminder state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing reminder state: %w", err)
	}
	return nil
}

var _ Scheduler = (*FileScheduler)(nil)
