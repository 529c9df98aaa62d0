// Package mailbox defines the mailbox-protocol boundary the pipeline
// consumes and its IMAP implementation.
package mailbox

import (
	"context"

	"github.com/codefuturist/mailwatch/internal/model"
)

// PushSession is a long-lived connection that blocks until the server
// signals new mail in the selected folder.
type PushSession interface {
	// Wait blocks until the server signals new messages, the context
	// is canceled, or the session fails.
	Wait(ctx context.Context) error

	// Close tears the session down. Safe to call more than once.
	Close() error
}

// Client is the mailbox protocol surface consumed by the watcher and
// the triage engine. Push sessions use dedicated connections so a
// blocked awaiting session cannot starve the request/response
// operations.
type Client interface {
	// OpenPush opens a dedicated await-push session on one folder.
	OpenPush(ctx context.Context, account, folder string) (PushSession, error)

	// FetchSince returns summaries for messages with UID greater than
	// lastUID, in ascending UID order.
	FetchSince(ctx context.Context, account, folder string, lastUID uint32) ([]model.MessageSummary, error)

	// AddLabel and RemoveLabel manage keyword labels on a message.
	AddLabel(ctx context.Context, account, folder string, uid uint32, label string) error
	RemoveLabel(ctx context.Context, account, folder string, uid uint32, label string) error

	// SetFlag sets or clears the flagged marker.
	SetFlag(ctx context.Context, account, folder string, uid uint32, flagged bool) error

	// MarkRead marks a message as seen.
	MarkRead(ctx context.Context, account, folder string, uid uint32) error
}
