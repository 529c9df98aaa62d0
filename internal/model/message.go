package model

import "time"

// Address is a parsed sender or recipient.
type Address struct {
	Name  string
	Email string
}

// String renders the address in "Name <email>" form, or just the email
// when no display name is known.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// MessageSummary holds the minimal metadata the triage pipeline reads.
type MessageSummary struct {
	UID            uint32
	From           Address
	To             []string
	Subject        string
	Date           time.Time
	Seen           bool
	Flagged        bool
	Answered       bool
	HasAttachments bool
}

// NewMessageEvent is emitted by a watch target when new messages arrive.
// It is consumed once by the triage engine and never persisted.
type NewMessageEvent struct {
	Account  string
	Folder   string
	Messages []MessageSummary
}

// MessageRef identifies a single message for collaborators such as the
// calendar scheduler.
type MessageRef struct {
	Account string
	Folder  string
	UID     uint32
	Sender  string
	Subject string
	Date    time.Time
}
