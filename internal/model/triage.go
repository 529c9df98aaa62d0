package model

import "time"

// maxLabels caps how many labels a classifier result may apply.
const maxLabels = 5

// maxActionNote caps the free-text note length from the classifier.
const maxActionNote = 200

// TriageResult is the sanitized outcome of classifying one message.
// The zero value means "no action".
type TriageResult struct {
	Priority      Priority
	Labels        []string
	Flag          bool
	ActionNote    string
	AddToCalendar bool
}

// Sanitize clamps a result to the allowed shape: a known priority, at
// most five labels (empty ones dropped), and a bounded action note.
func (r TriageResult) Sanitize() TriageResult {
	out := TriageResult{
		Priority:      ParsePriority(string(r.Priority)),
		Flag:          r.Flag,
		AddToCalendar: r.AddToCalendar,
	}

	for _, l := range r.Labels {
		if l == "" {
			continue
		}
		out.Labels = append(out.Labels, l)
		if len(out.Labels) == maxLabels {
			break
		}
	}

	note := r.ActionNote
	if len(note) > maxActionNote {
		note = note[:maxActionNote]
	}
	out.ActionNote = note

	return out
}

// TriagePath records which decision path handled a message.
type TriagePath string

const (
	PathRule     TriagePath = "rule"
	PathAI       TriagePath = "ai"
	PathFallback TriagePath = "fallback"
)

// TriageRecord is one row of the triage audit log.
type TriageRecord struct {
	ID        string
	Account   string
	Folder    string
	UID       uint32
	Sender    string
	Subject   string
	Path      TriagePath
	RuleName  string
	Priority  Priority
	Labels    []string
	CreatedAt time.Time
}
