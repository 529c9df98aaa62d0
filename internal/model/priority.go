package model

// Priority is the urgency tier assigned to a triaged message.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ParsePriority maps a string to a Priority, defaulting to normal for
// anything unrecognized.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return Priority(s)
	default:
		return PriorityNormal
	}
}

// Level returns a comparable rank: higher means more urgent.
func (p Priority) Level() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// AtLeast reports whether p is as urgent as threshold or more so.
func (p Priority) AtLeast(threshold Priority) bool {
	return p.Level() >= threshold.Level()
}
