package classify

import (
	"encoding/json"
	"strings"

	"github.com/codefuturist/mailwatch/internal/model"
)

// resultJSON is the wire shape of one classifier entry.
type resultJSON struct {
	Priority      string   `json:"priority"`
	Labels        []string `json:"labels"`
	Flag          bool     `json:"flag"`
	ActionNote    string   `json:"action_note"`
	AddToCalendar bool     `json:"add_to_calendar"`
}

// ParseResults turns a raw classifier response into exactly count
// sanitized results. Accepted shapes: a JSON array (one entry per
// message; extra entries ignored, missing entries default to empty) or
// a single JSON object broadcast to a singleton batch. Surrounding
// code fences are stripped first. Any parse failure yields an
// all-empty result set rather than an error.
func ParseResults(raw string, count int) []model.TriageResult {
	out := make([]model.TriageResult, count)

	text := StripCodeFence(raw)
	if text == "" {
		return out
	}

	var entries []resultJSON
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		var single resultJSON
		if err := json.Unmarshal([]byte(text), &single); err != nil {
			return out
		}
		entries = []resultJSON{single}
	}

	for i := 0; i < count && i < len(entries); i++ {
		out[i] = model.TriageResult{
			Priority:      model.Priority(entries[i].Priority),
			Labels:        entries[i].Labels,
			Flag:          entries[i].Flag,
			ActionNote:    entries[i].ActionNote,
			AddToCalendar: entries[i].AddToCalendar,
		}.Sanitize()
	}

	return out
}

// StripCodeFence removes surrounding markdown code-fence markers from a
// response, tolerating a language tag on the opening fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line (e.g. ```json).
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
