package triage

import "strings"

// Preset bundles a classifier system prompt with an AI opt-in bit.
type Preset struct {
	Name         string
	SystemPrompt string
	UseAI        bool
}

const responseFormat = `Respond with a JSON array, one object per message, in order. Each object may have:
  "priority": "urgent" | "high" | "normal" | "low"
  "labels": up to 5 short label strings
  "flag": true to flag the message
  "action_note": a short note (max 200 chars)
  "add_to_calendar": true if the message describes an event or deadline
Omit fields for "no action". Respond with JSON only, no prose.`

var presets = map[string]Preset{
	"default": {
		Name: "default",
		SystemPrompt: "You triage incoming email. For each message decide its " +
			"urgency, useful labels, and whether it needs a flag or a calendar " +
			"entry. Bias toward no action for newsletters and automated mail.\n\n" +
			responseFormat,
		UseAI: true,
	},
	"work": {
		Name: "work",
		SystemPrompt: "You triage a work inbox. Escalate messages from " +
			"colleagues, customers, and build or incident systems; mark " +
			"meeting invitations and deadlines for the calendar. Newsletters " +
			"and promotions are low priority.\n\n" +
			responseFormat,
		UseAI: true,
	},
	// quiet opts out of the classifier entirely: unmatched messages get
	// the notify-only fallback.
	"quiet": {
		Name:  "quiet",
		UseAI: false,
	},
}

// ResolvePreset returns the named preset, with optional custom
// instructions appended to its system prompt. Unknown names resolve to
// the default preset.
func ResolvePreset(name, customInstructions string) Preset {
	p, ok := presets[name]
	if !ok {
		p = presets["default"]
	}
	if custom := strings.TrimSpace(customInstructions); custom != "" && p.UseAI {
		p.SystemPrompt += "\n\nAdditional instructions:\n" + custom
	}
	return p
}

// KnownPreset reports whether name is a configured preset.
func KnownPreset(name string) bool {
	_, ok := presets[name]
	return ok
}
