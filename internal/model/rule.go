package model

// RuleMatch holds the optional match conditions of a hook rule. Each
// non-empty field is a case-insensitive glob pattern with `*` as wildcard
// and `|` as top-level alternation.
type RuleMatch struct {
	From    string `mapstructure:"from" yaml:"from"`
	To      string `mapstructure:"to" yaml:"to"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// Empty reports whether the rule specifies no conditions at all.
// A rule without conditions never matches.
func (m RuleMatch) Empty() bool {
	return m.From == "" && m.To == "" && m.Subject == ""
}

// RuleActions holds the actions applied when a hook rule matches.
type RuleActions struct {
	Labels        []string `mapstructure:"labels" yaml:"labels"`
	Flag          bool     `mapstructure:"flag" yaml:"flag"`
	MarkRead      bool     `mapstructure:"mark_read" yaml:"mark_read"`
	ForceAlert    bool     `mapstructure:"force_alert" yaml:"force_alert"`
	AddToCalendar bool     `mapstructure:"add_to_calendar" yaml:"add_to_calendar"`
}

// HookRule is a configured static triage rule. Rules are evaluated in
// configuration order; the first match per message wins.
type HookRule struct {
	Name    string      `mapstructure:"name" yaml:"name"`
	Match   RuleMatch   `mapstructure:"match" yaml:"match"`
	Actions RuleActions `mapstructure:"actions" yaml:"actions"`
}

// AlertPayload is handed to the notifier for a single triaged message.
type AlertPayload struct {
	Account  string
	Sender   string
	Subject  string
	Priority Priority
	Labels   []string
	RuleName string
}
