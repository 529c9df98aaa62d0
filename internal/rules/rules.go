// Package rules evaluates the configured hook rules against incoming
// message metadata. Matching is first-match-wins in configuration order.
package rules

import (
	"strings"

	"github.com/codefuturist/mailwatch/internal/model"
)

// MatchPattern reports whether value matches pattern. Patterns are
// case-insensitive, `*` matches any run of characters, and `|` separates
// top-level alternatives.
func MatchPattern(pattern, value string) bool {
	if pattern == "" {
		return false
	}
	value = strings.ToLower(value)
	for _, alt := range strings.Split(strings.ToLower(pattern), "|") {
		if globMatch(alt, value) {
			return true
		}
	}
	return false
}

// globMatch matches a `*`-wildcard pattern against the full string.
func globMatch(pattern, s string) bool {
	var pi, si int
	star := -1
	backtrack := 0

	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			backtrack = si
			pi++
		case star >= 0:
			backtrack++
			si = backtrack
			pi = star + 1
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// Matches reports whether rule matches msg: every specified condition
// must match its field, and at least one condition must be specified.
func Matches(rule model.HookRule, msg model.MessageSummary) bool {
	if rule.Match.Empty() {
		return false
	}

	if rule.Match.From != "" {
		from := msg.From.Email
		if from == "" {
			from = msg.From.Name
		}
		if !MatchPattern(rule.Match.From, from) {
			return false
		}
	}

	if rule.Match.To != "" {
		matched := false
		for _, to := range msg.To {
			if MatchPattern(rule.Match.To, to) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if rule.Match.Subject != "" && !MatchPattern(rule.Match.Subject, msg.Subject) {
		return false
	}

	return true
}

// FirstMatch returns the first rule matching msg, or nil.
func FirstMatch(rules []model.HookRule, msg model.MessageSummary) *model.HookRule {
	for i := range rules {
		if Matches(rules[i], msg) {
			return &rules[i]
		}
	}
	return nil
}
