package rules

import (
	"testing"

	"github.com/codefuturist/mailwatch/internal/model"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		value   string
		want    bool
	}{
		{name: "exact", pattern: "alice@example.com", value: "alice@example.com", want: true},
		{name: "case-insensitive", pattern: "Alice@Example.COM", value: "alice@example.com", want: true},
		{name: "wildcard-prefix", pattern: "*@github.com", value: "ci-bot@github.com", want: true},
		{name: "wildcard-no-match", pattern: "*@github.com", value: "foo@githubx.com", want: false},
		{name: "wildcard-middle", pattern: "build-*@ci.example.com", value: "build-42@ci.example.com", want: true},
		{name: "wildcard-requires-full-match", pattern: "invoice", value: "invoice overdue", want: false},
		{name: "wildcard-both-sides", pattern: "*invoice*", value: "Your invoice is ready", want: true},
		{name: "alternation-first", pattern: "*@a.com|*@b.com", value: "x@a.com", want: true},
		{name: "alternation-second", pattern: "*@a.com|*@b.com", value: "x@b.com", want: true},
		{name: "alternation-neither", pattern: "*@a.com|*@b.com", value: "x@c.com", want: false},
		{name: "star-only", pattern: "*", value: "anything at all", want: true},
		{name: "empty-pattern", pattern: "", value: "anything", want: false},
		{name: "consecutive-stars", pattern: "**@x.com", value: "a@x.com", want: true},
		{name: "empty-value-star", pattern: "*", value: "", want: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchPattern(tc.pattern, tc.value); got != tc.want {
				t.Fatalf("MatchPattern(%q, %q) = %v, want %v",
					tc.pattern, tc.value, got, tc.want)
			}
		})
	}
}

func TestMatchesRequiresAtLeastOneCondition(t *testing.T) {
	rule := model.HookRule{Name: "empty"}
	msg := model.MessageSummary{
		From:    model.Address{Email: "anyone@example.com"},
		Subject: "anything",
	}

	if Matches(rule, msg) {
		t.Fatal("rule with no conditions must never match")
	}
}

func TestMatchesAllConditionsMustHold(t *testing.T) {
	rule := model.HookRule{
		Name: "both",
		Match: model.RuleMatch{
			From:    "*@github.com",
			Subject: "*failed*",
		},
	}

	match := model.MessageSummary{
		From:    model.Address{Email: "ci-bot@github.com"},
		Subject: "Build failed on main",
	}
	if !Matches(rule, match) {
		t.Fatal("expected match when every condition holds")
	}

	wrongSubject := model.MessageSummary{
		From:    model.Address{Email: "ci-bot@github.com"},
		Subject: "Build passed",
	}
	if Matches(rule, wrongSubject) {
		t.Fatal("expected no match when one condition fails")
	}
}

func TestMatchesToField(t *testing.T) {
	rule := model.HookRule{
		Name:  "to-team",
		Match: model.RuleMatch{To: "team@example.com"},
	}

	msg := model.MessageSummary{
		From: model.Address{Email: "x@y.com"},
		To:   []string{"other@example.com", "team@example.com"},
	}
	if !Matches(rule, msg) {
		t.Fatal("expected match when any recipient matches")
	}

	msg.To = []string{"other@example.com"}
	if Matches(rule, msg) {
		t.Fatal("expected no match when no recipient matches")
	}
}

func TestFirstMatchWins(t *testing.T) {
	ruleset := []model.HookRule{
		{Name: "github", Match: model.RuleMatch{From: "*@github.com"}},
		{Name: "catch-all", Match: model.RuleMatch{From: "*"}},
	}

	msg := model.MessageSummary{From: model.Address{Email: "ci-bot@github.com"}}
	got := FirstMatch(ruleset, msg)
	if got == nil || got.Name != "github" {
		t.Fatalf("expected first matching rule, got %+v", got)
	}

	other := model.MessageSummary{From: model.Address{Email: "a@b.com"}}
	got = FirstMatch(ruleset, other)
	if got == nil || got.Name != "catch-all" {
		t.Fatalf("expected catch-all rule, got %+v", got)
	}

	none := FirstMatch(nil, msg)
	if none != nil {
		t.Fatalf("expected nil for empty ruleset, got %+v", none)
	}
}

func TestMatchesFallsBackToFromName(t *testing.T) {
	rule := model.HookRule{
		Name:  "named",
		Match: model.RuleMatch{From: "Build Bot"},
	}
	msg := model.MessageSummary{From: model.Address{Name: "Build Bot"}}

	if !Matches(rule, msg) {
		t.Fatal("expected match against display name when no address present")
	}
}
