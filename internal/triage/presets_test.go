package triage

import (
	"strings"
	"testing"
)

func TestResolvePreset(t *testing.T) {
	p := ResolvePreset("work", "")
	if p.Name != "work" || !p.UseAI {
		t.Fatalf("work preset = %+v", p)
	}

	if p := ResolvePreset("nonsense", ""); p.Name != "default" {
		t.Fatalf("unknown preset resolved to %q, want default", p.Name)
	}

	if p := ResolvePreset("quiet", ""); p.UseAI {
		t.Fatal("quiet preset must opt out of the classifier")
	}
}

func TestResolvePresetAppendsCustomInstructions(t *testing.T) {
	p := ResolvePreset("default", "Always flag mail from legal.")
	if !strings.Contains(p.SystemPrompt, "Always flag mail from legal.") {
		t.Fatal("custom instructions missing from system prompt")
	}

	// No prompt to append to when the classifier is off.
	q := ResolvePreset("quiet", "irrelevant")
	if q.SystemPrompt != "" {
		t.Fatalf("quiet prompt = %q, want empty", q.SystemPrompt)
	}
}

func TestKnownPreset(t *testing.T) {
	for _, name := range []string{"default", "work", "quiet"} {
		if !KnownPreset(name) {
			t.Fatalf("%q should be known", name)
		}
	}
	if KnownPreset("focus") {
		t.Fatal("unexpected preset")
	}
}
