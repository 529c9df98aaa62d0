package classify

import (
	"testing"

	"github.com/codefuturist/mailwatch/internal/model"
)

func TestParseResultsArray(t *testing.T) {
	raw := `[{"priority":"high","labels":["Finance"],"flag":true}]`

	got := ParseResults(raw, 1)
	if len(got) != 1 {
		t.Fatalf("result count = %d, want 1", len(got))
	}
	if got[0].Priority != model.PriorityHigh {
		t.Fatalf("priority = %q, want high", got[0].Priority)
	}
	if len(got[0].Labels) != 1 || got[0].Labels[0] != "Finance" {
		t.Fatalf("labels = %v, want [Finance]", got[0].Labels)
	}
	if !got[0].Flag {
		t.Fatal("flag should be set")
	}
}

func TestParseResultsMissingEntriesDefaultEmpty(t *testing.T) {
	raw := `[{"priority":"urgent"}]`

	got := ParseResults(raw, 3)
	if len(got) != 3 {
		t.Fatalf("result count = %d, want 3", len(got))
	}
	if got[0].Priority != model.PriorityUrgent {
		t.Fatalf("first priority = %q, want urgent", got[0].Priority)
	}
	for i := 1; i < 3; i++ {
		if got[i].Priority != "" || got[i].Flag || len(got[i].Labels) != 0 {
			t.Fatalf("entry %d should be empty, got %+v", i, got[i])
		}
	}
}

func TestParseResultsExtraEntriesIgnored(t *testing.T) {
	raw := `[{"priority":"high"},{"priority":"low"},{"priority":"urgent"}]`

	got := ParseResults(raw, 2)
	if len(got) != 2 {
		t.Fatalf("result count = %d, want 2", len(got))
	}
	if got[1].Priority != model.PriorityLow {
		t.Fatalf("second priority = %q, want low", got[1].Priority)
	}
}

func TestParseResultsSingleObjectBroadcast(t *testing.T) {
	raw := `{"priority":"high","labels":["Ops"]}`

	got := ParseResults(raw, 1)
	if got[0].Priority != model.PriorityHigh || len(got[0].Labels) != 1 {
		t.Fatalf("unexpected result: %+v", got[0])
	}
}

func TestParseResultsMalformedYieldsEmptySet(t *testing.T) {
	for _, raw := range []string{
		"I think these are all newsletters.",
		"[{broken json",
		"",
		`["just","strings"]`,
	} {
		got := ParseResults(raw, 2)
		if len(got) != 2 {
			t.Fatalf("result count = %d, want 2 for %q", len(got), raw)
		}
		for i, r := range got {
			if r.Priority != "" || r.Flag || len(r.Labels) != 0 || r.ActionNote != "" {
				t.Fatalf("entry %d should be empty for %q, got %+v", i, raw, r)
			}
		}
	}
}

func TestParseResultsStripsCodeFence(t *testing.T) {
	raw := "```json\n[{\"priority\":\"high\"}]\n```"

	got := ParseResults(raw, 1)
	if got[0].Priority != model.PriorityHigh {
		t.Fatalf("priority = %q, want high", got[0].Priority)
	}
}

func TestParseResultsSanitizes(t *testing.T) {
	raw := `[{"priority":"critical","labels":["a","b","c","d","e","f","g"]}]`

	got := ParseResults(raw, 1)
	if got[0].Priority != model.PriorityNormal {
		t.Fatalf("unknown priority should default to normal, got %q", got[0].Priority)
	}
	if len(got[0].Labels) != 5 {
		t.Fatalf("labels capped at 5, got %d", len(got[0].Labels))
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `[1]`, want: `[1]`},
		{name: "fenced", in: "```\n[1]\n```", want: "[1]"},
		{name: "fenced-json", in: "```json\n[1]\n```", want: "[1]"},
		{name: "whitespace", in: "  ```json\n[1]\n```  ", want: "[1]"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFence(tc.in); got != tc.want {
				t.Fatalf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
