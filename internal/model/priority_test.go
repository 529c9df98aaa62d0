package model

import "testing"

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{in: "urgent", want: PriorityUrgent},
		{in: "high", want: PriorityHigh},
		{in: "normal", want: PriorityNormal},
		{in: "low", want: PriorityLow},
		{in: "critical", want: PriorityNormal},
		{in: "", want: PriorityNormal},
	}

	for _, tt := range tests {
		if got := ParsePriority(tt.in); got != tt.want {
			t.Fatalf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPriorityAtLeast(t *testing.T) {
	if !PriorityUrgent.AtLeast(PriorityHigh) {
		t.Fatal("urgent should satisfy a high threshold")
	}
	if !PriorityHigh.AtLeast(PriorityHigh) {
		t.Fatal("high should satisfy a high threshold")
	}
	if PriorityNormal.AtLeast(PriorityHigh) {
		t.Fatal("normal should not satisfy a high threshold")
	}
	if !PriorityLow.AtLeast(PriorityLow) {
		t.Fatal("low should satisfy a low threshold")
	}
}

func TestTriageResultSanitize(t *testing.T) {
	in := TriageResult{
		Priority:   "whatever",
		Labels:     []string{"a", "", "b", "c", "d", "e", "f"},
		Flag:       true,
		ActionNote: string(make([]byte, 500)),
	}

	out := in.Sanitize()
	if out.Priority != PriorityNormal {
		t.Fatalf("priority = %q, want normal", out.Priority)
	}
	if len(out.Labels) != 5 {
		t.Fatalf("labels = %d, want capped at 5", len(out.Labels))
	}
	for _, l := range out.Labels {
		if l == "" {
			t.Fatal("empty labels should be dropped")
		}
	}
	if len(out.ActionNote) != 200 {
		t.Fatalf("note length = %d, want capped at 200", len(out.ActionNote))
	}
	if !out.Flag {
		t.Fatal("flag should pass through")
	}
}

func TestAddressString(t *testing.T) {
	if got := (Address{Name: "Jo", Email: "jo@example.com"}).String(); got != "Jo <jo@example.com>" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Address{Email: "jo@example.com"}).String(); got != "jo@example.com" {
		t.Fatalf("String() without name = %q", got)
	}
}
