package tokens

import "testing"

func TestHeuristic_Estimate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"single word", "hello", 1},
		{"two words", "a b", 2},
		{"punctuation counts per character", "Hello, world! foo_bar baz-qux", 7},
		{"placeholder token", "@@P0@@", 5},
		{"sentence with email", "Contact support@example-very-long-domain.com for details", 9},
		{"compressed sentence", "Contact @@P0@@ for details", 8},
		{"unicode letters and numbers are word characters", "héllo wörld ½ — ok", 6},
		{"information separators split words", "a \x1c b\x1fc", 3},
	}

	h := Heuristic{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Estimate(tt.text); got != tt.expected {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, kind := range []string{"", KindHeuristic} {
		est, err := New(kind, "")
		if err != nil {
			t.Fatalf("New(%q): %v", kind, err)
		}
		if est.Name() != KindHeuristic {
			t.Errorf("New(%q).Name() = %q, want %q", kind, est.Name(), KindHeuristic)
		}
	}

	if _, err := New("bogus", ""); err == nil {
		t.Error("expected error for unknown estimator")
	}
}

func TestTiktoken_Estimate(t *testing.T) {
	est, err := New(KindTiktoken, "not-a-real-model")
	if err != nil {
		t.Fatalf("New(tiktoken): %v", err)
	}
	if est.Name() != KindTiktoken {
		t.Errorf("Name() = %q, want %q", est.Name(), KindTiktoken)
	}

	if got := est.Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d, want 0", got)
	}
	if got := est.Estimate("hello world"); got <= 0 {
		t.Errorf("Estimate(hello world) = %d, want > 0", got)
	}

	long := "see https://example.com/docs/getting-started?tab=install for more"
	short := "see @@P0@@ for more"
	if est.Estimate(short) >= est.Estimate(long) {
		t.Errorf("expected placeholder text to cost fewer tokens than the URL text")
	}
}
