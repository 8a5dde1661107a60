package record

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple lowercase",
			input: "Release Notes",
			want:  "release notes",
		},
		{
			name:  "trim whitespace",
			input: "  notes  ",
			want:  "notes",
		},
		{
			name:  "collapse internal whitespace",
			input: "release    notes",
			want:  "release notes",
		},
		{
			name:  "tabs and newlines",
			input: "release\t\n  notes",
			want:  "release notes",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n   ",
			want:  "",
		},
		{
			name:  "unicode characters",
			input: "  HÉLLO   WÖRLD  ",
			want:  "héllo wörld",
		},
		{
			name:  "decomposed accent composes",
			input: "Cafe\u0301",
			want:  "caf\u00e9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCountChars(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"hello", 5},
		{"", 0},
		{"hello 👋", 7},
		{"你好世界", 4},
		{"café", 4},
	}

	for _, tt := range tests {
		if got := CountChars(tt.input); got != tt.want {
			t.Errorf("CountChars(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
