package lang

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "english",
			text: "The quick brown fox jumps over the lazy dog. This sentence is long enough for reliable detection.",
			want: "en",
		},
		{
			name: "german",
			text: "Der schnelle braune Fuchs springt über den faulen Hund. Dieser Satz ist lang genug für eine zuverlässige Erkennung.",
			want: "de",
		},
		{
			name: "empty",
			text: "",
			want: Unknown,
		},
		{
			name: "whitespace only",
			text: "   \n\t  ",
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetect_NeverEmpty(t *testing.T) {
	// Garbage input must map to the sentinel, never to an empty string.
	inputs := []string{"1234567890", "!!!???###", "\x00\x01\x02", "a"}
	for _, in := range inputs {
		if got := Detect(in); got == "" {
			t.Errorf("Detect(%q) returned empty string, want a code or %q", in, Unknown)
		}
	}
}
