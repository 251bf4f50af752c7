package testutil

import "testing"

func TestLineDiff(t *testing.T) {
	tests := []struct {
		name      string
		want, got string
		diff      string
	}{
		{"equal", "a\nb\n", "a\nb\n", ""},
		{"changed line", "a\nb\n", "a\nc\n", "   2 - \"b\"\n   2 + \"c\"\n"},
		{"extra line", "a\n", "a\nb\n", "   2 - \"\"\n   2 + \"b\"\n   3 + \"\"\n"},
		{"missing newline", "a\n", "a", "   2 - \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lineDiff(tt.want, tt.got); got != tt.diff {
				t.Errorf("lineDiff() = %q, want %q", got, tt.diff)
			}
		})
	}
}

func TestGoldenMatches(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOLDEN_UPDATE", "1")
	GoldenString(t, "sample", "   1  [ ] walk dog\n")

	t.Setenv("GOLDEN_UPDATE", "")
	GoldenString(t, "sample", "   1  [ ] walk dog\n")
}
