package tui

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 20, "short"},
		{"a long plain header line", 10, "a long ..."},
		{"überlänge in der Überschrift", 10, "überlän..."},
		{"修复竞争条件导致的崩溃问题", 8, "修复竞争条..."},
	}
	for _, c := range cases {
		got := truncate(c.in, c.max)
		if got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", c.in, c.max)
		}
	}
}

func TestWrapLines(t *testing.T) {
	text := "überschüssige Änderungen im Diff führen zu Abständen"
	lines := wrapLines(text, 12)
	for _, line := range lines {
		if !utf8.ValidString(line) {
			t.Fatalf("wrapped line %q is invalid UTF-8", line)
		}
		if n := utf8.RuneCountInString(line); n > 12 {
			t.Errorf("line %q is %d runes wide, want <= 12", line, n)
		}
	}
	joined := strings.Join(lines, " ")
	if !strings.Contains(joined, "Änderungen") {
		t.Errorf("wrapped output lost content: %q", joined)
	}
}

func TestWrapLines_UnbreakableRun(t *testing.T) {
	lines := wrapLines(strings.Repeat("长", 25), 10)
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3", len(lines))
	}
	for _, line := range lines[:2] {
		if n := utf8.RuneCountInString(line); n != 10 {
			t.Errorf("hard-cut line %q is %d runes, want 10", line, n)
		}
		if !utf8.ValidString(line) {
			t.Errorf("hard-cut line %q is invalid UTF-8", line)
		}
	}
}
