package ui

import (
	"strings"
	"testing"
)

func TestWrapBreaksOnWords(t *testing.T) {
	got := Wrap("search trains from seoul to busan", 12)

	for _, line := range strings.Split(got, "\n") {
		if DisplayWidth(line) > 12 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
	if !strings.Contains(got, "\n") {
		t.Fatalf("expected wrapped output, got %q", got)
	}
}

func TestWrapHardBreaksLongWords(t *testing.T) {
	got := Wrap(strings.Repeat("x", 10), 4)

	if got != "xxxx\nxxxx\nxx" {
		t.Fatalf("Wrap() = %q", got)
	}
}

func TestWrapIndentHangsContinuationLines(t *testing.T) {
	got := WrapIndent("aaaa bbbb cccc", 9, 2)

	lines := strings.Split(got, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines, got %q", got)
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Fatalf("expected continuation indent, got %q", line)
		}
	}
}

func TestWrapZeroWidth(t *testing.T) {
	if got := Wrap("unchanged", 0); got != "unchanged" {
		t.Fatalf("Wrap() = %q", got)
	}
}
