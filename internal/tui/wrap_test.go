package tui

import (
	"strings"
	"testing"
)

func TestBuildStyledRunesCursor(t *testing.T) {
	prompt := []rune("ab")
	runes := buildStyledRunes(prompt, 1, []bool{false, false}, 1)
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != currentWordStyle.Underline(true).Render("b") {
		t.Fatalf("expected cursor style for second rune")
	}
}

func TestBuildStyledRunesNoCursorWhenComplete(t *testing.T) {
	runes := buildStyledRunes([]rune("a"), 1, []bool{false}, -1)
	if len(runes) != 1 {
		t.Fatalf("expected 1 rune, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for completed rune")
	}
}

func TestBuildStyledRunesFollowsMistakeFlags(t *testing.T) {
	prompt := []rune("ab")
	runes := buildStyledRunes(prompt, 2, []bool{false, true}, -1)
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != incorrectStyle.Render("b") {
		t.Fatalf("expected incorrect style for second rune")
	}
}

func TestBuildStyledRunesIgnoresFlagsPastTyped(t *testing.T) {
	// Flags beyond the typed text may be stale after a backspace.
	prompt := []rune("ab cd")
	runes := buildStyledRunes(prompt, 1, []bool{false, true, false, false, false}, 1)
	if runes[1].s != currentWordStyle.Underline(true).Render("b") {
		t.Fatalf("expected untyped rune to ignore its stale flag")
	}
}

func TestBuildStyledRunesWordHighlighting(t *testing.T) {
	prompt := []rune("one two")
	runes := buildStyledRunes(prompt, 1, make([]bool, len(prompt)), 1)
	if runes[0].s != correctStyle.Render("o") {
		t.Fatalf("expected correct style for typed rune")
	}
	if runes[2].s != currentWordStyle.Render("e") {
		t.Fatalf("expected current word style for untyped in current word")
	}
	if runes[4].s != pendingStyle.Render("t") {
		t.Fatalf("expected pending style for next word")
	}
	if runes[6].s != pendingStyle.Render("o") {
		t.Fatalf("expected pending style for next word")
	}
}

func TestBuildStyledRunesWrongSpaceDot(t *testing.T) {
	prompt := []rune("a b")
	runes := buildStyledRunes(prompt, 2, []bool{false, true, false}, 2)
	if len(runes) != 3 {
		t.Fatalf("expected 3 runes, got %d", len(runes))
	}
	if runes[1].s != incorrectStyle.Render(string(wrongSpace)) {
		t.Fatalf("expected red dot for wrong space, got %q", runes[1].s)
	}
	if !runes[1].isSpace {
		t.Fatalf("expected wrong space to stay a wrap point")
	}
}

func TestWrapStyledRunesBreaksAtSpaces(t *testing.T) {
	prompt := []rune("aaa bbb ccc ")
	runes := buildStyledRunes(prompt, 0, make([]bool, len(prompt)), -1)
	out := wrapStyledRunes(runes, 8)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], pendingStyle.Render("c")) {
		t.Fatalf("expected second line to start with the third word: %q", lines[1])
	}
}

func TestWrapStyledRunesSplitsLongWord(t *testing.T) {
	prompt := []rune("abcdefgh")
	runes := buildStyledRunes(prompt, 0, make([]bool, len(prompt)), -1)
	out := wrapStyledRunes(runes, 3)
	if got := strings.Count(out, "\n"); got != 2 {
		t.Fatalf("expected 2 line breaks, got %d: %q", got, out)
	}
}
