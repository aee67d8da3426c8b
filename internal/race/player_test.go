package race

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/tuirace/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestUpdateText(t *testing.T) {
	p := NewPlayer("this is a test", 60)
	p.UpdateText("This is a test")
	if p.TypedText() != "This is a test" {
		t.Fatalf("unexpected typed text: %q", p.TypedText())
	}
	p.UpdateText("Th")
	if p.TypedText() != "Th" {
		t.Fatalf("expected wholesale replacement, got %q", p.TypedText())
	}
}

func TestUpdateTimeGameOver(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("a b ", 60, WithClock(clock.Now))
	p.Start()
	clock.Advance(70 * time.Second)
	p.UpdateTime()
	if p.TimeRemaining() > 0 {
		t.Fatalf("expected no time remaining, got %d", p.TimeRemaining())
	}
	if !p.GameOver() {
		t.Fatalf("expected game over")
	}
}

func TestUpdateTimeGameOverIsSticky(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("a b ", 10, WithClock(clock.Now))
	p.Start()
	clock.Advance(10 * time.Second)
	p.UpdateTime()
	if !p.GameOver() {
		t.Fatalf("expected game over at the limit")
	}
	clock.Advance(-9 * time.Second)
	for i := 0; i < 3; i++ {
		p.UpdateTime()
		if !p.GameOver() {
			t.Fatalf("game over must never reset")
		}
	}
}

func TestUpdateTimeBeforeStart(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("a b ", 60, WithClock(clock.Now))
	clock.Advance(5 * time.Minute)
	p.UpdateTime()
	if p.TimeRemaining() != 60 {
		t.Fatalf("expected full time before start, got %d", p.TimeRemaining())
	}
	if p.GameOver() {
		t.Fatalf("expected game not over before start")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("a b ", 60, WithClock(clock.Now))
	p.Start()
	clock.Advance(10 * time.Second)
	p.Start()
	p.UpdateTime()
	if p.TimeRemaining() != 50 {
		t.Fatalf("expected 50 seconds remaining, got %d", p.TimeRemaining())
	}
}

func TestWPM(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("this is my test sentence ", 60, WithClock(clock.Now))
	p.Start()
	clock.Advance(30 * time.Second)
	p.UpdateTime()
	p.UpdateText("this is my test sentence ")
	p.Tick()
	if p.TimeRemaining() != 30 {
		t.Fatalf("expected 30 seconds remaining, got %d", p.TimeRemaining())
	}
	if p.CorrectWords() != 5 {
		t.Fatalf("expected 5 correct words, got %d", p.CorrectWords())
	}
	if p.WPM() != 10 {
		t.Fatalf("expected 10 WPM, got %d", p.WPM())
	}
}

func TestWPMFloorsFractions(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("one two ", 60, WithClock(clock.Now))
	p.Start()
	clock.Advance(7 * time.Second)
	p.UpdateText("one ")
	p.Tick()
	// 1 word / (7/60) min = 8.57
	if p.WPM() != 8 {
		t.Fatalf("expected 8 WPM, got %d", p.WPM())
	}
}

func TestLateTickScoresOverTimeLimit(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("this is my test sentence ", 60, WithClock(clock.Now))
	p.Start()
	p.UpdateText("this is my test sentence ")
	clock.Advance(65 * time.Second)
	p.Tick()
	if !p.GameOver() || p.TimeRemaining() != 0 {
		t.Fatalf("expected game over with no time left, got over=%v remaining=%d", p.GameOver(), p.TimeRemaining())
	}
	// 5 words over the full minute, not over 65 seconds.
	if p.WPM() != 5 {
		t.Fatalf("expected 5 WPM, got %d", p.WPM())
	}
	clock.Advance(time.Minute)
	p.Tick()
	if p.WPM() != 5 {
		t.Fatalf("expected WPM to stay frozen after game over, got %d", p.WPM())
	}
}

func TestWPMUnchangedAtZeroElapsed(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("one two ", 60, WithClock(clock.Now))
	p.Start()
	p.UpdateText("one two ")
	p.Tick()
	if p.WPM() != 0 {
		t.Fatalf("expected WPM to stay 0 at start, got %d", p.WPM())
	}

	clock.Advance(30 * time.Second)
	p.Tick()
	if p.WPM() != 4 {
		t.Fatalf("expected 4 WPM, got %d", p.WPM())
	}
}

func TestCheckAccuracyAllCorrect(t *testing.T) {
	prompt := "cloud amber window stream fabric "
	p := NewPlayer(prompt, 60)
	p.UpdateText(prompt)
	correct := p.CheckAccuracy()
	for i, flag := range p.MistakeFlags() {
		if flag {
			t.Fatalf("unexpected mistake at %d", i)
		}
	}
	if correct != 5 {
		t.Fatalf("expected 5 correct words, got %d", correct)
	}
}

func TestCheckAccuracyAllIncorrect(t *testing.T) {
	p := NewPlayer("this is my test sentence ", 60)
	p.UpdateText("Wow I am almost ten words long")
	if correct := p.CheckAccuracy(); correct != 0 {
		t.Fatalf("expected 0 correct words, got %d", correct)
	}
}

func TestCheckAccuracyPrefixes(t *testing.T) {
	prompt := "silver giant button cradle violet candle "
	p := NewPlayer(prompt, 60)
	for n := 0; n <= len(prompt); n++ {
		prefix := prompt[:n]
		p.UpdateText(prefix)
		got := p.CheckAccuracy()
		want := strings.Count(prefix, " ")
		if got != want {
			t.Fatalf("prefix %q: expected %d correct words, got %d", prefix, want, got)
		}
		for i := 0; i < n; i++ {
			if p.Mistake(i) {
				t.Fatalf("prefix %q: unexpected mistake at %d", prefix, i)
			}
		}
	}
}

func TestCheckAccuracyTaintPropagatesAfterMissedChar(t *testing.T) {
	p := NewPlayer("ab cd ef ", 60)
	p.UpdateText("a cd ef ")
	if correct := p.CheckAccuracy(); correct != 0 {
		t.Fatalf("expected taint to carry through misaligned words, got %d", correct)
	}
	flags := p.MistakeFlags()
	if flags[0] {
		t.Fatalf("expected first character to be correct")
	}
	for i := 1; i < len("a cd ef "); i++ {
		if !flags[i] {
			t.Fatalf("expected mistake at %d", i)
		}
	}
}

func TestCheckAccuracyTaintResetsOnMatchingSpace(t *testing.T) {
	p := NewPlayer("ab cd ", 60)
	p.UpdateText("xb cd ")
	if correct := p.CheckAccuracy(); correct != 1 {
		t.Fatalf("expected only the second word to count, got %d", correct)
	}
	if !p.Mistake(0) || p.Mistake(1) || p.Mistake(2) {
		t.Fatalf("unexpected flags: %v", p.MistakeFlags())
	}
}

func TestCheckAccuracyUnterminatedWordNotCounted(t *testing.T) {
	p := NewPlayer("ab cd", 60)
	p.UpdateText("ab cd")
	if correct := p.CheckAccuracy(); correct != 1 {
		t.Fatalf("expected 1 correct word, got %d", correct)
	}
}

func TestCheckAccuracyClearsFixedMistakes(t *testing.T) {
	p := NewPlayer("ab ", 60)
	p.UpdateText("ax")
	p.CheckAccuracy()
	if !p.Mistake(1) {
		t.Fatalf("expected mistake at 1")
	}
	p.UpdateText("ab")
	p.CheckAccuracy()
	if p.Mistake(1) {
		t.Fatalf("expected corrected character to clear its flag")
	}
}

func TestCheckAccuracyTypedLongerThanPrompt(t *testing.T) {
	p := NewPlayer("ab ", 60)
	p.UpdateText("ab cd ef ")
	if correct := p.CheckAccuracy(); correct != 1 {
		t.Fatalf("expected 1 correct word, got %d", correct)
	}
	if len(p.MistakeFlags()) != 3 {
		t.Fatalf("expected flags to keep prompt length")
	}
}

func TestMistakeFlagsLength(t *testing.T) {
	prompt := "this is my test sentence "
	p := NewPlayer(prompt, 60)
	for _, typed := range []string{"", "t", "this is", prompt, prompt + "extra words"} {
		p.UpdateText(typed)
		p.CheckAccuracy()
		if got := len(p.MistakeFlags()); got != len(prompt) {
			t.Fatalf("typed %q: expected %d flags, got %d", typed, len(prompt), got)
		}
	}
}

func TestMistakeFlagsCountRunes(t *testing.T) {
	p := NewPlayer("naïve café ", 60)
	if got := len(p.MistakeFlags()); got != 11 {
		t.Fatalf("expected 11 flags, got %d", got)
	}
	p.UpdateText("naïve ")
	if correct := p.CheckAccuracy(); correct != 1 {
		t.Fatalf("expected 1 correct word, got %d", correct)
	}
}

func TestMistakeFlagsReturnsCopy(t *testing.T) {
	p := NewPlayer("ab ", 60)
	p.UpdateText("x")
	p.CheckAccuracy()
	flags := p.MistakeFlags()
	flags[0] = false
	if !p.Mistake(0) {
		t.Fatalf("expected internal flags to be unaffected")
	}
}

func TestOutcome(t *testing.T) {
	cases := []struct {
		wpm, opp int
		want     model.Outcome
	}{
		{wpm: 40, opp: 30, want: model.OutcomeWin},
		{wpm: 30, opp: 40, want: model.OutcomeLose},
		{wpm: 35, opp: 35, want: model.OutcomeTie},
	}
	for _, c := range cases {
		if got := Compare(c.wpm, c.opp); got != c.want {
			t.Fatalf("Compare(%d, %d) = %v, want %v", c.wpm, c.opp, got, c.want)
		}
	}
}

func TestPlayerOutcomeUsesOpponentWPM(t *testing.T) {
	clock := newFakeClock()
	p := NewPlayer("one two ", 60, WithClock(clock.Now), WithRole(model.RoleHost))
	p.Start()
	clock.Advance(30 * time.Second)
	p.UpdateText("one two ")
	p.Tick()
	p.SetOpponentWPM(12)
	if p.OpponentWPM() != 12 {
		t.Fatalf("expected opponent WPM 12, got %d", p.OpponentWPM())
	}
	if p.Outcome() != model.OutcomeLose {
		t.Fatalf("expected lose with 4 vs 12, got %v", p.Outcome())
	}
	if p.Role() != model.RoleHost {
		t.Fatalf("expected host role")
	}
}

func TestDefaultTimeLimit(t *testing.T) {
	p := NewPlayer("a ", 0)
	if p.TimeLimit() != DefaultTimeLimit || p.TimeRemaining() != DefaultTimeLimit {
		t.Fatalf("expected default time limit, got %d/%d", p.TimeLimit(), p.TimeRemaining())
	}
}
