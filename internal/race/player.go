// Package race implements the typing race scoring engine.
//
// A Player is driven from a single foreground loop: the input collaborator
// replaces the typed text, then Tick recomputes the remaining time and the
// words-per-minute score. WPM and GameOver are additionally published through
// atomics so a background peer link can read them without locking.
package race

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/tuirace/internal/model"
)

// DefaultTimeLimit is the race length in seconds when none is configured.
const DefaultTimeLimit = 60

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Player.
type Option func(*Player)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(p *Player) {
		if c != nil {
			p.now = c
		}
	}
}

// WithRole marks the player as part of a solo or multiplayer session.
func WithRole(r model.Role) Option {
	return func(p *Player) {
		p.role = r
	}
}

// Player holds the state of one racer for the whole session.
type Player struct {
	now  Clock
	role model.Role

	prompt   []rune
	typed    []rune
	mistakes []bool

	startedAt     time.Time
	started       bool
	timeLimit     int
	timeRemaining int
	correctWords  int

	opponentWPM int

	wpm      atomic.Int64
	gameOver atomic.Bool
}

// NewPlayer creates a player for the given prompt. A non-positive time limit
// falls back to DefaultTimeLimit.
func NewPlayer(prompt string, timeLimit int, opts ...Option) *Player {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	p := &Player{
		now:           time.Now,
		prompt:        []rune(prompt),
		timeLimit:     timeLimit,
		timeRemaining: timeLimit,
	}
	p.mistakes = make([]bool, len(p.prompt))
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins timing. Only the first call has an effect.
func (p *Player) Start() {
	if p.started {
		return
	}
	p.started = true
	p.startedAt = p.now()
}

// Started reports whether Start has been called.
func (p *Player) Started() bool {
	return p.started
}

// UpdateText replaces the typed text wholesale.
func (p *Player) UpdateText(text string) {
	p.typed = []rune(text)
}

// UpdateTime recomputes the remaining time and latches game over once it
// reaches zero. Before Start the full time limit remains.
func (p *Player) UpdateTime() {
	if !p.started {
		return
	}
	elapsed := int(math.Floor(p.now().Sub(p.startedAt).Seconds()))
	remaining := p.timeLimit - elapsed
	if remaining <= 0 {
		remaining = 0
		p.gameOver.Store(true)
	}
	if p.gameOver.Load() {
		remaining = 0
	}
	p.timeRemaining = remaining
}

// CheckAccuracy refreshes the mistake flags for every typed position and
// returns the number of correct space-terminated words.
//
// A word is tainted by any mismatch and only untainted again when the typed
// text has a space exactly where the prompt has one, so a missed or extra
// character misaligns every following word until the spaces line up again.
// Typed text past the end of the prompt is not scored.
func (p *Player) CheckAccuracy() int {
	n := len(p.typed)
	if n > len(p.prompt) {
		n = len(p.prompt)
	}
	correct := 0
	tainted := false
	for i := 0; i < n; i++ {
		if p.typed[i] == p.prompt[i] {
			p.mistakes[i] = false
		} else {
			p.mistakes[i] = true
			tainted = true
		}
		if p.prompt[i] != ' ' {
			continue
		}
		if !tainted {
			correct++
		}
		if p.typed[i] == ' ' {
			tainted = false
		}
	}
	p.correctWords = correct
	return correct
}

// UpdateWPM rescores the typed text and recomputes WPM from the elapsed
// time. While no whole second has elapsed the previous WPM is kept. Elapsed
// time never exceeds the time limit, so a tick that lands after the race
// ended scores over exactly the limit.
func (p *Player) UpdateWPM() {
	correct := p.CheckAccuracy()
	elapsedMinutes := float64(p.timeLimit-p.timeRemaining) / 60
	if elapsedMinutes <= 0 {
		return
	}
	p.wpm.Store(int64(math.Floor(float64(correct) / elapsedMinutes)))
}

// Tick runs one scoring pass: time first, then WPM.
func (p *Player) Tick() {
	p.UpdateTime()
	p.UpdateWPM()
}

// SetOpponentWPM records the latest score reported by the peer.
func (p *Player) SetOpponentWPM(wpm int) {
	p.opponentWPM = wpm
}

// Prompt returns the text to be typed.
func (p *Player) Prompt() string {
	return string(p.prompt)
}

// PromptRunes returns the prompt as runes. The slice must not be modified.
func (p *Player) PromptRunes() []rune {
	return p.prompt
}

// TypedText returns the current typed text.
func (p *Player) TypedText() string {
	return string(p.typed)
}

// TypedRunes returns the typed text as runes. The slice must not be modified.
func (p *Player) TypedRunes() []rune {
	return p.typed
}

// MistakeFlags returns a copy of the per-character mistake flags. Its length
// always equals the prompt length.
func (p *Player) MistakeFlags() []bool {
	out := make([]bool, len(p.mistakes))
	copy(out, p.mistakes)
	return out
}

// Mistake reports whether position i was mistyped.
func (p *Player) Mistake(i int) bool {
	if i < 0 || i >= len(p.mistakes) {
		return false
	}
	return p.mistakes[i]
}

// CorrectWords returns the count from the most recent CheckAccuracy.
func (p *Player) CorrectWords() int {
	return p.correctWords
}

// TimeLimit returns the race length in seconds.
func (p *Player) TimeLimit() int {
	return p.timeLimit
}

// TimeRemaining returns the seconds left as of the last UpdateTime.
func (p *Player) TimeRemaining() int {
	return p.timeRemaining
}

// WPM returns the current score. Safe for concurrent use.
func (p *Player) WPM() int {
	return int(p.wpm.Load())
}

// OpponentWPM returns the last score received from the peer.
func (p *Player) OpponentWPM() int {
	return p.opponentWPM
}

// GameOver reports whether the time ran out. Safe for concurrent use.
func (p *Player) GameOver() bool {
	return p.gameOver.Load()
}

// Role returns the session role the player was created with.
func (p *Player) Role() model.Role {
	return p.role
}

// Outcome compares the player's score with the opponent's.
func (p *Player) Outcome() model.Outcome {
	return Compare(p.WPM(), p.opponentWPM)
}

// Compare decides a race from two scores.
func Compare(wpm, opponentWPM int) model.Outcome {
	switch {
	case wpm > opponentWPM:
		return model.OutcomeWin
	case wpm < opponentWPM:
		return model.OutcomeLose
	default:
		return model.OutcomeTie
	}
}
