// Package tui provides the Bubble Tea race screen.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuirace/internal/peer"
	"github.com/verte-zerg/tuirace/internal/race"
)

// TickInterval is how often the race is rescored while nobody types.
const TickInterval = 100 * time.Millisecond

type tickMsg time.Time

type opponentMsg peer.Update

type linkClosedMsg struct{}

// Model implements the Bubble Tea race UI. It is the only writer of the
// typed text and the only caller of the scoring engine.
type Model struct {
	player  *race.Player
	updates <-chan peer.Update
	notice  string

	width  int
	height int

	input    []rune
	linkLost bool
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	aheadStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	outcomeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// NewModel builds the race screen for player. updates is nil in a solo
// race; otherwise opponent scores are drained from it and applied to the
// player on the UI goroutine. notice is shown above the footer.
func NewModel(player *race.Player, updates <-chan peer.Update, notice string) *Model {
	return &Model{
		player:  player,
		updates: updates,
		notice:  notice,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForUpdate(m.updates))
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(updates <-chan peer.Update) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return linkClosedMsg{}
		}
		return opponentMsg(u)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.player.Tick()
		if m.player.GameOver() {
			return m, nil
		}
		return m, tick()
	case opponentMsg:
		m.player.SetOpponentWPM(msg.WPM)
		return m, waitForUpdate(m.updates)
	case linkClosedMsg:
		m.updates = nil
		if !m.player.GameOver() {
			m.linkLost = true
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if m.player.GameOver() {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.player.GameOver() {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete:
		m.handleBackspace()
	case tea.KeySpace:
		m.handleRunes([]rune{' '})
	case tea.KeyRunes:
		m.handleRunes(msg.Runes)
	}
	return m, nil
}

func (m *Model) handleBackspace() {
	if len(m.input) == 0 {
		return
	}
	m.input = m.input[:len(m.input)-1]
	m.commit()
}

func (m *Model) handleRunes(runes []rune) {
	limit := len(m.player.PromptRunes())
	changed := false
	for _, r := range runes {
		if len(m.input) >= limit {
			break
		}
		m.input = append(m.input, r)
		changed = true
	}
	if !changed {
		return
	}
	if !m.player.Started() {
		m.player.Start()
	}
	m.commit()
}

func (m *Model) commit() {
	m.player.UpdateText(string(m.input))
	m.player.Tick()
}

// View implements tea.Model.
func (m *Model) View() string {
	prompt := m.player.PromptRunes()
	if len(prompt) == 0 {
		return ""
	}
	typed := m.player.TypedRunes()
	cursorIndex := -1
	if len(typed) < len(prompt) && !m.player.GameOver() {
		cursorIndex = len(typed)
	}
	styledRunes := buildStyledRunes(prompt, len(typed), m.player.MistakeFlags(), cursorIndex)
	footer := m.renderFooter()
	status := m.renderStatus()
	if m.width == 0 || m.height == 0 {
		out := renderStyledRunes(styledRunes)
		if status != "" {
			out += "\n\n" + status
		}
		return out + "\n" + footer
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapStyledRunes(styledRunes, contentWidth)
	content := lipgloss.NewStyle().Width(contentWidth).Render(wrapped)
	if status != "" {
		content += "\n\n" + status
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) multiplayer() bool {
	return m.player.Role().Multiplayer()
}

func (m *Model) renderFooter() string {
	segments := []string{
		footerStyle.Render(fmt.Sprintf("%d seconds left", m.player.TimeRemaining())),
		footerStyle.Render(fmt.Sprintf("%d WPM", m.player.WPM())),
	}
	if m.multiplayer() {
		opp := fmt.Sprintf("%d Opponent WPM", m.player.OpponentWPM())
		if m.player.OpponentWPM() > m.player.WPM() {
			segments = append(segments, aheadStyle.Render(opp))
		} else {
			segments = append(segments, footerStyle.Render(opp))
		}
	}
	return strings.Join(segments, footerStyle.Render("  "))
}

func (m *Model) renderStatus() string {
	var lines []string
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	if m.linkLost {
		lines = append(lines, noticeStyle.Render("Opponent disconnected; their last score is kept."))
	}
	switch {
	case m.player.GameOver() && m.multiplayer():
		lines = append(lines, outcomeStyle.Render(fmt.Sprintf("%s  %d vs %d WPM", m.player.Outcome(), m.player.WPM(), m.player.OpponentWPM())))
		lines = append(lines, footerStyle.Render("Press enter to exit"))
	case m.player.GameOver():
		lines = append(lines, outcomeStyle.Render(fmt.Sprintf("Time's up: %d WPM", m.player.WPM())))
		lines = append(lines, footerStyle.Render("Press enter to exit"))
	case !m.player.Started():
		lines = append(lines, footerStyle.Render("Start typing to begin"))
	}
	return strings.Join(lines, "\n")
}
