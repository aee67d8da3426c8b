// Package lobby provides the Bubble Tea setup screen that picks a role and
// connects the two players before a race.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/tuirace/internal/model"
	"github.com/verte-zerg/tuirace/internal/netaddr"
	"github.com/verte-zerg/tuirace/internal/peer"
)

type stage int

const (
	stageMode stage = iota
	stageAddress
	stageListening
	stageWaiting
	stageConnecting
	stageFailed
	stageDone
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	addressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	modalStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Options configure the lobby.
type Options struct {
	// Role is the role to set up. Ignored when Choose is set.
	Role model.Role
	// Choose asks for the role with the s/h/c prompt.
	Choose bool
	// Address is the host to join. When empty a client is asked for it.
	Address string
	// LastHost pre-fills the address input.
	LastHost string
	Port     int
	// NewChannel builds the score channel for a multiplayer role. The lobby
	// drives its setup and hands it over in the Result.
	NewChannel func(role model.Role) *peer.Channel
	Resolver   netaddr.Resolver
	Logger     zerolog.Logger
}

// Result is what the lobby settled on.
type Result struct {
	Role model.Role
	// Channel is connected and ready to Run for a multiplayer role.
	Channel *peer.Channel
	// Address is the host a client joined.
	Address string
	// Notice explains why a multiplayer setup fell back to solo.
	Notice string
	// Quit means the player left without racing.
	Quit bool
}

type listenedMsg struct {
	ln        *peer.Listener
	advertise string
	loopback  bool
	err       error
}

type connectedMsg struct {
	err error
}

// Model implements the Bubble Tea lobby.
type Model struct {
	opts   Options
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int

	stage   stage
	role    model.Role
	input   textinput.Model
	spinner spinner.Model

	ch        *peer.Channel
	ln        *peer.Listener
	advertise string
	loopback  bool
	target    string
	inputErr  string
	hint      string
	failure   error

	result Result
}

// New constructs a lobby. Blocking setup steps are bound to ctx.
func New(ctx context.Context, opts Options) *Model {
	if opts.Port <= 0 {
		opts.Port = peer.DefaultPort
	}
	ctx, cancel := context.WithCancel(ctx)
	input := textinput.New()
	input.Prompt = "Host: "
	input.Placeholder = "192.168.1.20 or 192.168.1.20:" + strconv.Itoa(opts.Port)
	input.CharLimit = 255
	input.Cursor.SetMode(cursor.CursorBlink)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = keyStyle

	m := &Model{
		opts:    opts,
		log:     opts.Logger.With().Str("component", "lobby").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		input:   input,
		spinner: sp,
		role:    opts.Role,
	}
	if opts.Choose {
		m.stage = stageMode
	}
	return m
}

// Result returns the outcome once the program has exited.
func (m *Model) Result() Result {
	return m.result
}

// Close releases setup resources that were not handed over.
func (m *Model) Close() {
	m.cancel()
	m.dropChannel()
}

func (m *Model) dropChannel() {
	if m.ch == nil || m.result.Channel == m.ch {
		return
	}
	if err := m.ch.Close(); err != nil {
		m.log.Debug().Err(err).Msg("failed to close channel")
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.opts.Choose {
		return nil
	}
	return m.begin(m.opts.Role)
}

func (m *Model) begin(role model.Role) tea.Cmd {
	m.role = role
	switch role {
	case model.RoleHost:
		m.stage = stageListening
		m.ch = m.newChannel(role)
		return tea.Batch(m.spinner.Tick, m.listen())
	case model.RoleClient:
		if m.opts.Address != "" {
			return m.connect(m.opts.Address)
		}
		m.stage = stageAddress
		m.input.SetValue(m.opts.LastHost)
		m.input.CursorEnd()
		return m.input.Focus()
	default:
		return m.finish(Result{Role: model.RoleSolo})
	}
}

func (m *Model) newChannel(role model.Role) *peer.Channel {
	if m.opts.NewChannel != nil {
		return m.opts.NewChannel(role)
	}
	return peer.New(idleSource{}, peer.Options{Logger: m.opts.Logger})
}

// idleSource reports a zero score when no player was wired in.
type idleSource struct{}

func (idleSource) WPM() int       { return 0 }
func (idleSource) GameOver() bool { return false }

func (m *Model) listen() tea.Cmd {
	ctx, ch := m.ctx, m.ch
	addr := ":" + strconv.Itoa(m.opts.Port)
	resolver := m.opts.Resolver
	log := m.log
	return func() tea.Msg {
		ln, err := ch.Listen(ctx, addr)
		if err != nil {
			return listenedMsg{err: err}
		}
		host, loopback := netaddr.LocalAddress(resolver, log)
		return listenedMsg{
			ln:        ln,
			advertise: net.JoinHostPort(host, strconv.Itoa(ln.Port())),
			loopback:  loopback,
		}
	}
}

func (m *Model) accept() tea.Cmd {
	ctx, ch, ln := m.ctx, m.ch, m.ln
	return func() tea.Msg {
		return connectedMsg{err: ch.Accept(ctx, ln)}
	}
}

func (m *Model) connect(input string) tea.Cmd {
	target, err := peer.HostAddress(strings.TrimSpace(input), m.opts.Port)
	if err != nil {
		m.inputErr = err.Error()
		if m.stage != stageAddress {
			m.stage = stageAddress
			m.input.SetValue(input)
			return m.input.Focus()
		}
		return nil
	}
	m.inputErr = ""
	m.target = target
	m.stage = stageConnecting
	m.input.Blur()
	m.ch = m.newChannel(model.RoleClient)
	m.log.Info().Str("addr", target).Msg("connecting to host")

	ctx, ch := m.ctx, m.ch
	dial := func() tea.Msg {
		return connectedMsg{err: ch.Dial(ctx, target)}
	}
	return tea.Batch(m.spinner.Tick, dial)
}

func (m *Model) finish(res Result) tea.Cmd {
	m.stage = stageDone
	m.result = res
	m.cancel()
	return tea.Quit
}

func (m *Model) fail(err error) {
	m.stage = stageFailed
	m.failure = err
	m.log.Warn().Err(err).Str("role", m.role.String()).Msg("multiplayer setup failed; falling back to solo")
}

func (m *Model) quit() tea.Cmd {
	m.dropChannel()
	return m.finish(Result{Role: m.role, Quit: true})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case listenedMsg:
		if m.stage != stageListening {
			return m, nil
		}
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.ln = msg.ln
		m.advertise = msg.advertise
		m.loopback = msg.loopback
		m.stage = stageWaiting
		m.log.Info().Str("addr", m.advertise).Bool("loopback", m.loopback).Msg("waiting for opponent")
		return m, m.accept()
	case connectedMsg:
		if m.stage != stageWaiting && m.stage != stageConnecting {
			return m, nil
		}
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.ln = nil
		m.log.Info().Str("role", m.role.String()).Msg("opponent connected")
		res := Result{Role: m.role, Channel: m.ch}
		if m.role == model.RoleClient {
			res.Address = m.target
		}
		return m, m.finish(res)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	if m.stage == stageAddress {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) busy() bool {
	return m.stage == stageListening || m.stage == stageWaiting || m.stage == stageConnecting
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, m.quit()
	}
	switch m.stage {
	case stageMode:
		return m.updateMode(msg)
	case stageAddress:
		return m.updateAddress(msg)
	case stageFailed:
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.finish(Result{Role: model.RoleSolo, Notice: m.notice()})
		case tea.KeyEsc:
			return m, m.quit()
		}
		return m, nil
	default:
		if msg.Type == tea.KeyEsc {
			return m, m.quit()
		}
		return m, nil
	}
}

func (m *Model) updateMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return m, m.quit()
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return m, nil
	}
	switch strings.ToLower(string(msg.Runes)) {
	case "s":
		return m, m.begin(model.RoleSolo)
	case "h":
		return m, m.begin(model.RoleHost)
	case "c":
		return m, m.begin(model.RoleClient)
	default:
		m.hint = fmt.Sprintf("%q is not a mode; press s, h or c", string(msg.Runes))
		return m, nil
	}
}

func (m *Model) updateAddress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.opts.Choose {
			m.stage = stageMode
			m.inputErr = ""
			m.input.Blur()
			return m, nil
		}
		return m, m.quit()
	case tea.KeyEnter:
		return m, m.connect(m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) notice() string {
	if m.failure == nil {
		return ""
	}
	return fmt.Sprintf("Multiplayer unavailable (%v); racing solo.", m.failure)
}

// View implements tea.Model.
func (m *Model) View() string {
	var body []string
	switch m.stage {
	case stageMode:
		body = []string{
			titleStyle.Render("Typing race"),
			"",
			keyStyle.Render("s") + "  solo race",
			keyStyle.Render("h") + "  host a race",
			keyStyle.Render("c") + "  join a race",
			"",
			hintStyle.Render("Esc to quit"),
		}
		if m.hint != "" {
			body = append(body, errorStyle.Render(m.hint))
		}
	case stageAddress:
		body = []string{
			titleStyle.Render("Join a race"),
			m.input.View(),
			hintStyle.Render(fmt.Sprintf("host or host:port (default port %d)", m.opts.Port)),
			hintStyle.Render("Enter to connect / Esc to go back"),
		}
		if m.inputErr != "" {
			body = append(body, errorStyle.Render(m.inputErr))
		}
	case stageListening:
		body = []string{m.spinner.View() + " Opening port " + strconv.Itoa(m.opts.Port) + "..."}
	case stageWaiting:
		body = []string{
			titleStyle.Render("Hosting a race"),
			m.spinner.View() + " Waiting for opponent. Tell them to join:",
			addressStyle.Render(m.advertise),
		}
		if m.loopback {
			body = append(body, errorStyle.Render("No LAN address found; the opponent must run on this machine."))
		}
		body = append(body, hintStyle.Render("Esc to cancel"))
	case stageConnecting:
		body = []string{
			m.spinner.View() + " Connecting to " + addressStyle.Render(m.target),
			hintStyle.Render("Esc to cancel"),
		}
	case stageFailed:
		body = []string{
			titleStyle.Render("Could not start multiplayer"),
			errorStyle.Render(describeFailure(m.failure)),
			"",
			hintStyle.Render("Enter to race solo / Esc to quit"),
		}
	default:
		return ""
	}
	box := modalStyle.Render(strings.Join(body, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func describeFailure(err error) string {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timed out: " + err.Error()
	}
	return err.Error()
}
