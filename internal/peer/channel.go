package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is the pause between two exchanges.
	DefaultInterval = 500 * time.Millisecond
	// MaxMessage bounds a single read.
	MaxMessage = 1024
)

// Source is the local score the channel transmits. Both methods are called
// from the channel goroutine and must be safe for concurrent use.
type Source interface {
	WPM() int
	GameOver() bool
}

// Update carries the opponent's latest score.
type Update struct {
	WPM int
}

// Options tune a Channel.
type Options struct {
	// Interval is the pause after each exchange. Zero means DefaultInterval,
	// negative means no pause.
	Interval time.Duration
	// ConnectTimeout bounds Dial. Zero waits as long as the context allows.
	ConnectTimeout time.Duration
	// IOTimeout bounds each send and receive. Zero leaves them unbounded.
	IOTimeout time.Duration
	Logger    zerolog.Logger
}

// Channel is one side of the score exchange. It owns its socket: the
// connection is created by Accept or Dial and closed when Run returns.
type Channel struct {
	src  Source
	opts Options
	log  zerolog.Logger

	updates     chan Update
	closeUpdate sync.Once

	mu          sync.Mutex
	conn        net.Conn
	ln          *Listener
	cancelSetup context.CancelFunc
	running     bool
	closed      bool
	reason      CloseReason
	err         error

	state     atomic.Int32
	exchanges atomic.Int64
}

// New returns an idle channel reporting scores from src.
func New(src Source, opts Options) *Channel {
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	c := &Channel{
		src:     src,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "peer").Logger(),
		updates: make(chan Update, 1),
	}
	c.state.Store(int32(StateIdle))
	return c
}

// Listen opens the host's listening socket for this channel. The channel
// moves from Idle to Connecting and a bind failure closes it.
func (c *Channel) Listen(ctx context.Context, addr string) (*Listener, error) {
	setupCtx, err := c.beginSetup(ctx, nil)
	if err != nil {
		return nil, err
	}
	ln, err := Listen(setupCtx, addr)
	c.endSetup()
	if err != nil {
		c.fail(setupReason(ctx), err)
		return nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ln.Close()
		return nil, errClosedWhileConnecting
	}
	c.ln = ln
	c.mu.Unlock()
	return ln, nil
}

// Accept waits on ln for the opponent. ln is either the listener returned by
// Listen or one opened by the caller on an idle channel.
func (c *Channel) Accept(ctx context.Context, ln *Listener) error {
	setupCtx, err := c.beginSetup(ctx, ln)
	if err != nil {
		return err
	}
	c.log.Info().Str("addr", ln.Addr().String()).Msg("waiting for opponent")
	conn, err := ln.Accept(setupCtx)
	c.endSetup()
	if err != nil {
		c.fail(setupReason(ctx), err)
		return err
	}
	return c.attach(conn)
}

// Dial connects to the host at addr.
func (c *Channel) Dial(ctx context.Context, addr string) error {
	setupCtx, err := c.beginSetup(ctx, nil)
	if err != nil {
		return err
	}
	c.log.Info().Str("addr", addr).Msg("connecting to host")
	conn, err := Dial(setupCtx, addr, c.opts.ConnectTimeout)
	c.endSetup()
	if err != nil {
		c.fail(setupReason(ctx), err)
		return err
	}
	return c.attach(conn)
}

// Attach adopts an already established connection.
func (c *Channel) Attach(conn net.Conn) error {
	if _, err := c.beginSetup(context.Background(), nil); err != nil {
		return err
	}
	c.endSetup()
	return c.attach(conn)
}

var errClosedWhileConnecting = errors.New("channel closed while connecting")

func setupReason(ctx context.Context) CloseReason {
	if ctx.Err() != nil {
		return ReasonCanceled
	}
	return ReasonTransport
}

// beginSetup moves the channel to Connecting and returns a context that
// Close cancels. A channel already Connecting may only continue with the
// listener it opened itself.
func (c *Channel) beginSetup(ctx context.Context, ln *Listener) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("channel is %s, not idle", StateClosed)
	}
	state := c.State()
	resume := state == StateConnecting && ln != nil && ln == c.ln && c.cancelSetup == nil
	if state != StateIdle && !resume {
		return nil, fmt.Errorf("channel is %s, not idle", state)
	}
	c.state.Store(int32(StateConnecting))
	setupCtx, cancel := context.WithCancel(ctx)
	c.cancelSetup = cancel
	return setupCtx, nil
}

func (c *Channel) endSetup() {
	c.mu.Lock()
	cancel := c.cancelSetup
	c.cancelSetup = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Channel) attach(conn net.Conn) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return errClosedWhileConnecting
	}
	c.conn = conn
	c.ln = nil
	c.mu.Unlock()
	c.state.Store(int32(StateExchanging))
	c.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("opponent connected")
	return nil
}

// Run exchanges scores until the peer disconnects, the local race ends, a
// socket error occurs or ctx is done. Network failures are logged and
// recorded, never returned: Run always returns nil and the cause is
// available from Reason and Err.
func (c *Channel) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running || c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.conn == nil {
		c.mu.Unlock()
		c.fail(ReasonTransport, fmt.Errorf("no connection"))
		return nil
	}
	c.running = true
	conn := c.conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	reason, err := c.loop(ctx, conn)
	c.finish(reason, err)
	return nil
}

func (c *Channel) loop(ctx context.Context, conn net.Conn) (CloseReason, error) {
	buf := make([]byte, MaxMessage)
	var timer *time.Timer
	for {
		wpm := c.src.WPM()
		if err := c.send(conn, wpm); err != nil {
			return c.classify(ctx, err)
		}

		n, err := c.receive(conn, buf)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return ReasonPeerClosed, nil
			}
			return c.classify(ctx, err)
		}
		payload := strings.TrimSpace(string(buf[:n]))
		opp, perr := strconv.Atoi(payload)
		if perr != nil {
			return ReasonBadPayload, fmt.Errorf("failed to parse opponent score %q: %w", payload, perr)
		}
		c.exchanges.Add(1)
		c.publish(Update{WPM: opp})
		c.log.Debug().Int("wpm", wpm).Int("opponent_wpm", opp).Msg("exchanged scores")

		if err != nil {
			if errors.Is(err, io.EOF) {
				return ReasonPeerClosed, nil
			}
			return c.classify(ctx, err)
		}
		if c.src.GameOver() {
			return ReasonGameOver, nil
		}

		if c.opts.Interval < 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(c.opts.Interval)
			defer timer.Stop()
		} else {
			timer.Reset(c.opts.Interval)
		}
		select {
		case <-ctx.Done():
			return ReasonCanceled, nil
		case <-timer.C:
		}
	}
}

func (c *Channel) send(conn net.Conn, wpm int) error {
	if c.opts.IOTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.opts.IOTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(conn, strconv.Itoa(wpm))
	return err
}

func (c *Channel) receive(conn net.Conn, buf []byte) (int, error) {
	if c.opts.IOTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.opts.IOTimeout)); err != nil {
			return 0, err
		}
	}
	return conn.Read(buf)
}

func (c *Channel) classify(ctx context.Context, err error) (CloseReason, error) {
	if ctx.Err() != nil {
		return ReasonCanceled, nil
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ReasonCanceled, nil
	}
	return ReasonTransport, err
}

// publish keeps only the newest update when the reader falls behind.
func (c *Channel) publish(u Update) {
	for {
		select {
		case c.updates <- u:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

func (c *Channel) finish(reason CloseReason, err error) {
	c.mu.Lock()
	conn, ln := c.conn, c.ln
	c.ln = nil
	c.closed = true
	if c.reason == ReasonNone {
		c.reason = reason
		c.err = err
	}
	reason, err = c.reason, c.err
	c.mu.Unlock()

	if ln != nil {
		if cerr := ln.Close(); cerr != nil {
			c.log.Debug().Err(cerr).Msg("failed to close listener")
		}
	}
	if conn != nil {
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			c.log.Debug().Err(cerr).Msg("failed to close connection")
		}
	}
	c.state.Store(int32(StateClosed))
	c.closeUpdate.Do(func() { close(c.updates) })

	ev := c.log.Info()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("reason", reason.String()).Int64("exchanges", c.exchanges.Load()).Msg("score exchange closed")
}

// fail closes a channel that never reached Run.
func (c *Channel) fail(reason CloseReason, err error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.finish(reason, err)
}

// Close shuts the channel down from the owning session. A pending Listen,
// Accept or Dial is canceled; a running exchange stops at its next socket
// operation.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.reason == ReasonNone {
		c.reason = ReasonCanceled
	}
	c.closed = true
	conn := c.conn
	running := c.running
	cancel := c.cancelSetup
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if running {
		if conn != nil {
			if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				return err
			}
		}
		return nil
	}
	c.finish(ReasonCanceled, nil)
	return nil
}

// Updates delivers opponent scores, newest only. It is closed when the
// channel reaches StateClosed.
func (c *Channel) Updates() <-chan Update {
	return c.updates
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Reason returns why the channel closed.
func (c *Channel) Reason() CloseReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Err returns the error that closed the channel, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Exchanges returns how many score pairs were completed.
func (c *Channel) Exchanges() int64 {
	return c.exchanges.Load()
}
