package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultPort is the well-known port hosts listen on.
const DefaultPort = 5555

// Listener accepts exactly one opponent.
type Listener struct {
	ln        net.Listener
	closeOnce sync.Once
}

// Listen opens the host's listening socket. Bind failures are returned so
// the caller can fall back to a solo session.
func Listen(ctx context.Context, addr string) (*Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound TCP port.
func (l *Listener) Port() int {
	if tcp, ok := l.ln.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Accept blocks until one client connects or ctx is done, then stops
// listening. A Listener accepts at most one connection.
func (l *Listener) Accept(ctx context.Context) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := l.ln.Accept()
		done <- result{conn: conn, err: err}
	}()

	select {
	case res := <-done:
		if cerr := l.Close(); cerr != nil {
			// Best-effort close once the single client is in.
			_ = cerr
		}
		if res.err != nil {
			return nil, fmt.Errorf("failed to accept opponent: %w", res.err)
		}
		return res.conn, nil
	case <-ctx.Done():
		if cerr := l.Close(); cerr != nil {
			_ = cerr
		}
		if res := <-done; res.conn != nil {
			_ = res.conn.Close()
		}
		return nil, fmt.Errorf("failed to accept opponent: %w", ctx.Err())
	}
}

// Close stops listening. Safe to call more than once.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.ln.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}

// Dial connects to a host. A zero timeout waits as long as ctx allows.
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}

// HostAddress adds the default port to a bare host. An address that already
// carries a port is returned unchanged.
func HostAddress(input string, port int) (string, error) {
	if input == "" {
		return "", fmt.Errorf("host address is empty")
	}
	if host, p, err := net.SplitHostPort(input); err == nil {
		if host == "" {
			return "", fmt.Errorf("host address %q has no host", input)
		}
		n, perr := strconv.Atoi(p)
		if perr != nil || n <= 0 || n > 65535 {
			return "", fmt.Errorf("invalid port in %q", input)
		}
		return input, nil
	}
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(input, strconv.Itoa(port)), nil
}
