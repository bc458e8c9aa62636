package matrix

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Default timeouts for switcher communication.
const (
	defaultDialTimeout    = 5 * time.Second
	defaultCommandTimeout = 5 * time.Second

	// maxResponseLength bounds a single response line. Crosspoint
	// acknowledgments are short; anything longer means desync.
	maxResponseLength = 512
)

// Switcher executes crosspoint commands against matrix hardware.
// This interface allows mocking the TCP client in tests.
type Switcher interface {
	// Switch routes input to output on the hardware.
	Switch(ctx context.Context, input, output int) error

	// Close releases the connection.
	Close() error
}

// Ensure Client implements Switcher.
var _ Switcher = (*Client)(nil)

// ClientConfig holds switcher connection configuration.
type ClientConfig struct {
	// Address is the switcher's host:port.
	Address string

	// CommandTimeout bounds one request/response exchange.
	// Default: 5 seconds.
	CommandTimeout time.Duration
}

// Client speaks the text-command protocol of a crosspoint matrix over TCP.
//
// The wire exchange is a single line per command:
//
//	> SWITCH 3 7
//	< OK 3 7
//
// Errors come back as "ERR <reason>". The connection is dialled lazily on
// first use and redialled after any exchange failure, so a rebooted
// switcher recovers on the next command without operator action.
//
// Thread Safety: exchanges are serialised; the hardware processes one
// command at a time and interleaved writes would corrupt the protocol.
type Client struct {
	cfg ClientConfig

	mu     sync.Mutex // serialises exchanges and guards conn
	conn   net.Conn
	reader *bufio.Reader

	closed bool
}

// NewClient creates a switcher client. No connection is made until the
// first command.
func NewClient(cfg ClientConfig) *Client {
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	return &Client{cfg: cfg}
}

// Switch routes input to output on the hardware.
//
// Returns:
//   - error: ErrTransportError on timeout, connection failure, or an
//     "ERR" response from the switcher; nil when acknowledged.
func (c *Client) Switch(ctx context.Context, input, output int) error {
	cmd := fmt.Sprintf("SWITCH %d %d\r\n", input, output)

	resp, err := c.exchange(ctx, cmd)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(resp, "OK") {
		return fmt.Errorf("%w: switcher rejected command: %s", ErrTransportError, resp)
	}
	return nil
}

// exchange writes one command line and reads one response line.
func (c *Client) exchange(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrNotConnected
	}

	if err := c.ensureConn(ctx); err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.cfg.CommandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropConn()
		return "", fmt.Errorf("%w: set deadline: %w", ErrTransportError, err)
	}

	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		c.dropConn()
		return "", fmt.Errorf("%w: write: %w", ErrTransportError, err)
	}

	line, err := c.readLine()
	if err != nil {
		c.dropConn()
		return "", fmt.Errorf("%w: read: %w", ErrTransportError, err)
	}

	return strings.TrimSpace(line), nil
}

// ensureConn dials the switcher if no connection is held.
// Must be called with c.mu held.
func (c *Client) ensureConn(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", c.cfg.Address)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrTransportError, c.cfg.Address, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// readLine reads one newline-terminated response with a length bound.
// Must be called with c.mu held.
func (c *Client) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) > maxResponseLength {
		return "", fmt.Errorf("oversized response (%d bytes)", len(line))
	}
	return line, nil
}

// dropConn discards the connection so the next command redials.
// Must be called with c.mu held.
func (c *Client) dropConn() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// Close releases the connection. Subsequent commands fail with
// ErrNotConnected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.dropConn()
	return nil
}
