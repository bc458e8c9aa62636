package cecbus

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default timeouts for gateway communication.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultCommandTimeout = 5 * time.Second

	// maxResponseLength bounds a single gateway response line.
	maxResponseLength = 512
)

// Op is a bus-level CEC operation the gateway understands.
type Op string

// Gateway operations. The gateway daemon translates these into CEC
// opcodes on the bus; this client never sees raw frames.
const (
	OpPowerOn    Op = "ON"
	OpStandby    Op = "STANDBY"
	OpVolumeUp   Op = "VOLUP"
	OpVolumeDown Op = "VOLDOWN"
	OpMute       Op = "MUTE"
	OpKey        Op = "KEY" // followed by a key name argument
)

// Config holds gateway connection configuration.
type Config struct {
	// Connection is the gateway connection URL.
	// Supported formats:
	//   - "unix:///run/cecgate" (Unix socket)
	//   - "tcp://localhost:9526" (TCP)
	Connection string

	// ConnectTimeout is the maximum time to wait for connection.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// CommandTimeout bounds one request/response exchange.
	// Default: 5 seconds.
	CommandTimeout time.Duration
}

// Stats holds operational statistics.
type Stats struct {
	CommandsTx   uint64
	ErrorsTotal  uint64
	LastActivity time.Time
	Connected    bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Bus is the interface for CEC gateway operations.
// This allows mocking the gateway client in tests.
type Bus interface {
	// Send issues one operation addressed to the display on the given
	// matrix output and waits for the gateway's acknowledgment.
	Send(ctx context.Context, output int, op Op, args ...string) error

	// IsConnected returns true if the gateway link is up.
	IsConnected() bool

	// Close releases the connection.
	Close() error
}

// Ensure Client implements Bus.
var _ Bus = (*Client)(nil)

// Client provides connection to a CEC gateway daemon.
//
// The gateway owns the physical CEC adapters and exposes a line protocol:
//
//	> TX 7 ON
//	< OK
//
//	> TX 7 KEY up
//	< NAK          (frame sent, display did not acknowledge)
//	< ERR <reason> (gateway-side failure)
//
// Thread Safety:
//   - All methods are safe for concurrent use; exchanges are serialised
//     because the gateway processes one request per connection at a time.
//
// Reconnection:
//   - A failed exchange drops the connection; the next Send redials.
type Client struct {
	cfg Config

	mu     sync.Mutex // serialises exchanges and guards conn
	conn   net.Conn
	reader *bufio.Reader
	closed bool

	// Connection state, readable without taking mu.
	connected atomic.Bool

	// Statistics
	commandsTx   atomic.Uint64
	errorsTotal  atomic.Uint64
	lastActivity atomic.Int64 // Unix timestamp

	logger Logger
}

// Connect establishes the initial connection to the gateway daemon.
//
// Parameters:
//   - ctx: Context for cancellation (used for initial connection)
//   - cfg: Connection configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the connection URL is invalid or dialling fails
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}

	client := &Client{cfg: cfg}

	client.mu.Lock()
	err := client.dial(ctx)
	client.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return client, nil
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// parseConnectionURL parses a gateway connection URL into network and address.
func parseConnectionURL(connURL string) (network, address string, err error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "unix":
		return "unix", u.Path, nil
	case "tcp":
		host := u.Host
		if host == "" {
			host = "localhost:9526"
		}
		return "tcp", host, nil
	default:
		return "", "", fmt.Errorf("unsupported scheme %q (use unix or tcp)", u.Scheme)
	}
}

// dial establishes the gateway connection. Must be called with c.mu held.
func (c *Client) dial(ctx context.Context) error {
	network, address, err := parseConnectionURL(c.cfg.Connection)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, network, address)
	if err != nil {
		return fmt.Errorf("%w: dial failed: %w", ErrConnectionFailed, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected.Store(true)
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// Send issues one operation to the display on the given matrix output.
//
// Returns:
//   - error: nil when the gateway acknowledges; ErrDeviceNack when the
//     display ignores the frame; ErrCommandFailed on timeout or a
//     gateway-reported error; ErrNotConnected after Close().
func (c *Client) Send(ctx context.Context, output int, op Op, args ...string) error {
	line := fmt.Sprintf("TX %d %s", output, op)
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}

	resp, err := c.exchange(ctx, line+"\n")
	if err != nil {
		c.errorsTotal.Add(1)
		return err
	}

	c.commandsTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())

	switch {
	case resp == "OK":
		return nil
	case resp == "NAK":
		return fmt.Errorf("%w: output %d, op %s", ErrDeviceNack, output, op)
	case strings.HasPrefix(resp, "ERR"):
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: %s", ErrCommandFailed, strings.TrimSpace(strings.TrimPrefix(resp, "ERR")))
	default:
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: unexpected response %q", ErrCommandFailed, resp)
	}
}

// exchange writes one request line and reads one response line.
func (c *Client) exchange(ctx context.Context, line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrNotConnected
	}

	if c.conn == nil {
		if err := c.dial(ctx); err != nil {
			return "", err
		}
		c.logInfo("gateway reconnected")
	}

	deadline := time.Now().Add(c.cfg.CommandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropConn()
		return "", fmt.Errorf("%w: set deadline: %w", ErrCommandFailed, err)
	}

	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.dropConn()
		return "", fmt.Errorf("%w: write: %w", ErrCommandFailed, err)
	}

	resp, err := c.reader.ReadString('\n')
	if err != nil {
		c.dropConn()
		return "", fmt.Errorf("%w: read: %w", ErrCommandFailed, err)
	}
	if len(resp) > maxResponseLength {
		c.dropConn()
		return "", fmt.Errorf("%w: oversized response (%d bytes)", ErrCommandFailed, len(resp))
	}

	return strings.TrimSpace(resp), nil
}

// dropConn discards the connection so the next Send redials.
// Must be called with c.mu held.
func (c *Client) dropConn() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
	c.connected.Store(false)
}

// IsConnected returns true if the gateway link is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	return Stats{
		CommandsTx:   c.commandsTx.Load(),
		ErrorsTotal:  c.errorsTotal.Load(),
		LastActivity: time.Unix(c.lastActivity.Load(), 0),
		Connected:    c.connected.Load(),
	}
}

// Close gracefully closes the connection. Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.dropConn()
	c.logInfo("connection closed")
	return nil
}

// logInfo logs an info message if a logger is set.
// Must be called with c.mu held.
func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}
