package irhub

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Transceiver sends infrared commands and captures new ones from a
// physical remote pointed at the hub's learning sensor.
type Transceiver interface {
	// SendCode transmits a raw IR code on the given emitter port.
	SendCode(ctx context.Context, port int, code string) error

	// Learn places the hub in capture mode and blocks until a code is
	// captured, the window elapses, or the context is cancelled.
	Learn(ctx context.Context, port int, window time.Duration) (string, error)

	// Close releases the connection.
	Close() error
}

const (
	// maxResponseLength bounds a single response line from the hub.
	// Learned codes are long but still fit comfortably in 4 KiB.
	maxResponseLength = 4096

	defaultDialTimeout    = 5 * time.Second
	defaultCommandTimeout = 5 * time.Second
)

// Client is a TCP client for an IR transceiver hub. The hub speaks a
// newline-terminated ASCII protocol:
//
//	sendir,<port>,<code>      -> completeir,<port> | ERR <reason>
//	learn,<port>              -> ir,<code> | timeout | ERR <reason>
//
// A single connection is shared and exchanges are serialised. The
// connection is established lazily on first use and re-dialled after
// errors.
type Client struct {
	address        string
	dialTimeout    time.Duration
	commandTimeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialTimeout sets the connection timeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// WithCommandTimeout sets the per-exchange timeout for sends. Learn
// exchanges use the caller's capture window instead.
func WithCommandTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.commandTimeout = d }
}

// NewClient creates a client for the hub at address (host:port). No
// connection is made until the first exchange.
func NewClient(address string, opts ...ClientOption) *Client {
	c := &Client{
		address:        address,
		dialTimeout:    defaultDialTimeout,
		commandTimeout: defaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendCode transmits a raw IR code on the given emitter port.
func (c *Client) SendCode(ctx context.Context, port int, code string) error {
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrSendFailed)
	}

	request := "sendir," + strconv.Itoa(port) + "," + code
	response, err := c.exchange(ctx, request, c.commandTimeout)
	if err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(response, "completeir"):
		return nil
	case strings.HasPrefix(response, "ERR "):
		return fmt.Errorf("%w: %s", ErrSendFailed, strings.TrimPrefix(response, "ERR "))
	default:
		return fmt.Errorf("%w: unexpected response %q", ErrSendFailed, response)
	}
}

// Learn places the hub in capture mode on the given port and waits up
// to window for a code. Returns ErrNoSignal if nothing was captured.
func (c *Client) Learn(ctx context.Context, port int, window time.Duration) (string, error) {
	request := "learn," + strconv.Itoa(port)
	response, err := c.exchange(ctx, request, window)
	if err != nil {
		if isTimeout(err) {
			return "", ErrNoSignal
		}
		return "", err
	}

	switch {
	case strings.HasPrefix(response, "ir,"):
		code := strings.TrimPrefix(response, "ir,")
		if code == "" {
			return "", ErrNoSignal
		}
		return code, nil
	case response == "timeout":
		return "", ErrNoSignal
	case strings.HasPrefix(response, "ERR "):
		return "", fmt.Errorf("%w: %s", ErrLearnFailed, strings.TrimPrefix(response, "ERR "))
	default:
		return "", fmt.Errorf("%w: unexpected response %q", ErrLearnFailed, response)
	}
}

// exchange sends a request line and reads one response line under a
// single deadline. The connection is dropped on any I/O error so the
// next exchange re-dials.
func (c *Client) exchange(ctx context.Context, request string, timeout time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrHubOffline
	}
	if err := c.ensureConnLocked(ctx); err != nil {
		return "", err
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropConnLocked()
		return "", fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := c.conn.Write([]byte(request + "\r\n")); err != nil {
		c.dropConnLocked()
		return "", fmt.Errorf("%w: writing request: %v", ErrSendFailed, err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.dropConnLocked()
		return "", fmt.Errorf("reading response: %w", err)
	}
	if len(line) > maxResponseLength {
		c.dropConnLocked()
		return "", fmt.Errorf("%w: response too long", ErrSendFailed)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Client) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %v", ErrHubOffline, c.address, err)
	}
	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, maxResponseLength)
	return nil
}

func (c *Client) dropConnLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// Close releases the connection. Subsequent exchanges fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.dropConnLocked()
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
