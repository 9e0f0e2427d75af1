// Package searchd is a client for the search daemon's length-prefixed binary
// protocol. Every call opens its own session: connect, handshake, one
// request/response exchange, close.
package searchd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain"
)

// Compile-time check: Client implements db.Daemon.
var _ db.Daemon = (*Client)(nil)

// Protocol constants.
const (
	protocolVersion = 1

	commandSearch  uint16 = 0
	commandExcerpt uint16 = 1

	versionSearch  uint16 = 0x113
	versionExcerpt uint16 = 0x100

	statusOK      = 0
	statusError   = 1
	statusRetry   = 2
	statusWarning = 3

	// maxResponseSize bounds a single reply; anything larger is a corrupt header.
	maxResponseSize = 64 << 20
)

// Dialer opens transport connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds connection parameters for the daemon.
type Config struct {
	Host string
	Port int
	// ConnectTimeout bounds dialing; IOTimeout bounds one request/response exchange.
	// Context deadlines apply on top of both.
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
	// Dialer defaults to a *net.Dialer.
	Dialer Dialer
}

// Client talks to one daemon instance.
type Client struct {
	addr      string
	dialer    Dialer
	ioTimeout time.Duration
}

// New creates a daemon client. It does not connect.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: cfg.ConnectTimeout}
	}
	return &Client{
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		dialer:    dialer,
		ioTimeout: cfg.IOTimeout,
	}, nil
}

// Addr returns the daemon address.
func (c *Client) Addr() string { return c.addr }

// Ping opens a session and completes the handshake.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, &db.Error{Op: db.OpHandshake, Err: classify(ctx, err)}
	}

	deadline, ok := ctx.Deadline()
	if c.ioTimeout > 0 {
		if d := time.Now().Add(c.ioTimeout); !ok || d.Before(deadline) {
			deadline, ok = d, true
		}
	}
	if ok {
		_ = conn.SetDeadline(deadline)
	}

	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpHandshake, Err: classify(ctx, err)}
	}
	if v := binary.BigEndian.Uint32(hdr[:]); v < protocolVersion {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpHandshake, Err: domain.Responsef(
			"expected daemon protocol version %d+, got %d", protocolVersion, v)}
	}

	binary.BigEndian.PutUint32(hdr[:], protocolVersion)
	if _, err := conn.Write(hdr[:]); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpHandshake, Err: classify(ctx, err)}
	}
	return conn, nil
}

// roundTrip sends one framed command and returns the reply body with any
// warning prefix stripped.
func (c *Client) roundTrip(
	ctx context.Context, op string, command, version uint16, body []byte,
) ([]byte, string, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = conn.Close() }()

	// Close the connection on cancellation so blocked reads return.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint16(req[0:], command)
	binary.BigEndian.PutUint16(req[2:], version)
	binary.BigEndian.PutUint32(req[4:], uint32(len(body))) //nolint:gosec // bodies are far below 4GiB
	req = append(req, body...)
	if _, err := conn.Write(req); err != nil {
		return nil, "", &db.Error{Op: op, Err: classify(ctx, err)}
	}

	var hdr [8]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, "", &db.Error{Op: op, Err: classify(ctx, err)}
	}
	status := binary.BigEndian.Uint16(hdr[0:])
	size := binary.BigEndian.Uint32(hdr[4:])
	if size > maxResponseSize {
		return nil, "", &db.Error{Op: op, Err: domain.Responsef("reply of %d bytes exceeds limit", size)}
	}

	reply := make([]byte, size)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return nil, "", &db.Error{Op: op, Err: classify(ctx, err)}
	}

	r := &reader{buf: reply}
	switch status {
	case statusOK:
		return reply, "", nil
	case statusWarning:
		warning := r.string()
		if r.err != nil {
			return nil, "", &db.Error{Op: op, Err: domain.Responsef("truncated warning")}
		}
		return r.buf, warning, nil
	case statusRetry:
		return nil, "", &db.Error{Op: op, Err: fmt.Errorf("%w: %s", domain.ErrTransient, r.string())}
	case statusError:
		return nil, "", &db.Error{Op: op, Err: fmt.Errorf("%w: %s", domain.ErrDaemon, r.string())}
	default:
		return nil, "", &db.Error{Op: op, Err: domain.Responsef("unknown reply status %d", status)}
	}
}

// classify tags transport failures as transient. Cancellation is reported
// as the context error so callers do not retry it.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
