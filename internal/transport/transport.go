// Package transport owns the single outbound observer connection of a
// tracing session. Telemetry is fire and forget: no acknowledgement, no
// backpressure, no retry. The first write failure deactivates the client for
// the rest of the session so the traced program never crashes or stalls
// because the observer went away.
package transport

import (
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"sightline/internal/event"
)

// Config holds the observer endpoint and write behavior.
type Config struct {
	Host string
	Port int

	// Codec frames outgoing messages. Nil selects NDJSON.
	Codec event.Codec

	// DialTimeout bounds the initial connection attempt. Zero means 3s.
	DialTimeout time.Duration

	// WriteTimeout, when positive, bounds each write; an expired deadline
	// deactivates the client like any other write failure. Zero disables the
	// deadline, accepting that a slow peer can stall the traced program.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Client streams events and control messages to the observer.
type Client struct {
	mu           sync.Mutex
	conn         net.Conn
	codec        event.Codec
	writeTimeout time.Duration
	logger       *slog.Logger
	active       bool
}

// Dial opens the observer connection. On failure it returns an inactive
// client together with the error; callers are expected to continue the
// session with transmission disabled rather than fail.
func Dial(cfg Config) (*Client, error) {
	if cfg.Codec == nil {
		cfg.Codec = event.JSONCodec{}
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		codec:        cfg.Codec,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return c, err
	}

	c.conn = conn
	c.active = true
	return c, nil
}

// Active reports whether sends still reach the observer.
func (c *Client) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Send serializes v and writes it to the observer. Inactive clients no-op.
// A serialization fault skips the message; a write fault deactivates the
// client for the remainder of the session. Send never returns an error to
// the capture path.
func (c *Client) Send(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}

	data, err := c.codec.Encode(v)
	if err != nil {
		c.logger.Warn("dropping unserializable message", "err", err)
		return
	}

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}

	if _, err := c.conn.Write(data); err != nil {
		c.active = false
		c.logger.Warn("observer connection lost; transmission disabled for this session", "err", err)
	}
}

// Close shuts the connection down and deactivates the client. Safe to call
// on a never-connected client and safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
