// Package client owns the field-device side of the koala transfer
// protocol: one outbound connection to the collector, envelope and file
// sends, and mDNS-driven connection setup.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tahomarobotics/koala/internal/discovery"
	"github.com/tahomarobotics/koala/internal/wire"
)

var (
	ErrNotConnected     = errors.New("client: not connected to a collector")
	ErrAlreadyConnected = errors.New("client: connection already open")
)

// Config defines client connection and discovery behavior.
type Config struct {
	Instance         string
	ConnectTimeout   time.Duration
	DiscoveryTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Instance:         discovery.DefaultInstance,
		ConnectTimeout:   3 * time.Second,
		DiscoveryTimeout: 10 * time.Second,
	}
}

// Client holds zero-or-one live connection to a collector. Sends on a
// disconnected client fail with ErrNotConnected and touch no socket.
type Client struct {
	cfg Config

	mu   sync.Mutex
	conn net.Conn
	w    *wire.Writer
}

func New(cfg Config) *Client {
	if cfg.Instance == "" {
		cfg.Instance = discovery.DefaultInstance
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = DefaultConfig().DiscoveryTimeout
	}
	return &Client{cfg: cfg}
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the single outbound connection.
func (c *Client) Connect(host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("client: connect %s: %w", addr, err)
	}
	c.conn = conn
	c.w = wire.NewWriter(conn)
	log.Info().Str("addr", addr).Msg("connected to collector")
	return nil
}

// DiscoverAndConnect browses the local network for the configured
// instance and connects to the first resolution.
func (c *Client) DiscoverAndConnect(ctx context.Context) error {
	ep, err := discovery.Discover(ctx, c.cfg.Instance, c.cfg.DiscoveryTimeout)
	if err != nil {
		return err
	}
	return c.Connect(ep.Addr.String(), ep.Port)
}

// Send validates the body locally, wraps it in an envelope with the
// given headers (the first one is the routing tag), and frames it out.
func (c *Client) Send(body json.RawMessage, headers ...string) error {
	if !json.Valid(body) {
		return wire.ErrInvalidPayload
	}
	env := wire.NewEnvelope(body, headers...)
	if err := env.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		log.Warn().Msg("send dropped: not connected")
		return ErrNotConnected
	}
	if err := c.w.WriteEnvelope(env); err != nil {
		return fmt.Errorf("client: send: %w", err)
	}
	log.Debug().Str("tag", env.Tag()).Int("bytes", len(body)).Msg("envelope sent")
	return nil
}

// SendFile transfers a file under the fn: framing; the destination name
// is the path's base name.
func (c *Client) SendFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("client: read %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		log.Warn().Str("path", path).Msg("file send dropped: not connected")
		return ErrNotConnected
	}
	name := filepath.Base(path)
	if err := c.w.WriteFile(name, data); err != nil {
		return fmt.Errorf("client: send file %s: %w", name, err)
	}
	log.Info().Str("file", name).Int("bytes", len(data)).Msg("file sent")
	return nil
}

// Disconnect closes the connection. Subsequent sends fail with
// ErrNotConnected. Idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.w = nil
	log.Info().Msg("disconnected from collector")
	return err
}
