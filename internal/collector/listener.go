package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tahomarobotics/koala/internal/discovery"
	"github.com/tahomarobotics/koala/internal/wire"
)

var ErrAlreadyListening = errors.New("collector: listener already started")

// RecordStore is the storage collaborator. The collector never inspects
// the body beyond the routing tag.
type RecordStore interface {
	StoreRecord(ctx context.Context, tag wire.Tag, body json.RawMessage) error
}

// FileSink is the file-transfer collaborator. It owns safe path
// handling for the client-supplied name.
type FileSink interface {
	StoreFile(name string, data []byte) error
}

// Observer receives the raw text of every decoded frame. Observers run
// synchronously in registration order before routing; registration must
// finish before Start, there is no synchronization afterwards.
type Observer func(frameText string)

// Config defines listener bind and advertisement behavior.
type Config struct {
	BindAddr    string
	Port        int
	Advertise   bool
	Instance    string
	Description string
	Limits      wire.Limits

	// AcceptPit routes pit envelopes to the store. Off by default: the
	// pit tag is reserved and dropped.
	AcceptPit bool
}

func DefaultConfig() Config {
	return Config{
		Port:        2046,
		Advertise:   true,
		Instance:    discovery.DefaultInstance,
		Description: discovery.DefaultDescription,
		Limits:      wire.DefaultLimits(),
	}
}

type state int

const (
	stateStopped state = iota
	stateListening
)

// Listener accepts client connections and runs one handler goroutine
// per connection, unbounded, matching a small trusted-LAN deployment.
type Listener struct {
	cfg   Config
	store RecordStore
	files FileSink

	observers []Observer

	mu    sync.Mutex
	state state
	ln    net.Listener
	adv   *discovery.Advertiser

	handlers sync.WaitGroup
}

func NewListener(cfg Config, store RecordStore, files FileSink) *Listener {
	if cfg.Instance == "" {
		cfg.Instance = discovery.DefaultInstance
	}
	if cfg.Limits.MaxFrameBytes <= 0 {
		cfg.Limits = wire.DefaultLimits()
	}
	return &Listener{cfg: cfg, store: store, files: files}
}

// Observe registers a frame observer. Call only before Start.
func (l *Listener) Observe(fn Observer) {
	l.observers = append(l.observers, fn)
}

// Start binds the listening socket, optionally advertises it over mDNS,
// and spawns the accept loop. It returns once the socket is listening.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateListening {
		return ErrAlreadyListening
	}

	addr := net.JoinHostPort(l.cfg.BindAddr, strconv.Itoa(l.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("collector: listen %s: %w", addr, err)
	}

	if l.cfg.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := discovery.Advertise(l.cfg.Instance, port, l.cfg.Description, nil)
		if err != nil {
			_ = ln.Close()
			return err
		}
		l.adv = adv
	}

	l.ln = ln
	l.state = stateListening
	log.Info().Str("addr", ln.Addr().String()).Msg("collector listening")

	go l.acceptLoop(ln)
	return nil
}

// Addr returns the bound address, or nil while stopped. Useful with
// port 0.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stop closes the listening socket and unregisters the advertisement.
// In-flight connection handlers are not cancelled; they exit when their
// peer closes or on their next read error. Idempotent.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateStopped {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	l.adv.Shutdown()
	l.adv = nil
	l.state = stateStopped
	log.Info().Msg("collector stopped")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Wait blocks until all connection handlers have drained. Intended for
// tests and orderly shutdown after Stop.
func (l *Listener) Wait() {
	l.handlers.Wait()
}

func (l *Listener) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// A closed socket is the normal path to Stopped.
			if errors.Is(err, net.ErrClosed) {
				log.Debug().Msg("accept loop exiting")
			} else {
				log.Error().Err(err).Msg("accept failed, listener exiting")
			}
			return
		}
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")
		l.handlers.Add(1)
		go l.handleConn(conn)
	}
}
