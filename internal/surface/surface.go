// Package surface runs a headless rendering surface: it connects to a host's
// bridge channel, applies every host message to a viewer.Engine and posts the
// engine's requests back.
package surface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ncviewer/ncviewer/internal/bridge"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/pubsub"
	"github.com/ncviewer/ncviewer/internal/viewer"
)

// Poll cadence defaults.
const (
	DefaultRetryInterval  = time.Second
	DefaultActiveInterval = 10 * time.Millisecond
	DefaultIdleInterval   = 250 * time.Millisecond
	DefaultErrorInterval  = time.Second
	postTimeout           = 5 * time.Second
)

// ErrNotConnected is returned when posting before the host was reached.
var ErrNotConnected = errors.New("surface: not connected")

// Config describes how to reach the host.
type Config struct {
	Endpoint   string
	Token      string
	HTTPClient *http.Client

	RetryInterval  time.Duration
	ActiveInterval time.Duration
	IdleInterval   time.Duration
	ErrorInterval  time.Duration

	Viewer viewer.Options
}

func (c *Config) applyDefaults() {
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.ActiveInterval <= 0 {
		c.ActiveInterval = DefaultActiveInterval
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = DefaultIdleInterval
	}
	if c.ErrorInterval <= 0 {
		c.ErrorInterval = DefaultErrorInterval
	}
}

// Surface owns one engine and its connection.
type Surface struct {
	cfg    Config
	client *bridge.Client
	engine *viewer.Engine
	debug  *bridge.ReadyGate
	events *pubsub.Broker[protocol.Message]

	mu        sync.Mutex
	connected bool
	after     uint64
}

// New returns a surface for cfg. Nothing is contacted until Run.
func New(cfg Config) *Surface {
	cfg.applyDefaults()
	s := &Surface{
		cfg:    cfg,
		client: bridge.NewClient(cfg.Endpoint, cfg.Token, cfg.HTTPClient),
		events: pubsub.NewBroker[protocol.Message](),
	}
	s.debug = bridge.NewReadyGate(s.postRaw)
	s.engine = viewer.New(s, cfg.Viewer)
	return s
}

// Engine returns the surface's engine.
func (s *Surface) Engine() *viewer.Engine {
	return s.engine
}

// Events reports connection and every applied host message.
func (s *Surface) Events() pubsub.Subscriber[protocol.Message] {
	return s.events
}

// Connected reports whether the host has been reached.
func (s *Surface) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Post sends an engine request to the host. Requests made before the host
// is reached are dropped.
func (s *Surface) Post(msg protocol.Message) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return s.postRaw(payload)
}

// Debug reports a diagnostic line to the host. Lines written before the
// host is reached are queued and flushed on connect.
func (s *Surface) Debug(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	log.Debug(log.CatSurface, "bridge debug", "message", text)
	if err := s.debug.Send(protocol.MustEncode(protocol.BridgeDebug(text))); err != nil {
		log.ErrorErr(log.CatSurface, "debug post failed", err)
	}
}

func (s *Surface) postRaw(payload string) error {
	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()
	return s.client.Post(ctx, payload)
}

// Run connects, announces readiness and polls until ctx ends. It returns
// ctx.Err() on cancellation.
func (s *Surface) Run(ctx context.Context) error {
	defer s.events.Close()

	if err := s.connect(ctx); err != nil {
		return err
	}
	if err := s.Post(protocol.WebviewReady()); err != nil {
		log.ErrorErr(log.CatSurface, "webviewReady failed", err)
	}

	for {
		wait := s.pollOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Surface) connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := s.client.Health(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug(log.CatSurface, "host not reachable", "attempt", attempt, "error", err)
		if err := sleep(ctx, s.cfg.RetryInterval); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	flushed, err := s.debug.MarkReady()
	if err != nil {
		log.ErrorErr(log.CatSurface, "debug flush failed", err)
	}
	log.Info(log.CatSurface, "connected", "endpoint", s.client.Endpoint(), "flushed", flushed)
	s.events.Publish(pubsub.ConnectedEvent, protocol.Message{})
	return nil
}

// pollOnce fetches and applies at most one envelope and returns how long to
// wait before the next poll.
func (s *Surface) pollOnce(ctx context.Context) time.Duration {
	s.mu.Lock()
	after := s.after
	s.mu.Unlock()

	env, ok, err := s.client.Poll(ctx, after)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn(log.CatSurface, "poll failed", "error", err)
		}
		return s.cfg.ErrorInterval
	}
	if !ok {
		return s.cfg.IdleInterval
	}

	s.mu.Lock()
	s.after = env.Version
	s.mu.Unlock()

	s.apply(ctx, env.Message)
	return s.cfg.ActiveInterval
}

// apply decodes and hands one message to the engine. Undecodable payloads
// and handler panics are reported to the host instead of stopping the loop.
func (s *Surface) apply(ctx context.Context, payload string) {
	defer func() {
		if r := recover(); r != nil {
			s.Debug("error handling message: %v", r)
		}
	}()

	msg, err := protocol.Decode(payload)
	if err != nil {
		s.Debug("error handling message: %v", err)
		return
	}
	if err := s.engine.Handle(ctx, msg); err != nil {
		s.Debug("error handling %s: %v", msg.Type, err)
		return
	}
	s.events.Publish(pubsub.HandledEvent, msg)
}

// Version returns the last envelope version applied.
func (s *Surface) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.after
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
