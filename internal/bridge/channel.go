// Package bridge is the duplex message channel between a host and a
// rendering surface. The host publishes into a bounded, versioned buffer
// that the surface polls over loopback HTTP; the surface submits payloads
// that are delivered to the host's registered listeners.
package bridge

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/pubsub"
	"github.com/ncviewer/ncviewer/internal/tracing"
)

const (
	// DefaultCapacity is the number of envelopes retained for pollers.
	DefaultCapacity = 128
	// DefaultBasePath prefixes every route.
	DefaultBasePath = "/ncbridge"
	// DefaultAddr binds an ephemeral loopback port.
	DefaultAddr = "127.0.0.1:0"
	// TokenHeader carries the per-channel secret.
	TokenHeader = "X-Ncviewer-Token"
)

var (
	// ErrStopped is returned by every operation after Stop.
	ErrStopped = errors.New("bridge stopped")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("bridge already started")
	// ErrUnauthorized is returned by the client on a 401.
	ErrUnauthorized = errors.New("bridge: unauthorized")
)

// Config configures a Channel.
type Config struct {
	// Addr is the listen address. Default "127.0.0.1:0".
	Addr string
	// BasePath prefixes the poll, event and health routes. Default "/ncbridge".
	BasePath string
	// Capacity bounds the envelope buffer. Default 128.
	Capacity int
	// ShutdownTimeout bounds how long Stop waits for in-flight requests.
	ShutdownTimeout time.Duration
	// Verbose logs every publish and submit.
	Verbose bool
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 2 * time.Second
	}
}

// Listener handles a submitted payload. Returned errors and panics are
// logged and do not affect other listeners.
type Listener func(payload string) error

type listenerEntry struct {
	id uint64
	fn Listener
}

// Channel is one bridge instance. Versions and the secret live as long as
// the Channel; a restarted bridge is a new Channel.
type Channel struct {
	cfg   Config
	token string

	mu      sync.Mutex
	buf     *ring
	version uint64
	stopped bool

	lmu       sync.RWMutex
	listeners []listenerEntry
	nextID    uint64

	srvMu    sync.Mutex
	server   *http.Server
	listener net.Listener
	addr     string
	done     chan struct{}

	activity *pubsub.Broker[Activity]
}

// New creates a channel with a fresh secret. Publish works immediately;
// Start exposes it over HTTP.
func New(cfg Config) *Channel {
	cfg.applyDefaults()
	return &Channel{
		cfg:      cfg,
		token:    uuid.NewString(),
		buf:      newRing(cfg.Capacity),
		activity: pubsub.NewBroker[Activity](),
	}
}

// Token returns the channel secret.
func (c *Channel) Token() string {
	return c.token
}

// Activity exposes bridge events for status displays.
func (c *Channel) Activity() pubsub.Subscriber[Activity] {
	return c.activity
}

// Start binds the listener and serves in the background. It returns the
// bound address, e.g. "127.0.0.1:53817".
func (c *Channel) Start() (string, error) {
	c.srvMu.Lock()
	defer c.srvMu.Unlock()
	if c.isStopped() {
		return "", ErrStopped
	}
	if c.server != nil {
		return "", ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", c.cfg.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", c.cfg.Addr, err)
	}

	c.listener = ln
	c.addr = ln.Addr().String()
	c.done = make(chan struct{})
	c.server = &http.Server{
		Handler:           tracing.HTTPMiddleware(tracing.Tracer(), c.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorErr(log.CatBridge, "bridge server failed", err)
		}
	}(c.server, c.done)

	log.Info(log.CatBridge, "bridge started", "addr", c.addr, "base", c.cfg.BasePath)
	return c.addr, nil
}

// Addr returns the bound address, or "" before Start.
func (c *Channel) Addr() string {
	c.srvMu.Lock()
	defer c.srvMu.Unlock()
	return c.addr
}

// Port returns the bound TCP port, or 0 before Start.
func (c *Channel) Port() int {
	c.srvMu.Lock()
	defer c.srvMu.Unlock()
	if c.listener == nil {
		return 0
	}
	if tcp, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Endpoint returns the base URL the surface polls.
func (c *Channel) Endpoint() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", c.Port(), c.cfg.BasePath)
}

// EndpointScript returns the script tag that points a browser surface at
// this channel.
func (c *Channel) EndpointScript() string {
	return fmt.Sprintf("<script>window.__NC_HTTP_ENDPOINT='%s';window.__NC_HTTP_TOKEN='%s';</script>",
		c.Endpoint(), c.token)
}

// Stop shuts the server down, waiting up to ShutdownTimeout for in-flight
// requests. It is idempotent and safe to call concurrently.
func (c *Channel) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	c.srvMu.Lock()
	srv, done := c.server, c.done
	c.srvMu.Unlock()

	var err error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
		defer cancel()
		if err = srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
		}
		<-done
	}

	c.activity.Publish(pubsub.StoppedEvent, Activity{})
	c.activity.Close()
	log.Info(log.CatBridge, "bridge stopped")
	return err
}

func (c *Channel) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Publish appends message and returns its version. The oldest envelope is
// evicted when the buffer is full; Publish never waits for pollers.
func (c *Channel) Publish(message string) (uint64, error) {
	_, span := tracing.Start(context.Background(), tracing.SpanBridgePublish)
	defer span.End()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		span.SetStatus(codes.Error, ErrStopped.Error())
		return 0, ErrStopped
	}
	c.version++
	v := c.version
	evicted := c.buf.push(MessageEnvelope{Version: v, Message: message})
	c.mu.Unlock()

	span.SetAttributes(attribute.Int64(tracing.AttrEnvelopeVersion, int64(v)))
	if c.cfg.Verbose {
		log.Debug(log.CatBridge, "publish", "version", v, "len", len(message), "evicted", evicted)
	}
	c.activity.Publish(pubsub.PublishedEvent, Activity{Version: v, Bytes: len(message)})
	return v, nil
}

// Poll returns the oldest buffered envelope newer than after. ok is false
// when nothing newer exists. Poll never blocks.
func (c *Channel) Poll(after uint64) (env MessageEnvelope, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return MessageEnvelope{}, false, ErrStopped
	}
	env, ok = c.buf.after(after)
	return env, ok, nil
}

// Latest returns the newest version published so far.
func (c *Channel) Latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Buffered returns how many envelopes are retained.
func (c *Channel) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len()
}

// AddListener registers fn for submitted payloads and returns a func that
// removes it.
func (c *Channel) AddListener(fn Listener) (remove func()) {
	c.lmu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	c.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			defer c.lmu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Submit delivers payload to every listener in registration order and
// returns how many handled it without failing.
func (c *Channel) Submit(payload string) (int, error) {
	if c.isStopped() {
		return 0, ErrStopped
	}
	_, span := tracing.Start(context.Background(), tracing.SpanBridgeSubmit)
	defer span.End()

	c.lmu.RLock()
	snapshot := make([]listenerEntry, len(c.listeners))
	copy(snapshot, c.listeners)
	c.lmu.RUnlock()

	if c.cfg.Verbose {
		log.Debug(log.CatBridge, "submit", "len", len(payload), "listeners", len(snapshot))
	}

	ok, failed := 0, 0
	for _, l := range snapshot {
		if err := invoke(l.fn, payload); err != nil {
			failed++
			log.ErrorErr(log.CatBridge, "listener failed", err, "listener", l.id)
			c.activity.Publish(pubsub.FailedEvent, Activity{Bytes: len(payload), Err: err})
			continue
		}
		ok++
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrListenerCount, len(snapshot)),
		attribute.Int(tracing.AttrListenerFailed, failed),
	)
	c.activity.Publish(pubsub.DeliveredEvent, Activity{Bytes: len(payload), Listeners: ok})
	return ok, nil
}

// invoke runs fn, turning a panic into an error.
func invoke(fn Listener, payload string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(payload)
}

func (c *Channel) authorized(r *http.Request) bool {
	got := r.Header.Get(TokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(c.token)) == 1
}
