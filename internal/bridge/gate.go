package bridge

import (
	"sync"

	"github.com/ncviewer/ncviewer/internal/log"
)

// GateState is the readiness of the receiving side.
type GateState int

const (
	// NotReady queues outbound messages.
	NotReady GateState = iota
	// Ready forwards outbound messages immediately.
	Ready
)

func (s GateState) String() string {
	if s == Ready {
		return "ready"
	}
	return "not-ready"
}

// ReadyGate holds outbound messages until the receiver announces readiness,
// then flushes them once in FIFO order and forwards everything after.
type ReadyGate struct {
	mu    sync.Mutex
	state GateState
	queue []string
	send  func(string) error
}

// NewReadyGate returns a gate in NotReady that forwards through send.
func NewReadyGate(send func(string) error) *ReadyGate {
	return &ReadyGate{send: send}
}

// Send forwards msg when ready, otherwise queues it.
func (g *ReadyGate) Send(msg string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == NotReady {
		g.queue = append(g.queue, msg)
		return nil
	}
	return g.send(msg)
}

// MarkReady transitions to Ready and flushes the queue in order. A second
// call is a no-op. The first send error is returned after the whole queue
// has been attempted.
func (g *ReadyGate) MarkReady() (flushed int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Ready {
		return 0, nil
	}
	g.state = Ready

	queue := g.queue
	g.queue = nil
	for _, msg := range queue {
		if sendErr := g.send(msg); sendErr != nil {
			log.ErrorErr(log.CatBridge, "flush failed", sendErr)
			if err == nil {
				err = sendErr
			}
			continue
		}
		flushed++
	}
	if len(queue) > 0 {
		log.Debug(log.CatBridge, "gate flushed", "count", flushed)
	}
	return flushed, err
}

// Reset returns to NotReady and drops anything still queued.
func (g *ReadyGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = NotReady
	g.queue = nil
}

// Clear drops anything still queued and keeps the current state.
func (g *ReadyGate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = nil
}

// State returns the current state.
func (g *ReadyGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Pending returns the number of queued messages.
func (g *ReadyGate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}
