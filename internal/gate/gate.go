// Package gate defers client-channel emission until the third-party pixel
// script reports itself initialized. The gate is a small state machine:
//
//	WAITING(attempt) -> READY     channel initialized and channel id present
//	WAITING(n)       -> WAITING(n+1) on each poll tick while n < maxAttempts
//	WAITING(max)     -> GAVE_UP   attempts exhausted
//
// READY and GAVE_UP are terminal. One gate instance exists per cold start of
// the client channel, not per event.
package gate

import (
	"log"
	"sync"
	"time"
)

// State is the gate's lifecycle state.
type State int

const (
	StateWaiting State = iota
	StateReady
	StateGaveUp
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateGaveUp:
		return "gave_up"
	}
	return "unknown"
}

// Clock abstracts time so the polling loop is testable without real timers.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall-clock implementation.
func RealClock() Clock { return realClock{} }

// Probe reports the client channel's initialization status. Readiness
// requires both: the channel says it is initialized AND it has a channel
// identifier to send with.
type Probe interface {
	Initialized() bool
	ChannelID() string
}

// Gate waits for the probe with a fixed polling interval and a hard attempt
// ceiling, then either flushes or drops the queued callbacks.
type Gate struct {
	probe       Probe
	interval    time.Duration
	maxAttempts int
	clock       Clock
	logf        func(format string, v ...any)

	mu      sync.Mutex
	state   State
	attempt int
	pending []func()
	started bool
}

func New(probe Probe, interval time.Duration, maxAttempts int, clock Clock, logf func(string, ...any)) *Gate {
	if clock == nil {
		clock = realClock{}
	}
	if logf == nil {
		logf = log.Printf
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Gate{
		probe:       probe,
		interval:    interval,
		maxAttempts: maxAttempts,
		clock:       clock,
		logf:        logf,
		state:       StateWaiting,
		attempt:     1,
	}
}

// Start launches the polling loop. Calling it again is a no-op.
func (g *Gate) Start() {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.mu.Unlock()
	go g.poll()
}

// State returns the current lifecycle state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// WhenReady runs fn immediately if the gate is READY, queues it while
// WAITING, and drops it (never runs) once the gate has GAVE_UP. A queued fn
// runs at most once, on the READY transition.
func (g *Gate) WhenReady(fn func()) {
	g.mu.Lock()
	switch g.state {
	case StateReady:
		g.mu.Unlock()
		fn()
	case StateGaveUp:
		g.mu.Unlock()
	default:
		g.pending = append(g.pending, fn)
		g.mu.Unlock()
	}
}

func (g *Gate) poll() {
	for {
		ready := g.probe.Initialized() && g.probe.ChannelID() != ""

		g.mu.Lock()
		if g.state != StateWaiting {
			g.mu.Unlock()
			return
		}
		if ready {
			g.state = StateReady
			attempt := g.attempt
			pending := g.pending
			g.pending = nil
			g.mu.Unlock()
			g.logf("[gate] client channel ready after %d attempt(s)", attempt)
			for _, fn := range pending {
				fn()
			}
			return
		}
		if g.attempt >= g.maxAttempts {
			g.state = StateGaveUp
			dropped := len(g.pending)
			g.pending = nil
			g.mu.Unlock()
			g.logf("[gate] client channel never initialized after %d attempts, dropped %d queued send(s)", g.maxAttempts, dropped)
			return
		}
		g.attempt++
		g.mu.Unlock()

		<-g.clock.After(g.interval)
	}
}
