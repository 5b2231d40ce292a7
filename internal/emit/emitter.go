// Package emit drains server-channel deliveries off the caller's goroutine.
// Track is fire-and-forget: the dispatcher enqueues and returns; the worker
// performs one best-effort HTTP send per event. Failures are reported and
// dropped, never retried (a retry would need its own identity-safe dedup
// story on the platform side).
package emit

import (
	"context"
	"log"
	"time"

	"example.com/adtrack/internal/channel"
)

// DeliveryLog records per-channel outcomes for the back-office stats surface.
type DeliveryLog interface {
	Record(ctx context.Context, tenantID, ch, eventName string, delivered bool) error
}

// NopLog discards outcomes (no database configured).
type NopLog struct{}

func (NopLog) Record(context.Context, string, string, string, bool) error { return nil }

type Emitter struct {
	queue       chan channel.Delivery
	server      channel.Server
	outcomes    DeliveryLog
	sendTimeout time.Duration
	logf        func(format string, v ...any)
}

func NewEmitter(server channel.Server, outcomes DeliveryLog, queueMaxSize int, sendTimeout time.Duration, logf func(string, ...any)) *Emitter {
	if outcomes == nil {
		outcomes = NopLog{}
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Emitter{
		queue:       make(chan channel.Delivery, queueMaxSize),
		server:      server,
		outcomes:    outcomes,
		sendTimeout: sendTimeout,
		logf:        logf,
	}
}

// Start launches the delivery worker. It drains until ctx is cancelled;
// in-flight and still-queued deliveries are abandoned at teardown
// (best-effort analytics, not transactional writes).
func (e *Emitter) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-e.queue:
				e.deliver(d)
			}
		}
	}()
}

// Enqueue hands a delivery to the worker without blocking. A full queue
// drops the delivery and returns false.
func (e *Emitter) Enqueue(d channel.Delivery) bool {
	select {
	case e.queue <- d:
		return true
	default:
		return false
	}
}

func (e *Emitter) deliver(d channel.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), e.sendTimeout)
	defer cancel()

	err := e.server.Send(ctx, d)
	if err != nil {
		e.logf("[emit] server channel send FAILED: tenant=%s event=%s id=%s err=%v",
			d.TenantID, d.Event.Name, d.Event.EventID, err)
	}
	if rerr := e.outcomes.Record(ctx, d.TenantID, "server", string(d.Event.Name), err == nil); rerr != nil {
		e.logf("[emit] record delivery outcome failed: %v", rerr)
	}
}
