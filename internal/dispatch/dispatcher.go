// Package dispatch is the public surface of the tracking pipeline. Track
// composes the settings snapshot, capability verdict, identity allocation,
// readiness gate, and the two delivery channels. It never blocks on network
// I/O and never surfaces an error: a tracking failure must not break the
// storefront flows that call it.
package dispatch

import (
	"log"
	"time"

	"example.com/adtrack/internal/capability"
	"example.com/adtrack/internal/channel"
	"example.com/adtrack/internal/domain"
	"example.com/adtrack/internal/identity"
	"example.com/adtrack/internal/settings"
)

// Settings is the non-blocking configuration view Track relies on.
type Settings interface {
	Snapshot(tenantID string) settings.Configuration
}

// ReadyGate queues client-channel sends until the pixel script is up.
type ReadyGate interface {
	WhenReady(fn func())
}

// ServerQueue hands deliveries to the async server-channel worker.
type ServerQueue interface {
	Enqueue(d channel.Delivery) bool
}

// Request is one logical tracking call from the storefront glue code.
type Request struct {
	TenantID string
	Event    domain.Event
	Env      capability.Environment
}

type Dispatcher struct {
	settings Settings
	ids      *identity.Generator
	gate     ReadyGate
	client   channel.Client
	queue    ServerQueue
	now      func() time.Time
	logf     func(format string, v ...any)
}

func NewDispatcher(s Settings, ids *identity.Generator, g ReadyGate, client channel.Client, queue ServerQueue, now func() time.Time, logf func(string, ...any)) *Dispatcher {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Dispatcher{
		settings: s,
		ids:      ids,
		gate:     g,
		client:   client,
		queue:    queue,
		now:      now,
		logf:     logf,
	}
}

// Track reports one logical event through the enabled channels and returns
// its identity. The zero EventID means emission was suppressed (event type
// disabled, or the tenant's account ID is malformed); no identity is
// allocated for suppressed events. Both channels receive the same identity
// so the platform can drop the second arrival.
func (d *Dispatcher) Track(req Request) identity.EventID {
	cfg := d.settings.Snapshot(req.TenantID)

	if !cfg.EventEnabled(req.Event.Name) {
		return ""
	}
	if !domain.ValidAccountID(cfg.AccountID) {
		d.logf("[dispatch] malformed account id for tenant=%s, suppressing %s", req.TenantID, req.Event.Name)
		return ""
	}

	ev := req.Event
	if ev.OccurredAt == 0 {
		ev.OccurredAt = d.now().Unix()
	}
	id := d.ids.New()
	ev.EventID = string(id)

	if cfg.ClientEnabled {
		cls := capability.Classify(req.Env)
		if cls.ClientReliable {
			del := channel.Delivery{TenantID: req.TenantID, AccountID: cfg.AccountID, Event: ev}
			d.gate.WhenReady(func() {
				if err := d.client.Send(del); err != nil {
					d.logf("[dispatch] client channel send FAILED: tenant=%s id=%s err=%v", del.TenantID, del.Event.EventID, err)
				}
			})
		} else {
			// Not even enqueued on the gate; the server channel carries it.
			d.logf("[dispatch] client channel skipped for tenant=%s id=%s signals=%v", req.TenantID, id, cls.Signals)
		}
	}

	if cfg.ServerEnabled {
		del := channel.Delivery{TenantID: req.TenantID, AccountID: cfg.AccountID, APIToken: cfg.APIToken, Event: ev}
		if !d.queue.Enqueue(del) {
			d.logf("[dispatch] server delivery queue full, dropping tenant=%s id=%s", req.TenantID, id)
		}
	}

	return id
}
