// Package settings resolves per-tenant tracking configuration: which event
// types are enabled, which delivery channels are active, and the external
// platform credentials. The remote settings endpoint is authoritative; this
// package wraps it in a TTL cache with stale-serve on fetch failure and a
// default-deny fallback when nothing is cached.
package settings

import (
	"encoding/json"
	"time"

	"example.com/adtrack/internal/domain"
)

// Configuration is the per-tenant tracking configuration. It is an immutable
// value within a cache window; a newer fetch or an explicit invalidation
// supersedes it.
type Configuration struct {
	AccountID     string
	APIToken      string
	ClientEnabled bool
	ServerEnabled bool
	EnabledEvents map[domain.EventType]struct{}
}

// EventEnabled reports whether t should be emitted for this tenant.
func (c Configuration) EventEnabled(t domain.EventType) bool {
	_, ok := c.EnabledEvents[t]
	return ok
}

// DefaultDeny is the configuration served when no fetch has ever succeeded
// and no cached entry exists: every event type and every channel off. An
// unreachable settings source must never make tracking assume "enabled".
func DefaultDeny() Configuration {
	return Configuration{EnabledEvents: map[domain.EventType]struct{}{}}
}

// Entry is a cached configuration with its fetch timestamp.
type Entry struct {
	Config    Configuration
	FetchedAt time.Time
}

// Fresh reports whether the entry is within the TTL window.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// configPayload is the wire/store shape, shared by the HTTP fetcher and the
// durable cache stores.
type configPayload struct {
	AccountID     string   `json:"account_id"`
	APIToken      string   `json:"api_token,omitempty"`
	ClientEnabled bool     `json:"client_enabled"`
	ServerEnabled bool     `json:"server_enabled"`
	EnabledEvents []string `json:"enabled_events"`
}

// MarshalJSON encodes the enabled-event set as a sorted-insertion list.
func (c Configuration) MarshalJSON() ([]byte, error) {
	p := configPayload{
		AccountID:     c.AccountID,
		APIToken:      c.APIToken,
		ClientEnabled: c.ClientEnabled,
		ServerEnabled: c.ServerEnabled,
		EnabledEvents: make([]string, 0, len(c.EnabledEvents)),
	}
	for _, t := range domain.AllEventTypes {
		if _, ok := c.EnabledEvents[t]; ok {
			p.EnabledEvents = append(p.EnabledEvents, string(t))
		}
	}
	return json.Marshal(p)
}

func (c *Configuration) UnmarshalJSON(b []byte) error {
	var p configPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	c.AccountID = p.AccountID
	c.APIToken = p.APIToken
	c.ClientEnabled = p.ClientEnabled
	c.ServerEnabled = p.ServerEnabled
	c.EnabledEvents = make(map[domain.EventType]struct{}, len(p.EnabledEvents))
	for _, name := range p.EnabledEvents {
		c.EnabledEvents[domain.EventType(name)] = struct{}{}
	}
	return nil
}

// Equal compares configurations by value (enabled-event sets included).
func (c Configuration) Equal(o Configuration) bool {
	if c.AccountID != o.AccountID || c.APIToken != o.APIToken ||
		c.ClientEnabled != o.ClientEnabled || c.ServerEnabled != o.ServerEnabled ||
		len(c.EnabledEvents) != len(o.EnabledEvents) {
		return false
	}
	for t := range c.EnabledEvents {
		if _, ok := o.EnabledEvents[t]; !ok {
			return false
		}
	}
	return true
}
