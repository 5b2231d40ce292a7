package settings

import (
	"encoding/json"
	"testing"
	"time"

	"example.com/adtrack/internal/domain"
)

func TestDefaultDeny_EverythingOff(t *testing.T) {
	cfg := DefaultDeny()
	if cfg.ClientEnabled || cfg.ServerEnabled {
		t.Error("channels must be off")
	}
	for _, et := range domain.AllEventTypes {
		if cfg.EventEnabled(et) {
			t.Errorf("%s enabled in default configuration", et)
		}
	}
}

func TestConfiguration_JSONRoundTrip(t *testing.T) {
	in := testConfig()
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Configuration
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip changed value: %+v -> %+v", in, out)
	}
	if !out.EventEnabled(domain.EventAddToCart) || out.EventEnabled(domain.EventSearch) {
		t.Error("enabled-event set lost in round trip")
	}
}

func TestEntry_Freshness(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	e := Entry{FetchedAt: now.Add(-4 * time.Minute)}
	if !e.Fresh(now, 5*time.Minute) {
		t.Error("entry inside TTL must be fresh")
	}
	if e.Fresh(now, 3*time.Minute) {
		t.Error("entry past TTL must not be fresh")
	}
}
