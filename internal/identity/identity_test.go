package identity

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNew_Unique(t *testing.T) {
	g := NewGenerator(nil)
	seen := make(map[EventID]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := g.New()
		if id == "" {
			t.Fatalf("empty identity at iteration %d", i)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate identity: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNew_TimePrefix(t *testing.T) {
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(func() time.Time { return fixed })

	id := string(g.New())
	prefix, _, ok := strings.Cut(id, ".")
	if !ok {
		t.Fatalf("identity %q missing separator", id)
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		t.Fatalf("prefix %q not numeric: %v", prefix, err)
	}
	if ms != fixed.UnixMilli() {
		t.Errorf("prefix = %d, want %d", ms, fixed.UnixMilli())
	}
}
