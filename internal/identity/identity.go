package identity

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventID is the opaque identifier shared by both delivery channels for one
// logical event. The external platform deduplicates the two arrivals on it.
// The zero value means "no identity" (emission was suppressed).
type EventID string

// Generator produces collision-resistant event identities: a millisecond
// timestamp prefix (keeps identifiers roughly time-ordered in platform logs)
// plus a random uuid suffix. No registry is kept; uniqueness is probabilistic
// and the matching happens on the platform side.
type Generator struct {
	now func() time.Time
}

// NewGenerator constructs a Generator. now is injectable for tests; pass nil
// for the real clock.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Generator{now: now}
}

// New allocates a fresh identity. Call it exactly once per logical event:
// regenerating for the same occurrence breaks platform-side deduplication.
func (g *Generator) New() EventID {
	ms := g.now().UnixMilli()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return EventID(strconv.FormatInt(ms, 10) + "." + suffix)
}
