package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// serverPayload is the collector's wire format for one event report.
type serverPayload struct {
	EventName  string   `json:"event_name"`
	EventID    string   `json:"event_id"`
	AccountID  string   `json:"account_id"`
	ContentIDs []string `json:"content_ids,omitempty"`
	Value      string   `json:"value,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	OccurredAt int64    `json:"occurred_at"`
	Source     string   `json:"source"`
}

// Forwarder is the server-channel implementation: a single POST per event to
// the platform's collector endpoint, authenticated with the tenant's token.
type Forwarder struct {
	endpoint string
	client   *http.Client
}

func NewForwarder(endpoint string, timeout time.Duration) *Forwarder {
	return &Forwarder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (f *Forwarder) Send(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(serverPayload{
		EventName:  string(d.Event.Name),
		EventID:    d.Event.EventID,
		AccountID:  d.AccountID,
		ContentIDs: d.Event.ContentIDs,
		Value:      d.Event.Value,
		Currency:   d.Event.Currency,
		OccurredAt: d.Event.OccurredAt,
		Source:     "server",
	})
	if err != nil {
		return fmt.Errorf("server channel: marshal event %s: %w", d.Event.EventID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("server channel: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.APIToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("server channel: send event %s: %w", d.Event.EventID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server channel: collector returned %s for event %s", resp.Status, d.Event.EventID)
	}
	return nil
}

var _ Server = (*Forwarder)(nil)
