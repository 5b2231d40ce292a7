package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// PixelBridge adapts the third-party pixel script gateway to the Client
// contract. The gateway handshake is asynchronous: Init returns immediately
// and the bridge reports Initialized only once the gateway has acknowledged
// the account and issued a channel identifier. A failed handshake leaves the
// bridge uninitialized; the readiness gate gives up on its own schedule.
type PixelBridge struct {
	gateway string
	client  *http.Client
	logf    func(format string, v ...any)

	mu        sync.Mutex
	channelID string
}

func NewPixelBridge(gateway string, timeout time.Duration, logf func(string, ...any)) *PixelBridge {
	if logf == nil {
		logf = log.Printf
	}
	return &PixelBridge{
		gateway: gateway,
		client:  &http.Client{Timeout: timeout},
		logf:    logf,
	}
}

// Init starts the handshake for the given platform account. Safe to call
// once per cold start of the bridge.
func (b *PixelBridge) Init(accountID string) {
	go b.handshake(accountID)
}

func (b *PixelBridge) handshake(accountID string) {
	body, _ := json.Marshal(map[string]string{"account_id": accountID})
	ctx, cancel := context.WithTimeout(context.Background(), b.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.gateway+"/init", bytes.NewReader(body))
	if err != nil {
		b.logf("[pixel] handshake request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logf("[pixel] handshake failed for account=%s: %v", accountID, err)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		b.logf("[pixel] handshake rejected for account=%s: %s", accountID, resp.Status)
		return
	}

	var ack struct {
		ChannelID string `json:"channel_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		b.logf("[pixel] handshake decode failed: %v", err)
		return
	}
	if ack.ChannelID == "" {
		b.logf("[pixel] handshake returned empty channel id for account=%s", accountID)
		return
	}

	b.mu.Lock()
	b.channelID = ack.ChannelID
	b.mu.Unlock()
	b.logf("[pixel] initialized: channel=%s", ack.ChannelID)
}

func (b *PixelBridge) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channelID != ""
}

func (b *PixelBridge) ChannelID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channelID
}

// Send relays one event through the script gateway. Called only after the
// gate has seen the bridge initialized.
func (b *PixelBridge) Send(d Delivery) error {
	b.mu.Lock()
	channelID := b.channelID
	b.mu.Unlock()
	if channelID == "" {
		return fmt.Errorf("pixel: send before initialization for event %s", d.Event.EventID)
	}

	payload := struct {
		ChannelID  string   `json:"channel_id"`
		AccountID  string   `json:"account_id"`
		EventName  string   `json:"event_name"`
		EventID    string   `json:"event_id"`
		ContentIDs []string `json:"content_ids,omitempty"`
		Value      string   `json:"value,omitempty"`
		Currency   string   `json:"currency,omitempty"`
		OccurredAt int64    `json:"occurred_at"`
	}{
		ChannelID:  channelID,
		AccountID:  d.AccountID,
		EventName:  string(d.Event.Name),
		EventID:    d.Event.EventID,
		ContentIDs: d.Event.ContentIDs,
		Value:      d.Event.Value,
		Currency:   d.Event.Currency,
		OccurredAt: d.Event.OccurredAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pixel: marshal event %s: %w", d.Event.EventID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.gateway+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pixel: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("pixel: send event %s: %w", d.Event.EventID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pixel: gateway returned %s for event %s", resp.Status, d.Event.EventID)
	}
	return nil
}

var _ Client = (*PixelBridge)(nil)
