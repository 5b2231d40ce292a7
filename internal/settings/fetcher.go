package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves the authoritative configuration for a tenant.
type Fetcher interface {
	Fetch(ctx context.Context, tenantID string) (Configuration, error)
}

// HTTPFetcher reads configuration from the settings endpoint:
// GET {base}/tenants/{id}/tracking-settings
type HTTPFetcher struct {
	base   string
	client *http.Client
}

func NewHTTPFetcher(base string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, tenantID string) (Configuration, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/tracking-settings", f.base, url.PathEscape(tenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Configuration{}, fmt.Errorf("settings: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Configuration{}, fmt.Errorf("settings: fetch tenant %s: %w", tenantID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Configuration{}, fmt.Errorf("settings: fetch tenant %s: unexpected status %s", tenantID, resp.Status)
	}

	var cfg Configuration
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("settings: decode tenant %s: %w", tenantID, err)
	}
	return cfg, nil
}
