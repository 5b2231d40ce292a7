package transporthttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/adtrack/internal/config"
	"example.com/adtrack/internal/dispatch"
	"example.com/adtrack/internal/domain"
	"example.com/adtrack/internal/identity"
	"example.com/adtrack/internal/settings"
)

type fakeTracker struct {
	lastReq  dispatch.Request
	returnID identity.EventID
	calls    int
}

func (f *fakeTracker) Track(req dispatch.Request) identity.EventID {
	f.calls++
	f.lastReq = req
	return f.returnID
}

type fakeSettingsAdmin struct {
	cfg         settings.Configuration
	invalidated []string
	forced      []string
}

func (f *fakeSettingsAdmin) Get(_ context.Context, tenantID string, force bool) settings.Configuration {
	if force {
		f.forced = append(f.forced, tenantID)
	}
	return f.cfg
}

func (f *fakeSettingsAdmin) Invalidate(_ context.Context, tenantID string) {
	f.invalidated = append(f.invalidated, tenantID)
}

func (f *fakeSettingsAdmin) Snapshot(string) settings.Configuration { return f.cfg }

func testDeps(tr *fakeTracker, sa *fakeSettingsAdmin) *ServerDeps {
	return &ServerDeps{
		Cfg: config.Config{
			MaxBodyBytes: 1 << 20,
			ClockSkew:    domain.DefaultClockSkew,
		},
		Tracker:  tr,
		Settings: sa,
		Now:      func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) },
	}
}

func postTrack(t *testing.T, h http.Handler, tenant, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/track", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 Chrome/126.0.0.0")
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPostTrack_Accepted(t *testing.T) {
	tr := &fakeTracker{returnID: "1787392800000.abc"}
	h := testDeps(tr, &fakeSettingsAdmin{}).Router()

	rec := postTrack(t, h, "t1", `{"event_name":"AddToCart","content_ids":["sku-1"],"value":"19.99","currency":"EUR"}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp trackResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EventID == nil || *resp.EventID != "1787392800000.abc" {
		t.Errorf("event_id = %v", resp.EventID)
	}
	if tr.lastReq.TenantID != "t1" || tr.lastReq.Event.Name != domain.EventAddToCart {
		t.Errorf("dispatch request = %+v", tr.lastReq)
	}
	if tr.lastReq.Env.UserAgent == "" {
		t.Error("user agent not forwarded to the capability detector")
	}
}

func TestPostTrack_SuppressedReturnsNullIdentity(t *testing.T) {
	tr := &fakeTracker{returnID: ""}
	h := testDeps(tr, &fakeSettingsAdmin{}).Router()

	rec := postTrack(t, h, "t1", `{"event_name":"Purchase"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		EventID    *string `json:"event_id"`
		Suppressed bool    `json:"suppressed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EventID != nil || !resp.Suppressed {
		t.Errorf("resp = %+v, want null id and suppressed=true", resp)
	}
}

func TestPostTrack_MissingTenant(t *testing.T) {
	tr := &fakeTracker{}
	h := testDeps(tr, &fakeSettingsAdmin{}).Router()

	rec := postTrack(t, h, "", `{"event_name":"PageView"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if tr.calls != 0 {
		t.Error("tracker must not be called without a tenant")
	}
}

func TestPostTrack_ValidationFailure(t *testing.T) {
	tr := &fakeTracker{}
	h := testDeps(tr, &fakeSettingsAdmin{}).Router()

	rec := postTrack(t, h, "t1", `{"event_name":"NotAThing","value":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if tr.calls != 0 {
		t.Error("tracker must not be called for invalid payloads")
	}
}

func TestPostTrack_RejectsCallerAssignedEventID(t *testing.T) {
	tr := &fakeTracker{}
	h := testDeps(tr, &fakeSettingsAdmin{}).Router()

	rec := postTrack(t, h, "t1", `{"event_name":"PageView","event_id":"spoofed"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPostTrack_RequiresJSON(t *testing.T) {
	h := testDeps(&fakeTracker{}, &fakeSettingsAdmin{}).Router()

	req := httptest.NewRequest(http.MethodPost, "/v1/track", strings.NewReader("event_name=PageView"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}

func TestSettingsRefresh_InvalidatesAndForces(t *testing.T) {
	sa := &fakeSettingsAdmin{cfg: settings.Configuration{
		AccountID:     "123456789012345",
		ServerEnabled: true,
		EnabledEvents: map[domain.EventType]struct{}{domain.EventPurchase: {}},
	}}
	h := testDeps(&fakeTracker{}, sa).Router()

	req := httptest.NewRequest(http.MethodPost, "/v1/settings/refresh?tenant_id=t1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(sa.invalidated) != 1 || sa.invalidated[0] != "t1" {
		t.Errorf("invalidated = %v", sa.invalidated)
	}
	if len(sa.forced) != 1 {
		t.Errorf("forced refreshes = %v", sa.forced)
	}

	var resp settingsResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.ServerEnabled || len(resp.EnabledEvents) != 1 || resp.EnabledEvents[0] != "Purchase" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetDeliveries_WithoutDatabase(t *testing.T) {
	h := testDeps(&fakeTracker{}, &fakeSettingsAdmin{}).Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/deliveries?tenant_id=t1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestAPIKeyAuth_Enforced(t *testing.T) {
	deps := testDeps(&fakeTracker{returnID: "x.y"}, &fakeSettingsAdmin{})
	deps.Cfg.APIKeys = map[string]struct{}{"secret": {}}
	h := deps.Router()

	rec := postTrack(t, h, "t1", `{"event_name":"PageView"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without key", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/track", strings.NewReader(`{"event_name":"PageView"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "t1")
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 with key", rec.Code)
	}
}
