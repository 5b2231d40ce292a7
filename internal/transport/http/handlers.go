package transporthttp

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"example.com/adtrack/internal/capability"
	"example.com/adtrack/internal/config"
	"example.com/adtrack/internal/dispatch"
	"example.com/adtrack/internal/domain"
	"example.com/adtrack/internal/identity"
	"example.com/adtrack/internal/settings"
	spg "example.com/adtrack/internal/storage/postgres"
)

// Tracker is the dispatcher surface the transport needs.
type Tracker interface {
	Track(req dispatch.Request) identity.EventID
}

// SettingsAdmin is the resolver surface behind the back-office endpoints.
type SettingsAdmin interface {
	Get(ctx context.Context, tenantID string, force bool) settings.Configuration
	Invalidate(ctx context.Context, tenantID string)
	Snapshot(tenantID string) settings.Configuration
}

// StatsSource serves delivery-outcome counters; nil when no database is
// configured.
type StatsSource interface {
	QueryTotals(ctx context.Context, tenantID string, eventName *string) (spg.DeliveryTotals, error)
	QueryByChannel(ctx context.Context, tenantID string) ([]spg.DeliveryRow, error)
}

// ReadyChecker reports backing-store reachability; nil when memory-only.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

type ServerDeps struct {
	Cfg      config.Config
	Tracker  Tracker
	Settings SettingsAdmin
	Stats    StatsSource
	DB       ReadyChecker
	Now      func() time.Time
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if d.DB != nil {
		if err := d.DB.Ready(r.Context()); err != nil {
			WriteProblem(w, http.StatusServiceUnavailable, "not ready", "database not reachable", nil)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// --- Track ---

type trackResp struct {
	EventID    *string `json:"event_id"`
	Suppressed bool    `json:"suppressed,omitempty"`
}

func (d *ServerDeps) HandlePostTrack(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
	if tenantID == "" {
		WriteProblem(w, http.StatusBadRequest, "missing tenant", "X-Tenant-ID header is required", nil)
		return
	}

	var ev domain.Event
	if err := decodeJSONStrict(r, &ev); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	if ev.EventID != "" {
		WriteProblem(w, http.StatusBadRequest, "invalid event", "event_id is assigned by the pipeline", nil)
		return
	}
	if errs := domain.ValidateEvent(&ev, d.Now(), d.Cfg.ClockSkew); len(errs) > 0 {
		prob := map[string][]string{}
		for _, fe := range errs {
			prob[fe.Field] = append(prob[fe.Field], fe.Msg)
		}
		WriteProblem(w, http.StatusBadRequest, "validation failed", "one or more fields are invalid", prob)
		return
	}

	id := d.Tracker.Track(dispatch.Request{
		TenantID: tenantID,
		Event:    ev,
		Env: capability.Environment{
			UserAgent:   r.Header.Get("User-Agent"),
			VendorHints: splitCSV(r.Header.Get("X-Vendor-Hints")),
		},
	})

	resp := trackResp{}
	if id == "" {
		resp.Suppressed = true
	} else {
		s := string(id)
		resp.EventID = &s
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(resp)
}

// --- Settings (back office) ---

type settingsResp struct {
	TenantID      string   `json:"tenant_id"`
	AccountID     string   `json:"account_id"`
	ClientEnabled bool     `json:"client_enabled"`
	ServerEnabled bool     `json:"server_enabled"`
	EnabledEvents []string `json:"enabled_events"`
}

func summarize(tenantID string, cfg settings.Configuration) settingsResp {
	resp := settingsResp{
		TenantID:      tenantID,
		AccountID:     cfg.AccountID,
		ClientEnabled: cfg.ClientEnabled,
		ServerEnabled: cfg.ServerEnabled,
		EnabledEvents: []string{},
	}
	for _, t := range domain.AllEventTypes {
		if cfg.EventEnabled(t) {
			resp.EnabledEvents = append(resp.EnabledEvents, string(t))
		}
	}
	return resp
}

func (d *ServerDeps) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID := strings.TrimSpace(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		WriteProblem(w, http.StatusBadRequest, "missing tenant", "tenant_id query parameter is required", nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summarize(tenantID, d.Settings.Snapshot(tenantID)))
}

// HandlePostSettingsRefresh busts the cache and re-fetches: the back office
// calls it after an admin changes a tenant's tracking settings.
func (d *ServerDeps) HandlePostSettingsRefresh(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID := strings.TrimSpace(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		WriteProblem(w, http.StatusBadRequest, "missing tenant", "tenant_id query parameter is required", nil)
		return
	}

	d.Settings.Invalidate(r.Context(), tenantID)
	cfg := d.Settings.Get(r.Context(), tenantID, true)
	log.Printf("[api] settings refreshed: tenant=%s client=%v server=%v", tenantID, cfg.ClientEnabled, cfg.ServerEnabled)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summarize(tenantID, cfg))
}

// --- Delivery stats (back office) ---

type deliveriesResp struct {
	TenantID string             `json:"tenant_id"`
	Totals   spg.DeliveryTotals `json:"totals"`
	Channels []spg.DeliveryRow  `json:"channels,omitempty"`
}

func (d *ServerDeps) HandleGetDeliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if d.Stats == nil {
		WriteProblem(w, http.StatusServiceUnavailable, "stats unavailable", "no database configured", nil)
		return
	}
	q := r.URL.Query()
	tenantID := strings.TrimSpace(q.Get("tenant_id"))
	if tenantID == "" {
		WriteProblem(w, http.StatusBadRequest, "missing tenant", "tenant_id query parameter is required", nil)
		return
	}

	var evPtr *string
	if name := strings.TrimSpace(q.Get("event_name")); name != "" {
		evPtr = &name
	}

	ctx := r.Context()
	totals, err := d.Stats.QueryTotals(ctx, tenantID, evPtr)
	if err != nil {
		WriteProblem(w, http.StatusInternalServerError, "query error", err.Error(), nil)
		return
	}
	resp := deliveriesResp{TenantID: tenantID, Totals: totals}

	if evPtr == nil {
		rows, err := d.Stats.QueryByChannel(ctx, tenantID)
		if err != nil {
			WriteProblem(w, http.StatusInternalServerError, "query error", err.Error(), nil)
			return
		}
		resp.Channels = rows
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.HandleHealthz)
	mux.HandleFunc("/readyz", d.HandleReadyz)

	var postTrack http.Handler = http.HandlerFunc(d.HandlePostTrack)
	postTrack = BodyLimit(d.Cfg.MaxBodyBytes)(postTrack)
	postTrack = RequireJSON(postTrack)
	postTrack = APIKeyAuth(d.Cfg.APIKeys)(postTrack)
	mux.Handle("/v1/track", postTrack)

	admin := RateLimitPerMinute(d.Cfg.RateLimitAdminPerMin, "/v1/settings", d.Now)

	var getSettings http.Handler = http.HandlerFunc(d.HandleGetSettings)
	getSettings = admin(getSettings)
	getSettings = APIKeyAuth(d.Cfg.APIKeys)(getSettings)
	mux.Handle("/v1/settings", getSettings)

	var postRefresh http.Handler = http.HandlerFunc(d.HandlePostSettingsRefresh)
	postRefresh = admin(postRefresh)
	postRefresh = APIKeyAuth(d.Cfg.APIKeys)(postRefresh)
	mux.Handle("/v1/settings/refresh", postRefresh)

	var getDeliveries http.Handler = http.HandlerFunc(d.HandleGetDeliveries)
	getDeliveries = APIKeyAuth(d.Cfg.APIKeys)(getDeliveries)
	mux.Handle("/v1/deliveries", getDeliveries)

	return mux
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
