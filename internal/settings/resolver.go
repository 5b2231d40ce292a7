package settings

import (
	"context"
	"log"
	"sync"
	"time"
)

// Resolver is the caching front of the settings source.
//
// Two read paths exist. Get is the blocking path: it may hit the durable
// store and the network, and is used by background refreshes and the admin
// force-refresh endpoint. Snapshot is the dispatch path: it never performs
// I/O, serves fresh-else-stale-else-default from memory, and schedules at
// most one background refresh per tenant when the entry is not fresh.
type Resolver struct {
	fetcher      Fetcher
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logf         func(format string, v ...any)

	mu       sync.Mutex
	cache    map[string]Entry
	inflight map[string]bool
	locks    map[string]*sync.Mutex
}

func NewResolver(fetcher Fetcher, store Store, ttl, fetchTimeout time.Duration, now func() time.Time, logf func(string, ...any)) *Resolver {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Resolver{
		fetcher:      fetcher,
		store:        store,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		now:          now,
		logf:         logf,
		cache:        make(map[string]Entry),
		inflight:     make(map[string]bool),
		locks:        make(map[string]*sync.Mutex),
	}
}

// Get returns the tenant's configuration, fetching when the cached entry is
// missing, expired, or force is set. Fetch failures fall back to the stale
// entry if one exists, else to the fully-disabled default. Get never returns
// an error: configuration trouble must not break the pipeline's callers.
func (r *Resolver) Get(ctx context.Context, tenantID string, force bool) Configuration {
	// One fetch wins per tenant; concurrent callers wait rather than racing
	// the read-then-write sequence.
	lk := r.tenantLock(tenantID)
	lk.Lock()
	defer lk.Unlock()

	entry, cached := r.cached(ctx, tenantID)
	if cached && !force && entry.Fresh(r.now(), r.ttl) {
		return entry.Config
	}

	cfg, err := r.fetcher.Fetch(ctx, tenantID)
	if err != nil {
		if cached {
			r.logf("[settings] fetch failed for tenant=%s, serving stale entry (age=%s): %v",
				tenantID, r.now().Sub(entry.FetchedAt).Round(time.Second), err)
			return entry.Config
		}
		r.logf("[settings] fetch failed for tenant=%s with no cached entry, tracking disabled: %v", tenantID, err)
		return DefaultDeny()
	}

	fresh := Entry{Config: cfg, FetchedAt: r.now()}
	r.mu.Lock()
	r.cache[tenantID] = fresh
	r.mu.Unlock()

	if err := r.store.Save(ctx, tenantID, fresh); err != nil {
		r.logf("[settings] persist cache entry for tenant=%s failed: %v", tenantID, err)
	}
	return cfg
}

// Snapshot returns the best configuration available without any I/O:
// the cached entry (fresh or stale) or the fully-disabled default. When the
// entry is not fresh it kicks off one asynchronous refresh for the tenant.
func (r *Resolver) Snapshot(tenantID string) Configuration {
	r.mu.Lock()
	entry, ok := r.cache[tenantID]
	needsRefresh := !ok || !entry.Fresh(r.now(), r.ttl)
	if needsRefresh && !r.inflight[tenantID] {
		r.inflight[tenantID] = true
		go r.refresh(tenantID)
	}
	r.mu.Unlock()

	if !ok {
		return DefaultDeny()
	}
	return entry.Config
}

// Invalidate drops the tenant's entry from memory and the durable store.
// The next use re-fetches (admin cache-bust after a settings change).
func (r *Resolver) Invalidate(ctx context.Context, tenantID string) {
	r.mu.Lock()
	delete(r.cache, tenantID)
	r.mu.Unlock()
	if err := r.store.Delete(ctx, tenantID); err != nil {
		r.logf("[settings] drop stored entry for tenant=%s failed: %v", tenantID, err)
	}
}

func (r *Resolver) refresh(tenantID string) {
	defer func() {
		r.mu.Lock()
		delete(r.inflight, tenantID)
		r.mu.Unlock()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
	defer cancel()
	r.Get(ctx, tenantID, false)
}

// cached returns the tenant's entry from memory, warming from the durable
// store on a cold miss. Caller holds the tenant lock.
func (r *Resolver) cached(ctx context.Context, tenantID string) (Entry, bool) {
	r.mu.Lock()
	entry, ok := r.cache[tenantID]
	r.mu.Unlock()
	if ok {
		return entry, true
	}

	stored, ok, err := r.store.Load(ctx, tenantID)
	if err != nil {
		r.logf("[settings] load stored entry for tenant=%s failed: %v", tenantID, err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	r.mu.Lock()
	r.cache[tenantID] = stored
	r.mu.Unlock()
	return stored, true
}

func (r *Resolver) tenantLock(tenantID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lk, ok := r.locks[tenantID]
	if !ok {
		lk = &sync.Mutex{}
		r.locks[tenantID] = lk
	}
	return lk
}
