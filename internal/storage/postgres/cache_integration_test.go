package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/adtrack/internal/domain"
	"example.com/adtrack/internal/settings"
)

// startPostgres boots a throwaway Postgres 16 container with the schema
// applied. Requires a local Docker daemon; skipped in -short runs.
func startPostgres(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	pgC, err := tcpostgres.Run(ctx,
		"postgres:16",
		tcpostgres.WithDatabase("adtrack"),
		tcpostgres.WithUsername("adtrack"),
		tcpostgres.WithPassword("adtrack"),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("resolve connection string: %v", err)
	}

	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.RunMigration(ctx, filepath.Join("..", "..", "..", "migrations", "0001_init.sql")); err != nil {
		t.Fatalf("migration: %v", err)
	}
	return db
}

func TestCacheStore_RoundTrip(t *testing.T) {
	db := startPostgres(t)
	store := NewCacheStore(db)
	ctx := context.Background()

	entry := settings.Entry{
		Config: settings.Configuration{
			AccountID:     "123456789012345",
			APIToken:      "tok-9",
			ClientEnabled: true,
			ServerEnabled: true,
			EnabledEvents: map[domain.EventType]struct{}{
				domain.EventPurchase:  {},
				domain.EventAddToCart: {},
			},
		},
		FetchedAt: time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC),
	}

	if err := store.Save(ctx, "t1", entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("saved entry not found")
	}
	if !got.Config.Equal(entry.Config) {
		t.Errorf("loaded config = %+v, want %+v", got.Config, entry.Config)
	}
	if !got.FetchedAt.Equal(entry.FetchedAt) {
		t.Errorf("fetched_at = %s, want %s", got.FetchedAt, entry.FetchedAt)
	}

	// Upsert supersedes the previous entry.
	entry.Config.ServerEnabled = false
	entry.FetchedAt = entry.FetchedAt.Add(time.Hour)
	if err := store.Save(ctx, "t1", entry); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _, err = store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Config.ServerEnabled {
		t.Error("upsert did not supersede the old payload")
	}

	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "t1"); ok {
		t.Error("entry survived delete")
	}
}

func TestCacheStore_LoadMissingTenant(t *testing.T) {
	db := startPostgres(t)
	store := NewCacheStore(db)

	_, ok, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("missing tenant reported as present")
	}
}

func TestDeliveryCounters_RecordAndQuery(t *testing.T) {
	db := startPostgres(t)
	counters := NewDeliveryCounters(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := counters.Record(ctx, "t1", "server", "Purchase", true); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := counters.Record(ctx, "t1", "server", "Purchase", false); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if err := counters.Record(ctx, "t1", "server", "AddToCart", true); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := counters.Record(ctx, "t2", "server", "Purchase", true); err != nil {
		t.Fatalf("record other tenant: %v", err)
	}

	totals, err := counters.QueryTotals(ctx, "t1", nil)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Delivered != 4 || totals.Failed != 1 {
		t.Errorf("totals = %+v, want delivered=4 failed=1", totals)
	}

	name := "Purchase"
	totals, err = counters.QueryTotals(ctx, "t1", &name)
	if err != nil {
		t.Fatalf("filtered totals: %v", err)
	}
	if totals.Delivered != 3 || totals.Failed != 1 {
		t.Errorf("filtered totals = %+v, want delivered=3 failed=1", totals)
	}

	rows, err := counters.QueryByChannel(ctx, "t1")
	if err != nil {
		t.Fatalf("by channel: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v, want 2", rows)
	}
}
