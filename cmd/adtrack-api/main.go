package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"example.com/adtrack/internal/channel"
	"example.com/adtrack/internal/config"
	"example.com/adtrack/internal/dispatch"
	"example.com/adtrack/internal/emit"
	"example.com/adtrack/internal/gate"
	"example.com/adtrack/internal/identity"
	"example.com/adtrack/internal/settings"
	spg "example.com/adtrack/internal/storage/postgres"
	transport "example.com/adtrack/internal/transport/http"
)

func main() {
	cfg := config.Parse()
	log.Printf("config: port=%s settings=%s collector=%s", cfg.Port, cfg.SettingsBaseURL, cfg.CollectorURL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	now := func() time.Time { return time.Now().UTC() }

	var (
		store    settings.Store = settings.NewMemoryStore()
		outcomes emit.DeliveryLog
		deps     = &transport.ServerDeps{Cfg: cfg, Now: now}
	)
	if cfg.PostgresDSN != "" {
		db, err := spg.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		if err := db.RunMigration(ctx, filepath.Join("migrations", "0001_init.sql")); err != nil {
			log.Fatalf("migration: %v", err)
		}
		log.Printf("db: connected, migration applied")

		store = spg.NewCacheStore(db)
		counters := spg.NewDeliveryCounters(db)
		outcomes = counters
		deps.Stats = counters
		deps.DB = db
	} else {
		log.Printf("db: no POSTGRES_DSN, settings cache is memory-only")
	}

	fetcher := settings.NewHTTPFetcher(cfg.SettingsBaseURL, cfg.FetchTimeout)
	resolver := settings.NewResolver(fetcher, store, cfg.SettingsTTL, cfg.FetchTimeout, now, log.Printf)

	forwarder := channel.NewForwarder(cfg.CollectorURL, cfg.SendTimeout)
	emitter := emit.NewEmitter(forwarder, outcomes, cfg.QueueMaxSize, cfg.SendTimeout, log.Printf)
	emitter.Start(ctx)
	log.Printf("emit: started (queue=%d)", cfg.QueueMaxSize)

	bridge := channel.NewPixelBridge(cfg.PixelGatewayURL, cfg.SendTimeout, log.Printf)
	if cfg.PixelAccountID != "" {
		bridge.Init(cfg.PixelAccountID)
	} else {
		log.Printf("pixel: no PIXEL_ACCOUNT_ID, client channel will never initialize")
	}

	g := gate.New(bridge, cfg.GatePollInterval, cfg.GateMaxAttempts, gate.RealClock(), log.Printf)
	g.Start()

	dispatcher := dispatch.NewDispatcher(resolver, identity.NewGenerator(now), g, bridge, emitter, now, log.Printf)
	deps.Tracker = dispatcher
	deps.Settings = resolver

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
}
