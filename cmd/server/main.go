package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"addongate/internal/access/handler"
	"addongate/internal/access/metrics"
	"addongate/internal/access/service"
	grantstore "addongate/internal/access/store/grant"
	ledgerstore "addongate/internal/access/store/ledger"
	"addongate/internal/access/verifier"
	"addongate/internal/bundle"
	"addongate/internal/jwttoken"
	"addongate/internal/platform/config"
	"addongate/internal/platform/httpserver"
	"addongate/internal/platform/logger"
	"addongate/internal/platform/postgres"
	redisplatform "addongate/internal/platform/redis"
	"addongate/internal/ratelimit"
	"addongate/pkg/platform/audit"
	auditkafka "addongate/pkg/platform/audit/kafka"
	"addongate/pkg/platform/middleware/metadata"
	"addongate/pkg/platform/middleware/request"
	"addongate/pkg/platform/middleware/requesttime"
)

// main wires dependencies and owns the process lifecycle. Stores are picked
// by configuration: Postgres when a URL is set, then Redis for grants, then
// in-memory.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var grants grantstore.Store
	var requests ledgerstore.Store

	switch {
	case cfg.PostgresURL != "":
		db, err := postgres.Open(cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		grants = grantstore.NewPostgres(db)
		requests = ledgerstore.NewPostgres(db)
		log.Info("using postgres stores")
	case cfg.RedisURL != "":
		client, err := redisplatform.New(config.RedisFromEnv())
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		grants = grantstore.NewRedis(client.Client)
		// The ledger needs conditional writes Redis does not give us
		// cheaply; requests stay in memory alongside Redis grants.
		requests = ledgerstore.NewInMemory()
		log.Info("using redis grant store with in-memory ledger")
	default:
		grants = grantstore.NewInMemory()
		requests = ledgerstore.NewInMemory()
		log.Info("using in-memory stores")
	}

	var publisher audit.Publisher = audit.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := auditkafka.New(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("audit publisher setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	m := metrics.New()
	provider := verifier.NewProviderClient(cfg.ProviderURL, cfg.ProviderTimeout, log)
	engine := service.NewEngine(grants, requests, provider, publisher, m, log)
	admin := service.NewAdmin(grants, requests, publisher, m, log)
	sweeper := service.NewSweeper(admin, cfg.SweepInterval, log)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.AdminSessionTTL)
	limiter := ratelimit.New(log, cfg.RateLimitDisabled)
	bundles := bundle.NewFileStore(cfg.BundlePath)

	h := handler.New(engine, admin, bundles, tokens, limiter, handler.Config{
		AdminToken:        cfg.AdminToken,
		AdminPasswordHash: cfg.AdminPasswordHash,
		RateLimitDisabled: cfg.RateLimitDisabled,
	}, log)

	router := chi.NewRouter()
	router.Use(request.RequestID)
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)
	router.Handle("/metrics", promhttp.Handler())
	h.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting addongate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		limiter.RunPruner(ctx.Done(), 5*time.Minute)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
