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

	"reunite/internal/cases/cache"
	casehandler "reunite/internal/cases/handler"
	caseservice "reunite/internal/cases/service"
	contacthandler "reunite/internal/contact/handler"
	contactservice "reunite/internal/contact/service"
	jwttoken "reunite/internal/jwt_token"
	matchhandler "reunite/internal/matching/handler"
	matchmetrics "reunite/internal/matching/metrics"
	matchservice "reunite/internal/matching/service"
	"reunite/internal/notify"
	"reunite/internal/platform/config"
	"reunite/internal/platform/httpserver"
	"reunite/internal/platform/logger"
	"reunite/internal/platform/middleware"
	"reunite/internal/platform/redis"
	"reunite/pkg/platform/audit/publisher"
	auditkafka "reunite/pkg/platform/audit/store/kafka"
	auditmemory "reunite/pkg/platform/audit/store/memory"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogFormat, cfg.Server.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStores(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to build stores", "error", err)
		os.Exit(1)
	}
	defer st.close()

	caseCache, err := buildCaseCache(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}

	auditPublisher, closeAudit, err := buildAuditPublisher(ctx, cfg.Kafka)
	if err != nil {
		log.Error("failed to build audit publisher", "error", err)
		os.Exit(1)
	}
	defer closeAudit()

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey)
	notifier := notify.NewLogNotifier(log)

	contactSvc := contactservice.New(st.contacts, st.cases,
		contactservice.WithLogger(log),
		contactservice.WithAuditPublisher(auditPublisher),
	)
	matchSvc := matchservice.New(st.cases, st.matches, contactSvc,
		matchservice.WithLogger(log),
		matchservice.WithAuditPublisher(auditPublisher),
		matchservice.WithMetrics(matchmetrics.New()),
		matchservice.WithNotifier(notifier),
		matchservice.WithStoreTx(st.tx),
		matchservice.WithMinScore(cfg.Matching.MinScore),
		matchservice.WithBatchConcurrency(cfg.Matching.BatchConcurrency),
	)
	caseSvc := caseservice.New(st.cases,
		caseservice.WithLogger(log),
		caseservice.WithAuditPublisher(auditPublisher),
		caseservice.WithCache(caseCache),
		caseservice.WithMatchInvalidator(matchSvc),
		caseservice.WithContactCleaner(contactSvc),
		caseservice.WithStoreTx(st.tx),
	)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	casehandler.New(caseSvc, log, jwtService).Register(router)
	contacthandler.New(contactSvc, log, jwtService).Register(router)
	matchhandler.New(matchSvc, log, jwtService).Register(router)

	router.Method(http.MethodPost, "/admin/token", &adminTokenHandler{
		logger:    log,
		jwt:       jwtService,
		tokenHash: cfg.Auth.AdminTokenHash,
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting reunite", "addr", cfg.Server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("server error", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func buildCaseCache(cfg config.RedisConfig) (cache.Cache, error) {
	client, err := redis.New(cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return cache.NewInMemoryCache(cfg.CaseCacheTTL), nil
	}
	return cache.NewRedisCache(client.Client, cfg.CaseCacheTTL), nil
}

func buildAuditPublisher(ctx context.Context, cfg config.KafkaConfig) (*publisher.Publisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		p := publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithAsyncBuffer(256))
		return p, p.Close, nil
	}
	store, err := auditkafka.New(ctx, cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	p := publisher.NewPublisher(store, publisher.WithAsyncBuffer(256))
	closer := func() {
		p.Close()
		store.Close()
	}
	return p, closer, nil
}
