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

	authhandler "valid8/internal/auth/handler"
	authservice "valid8/internal/auth/service"
	"valid8/internal/auth/store/session"
	kychandler "valid8/internal/kyc/handler"
	"valid8/internal/kyc/onfido"
	"valid8/internal/kyc/persona"
	kycservice "valid8/internal/kyc/service"
	onboardhandler "valid8/internal/onboarding/handler"
	onboardservice "valid8/internal/onboarding/service"
	onboardstore "valid8/internal/onboarding/store"
	"valid8/internal/platform/config"
	"valid8/internal/platform/httpserver"
	"valid8/internal/platform/logger"
	"valid8/internal/platform/metrics"
	platformredis "valid8/internal/platform/redis"
	profilehandler "valid8/internal/profile/handler"
	profileservice "valid8/internal/profile/service"
	"valid8/pkg/platform/audit/publisher"
	kafkasink "valid8/pkg/platform/audit/publishers/kafka"
	auditmemory "valid8/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	// Session storage: Redis when configured, in-memory otherwise.
	var sessions session.Store = session.New()
	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		sessions = session.NewRedis(redisClient.Client)
		log.Info("using redis session store")
	}

	// Audit fan-out: always the local store, plus Kafka when brokers are set.
	pubOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
	}
	if cfg.Audit.KafkaBrokers != "" {
		sink, err := kafkasink.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			log.Error("kafka sink setup failed", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		pubOpts = append(pubOpts, publisher.WithSink(sink))
		log.Info("audit events publishing to kafka", "topic", cfg.Audit.KafkaTopic)
	}
	auditPub := publisher.NewPublisher(auditmemory.NewInMemoryStore(), pubOpts...)
	defer auditPub.Close()

	authSvc := authservice.New(sessions, cfg.JWTSigningKey, cfg.AccessTokenTTL,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditPub),
		authservice.WithMetrics(m),
	)

	wizard := onboardservice.New(onboardstore.New(),
		onboardservice.WithLogger(log),
		onboardservice.WithAuditPublisher(auditPub),
		onboardservice.WithMetrics(m),
	)

	kycSvc := kycservice.New(persona.New(cfg.Persona), onfido.New(cfg.Onfido.APIToken), wizard,
		kycservice.WithLogger(log),
		kycservice.WithAuditPublisher(auditPub),
		kycservice.WithMetrics(m),
	)

	profileSvc := profileservice.New(wizard, profileservice.WithLogger(log))

	router := chi.NewRouter()
	authhandler.New(&authFacade{auth: authSvc, wizard: wizard}, log, m, authSvc).Register(router)
	onboardhandler.New(wizard, log, m, authSvc).Register(router)
	kychandler.New(kycSvc, log, m, authSvc).Register(router)
	profilehandler.New(profileSvc, log, m, authSvc).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting valid8 server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
