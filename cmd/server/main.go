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

	"github.com/fsuels/auditledger/internal/audit/classify"
	"github.com/fsuels/auditledger/internal/audit/handler"
	"github.com/fsuels/auditledger/internal/audit/metrics"
	"github.com/fsuels/auditledger/internal/audit/mirror"
	"github.com/fsuels/auditledger/internal/audit/service"
	"github.com/fsuels/auditledger/internal/audit/signer"
	"github.com/fsuels/auditledger/internal/audit/source"
	"github.com/fsuels/auditledger/internal/audit/store/cache"
	storepg "github.com/fsuels/auditledger/internal/audit/store/postgres"
	"github.com/fsuels/auditledger/internal/audit/verify"
	"github.com/fsuels/auditledger/internal/audit/writer"
	"github.com/fsuels/auditledger/internal/platform/config"
	"github.com/fsuels/auditledger/internal/platform/httpserver"
	"github.com/fsuels/auditledger/internal/platform/kafka/consumer"
	"github.com/fsuels/auditledger/internal/platform/kafka/producer"
	"github.com/fsuels/auditledger/internal/platform/logger"
	"github.com/fsuels/auditledger/internal/platform/middleware"
	"github.com/fsuels/auditledger/internal/platform/postgres"
	"github.com/fsuels/auditledger/internal/platform/redis"
	"github.com/fsuels/auditledger/internal/platform/secrets"
	"github.com/fsuels/auditledger/internal/platform/token"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal/audit packages.
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.ServiceName, cfg.ServiceVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		return err
	}
	defer db.Close()

	m := metrics.New()

	ledger := storepg.New(db, storepg.WithConflictHook(m.SequenceConflicts.Inc))
	if err := ledger.EnsureSchema(ctx); err != nil {
		log.Error("schema setup failed", "error", err)
		return err
	}
	keys := secrets.NewHKDFSource([]byte(cfg.SigningSecret), "")
	sig := signer.New(keys)
	if cfg.SigningSecret == "" {
		log.Warn("signing secret not configured, all events will dead-letter")
	}

	writerCfg := writer.DefaultConfig()
	if cfg.WriterMaxAttempts > 0 {
		writerCfg.MaxAttempts = cfg.WriterMaxAttempts
	}
	w := writer.New(ledger, writerCfg, log, m)

	opts := []service.Option{}

	rdb, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		opts = append(opts, service.WithHistoryCache(cache.NewHistoryCache(rdb.Client, cfg.HistoryCacheTTL)))
		log.Info("history cache enabled")
	}

	var mutationSource *source.KafkaSource
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := producer.New(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka producer setup failed", "error", err)
			return err
		}
		defer prod.Close()

		mir, err := mirror.NewKafka(ctx, prod, cfg.MirrorTopic)
		if err != nil {
			log.Error("mirror topic setup failed", "error", err)
			return err
		}
		opts = append(opts, service.WithMirror(mir))
		log.Info("event mirror enabled", "topic", cfg.MirrorTopic)
	}

	pipeline := service.New(
		classify.NewPolicy(),
		sig,
		w,
		ledger,
		verify.New(sig),
		service.Identity{
			Service: cfg.ServiceName,
			Version: cfg.ServiceVersion,
			Region:  cfg.Region,
		},
		m,
		log,
		opts...,
	)

	if len(cfg.KafkaBrokers) > 0 {
		cons, err := consumer.New(cfg.KafkaBrokers, cfg.ConsumerGroup, []string{cfg.MutationTopic}, log)
		if err != nil {
			log.Error("kafka consumer setup failed", "error", err)
			return err
		}
		defer cons.Close()
		mutationSource = source.NewKafkaSource(cons, pipeline, log)
		log.Info("mutation source enabled", "topic", cfg.MutationTopic, "group", cfg.ConsumerGroup)
	}

	tokens := token.NewService(cfg.JWTSigningKey, cfg.ServiceName)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.ClientMetadata)

	router.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Health(r.Context()); err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		rw.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	handler.New(pipeline, log, tokens).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting audit ledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if mutationSource != nil {
		g.Go(func() error {
			return mutationSource.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}
