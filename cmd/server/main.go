package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kakrote/udyam-registration-app/internal/formschema"
	lochandler "github.com/Kakrote/udyam-registration-app/internal/location/handler"
	locmetrics "github.com/Kakrote/udyam-registration-app/internal/location/metrics"
	locservice "github.com/Kakrote/udyam-registration-app/internal/location/service"
	locstore "github.com/Kakrote/udyam-registration-app/internal/location/store"
	"github.com/Kakrote/udyam-registration-app/internal/location/upstream"
	"github.com/Kakrote/udyam-registration-app/internal/platform/config"
	"github.com/Kakrote/udyam-registration-app/internal/platform/httpserver"
	"github.com/Kakrote/udyam-registration-app/internal/platform/logger"
	"github.com/Kakrote/udyam-registration-app/internal/platform/metrics"
	"github.com/Kakrote/udyam-registration-app/internal/platform/migrate"
	"github.com/Kakrote/udyam-registration-app/internal/platform/postgres"
	"github.com/Kakrote/udyam-registration-app/internal/platform/redis"
	reghandler "github.com/Kakrote/udyam-registration-app/internal/registration/handler"
	regmetrics "github.com/Kakrote/udyam-registration-app/internal/registration/metrics"
	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	regservice "github.com/Kakrote/udyam-registration-app/internal/registration/service"
	regstore "github.com/Kakrote/udyam-registration-app/internal/registration/store"
	httptransport "github.com/Kakrote/udyam-registration-app/internal/transport/http"
	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/audit/publisher"
	auditkafka "github.com/Kakrote/udyam-registration-app/pkg/platform/audit/store/kafka"
	auditmemory "github.com/Kakrote/udyam-registration-app/pkg/platform/audit/store/memory"
	auditpostgres "github.com/Kakrote/udyam-registration-app/pkg/platform/audit/store/postgres"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/circuit"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("configuration loaded",
		"addr", cfg.Addr,
		"cache_backend", cfg.CacheBackend,
		"database", cfg.DatabaseURL != "",
		"kafka_brokers", len(cfg.Audit.KafkaBrokers),
	)

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrate.Up(db); err != nil {
			return err
		}
		log.Info("database migrated")
	}

	var redisClient *redis.Client
	if cfg.CacheBackend == config.CacheBackendRedis {
		var err error
		redisClient, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	auditor, closeAudit, err := buildAuditor(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	var locations locservice.Store
	switch cfg.CacheBackend {
	case config.CacheBackendPostgres:
		locations = locstore.NewPostgresStore(db)
	case config.CacheBackendRedis:
		locations = locstore.NewRedisStore(redisClient.Client)
	default:
		locations = locstore.NewInMemoryStore()
	}

	locMetrics := locmetrics.New()
	breaker := circuit.New("postal-registry",
		circuit.WithFailureThreshold(cfg.Upstream.BreakerThreshold),
		circuit.WithCooldown(cfg.Upstream.BreakerCooldown),
	)
	registry := upstream.New(cfg.Upstream.BaseURL,
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithBreaker(breaker),
		upstream.WithMetrics(locMetrics),
		upstream.WithLogger(log),
	)
	locationService := locservice.New(locations, registry,
		locservice.WithAuditor(auditor),
		locservice.WithMetrics(locMetrics),
		locservice.WithLogger(log),
	)

	var registrations regservice.RegistrationStore = regstore.NewInMemoryRegistrationStore()
	if db != nil {
		registrations = regstore.NewPostgresRegistrationStore(db)
	}
	registrationService := regservice.New(regstore.NewInMemoryDraftStore(), registrations, locationService,
		regservice.WithAuditor(auditor),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithLogger(log),
	)

	schema, err := formschema.Build(models.AllRules())
	if err != nil {
		return fmt.Errorf("build form schema: %w", err)
	}

	router := httptransport.NewRouter(
		httptransport.Config{Version: cfg.Version, Logger: log, Metrics: metrics.New()},
		lochandler.New(locationService, log),
		reghandler.New(registrationService, log),
		formschema.NewHandler(schema, auditor, log),
	)
	srv := httpserver.New(cfg.Addr, router, cfg.Upstream.Timeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildAuditor fans audit events out to the durable sinks that are configured.
// Without a database, events are kept in memory.
func buildAuditor(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger) (*publisher.Publisher, func(), error) {
	var sinks audit.Fanout
	if db != nil {
		sinks = append(sinks, auditpostgres.New(db))
	} else {
		sinks = append(sinks, auditmemory.NewInMemoryStore())
	}

	var kafkaStore *auditkafka.Store
	if len(cfg.Audit.KafkaBrokers) > 0 {
		var err error
		kafkaStore, err = auditkafka.New(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			return nil, nil, err
		}
		if err := kafkaStore.EnsureTopic(ctx, 1, 1); err != nil {
			kafkaStore.Close()
			return nil, nil, err
		}
		sinks = append(sinks, kafkaStore)
	}

	pub := publisher.NewPublisher(sinks,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)
	return pub, func() {
		pub.Close()
		if kafkaStore != nil {
			kafkaStore.Close()
		}
	}, nil
}
