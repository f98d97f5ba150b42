package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pay-router.backend/internal/config"
	"pay-router.backend/internal/domain/entities"
	domainrepos "pay-router.backend/internal/domain/repositories"
	"pay-router.backend/internal/infrastructure/acquirers"
	"pay-router.backend/internal/infrastructure/cache"
	pgsource "pay-router.backend/internal/infrastructure/datasources/postgres"
	"pay-router.backend/internal/infrastructure/jobs"
	"pay-router.backend/internal/infrastructure/messaging"
	"pay-router.backend/internal/infrastructure/models"
	"pay-router.backend/internal/infrastructure/repositories"
	"pay-router.backend/internal/interfaces/http/handlers"
	"pay-router.backend/internal/interfaces/http/middleware"
	"pay-router.backend/internal/usecases"
	"pay-router.backend/pkg/logger"
	"pay-router.backend/pkg/metrics"
	"pay-router.backend/pkg/redis"
)

const (
	notificationQueueSize = 256
	shutdownTimeout       = 15 * time.Second
)

type closableNotifier interface {
	domainrepos.Notifier
	Close() error
}

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		sqlDB, err := pgsource.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		return gorm.Open(postgres.New(postgres.Config{
			Conn:                 sqlDB,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	newRabbitMQNotifier = func(url, exchange string) (closableNotifier, error) {
		return messaging.NewRabbitMQNotifier(url, exchange)
	}
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	initLog(cfg.Server.Env)
	defer logger.Sync()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if cfg.Redis.URL != "" {
		if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
			logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redis.Close()
		logger.Info(ctx, "Redis initialized")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info(ctx, "Database migrated")
	}

	rec := metrics.New()

	// Repositories
	stepRepo := repositories.NewRetryStepRepository(db)
	eventRepo := repositories.NewApiEventRepository(db)
	chargebackRepo := repositories.NewChargebackRepository(db)
	circuitRepo := repositories.NewCircuitStateRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Collaborators
	var baseNotifier domainrepos.Notifier = messaging.NewLogNotifier()
	if cfg.RabbitMQ.Enabled {
		rmq, err := newRabbitMQNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn(ctx, "RabbitMQ unavailable, notifications will only be logged", zap.Error(err))
		} else {
			defer rmq.Close()
			baseNotifier = rmq
		}
	}
	notifier := messaging.NewAsyncNotifier(baseNotifier, notificationQueueSize, rec)

	var resultStore domainrepos.TransactionResultStore
	if client := redis.GetClient(); client != nil {
		resultStore = cache.NewRedisResultStore(client, cfg.Failover.ResultTTL)
	} else {
		logger.Warn(ctx, "Redis not configured, transaction results are cached in memory")
		resultStore = cache.NewMemoryResultStore(cfg.Failover.ResultTTL)
	}

	registry := buildAdapterRegistry(ctx, cfg.Acquirers)

	// Usecases
	breaker := usecases.NewCircuitBreaker(usecases.CircuitBreakerSettings{
		Threshold:    cfg.Failover.FailureThreshold,
		Window:       cfg.Failover.FailureWindow,
		OpenDuration: cfg.Failover.OpenDuration,
	}, rec)
	restoreCircuits(ctx, breaker, circuitRepo)

	chainUsecase := usecases.NewRetryChainUsecase(stepRepo, uow)
	if cfg.Failover.ChainSeedFile != "" {
		seeded, err := chainUsecase.SeedFromFile(ctx, cfg.Failover.ChainSeedFile)
		if err != nil {
			return fmt.Errorf("failed to seed retry chains: %w", err)
		}
		logger.Info(ctx, "Retry chains seeded", zap.Int("methods", seeded))
	}

	eventLog := usecases.NewEventLogUsecase(eventRepo, nil, breaker, usecases.EventLogSettings{
		BufferSize:    cfg.EventLog.BufferSize,
		BatchSize:     cfg.EventLog.BatchSize,
		FlushInterval: cfg.EventLog.FlushInterval,
		MaxWindow:     cfg.EventLog.MaxWindow,
	}, rec)
	if n, err := eventLog.WarmUp(ctx); err != nil {
		logger.Warn(ctx, "Health warm-up failed, starting with empty counters", zap.Error(err))
	} else {
		logger.Info(ctx, "Health counters warmed up", zap.Int("events", n))
	}

	orchestrator := usecases.NewFailoverOrchestrator(chainUsecase, breaker, eventLog, registry, resultStore, notifier, rec, usecases.FailoverSettings{
		AdapterTimeout:    cfg.Failover.AcquirerTimeout,
		RecordRetryEvents: cfg.Failover.RecordRetryEvents,
	})
	chargebackUsecase := usecases.NewChargebackUsecase(chargebackRepo, uow, notifier)

	// Background jobs
	snapshotJob := jobs.NewCircuitSnapshotJob(breaker, circuitRepo, cfg.Failover.SnapshotInterval)
	go snapshotJob.Start(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r, rec)
	registerAPIV1Routes(r, routeDeps{
		transactionHandler: handlers.NewTransactionHandler(orchestrator),
		retryChainHandler:  handlers.NewRetryChainHandler(chainUsecase),
		acquirerHandler:    handlers.NewAcquirerHandler(eventLog, breaker),
		chargebackHandler:  handlers.NewChargebackHandler(chargebackUsecase),
		idempotency:        middleware.IdempotencyMiddleware(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "HTTP server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info(ctx, "Pay-Router Backend starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("routes", len(r.Routes())),
		zap.Any("acquirers", registry.Registered()),
	)

	serveErr := runServer(srv)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	logger.Info(ctx, "Shutting down")
	snapshotJob.Stop()
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := eventLog.Close(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Event log did not drain", zap.Error(err))
	}
	if err := notifier.Close(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Notifications did not drain", zap.Error(err))
	}

	if serveErr != nil {
		return fmt.Errorf("failed to start server: %w", serveErr)
	}
	return nil
}

// buildAdapterRegistry registers an HTTP adapter for every configured
// endpoint and, when simulation is enabled, a simulated one for the rest.
func buildAdapterRegistry(ctx context.Context, cfg config.AcquirersConfig) *acquirers.Registry {
	registry := acquirers.NewRegistry()
	for _, acq := range entities.AllAcquirers() {
		if ep, ok := cfg.Endpoints[string(acq)]; ok {
			registry.Register(acquirers.NewHTTPAdapter(acq, ep.URL, ep.APIKey, nil))
			continue
		}
		if cfg.Simulate {
			registry.Register(acquirers.NewSimulatedAdapter(acq, acquirers.SimulatedOptions{
				Latency:     50 * time.Millisecond,
				FailureRate: 0.1,
			}))
			continue
		}
		logger.Warn(ctx, "No adapter configured for acquirer", zap.String("acquirer", string(acq)))
	}
	return registry
}

func restoreCircuits(ctx context.Context, breaker *usecases.CircuitBreaker, repo domainrepos.CircuitStateRepository) {
	states, err := repo.List(ctx)
	if err != nil {
		logger.Warn(ctx, "Failed to load circuit snapshots, starting CLOSED", zap.Error(err))
		return
	}
	restored := breaker.Restore(states)
	logger.Info(ctx, "Circuit state restored", zap.Int("acquirers", restored))
}
