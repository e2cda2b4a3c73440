package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rl1809/pantry-sync/internal/adapter/identity"
	"github.com/rl1809/pantry-sync/internal/adapter/storage"
	"github.com/rl1809/pantry-sync/internal/config"
	"github.com/rl1809/pantry-sync/internal/core/service"
	"github.com/rl1809/pantry-sync/internal/platform/database"
	"github.com/rl1809/pantry-sync/internal/platform/messaging"
	"github.com/rl1809/pantry-sync/internal/platform/observability"
	"github.com/rl1809/pantry-sync/internal/port"
)

type publisher interface {
	port.EventPublisher
	Close() error
}

// Infrastructure owns every long-lived resource of the service.
type Infrastructure struct {
	config *config.Config
	logger *zap.Logger

	redis        *redis.Client
	sqlDB        *sql.DB
	gormDBs      []*gorm.DB
	store        port.ItemStore
	identity     *identity.Provider
	publisher    publisher
	synchronizer *service.Synchronizer
	workers      sync.WaitGroup
	otelShutdown observability.ShutdownFunc
}

func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{config: cfg}

	tp, err := infra.setupObservability(ctx)
	if err != nil {
		return nil, err
	}

	if err := infra.setupRedis(ctx); err != nil {
		infra.Shutdown(ctx)
		return nil, err
	}
	if err := infra.setupStore(ctx); err != nil {
		infra.Shutdown(ctx)
		return nil, err
	}
	if err := infra.setupIdentity(ctx); err != nil {
		infra.Shutdown(ctx)
		return nil, err
	}
	if err := infra.setupPublisher(tp); err != nil {
		infra.Shutdown(ctx)
		return nil, err
	}

	infra.synchronizer = service.NewSynchronizer(infra.store, infra.identity, infra.publisher, infra.logger, cfg.Cleanup.QueueSize)
	infra.logger.Info("infrastructure ready",
		zap.String("store", cfg.Store.Backend),
		zap.String("identity", cfg.Identity.Driver),
		zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0),
	)
	return infra, nil
}

func (infra *Infrastructure) setupObservability(ctx context.Context) (trace.TracerProvider, error) {
	logShutdown, logErr := observability.SetupLoggingSDK(ctx, infra.config.Otel)
	tp, traceShutdown, traceErr := observability.SetupTracingSDK(ctx, infra.config.Otel)
	infra.otelShutdown = observability.JoinShutdown(traceShutdown, logShutdown)

	logger, err := observability.NewLogger(infra.config.Log, infra.config.Otel.Endpoint != "" && logErr == nil)
	if err != nil {
		return nil, err
	}
	infra.logger = logger

	// Exporter failures degrade to local logging only.
	if logErr != nil {
		logger.Error("failed to setup OpenTelemetry logging", zap.Error(logErr))
	}
	if traceErr != nil {
		logger.Error("failed to setup OpenTelemetry tracing", zap.Error(traceErr))
	}

	if tp == nil {
		return nil, nil
	}
	return tp, nil
}

func (infra *Infrastructure) setupRedis(ctx context.Context) error {
	if !infra.config.UsesRedis() {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     infra.config.Redis.Addr,
		PoolSize: infra.config.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("connect redis: %w", err)
	}
	infra.redis = rdb
	infra.logger.Info("connected to redis", zap.String("addr", infra.config.Redis.Addr))
	return nil
}

func (infra *Infrastructure) setupStore(ctx context.Context) error {
	cfg := infra.config.Store

	switch cfg.Backend {
	case config.BackendMemory:
		infra.store = storage.NewMemoryAdapter()

	case config.BackendRedis:
		infra.store = storage.NewRedisAdapter(infra.redis, cfg.KeyPrefix)

	case config.BackendMySQL, config.BackendPostgres:
		driver, dialect := "mysql", storage.MySQLDialect
		if cfg.Backend == config.BackendPostgres {
			driver, dialect = "postgres", storage.PostgresDialect
		}
		db, err := database.OpenSQL(ctx, driver, cfg.DSN)
		if err != nil {
			return err
		}
		infra.sqlDB = db

		adapter := storage.NewSQLAdapter(db, dialect)
		if err := adapter.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate item store: %w", err)
		}
		infra.store = adapter

	case config.BackendSQLite:
		db, err := database.OpenGorm(config.BackendSQLite, cfg.DSN)
		if err != nil {
			return err
		}
		infra.gormDBs = append(infra.gormDBs, db)

		adapter := storage.NewGormAdapter(db)
		if err := adapter.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate item store: %w", err)
		}
		infra.store = adapter

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	return nil
}

func (infra *Infrastructure) setupIdentity(ctx context.Context) error {
	cfg := infra.config.Identity

	db, err := database.OpenGorm(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	infra.gormDBs = append(infra.gormDBs, db)

	users := identity.NewUserRepository(db)
	if err := users.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}

	var denylist identity.Denylist = identity.NewMemoryDenylist()
	if cfg.Denylist == config.BackendRedis {
		denylist = storage.NewRedisAdapter(infra.redis, infra.config.Store.KeyPrefix)
	}

	infra.identity = identity.NewProvider(users, denylist, cfg.SigningKey, cfg.TokenTTL, infra.logger)
	return nil
}

func (infra *Infrastructure) setupPublisher(tp trace.TracerProvider) error {
	if len(infra.config.Kafka.Brokers) == 0 {
		infra.publisher = messaging.NoopPublisher{}
		return nil
	}

	writer, err := messaging.NewKafkaWriter(infra.config.Kafka, tp)
	if err != nil {
		return err
	}
	infra.publisher = messaging.NewKafkaPublisher(writer, infra.logger)
	return nil
}

// StartCleanupWorkers launches the identity cleanup pool. The workers stop
// once Shutdown closes the cleanup queue.
func (infra *Infrastructure) StartCleanupWorkers(ctx context.Context) {
	cfg := infra.config.Cleanup
	worker := service.NewCleanupWorker(infra.identity, infra.logger, cfg.MaxRetries, cfg.InitialInterval)

	for i := 0; i < cfg.Workers; i++ {
		infra.workers.Add(1)
		go func(id int) {
			defer infra.workers.Done()
			worker.Run(ctx, id, infra.synchronizer.GetCleanupQueue())
		}(i)
	}
	infra.logger.Info("started cleanup workers", zap.Int("count", cfg.Workers))
}

func (infra *Infrastructure) Shutdown(ctx context.Context) {
	if infra.logger == nil {
		return
	}
	infra.logger.Info("shutting down infrastructure")

	if infra.synchronizer != nil {
		infra.synchronizer.Close()
		infra.workers.Wait()
		infra.logger.Info("cleanup workers stopped")
	}

	var errs []error
	if infra.publisher != nil {
		errs = append(errs, infra.publisher.Close())
	}
	if infra.redis != nil {
		errs = append(errs, infra.redis.Close())
	}
	if infra.sqlDB != nil {
		errs = append(errs, infra.sqlDB.Close())
	}
	for _, db := range infra.gormDBs {
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if infra.otelShutdown != nil {
		errs = append(errs, infra.otelShutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		infra.logger.Error("shutdown incomplete", zap.Error(err))
	}

	_ = infra.logger.Sync()
}

func (infra *Infrastructure) Config() *config.Config { return infra.config }
func (infra *Infrastructure) Logger() *zap.Logger { return infra.logger }
func (infra *Infrastructure) Store() port.ItemStore { return infra.store }
func (infra *Infrastructure) Identity() *identity.Provider { return infra.identity }
func (infra *Infrastructure) Synchronizer() *service.Synchronizer { return infra.synchronizer }
