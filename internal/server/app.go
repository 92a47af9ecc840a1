// Package server builds the application's dependencies from configuration and runs them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/pokeapi-ingest/internal/api"
	"github.com/JakeFAU/pokeapi-ingest/internal/clock/system"
	"github.com/JakeFAU/pokeapi-ingest/internal/config"
	"github.com/JakeFAU/pokeapi-ingest/internal/cursor"
	"github.com/JakeFAU/pokeapi-ingest/internal/fetcher"
	collyfetcher "github.com/JakeFAU/pokeapi-ingest/internal/fetcher/colly"
	"github.com/JakeFAU/pokeapi-ingest/internal/id/uuid"
	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
	"github.com/JakeFAU/pokeapi-ingest/internal/logging"
	"github.com/JakeFAU/pokeapi-ingest/internal/pipeline"
	gcppublisher "github.com/JakeFAU/pokeapi-ingest/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/pokeapi-ingest/internal/storage/gcs"
	localstorage "github.com/JakeFAU/pokeapi-ingest/internal/storage/local"
	memorystorage "github.com/JakeFAU/pokeapi-ingest/internal/storage/memory"
	pgstore "github.com/JakeFAU/pokeapi-ingest/internal/storage/postgres"
	redisstorage "github.com/JakeFAU/pokeapi-ingest/internal/storage/redis"
	"github.com/JakeFAU/pokeapi-ingest/internal/telemetry"
	"github.com/JakeFAU/pokeapi-ingest/internal/warehouse"
	bqwarehouse "github.com/JakeFAU/pokeapi-ingest/internal/warehouse/bigquery"
	memorywarehouse "github.com/JakeFAU/pokeapi-ingest/internal/warehouse/memory"
	pgwarehouse "github.com/JakeFAU/pokeapi-ingest/internal/warehouse/postgres"
)

// Version is reported on the telemetry resource.
var Version = "dev"

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	runner    *pipeline.Runner
	apiServer *api.Server
	blobs     ingest.BlobStore
	warehouse ingest.Warehouse
	runs      ingest.RunStore

	storage      *storage.Client
	redis        *goredis.Client
	bigquery     *bigquery.Client
	pgWarehouse  *pgwarehouse.Warehouse
	pgRuns       *pgstore.RunStore
	pubsubClient *pubsub.Client
	publisher    *gcppublisher.Publisher
	telemetry    *telemetry.Providers
}

// Runner returns the ingestion runner.
func (a *App) Runner() *pipeline.Runner {
	return a.runner
}

// Handler returns the HTTP trigger handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// BlobStore returns the cursor backend.
func (a *App) BlobStore() ingest.BlobStore {
	return a.blobs
}

// Warehouse returns the destination warehouse.
func (a *App) Warehouse() ingest.Warehouse {
	return a.warehouse
}

// RunStore returns the run history store, or nil when history is disabled.
func (a *App) RunStore() ingest.RunStore {
	return a.runs
}

// Build creates the application's dependencies. logger may be nil, in which case one
// is built from cfg.Logging.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
	}
	app := &App{cfg: cfg, logger: logger}
	if err := app.build(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	if a.cfg.Telemetry.TracingEnabled {
		providers, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: a.cfg.Telemetry.ServiceName,
			Version:     Version,
			ProjectID:   a.cfg.Telemetry.ProjectID,
		})
		if err != nil {
			return fmt.Errorf("telemetry init failed: %w", err)
		}
		a.telemetry = providers
	}

	a.logger.Info("building application dependencies")
	if err := a.setupCursorBackend(ctx); err != nil {
		return err
	}
	if err := a.setupWarehouse(ctx); err != nil {
		return err
	}
	if err := a.setupHistory(ctx); err != nil {
		return err
	}
	publisher, err := a.setupPublisher(ctx)
	if err != nil {
		return err
	}

	cursorStore, err := cursor.New(a.blobs, cursor.Config{
		Key:        a.cfg.Cursor.Key,
		DefaultURL: a.cfg.Source.DefaultURL,
	}, a.logger.Named("cursor"))
	if err != nil {
		return fmt.Errorf("cursor store init failed: %w", err)
	}

	getter := collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Source.UserAgent,
		RespectRobots: a.cfg.Source.RespectRobots,
		Timeout:       a.cfg.SourceTimeout(),
	})
	a.logger.Info("using colly getter", zap.String("user_agent", a.cfg.Source.UserAgent))

	var opts []pipeline.Option
	if a.runs != nil {
		opts = append(opts, pipeline.WithRunStore(a.runs))
	}
	if a.telemetry != nil {
		opts = append(opts, pipeline.WithTracerProvider(a.telemetry.TracerProvider))
	}
	a.runner, err = pipeline.New(
		cursorStore,
		fetcher.New(getter, a.logger.Named("fetcher")),
		warehouse.NewProvisioner(a.warehouse, a.logger.Named("provisioner")),
		a.warehouse,
		publisher,
		system.New(),
		uuid.New(),
		pipeline.Config{
			DatasetID: a.cfg.Warehouse.Dataset,
			TableID:   a.cfg.Warehouse.Table,
			Topic:     a.cfg.PubSub.Topic,
		},
		a.logger.Named("pipeline"),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("pipeline init failed: %w", err)
	}

	a.apiServer = api.NewServer(a.runner, a.runs, api.Config{
		AckMessage: a.cfg.Server.AckMessage,
	}, a.logger.Named("api"))
	return nil
}

func (a *App) setupCursorBackend(ctx context.Context) error {
	var err error
	switch a.cfg.Cursor.Backend {
	case config.CursorBackendGCS:
		a.logger.Info("using GCS cursor backend", zap.String("bucket", a.cfg.Cursor.Bucket))
		a.storage, err = storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		a.blobs, err = gcsstorage.New(a.storage, gcsstorage.Config{Bucket: a.cfg.Cursor.Bucket})
		if err != nil {
			return fmt.Errorf("gcs blob store init failed: %w", err)
		}
	case config.CursorBackendRedis:
		a.logger.Info("using redis cursor backend", zap.String("addr", a.cfg.Cursor.RedisAddr))
		a.redis = goredis.NewClient(&goredis.Options{
			Addr: a.cfg.Cursor.RedisAddr,
			DB:   a.cfg.Cursor.RedisDB,
		})
		a.blobs, err = redisstorage.New(a.redis, redisstorage.Config{KeyPrefix: a.cfg.Cursor.Bucket})
		if err != nil {
			return fmt.Errorf("redis blob store init failed: %w", err)
		}
	case config.CursorBackendLocal:
		a.logger.Info("using local cursor backend", zap.String("path", a.cfg.Cursor.BaseDir))
		a.blobs, err = localstorage.New(localstorage.Config{BaseDir: a.cfg.Cursor.BaseDir})
		if err != nil {
			return fmt.Errorf("local blob store init failed: %w", err)
		}
	default:
		a.logger.Info("using in-memory cursor backend")
		a.blobs = memorystorage.NewBlobStore()
	}
	return nil
}

func (a *App) setupWarehouse(ctx context.Context) error {
	var err error
	switch a.cfg.Warehouse.Backend {
	case config.WarehouseBackendBigQuery:
		a.logger.Info("using BigQuery warehouse", zap.String("project", a.cfg.Warehouse.ProjectID))
		a.bigquery, err = bigquery.NewClient(ctx, a.cfg.Warehouse.ProjectID)
		if err != nil {
			return fmt.Errorf("bigquery client init failed: %w", err)
		}
		a.warehouse, err = bqwarehouse.New(a.bigquery, bqwarehouse.Config{Location: a.cfg.Warehouse.Location})
		if err != nil {
			return fmt.Errorf("bigquery warehouse init failed: %w", err)
		}
	case config.WarehouseBackendPostgres:
		a.logger.Info("using Postgres warehouse")
		a.pgWarehouse, err = pgwarehouse.New(ctx, pgwarehouse.Config{
			DSN:      a.cfg.Warehouse.DSN,
			MaxConns: a.cfg.Warehouse.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("postgres warehouse init failed: %w", err)
		}
		a.warehouse = a.pgWarehouse
	default:
		a.logger.Warn("using in-memory warehouse; rows are discarded on exit")
		a.warehouse = memorywarehouse.New()
	}
	return nil
}

func (a *App) setupHistory(ctx context.Context) error {
	switch a.cfg.History.Backend {
	case config.HistoryBackendPostgres:
		store, err := pgstore.NewRunStore(ctx, pgstore.RunStoreConfig{
			DSN:   a.cfg.History.DSN,
			Table: a.cfg.History.Table,
		})
		if err != nil {
			return fmt.Errorf("run store init failed: %w", err)
		}
		a.pgRuns = store
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("run store schema failed: %w", err)
		}
		a.runs = store
		a.logger.Info("run history initialized", zap.String("table", a.cfg.History.Table))
	case config.HistoryBackendMemory:
		a.runs = memorystorage.NewRunStore()
		a.logger.Info("run history kept in memory")
	default:
		a.logger.Info("run history disabled")
	}
	return nil
}

func (a *App) setupPublisher(ctx context.Context) (ingest.Publisher, error) {
	if a.cfg.PubSub.Topic == "" {
		a.logger.Info("no Pub/Sub topic configured, run summaries are not published")
		return nil, nil
	}
	var err error
	a.pubsubClient, err = pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.publisher = gcppublisher.New(a.pubsubClient)
	a.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic),
	)
	return a.publisher, nil
}

// Serve starts the HTTP trigger server and blocks until ctx is canceled or a
// termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases every client the App opened.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure()
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis client close failed", zap.Error(err))
		}
	}
	if a.bigquery != nil {
		if err := a.bigquery.Close(); err != nil {
			a.logger.Warn("bigquery client close failed", zap.Error(err))
		}
	}
	if a.pgWarehouse != nil {
		a.pgWarehouse.Close()
	}
	if a.pgRuns != nil {
		a.pgRuns.Close()
	}
}

func (a *App) closeObservability(ctx context.Context) {
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
