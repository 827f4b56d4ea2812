package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcatalog "github.com/erp/salesengine/internal/application/catalog"
	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/infrastructure/cache"
	"github.com/erp/salesengine/internal/infrastructure/config"
	"github.com/erp/salesengine/internal/infrastructure/event"
	"github.com/erp/salesengine/internal/infrastructure/logger"
	"github.com/erp/salesengine/internal/infrastructure/memstore"
	"github.com/erp/salesengine/internal/infrastructure/migration"
	"github.com/erp/salesengine/internal/infrastructure/persistence"
	"github.com/erp/salesengine/internal/infrastructure/scheduler"
	"github.com/erp/salesengine/internal/infrastructure/telemetry"
	"github.com/erp/salesengine/internal/interfaces/http/handler"
	"github.com/erp/salesengine/internal/interfaces/http/middleware"
	"github.com/erp/salesengine/internal/interfaces/http/router"
	"github.com/erp/salesengine/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// storage is the set of stores the services run on
type storage struct {
	scope           appsales.TransactionScope
	sales           sales.SaleRepository
	products        catalog.ProductRepository
	ledger          inventory.StockLedger
	reconciliations sales.ReconciliationRepository
	checks          map[string]handler.Pinger
	close           func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:     cfg.Telemetry.ServiceName,
		ServiceVersion:  version,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		TracingEnabled:  cfg.Telemetry.TracingEnabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		MetricsEnabled:  cfg.Telemetry.MetricsEnabled,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		LogsEnabled:     cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	if minLevel, err := logger.ParseLevel(cfg.Telemetry.LogsMinLevel); err == nil {
		log = providers.BridgeLogger(log, minLevel)
	}

	profiler, err := telemetry.StartProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileTypes:    cfg.Telemetry.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() { _ = profiler.Stop() }()
	if cfg.Telemetry.SpanProfiles && profiler.Running() {
		providers.EnableSpanProfiles()
	}

	log.Info("Starting sales engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
		zap.String("storage", cfg.Sales.StorageDriver),
	)

	store, err := openStorage(ctx, cfg, providers, log)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.close()

	// Events are delivered after commit: operator notifications always, the
	// Redis stream when enabled
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewSaleNotificationHandler(log, cfg.Events.NotificationLocale, cfg.Events.NotificationCurrency))
	if cfg.Events.StreamEnabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect the event stream", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		eventBus.Subscribe(event.NewRedisStreamPublisher(client, cfg.Events.Stream, cfg.Events.StreamMaxLen))
		log.Info("Publishing sale events to Redis stream",
			zap.String("stream", cfg.Events.Stream),
			zap.Int64("max_len", cfg.Events.StreamMaxLen),
		)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	idemFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idemStore, err := idemFactory.CreateStore(ctx, cfg.Sales.IdempotencyStore)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idemStore.Close() }()
	if pinger, ok := idemStore.(handler.Pinger); ok {
		store.checks["redis"] = pinger
	}

	location, _ := cfg.Sales.Location()
	coordinator := appsales.NewCoordinator(store.scope, store.sales, appsales.Config{
		NumberPrefix:         cfg.Sales.NumberPrefix,
		Location:             location,
		EmptySalePolicy:      appsales.EmptySalePolicy(cfg.Sales.EmptySalePolicy),
		MaxRetries:           cfg.Sales.MaxRetries,
		RetryInitialInterval: cfg.Sales.RetryInitialInterval,
		CompensationTimeout:  cfg.Sales.CompensationTimeout,
		IdempotencyTTL:       cfg.Sales.IdempotencyTTL,
	}, log)
	coordinator.SetEventPublisher(eventBus)
	coordinator.SetReconciliationRepository(store.reconciliations)
	coordinator.SetIdempotencyStore(idemStore)
	if cfg.Telemetry.MetricsEnabled {
		salesMetrics, err := telemetry.NewSalesMetrics(telemetry.SalesMetricsConfig{
			Meter: providers.Meter("sales-engine/sales"),
		})
		if err != nil {
			log.Fatal("Failed to register sales metrics", zap.Error(err))
		}
		coordinator.SetSalesMetrics(salesMetrics)
	}

	productService := appcatalog.NewProductService(store.products, store.ledger, log)
	productService.SetEventPublisher(eventBus)
	reconciliationService := appsales.NewReconciliationService(store.reconciliations, log)

	jobs := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig(), log)
	if interval := cfg.Sales.ReconciliationCheckInterval; interval > 0 {
		if err := jobs.Register(reconciliationService, interval); err != nil {
			log.Fatal("Failed to schedule reconciliation check", zap.Error(err))
		}
	}
	if err := jobs.Start(context.Background()); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request id first so every later layer can log it,
	// tracing before the logger so entries carry trace ids
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.TracingEnabled))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.MetricsEnabled {
		httpMetrics, err := middleware.HTTPMetrics(providers.Meter("sales-engine/http"))
		if err != nil {
			log.Fatal("Failed to register HTTP metrics", zap.Error(err))
		}
		engine.Use(httpMetrics)
	}
	engine.Use(middleware.Profiling(cfg.Telemetry.ProfilingEnabled))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r := router.Mount(engine, router.Handlers{
		Sales:           handler.NewSaleHandler(coordinator),
		Products:        handler.NewProductHandler(productService),
		Reconciliations: handler.NewReconciliationHandler(reconciliationService),
		Health:          handler.NewHealthHandler(version, store.checks),
	}, router.WithAPIVersion("v1"))
	log.Info("Routes registered", zap.String("base_path", r.BasePath()), zap.Int("count", len(engine.Routes())))
	for _, group := range r.Groups() {
		log.Info("Route group",
			zap.String("group", group.Name),
			zap.String("prefix", group.Prefix),
			zap.Int("routes", len(group.Routes)),
		)
		for _, route := range group.Routes {
			log.Debug("Route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler did not stop in time", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openStorage connects the configured storage driver. The memory driver
// keeps everything in process and is meant for local runs and demos.
func openStorage(ctx context.Context, cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) (*storage, error) {
	if cfg.Sales.StorageDriver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		mem := memstore.New()
		return &storage{
			scope:           memstore.NewScope(mem),
			sales:           mem.Sales(),
			products:        mem.Products(),
			ledger:          mem.Ledger(),
			reconciliations: mem.Reconciliations(),
			checks:          map[string]handler.Pinger{},
			close:           func() {},
		}, nil
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      cfg.Log.Level,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		LogSQL:        cfg.Telemetry.DBLogFullSQL,
	})
	if err != nil {
		return nil, err
	}
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	if cfg.Database.MigrateOnStart {
		if err := migrate(db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := telemetry.InstrumentDB(db.DB, telemetry.DBConfig{
		Enabled:            cfg.Telemetry.DBTraceEnabled,
		DBSystem:           "postgresql",
		WithQueryVariables: cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	if cfg.Telemetry.MetricsEnabled {
		if err := telemetry.RegisterPoolMetrics(providers.Meter("sales-engine/db"), db.DB); err != nil {
			log.Warn("Failed to register connection pool metrics", zap.Error(err))
		}
	}

	return &storage{
		scope:           db.Scope(cfg.Sales.NumberPrefix),
		sales:           persistence.NewGormSaleRepository(db.DB),
		products:        persistence.NewGormProductRepository(db.DB),
		ledger:          persistence.NewGormStockLedger(db.DB),
		reconciliations: persistence.NewGormReconciliationRepository(db.DB),
		checks:          map[string]handler.Pinger{"database": db},
		close: func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		},
	}, nil
}

// migrate applies the embedded schema migrations
func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, migration.Config{
		Table:            migration.DefaultTable,
		StatementTimeout: time.Minute,
	}, log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared *sql.DB
	return m.Up()
}
