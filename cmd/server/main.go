package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	appacc "github.com/ledger/backend/internal/application/accounting"
	appevent "github.com/ledger/backend/internal/application/event"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/infrastructure/auth"
	"github.com/ledger/backend/internal/infrastructure/cache"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/event"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/persistence"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/ledger/backend/internal/interfaces/http/handler"
	"github.com/ledger/backend/internal/interfaces/http/middleware"
	"github.com/ledger/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Bootstrap logger for telemetry setup; replaced once the OTLP logs bridge exists
	bootLog, err := newLogger(cfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	log := bootLog
	if core := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: lp,
		Level:          logger.ParseLevel(cfg.Telemetry.LogsExportLevel),
	}); core != nil {
		log, err = newLogger(cfg, logger.WithTee(core))
		if err != nil {
			bootLog.Fatal("Failed to attach OTLP logs bridge", zap.Error(err))
		}
	}
	defer func() { _ = log.Sync() }()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiler.Enabled,
		ServerAddress:     cfg.Profiler.ServerAddress,
		ApplicationName:   cfg.Profiler.ApplicationName,
		BasicAuthUser:     cfg.Profiler.BasicAuthUser,
		BasicAuthPassword: cfg.Profiler.BasicAuthPassword,
		ProfileContention: cfg.Profiler.ProfileContention,
		ContentionRate:    cfg.Profiler.ContentionRate,
		Tags:              map[string]string{"env": cfg.App.Env},
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiler.Enabled && cfg.Profiler.SpanProfiles {
		if err := tp.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link profiles to spans", zap.Error(err))
		}
	}

	log.Info("Starting ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	var plugins []persistence.Plugin
	if cfg.Telemetry.DBTraceEnabled {
		plugins = append(plugins, telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log))
	}
	db, err := persistence.Open(ctx, &cfg.Database, gormLog, plugins...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = mp.IsEnabled()
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, dbMetricsCfg, log)
	if err != nil {
		log.Warn("Database metrics unavailable", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cache.FromConfig(cfg.Redis))
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected")
	}

	// Events
	serializer := event.NewEventSerializer()
	event.RegisterVoucherEvents(serializer)
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(appevent.NewVoucherAuditHandler(serializer, log, event.VoucherEventTypes...))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Accounting
	permissions := persistence.NewGormPermissionChecker(db.DB)
	rateService := appacc.NewExchangeRateService(persistence.NewGormExchangeRateRepository(db.DB), permissions, log)

	policyStore := persistence.NewGormPolicyConfigRepository(db.DB)
	var policyConfigs accounting.AccountingPolicyConfigProvider = policyStore
	var locker appacc.PostingLocker
	if redisClient != nil {
		policyConfigs = cache.NewCachedPolicyConfigProvider(policyStore, redisClient,
			cache.WithPolicyConfigTTL(cfg.Accounting.PolicyConfigTTL),
			cache.WithPolicyConfigLogger(log))
		locker = cache.NewRedisPostingLocker(redisClient)
	}

	voucherMetrics, err := telemetry.NewVoucherMetrics(mp.Meter("ledger.voucher"), log)
	if err != nil {
		log.Fatal("Failed to create voucher metrics", zap.Error(err))
	}

	voucherService := appacc.NewVoucherService(appacc.VoucherServiceDeps{
		TxScope:             persistence.NewGormTransactionScope(db.DB),
		Vouchers:            persistence.NewGormVoucherRepository(db.DB),
		Permissions:         permissions,
		Configs:             policyConfigs,
		Accounts:            persistence.NewGormAccountLookupService(db.DB),
		Scopes:              persistence.NewGormAccessScopeProvider(db.DB),
		Rates:               rateService,
		Events:              bus,
		Locker:              locker,
		Metrics:             voucherMetrics,
		Logger:              log,
		DefaultBaseCurrency: cfg.Accounting.DefaultBaseCurrency,
		PostingLockTTL:      cfg.Accounting.PostingLockTTL,
	})

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(redisClient,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	var revocations auth.RevocationList = auth.NewInMemoryRevocationList()
	if redisClient != nil {
		revocations = auth.NewRedisRevocationList(redisClient)
	}

	engine, err := newEngine(cfg, log, mp, redisClient)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(
			middleware.Identity(middleware.IdentityConfig{
				Validator:      auth.NewTokenValidator(cfg.JWT),
				Revocations:    revocations,
				HeaderFallback: cfg.JWT.HeaderFallback,
				Logger:         log,
			}),
			middleware.TracingAttributeInjector(),
			middleware.Profiling(cfg.Profiler.Enabled),
		),
	).
		Register(router.VoucherRoutes{
			Handler:     handler.NewVoucherHandler(voucherService),
			Idempotency: middleware.Idempotency(idempotencyStore, cfg.Accounting.IdempotencyTTL),
		}).
		Register(router.ExchangeRateRoutes{Handler: handler.NewExchangeRateHandler(rateService)}).
		Setup()

	router.RegisterSystemRoutes(engine, handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion,
		healthChecks(db, redisClient)...))

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
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus stop failed", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func newLogger(cfg *config.Config, opts ...logger.Option) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	}, append(opts, logger.WithFields(zap.String("service", cfg.Telemetry.ServiceName)))...)
}

// newEngine builds the gin engine with the middleware shared by every route
func newEngine(cfg *config.Config, log *zap.Logger, mp *telemetry.MeterProvider, redisClient *redis.Client) (*gin.Engine, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		middleware.SpanErrorMarker(),
		middleware.CORS(cfg.HTTP),
		middleware.SecureHeaders(middleware.SecurityConfig{
			HSTSEnabled: cfg.App.Env == "production",
			HSTSMaxAge:  31536000,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.HTTPMetrics(mp, log),
	)

	if cfg.HTTP.RateLimit != middleware.RateLimitDisabled {
		instance, err := middleware.NewRateLimiter(cfg.HTTP.RateLimit, redisClient)
		if err != nil {
			return nil, err
		}
		engine.Use(middleware.RateLimit(instance))
	}

	return engine, nil
}

func healthChecks(db *persistence.Database, redisClient *redis.Client) []handler.HealthCheck {
	checks := []handler.HealthCheck{{
		Name:     "database",
		Critical: true,
		Check: func(ctx context.Context) error {
			return db.PingContext(ctx)
		},
	}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	return checks
}
