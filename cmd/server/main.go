package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/masterdata"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	bootLog, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, version, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			bootLog.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	log, err := logger.New(logger.FromAppConfig(cfg.Log),
		logger.WithCore(providers.ZapCore(logger.ParseLevel(cfg.Log.Level))),
		logger.WithFields(zap.String("service", cfg.App.Name), zap.String("version", version)),
	)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting ledger service",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Ledger.Backend),
	)

	profiler, err := telemetry.NewProfiler(cfg.Profiler, log)
	if err != nil {
		log.Warn("Continuing without profiler", zap.Error(err))
	} else {
		if profiler.IsEnabled() {
			providers.EnableSpanProfiles()
		}
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Failed to stop profiler", zap.Error(err))
			}
		}()
	}

	meter := providers.Meter(telemetry.TracerName)

	st, err := openStores(cfg, meter, log)
	if err != nil {
		log.Fatal("Failed to open ledger stores", zap.Error(err))
	}
	defer st.close()

	coordination, err := cache.NewCoordinationFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
		cache.WithDistributedLockTTL(cfg.Ledger.LockTTL),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to set up coordination", zap.Error(err))
	}
	defer func() {
		if err := coordination.Close(); err != nil {
			log.Error("Failed to close coordination", zap.Error(err))
		}
	}()

	// Services
	coordinator := appledger.NewCoordinator(st.scope, coordination.Locker, appledger.CoordinatorConfig{
		LockTimeout: cfg.Ledger.LockTimeout,
		Idempotency: shared.IdempotencyConfig{
			TTL:     cfg.Ledger.IdempotencyTTL,
			Enabled: true,
		},
		EnforceCreditLimit: cfg.Ledger.EnforceCreditLimit,
	}, log.Named("coordinator"))
	coordinator.SetIdempotencyStore(coordination.Idempotency)

	queries := appledger.NewQueryService(st.quantities, st.balances, st.journal, st.transactions)
	reorder := appledger.NewReorderMonitor(st.levels, st.products, log.Named("reorder"))
	md := masterdata.NewService(st.products, st.warehouses, st.parties, st.accounts, coordination.Locker, log.Named("masterdata"))
	md.SetLockTimeout(cfg.Ledger.LockTimeout)

	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           meter,
		Logger:          log,
		ReorderProvider: reorder,
	})
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	coordinator.SetLedgerMetrics(ledgerMetrics)
	reorder.SetLedgerMetrics(ledgerMetrics)
	ledgerMetrics.StartPeriodicCollection(ctx, cfg.Ledger.ReorderCollectInterval)
	defer ledgerMetrics.Stop()

	// Events
	bus := event.NewInMemoryEventBus(log.Named("events"))
	if client := coordination.Client(); client != nil {
		// every instance hears every commit; redeliveries are dropped per instance,
		// so each one keeps its own reorder log and gauge current
		seen := cache.NewInMemoryIdempotencyStore()
		defer func() { _ = seen.Close() }()
		bus.Subscribe(event.NewIdempotentHandler(reorder, seen,
			shared.IdempotencyConfig{TTL: cfg.Ledger.IdempotencyTTL, Enabled: true}, log.Named("events")))
		publisher := event.NewRedisPublisher(client, event.DefaultChannel, event.NewEventSerializer(), log.Named("events"))
		coordinator.SetEventPublisher(publisher)
		go func() {
			if err := publisher.Relay(ctx, bus); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Event relay stopped", zap.Error(err))
			}
		}()
	} else {
		bus.Subscribe(reorder)
		coordinator.SetEventPublisher(bus)
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() { _ = bus.Stop(context.Background()) }()

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	jwtService := auth.NewJWTService(cfg.JWT)
	system := handler.NewSystemHandler(cfg.App.Name, version)
	system.AddCheck("database", handler.HealthCheckerFunc(st.ping))
	system.AddCheck("redis", handler.HealthCheckerFunc(coordination.Ping))

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSOrigins

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.Telemetry.ServiceName),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
		middleware.HTTPMetrics(meter),
		middleware.JWTAuthMiddlewareWithConfig(middleware.DefaultJWTConfig(jwtService)),
		middleware.TracingAttributeInjector(),
		middleware.Profiling(middleware.DefaultProfilingConfig()),
	)
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		go limiter.Run(ctx)
		engine.Use(middleware.RateLimit(limiter))
	}

	router.RegisterHealth(engine, system)
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.LedgerGroups(router.Handlers{
		Ledger:     handler.NewLedgerHandler(coordinator, queries),
		Query:      handler.NewQueryHandler(queries, reorder),
		MasterData: handler.NewMasterDataHandler(md),
		System:     system,
	}, middleware.RoleGateConfig{Logger: log})...)
	r.Setup()
	log.Debug("Routes registered", zap.Strings("routes", r.Routes()))

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	drainStart := time.Now()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited", zap.Duration("drain", time.Since(drainStart)))
}
