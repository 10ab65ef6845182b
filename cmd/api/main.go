package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"github.com/wms-platform/audit-service/internal/api/handlers"
	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/auth"
	"github.com/wms-platform/audit-service/internal/config"
	kafkaPublisher "github.com/wms-platform/audit-service/internal/infrastructure/kafka"
	mongoRepo "github.com/wms-platform/audit-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/audit-service/internal/infrastructure/notification"
	redisInfra "github.com/wms-platform/audit-service/internal/infrastructure/redis"
	"github.com/wms-platform/audit-service/internal/realtime"
	"github.com/wms-platform/audit-service/pkg/cloudevents"
	"github.com/wms-platform/audit-service/pkg/idempotency"
	"github.com/wms-platform/audit-service/pkg/kafka"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/metrics"
	"github.com/wms-platform/audit-service/pkg/middleware"
	"github.com/wms-platform/audit-service/pkg/mongodb"
	"github.com/wms-platform/audit-service/pkg/tracing"
)

const tokenIssuer = "odin-audit"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(config.ServiceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(config.ServiceName)
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logConfig.Environment = cfg.Environment
	logConfig.Version = cfg.Version
	logger := logging.New(logConfig)
	logger.SetDefault()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Service stopped with error")
		os.Exit(1)
	}
}

// appDependencies is everything the router needs
type appDependencies struct {
	cfg          *config.Config
	logger       *logging.Logger
	metrics      *metrics.Metrics
	db           handlers.DatabaseState
	auditService handlers.AuditService
	authService  handlers.AuthService
	adminService handlers.AdminService
	streams      handlers.Subscriber
	authenticate gin.HandlerFunc
	idempotent   gin.HandlerFunc
	loginLimit   gin.HandlerFunc
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Starting audit-service API", "environment", cfg.Environment, "version", cfg.Version)

	tracerProvider, err := tracing.Initialize(ctx, cfg.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		if cfg.Tracing.Enabled() {
			logger.Info("Tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint)
		}
	}

	m := metrics.New(metrics.DefaultConfig(config.ServiceName))

	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Close(context.Background()) }()
	db := mongoClient.Database()
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	if err := mongoRepo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	idempotencyRepo := idempotency.NewMongoKeyRepository(db)
	if err := idempotencyRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	}

	observer := mongodb.NewObserver(cfg.MongoDB.Database, m, logger)
	entries := mongoRepo.NewEntryRepository(db, observer)
	identities := mongoRepo.NewIdentityRepository(db, observer)
	references := mongoRepo.NewReferenceRepository(db, observer)

	var (
		cache        application.CatalogCache
		locker       application.UploadLocker
		limiterStore limiter.Store
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redisInfra.NewClient(ctx, redisInfra.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()

		cache, locker, limiterStore, err = redisServices(redisClient, cfg.Redis.CacheTTL, logger)
		if err != nil {
			return err
		}
		logger.Info("Redis enabled", "addr", cfg.Redis.Addr)
	}

	var publisher application.EventPublisher
	if cfg.Kafka != nil {
		producer := kafka.NewInstrumentedProducer(kafka.NewProducer(cfg.Kafka), m, logger)
		defer func() { _ = producer.Close() }()
		publisher = kafkaPublisher.NewEventPublisher(producer, cloudevents.NewEventFactory(cloudevents.SourceAudit), kafka.Topics.AuditEvents)
		logger.Info("Kafka publishing enabled", "brokers", cfg.Kafka.Brokers)
	}

	notifier := buildNotifier(cfg, logger, m)
	logger.Info("Notifier initialized", "channels", notifier.Channels())

	hub := realtime.NewHub(logger, m)
	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL, tokenIssuer)

	auditService := application.NewAuditService(application.AuditDependencies{
		Entries:     entries,
		Identities:  identities,
		References:  references,
		Cache:       cache,
		Notifier:    notifier,
		Publisher:   publisher,
		Broadcaster: hub,
		Logger:      logger,
		Metrics:     m,
	})
	adminService := application.NewAdminService(application.AdminDependencies{
		Entries:    entries,
		Identities: identities,
		References: references,
		Hasher:     hasher,
		Cache:      cache,
		Locker:     locker,
		Logger:     logger,
		Metrics:    m,
	})
	authService := application.NewAuthService(identities, hasher, tokens, logger)

	loginLimit, err := middleware.RateLimit(middleware.RateLimitConfig{
		Rate:   cfg.LoginRateLimit,
		Store:  limiterStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	idempotencyConfig := idempotency.DefaultConfig(config.ServiceName, idempotencyRepo)
	idempotencyConfig.Logger = logger
	idempotencyConfig.Metrics = m
	idempotencyConfig.UserIDExtractor = func(c *gin.Context) string {
		if p, ok := auth.PrincipalFrom(c); ok {
			return p.ID.Hex()
		}
		return ""
	}

	router := newRouter(appDependencies{
		cfg:          cfg,
		logger:       logger,
		metrics:      m,
		db:           mongoClient,
		auditService: auditService,
		authService:  authService,
		adminService: adminService,
		streams:      hub,
		authenticate: auth.Authenticate(tokens, identities, logger),
		idempotent:   idempotency.Middleware(idempotencyConfig),
		loginLimit:   loginLimit,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	// Streams block until their subscriber channel closes, so the hub goes first.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	auditService.Wait()

	logger.Info("Server stopped")
	return nil
}

func redisServices(client *goredis.Client, ttl time.Duration, logger *logging.Logger) (application.CatalogCache, application.UploadLocker, limiter.Store, error) {
	store, err := redisInfra.NewLimiterStore(client)
	if err != nil {
		return nil, nil, nil, err
	}
	return redisInfra.NewCatalogCache(client, ttl), redisInfra.NewUploadLocker(client, logger), store, nil
}

// buildNotifier enables each channel whose credentials are configured
func buildNotifier(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) *notification.Notifier {
	var channels []notification.Channel
	if cfg.SMTP.Enabled() {
		channels = append(channels, notification.NewEmailChannel(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	}
	if cfg.Twilio.Enabled() {
		channels = append(channels, notification.NewWhatsAppChannel(notification.TwilioConfig{
			AccountSID:    cfg.Twilio.AccountSID,
			AuthToken:     cfg.Twilio.AuthToken,
			WhatsAppFrom:  cfg.Twilio.WhatsAppFrom,
			DefaultRegion: cfg.PhoneDefaultRegion,
		}))
	}
	return notification.NewNotifier(logger, m, channels...)
}

func newRouter(deps appDependencies) *gin.Engine {
	if deps.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	mwConfig := middleware.DefaultConfig(config.ServiceName, deps.logger)
	mwConfig.AllowedOrigins = deps.cfg.CORSAllowedOrigins
	middleware.Setup(router, mwConfig)
	router.Use(middleware.MetricsMiddleware(deps.metrics))
	router.Use(middleware.Tracing(config.ServiceName))

	handlers.NewHealthHandler(config.ServiceName, deps.cfg.Version, deps.db).RegisterRoutes(router)
	router.GET("/metrics", middleware.MetricsEndpoint(deps.metrics))

	api := router.Group("/api")
	handlers.NewAuthHandler(deps.authService, deps.logger).RegisterRoutes(api, deps.authenticate, deps.loginLimit)
	handlers.NewInventoryHandler(deps.auditService, deps.streams, deps.logger).RegisterRoutes(api, deps.authenticate, deps.idempotent)
	handlers.NewAdminHandler(deps.adminService, deps.logger).RegisterRoutes(api, deps.authenticate)

	return router
}
