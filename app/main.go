package main

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"mediserve/internal/controllers"
	"mediserve/internal/repositories"
	"mediserve/internal/routes"
	"mediserve/internal/services"
	"mediserve/pkg/config"
	"mediserve/pkg/database/postgresql"
	"mediserve/pkg/eventbus"
	applogger "mediserve/pkg/logger"
	"mediserve/pkg/middleware"
	"mediserve/pkg/ratelimit"
	"mediserve/pkg/service"
	"mediserve/pkg/utils"
)

func main() {
	logger := applogger.NewLogger()
	defer logger.Sync()

	cfg := config.New()

	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewValidator(validator.New())
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.ByteString("stack", stack),
			)
			return err
		},
	}))
	e.Use(echomw.CORS())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgresql.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := postgresql.Migrate(pool, "migrations"); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The limiter and membership cache degrade gracefully, so a Redis
		// outage at boot is a warning, not a fatal.
		logger.Warn("redis unreachable at startup", zap.Error(err))
	}
	defer redisClient.Close()

	jwtService := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	limiter := ratelimit.NewOrgLimiter(
		ratelimit.NewRedisCounter(redisClient),
		cfg.RateLimit.Requests, cfg.RateLimit.Window, logger,
	)
	bus := eventbus.New(logger)

	txManager := repositories.NewTxManager(pool)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)
	userRepo := repositories.NewUserRepository(pool)
	membershipRepo := repositories.NewMembershipRepository(pool, cacheRepo, cfg.MembershipCacheTTL, logger)
	orgRepo := repositories.NewOrganizationRepository(pool)
	equipmentRepo := repositories.NewEquipmentRepository(pool)
	requestRepo := repositories.NewServiceRequestRepository(pool)
	quoteRepo := repositories.NewQuoteRepository(pool)
	reportRepo := repositories.NewCompletionReportRepository(pool)
	disputeRepo := repositories.NewDisputeRepository(pool)
	auditRepo := repositories.NewAuditRepository(pool)
	notificationRepo := repositories.NewNotificationRepository(pool)

	auditRecorder := services.NewAuditRecorder(auditRepo, logger.Named("audit"))
	services.NewNotificationService(notificationRepo, logger.Named("notifications")).SubscribeTo(bus)

	authService := services.NewAuthService(userRepo, jwtService, logger.Named("auth"))
	requestService := services.NewServiceRequestService(
		txManager, requestRepo, equipmentRepo, reportRepo, auditRepo,
		auditRecorder, limiter, bus, logger.Named("requests"),
	)
	quoteService := services.NewQuoteService(
		txManager, quoteRepo, requestRepo, orgRepo,
		auditRecorder, limiter, bus, logger.Named("quotes"),
	)
	disputeService := services.NewDisputeService(
		txManager, disputeRepo, requestRepo,
		auditRecorder, limiter, bus, logger.Named("disputes"),
	)
	reportService := services.NewReportService(auditRepo, userRepo, logger.Named("reports"))

	authMiddleware := middleware.NewAuthMiddleware(jwtService, membershipRepo, logger.Named("http"))

	routes.InitRouter(e, routes.Controllers{
		Auth:           controllers.NewAuthController(authService, logger),
		ServiceRequest: controllers.NewServiceRequestController(requestService, logger),
		Quote:          controllers.NewQuoteController(quoteService, logger),
		Dispute:        controllers.NewDisputeController(disputeService, logger),
		Report:         controllers.NewReportController(reportService, logger),
	}, authMiddleware)

	logger.Info("starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
