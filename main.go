package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/HSouheill/leadbridge_admin/config"
	"github.com/HSouheill/leadbridge_admin/controllers"
	"github.com/HSouheill/leadbridge_admin/metrics"
	"github.com/HSouheill/leadbridge_admin/middleware"
	"github.com/HSouheill/leadbridge_admin/repositories"
	"github.com/HSouheill/leadbridge_admin/routes"
	"github.com/HSouheill/leadbridge_admin/services"
	"github.com/HSouheill/leadbridge_admin/utils"
	"github.com/HSouheill/leadbridge_admin/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.App)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	var store *repositories.Store
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store = repositories.NewMemoryStore().Store()
	default:
		client, err := config.ConnectDB(cfg.Store, logger)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warn("mongo disconnect failed", zap.Error(err))
			}
		}()
		store = repositories.NewMongoStore(client, client.Database(cfg.Store.DBName), cfg.Store.Transactions, logger)
	}

	redisClient := config.ConnectRedis(cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Firebase login and push are optional
	var verifier services.TokenVerifier
	var push services.PushSender
	app, err := config.InitFirebase(cfg.Firebase, logger)
	if err != nil {
		logger.Fatal("failed to initialize Firebase", zap.Error(err))
	}
	if app != nil {
		authClient, err := app.Auth(ctx)
		if err != nil {
			logger.Fatal("failed to create Firebase auth client", zap.Error(err))
		}
		verifier = authClient
		messagingClient, err := app.Messaging(ctx)
		if err != nil {
			logger.Warn("Firebase messaging unavailable, push disabled", zap.Error(err))
		} else {
			push = utils.NewFCMSender(messagingClient)
		}
	}

	var mail services.EmailSender
	if cfg.SMTP.Enabled() {
		mail = utils.NewSMTPMailer(cfg.SMTP)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry, logger)

	// Operator live feed
	hub := websocket.NewHub(m, logger)
	go hub.Run(ctx)

	clock := services.SystemClock{}
	notifier := services.NewNotificationService(hub, push, mail, logger)
	locker := services.NewAgentLocker(redisClient, cfg.Approval.AgentLockTTL, logger)

	leadService := services.NewLeadService(store, clock, logger)
	approvalService := services.NewApprovalService(store, locker, notifier, m, clock, cfg.Approval, logger)
	withdrawalService := services.NewWithdrawalService(store, notifier, m, clock, logger)
	agentService := services.NewAgentService(store, cfg.App.UploadsDir, cfg.App.ReferralLinkBase, logger)
	levelService := services.NewLevelService(store, logger)
	dashboardService := services.NewDashboardService(store, redisClient, cfg.App.DashboardTTL, logger)
	authService := services.NewAuthService(store, verifier, clock, logger)

	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	blacklist := middleware.NewTokenBlacklist()
	rateLimiter := middleware.NewRateLimiter(logger)
	go runCleanup(ctx, time.Minute, blacklist.Cleanup, rateLimiter.Cleanup)

	e := echo.New()
	e.HideBanner = true
	e.Validator = controllers.NewValidator()

	e.Use(echoMiddleware.Recover())
	e.Use(middleware.RequestLogger(logger, m))
	e.Use(middleware.CORS(cfg.App.CORSOrigins))
	e.Use(echoMiddleware.Secure())
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{AllowedDomains: cfg.App.CORSOrigins}))
	e.Use(echoMiddleware.BodyLimit("2M"))
	e.Use(rateLimiter.RateLimit())
	e.Use(echoMiddleware.TimeoutWithConfig(echoMiddleware.TimeoutConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/admin/ws"
		},
		Timeout:      cfg.App.RequestTimeout,
		ErrorMessage: `{"status":503,"message":"Request timed out"}`,
	}))

	routes.SetupRoutes(e, routes.Controllers{
		Auth:          controllers.NewAuthController(authService, cfg.Auth, blacklist, clock, logger),
		Leads:         controllers.NewLeadController(leadService, approvalService, dashboardService, logger),
		Agents:        controllers.NewAgentController(agentService, logger),
		Levels:        controllers.NewLevelController(levelService, logger),
		Withdrawals:   controllers.NewWithdrawalController(withdrawalService, dashboardService, logger),
		Dashboard:     controllers.NewDashboardController(dashboardService, logger),
		Notifications: controllers.NewNotificationController(hub, logger),
	}, cfg.Auth, blacklist, registry, logger)

	go func() {
		addr := ":" + strconv.Itoa(cfg.App.Port)
		logger.Info("starting server", zap.String("addr", addr), zap.String("env", cfg.App.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runCleanup evicts expired blacklist entries and idle rate limit buckets.
func runCleanup(ctx context.Context, every time.Duration, fns ...func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, fn := range fns {
				fn()
			}
		}
	}
}
