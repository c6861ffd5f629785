package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pairlink/internal/core/broker"
	"pairlink/internal/core/services"
	httphandlers "pairlink/internal/handlers/http"
	"pairlink/internal/infrastructure/middleware"
	"pairlink/internal/infrastructure/monitoring"
	"pairlink/internal/infrastructure/repositories"
	wssignal "pairlink/internal/infrastructure/signal"
	"pairlink/pkg/config"
	"pairlink/pkg/logger"
	"pairlink/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/pairlink/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	// Tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "pairlink",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Repositories
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	userRepo := repoFactory.CreateUserRepository()
	favoriteRepo := repoFactory.CreateFavoriteRepository()

	// Services
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	userService := services.NewUserService(userRepo, authService)

	// Broker and WebSocket transport. The transport delivers broker events,
	// so it is built first and handed the broker afterwards.
	collector := monitoring.NewPrometheusCollector()
	wsServer := wssignal.NewWebSocketServer(authService, cfg.Auth.AllowedOrigins, log)
	wsServer.SetPingInterval(cfg.Signal.PingInterval)
	wsServer.SetPongTimeout(cfg.Signal.PongTimeout)
	wsServer.SetWriteTimeout(cfg.Signal.WriteTimeout)
	wsServer.SetSendBufferSize(cfg.Signal.SendBufferSize)
	wsServer.SetMaxMessageSize(cfg.Signal.MaxMessageSize)
	if cfg.RateLimiting.Enabled {
		wsServer.SetMessageRateLimit(
			cfg.RateLimiting.WebSocket.MessagesPerSecond,
			cfg.RateLimiting.WebSocket.Burst,
		)
	}

	sessionBroker := broker.New(wsServer, collector, log)
	wsServer.SetBroker(sessionBroker)

	favoriteService := services.NewFavoriteService(favoriteRepo, userRepo, sessionBroker)

	// Readiness probes
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("repositories", repoFactory.HealthCheck, 2*time.Second)

	// HTTP handlers
	authHandler := httphandlers.NewAuthHandler(userService, authService, cfg.Auth.AccessTokenTTL)
	favoriteHandler := httphandlers.NewFavoriteHandler(favoriteService, authService)
	webrtcHandler := httphandlers.NewWebRTCHandler(cfg)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	authHandler.SetupRoutes(router)
	favoriteHandler.SetupRoutes(router)
	webrtcHandler.SetupRoutes(router)

	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))

	router.GET("/health", func(c *gin.Context) {
		total, waiting, paired := sessionBroker.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"connections": gin.H{
				"total":   total,
				"waiting": waiting,
				"paired":  paired,
			},
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays unset so it cannot kill long-lived WebSocket
		// sessions served through the same listener.
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting pairlink server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down pairlink server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("tracer shutdown failed", "error", err)
	}

	log.Info("Server stopped")
}
