package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"videotube/internal/config"
	"videotube/internal/db"
	apihttp "videotube/internal/http"
	"videotube/internal/metrics"
	"videotube/internal/repository"
	"videotube/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.AutoMigrate {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	entityRepo := repository.NewPgEntityRepository(pool)
	edgeRepo := repository.NewPgEdgeRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)

	redisClient, err := newRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	var redisPinger apihttp.Pinger
	if redisClient != nil {
		defer redisClient.Close()
		redisPinger = apihttp.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	tokenStore, err := newRefreshTokenStore(cfg, pool, redisClient)
	if err != nil {
		logger.Fatal("refresh token store", zap.Error(err))
	}
	limiter := newToggleLimiter(logger, cfg, redisClient)
	logger.Info("stores configured",
		zap.String("token_store", cfg.TokenStore),
		zap.Bool("shared_rate_limit", redisClient != nil),
	)

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL)
	sessionSvc := service.NewSessionService(logger, userRepo, tokenStore, jwtSvc, cfg.JWTRefreshTTL, m)
	userSvc := service.NewUserService(logger, userRepo)
	toggleSvc := service.NewToggleService(logger, entityRepo, edgeRepo, limiter, m)
	viewSvc := service.NewViewAggregator(logger, entityRepo, edgeRepo, service.AggregatorOptions{
		Timeout:         cfg.AggregationTimeout,
		DefaultPageSize: cfg.Pagination.DefaultSize,
		MaxPageSize:     cfg.Pagination.MaxSize,
		Metrics:         m,
	})

	userHandler := apihttp.NewUserHandler(logger, userSvc, sessionSvc, cfg.Cookie)
	interactionHandler := apihttp.NewInteractionHandler(logger, toggleSvc)
	viewHandler := apihttp.NewViewHandler(logger, viewSvc)
	healthHandler := apihttp.NewHealthHandler(logger, map[string]apihttp.Pinger{
		"postgres": apihttp.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, pool) }),
		"redis":    redisPinger,
	})
	router := apihttp.NewRouter(logger, m, metrics.Handler(reg), sessionSvc, userHandler, interactionHandler, viewHandler, healthHandler)

	var handler http.Handler = router
	if len(cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Fatal("server error", zap.Error(err))
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
