package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/catalog-service/internal/config"
	"github.com/Lixing-Zhang/catalog-service/internal/database"
	"github.com/Lixing-Zhang/catalog-service/internal/handlers"
	"github.com/Lixing-Zhang/catalog-service/internal/middleware"
	"github.com/Lixing-Zhang/catalog-service/internal/ratelimit"
	"github.com/Lixing-Zhang/catalog-service/internal/repository"
	"github.com/Lixing-Zhang/catalog-service/internal/service"
	"github.com/Lixing-Zhang/catalog-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting product catalog api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"store", cfg.Store.Driver,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	// Initialize the product store
	var (
		productRepo repository.ProductRepository
		storeHealth interface{ Ping(context.Context) error }
		closeStore  = func(context.Context) error { return nil }
	)

	switch cfg.Store.Driver {
	case config.DriverMemory:
		memoryRepo := repository.NewInMemoryProductRepository(repository.SeedProducts()...)
		productRepo, storeHealth = memoryRepo, memoryRepo
		log.Warn("using in-memory product store, changes are lost on restart")
	default:
		client, err := database.Connect(ctx, cfg.Store.Mongo, log)
		if err != nil {
			log.Error("failed to connect to mongodb", "error", err)
			os.Exit(1)
		}
		productRepo = repository.NewMongoProductRepository(client.Collection(cfg.Store.Mongo.Collection))
		storeHealth = client
		closeStore = client.Close
	}

	// Initialize services
	productService := service.NewProductService(productRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(storeHealth, log)
	productHandler := handlers.NewProductHandler(productService, log)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Optional per-client rate limiting shared through redis
	var redisClient *redis.Client
	if cfg.RateLimit.Enabled() {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, rate limiter will allow all requests until it recovers", "addr", cfg.RateLimit.RedisAddr, "error", err)
		}
		limiter := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		r.Use(middleware.RateLimit(limiter, log))

		log.Info("rate limiting enabled",
			"requests", cfg.RateLimit.Requests,
			"window", cfg.RateLimit.Window.String(),
		)
	}

	handlers.RegisterRoutes(r, healthHandler, productHandler)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	exitCode := 0
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		exitCode = 1
	}

	// Release the store only after in-flight requests have drained
	if err := closeStore(shutdownCtx); err != nil {
		log.Error("failed to close product store", "error", err)
		exitCode = 1
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	log.Info("server stopped gracefully")
}
