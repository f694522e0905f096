package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mediadb/internal/auth"
	"mediadb/internal/config"
	"mediadb/internal/handler"
	"mediadb/internal/middleware"
	"mediadb/internal/observability/metrics"
	"mediadb/internal/repository"
	"mediadb/internal/repository/cached"
	"mediadb/internal/repository/instrumented"
	"mediadb/internal/schema"
	"mediadb/internal/service/catalog"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, "server", config.MaxLogFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}
	logger := config.NewLogger(cfg.Environment, logOut)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogSchema, err := schema.Load()
	if err != nil {
		log.Fatalf("Failed to load catalog schema: %v", err)
	}
	if len(cfg.ProtectedKeys) > 0 {
		catalogSchema = catalogSchema.WithProtected(cfg.ProtectedKeys)
		logger.Info("protected keys overridden", "keys", cfg.ProtectedKeys)
	}

	// Admin credentials
	passwords, err := auth.NewPasswordChecker(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		log.Fatalf("Invalid admin password configuration: %v", err)
	}
	var jwtVerifier auth.JWTVerifier
	if cfg.JWTAuth {
		jwtVerifier, err = auth.NewJWTVerifier(ctx, cfg.SupabaseJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
	}
	if !cfg.HasAdminCredentials() {
		logger.Warn("no admin credentials configured, protected keys are read-only")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storeMetrics, err := metrics.NewStoreMetrics(registry)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Store: adapter -> metrics -> cache
	base, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer closeStore()

	store := cached.New(
		instrumented.New(base, storeMetrics),
		cached.Options{TTL: cfg.CacheTTL, StaleWindow: cfg.CacheStaleWindow},
		storeMetrics,
		logger,
	)

	catalogService := catalog.NewCatalogService(store, catalogSchema, cfg.StoreTimeout, logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", catalogHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Catalog routes
	mux.HandleFunc("GET /api/data", catalogHandler.GetData)
	mux.HandleFunc("POST /api/data", catalogHandler.PostData)
	mux.HandleFunc("DELETE /api/data/{key}", catalogHandler.DeleteKey)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestID → Privilege → Routes
	h = middleware.Privilege(passwords, jwtVerifier, logger)(h)
	h = middleware.RequestID(logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "If-Match", middleware.AdminPasswordHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{"ETag", middleware.RequestIDHeader, "X-Catalog-View"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // large write bodies
		WriteTimeout:      cfg.StoreTimeout*2 + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
