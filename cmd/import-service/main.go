package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/order-importer/internal/importer/adapters/memory"
	"github.com/jcmexdev/order-importer/internal/importer/adapters/sqlite"
	"github.com/jcmexdev/order-importer/internal/importer/batch"
	"github.com/jcmexdev/order-importer/internal/importer/httpx"
	"github.com/jcmexdev/order-importer/internal/pkg/cache"
	"github.com/jcmexdev/order-importer/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "import-service"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	dbPath := getEnv("SQLITE_PATH", "./data/importer.db")
	store, err := sqlite.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// The catalog/user directories are served in-memory here; a deployment
	// integrating a real catalog implements ports.Directories against it.
	directory := memory.NewDirectory()

	coordinator := batch.New(batch.Config{
		Directories: directory.Directories(),
		Orders:      store,
		Stock:       store,
	})

	var idempotencyCache cache.Cache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		idempotencyCache = cache.NewRedisCache(redisAddr, "importer")
	}

	jwtSecret := []byte(getEnv("JWT_SECRET", "dev-secret"))
	handler := httpx.NewHandler(coordinator, store, idempotencyCache)
	router := httpx.NewRouter(handler, jwtSecret)

	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}()

	slog.Info("import service running", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
