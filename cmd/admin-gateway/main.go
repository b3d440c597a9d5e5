// cmd/admin-gateway/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"admin-gateway/internal/admin"
	"admin-gateway/internal/aggregate"
	"admin-gateway/internal/common/auth"
	"admin-gateway/internal/common/config"
	"admin-gateway/internal/common/database"
	chttp "admin-gateway/internal/common/http"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/common/observability"
	"admin-gateway/internal/reporting"
	"admin-gateway/internal/server"
	"admin-gateway/internal/upstream"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting admin gateway...",
		zap.String("environment", cfg.App.Environment),
		zap.String("address", cfg.Server.Address),
	)

	obs := observability.New("admin-gateway")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init PostgreSQL (audit log) with retry ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Host != "" {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			// Test the connection with context
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	} else {
		zapLog.Warn("postgres not configured, admin audit logging disabled")
	}

	// --- Resolve upstream endpoints ---
	endpoints := make(map[string]upstream.Endpoint, len(config.ServiceNames))
	tokens := make(map[string]string, len(config.ServiceNames))
	optional := make(map[string]bool, len(config.ServiceNames))
	var ordered []upstream.Endpoint

	serviceCfgs := cfg.Services.ByName()
	for _, name := range config.ServiceNames {
		svc := serviceCfgs[name]
		if svc.BaseURL == "" {
			zapLog.Warn("upstream service not configured", zap.String("service", name))
			continue
		}
		ep := upstream.NewEndpoint(name, svc.BaseURL)
		endpoints[name] = ep
		tokens[name] = svc.Token
		optional[name] = svc.Optional
		ordered = append(ordered, ep)

		zapLog.Info("upstream endpoint resolved",
			zap.String("service", name),
			zap.String("base", ep.Base()),
			zap.Bool("versioned", ep.Versioned()),
		)
	}

	users, ok := endpoints[config.ServiceUserManagement]
	if !ok {
		zapLog.Fatal("user_management service is required")
	}
	properties := endpoints[config.ServicePropertyListing]

	// --- Wire components ---
	client := chttp.NewClient(config.GetDuration(cfg.Server.RequestTimeout))
	dispatcher := upstream.NewDispatcher(client, log)
	verifier := auth.NewVerifier(dispatcher, users, log)

	auditLog := admin.NewAuditLog(pg, log)
	adminSvc := admin.NewService(dispatcher, users, properties, auditLog, log)

	health := aggregate.NewHealthAggregator(client, redis, log, ordered, optional)
	dashboard := aggregate.NewDashboard(client, log, health, endpoints, tokens)
	reporter := reporting.NewReporter(client, dispatcher, redis, users, cfg.Reports, log)

	srv := server.New(log, verifier, adminSvc, health, dashboard, reporter, dispatcher, users, obs)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Admin gateway stopped gracefully")
}
