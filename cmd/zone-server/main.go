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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/hazardwatch/go-hazard-zones/internal/api"
	"github.com/hazardwatch/go-hazard-zones/internal/config"
	"github.com/hazardwatch/go-hazard-zones/internal/dispatcher"
	"github.com/hazardwatch/go-hazard-zones/internal/logging"
	"github.com/hazardwatch/go-hazard-zones/internal/observability"
	"github.com/hazardwatch/go-hazard-zones/internal/push"
	"github.com/hazardwatch/go-hazard-zones/internal/repository"
	"github.com/hazardwatch/go-hazard-zones/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	broadcaster := push.NewBroadcaster()

	pool := worker.NewPool(cfg.Refresh.WorkerCount, cfg.Refresh.WorkerBuffer, deliverVia(broadcaster, metrics))
	pool.Start(ctx)

	disp := dispatcher.New(db, db, db, pool, cfg.Radii(), metrics)
	sched := dispatcher.NewScheduler(cfg.Refresh.Period, clockwork.NewRealClock(), disp, metrics)
	sched.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(20, 40))

	handler := api.NewHandler(db, db, db, broadcaster, cfg.Zones.SearchRadiusM)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	sched.Stop()
	broadcaster.Close()
	pool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// deliverVia bridges the worker pool to a push transport. Failures are
// logged, never retried mid-pass; the entered-area ledger prevents re-sends
// on the next pass.
func deliverVia(sender push.Sender, metrics *observability.Metrics) worker.DeliverFunc {
	return func(ctx context.Context, d worker.Delivery) error {
		if err := sender.Send(ctx, d.UserID, d.Payload); err != nil {
			metrics.NotificationErrors.Inc()
			slog.Warn("push delivery failed", "user_id", d.UserID, "kind", d.Kind, "error", err)
			return err
		}
		metrics.NotificationsSent.WithLabelValues(string(d.Kind)).Inc()
		return nil
	}
}
