package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/cronograma/internal/api"
	"example.com/cronograma/internal/backup"
	"example.com/cronograma/internal/config"
	"example.com/cronograma/internal/observability"
	"example.com/cronograma/internal/persistence/sqlite"
	httptransport "example.com/cronograma/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		sugar.Fatalw("failed to open database", "path", cfg.DBPath, "error", err)
	}
	defer db.Close()

	repos := api.Repositories{
		Actividades: sqlite.NewActividadRepository(db),
		Reales:      sqlite.NewActividadRealRepository(db),
		Historial:   sqlite.NewHistorialRepository(db),
		Lotes:       sqlite.NewLoteRepository(db),
	}

	engine := backup.NewEngine(db, cfg.BackupPath, cfg.BackupRetentionDays, sugar)

	scheduler := cron.New()
	if cfg.BackupEnabled {
		if _, err := scheduler.AddFunc(cfg.BackupSchedule, func() {
			if _, err := engine.Create(ctx); err != nil {
				sugar.Errorw("scheduled backup failed", "error", err)
			}
		}); err != nil {
			sugar.Fatalw("invalid backup schedule", "schedule", cfg.BackupSchedule, "error", err)
		}
		scheduler.Start()
		sugar.Infow("automatic backups enabled", "schedule", cfg.BackupSchedule, "path", cfg.BackupPath)
	}

	handler := api.NewHandler(repos, engine, api.AutoBackup{
		Enabled:  cfg.BackupEnabled,
		Schedule: cfg.BackupSchedule,
		Path:     cfg.BackupPath,
	}, sugar)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware, origin configurable for deployments behind a proxy
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Request logger with per-request latency and status
	requestLogger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			observability.RecordRequest(r.Method, strconv.Itoa(rec.status))
			sugar.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, requestLogger(cors(api.RecoverMiddleware(sugar, mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infow("cronograma-api listening", "address", cfg.HTTPAddress, "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server error", "error", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
