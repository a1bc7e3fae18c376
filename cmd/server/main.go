package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	attendancehandler "github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/handler"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/metrics"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/session"
	attendancestore "github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/store"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/platform/config"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/platform/httpserver"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/platform/logger"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/platform/middleware"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/platform/postgres"
	platformredis "github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/platform/redis"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/profile"
	profilehandler "github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/profile/handler"
	profilestore "github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/profile/store"
)

// eventStore is what the wiring needs from an event store: the engine's
// repository contract plus the admin seed surface.
type eventStore interface {
	attendance.EventRepository
	attendancehandler.EventWriter
}

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	var (
		events       eventStore
		profiles     profile.Store
		healthChecks []func(context.Context) error
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		es := attendancestore.NewPostgres(db)
		ps := profilestore.NewPostgres(db)
		if err := es.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		events, profiles = es, ps
		healthChecks = append(healthChecks, db.PingContext)
	} else {
		log.Warn("DATABASE_URL not set, running with in-memory stores")
		events, profiles = attendancestore.NewInMemory(), profilestore.NewInMemory()
	}

	var latch attendance.ScanLatch
	if rdb, err := platformredis.New(ctx, cfg.RedisURL); err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	} else if rdb != nil {
		latch = session.NewRedisLatch(rdb.Client, cfg.ScanLatchTTL)
		healthChecks = append(healthChecks, rdb.Health)
		defer rdb.Close()
	} else {
		latch = session.NewMemoryLatch(cfg.ScanLatchTTL)
	}

	attendanceMetrics := metrics.New()

	recorder, err := attendance.NewRecorder(events,
		attendance.WithRecorderLogger(log),
		attendance.WithRecorderMetrics(attendanceMetrics),
	)
	if err != nil {
		log.Error("recorder setup failed", "error", err)
		os.Exit(1)
	}

	profileService, err := profile.New(profiles, profile.WithLogger(log))
	if err != nil {
		log.Error("profile service setup failed", "error", err)
		os.Exit(1)
	}

	engine, err := attendance.New(events, profileService, recorder,
		attendance.WithLogger(log),
		attendance.WithMetrics(attendanceMetrics),
		attendance.WithAccuracyThreshold(cfg.AccuracyThresholdMeters),
		attendance.WithTimeouts(cfg.LocationTimeout, cfg.RepositoryTimeout),
	)
	if err != nil {
		log.Error("engine setup failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestTime)
	router.Use(middleware.StudentIdentity)

	attendancehandler.New(engine, events, latch, log).Register(router)
	profilehandler.New(profileService, log).Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		for _, check := range healthChecks {
			if err := check(r.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting attendance service", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
