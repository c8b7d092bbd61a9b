package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rush86999/atomic-sub002/internal/archive"
	"github.com/rush86999/atomic-sub002/internal/assembler"
	"github.com/rush86999/atomic-sub002/internal/config"
	"github.com/rush86999/atomic-sub002/internal/metrics"
	"github.com/rush86999/atomic-sub002/internal/planner"
	"github.com/rush86999/atomic-sub002/internal/solver"
	"github.com/rush86999/atomic-sub002/internal/store"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("PLANNER_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Solver.BaseURL == "" {
		logger.Fatal().Msg("set solver.base_url in config")
	}

	db, err := store.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	blobs := archive.NewRedisArchive(rdb, cfg.Redis.KeyNamespace,
		time.Duration(cfg.Redis.ArchiveTTL)*time.Hour)

	solverOpts := []solver.Option{}
	if cfg.Solver.SolvePath != "" {
		solverOpts = append(solverOpts, solver.WithSolvePath(cfg.Solver.SolvePath))
	}
	if cfg.Solver.TimeoutSeconds > 0 {
		solverOpts = append(solverOpts, solver.WithTimeout(time.Duration(cfg.Solver.TimeoutSeconds)*time.Second))
	}
	if cfg.Solver.RatePerSecond > 0 {
		solverOpts = append(solverOpts, solver.WithRateLimit(cfg.Solver.RatePerSecond, cfg.Solver.RateBurst))
	}
	solverClient := solver.NewClient(cfg.Solver.BaseURL, cfg.Solver.APIKey, solverOpts...)

	asm := assembler.New(assembler.Config{
		CallbackURL:      cfg.Solver.CallbackURL,
		ShortSolveMillis: cfg.Planner.ShortSolveMillis,
		LongSolveMillis:  cfg.Planner.LongSolveMillis,
	}, blobs, solverClient, &logger)

	p := planner.New(&planner.Config{
		Granularity:            cfg.Planner.Granularity,
		MaxConcurrentAttendees: cfg.Planner.MaxConcurrentAttendees,
	}, db, asm, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Int("port", cfg.Server.Port).Msg("planner service started")
	startPlanServer(ctx, cfg.Server.Port, p, &logger)
}

type planRequest struct {
	HostID            string         `json:"hostId"`
	HostTimezone      string         `json:"hostTimezone"`
	WindowStart       time.Time      `json:"windowStart"`
	WindowEnd         time.Time      `json:"windowEnd"`
	InternalAttendees []planAttendee `json:"internalAttendees"`
	ExternalAttendees []planAttendee `json:"externalAttendees"`
}

type planAttendee struct {
	UserID   string `json:"userId"`
	Timezone string `json:"timezone"`
}

func startPlanServer(ctx context.Context, port int, p *planner.Planner, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/plan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body planRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		req := planner.Request{
			HostID:       body.HostID,
			HostTimezone: body.HostTimezone,
			WindowStart:  body.WindowStart,
			WindowEnd:    body.WindowEnd,
		}
		for _, a := range body.InternalAttendees {
			req.InternalAttendees = append(req.InternalAttendees, planner.Attendee{UserID: a.UserID, Timezone: a.Timezone})
		}
		for _, a := range body.ExternalAttendees {
			req.ExternalAttendees = append(req.ExternalAttendees, planner.Attendee{UserID: a.UserID, Timezone: a.Timezone})
		}

		payload, err := p.Plan(r.Context(), req)
		if err != nil {
			logger.Error().Err(err).Str("host_id", body.HostID).Msg("planning run failed")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"singletonId": payload.SingletonID,
			"fileKey":     payload.FileKey,
		})
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("plan server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
