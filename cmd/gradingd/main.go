package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-grading/internal/api/http"
	"github.com/mind-engage/mindengage-grading/internal/cache"
	"github.com/mind-engage/mindengage-grading/internal/config"
	"github.com/mind-engage/mindengage-grading/internal/db"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/logging"
	"github.com/mind-engage/mindengage-grading/internal/metrics"
	"github.com/mind-engage/mindengage-grading/internal/store"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml); env overrides it")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatal("db open failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer dbh.Close()
	st := store.NewSQLStore(dbh)

	// --- Grading ---
	policy, ok := grading.LookupPolicy(cfg.Grading.Policy)
	if !ok {
		log.Fatal("unknown grading policy", zap.String("policy", cfg.Grading.Policy))
	}
	engine := grading.NewEngine(
		grading.WithPolicy(policy),
		grading.WithMaxEditDistance(cfg.Grading.MaxEditDistance),
		grading.WithDefaultMatchMode(cfg.Grading.DefaultMatchMode),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	batch := &grading.Batch{
		Engine:  engine,
		Workers: cfg.Grading.Workers,
		Logger:  log.Named("grading"),
		Metrics: m,
	}

	// --- Score board (optional) ---
	var board cache.ScoreBoard = cache.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, score board updates will fail until it recovers",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		board = cache.NewRedisScoreBoard(rdb)
	}

	router := api.NewRouter(api.Deps{
		Store:       st,
		Batch:       batch,
		Board:       board,
		Metrics:     m,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db", cfg.DBDriver),
		zap.String("policy", policy.Name),
		zap.Int("workers", cfg.Grading.Workers))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
}
