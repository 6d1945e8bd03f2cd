package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/azaharizaman/atomy-sub011/internal/screening"
	"github.com/azaharizaman/atomy-sub011/internal/screening/listdata"
	"github.com/azaharizaman/atomy-sub011/internal/screening/storage"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML configuration file")
		snapshot    = flag.String("lists", "lists.json", "path to list snapshot file")
		metricsAddr = flag.String("metrics-addr", ":9102", "prometheus metrics listen address")
		interval    = flag.Duration("interval", 0, "execution sweep interval (0 = configured default)")
		runOnce     = flag.Bool("once", false, "run a single execution sweep and exit")
	)
	flag.Parse()

	zlog, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer zlog.Sync()
	logger := zlog.Sugar()

	cfg := screening.DefaultConfig()
	if *configPath != "" {
		cfg, err = screening.LoadConfig(*configPath)
		if err != nil {
			logger.Fatalw("failed to load configuration", "path", *configPath, "error", err)
		}
	}

	repo, err := listdata.Load(*snapshot, logger)
	if err != nil {
		logger.Fatalw("failed to load list snapshot", "path", *snapshot, "error", err)
	}

	store, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatalw("failed to initialize schedule store", "error", err)
	}
	defer cleanup()

	sanctions := screening.NewSanctionsScreener(repo, cfg, logger)
	pep := screening.NewPEPScreener(repo, cfg, logger)
	scheduler := screening.NewScheduler(store, repo, sanctions, pep, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runOnce {
		summary, err := scheduler.ExecuteScheduledScreenings(ctx, time.Now(), screening.DefaultExecuteOptions())
		if err != nil {
			logger.Fatalw("execution sweep failed", "error", err)
		}
		logger.Infow("execution sweep finished",
			"executed", summary.Executed,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
		)
		return
	}

	go serveMetrics(*metricsAddr, logger)
	scheduler.Run(ctx, *interval)
}

// buildStore selects the schedule store: PostgreSQL when a DSN is configured,
// in-memory otherwise.
func buildStore(cfg *screening.Config, logger *zap.SugaredLogger) (screening.ScheduleStore, func(), error) {
	if cfg.Database.DSN == "" {
		logger.Warn("no database configured, using in-memory schedule store")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("using postgresql schedule store")
	return store, func() { db.Close() }, nil
}

func serveMetrics(addr string, logger *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Infow("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorw("metrics endpoint stopped", "error", err)
	}
}
