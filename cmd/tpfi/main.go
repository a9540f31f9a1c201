package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/tpfi/internal/api"
	"github.com/MikeSquared-Agency/tpfi/internal/config"
	"github.com/MikeSquared-Agency/tpfi/internal/events"
	"github.com/MikeSquared-Agency/tpfi/internal/itinerary"
	"github.com/MikeSquared-Agency/tpfi/internal/kakao"
	"github.com/MikeSquared-Agency/tpfi/internal/osm"
	"github.com/MikeSquared-Agency/tpfi/internal/pipeline"
	"github.com/MikeSquared-Agency/tpfi/internal/routing"
	"github.com/MikeSquared-Agency/tpfi/internal/spending"
	"github.com/MikeSquared-Agency/tpfi/internal/store"
)

const usage = `usage: tpfi [-config file] [-env file] <command> [flags]

commands:
  serve     run the HTTP API and metrics servers
  collect   build the itinerary dataset for every configured region
  analyze   derive fatigue weights from a dataset
  score     score a whole dataset and report mean fatigue per region
  plan      rank every visiting order of a set of stops
  profile   print tourism profiles of the configured regions
`

// app holds the collaborators every command shares.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	events  events.Client
	places  kakao.Client
	runner  *pipeline.Runner
	closers []func()
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	envPath := flag.String("env", ".env", "path to .env file with credentials")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		bootstrap.Warn("failed to load env file", "path", *envPath, "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrap.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.close()

	switch cmd {
	case "serve":
		err = a.serve(ctx)
	case "collect":
		err = a.collect(ctx, args)
	case "analyze":
		err = a.analyze(ctx, args)
	case "score":
		err = a.score(ctx, args)
	case "plan":
		err = a.plan(ctx, args)
	case "profile":
		err = a.profile(ctx, args)
	default:
		flag.Usage()
		a.close()
		os.Exit(2)
	}
	if err != nil {
		attrs := []any{"command", cmd, "error", err}
		if stage := pipeline.StageOf(err); stage != "" {
			attrs = append(attrs, "stage", stage)
		}
		logger.Error("command failed", attrs...)
		a.close()
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// Database (optional)
	if cfg.Database.URL != "" {
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.store = db
		a.closers = append(a.closers, func() { db.Close() })
		logger.Info("connected to database")
	} else {
		a.store = store.NewMemoryStore()
		logger.Warn("no database configured, runs are kept in memory")
	}

	// NATS (optional)
	if cfg.NATS.URL != "" {
		nc, err := events.NewNATSClient(ctx, cfg.NATS, logger)
		if err != nil {
			logger.Warn("failed to connect to nats, running without events", "error", err)
		} else {
			a.events = nc
			a.closers = append(a.closers, nc.Close)
			logger.Info("connected to nats")
		}
	}

	// Kakao, with the place cache when redis is configured
	rc := kakao.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
	}
	kc := kakao.NewHTTPClient(cfg.Kakao.LocalURL, cfg.Kakao.MobilityURL, cfg.Kakao.RESTKey, cfg.KakaoTimeout())
	a.places = kakao.NewCachedPlaces(kc, rc, cfg.CacheTTL(), logger)

	strategy, err := routing.ParseStrategy(cfg.Analysis.WalkStrategy)
	if err != nil {
		return nil, err
	}
	agg := itinerary.NewAggregator(routing.NewProvider(strategy, a.places), string(strategy), logger)

	overpass := osm.NewPlaceSource(cfg.Overpass.Endpoint, cfg.Overpass.MaxConcurrent, cfg.OverpassTimeout(), logger)
	pois, err := pipeline.NewPOISource(cfg, a.places, overpass)
	if err != nil {
		return nil, err
	}

	spend := spending.NewSource(cfg.SpendingFiles(), spending.Columns{
		Category: cfg.Analysis.CategoryColumn,
		Share:    cfg.Analysis.ShareColumn,
	})

	a.runner = pipeline.NewRunner(
		pipeline.NewCollector(a.places, pois, agg, cfg.Analysis, logger),
		pipeline.NewAnalyzer(spend, cfg.Analysis.VitalityCategories, a.store, a.events, logger),
		pipeline.NewPlanner(a.places, agg, cfg.Analysis, a.store, a.events, logger),
		a.store, a.events, logger,
	)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	router := api.NewRouter(a.store, a.runner, cfg.Analysis.Rescale, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}
