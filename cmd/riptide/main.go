package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/riptide-app/riptide/internal/api"
	"github.com/riptide-app/riptide/internal/config"
	"github.com/riptide-app/riptide/internal/database"
	"github.com/riptide-app/riptide/internal/debrid"
	"github.com/riptide-app/riptide/internal/engine"
	"github.com/riptide-app/riptide/internal/filter"
	"github.com/riptide-app/riptide/internal/health"
	"github.com/riptide-app/riptide/internal/indexer"
	"github.com/riptide-app/riptide/internal/logger"
	"github.com/riptide-app/riptide/internal/optimizer"
	"github.com/riptide-app/riptide/internal/preferences"
	"github.com/riptide-app/riptide/internal/scheduler"
	"github.com/riptide-app/riptide/internal/scheduler/tasks"
	"github.com/riptide-app/riptide/internal/scoring"
	"github.com/riptide-app/riptide/internal/websocket"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().Str("logLevel", cfg.Logging.Level).Msg("starting Riptide")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	hub := websocket.NewHub()
	go hub.Run()

	healthService := health.NewService(health.Config{
		CacheSize:    cfg.Health.CacheSize,
		CacheTTL:     cfg.Health.CacheTTL,
		RefreshAfter: cfg.Health.RefreshAfter,
	}, log.Logger)

	scorer := scoring.NewDefaultScorer()

	relaxOrder := make([]filter.RelaxStrategy, 0, len(cfg.Engine.ConflictResolution.Strategies))
	for _, s := range cfg.Engine.ConflictResolution.Strategies {
		relaxOrder = append(relaxOrder, filter.RelaxStrategy(s))
	}
	eng := engine.New(engine.Config{
		ChunkSize:        cfg.Engine.ChunkSize,
		HealthAlertBelow: cfg.Engine.HealthAlertBelow,
		DefaultConflictResolution: filter.ConflictResolution{
			Enabled:    cfg.Engine.ConflictResolution.Enabled,
			Strategies: relaxOrder,
		},
	}, healthService, scorer, log.Logger)
	eng.SetBroadcaster(hub)

	indexClient := indexer.New(indexer.Config{
		BaseURL: cfg.Indexer.BaseURL,
		Timeout: cfg.Indexer.Timeout,
	}, log.Logger)

	opt := optimizer.New(optimizer.Config{
		CacheTTL:         cfg.Search.CacheTTL,
		MaxCacheSize:     cfg.Search.CacheMaxEntries,
		SearchTimeout:    cfg.Search.Timeout,
		DebounceDelay:    cfg.Search.DebounceDelay,
		PrefetchEnabled:  cfg.Search.PrefetchEnabled,
		PrefetchMinChars: cfg.Search.PrefetchMinChars,
	}, indexClient.Search, log.Logger)

	debridClient := debrid.New(debrid.Config{
		APIKey:  cfg.Debrid.APIKey,
		BaseURL: cfg.Debrid.BaseURL,
		Timeout: cfg.Debrid.Timeout,
	}, log.Logger)

	prefsService := preferences.NewService(db.Conn())

	server, err := api.NewServer(db.Conn(), hub, cfg, api.Deps{
		Engine:        eng,
		Optimizer:     opt,
		HealthService: healthService,
		Scorer:        scorer,
		Preferences:   prefsService,
		Debrid:        debridClient,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create API server")
	}

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	for _, task := range []scheduler.TaskConfig{
		tasks.NewSearchCacheSweep(opt, cfg.Search.SweepInterval, log.Logger),
		tasks.NewHealthCachePurge(healthService, log.Logger),
		tasks.NewTelemetryReport(opt, log.Logger),
	} {
		if err := sched.RegisterTask(task); err != nil {
			log.Fatal().Err(err).Str("task", task.ID).Msg("failed to register task")
		}
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	server.RegisterScheduler(sched)

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil {
			log.Info().Msg("server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
