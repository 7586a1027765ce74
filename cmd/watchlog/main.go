package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/watchlog/watchlog/internal/api"
	"github.com/watchlog/watchlog/internal/backup"
	"github.com/watchlog/watchlog/internal/calendar"
	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/database"
	"github.com/watchlog/watchlog/internal/events"
	"github.com/watchlog/watchlog/internal/library"
	"github.com/watchlog/watchlog/internal/logger"
	"github.com/watchlog/watchlog/internal/metadata"
	"github.com/watchlog/watchlog/internal/metadata/fanart"
	"github.com/watchlog/watchlog/internal/metadata/tmdb"
	"github.com/watchlog/watchlog/internal/metadata/translate"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/reminder"
	"github.com/watchlog/watchlog/internal/scheduler"
	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/syncer"
	"github.com/watchlog/watchlog/internal/traktsync"
)

func main() {
	// Local .env files are optional.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().Str("logLevel", cfg.Logging.Level).Msg("starting watchlog")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	st := store.New(db.Conn(), log.Logger)
	defaultProfile, err := st.EnsureDefaultProfile(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ensure default profile")
	}

	tvmazeClient := tvmaze.NewClient(cfg.TVMaze, log.Logger)
	tmdbClient := tmdb.NewClient(cfg.TMDB, log.Logger)
	fanartClient := fanart.NewClient(cfg.Fanart, log.Logger)
	translateClient := translate.NewClient(cfg.Translate, log.Logger)
	traktClient := traktsync.NewClient(cfg.Trakt, log.Logger)
	resolver := metadata.NewResolver(tmdbClient, translateClient, log.Logger)

	hub := events.NewHub()
	go hub.Run()

	reminderService := reminder.NewService(cfg.Reminder, hub, log.Logger)
	defer reminderService.Stop()

	libraryService := library.NewService(st, tvmazeClient, resolver, fanartClient, hub,
		cfg.Sync.CastLimit, log.Logger)
	libraryService.SetReminderScheduler(reminderService)
	syncService := syncer.NewService(st, tvmazeClient, hub, cfg.Sync.ShowDelayMs, log.Logger)
	syncService.SetReminderScheduler(reminderService)
	traktService := traktsync.NewService(st, traktClient, libraryService, tvmazeClient, hub, log.Logger)
	libraryService.SetWatchedPusher(traktService)
	backupService := backup.NewService(st, syncService, log.Logger)
	calendarService := calendar.NewService(st, log.Logger)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	err = sched.RegisterTask(scheduler.TaskConfig{
		ID:         "library-sync",
		Name:       "Library Sync",
		Cron:       cfg.Sync.Cron,
		RunOnStart: cfg.Sync.RunOnStart,
		Func: func(ctx context.Context) error {
			_, err := syncService.Synchronize(ctx, defaultProfile.ID)
			return err
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register sync task")
	}
	sched.Start()

	server := api.NewServer(cfg, api.Deps{
		Store:            st,
		Hub:              hub,
		Library:          libraryService,
		Syncer:           syncService,
		TraktSync:        traktService,
		Backup:           backupService,
		Calendar:         calendarService,
		Scheduler:        sched,
		TVMaze:           tvmazeClient,
		TMDB:             tmdbClient,
		SearchCache:      metadata.NewCache(metadata.DefaultCacheConfig()),
		DefaultProfileID: defaultProfile.ID,
	}, log.Logger)

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
