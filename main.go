package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch"
	"github.com/clanwatchbot/clanwatch/clanwatch/bungie"
	"github.com/clanwatchbot/clanwatch/clanwatch/commands"
	"github.com/clanwatchbot/clanwatch/clanwatch/database"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/repositories"
	"github.com/clanwatchbot/clanwatch/clanwatch/discordstats"
	"github.com/clanwatchbot/clanwatch/clanwatch/handlers"
	"github.com/clanwatchbot/clanwatch/clanwatch/logger"
	"github.com/clanwatchbot/clanwatch/clanwatch/migration"
	"github.com/clanwatchbot/clanwatch/clanwatch/reports"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	shouldImportLegacy := flag.Bool("import-legacy", false, "Import member records from the legacy mongo deployment and exit")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := clanwatch.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level, cfg.Log.AddSource)))
	slog.Info("Starting ClanWatch",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStart := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStart)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStart)))

	memberRepo := repositories.NewMemberRepository(db.BunDB())
	rosterRepo := repositories.NewRosterRepository(db.BunDB())

	if *shouldImportLegacy {
		importer, err := migration.Connect(ctx, cfg.Legacy.URI, cfg.Legacy.Database, db.BunDB())
		if err != nil {
			slog.Error("Failed to connect to legacy database", slog.Any("error", err))
			os.Exit(-1)
		}
		imported, skipped, err := importer.ImportMembers(ctx)
		_ = importer.Close(ctx)
		if err != nil {
			slog.Error("Legacy import failed",
				slog.Int("imported", imported),
				slog.Int("skipped", skipped),
				slog.Any("error", err))
			os.Exit(-1)
		}
		return
	}

	apiClient := bungie.New(bungie.Config{
		APIKey:         cfg.Bungie.APIKey,
		BaseURL:        cfg.Bungie.BaseURL,
		MaxAttempts:    cfg.Bungie.MaxAttempts,
		MaxConcurrent:  cfg.Bungie.MaxConcurrent,
		MinInterval:    time.Duration(cfg.Bungie.MinIntervalMillis) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Bungie.RequestTimeoutSecs) * time.Second,
	})
	defer apiClient.Close()

	b := clanwatch.New(*cfg, version, commit)
	b.DB = db
	b.MemberRepository = memberRepo
	b.RosterRepository = rosterRepo

	b.RosterCache = tracker.NewRosterCache(apiClient, rosterRepo)
	if err := b.RosterCache.Load(ctx); err != nil {
		slog.Warn("Roster cache warmup failed, starting cold", slog.Any("error", err))
	}

	if cfg.Spaces.Bucket != "" {
		archiver, err := reports.NewArchiver(cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region, cfg.Spaces.Bucket, cfg.Spaces.Root)
		if err != nil {
			slog.Error("Failed to initialize report archiver", slog.Any("error", err))
			os.Exit(-1)
		}
		b.Archiver = archiver
	}

	h := handler.New()
	h.Command("/register", handlers.WrapWithLogging("register", commands.RegisterHandler(b)))
	h.Command("/report", handlers.WrapWithLogging("report", commands.ReportHandler(b)))
	h.Command("/roster", handlers.WrapWithLogging("roster", commands.RosterHandler(b)))
	h.Command("/clan-report", handlers.WrapWithLogging("clan-report", commands.ClanReportHandler(b)))
	h.Command("/refresh", handlers.WrapWithLogging("refresh", commands.RefreshHandler(b)))
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", commands.LeaderboardHandler(b)))

	if err := b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot", slog.Any("error", err))
		os.Exit(-1)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		b.Client.Close(closeCtx)
	}()

	// The chat collector and everything downstream of it need the gateway
	// client, so they are wired after SetupBot.
	b.Collector = discordstats.NewCollector(b.Client, cfg.Bot.GuildID)

	fetcher := tracker.NewActivityFetcher(apiClient)
	resolver := tracker.NewCoParticipantResolver(b.RosterCache)
	engine := tracker.NewEngine(fetcher, resolver)
	b.Service = tracker.NewService(apiClient, memberRepo, b.RosterCache, engine, fetcher, b.Collector, cfg.Tracker.StatisticsPeriodDays)

	schedulerClans := make([]tracker.ClanRef, 0, len(cfg.Tracker.Clans))
	for _, clan := range cfg.Tracker.Clans {
		schedulerClans = append(schedulerClans, tracker.ClanRef{ID: clan.ID, Name: clan.Name})
	}
	b.Scheduler = tracker.NewScheduler(b.Service, b.RosterCache, b.Collector, tracker.SchedulerConfig{
		Clans:            schedulerClans,
		RosterInterval:   time.Duration(cfg.Tracker.RosterIntervalMins) * time.Minute,
		NameInterval:     time.Duration(cfg.Tracker.NameIntervalMins) * time.Minute,
		ActivityInterval: time.Duration(cfg.Tracker.ActivityIntervalMins) * time.Minute,
		Workers:          cfg.Tracker.Workers,
	})

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err := handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err := b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway", slog.Any("error", err))
		os.Exit(-1)
	}

	b.Scheduler.Start()
	defer func() {
		if err := b.Scheduler.Shutdown(30 * time.Second); err != nil {
			slog.Warn("Scheduler shutdown timed out", slog.Any("error", err))
		}
	}()

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
