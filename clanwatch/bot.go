package clanwatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/repositories"
	"github.com/clanwatchbot/clanwatch/clanwatch/discordstats"
	"github.com/clanwatchbot/clanwatch/clanwatch/reports"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB               *database.DB
	MemberRepository repositories.MemberRepository
	RosterRepository repositories.RosterRepository
	RosterCache      *tracker.RosterCache
	Service          *tracker.Service
	Scheduler        *tracker.Scheduler
	Collector        *discordstats.Collector
	Archiver         *reports.Archiver
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMembers, gateway.IntentGuildMessages, gateway.IntentMessageContent)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("ClanWatch is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("clan activity"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}

// IsAdmin reports whether the interaction member carries one of the
// configured admin roles. An empty admin list means no restriction.
func (b *Bot) IsAdmin(member *discord.ResolvedMember) bool {
	if len(b.Cfg.Bot.AdminRoles) == 0 {
		return true
	}
	if member == nil {
		return false
	}
	for _, roleID := range member.RoleIDs {
		for _, adminRole := range b.Cfg.Bot.AdminRoles {
			if roleID == adminRole {
				return true
			}
		}
	}
	return false
}
