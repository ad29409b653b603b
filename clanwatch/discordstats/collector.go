// Package discordstats collects per-member chat activity from the guild's
// text channels by walking message history backwards until the window start.
package discordstats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/tracker"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

const messagePageSize = 100

// Collector implements tracker.ChatStatsProvider on top of the gateway
// client's REST surface.
type Collector struct {
	client  bot.Client
	guildID snowflake.ID
}

func NewCollector(client bot.Client, guildID snowflake.ID) *Collector {
	return &Collector{
		client:  client,
		guildID: guildID,
	}
}

var _ tracker.ChatStatsProvider = (*Collector)(nil)

// GuildStats makes a single pass over every text channel and counts, per
// author, the messages sent since the window start and their total content
// length. Channels the bot cannot read are skipped, not fatal.
func (c *Collector) GuildStats(ctx context.Context, since time.Time) (map[string]tracker.ChatStats, error) {
	channels, err := c.client.Rest().GetGuildChannels(c.guildID, rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list guild channels: %w", err)
	}

	stats := make(map[string]tracker.ChatStats)
	scanned := 0

	for _, channel := range channels {
		if channel.Type() != discord.ChannelTypeGuildText {
			continue
		}

		if err := c.scanChannel(ctx, channel.ID(), since, stats); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Skipping unreadable channel",
				slog.String("type", "api"),
				slog.String("channel", channel.Name()),
				slog.Any("error", err))
			continue
		}
		scanned++
	}

	slog.Info("Chat stats collected",
		slog.String("type", "sys"),
		slog.Int("channels", scanned),
		slog.Int("authors", len(stats)))
	return stats, nil
}

// scanChannel pages backwards from the newest message. Snowflake ids carry
// their creation time, so the scan stops at the first message older than
// the window start without parsing timestamps.
func (c *Collector) scanChannel(ctx context.Context, channelID snowflake.ID, since time.Time, stats map[string]tracker.ChatStats) error {
	var before snowflake.ID

	for {
		messages, err := c.client.Rest().GetMessages(channelID, 0, before, 0, messagePageSize, rest.WithCtx(ctx))
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		for _, message := range messages {
			if message.ID.Time().Before(since) {
				return nil
			}
			if message.Author.Bot {
				continue
			}

			authorID := message.Author.ID.String()
			memberStats := stats[authorID]
			memberStats.ChatEvents++
			memberStats.CharactersTyped += int64(len([]rune(message.Content)))
			stats[authorID] = memberStats
		}

		before = messages[len(messages)-1].ID
	}
}

// DisplayName resolves a member's current guild display name, preferring
// the nickname over the account username.
func (c *Collector) DisplayName(ctx context.Context, discordID string) (string, error) {
	userID, err := snowflake.Parse(discordID)
	if err != nil {
		return "", fmt.Errorf("invalid discord id %q: %w", discordID, err)
	}

	member, err := c.client.Rest().GetMember(c.guildID, userID, rest.WithCtx(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch guild member: %w", err)
	}

	if member.Nick != nil && *member.Nick != "" {
		return *member.Nick, nil
	}
	return member.User.Username, nil
}
