package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch"
	"github.com/clanwatchbot/clanwatch/clanwatch/reports"
	"github.com/clanwatchbot/clanwatch/clanwatch/utils"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

var Roster = discord.SlashCommandCreate{
	Name:        "roster",
	Description: "👥 Show tracked clans and their member counts",
}

func RosterHandler(b *clanwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		counts := b.Service.RosterCounts()
		if len(counts) == 0 {
			return utils.CreateErrorEmbed(e, "No roster data cached yet. Try again in a minute.")
		}

		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)

		var sb strings.Builder
		total := 0
		for _, name := range names {
			fmt.Fprintf(&sb, "**%s** — %d members\n", name, counts[name])
			total += counts[name]
		}
		fmt.Fprintf(&sb, "\nTotal: **%d**", total)

		now := time.Now()
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "👥 Clan Rosters",
				Description: sb.String(),
				Color:       utils.InfoColor,
				Timestamp:   &now,
			}},
		})
	}
}

var ClanReport = discord.SlashCommandCreate{
	Name:        "clan-report",
	Description: "📄 Export the full clan activity picture as CSV",
}

func ClanReportHandler(b *clanwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !b.IsAdmin(e.Member()) {
			return utils.CreateErrorEmbed(e, "You need an admin role to export reports.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		records, err := b.MemberRepository.GetAll(ctx)
		if err != nil {
			return utils.CreateErrorEmbed(e, "Failed to load member records.")
		}
		rosters := b.RosterCache.Rosters()

		data, err := reports.BuildClanCSV(records, rosters)
		if err != nil {
			return utils.CreateErrorEmbed(e, "Failed to build the report.")
		}

		if b.Archiver != nil {
			key, err := b.Archiver.ArchiveCSV(ctx, "clan-report", data)
			if err != nil {
				slog.Warn("Failed to archive clan report",
					slog.String("type", "sys"),
					slog.Any("error", err))
			} else {
				slog.Info("Clan report archived",
					slog.String("type", "sys"),
					slog.String("key", key))
			}
		}

		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("Clan report: %d registered members.", len(records)),
			Files: []*discord.File{
				discord.NewFile("clan-report.csv", "", bytes.NewReader(data)),
			},
		})
	}
}
