package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker"
	"github.com/clanwatchbot/clanwatch/clanwatch/utils"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

var Report = discord.SlashCommandCreate{
	Name:        "report",
	Description: "📊 Show a member's activity report",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "member",
			Description: "Discord id, membership id, or a name. Defaults to you.",
		},
	},
}

func ReportHandler(b *clanwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		query, ok := data.OptString("member")
		if !ok {
			query = e.User().ID.String()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		record, err := b.Service.GetReport(ctx, query)
		if err != nil {
			if errors.Is(err, tracker.ErrNotRegistered) {
				return utils.CreateErrorEmbed(e, "No registered member matches that query.")
			}
			return utils.CreateErrorEmbed(e, "Failed to fetch the report. Please try again later.")
		}

		now := time.Now()
		embed := discord.Embed{
			Title:       fmt.Sprintf("%s %s", tierEmoji(record.StatusTier), record.BungieName),
			Description: buildReportDescription(record),
			Color:       tierColor(record.StatusTier),
			Footer: &discord.EmbedFooter{
				Text: fmt.Sprintf("Requested by %s", e.User().Username),
			},
			Timestamp: &now,
		}
		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
	}
}

func buildReportDescription(record *models.MemberRecord) string {
	var totalSeconds, totalUnique int64
	var totalWeight float64
	for _, stat := range record.GameActivity {
		totalSeconds += stat.SecondsPlayed
		totalUnique += stat.UniqueClanMembersPlayedWith
		totalWeight += stat.ClanMembersPlayedWith
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Activity Score:** %d (%s)\n\n", record.ActivityScore, record.StatusTier)
	fmt.Fprintf(&sb, "🎮 **In Game**\n")
	fmt.Fprintf(&sb, "Time played: %s\n", formatDuration(totalSeconds))
	fmt.Fprintf(&sb, "Unique clan teammates: %d\n", totalUnique)
	fmt.Fprintf(&sb, "Clan session weight: %.1f\n\n", totalWeight)
	fmt.Fprintf(&sb, "💬 **In Discord**\n")
	fmt.Fprintf(&sb, "Messages: %d\n", record.ChatEvents)
	fmt.Fprintf(&sb, "Characters typed: %d\n", record.CharactersTyped)
	if record.VoiceMinutes > 0 {
		fmt.Fprintf(&sb, "Voice minutes: %d\n", record.VoiceMinutes)
	}

	if record.ClanName != "" {
		fmt.Fprintf(&sb, "\nClan: **%s**", record.ClanName)
	}

	if days := recentDays(record.GameActivity, 7); len(days) > 0 {
		sb.WriteString("\n\n**Last 7 days**\n```\n")
		for _, day := range days {
			stat := record.GameActivity[day]
			fmt.Fprintf(&sb, "%s  %8s  %d teammates\n", day, formatDuration(stat.SecondsPlayed), stat.UniqueClanMembersPlayedWith)
		}
		sb.WriteString("```")
	}

	return sb.String()
}

// recentDays returns the newest n day keys, oldest first.
func recentDays(activity map[string]models.DayStat, n int) []string {
	days := make([]string, 0, len(activity))
	for day := range activity {
		days = append(days, day)
	}
	sort.Strings(days)
	if len(days) > n {
		days = days[len(days)-n:]
	}
	return days
}

func formatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	hours := int64(d.Hours())
	minutes := int64(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func tierEmoji(tier models.StatusTier) string {
	switch tier {
	case models.TierThriving:
		return "🟢"
	case models.TierDormant:
		return "🟡"
	default:
		return "🔴"
	}
}

func tierColor(tier models.StatusTier) int {
	switch tier {
	case models.TierThriving:
		return utils.SuccessColor
	case models.TierDormant:
		return utils.WarningColor
	default:
		return utils.ErrorColor
	}
}
