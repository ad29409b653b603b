package commands

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch"
	"github.com/clanwatchbot/clanwatch/clanwatch/utils"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
)

const leaderboardPageSize = 10

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "🏆 Rank the clan by activity score",
}

func LeaderboardHandler(b *clanwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		records, err := b.MemberRepository.GetTopByScore(ctx, 100)
		if err != nil {
			return utils.CreateErrorEmbed(e, "Failed to load the leaderboard.")
		}
		if len(records) == 0 {
			return utils.CreateErrorEmbed(e, "Nobody is registered yet.")
		}

		totalPages := int(math.Ceil(float64(len(records)) / float64(leaderboardPageSize)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				startIdx := page * leaderboardPageSize
				endIdx := min(startIdx+leaderboardPageSize, len(records))

				description := ""
				for i, record := range records[startIdx:endIdx] {
					rank := startIdx + i + 1
					description += fmt.Sprintf("%s **#%d** %s — %d\n",
						tierEmoji(record.StatusTier), rank, record.BungieName, record.ActivityScore)
				}

				embed.SetTitle("🏆 Activity Leaderboard").
					SetDescription(description).
					SetColor(utils.InfoColor).
					SetFooterText(fmt.Sprintf("Page %d/%d", page+1, totalPages))
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
