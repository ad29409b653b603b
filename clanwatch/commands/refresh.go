package commands

import (
	"context"
	"errors"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker"
	"github.com/clanwatchbot/clanwatch/clanwatch/utils"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

var Refresh = discord.SlashCommandCreate{
	Name:        "refresh",
	Description: "🔄 Force an activity refresh outside the schedule",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "member",
			Description: "Member to refresh. Leave empty to refresh everyone.",
		},
	},
}

func RefreshHandler(b *clanwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !b.IsAdmin(e.Member()) {
			return utils.CreateErrorEmbed(e, "You need an admin role to force a refresh.")
		}

		data := e.SlashCommandInteractionData()
		query, _ := data.OptString("member")

		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		// A full-clan refresh walks the remote API for every member and can
		// run for minutes, so it happens behind the deferred response.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			err := b.Service.ForceRefresh(ctx, query)

			var content string
			switch {
			case errors.Is(err, tracker.ErrNotRegistered):
				content = "❌ No registered member matches that query."
			case err != nil:
				content = "❌ Refresh failed. Check the logs for details."
			case query != "":
				content = "✅ Member refreshed."
			default:
				content = "✅ All members refreshed."
			}

			_, _ = e.UpdateInteractionResponse(discord.MessageUpdate{Content: &content})
		}()

		return nil
	}
}
