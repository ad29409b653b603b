package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker"
	"github.com/clanwatchbot/clanwatch/clanwatch/utils"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

var Register = discord.SlashCommandCreate{
	Name:        "register",
	Description: "🔗 Link your Destiny account to start activity tracking",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "membership_id",
			Description: "Your Destiny membership id",
		},
		discord.ApplicationCommandOptionString{
			Name:        "game_name",
			Description: "Your in-game display name, if you don't know the id",
		},
	},
}

func RegisterHandler(b *clanwatch.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		bungieID, hasID := data.OptString("membership_id")
		gameName, hasName := data.OptString("game_name")

		if !hasID && !hasName {
			return utils.CreateErrorEmbed(e, "Provide either your membership id or your in-game name.")
		}

		if !hasID {
			found, member, _ := b.RosterCache.FindByName(gameName)
			if !found {
				return utils.CreateErrorEmbed(e, fmt.Sprintf("No clan member named `%s` found. Check the spelling, or use your membership id.", gameName))
			}
			bungieID = member.MembershipID
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		record, err := b.Service.RegisterMember(ctx, e.User().ID.String(), e.User().Username, bungieID)
		if err != nil {
			switch {
			case errors.Is(err, tracker.ErrNotInRoster):
				return utils.CreateErrorEmbed(e, "That account is not in any tracked clan roster.")
			case errors.Is(err, tracker.ErrAlreadyRegistered):
				return utils.CreateErrorEmbed(e, "You or that account are already registered.")
			default:
				return utils.CreateErrorEmbed(e, "Registration failed. Please try again later.")
			}
		}

		description := fmt.Sprintf("Linked **%s** to <@%s>.", record.BungieName, record.DiscordID)
		if record.ClanName != "" {
			description += fmt.Sprintf("\nClan: **%s**", record.ClanName)
		}
		description += "\n\nYour activity will appear after the next aggregation cycle."

		return utils.CreateSuccessEmbed(e, "✅ Registered", description)
	}
}
