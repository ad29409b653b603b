// Package commands holds the slash command definitions and handlers.
package commands

import (
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	Register,
	Report,
	Roster,
	ClanReport,
	Refresh,
	Leaderboard,
}
