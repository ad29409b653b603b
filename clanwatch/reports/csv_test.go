package reports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClanCSV(t *testing.T) {
	records := []*models.MemberRecord{
		{DiscordName: "low", BungieName: "LowScore", BungieID: "100", ActivityScore: 10},
		{DiscordName: "high", BungieName: "HighScore", BungieID: "200", ActivityScore: 5000},
		{DiscordName: "gone", BungieName: "LeftClan", BungieID: "999", ActivityScore: 300},
	}
	rosters := []*models.ClanRoster{
		{
			ClanID:   1,
			ClanName: "Test Clan",
			Members: []models.RosterMember{
				{MembershipID: "100", DisplayName: "LowScore", JoinedAt: time.Now()},
				{MembershipID: "200", DisplayName: "HighScore", JoinedAt: time.Now()},
				{MembershipID: "300", DisplayName: "Unregistered", JoinedAt: time.Now()},
			},
		},
	}

	data, err := BuildClanCSV(records, rosters)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"game_name", "discord_name", "registered", "in_clan", "in_discord", "activity_score"}, rows[0])

	// Registered members first, ordered by score descending.
	assert.Equal(t, []string{"HighScore", "high", "true", "true", "true", "5000"}, rows[1])
	assert.Equal(t, []string{"LeftClan", "gone", "true", "false", "true", "300"}, rows[2])
	assert.Equal(t, []string{"LowScore", "low", "true", "true", "true", "10"}, rows[3])

	// Unregistered roster members trail.
	assert.Equal(t, []string{"Unregistered", "", "false", "true", "false", "0"}, rows[4])
}

func TestBuildClanCSVEmptyInputs(t *testing.T) {
	data, err := BuildClanCSV(nil, nil)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
