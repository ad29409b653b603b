// Package reports builds the clan-wide CSV export and archives it to
// object storage.
package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
)

var csvHeader = []string{"game_name", "discord_name", "registered", "in_clan", "in_discord", "activity_score"}

// BuildClanCSV renders the full clan picture: every registered member
// first, ordered by score descending, then the roster members nobody has
// registered. Registered members absent from every roster still appear,
// flagged in_clan=false, so pending evictions are visible in the export.
func BuildClanCSV(records []*models.MemberRecord, rosters []*models.ClanRoster) ([]byte, error) {
	inRoster := make(map[string]struct{})
	for _, roster := range rosters {
		for i := range roster.Members {
			inRoster[roster.Members[i].MembershipID] = struct{}{}
		}
	}

	sorted := make([]*models.MemberRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ActivityScore > sorted[j].ActivityScore
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	registered := make(map[string]struct{}, len(sorted))
	for _, record := range sorted {
		registered[record.BungieID] = struct{}{}

		_, present := inRoster[record.BungieID]
		row := []string{
			record.BungieName,
			record.DiscordName,
			"true",
			strconv.FormatBool(present),
			"true",
			strconv.FormatInt(record.ActivityScore, 10),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	for _, roster := range rosters {
		for i := range roster.Members {
			member := roster.Members[i]
			if _, ok := registered[member.MembershipID]; ok {
				continue
			}
			row := []string{member.DisplayName, "", "false", "true", "false", "0"}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
