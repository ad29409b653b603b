package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// StatusTier is the coarse activity classification derived from the score.
type StatusTier string

const (
	TierThriving StatusTier = "thriving"
	TierDormant  StatusTier = "dormant"
	TierInactive StatusTier = "inactive"
)

// DayStat holds one UTC calendar day of aggregated play statistics.
// ClanMembersPlayedWith is fractional because each session's contribution
// is capped at 2.9 clan teammates.
type DayStat struct {
	SecondsPlayed               int64   `json:"seconds_played"`
	ClanMembersPlayedWith       float64 `json:"clan_members_played_with"`
	UniqueClanMembersPlayedWith int64   `json:"unique_clan_members_played_with"`
}

// MemberRecord is the long-lived per-tracked-member entity. DiscordID and
// BungieID are immutable once registered; names are refreshed periodically.
type MemberRecord struct {
	bun.BaseModel `bun:"table:member_records,alias:mr"`

	ID          int64  `bun:"id,pk,autoincrement"`
	DiscordID   string `bun:"discord_id,notnull,unique"`
	BungieID    string `bun:"bungie_id,notnull,unique"`
	DiscordName string `bun:"discord_name,notnull"`
	BungieName  string `bun:"bungie_name,notnull"`
	ClanID      int64  `bun:"clan_id,notnull"`
	ClanName    string `bun:"clan_name"`

	// One bucket per UTC calendar day, keyed YYYY-MM-DD.
	GameActivity map[string]DayStat `bun:"game_activity,type:jsonb"`

	// Rolling-window chat stats, fully replaced on each refresh.
	ChatEvents      int64 `bun:"chat_events,notnull,default:0"`
	CharactersTyped int64 `bun:"characters_typed,notnull,default:0"`
	VoiceMinutes    int64 `bun:"voice_minutes,notnull,default:0"`

	// Derived on every refresh.
	ActivityScore int64      `bun:"activity_score,notnull,default:0"`
	StatusTier    StatusTier `bun:"status_tier,notnull,default:'inactive'"`

	// Set when a refresh cycle found the record unreadable.
	FlaggedAt time.Time `bun:"flagged_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// DayKey formats a time as the game_activity map key for its UTC day.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Validate checks the invariants a readable record must satisfy. A record
// that fails here is skipped for the cycle and flagged, never deleted.
func (m *MemberRecord) Validate() error {
	if m.DiscordID == "" {
		return fmt.Errorf("member record %d has empty discord_id", m.ID)
	}
	if m.BungieID == "" {
		return fmt.Errorf("member record %d has empty bungie_id", m.ID)
	}
	for key, stat := range m.GameActivity {
		if _, err := time.Parse("2006-01-02", key); err != nil {
			return fmt.Errorf("game_activity key %q is not a calendar day", key)
		}
		if stat.SecondsPlayed < 0 || stat.ClanMembersPlayedWith < 0 || stat.UniqueClanMembersPlayedWith < 0 {
			return fmt.Errorf("game_activity bucket %q has negative values", key)
		}
	}
	return nil
}
