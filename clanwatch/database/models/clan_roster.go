package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RosterMember is one entry of a clan roster snapshot.
type RosterMember struct {
	MembershipID string    `json:"membership_id"`
	DisplayName  string    `json:"display_name"`
	JoinedAt     time.Time `json:"joined_at"`
}

// ClanRoster is a wholesale snapshot of a clan's membership. It is rebuilt
// on every refresh, never diffed.
type ClanRoster struct {
	bun.BaseModel `bun:"table:clan_rosters,alias:cr"`

	ClanID      int64          `bun:"clan_id,pk"`
	ClanName    string         `bun:"clan_name,notnull"`
	Members     []RosterMember `bun:"members,type:jsonb"`
	LastUpdated time.Time      `bun:"last_updated,notnull"`
}
