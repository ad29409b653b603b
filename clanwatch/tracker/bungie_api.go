package tracker

import (
	"context"

	"github.com/clanwatchbot/clanwatch/clanwatch/bungie"
)

//go:generate mockgen -destination=mock/bungie_api.go -package=mock . BungieAPI

// BungieAPI is the slice of the game-statistics client the tracker needs.
// Narrowing it here keeps the engine mockable in tests.
type BungieAPI interface {
	GetProfile(ctx context.Context, membershipType int, membershipID string) (*bungie.Profile, error)
	GetActivityHistory(ctx context.Context, membershipType int, membershipID, characterID string, count, page int) ([]bungie.ActivityEntry, error)
	GetPostGameCarnageReport(ctx context.Context, instanceID string) (*bungie.CarnageReport, error)
	GetGroupMembers(ctx context.Context, groupID int64) ([]bungie.GroupMember, error)
	GetGroupsForMember(ctx context.Context, membershipType int, membershipID string) ([]bungie.GroupInfo, error)
}
