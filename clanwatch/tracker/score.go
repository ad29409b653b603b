package tracker

import (
	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
)

const (
	chatEventWeight = 60
	characterWeight = 3

	thrivingThreshold = 3_000_000
	dormantThreshold  = 1_000_000
)

// CalculateScore combines the window's day buckets with the rolling chat
// stats into the final activity score. Pure function, no I/O: the same
// inputs always produce the same score regardless of call order.
//
// The bonus multiplier applies to typed characters only, so typed volume
// counts super-linearly for members who are also socially engaged in game,
// and contributes nothing beyond the flat chat-event term without any
// social signal. Observed legacy behavior, kept intentionally.
func CalculateScore(activity map[string]models.DayStat, chatEvents, charactersTyped int64) (int64, models.StatusTier) {
	var totalSeconds int64
	var totalUnique int64
	var totalClanWeight float64

	for _, stat := range activity {
		totalSeconds += stat.SecondsPlayed
		totalUnique += stat.UniqueClanMembersPlayedWith
		totalClanWeight += stat.ClanMembersPlayedWith
	}

	bonusMultiplier := float64(totalUnique) + totalClanWeight
	score := totalSeconds +
		chatEvents*chatEventWeight +
		int64(float64(charactersTyped*characterWeight)*bonusMultiplier)

	return score, TierForScore(score)
}

// TierForScore assigns the coarse status classification.
func TierForScore(score int64) models.StatusTier {
	switch {
	case score >= thrivingThreshold:
		return models.TierThriving
	case score >= dormantThreshold:
		return models.TierDormant
	default:
		return models.TierInactive
	}
}
