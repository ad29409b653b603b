package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/repositories"
)

// RosterCache holds the current membership snapshot of every tracked clan.
// Refresh builds a complete replacement snapshot and swaps it in under the
// lock, so readers never observe a partially-written roster. A failed
// refresh leaves the previous snapshot intact.
type RosterCache struct {
	api  BungieAPI
	repo repositories.RosterRepository

	mu      sync.RWMutex
	rosters map[int64]*models.ClanRoster
}

func NewRosterCache(api BungieAPI, repo repositories.RosterRepository) *RosterCache {
	return &RosterCache{
		api:     api,
		repo:    repo,
		rosters: make(map[int64]*models.ClanRoster),
	}
}

// Load warms the cache from the persisted snapshots so lookups work before
// the first remote refresh completes.
func (c *RosterCache) Load(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}

	stored, err := c.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster snapshots: %w", err)
	}

	c.mu.Lock()
	for _, roster := range stored {
		c.rosters[roster.ClanID] = roster
	}
	c.mu.Unlock()

	slog.Info("Roster cache warmed from storage",
		slog.String("type", "sys"),
		slog.Int("clans", len(stored)))
	return nil
}

// Refresh rebuilds one clan's snapshot wholesale from the remote group
// endpoint and persists it. On failure the stale snapshot stays available.
func (c *RosterCache) Refresh(ctx context.Context, clanID int64, clanName string) (*models.ClanRoster, error) {
	groupMembers, err := c.api.GetGroupMembers(ctx, clanID)
	if err != nil {
		return nil, &TransientError{Op: fmt.Sprintf("roster refresh for clan %d", clanID), Err: err}
	}

	roster := &models.ClanRoster{
		ClanID:      clanID,
		ClanName:    clanName,
		Members:     make([]models.RosterMember, 0, len(groupMembers)),
		LastUpdated: time.Now().UTC(),
	}
	for _, member := range groupMembers {
		roster.Members = append(roster.Members, models.RosterMember{
			MembershipID: member.DestinyUserInfo.MembershipID,
			DisplayName:  member.DestinyUserInfo.DisplayName,
			JoinedAt:     member.JoinDate,
		})
	}

	if c.repo != nil {
		if err := c.repo.Upsert(ctx, roster); err != nil {
			slog.Error("Failed to persist roster snapshot",
				slog.String("type", "db"),
				slog.Int64("clan_id", clanID),
				slog.Any("error", err))
		}
	}

	c.mu.Lock()
	c.rosters[clanID] = roster
	c.mu.Unlock()

	slog.Info("Clan roster refreshed",
		slog.String("type", "sys"),
		slog.Int64("clan_id", clanID),
		slog.String("clan_name", clanName),
		slog.Int("members", len(roster.Members)))
	return roster, nil
}

// IsMember scans the union of all cached rosters for a game account id.
func (c *RosterCache) IsMember(membershipID string) (bool, *models.RosterMember) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, roster := range c.rosters {
		for i := range roster.Members {
			if roster.Members[i].MembershipID == membershipID {
				member := roster.Members[i]
				return true, &member
			}
		}
	}
	return false, nil
}

// FindByName looks a display name up across all cached rosters, case
// insensitively. Used by the registration precheck.
func (c *RosterCache) FindByName(name string) (bool, *models.RosterMember, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for clanID, roster := range c.rosters {
		for i := range roster.Members {
			if strings.EqualFold(roster.Members[i].DisplayName, name) {
				member := roster.Members[i]
				return true, &member, clanID
			}
		}
	}
	return false, nil, 0
}

// Union returns the set of every game account id across all cached
// rosters. Eviction reconciliation deletes records absent from it.
func (c *RosterCache) Union() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	union := make(map[string]struct{})
	for _, roster := range c.rosters {
		for i := range roster.Members {
			union[roster.Members[i].MembershipID] = struct{}{}
		}
	}
	return union
}

// Counts returns per-clan member counts keyed by clan name.
func (c *RosterCache) Counts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int, len(c.rosters))
	for _, roster := range c.rosters {
		counts[roster.ClanName] = len(roster.Members)
	}
	return counts
}

// Rosters returns every cached roster snapshot.
func (c *RosterCache) Rosters() []*models.ClanRoster {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rosters := make([]*models.ClanRoster, 0, len(c.rosters))
	for _, roster := range c.rosters {
		rosters = append(rosters, roster)
	}
	return rosters
}

// Snapshot returns the cached roster for one clan, or nil.
func (c *RosterCache) Snapshot(clanID int64) *models.ClanRoster {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rosters[clanID]
}
