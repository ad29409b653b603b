package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/bungie"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// memberFaultFetcher fails every day fetch for one member and serves a
// fixed session to everyone else.
type memberFaultFetcher struct {
	failFor string
}

func (f *memberFaultFetcher) FetchDay(_ context.Context, bungieID string, _ time.Time) ([]PlaySession, error) {
	if bungieID == f.failFor {
		return nil, errors.New("api down")
	}
	return []PlaySession{{InstanceID: "inst-1", SecondsPlayed: 600}}, nil
}

func TestRunActivityRefreshIsolatesMemberFaults(t *testing.T) {
	repo := newFakeMemberRepo()
	repo.records["100"] = &models.MemberRecord{DiscordID: "d1", BungieID: "100", GameActivity: map[string]models.DayStat{}}
	repo.records["200"] = &models.MemberRecord{DiscordID: "d2", BungieID: "200", GameActivity: map[string]models.DayStat{}}

	roster := rosterWith(t, "100", "200")
	engine := NewEngine(&memberFaultFetcher{failFor: "100"}, NewCoParticipantResolver(roster))
	engine.now = func() time.Time { return day("2026-08-28") }

	service := NewService(registrationAPI(t), repo, roster, engine, nil, nil, 14)
	scheduler := NewScheduler(service, roster, nil, SchedulerConfig{Workers: 2})

	scheduler.RunActivityRefresh(context.Background())

	// The healthy member's record was reconciled and persisted: 15 window
	// days of 600 seconds each.
	healthy, err := repo.GetByBungieID(context.Background(), "200")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), healthy.ActivityScore)
	assert.Len(t, healthy.GameActivity, 15)

	// The faulted member keeps its previous state untouched.
	faulted, err := repo.GetByBungieID(context.Background(), "100")
	require.NoError(t, err)
	assert.Zero(t, faulted.ActivityScore)
	assert.Empty(t, faulted.GameActivity)
}

func TestRunRosterRefreshSkipsEvictionOnPartialFailure(t *testing.T) {
	api := mock.NewMockBungieAPI(gomock.NewController(t))
	api.EXPECT().GetGroupMembers(gomock.Any(), int64(1)).
		Return([]bungie.GroupMember{{DestinyUserInfo: bungie.UserInfo{MembershipID: "100"}}}, nil)
	api.EXPECT().GetGroupMembers(gomock.Any(), int64(2)).
		Return(nil, errors.New("api down"))

	repo := newFakeMemberRepo()
	repo.records["999"] = &models.MemberRecord{DiscordID: "d3", BungieID: "999"}

	roster := NewRosterCache(api, nil)
	service := NewService(api, repo, roster, nil, nil, nil, 14)
	scheduler := NewScheduler(service, roster, nil, SchedulerConfig{
		Clans: []ClanRef{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}},
	})

	scheduler.RunRosterRefresh(context.Background())

	// Clan 2's refresh failed, so the member absent from clan 1's roster
	// must not be evicted this cycle.
	assert.Contains(t, repo.records, "999")
}
