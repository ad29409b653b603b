package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/clanwatchbot/clanwatch/clanwatch/bungie"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func groupMember(id, name string) bungie.GroupMember {
	return bungie.GroupMember{
		DestinyUserInfo: bungie.UserInfo{MembershipID: id, DisplayName: name},
	}
}

func TestRosterRefreshReplacesSnapshotWholesale(t *testing.T) {
	api := mock.NewMockBungieAPI(gomock.NewController(t))
	gomock.InOrder(
		api.EXPECT().GetGroupMembers(gomock.Any(), int64(1)).
			Return([]bungie.GroupMember{groupMember("100", "alpha"), groupMember("200", "beta")}, nil),
		api.EXPECT().GetGroupMembers(gomock.Any(), int64(1)).
			Return([]bungie.GroupMember{groupMember("100", "alpha")}, nil),
	)

	cache := NewRosterCache(api, nil)

	_, err := cache.Refresh(context.Background(), 1, "Clan One")
	require.NoError(t, err)
	ok, _ := cache.IsMember("200")
	assert.True(t, ok)

	// Second refresh no longer contains 200; no merge, the departed member
	// is gone.
	_, err = cache.Refresh(context.Background(), 1, "Clan One")
	require.NoError(t, err)
	ok, _ = cache.IsMember("200")
	assert.False(t, ok)
	ok, _ = cache.IsMember("100")
	assert.True(t, ok)
}

func TestRosterRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	api := mock.NewMockBungieAPI(gomock.NewController(t))
	gomock.InOrder(
		api.EXPECT().GetGroupMembers(gomock.Any(), int64(1)).
			Return([]bungie.GroupMember{groupMember("100", "alpha")}, nil),
		api.EXPECT().GetGroupMembers(gomock.Any(), int64(1)).
			Return(nil, errors.New("remote api unavailable")),
	)

	cache := NewRosterCache(api, nil)
	_, err := cache.Refresh(context.Background(), 1, "Clan One")
	require.NoError(t, err)

	_, err = cache.Refresh(context.Background(), 1, "Clan One")
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	ok, member := cache.IsMember("100")
	require.True(t, ok, "stale snapshot must remain queryable")
	assert.Equal(t, "alpha", member.DisplayName)
}

func TestRosterUnionSpansClans(t *testing.T) {
	api := mock.NewMockBungieAPI(gomock.NewController(t))
	api.EXPECT().GetGroupMembers(gomock.Any(), int64(1)).
		Return([]bungie.GroupMember{groupMember("100", "alpha")}, nil)
	api.EXPECT().GetGroupMembers(gomock.Any(), int64(2)).
		Return([]bungie.GroupMember{groupMember("200", "beta"), groupMember("100", "alpha")}, nil)

	cache := NewRosterCache(api, nil)
	_, err := cache.Refresh(context.Background(), 1, "Clan One")
	require.NoError(t, err)
	_, err = cache.Refresh(context.Background(), 2, "Clan Two")
	require.NoError(t, err)

	union := cache.Union()
	assert.Len(t, union, 2)
	assert.Contains(t, union, "100")
	assert.Contains(t, union, "200")

	counts := cache.Counts()
	assert.Equal(t, 1, counts["Clan One"])
	assert.Equal(t, 2, counts["Clan Two"])
}

func TestRosterFindByNameIsCaseInsensitive(t *testing.T) {
	cache := rosterWith(t, "100")

	found, member, clanID := cache.FindByName("PLAYER-100")
	require.True(t, found)
	assert.Equal(t, "100", member.MembershipID)
	assert.Equal(t, int64(1), clanID)

	found, _, _ = cache.FindByName("nobody")
	assert.False(t, found)
}
