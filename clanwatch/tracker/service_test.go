package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/bungie"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/repositories"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeMemberRepo is an in-memory MemberRepository keyed by bungie id.
type fakeMemberRepo struct {
	mu      sync.Mutex
	records map[string]*models.MemberRecord
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{records: make(map[string]*models.MemberRecord)}
}

func (f *fakeMemberRepo) Create(_ context.Context, record *models.MemberRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.BungieID == record.BungieID || existing.DiscordID == record.DiscordID {
			return &repositories.ConflictError{Entity: "member_record", Field: "identity", Value: record.BungieID}
		}
	}
	f.records[record.BungieID] = record
	return nil
}

func (f *fakeMemberRepo) GetByDiscordID(_ context.Context, discordID string) (*models.MemberRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.DiscordID == discordID {
			return record, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "member_record", ID: discordID}
}

func (f *fakeMemberRepo) GetByBungieID(_ context.Context, bungieID string) (*models.MemberRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[bungieID]; ok {
		return record, nil
	}
	return nil, &repositories.NotFoundError{Entity: "member_record", ID: bungieID}
}

func (f *fakeMemberRepo) GetAll(_ context.Context) ([]*models.MemberRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]*models.MemberRecord, 0, len(f.records))
	for _, record := range f.records {
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeMemberRepo) GetByClanID(_ context.Context, clanID int64) ([]*models.MemberRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []*models.MemberRecord
	for _, record := range f.records {
		if record.ClanID == clanID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeMemberRepo) GetTopByScore(ctx context.Context, _ int) ([]*models.MemberRecord, error) {
	return f.GetAll(ctx)
}

func (f *fakeMemberRepo) Update(_ context.Context, record *models.MemberRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.BungieID] = record
	return nil
}

func (f *fakeMemberRepo) UpdateNames(_ context.Context, bungieID, discordName, bungieName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[bungieID]; ok {
		record.DiscordName = discordName
		record.BungieName = bungieName
	}
	return nil
}

func (f *fakeMemberRepo) MarkFlagged(_ context.Context, bungieID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[bungieID]; ok {
		record.FlaggedAt = time.Now()
	}
	return nil
}

func (f *fakeMemberRepo) DeleteByBungieID(_ context.Context, bungieID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, bungieID)
	return nil
}

func registrationAPI(t *testing.T) *mock.MockBungieAPI {
	t.Helper()
	api := mock.NewMockBungieAPI(gomock.NewController(t))
	api.EXPECT().
		GetProfile(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&bungie.Profile{UserInfo: bungie.UserInfo{DisplayName: "Resolved Name"}}, nil).
		AnyTimes()
	api.EXPECT().
		GetGroupsForMember(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]bungie.GroupInfo{{GroupID: "1", Name: "Test Clan"}}, nil).
		AnyTimes()
	return api
}

func registrationService(t *testing.T, repo repositories.MemberRepository) *Service {
	t.Helper()
	roster := rosterWith(t, "100", "200")
	return NewService(registrationAPI(t), repo, roster, nil, nil, nil, 14)
}

func TestRegisterMemberCreatesRecord(t *testing.T) {
	repo := newFakeMemberRepo()
	service := registrationService(t, repo)

	record, err := service.RegisterMember(context.Background(), "d1", "discord-user", "100")
	require.NoError(t, err)
	assert.Equal(t, "Resolved Name", record.BungieName)
	assert.Equal(t, int64(1), record.ClanID)
	assert.Equal(t, "Test Clan", record.ClanName)
	assert.Equal(t, models.TierInactive, record.StatusTier)

	stored, err := repo.GetByBungieID(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "d1", stored.DiscordID)
}

func TestRegisterMemberRejectsUnknownAccount(t *testing.T) {
	repo := newFakeMemberRepo()
	service := registrationService(t, repo)

	_, err := service.RegisterMember(context.Background(), "d1", "discord-user", "999")
	assert.ErrorIs(t, err, ErrNotInRoster)
}

func TestRegisterMemberRejectsDuplicates(t *testing.T) {
	repo := newFakeMemberRepo()
	service := registrationService(t, repo)

	_, err := service.RegisterMember(context.Background(), "d1", "discord-user", "100")
	require.NoError(t, err)

	// Same discord identity, different game account.
	_, err = service.RegisterMember(context.Background(), "d1", "discord-user", "200")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	// Different discord identity, same game account.
	_, err = service.RegisterMember(context.Background(), "d2", "other-user", "100")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	// The original record survives both rejections.
	stored, err := repo.GetByBungieID(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "d1", stored.DiscordID)
}

func TestGetReportResolvesByNameFuzzily(t *testing.T) {
	repo := newFakeMemberRepo()
	service := registrationService(t, repo)

	_, err := service.RegisterMember(context.Background(), "d1", "SharpShooter", "100")
	require.NoError(t, err)

	record, err := service.GetReport(context.Background(), "sharpshoot")
	require.NoError(t, err)
	assert.Equal(t, "100", record.BungieID)

	_, err = service.GetReport(context.Background(), "zzzzqqqq")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestUpdateMemberFlagsCorruptRecord(t *testing.T) {
	repo := newFakeMemberRepo()
	service := registrationService(t, repo)

	record := &models.MemberRecord{
		DiscordID: "d1",
		BungieID:  "100",
		GameActivity: map[string]models.DayStat{
			"not-a-day": {SecondsPlayed: 10},
		},
	}
	repo.records["100"] = record

	err := service.UpdateMember(context.Background(), record, nil)
	require.Error(t, err)
	assert.True(t, IsCorruptRecord(err))
	assert.False(t, repo.records["100"].FlaggedAt.IsZero())
}

func TestForceRefreshIsolatesMemberFaults(t *testing.T) {
	repo := newFakeMemberRepo()
	repo.records["100"] = &models.MemberRecord{DiscordID: "d1", BungieID: "100", GameActivity: map[string]models.DayStat{}}
	repo.records["200"] = &models.MemberRecord{DiscordID: "d2", BungieID: "200", GameActivity: map[string]models.DayStat{}}

	roster := rosterWith(t, "100", "200")
	engine := NewEngine(&memberFaultFetcher{failFor: "100"}, NewCoParticipantResolver(roster))
	engine.now = func() time.Time { return day("2026-08-28") }

	service := NewService(registrationAPI(t), repo, roster, engine, nil, nil, 14)

	// One member's fault is logged, never escalated to the batch.
	err := service.ForceRefresh(context.Background(), "")
	require.NoError(t, err)

	healthy, err := repo.GetByBungieID(context.Background(), "200")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), healthy.ActivityScore)

	faulted, err := repo.GetByBungieID(context.Background(), "100")
	require.NoError(t, err)
	assert.Zero(t, faulted.ActivityScore)
	assert.Empty(t, faulted.GameActivity)
}

func TestEvictAbsentDeletesExactSet(t *testing.T) {
	repo := newFakeMemberRepo()
	service := registrationService(t, repo)

	repo.records["100"] = &models.MemberRecord{DiscordID: "d1", BungieID: "100"}
	repo.records["200"] = &models.MemberRecord{DiscordID: "d2", BungieID: "200"}
	repo.records["999"] = &models.MemberRecord{DiscordID: "d3", BungieID: "999"}

	evicted, err := service.EvictAbsent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Contains(t, repo.records, "100")
	assert.Contains(t, repo.records, "200")
	assert.NotContains(t, repo.records, "999")
}

func TestEvictAbsentSkipsWhenNoRosterData(t *testing.T) {
	repo := newFakeMemberRepo()
	repo.records["999"] = &models.MemberRecord{DiscordID: "d3", BungieID: "999"}

	api := mock.NewMockBungieAPI(gomock.NewController(t))
	service := NewService(api, repo, NewRosterCache(api, nil), nil, nil, nil, 14)

	evicted, err := service.EvictAbsent(context.Background())
	require.NoError(t, err)
	assert.Zero(t, evicted)
	assert.Contains(t, repo.records, "999")
}

func TestWindowSpansTrailingDaysPlusToday(t *testing.T) {
	repo := newFakeMemberRepo()
	roster := rosterWith(t, "100")
	engine := NewEngine(&stubFetcher{sessions: map[string][]PlaySession{}}, NewCoParticipantResolver(roster))
	engine.now = func() time.Time { return day("2026-08-28") }

	service := NewService(registrationAPI(t), repo, roster, engine, nil, nil, 14)

	start, end := service.Window()
	assert.Equal(t, day("2026-08-29"), end)
	assert.Equal(t, day("2026-08-14"), start)
}
