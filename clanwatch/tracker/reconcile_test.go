package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher records which days were requested and serves canned sessions.
type stubFetcher struct {
	mu       sync.Mutex
	fetched  []string
	sessions map[string][]PlaySession
	err      error
}

func (s *stubFetcher) FetchDay(_ context.Context, _ string, day time.Time) ([]PlaySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	key := models.DayKey(day)
	s.fetched = append(s.fetched, key)
	return s.sessions[key], nil
}

func (s *stubFetcher) fetchedDays() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := make(map[string]bool, len(s.fetched))
	for _, day := range s.fetched {
		days[day] = true
	}
	return days
}

func testEngine(t *testing.T, fetcher DayFetcher, now time.Time) *Engine {
	t.Helper()
	engine := NewEngine(fetcher, NewCoParticipantResolver(rosterWith(t, "100", "200")))
	engine.now = func() time.Time { return now }
	return engine
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestReconcileReusesCachedHistoricalDays(t *testing.T) {
	now := day("2026-08-28").Add(10 * time.Hour)
	fetcher := &stubFetcher{sessions: map[string][]PlaySession{}}
	engine := testEngine(t, fetcher, now)

	record := &models.MemberRecord{
		DiscordID: "d1",
		BungieID:  "100",
		GameActivity: map[string]models.DayStat{
			"2026-08-26": {SecondsPlayed: 1111},
			"2026-08-27": {SecondsPlayed: 2222},
			// A stale bucket for today must be refetched, not reused.
			"2026-08-28": {SecondsPlayed: 9999},
		},
	}

	err := engine.ReconcileActivity(context.Background(), record, day("2026-08-26"), day("2026-08-29"))
	require.NoError(t, err)

	fetched := fetcher.fetchedDays()
	assert.False(t, fetched["2026-08-26"], "cached historical day must not be refetched")
	assert.False(t, fetched["2026-08-27"], "cached historical day must not be refetched")
	assert.True(t, fetched["2026-08-28"], "today must always be refetched")

	assert.Equal(t, int64(1111), record.GameActivity["2026-08-26"].SecondsPlayed)
	assert.Equal(t, int64(0), record.GameActivity["2026-08-28"].SecondsPlayed)
}

func TestReconcileFetchesMissingHistoricalDays(t *testing.T) {
	now := day("2026-08-28")
	fetcher := &stubFetcher{sessions: map[string][]PlaySession{
		"2026-08-26": {{InstanceID: "a", SecondsPlayed: 1800}},
	}}
	engine := testEngine(t, fetcher, now)

	record := &models.MemberRecord{
		DiscordID:    "d1",
		BungieID:     "100",
		GameActivity: map[string]models.DayStat{},
	}

	err := engine.ReconcileActivity(context.Background(), record, day("2026-08-26"), day("2026-08-28"))
	require.NoError(t, err)

	fetched := fetcher.fetchedDays()
	assert.True(t, fetched["2026-08-26"])
	assert.True(t, fetched["2026-08-27"])
	assert.Equal(t, int64(1800), record.GameActivity["2026-08-26"].SecondsPlayed)
}

func TestReconcilePrunesDaysOutsideWindow(t *testing.T) {
	now := day("2026-08-28")
	fetcher := &stubFetcher{sessions: map[string][]PlaySession{}}
	engine := testEngine(t, fetcher, now)

	record := &models.MemberRecord{
		DiscordID: "d1",
		BungieID:  "100",
		GameActivity: map[string]models.DayStat{
			"2026-07-01": {SecondsPlayed: 5555},
			"2026-08-27": {SecondsPlayed: 2222},
		},
	}

	err := engine.ReconcileActivity(context.Background(), record, day("2026-08-27"), day("2026-08-29"))
	require.NoError(t, err)

	assert.NotContains(t, record.GameActivity, "2026-07-01")
	assert.Contains(t, record.GameActivity, "2026-08-27")
}

func TestReconcileLeavesRecordUntouchedOnFailure(t *testing.T) {
	now := day("2026-08-28")
	fetcher := &stubFetcher{err: errors.New("api down")}
	engine := testEngine(t, fetcher, now)

	original := map[string]models.DayStat{
		"2026-08-26": {SecondsPlayed: 1111},
	}
	record := &models.MemberRecord{
		DiscordID:    "d1",
		BungieID:     "100",
		GameActivity: original,
	}

	err := engine.ReconcileActivity(context.Background(), record, day("2026-08-26"), day("2026-08-29"))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, original, record.GameActivity)
}

func TestReconcileAggregatesSessionsIntoDayStat(t *testing.T) {
	now := day("2026-08-28")
	fetcher := &stubFetcher{sessions: map[string][]PlaySession{
		"2026-08-28": {
			sessionWith("200"),
			sessionWith("200"),
		},
	}}
	engine := testEngine(t, fetcher, now)

	record := &models.MemberRecord{
		DiscordID:    "d1",
		BungieID:     "100",
		GameActivity: map[string]models.DayStat{},
	}

	err := engine.ReconcileActivity(context.Background(), record, day("2026-08-28"), day("2026-08-29"))
	require.NoError(t, err)

	stat := record.GameActivity["2026-08-28"]
	assert.Equal(t, int64(1200), stat.SecondsPlayed)
	// Weight sums per session; the unique set is unioned across the day.
	assert.Equal(t, 2.0, stat.ClanMembersPlayedWith)
	assert.Equal(t, int64(1), stat.UniqueClanMembersPlayedWith)
}
