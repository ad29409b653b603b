package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"golang.org/x/sync/errgroup"
)

const defaultMaxConcurrentDays = 4

// DayFetcher is the slice of the remote fetcher the merge logic depends
// on, injectable in tests.
type DayFetcher interface {
	FetchDay(ctx context.Context, bungieID string, day time.Time) ([]PlaySession, error)
}

// Engine owns the day-bucket merge logic: it decides which calendar days
// of the reporting window must be fetched and aggregates sessions into
// immutable DayStat buckets.
type Engine struct {
	fetcher           DayFetcher
	resolver          *CoParticipantResolver
	maxConcurrentDays int

	// now is replaceable in tests; everything is computed in UTC days.
	now func() time.Time
}

func NewEngine(fetcher DayFetcher, resolver *CoParticipantResolver) *Engine {
	return &Engine{
		fetcher:           fetcher,
		resolver:          resolver,
		maxConcurrentDays: defaultMaxConcurrentDays,
		now:               time.Now,
	}
}

func (e *Engine) today() time.Time {
	return e.now().UTC().Truncate(24 * time.Hour)
}

// ReconcileActivity rebuilds the record's game_activity map for every day
// in [windowStart, windowEnd). Days before today that are already cached
// are reused verbatim without a network call; missing days and today are
// fetched. Days outside the window fall away, which is the only pruning
// path. On any fetch failure the record is left untouched.
func (e *Engine) ReconcileActivity(ctx context.Context, record *models.MemberRecord, windowStart, windowEnd time.Time) error {
	today := e.today()
	start := windowStart.UTC().Truncate(24 * time.Hour)
	end := windowEnd.UTC().Truncate(24 * time.Hour)

	fresh := make(map[string]models.DayStat)
	var toFetch []time.Time

	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := models.DayKey(day)
		if day.Before(today) {
			if cached, ok := record.GameActivity[key]; ok {
				fresh[key] = cached
				continue
			}
		}
		// Today's bucket is provisional and recomputed every cycle.
		toFetch = append(toFetch, day)
	}

	if len(toFetch) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.maxConcurrentDays)

		for _, day := range toFetch {
			day := day
			g.Go(func() error {
				sessions, err := e.fetcher.FetchDay(gctx, record.BungieID, day)
				if err != nil {
					return &TransientError{
						Op:  fmt.Sprintf("day fetch %s for %s", models.DayKey(day), record.BungieID),
						Err: err,
					}
				}

				stat := e.aggregateDay(sessions, record.BungieID)
				mu.Lock()
				fresh[models.DayKey(day)] = stat
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	record.GameActivity = fresh
	return nil
}

// aggregateDay folds one day's sessions into a DayStat. The clan weight
// is summed per session with the cap applied, while unique teammates are
// unioned across the whole day.
func (e *Engine) aggregateDay(sessions []PlaySession, selfID string) models.DayStat {
	var stat models.DayStat
	uniqueIDs := make(map[string]struct{})

	for _, session := range sessions {
		stat.SecondsPlayed += session.SecondsPlayed

		weight, sessionUnique := e.resolver.Resolve(session, selfID)
		stat.ClanMembersPlayedWith += weight
		for id := range sessionUnique {
			uniqueIDs[id] = struct{}{}
		}
	}

	stat.UniqueClanMembersPlayedWith = int64(len(uniqueIDs))
	return stat
}
