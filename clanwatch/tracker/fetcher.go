package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/bungie"
	lru "github.com/hashicorp/golang-lru"
)

const (
	activityPageSize = 25
	profileCacheSize = 512
)

// Platform variants probed in priority order when resolving which
// membership type an account is active on.
var profileTypeProbeOrder = []int{3, 2, 1, 5}

// errProfileUnavailable means no probed platform produced a profile. The
// day is reported as a well-formed zero result, matching the privacy case.
var errProfileUnavailable = errors.New("no resolvable profile on any platform")

// PlaySession is one recorded game session attributed to a single UTC day.
type PlaySession struct {
	InstanceID    string
	Period        time.Time
	SecondsPlayed int64
	Participants  []bungie.UserInfo
}

type resolvedProfile struct {
	memberType   int
	characterIDs []string
}

// ActivityFetcher resolves a member's play sessions for one calendar day
// from the paginated remote history. Profile resolution is memoized per
// member and invalidated at the start of each update cycle, so a window's
// worth of day fetches probes the platform list once.
type ActivityFetcher struct {
	api      BungieAPI
	profiles *lru.Cache
}

func NewActivityFetcher(api BungieAPI) *ActivityFetcher {
	cache, _ := lru.New(profileCacheSize)
	return &ActivityFetcher{
		api:      api,
		profiles: cache,
	}
}

// InvalidateProfile drops the memoized platform resolution for a member.
func (f *ActivityFetcher) InvalidateProfile(bungieID string) {
	f.profiles.Remove(bungieID)
}

func (f *ActivityFetcher) resolveProfile(ctx context.Context, bungieID string) (*resolvedProfile, error) {
	if cached, ok := f.profiles.Get(bungieID); ok {
		return cached.(*resolvedProfile), nil
	}

	for _, memberType := range profileTypeProbeOrder {
		profile, err := f.api.GetProfile(ctx, memberType, bungieID)
		if err != nil {
			if bungie.IsPrivacyRestricted(err) {
				return nil, err
			}
			if bungie.IsTransient(err) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			// Account does not exist on this platform, keep probing.
			continue
		}

		resolved := &resolvedProfile{
			memberType:   memberType,
			characterIDs: profile.CharacterIDs,
		}
		f.profiles.Add(bungieID, resolved)
		return resolved, nil
	}

	return nil, errProfileUnavailable
}

// FetchDay resolves all of a member's play sessions whose date equals the
// target UTC day. A privacy-restricted profile yields an empty result,
// not an error. Pagination within the day is sequential: page N+1 is only
// requested once page N neither emptied nor crossed behind the target day.
func (f *ActivityFetcher) FetchDay(ctx context.Context, bungieID string, day time.Time) ([]PlaySession, error) {
	target := day.UTC().Truncate(24 * time.Hour)

	profile, err := f.resolveProfile(ctx, bungieID)
	if err != nil {
		if bungie.IsPrivacyRestricted(err) || errors.Is(err, errProfileUnavailable) {
			slog.Debug("Profile unavailable, recording empty day",
				slog.String("type", "api"),
				slog.String("bungie_id", bungieID),
				slog.String("day", target.Format("2006-01-02")))
			return []PlaySession{}, nil
		}
		return nil, fmt.Errorf("failed to resolve profile for %s: %w", bungieID, err)
	}

	var sessions []PlaySession
	for _, characterID := range profile.characterIDs {
		characterSessions, err := f.fetchCharacterDay(ctx, profile.memberType, bungieID, characterID, target)
		if err != nil {
			if bungie.IsPrivacyRestricted(err) {
				// Privacy gate on the history endpoint zeroes the
				// whole day, matching a private profile.
				return []PlaySession{}, nil
			}
			return nil, err
		}
		sessions = append(sessions, characterSessions...)
	}
	return sessions, nil
}

func (f *ActivityFetcher) fetchCharacterDay(ctx context.Context, memberType int, bungieID, characterID string, target time.Time) ([]PlaySession, error) {
	var sessions []PlaySession

	for page := 0; ; page++ {
		entries, err := f.api.GetActivityHistory(ctx, memberType, bungieID, characterID, activityPageSize, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch activity page %d: %w", page, err)
		}
		if len(entries) == 0 {
			return sessions, nil
		}

		for _, entry := range entries {
			entryDay := entry.Period.UTC().Truncate(24 * time.Hour)

			// Sessions arrive newest first: anything older than the
			// target day terminates the scan.
			if entryDay.Before(target) {
				return sessions, nil
			}
			if !entryDay.Equal(target) {
				continue
			}

			session := PlaySession{
				InstanceID:    entry.Details.InstanceID,
				Period:        entry.Period,
				SecondsPlayed: int64(entry.Values.TimePlayedSeconds.Basic.Value),
			}

			report, err := f.api.GetPostGameCarnageReport(ctx, entry.Details.InstanceID)
			if err != nil {
				if !bungie.IsPrivacyRestricted(err) {
					return nil, fmt.Errorf("failed to fetch session report %s: %w", entry.Details.InstanceID, err)
				}
				// Session still counts for time played even when its
				// participant report is gated.
			} else {
				for _, reportEntry := range report.Entries {
					session.Participants = append(session.Participants, reportEntry.Player.DestinyUserInfo)
				}
			}

			sessions = append(sessions, session)
		}
	}
}
