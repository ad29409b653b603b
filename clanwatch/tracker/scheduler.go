package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/utils"
	"golang.org/x/sync/semaphore"
)

// ClanRef names one clan the scheduler keeps a roster for.
type ClanRef struct {
	ID   int64  `toml:"id"`
	Name string `toml:"name"`
}

// SchedulerConfig holds the periods of the recurring cycles. Periods are
// configuration, not structure: the reference deployment refreshes rosters
// and names hourly and activity daily.
type SchedulerConfig struct {
	Clans            []ClanRef
	RosterInterval   time.Duration
	NameInterval     time.Duration
	ActivityInterval time.Duration
	Workers          int64
	UpdateTimeout    time.Duration
}

// Scheduler drives the recurring refresh cycles: roster, display names,
// and per-member activity aggregation. Within the activity cycle a bounded
// worker pool processes members concurrently; a fault in one member is
// logged and never aborts the batch.
type Scheduler struct {
	service *Service
	roster  *RosterCache
	chat    ChatStatsProvider
	cfg     SchedulerConfig
	bpm     *utils.BackgroundProcessManager
}

func NewScheduler(service *Service, roster *RosterCache, chat ChatStatsProvider, cfg SchedulerConfig) *Scheduler {
	if cfg.RosterInterval <= 0 {
		cfg.RosterInterval = time.Hour
	}
	if cfg.NameInterval <= 0 {
		cfg.NameInterval = time.Hour
	}
	if cfg.ActivityInterval <= 0 {
		cfg.ActivityInterval = 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = 15 * time.Minute
	}

	return &Scheduler{
		service: service,
		roster:  roster,
		chat:    chat,
		cfg:     cfg,
		bpm:     utils.NewBackgroundProcessManager(),
	}
}

// Start launches the three periodic cycles. Each runs once immediately,
// then on its own ticker.
func (s *Scheduler) Start() {
	s.bpm.StartProcess("roster-refresh", "periodic clan roster snapshot and eviction reconciliation",
		func(ctx context.Context) {
			s.runPeriodic(ctx, s.cfg.RosterInterval, s.RunRosterRefresh)
		})

	s.bpm.StartProcess("name-refresh", "periodic display name reconciliation",
		func(ctx context.Context) {
			s.runPeriodic(ctx, s.cfg.NameInterval, s.RunNameRefresh)
		})

	s.bpm.StartProcess("activity-refresh", "periodic per-member activity aggregation",
		func(ctx context.Context) {
			s.runPeriodic(ctx, s.cfg.ActivityInterval, s.RunActivityRefresh)
		})
}

// Shutdown stops the cycles, letting in-flight member updates finish or
// abort cleanly.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	return s.bpm.Shutdown(timeout)
}

func (s *Scheduler) runPeriodic(ctx context.Context, interval time.Duration, run func(context.Context)) {
	run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunRosterRefresh rebuilds every configured clan's snapshot, then
// reconciles: records whose game account is absent from every current
// roster are evicted. A failed clan refresh keeps its stale snapshot and
// is reported, not fatal.
func (s *Scheduler) RunRosterRefresh(ctx context.Context) {
	start := time.Now()
	refreshed := 0

	for _, clan := range s.cfg.Clans {
		if _, err := s.roster.Refresh(ctx, clan.ID, clan.Name); err != nil {
			slog.Error("Clan roster refresh failed, keeping stale snapshot",
				slog.String("type", "sys"),
				slog.Int64("clan_id", clan.ID),
				slog.String("clan_name", clan.Name),
				slog.Any("error", err))
			continue
		}
		refreshed++
	}

	// Only reconcile when every roster refreshed; evicting against a
	// partially-failed refresh would delete members that merely failed
	// to load.
	if refreshed == len(s.cfg.Clans) && refreshed > 0 {
		evicted, err := s.service.EvictAbsent(ctx)
		if err != nil {
			slog.Error("Eviction reconciliation failed",
				slog.String("type", "sys"),
				slog.Any("error", err))
		} else if evicted > 0 {
			slog.Info("Eviction reconciliation complete",
				slog.String("type", "sys"),
				slog.Int("evicted", evicted))
		}
	}

	slog.Info("Roster refresh cycle complete",
		slog.String("type", "sys"),
		slog.Int("refreshed", refreshed),
		slog.Int("clans", len(s.cfg.Clans)),
		slog.Duration("took", time.Since(start)))
}

// RunNameRefresh reconciles mutable display names against the chat
// platform. Identity fields are never touched.
func (s *Scheduler) RunNameRefresh(ctx context.Context) {
	if s.chat == nil {
		return
	}

	records, err := s.service.members.GetAll(ctx)
	if err != nil {
		slog.Error("Name refresh failed to list members",
			slog.String("type", "sys"),
			slog.Any("error", err))
		return
	}

	updated := 0
	for _, record := range records {
		displayName, err := s.chat.DisplayName(ctx, record.DiscordID)
		if err != nil || displayName == "" || displayName == record.DiscordName {
			continue
		}

		if err := s.service.members.UpdateNames(ctx, record.BungieID, displayName, record.BungieName); err != nil {
			slog.Warn("Failed to update member names",
				slog.String("type", "db"),
				slog.String("bungie_id", record.BungieID),
				slog.Any("error", err))
			continue
		}
		updated++
	}

	slog.Info("Name refresh cycle complete",
		slog.String("type", "sys"),
		slog.Int("updated", updated),
		slog.Int("members", len(records)))
}

// RunActivityRefresh runs the per-member aggregation over a bounded
// worker pool. Each record is persisted immediately after its own update
// completes, so a crash mid-cycle loses at most the in-flight member.
func (s *Scheduler) RunActivityRefresh(ctx context.Context) {
	start := time.Now()

	records, err := s.service.members.GetAll(ctx)
	if err != nil {
		slog.Error("Activity refresh failed to list members",
			slog.String("type", "sys"),
			slog.Any("error", err))
		return
	}

	var chatStats map[string]ChatStats
	if s.chat != nil {
		windowStart, _ := s.service.Window()
		stats, err := s.chat.GuildStats(ctx, windowStart)
		if err != nil {
			slog.Warn("Chat stats collection failed, keeping stored values",
				slog.String("type", "sys"),
				slog.Any("error", err))
		} else {
			chatStats = stats
		}
	}

	sem := semaphore.NewWeighted(s.cfg.Workers)
	var wg sync.WaitGroup
	var failed int64
	var failedMu sync.Mutex

	for _, record := range records {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		record := record
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Member update panic",
						slog.String("type", "sys"),
						slog.String("bungie_id", record.BungieID),
						slog.Any("panic", r))
				}
			}()

			updateCtx, cancel := context.WithTimeout(ctx, s.cfg.UpdateTimeout)
			defer cancel()

			if err := s.service.UpdateMember(updateCtx, record, chatForMember(chatStats, record.DiscordID)); err != nil {
				failedMu.Lock()
				failed++
				failedMu.Unlock()

				switch {
				case IsCorruptRecord(err):
					slog.Warn("Skipping unreadable member record",
						slog.String("type", "sys"),
						slog.String("bungie_id", record.BungieID),
						slog.Any("error", err))
				case IsTransient(err):
					slog.Warn("Member refresh failed, will retry next cycle",
						slog.String("type", "sys"),
						slog.String("bungie_id", record.BungieID),
						slog.Any("error", err))
				default:
					slog.Error("Member refresh failed",
						slog.String("type", "sys"),
						slog.String("bungie_id", record.BungieID),
						slog.Any("error", err))
				}
				return
			}

			slog.Debug("Member refresh complete",
				slog.String("type", "sys"),
				slog.String("bungie_id", record.BungieID),
				slog.String("bungie_name", record.BungieName))
		}()
	}

	wg.Wait()
	slog.Info("Activity refresh cycle complete",
		slog.String("type", "sys"),
		slog.Int("members", len(records)),
		slog.Int64("failed", failed),
		slog.Duration("took", time.Since(start)))
}
