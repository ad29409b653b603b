package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/clanwatchbot/clanwatch/clanwatch/database/repositories"
	"github.com/sahilm/fuzzy"
)

// ChatStats carries one member's rolling-window chat activity. The values
// fully replace the stored ones on each refresh.
type ChatStats struct {
	ChatEvents      int64
	CharactersTyped int64
	VoiceMinutes    int64
}

// ChatStatsProvider is the chat-platform collaborator boundary.
type ChatStatsProvider interface {
	GuildStats(ctx context.Context, since time.Time) (map[string]ChatStats, error)
	DisplayName(ctx context.Context, discordID string) (string, error)
}

// memberLocks hands out one mutex per game account so a record is only
// ever updated, or evicted, by a single goroutine at a time.
type memberLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemberLocks() *memberLocks {
	return &memberLocks{locks: make(map[string]*sync.Mutex)}
}

func (ml *memberLocks) acquire(bungieID string) *sync.Mutex {
	ml.mu.Lock()
	lock, ok := ml.locks[bungieID]
	if !ok {
		lock = &sync.Mutex{}
		ml.locks[bungieID] = lock
	}
	ml.mu.Unlock()

	lock.Lock()
	return lock
}

// Service is the surface the command layer talks to: registration,
// reporting, refresh, and the per-member update used by the scheduler.
type Service struct {
	api        BungieAPI
	members    repositories.MemberRepository
	roster     *RosterCache
	engine     *Engine
	fetcher    *ActivityFetcher
	chat       ChatStatsProvider
	locks      *memberLocks
	windowDays int
}

func NewService(api BungieAPI, members repositories.MemberRepository, roster *RosterCache, engine *Engine, fetcher *ActivityFetcher, chat ChatStatsProvider, windowDays int) *Service {
	if windowDays <= 0 {
		windowDays = 14
	}
	return &Service{
		api:        api,
		members:    members,
		roster:     roster,
		engine:     engine,
		fetcher:    fetcher,
		chat:       chat,
		locks:      newMemberLocks(),
		windowDays: windowDays,
	}
}

// RegisterMember creates the long-lived record for a chat/game identity
// pair. Registration is idempotent in the rejecting sense: a duplicate for
// either identity fails with ErrAlreadyRegistered and never overwrites the
// existing record. The game account must be present in a cached roster.
func (s *Service) RegisterMember(ctx context.Context, discordID, discordName, bungieID string) (*models.MemberRecord, error) {
	inRoster, rosterMember := s.roster.IsMember(bungieID)
	if !inRoster {
		return nil, ErrNotInRoster
	}

	if _, err := s.members.GetByDiscordID(ctx, discordID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if _, err := s.members.GetByBungieID(ctx, bungieID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}

	bungieName := rosterMember.DisplayName
	var clanID int64
	var clanName string

	for _, memberType := range profileTypeProbeOrder {
		profile, err := s.api.GetProfile(ctx, memberType, bungieID)
		if err != nil {
			continue
		}
		if profile.UserInfo.DisplayName != "" {
			bungieName = profile.UserInfo.DisplayName
		}

		groups, err := s.api.GetGroupsForMember(ctx, memberType, bungieID)
		if err == nil && len(groups) > 0 {
			clanName = groups[0].Name
			if id, parseErr := strconv.ParseInt(groups[0].GroupID, 10, 64); parseErr == nil {
				clanID = id
			}
		}
		break
	}

	record := &models.MemberRecord{
		DiscordID:    discordID,
		BungieID:     bungieID,
		DiscordName:  discordName,
		BungieName:   bungieName,
		ClanID:       clanID,
		ClanName:     clanName,
		GameActivity: make(map[string]models.DayStat),
		StatusTier:   models.TierInactive,
	}

	if err := s.members.Create(ctx, record); err != nil {
		if repositories.IsConflict(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create member record: %w", err)
	}

	slog.Info("Member registered",
		slog.String("type", "sys"),
		slog.String("discord_id", discordID),
		slog.String("bungie_id", bungieID),
		slog.String("bungie_name", bungieName))
	return record, nil
}

// GetReport resolves a member record by chat id, game id, or display name.
// Name lookups are fuzzy-matched over both stored names.
func (s *Service) GetReport(ctx context.Context, query string) (*models.MemberRecord, error) {
	if record, err := s.members.GetByDiscordID(ctx, query); err == nil {
		return record, nil
	}
	if record, err := s.members.GetByBungieID(ctx, query); err == nil {
		return record, nil
	}

	records, err := s.members.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	names := make([]string, 0, len(records)*2)
	byName := make(map[int]*models.MemberRecord, len(records)*2)
	for _, record := range records {
		byName[len(names)] = record
		names = append(names, record.DiscordName)
		byName[len(names)] = record
		names = append(names, record.BungieName)
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return nil, ErrNotRegistered
	}
	return byName[matches[0].Index], nil
}

// Window returns the current reporting window [start, end): the trailing
// windowDays fully-elapsed days plus the provisional today bucket.
func (s *Service) Window() (time.Time, time.Time) {
	today := s.engine.today()
	end := today.AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -(s.windowDays + 1))
	return start, end
}

// UpdateMember runs one member's full refresh: replace chat stats,
// reconcile the day buckets, recompute the score, persist. The record is
// exclusively owned by this call for its duration. chat may be nil when
// the chat-platform pass failed, in which case the stored values stand.
func (s *Service) UpdateMember(ctx context.Context, record *models.MemberRecord, chat *ChatStats) error {
	lock := s.locks.acquire(record.BungieID)
	defer lock.Unlock()

	if err := record.Validate(); err != nil {
		if flagErr := s.members.MarkFlagged(ctx, record.BungieID); flagErr != nil {
			slog.Error("Failed to flag corrupt record",
				slog.String("type", "db"),
				slog.String("bungie_id", record.BungieID),
				slog.Any("error", flagErr))
		}
		return &CorruptRecordError{BungieID: record.BungieID, Err: err}
	}

	if chat != nil {
		record.ChatEvents = chat.ChatEvents
		record.CharactersTyped = chat.CharactersTyped
		record.VoiceMinutes = chat.VoiceMinutes
	}

	if s.fetcher != nil {
		s.fetcher.InvalidateProfile(record.BungieID)
	}

	windowStart, windowEnd := s.Window()
	if err := s.engine.ReconcileActivity(ctx, record, windowStart, windowEnd); err != nil {
		return err
	}

	record.ActivityScore, record.StatusTier = CalculateScore(record.GameActivity, record.ChatEvents, record.CharactersTyped)

	if err := s.members.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to persist member record: %w", err)
	}
	return nil
}

// ForceRefresh refreshes one member resolved from query, or every member
// when query is empty. Per-member faults are logged, never escalated.
func (s *Service) ForceRefresh(ctx context.Context, query string) error {
	var chatStats map[string]ChatStats
	if s.chat != nil {
		windowStart, _ := s.Window()
		stats, err := s.chat.GuildStats(ctx, windowStart)
		if err != nil {
			slog.Warn("Chat stats collection failed, keeping stored values",
				slog.String("type", "sys"),
				slog.Any("error", err))
		} else {
			chatStats = stats
		}
	}

	if query != "" {
		record, err := s.GetReport(ctx, query)
		if err != nil {
			return err
		}
		return s.UpdateMember(ctx, record, chatForMember(chatStats, record.DiscordID))
	}

	records, err := s.members.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	for _, record := range records {
		if err := s.UpdateMember(ctx, record, chatForMember(chatStats, record.DiscordID)); err != nil {
			slog.Warn("Member refresh failed",
				slog.String("type", "sys"),
				slog.String("bungie_id", record.BungieID),
				slog.Any("error", err))
		}
	}
	return nil
}

func chatForMember(stats map[string]ChatStats, discordID string) *ChatStats {
	if stats == nil {
		return nil
	}
	// A member with no messages in the window genuinely has zero stats.
	memberStats := stats[discordID]
	return &memberStats
}

// RosterCounts exposes per-clan member counts for the command layer.
func (s *Service) RosterCounts() map[string]int {
	return s.roster.Counts()
}

// EvictAbsent deletes exactly those records whose game account is no
// longer present in any cached roster. It takes the per-member lock so a
// delete never races an in-flight update of the same record.
func (s *Service) EvictAbsent(ctx context.Context) (int, error) {
	union := s.roster.Union()
	if len(union) == 0 {
		// Every roster snapshot being empty means refreshes failed;
		// evicting everyone on that signal would be destructive.
		slog.Warn("Skipping eviction, no roster data cached",
			slog.String("type", "sys"))
		return 0, nil
	}

	records, err := s.members.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list members: %w", err)
	}

	evicted := 0
	for _, record := range records {
		if _, present := union[record.BungieID]; present {
			continue
		}

		lock := s.locks.acquire(record.BungieID)
		err := s.members.DeleteByBungieID(ctx, record.BungieID)
		lock.Unlock()
		if err != nil {
			slog.Error("Failed to evict member",
				slog.String("type", "db"),
				slog.String("bungie_id", record.BungieID),
				slog.Any("error", err))
			continue
		}

		evicted++
		slog.Info("Member evicted, absent from all rosters",
			slog.String("type", "sys"),
			slog.String("bungie_id", record.BungieID),
			slog.String("bungie_name", record.BungieName))
	}
	return evicted, nil
}
