package repositories

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/uptrace/bun"
)

type MemberRepository interface {
	Create(ctx context.Context, record *models.MemberRecord) error
	GetByDiscordID(ctx context.Context, discordID string) (*models.MemberRecord, error)
	GetByBungieID(ctx context.Context, bungieID string) (*models.MemberRecord, error)
	GetAll(ctx context.Context) ([]*models.MemberRecord, error)
	GetByClanID(ctx context.Context, clanID int64) ([]*models.MemberRecord, error)
	GetTopByScore(ctx context.Context, limit int) ([]*models.MemberRecord, error)
	Update(ctx context.Context, record *models.MemberRecord) error
	UpdateNames(ctx context.Context, bungieID, discordName, bungieName string) error
	MarkFlagged(ctx context.Context, bungieID string) error
	DeleteByBungieID(ctx context.Context, bungieID string) error
}

type memberRepository struct {
	*BaseRepository
}

func NewMemberRepository(db *bun.DB) MemberRepository {
	return &memberRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *memberRepository) Create(ctx context.Context, record *models.MemberRecord) error {
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	if record.GameActivity == nil {
		record.GameActivity = make(map[string]models.DayStat)
	}

	_, err := r.GetDB().NewInsert().Model(record).Exec(ctx)
	if err != nil {
		// The unique constraints on discord_id and bungie_id back the
		// duplicate-registration rejection.
		if strings.Contains(err.Error(), "duplicate key") {
			return &ConflictError{Entity: "member_record", Field: "identity", Value: record.BungieID}
		}
		return r.HandleError("create", "member_record", err)
	}
	return nil
}

func (r *memberRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.MemberRecord, error) {
	record := new(models.MemberRecord)
	err := r.GetDB().NewSelect().
		Model(record).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "member_record", discordID, err)
	}
	return record, nil
}

func (r *memberRepository) GetByBungieID(ctx context.Context, bungieID string) (*models.MemberRecord, error) {
	record := new(models.MemberRecord)
	err := r.GetDB().NewSelect().
		Model(record).
		Where("bungie_id = ?", bungieID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "member_record", bungieID, err)
	}
	return record, nil
}

func (r *memberRepository) GetAll(ctx context.Context) ([]*models.MemberRecord, error) {
	var records []*models.MemberRecord
	err := r.GetDB().NewSelect().
		Model(&records).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get_all", "member_record", err)
	}
	return records, nil
}

func (r *memberRepository) GetByClanID(ctx context.Context, clanID int64) ([]*models.MemberRecord, error) {
	var records []*models.MemberRecord
	err := r.GetDB().NewSelect().
		Model(&records).
		Where("clan_id = ?", clanID).
		Order("activity_score DESC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get_by_clan", "member_record", err)
	}
	return records, nil
}

func (r *memberRepository) GetTopByScore(ctx context.Context, limit int) ([]*models.MemberRecord, error) {
	var records []*models.MemberRecord
	err := r.GetDB().NewSelect().
		Model(&records).
		OrderExpr("activity_score DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get_top", "member_record", err)
	}
	return records, nil
}

func (r *memberRepository) Update(ctx context.Context, record *models.MemberRecord) error {
	record.UpdatedAt = time.Now()
	_, err := r.GetDB().NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	return r.HandleErrorWithID("update", "member_record", record.BungieID, err)
}

func (r *memberRepository) UpdateNames(ctx context.Context, bungieID, discordName, bungieName string) error {
	_, err := r.GetDB().NewUpdate().
		Model((*models.MemberRecord)(nil)).
		Set("discord_name = ?", discordName).
		Set("bungie_name = ?", bungieName).
		Set("updated_at = ?", time.Now()).
		Where("bungie_id = ?", bungieID).
		Exec(ctx)
	return r.HandleErrorWithID("update_names", "member_record", bungieID, err)
}

func (r *memberRepository) MarkFlagged(ctx context.Context, bungieID string) error {
	_, err := r.GetDB().NewUpdate().
		Model((*models.MemberRecord)(nil)).
		Set("flagged_at = ?", time.Now()).
		Where("bungie_id = ?", bungieID).
		Exec(ctx)
	return r.HandleErrorWithID("mark_flagged", "member_record", bungieID, err)
}

func (r *memberRepository) DeleteByBungieID(ctx context.Context, bungieID string) error {
	res, err := r.GetDB().NewDelete().
		Model((*models.MemberRecord)(nil)).
		Where("bungie_id = ?", bungieID).
		Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("delete", "member_record", bungieID, err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		slog.Warn("Eviction delete matched no rows",
			slog.String("type", "db"),
			slog.String("bungie_id", bungieID))
	}
	return nil
}
