package repositories

import (
	"context"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/uptrace/bun"
)

type RosterRepository interface {
	Upsert(ctx context.Context, roster *models.ClanRoster) error
	GetByClanID(ctx context.Context, clanID int64) (*models.ClanRoster, error)
	GetAll(ctx context.Context) ([]*models.ClanRoster, error)
}

type rosterRepository struct {
	*BaseRepository
}

func NewRosterRepository(db *bun.DB) RosterRepository {
	return &rosterRepository{BaseRepository: NewBaseRepository(db)}
}

// Upsert replaces the stored snapshot for the roster's clan wholesale.
func (r *rosterRepository) Upsert(ctx context.Context, roster *models.ClanRoster) error {
	roster.LastUpdated = time.Now()
	_, err := r.GetDB().NewInsert().
		Model(roster).
		On("CONFLICT (clan_id) DO UPDATE").
		Set("clan_name = EXCLUDED.clan_name").
		Set("members = EXCLUDED.members").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	return r.HandleErrorWithID("upsert", "clan_roster", roster.ClanID, err)
}

func (r *rosterRepository) GetByClanID(ctx context.Context, clanID int64) (*models.ClanRoster, error) {
	roster := new(models.ClanRoster)
	err := r.GetDB().NewSelect().
		Model(roster).
		Where("clan_id = ?", clanID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "clan_roster", clanID, err)
	}
	return roster, nil
}

func (r *rosterRepository) GetAll(ctx context.Context) ([]*models.ClanRoster, error) {
	var rosters []*models.ClanRoster
	err := r.GetDB().NewSelect().
		Model(&rosters).
		Order("clan_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get_all", "clan_roster", err)
	}
	return rosters, nil
}
