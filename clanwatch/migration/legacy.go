// Package migration imports member records from the legacy MongoDB
// deployment into Postgres. One-shot, run via the -import-legacy flag.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clanwatchbot/clanwatch/clanwatch/database/models"
	"github.com/clanwatchbot/clanwatch/clanwatch/tracker"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const batchSize = 100

// legacyMember mirrors the document shape of the old tracker's members
// collection.
type legacyMember struct {
	DiscordID       string                  `bson:"discord_id"`
	BungieID        string                  `bson:"bungie_id"`
	DiscordName     string                  `bson:"discord_name"`
	BungieName      string                  `bson:"bungie_name"`
	ClanID          int64                   `bson:"clan_id"`
	ClanName        string                  `bson:"clan_name"`
	ChatEvents      int64                   `bson:"chat_events"`
	CharactersTyped int64                   `bson:"characters_typed"`
	VoiceMinutes    int64                   `bson:"voice_minutes"`
	ActivityScore   int64                   `bson:"activity_score"`
	GameActivity    map[string]legacyDayRow `bson:"game_activity"`
}

type legacyDayRow struct {
	SecondsPlayed         int64   `bson:"seconds_played"`
	ClanMembersPlayedWith float64 `bson:"clan_members_played_with"`
	UniquePlayedWith      int64   `bson:"unique_clan_members_played_with"`
}

// Importer copies legacy member documents into the member_records table.
// Existing rows win: inserts use ON CONFLICT DO NOTHING so a re-run never
// clobbers records the new tracker already owns.
type Importer struct {
	mongoDB *mongo.Database
	pgDB    *bun.DB
}

// Connect opens the legacy Mongo deployment and returns a ready Importer.
func Connect(ctx context.Context, uri, dbName string, pgDB *bun.DB) (*Importer, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to legacy mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping legacy mongo: %w", err)
	}

	return &Importer{
		mongoDB: client.Database(dbName),
		pgDB:    pgDB,
	}, nil
}

func (i *Importer) Close(ctx context.Context) error {
	return i.mongoDB.Client().Disconnect(ctx)
}

// ImportMembers streams the legacy members collection into Postgres.
// Malformed documents are skipped and counted, never fatal.
func (i *Importer) ImportMembers(ctx context.Context) (imported, skipped int, err error) {
	cur, err := i.mongoDB.Collection("members").Find(ctx, bson.D{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query legacy members: %w", err)
	}
	defer cur.Close(ctx)

	start := time.Now()
	var batch []*models.MemberRecord

	for cur.Next(ctx) {
		var doc legacyMember
		if err := cur.Decode(&doc); err != nil {
			skipped++
			continue
		}

		record := convertMember(doc)
		if err := record.Validate(); err != nil {
			slog.Warn("Skipping malformed legacy member",
				slog.String("type", "sys"),
				slog.String("bungie_id", doc.BungieID),
				slog.Any("error", err))
			skipped++
			continue
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			n, err := i.insertBatch(ctx, batch)
			if err != nil {
				return imported, skipped, err
			}
			imported += n
			batch = batch[:0]
		}
	}
	if err := cur.Err(); err != nil {
		return imported, skipped, fmt.Errorf("legacy cursor failed: %w", err)
	}

	if len(batch) > 0 {
		n, err := i.insertBatch(ctx, batch)
		if err != nil {
			return imported, skipped, err
		}
		imported += n
	}

	slog.Info("Legacy import complete",
		slog.String("type", "sys"),
		slog.Int("imported", imported),
		slog.Int("skipped", skipped),
		slog.Duration("took", time.Since(start)))
	return imported, skipped, nil
}

func (i *Importer) insertBatch(ctx context.Context, batch []*models.MemberRecord) (int, error) {
	res, err := i.pgDB.NewInsert().
		Model(&batch).
		On("CONFLICT (bungie_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to insert legacy batch: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return len(batch), nil
	}
	return int(inserted), nil
}

func convertMember(doc legacyMember) *models.MemberRecord {
	activity := make(map[string]models.DayStat, len(doc.GameActivity))
	for day, row := range doc.GameActivity {
		activity[day] = models.DayStat{
			SecondsPlayed:               row.SecondsPlayed,
			ClanMembersPlayedWith:       row.ClanMembersPlayedWith,
			UniqueClanMembersPlayedWith: row.UniquePlayedWith,
		}
	}

	now := time.Now()
	return &models.MemberRecord{
		DiscordID:       doc.DiscordID,
		BungieID:        doc.BungieID,
		DiscordName:     doc.DiscordName,
		BungieName:      doc.BungieName,
		ClanID:          doc.ClanID,
		ClanName:        doc.ClanName,
		ChatEvents:      doc.ChatEvents,
		CharactersTyped: doc.CharactersTyped,
		VoiceMinutes:    doc.VoiceMinutes,
		ActivityScore:   doc.ActivityScore,
		StatusTier:      tracker.TierForScore(doc.ActivityScore),
		GameActivity:    activity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
