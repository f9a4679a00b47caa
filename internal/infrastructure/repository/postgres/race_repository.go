package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/turf-ingest/internal/domain/race"
	qb "github.com/riskibarqy/turf-ingest/internal/platform/querybuilder"
)

type RaceRepository struct {
	db *sqlx.DB
}

func NewRaceRepository(db *sqlx.DB) *RaceRepository {
	return &RaceRepository{db: db}
}

// UpsertMeetingCard writes one meeting's races and entries in a single
// transaction so a mid-card failure cannot leave a half-written meeting.
func (r *RaceRepository) UpsertMeetingCard(ctx context.Context, card []race.CardRace) (int, int, error) {
	if len(card) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx upsert meeting card: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	racesUpserted := 0
	entriesUpserted := 0
	for _, item := range card {
		raceID, err := upsertRace(ctx, tx, item.Race)
		if err != nil {
			return 0, 0, err
		}
		racesUpserted++

		for _, entry := range item.Entries {
			entry.RaceID = raceID
			if err := upsertEntry(ctx, tx, entry); err != nil {
				return 0, 0, err
			}
			entriesUpserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit upsert meeting card tx: %w", err)
	}
	return racesUpserted, entriesUpserted, nil
}

const raceUpsertClause = `ON CONFLICT (race_date, track_name, race_number)
DO UPDATE SET
    country = EXCLUDED.country,
    distance_meters = EXCLUDED.distance_meters,
    going = EXCLUDED.going,
    class = EXCLUDED.class,
    updated_at = NOW()
RETURNING id`

const entryUpsertClause = `ON CONFLICT (race_id, horse_id)
DO UPDATE SET
    trainer_id = COALESCE(EXCLUDED.trainer_id, entries.trainer_id),
    jockey_id = COALESCE(EXCLUDED.jockey_id, entries.jockey_id),
    barrier = COALESCE(EXCLUDED.barrier, entries.barrier),
    weight_kg = COALESCE(EXCLUDED.weight_kg, entries.weight_kg),
    finishing_pos = COALESCE(EXCLUDED.finishing_pos, entries.finishing_pos),
    margin_lengths = COALESCE(EXCLUDED.margin_lengths, entries.margin_lengths),
    starting_price = COALESCE(EXCLUDED.starting_price, entries.starting_price),
    exchange_sp = COALESCE(EXCLUDED.exchange_sp, entries.exchange_sp),
    updated_at = NOW()`

func buildUpsertRaceQuery(item race.Race) (string, []any, error) {
	model := raceInsertModel{
		RaceDate:       item.Date,
		TrackName:      item.TrackName,
		RaceNumber:     item.RaceNumber,
		Country:        optionalString(item.Country),
		DistanceMeters: item.DistanceMeters,
		Going:          optionalString(item.Going),
		Class:          optionalString(item.Class),
	}
	return qb.InsertModel("races", model, raceUpsertClause)
}

func buildUpsertEntryQuery(entry race.Entry) (string, []any, error) {
	model := entryInsertModel{
		RaceID:        entry.RaceID,
		HorseID:       entry.HorseID,
		TrainerID:     entry.TrainerID,
		JockeyID:      entry.JockeyID,
		Barrier:       entry.Barrier,
		WeightKg:      entry.WeightKg,
		FinishingPos:  entry.FinishingPos,
		MarginLengths: entry.MarginLengths,
		StartingPrice: entry.StartingPrice,
		ExchangeSP:    entry.ExchangeSP,
	}
	return qb.InsertModel("entries", model, entryUpsertClause)
}

// upsertRace keys on (race_date, track_name, race_number) and replaces the
// descriptive columns; reprocessing a day refreshes distance, going and
// class from the latest payload.
func upsertRace(ctx context.Context, tx *sqlx.Tx, item race.Race) (int64, error) {
	query, args, err := buildUpsertRaceQuery(item)
	if err != nil {
		return 0, fmt.Errorf("build upsert race query: %w", err)
	}

	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("upsert race track=%s number=%d: %w", item.TrackName, item.RaceNumber, err)
	}
	return id, nil
}

// upsertEntry merges by coalesce on (race_id, horse_id): a column already
// captured from an earlier payload survives when the incoming value is
// null. The schedule's barrier outlives a result payload that omits it.
func upsertEntry(ctx context.Context, tx *sqlx.Tx, entry race.Entry) error {
	query, args, err := buildUpsertEntryQuery(entry)
	if err != nil {
		return fmt.Errorf("build upsert entry query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert entry race_id=%d horse_id=%d: %w", entry.RaceID, entry.HorseID, err)
	}
	return nil
}

func (r *RaceRepository) CountByDate(ctx context.Context, date string) (int, int, error) {
	raceQuery, raceArgs, err := qb.Select("COUNT(*)").From("races").
		Where(qb.Eq("race_date", date)).
		ToSQL()
	if err != nil {
		return 0, 0, fmt.Errorf("build count races query: %w", err)
	}

	var races int
	if err := r.db.GetContext(ctx, &races, raceQuery, raceArgs...); err != nil {
		return 0, 0, fmt.Errorf("count races date=%s: %w", date, err)
	}

	entryQuery, entryArgs, err := qb.Select("COUNT(*)").
		From("entries e JOIN races r ON r.id = e.race_id").
		Where(qb.Eq("r.race_date", date)).
		ToSQL()
	if err != nil {
		return 0, 0, fmt.Errorf("build count entries query: %w", err)
	}

	var entries int
	if err := r.db.GetContext(ctx, &entries, entryQuery, entryArgs...); err != nil {
		return 0, 0, fmt.Errorf("count entries date=%s: %w", date, err)
	}

	return races, entries, nil
}
