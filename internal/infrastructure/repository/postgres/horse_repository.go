package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/turf-ingest/internal/domain/horse"
	qb "github.com/riskibarqy/turf-ingest/internal/platform/querybuilder"
)

type HorseRepository struct {
	db *sqlx.DB
}

func NewHorseRepository(db *sqlx.DB) *HorseRepository {
	return &HorseRepository{db: db}
}

// UpsertName takes the cheap path for horses known only by name, typically
// pedigree parents. An existing row is never modified.
func (r *HorseRepository) UpsertName(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("horse name is required")
	}

	query, args, err := qb.InsertModel("horses", horseNameInsertModel{Name: name},
		`ON CONFLICT (lower(name)) DO NOTHING
RETURNING id`)
	if err != nil {
		return 0, fmt.Errorf("build insert horse name query: %w", err)
	}

	var id int64
	err = r.db.GetContext(ctx, &id, query, args...)
	if err == nil {
		return id, nil
	}
	if !isNotFound(err) {
		return 0, fmt.Errorf("insert horse name=%s: %w", name, err)
	}

	// Conflict path: the row already exists, fetch its id.
	return r.idByName(ctx, name)
}

// UpsertProfile replaces the descriptive and pedigree columns outright when
// the name already exists. Results data is fresher than whatever the row
// held, so no coalescing here.
func (r *HorseRepository) UpsertProfile(ctx context.Context, item horse.Horse) (int64, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return 0, fmt.Errorf("horse name is required")
	}

	model := horseInsertModel{
		Name:       name,
		Country:    optionalString(item.Country),
		YearFoaled: item.YearFoaled,
		Sex:        optionalString(item.Sex),
		SireID:     item.SireID,
		DamID:      item.DamID,
		DamsireID:  item.DamsireID,
	}

	query, args, err := qb.InsertModel("horses", model, `ON CONFLICT (lower(name))
DO UPDATE SET
    country = EXCLUDED.country,
    year_foaled = EXCLUDED.year_foaled,
    sex = EXCLUDED.sex,
    sire_id = EXCLUDED.sire_id,
    dam_id = EXCLUDED.dam_id,
    damsire_id = EXCLUDED.damsire_id,
    updated_at = NOW()
RETURNING id`)
	if err != nil {
		return 0, fmt.Errorf("build upsert horse profile query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("upsert horse profile name=%s: %w", name, err)
	}
	return id, nil
}

func (r *HorseRepository) GetByName(ctx context.Context, name string) (horse.Horse, bool, error) {
	query, args, err := qb.Select("*").From("horses").
		Where(qb.Expr("lower(name) = lower(?)", strings.TrimSpace(name))).
		ToSQL()
	if err != nil {
		return horse.Horse{}, false, fmt.Errorf("build select horse by name query: %w", err)
	}

	var row horseTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return horse.Horse{}, false, nil
		}
		return horse.Horse{}, false, fmt.Errorf("select horse by name: %w", err)
	}

	out := horse.Horse{
		ID:         row.ID,
		Name:       row.Name,
		YearFoaled: row.YearFoaled,
		SireID:     row.SireID,
		DamID:      row.DamID,
		DamsireID:  row.DamsireID,
	}
	if row.Country != nil {
		out.Country = *row.Country
	}
	if row.Sex != nil {
		out.Sex = *row.Sex
	}
	return out, true, nil
}

func (r *HorseRepository) idByName(ctx context.Context, name string) (int64, error) {
	query, args, err := qb.Select("id").From("horses").
		Where(qb.Expr("lower(name) = lower(?)", name)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build select horse id query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("select horse id name=%s: %w", name, err)
	}
	return id, nil
}
