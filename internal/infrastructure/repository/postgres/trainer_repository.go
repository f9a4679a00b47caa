package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	qb "github.com/riskibarqy/turf-ingest/internal/platform/querybuilder"
)

type TrainerRepository struct {
	db *sqlx.DB
}

func NewTrainerRepository(db *sqlx.DB) *TrainerRepository {
	return &TrainerRepository{db: db}
}

func (r *TrainerRepository) UpsertNames(ctx context.Context, names []string) (map[string]int64, error) {
	out, err := upsertNamedRows(ctx, r.db, "trainers", names)
	if err != nil {
		return nil, fmt.Errorf("upsert trainers: %w", err)
	}
	return out, nil
}

type nameInsertModel struct {
	Name string `db:"name"`
}

// upsertNamedRows handles the name-only entity tables. Existing rows are
// never touched; only unseen names insert.
func upsertNamedRows(ctx context.Context, db *sqlx.DB, table string, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx upsert %s: %w", table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, name := range names {
		query, args, err := qb.InsertModel(table, nameInsertModel{Name: name},
			`ON CONFLICT (lower(name)) DO NOTHING
RETURNING id`)
		if err != nil {
			return nil, fmt.Errorf("build insert %s query: %w", table, err)
		}

		var id int64
		err = tx.GetContext(ctx, &id, query, args...)
		if isNotFound(err) {
			id, err = selectIDByName(ctx, tx, table, name)
		}
		if err != nil {
			return nil, fmt.Errorf("upsert %s name=%s: %w", table, name, err)
		}
		out[lowerKey(name)] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert %s tx: %w", table, err)
	}
	return out, nil
}

func selectIDByName(ctx context.Context, tx *sqlx.Tx, table, name string) (int64, error) {
	query, args, err := qb.Select("id").From(table).
		Where(qb.Expr("lower(name) = lower(?)", name)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build select %s id query: %w", table, err)
	}

	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		return 0, err
	}
	return id, nil
}
