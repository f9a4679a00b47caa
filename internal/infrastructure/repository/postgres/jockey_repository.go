package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type JockeyRepository struct {
	db *sqlx.DB
}

func NewJockeyRepository(db *sqlx.DB) *JockeyRepository {
	return &JockeyRepository{db: db}
}

func (r *JockeyRepository) UpsertNames(ctx context.Context, names []string) (map[string]int64, error) {
	out, err := upsertNamedRows(ctx, r.db, "jockeys", names)
	if err != nil {
		return nil, fmt.Errorf("upsert jockeys: %w", err)
	}
	return out, nil
}
