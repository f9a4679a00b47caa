package race

import "context"

type Repository interface {
	// UpsertMeetingCard persists one meeting's races and entries inside a
	// single transaction. A failure rolls back only this meeting's writes.
	UpsertMeetingCard(ctx context.Context, card []CardRace) (racesUpserted, entriesUpserted int, err error)
	// CountByDate reports persisted race and entry rows for one day; used
	// by idempotence checks and the day report.
	CountByDate(ctx context.Context, date string) (races, entries int, err error)
}
