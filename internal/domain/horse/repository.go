package horse

import "context"

type Repository interface {
	// UpsertName inserts the horse if its name is unseen and returns the
	// canonical row ID either way.
	UpsertName(ctx context.Context, name string) (int64, error)
	// UpsertProfile upserts by name and, on conflict, replaces the
	// descriptive and pedigree columns with the incoming values.
	UpsertProfile(ctx context.Context, item Horse) (int64, error)
	GetByName(ctx context.Context, name string) (Horse, bool, error)
}
