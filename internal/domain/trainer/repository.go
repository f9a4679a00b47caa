package trainer

import "context"

type Repository interface {
	// UpsertNames inserts unseen names and returns a lowercase-name to row
	// ID map covering every requested name.
	UpsertNames(ctx context.Context, names []string) (map[string]int64, error)
}
