package trainer

// Trainer has no attributes beyond its case-insensitive unique name; rows
// are created on first sighting and never updated.
type Trainer struct {
	ID   int64
	Name string
}
