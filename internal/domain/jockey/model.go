package jockey

// Jockey has no attributes beyond its case-insensitive unique name; rows
// are created on first sighting and never updated.
type Jockey struct {
	ID   int64
	Name string
}
