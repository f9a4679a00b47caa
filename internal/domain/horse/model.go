package horse

// Horse is one animal keyed by case-insensitive unique name. Sire, dam and
// damsire are links to other horse rows resolved by name upsert, never
// embedded records, so the pedigree graph stays a forest of stable IDs.
type Horse struct {
	ID         int64
	Name       string
	Country    string
	YearFoaled *int
	Sex        string
	SireID     *int64
	DamID      *int64
	DamsireID  *int64
}
