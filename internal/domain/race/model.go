package race

import "time"

// Race is identified by (date, track name, race number). Reprocessing a day
// replaces distance, going and class; identity columns never change.
type Race struct {
	ID             int64
	Date           time.Time
	TrackName      string
	RaceNumber     int
	Country        string
	DistanceMeters int
	Going          string
	Class          string
}

// Entry is the join record between one race and one horse. Every non-key
// column merges by coalesce on conflict: an incoming null never erases a
// previously captured value.
type Entry struct {
	RaceID        int64
	HorseID       int64
	TrainerID     *int64
	JockeyID      *int64
	Barrier       *int
	WeightKg      *float64
	FinishingPos  *int
	MarginLengths *float64
	StartingPrice *float64
	ExchangeSP    *float64
}

// CardRace bundles one race with its entries for transactional persistence.
// Entry.RaceID is resolved by the repository after the race row exists.
type CardRace struct {
	Race    Race
	Entries []Entry
}
