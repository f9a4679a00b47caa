package postgres

import "time"

type raceInsertModel struct {
	RaceDate       time.Time `db:"race_date"`
	TrackName      string    `db:"track_name"`
	RaceNumber     int       `db:"race_number"`
	Country        *string   `db:"country"`
	DistanceMeters int       `db:"distance_meters"`
	Going          *string   `db:"going"`
	Class          *string   `db:"class"`
}

type entryInsertModel struct {
	RaceID        int64    `db:"race_id"`
	HorseID       int64    `db:"horse_id"`
	TrainerID     *int64   `db:"trainer_id"`
	JockeyID      *int64   `db:"jockey_id"`
	Barrier       *int     `db:"barrier"`
	WeightKg      *float64 `db:"weight_kg"`
	FinishingPos  *int     `db:"finishing_pos"`
	MarginLengths *float64 `db:"margin_lengths"`
	StartingPrice *float64 `db:"starting_price"`
	ExchangeSP    *float64 `db:"exchange_sp"`
}
