package usecase

import (
	"context"

	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/domain/rawdata"
)

// RaceDayProvider is the upstream feed boundary. Implementations normalize
// the feed's heterogeneous payload shapes into the canonical External types
// and classify transport failures into the ingest taxonomy.
type RaceDayProvider interface {
	ScheduleByDate(ctx context.Context, date string) ([]ExternalMeeting, []rawdata.Payload, error)
	ResultsByMeeting(ctx context.Context, date string, meetingNumber int) ([]ExternalMeeting, []rawdata.Payload, error)
}

// ExternalMeeting is one venue's card for one day, already normalized.
// Failures holds the per-race validation problems encountered while
// normalizing; the affected races are absent from Races.
type ExternalMeeting struct {
	Number    int
	TrackName string
	Country   string
	Races     []ExternalRace
	Failures  []*ingest.Failure
}

type ExternalRace struct {
	Number         int
	DistanceMeters int
	Going          string
	Class          string
	Runners        []ExternalRunner
}

// ExternalRunner is the canonical runner shape regardless of which of the
// feed's list representations it came from. Pointer fields distinguish
// "absent upstream" from zero so the entry upsert can coalesce-merge.
type ExternalRunner struct {
	HorseName    string
	Country      string
	YearFoaled   *int
	Sex          string
	Sire         string
	Dam          string
	Damsire      string
	BreedingText string

	TrainerName string
	JockeyName  string

	Barrier       *int
	WeightKg      *float64
	FinishingPos  *int
	MarginLengths *float64
	StartingPrice *float64
	ExchangeSP    *float64
}
