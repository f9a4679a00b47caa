package ingest

// MeetingOutcome records what one meeting contributed to a day run. A
// results-fetch failure leaves ResultsFetched false but does not fail the
// day; schedule-only rows are still persisted.
type MeetingOutcome struct {
	MeetingNumber  int
	TrackName      string
	Races          int
	Entries        int
	ResultsFetched bool
	Failures       []*Failure
}

// DayStats aggregates one calendar day of processing.
type DayStats struct {
	Date              string
	MeetingsProcessed int
	RacesProcessed    int
	EntriesProcessed  int
	Meetings          []MeetingOutcome
	Failures          []*Failure
}

func (s *DayStats) Absorb(outcome MeetingOutcome) {
	s.MeetingsProcessed++
	s.RacesProcessed += outcome.Races
	s.EntriesProcessed += outcome.Entries
	s.Meetings = append(s.Meetings, outcome)
	s.Failures = append(s.Failures, outcome.Failures...)
}
