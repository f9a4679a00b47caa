package rawdata

import "time"

// Payload archives one raw feed response so a day can be re-normalized
// after parser fixes without refetching.
type Payload struct {
	Source          string
	EntityType      string
	EntityKey       string
	RaceDate        string
	MeetingNumber   int
	PayloadJSON     string
	PayloadHash     string
	SourceUpdatedAt *time.Time
}
