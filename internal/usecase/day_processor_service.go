package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/platform/logging"
)

const raceDateLayout = "2006-01-02"

// DayProcessorService drives one calendar day through fetch, merge and
// persist. A meeting whose results fetch fails is persisted from schedule
// data alone and reported; only schedule fetch and persistence failures
// abort the day.
type DayProcessorService struct {
	provider  RaceDayProvider
	ingestion *IngestionService
	logger    *logging.Logger
}

func NewDayProcessorService(provider RaceDayProvider, ingestion *IngestionService, logger *logging.Logger) *DayProcessorService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DayProcessorService{
		provider:  provider,
		ingestion: ingestion,
		logger:    logger,
	}
}

// ProcessDay runs the full pipeline for one day. The returned stats are
// populated even when err is non-nil so callers can report partial
// progress. A non-nil err means the day should be retried or discarded per
// ingest.OutcomeFor.
func (s *DayProcessorService) ProcessDay(ctx context.Context, rawDate string) (ingest.DayStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DayProcessorService.ProcessDay")
	defer span.End()

	stats := ingest.DayStats{Date: strings.TrimSpace(rawDate)}

	date, err := time.Parse(raceDateLayout, stats.Date)
	if err != nil {
		return stats, ingest.WrapFailure(ingest.KindValidationError, err, "race date must be YYYY-MM-DD").
			WithContext("date", rawDate)
	}
	if s.provider == nil || s.ingestion == nil {
		return stats, fmt.Errorf("%w: day processor is not fully configured", ErrDependencyUnavailable)
	}

	scheduled, schedulePayloads, err := s.provider.ScheduleByDate(ctx, stats.Date)
	if err != nil {
		return stats, fmt.Errorf("process day %s: %w", stats.Date, err)
	}
	if archiveErr := s.ingestion.ArchivePayloads(ctx, schedulePayloads); archiveErr != nil {
		s.logger.WarnContext(ctx, "raw schedule archive failed", "date", stats.Date, "error", archiveErr)
	}
	if len(scheduled) == 0 {
		s.logger.InfoContext(ctx, "no meetings scheduled", "date", stats.Date)
		return stats, nil
	}

	var firstRetryable *ingest.Failure
	for _, meeting := range scheduled {
		outcome, persistFailure := s.processMeeting(ctx, date, stats.Date, meeting)
		stats.Absorb(outcome)

		if firstRetryable == nil && persistFailure != nil && persistFailure.Retryable() {
			firstRetryable = persistFailure
		}
	}

	s.logger.InfoContext(ctx, "day processed",
		"date", stats.Date,
		"meetings", stats.MeetingsProcessed,
		"races", stats.RacesProcessed,
		"entries", stats.EntriesProcessed,
		"failures", len(stats.Failures),
	)

	// Results-fetch failures stay contained in the meeting outcomes; the
	// schedule rows are already persisted and a redelivery would redo the
	// whole day for one missing result card. Only a retryable persist
	// failure fails the day, since that meeting's rows never landed and
	// idempotent upserts make the rerun cheap.
	if firstRetryable != nil {
		return stats, fmt.Errorf("process day %s: %w", stats.Date, firstRetryable)
	}
	return stats, nil
}

// processMeeting merges a meeting's schedule and result cards and persists
// the result. Fetch failures are contained to the returned outcome; a
// persist failure is also returned separately so the caller can escalate it.
func (s *DayProcessorService) processMeeting(ctx context.Context, date time.Time, rawDate string, scheduled ExternalMeeting) (ingest.MeetingOutcome, *ingest.Failure) {
	outcome := ingest.MeetingOutcome{
		MeetingNumber: scheduled.Number,
		TrackName:     scheduled.TrackName,
		Failures:      append([]*ingest.Failure(nil), scheduled.Failures...),
	}

	merged := scheduled
	if scheduled.Number > 0 {
		results, resultPayloads, err := s.provider.ResultsByMeeting(ctx, rawDate, scheduled.Number)
		switch {
		case err != nil:
			failure, ok := ingest.AsFailure(err)
			if !ok {
				failure = ingest.WrapFailure(ingest.KindAPIError, err, "fetch meeting results")
			}
			outcome.Failures = append(outcome.Failures, failure.
				WithContext("meeting", scheduled.Number).
				WithContext("track", scheduled.TrackName))
			s.logger.WarnContext(ctx, "results fetch failed, persisting schedule only",
				"date", rawDate, "meeting", scheduled.Number, "error", err)
		case len(results) > 0:
			outcome.ResultsFetched = true
			merged = mergeMeetings(scheduled, results[0])
			outcome.Failures = append(outcome.Failures, results[0].Failures...)
			if archiveErr := s.ingestion.ArchivePayloads(ctx, resultPayloads); archiveErr != nil {
				s.logger.WarnContext(ctx, "raw results archive failed",
					"date", rawDate, "meeting", scheduled.Number, "error", archiveErr)
			}
		}
	}

	races, entries, err := s.ingestion.PersistMeeting(ctx, date, merged)
	if err != nil {
		failure, ok := ingest.AsFailure(err)
		if !ok {
			failure = ingest.WrapFailure(ingest.KindDatabaseError, err, "persist meeting")
		}
		outcome.Failures = append(outcome.Failures, failure)
		return outcome, failure
	}

	outcome.Races = races
	outcome.Entries = entries
	return outcome, nil
}

// mergeMeetings overlays the result card on the schedule card. Races are
// keyed by race number and the result version wins outright; scheduled
// races without a result survive unchanged.
func mergeMeetings(scheduled, results ExternalMeeting) ExternalMeeting {
	merged := scheduled
	if merged.TrackName == "" {
		merged.TrackName = results.TrackName
	}
	if merged.Country == "" {
		merged.Country = results.Country
	}

	byNumber := make(map[int]ExternalRace, len(scheduled.Races)+len(results.Races))
	for _, item := range scheduled.Races {
		byNumber[item.Number] = item
	}
	for _, item := range results.Races {
		byNumber[item.Number] = item
	}

	merged.Races = make([]ExternalRace, 0, len(byNumber))
	for _, item := range byNumber {
		merged.Races = append(merged.Races, item)
	}
	sort.Slice(merged.Races, func(i, j int) bool {
		return merged.Races[i].Number < merged.Races[j].Number
	})
	return merged
}
