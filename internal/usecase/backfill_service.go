package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/platform/logging"
)

type BackfillConfig struct {
	Workers     int
	MaxAttempts int
}

type BackfillResult struct {
	DayCount      int
	SucceededDays int
	DiscardedDays int
	FailedDays    []string
	RacesUpserted int
	Entries       int
}

// BackfillService replays a historical date range directly, without the job
// queue. Days run concurrently on a bounded pool; the shared rate limiter
// inside the feed client keeps the aggregate request rate flat no matter
// how many workers are draining days.
type BackfillService struct {
	processor *DayProcessorService
	cfg       BackfillConfig
	logger    *logging.Logger
	newPool   func(size int) (*ants.Pool, error)
}

func NewBackfillService(processor *DayProcessorService, cfg BackfillConfig, logger *logging.Logger) *BackfillService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &BackfillService{
		processor: processor,
		cfg:       cfg,
		logger:    logger,
		newPool: func(size int) (*ants.Pool, error) {
			return ants.NewPool(size)
		},
	}
}

// Run processes every day in [fromDate, toDate] inclusive.
func (s *BackfillService) Run(ctx context.Context, fromDate, toDate string) (BackfillResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BackfillService.Run")
	defer span.End()

	from, err := time.Parse(raceDateLayout, strings.TrimSpace(fromDate))
	if err != nil {
		return BackfillResult{}, fmt.Errorf("%w: from date must be YYYY-MM-DD", ErrInvalidInput)
	}
	to, err := time.Parse(raceDateLayout, strings.TrimSpace(toDate))
	if err != nil {
		return BackfillResult{}, fmt.Errorf("%w: to date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if to.Before(from) {
		return BackfillResult{}, fmt.Errorf("%w: to date is before from date", ErrInvalidInput)
	}

	pool, err := s.newPool(s.cfg.Workers)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("create backfill pool: %w", err)
	}
	defer pool.Release()

	days := int(to.Sub(from).Hours()/24) + 1
	result := BackfillResult{DayCount: days}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for day := 0; day < days; day++ {
		date := from.AddDate(0, 0, day).Format(raceDateLayout)

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			stats, runErr := s.runDay(ctx, date)

			mu.Lock()
			defer mu.Unlock()
			result.RacesUpserted += stats.RacesProcessed
			result.Entries += stats.EntriesProcessed
			switch ingest.OutcomeFor(runErr) {
			case ingest.OutcomeSuccess:
				result.SucceededDays++
			case ingest.OutcomeDiscard:
				result.DiscardedDays++
			default:
				result.FailedDays = append(result.FailedDays, date)
			}
		})
		if submitErr != nil {
			// Drain the already-submitted days before touching result.
			wg.Done()
			wg.Wait()
			return result, fmt.Errorf("submit backfill day %s: %w", date, submitErr)
		}
	}
	wg.Wait()

	s.logger.InfoContext(ctx, "backfill finished",
		"from", fromDate,
		"to", toDate,
		"succeeded", result.SucceededDays,
		"discarded", result.DiscardedDays,
		"failed", len(result.FailedDays),
	)
	if len(result.FailedDays) > 0 {
		return result, fmt.Errorf("backfill left %d days unprocessed", len(result.FailedDays))
	}
	return result, nil
}

// runDay retries retryable failures in place using the classified backoff,
// since there is no queue to hand the day back to.
func (s *BackfillService) runDay(ctx context.Context, date string) (ingest.DayStats, error) {
	var stats ingest.DayStats
	var err error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		stats, err = s.processor.ProcessDay(ctx, date)
		outcome := ingest.OutcomeFor(err)
		if outcome != ingest.OutcomeRetry || attempt == s.cfg.MaxAttempts-1 {
			return stats, err
		}

		delay := 5 * time.Second
		if failure, ok := ingest.AsFailure(err); ok {
			delay = failure.Backoff(attempt)
		}
		s.logger.WarnContext(ctx, "backfill day failed, retrying",
			"date", date, "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(delay):
		}
	}
	return stats, err
}
