package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/turf-ingest/internal/domain/jobscheduler"
	"github.com/riskibarqy/turf-ingest/internal/platform/logging"
)

const processDayJobPath = "/v1/internal/jobs/process-day"

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type JobOrchestratorConfig struct {
	// EnqueueSpacing spreads queued day jobs apart so the queue does not
	// hammer the feed the moment a large range is submitted.
	EnqueueSpacing time.Duration
	MaxRangeDays   int
}

type EnqueueRangeInput struct {
	FromDate string
	ToDate   string
	Force    bool
}

type EnqueueRangeResult struct {
	DayCount    int      `json:"day_count"`
	QueuedCount int      `json:"queued_count"`
	QueuedDates []string `json:"queued_dates"`
}

// JobOrchestratorService fans a date range out into one queued job per day.
// Each day is an independent retry unit; the queue's deduplication ID keeps
// a day from being enqueued twice inside the same submission window.
type JobOrchestratorService struct {
	queue        JobQueue
	dispatchRepo jobscheduler.Repository
	cfg          JobOrchestratorConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewJobOrchestratorService(
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg JobOrchestratorConfig,
	logger *logging.Logger,
) *JobOrchestratorService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.EnqueueSpacing <= 0 {
		cfg.EnqueueSpacing = 2 * time.Second
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 366
	}

	return &JobOrchestratorService{
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// EnqueueRange queues one process-day job per day in [FromDate, ToDate].
func (s *JobOrchestratorService) EnqueueRange(ctx context.Context, input EnqueueRangeInput) (EnqueueRangeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.EnqueueRange")
	defer span.End()

	from, err := time.Parse(raceDateLayout, strings.TrimSpace(input.FromDate))
	if err != nil {
		return EnqueueRangeResult{}, fmt.Errorf("%w: from_date must be YYYY-MM-DD", ErrInvalidInput)
	}
	to, err := time.Parse(raceDateLayout, strings.TrimSpace(input.ToDate))
	if err != nil {
		return EnqueueRangeResult{}, fmt.Errorf("%w: to_date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if to.Before(from) {
		return EnqueueRangeResult{}, fmt.Errorf("%w: to_date is before from_date", ErrInvalidInput)
	}

	days := int(to.Sub(from).Hours()/24) + 1
	if days > s.cfg.MaxRangeDays {
		return EnqueueRangeResult{}, fmt.Errorf("%w: range spans %d days, limit is %d", ErrInvalidInput, days, s.cfg.MaxRangeDays)
	}

	now := s.now().UTC()
	result := EnqueueRangeResult{
		DayCount:    days,
		QueuedDates: make([]string, 0, days),
	}

	for day := 0; day < days; day++ {
		date := from.AddDate(0, 0, day).Format(raceDateLayout)
		delay := time.Duration(day) * s.cfg.EnqueueSpacing
		if input.Force {
			delay = 0
		}
		if err := s.enqueueDay(ctx, date, delay, now); err != nil {
			return EnqueueRangeResult{}, err
		}
		result.QueuedCount++
		result.QueuedDates = append(result.QueuedDates, date)
	}

	s.logger.InfoContext(ctx, "day range enqueued",
		"from", input.FromDate,
		"to", input.ToDate,
		"queued", result.QueuedCount,
	)
	return result, nil
}

func (s *JobOrchestratorService) enqueueDay(ctx context.Context, date string, delay time.Duration, now time.Time) error {
	dedupID := dedupKey("process-day", date)
	payload := map[string]any{
		"date":        date,
		"dispatch_id": dedupID,
	}
	if err := s.queue.Enqueue(ctx, processDayJobPath, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      "process-day",
			JobPath:      processDayJobPath,
			RaceDate:     date,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return fmt.Errorf("enqueue process-day date=%s: %w", date, err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    "process-day",
		JobPath:    processDayJobPath,
		RaceDate:   date,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})
	return nil
}

// MarkDayCompleted records the terminal dispatch status after a day job ran.
func (s *JobOrchestratorService) MarkDayCompleted(ctx context.Context, date string, runErr error) {
	event := jobscheduler.DispatchEvent{
		DispatchID: dedupKey("process-day", date),
		JobName:    "process-day",
		JobPath:    processDayJobPath,
		RaceDate:   date,
		Status:     jobscheduler.StatusCompleted,
		OccurredAt: s.now().UTC(),
	}
	if runErr != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = runErr.Error()
	}
	s.recordDispatchEvent(ctx, event)
}

// dedupKey is date-bucketed: enqueueing the same day twice yields the same
// ID, which the queue collapses into one delivery.
func dedupKey(prefix, date string) string {
	return sanitizeDedupSegment(prefix) + "-" + sanitizeDedupSegment(date)
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *JobOrchestratorService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
