package usecase

import (
	"context"
	"testing"
	"time"
)

type recordingQueue struct {
	calls []queueCall
	err   error
}

type queueCall struct {
	path    string
	delay   time.Duration
	dedupID string
}

func (q *recordingQueue) Enqueue(_ context.Context, path string, _ any, delay time.Duration, dedupID string) error {
	if q.err != nil {
		return q.err
	}
	q.calls = append(q.calls, queueCall{path: path, delay: delay, dedupID: dedupID})
	return nil
}

func TestJobOrchestratorService_EnqueueRange(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{}
	svc := NewJobOrchestratorService(queue, nil, JobOrchestratorConfig{EnqueueSpacing: time.Second}, nil)

	result, err := svc.EnqueueRange(context.Background(), EnqueueRangeInput{
		FromDate: "2024-03-09",
		ToDate:   "2024-03-11",
	})
	if err != nil {
		t.Fatalf("EnqueueRange: %v", err)
	}

	if result.DayCount != 3 || result.QueuedCount != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(queue.calls) != 3 {
		t.Fatalf("want 3 enqueues, got %d", len(queue.calls))
	}
	if queue.calls[0].dedupID != "process-day-2024-03-09" {
		t.Fatalf("unexpected dedup id %q", queue.calls[0].dedupID)
	}
	if queue.calls[2].delay != 2*time.Second {
		t.Fatalf("jobs should be spaced out, got delay %v", queue.calls[2].delay)
	}
	for _, call := range queue.calls {
		if call.path != processDayJobPath {
			t.Fatalf("unexpected job path %q", call.path)
		}
	}
}

func TestJobOrchestratorService_EnqueueRange_RejectsBadInput(t *testing.T) {
	t.Parallel()

	svc := NewJobOrchestratorService(&recordingQueue{}, nil, JobOrchestratorConfig{}, nil)

	if _, err := svc.EnqueueRange(context.Background(), EnqueueRangeInput{FromDate: "bad", ToDate: "2024-03-11"}); err == nil {
		t.Fatal("malformed from_date must fail")
	}
	if _, err := svc.EnqueueRange(context.Background(), EnqueueRangeInput{FromDate: "2024-03-11", ToDate: "2024-03-09"}); err == nil {
		t.Fatal("inverted range must fail")
	}
	if _, err := svc.EnqueueRange(context.Background(), EnqueueRangeInput{FromDate: "2020-01-01", ToDate: "2024-01-01"}); err == nil {
		t.Fatal("oversized range must fail")
	}
}

func TestDedupKey_SameDaySameKey(t *testing.T) {
	t.Parallel()

	if dedupKey("process-day", "2024-03-09") != dedupKey("process-day", "2024-03-09") {
		t.Fatal("dedup key must be stable for a day")
	}
	if got := dedupKey("process-day", "2024/03/09"); got != "process-day-2024-03-09" {
		t.Fatalf("unsafe characters must be sanitized, got %q", got)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}
