package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/domain/jobscheduler"
	"github.com/riskibarqy/turf-ingest/internal/domain/rawdata"
	"github.com/riskibarqy/turf-ingest/internal/usecase"
)

type stubProvider struct {
	scheduleFn func(ctx context.Context, date string) ([]usecase.ExternalMeeting, []rawdata.Payload, error)
}

func (s *stubProvider) ScheduleByDate(ctx context.Context, date string) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
	return s.scheduleFn(ctx, date)
}

func (s *stubProvider) ResultsByMeeting(ctx context.Context, date string, meetingNumber int) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
	return nil, nil, nil
}

type recordingDispatchRepo struct {
	events []jobscheduler.DispatchEvent
}

func (r *recordingDispatchRepo) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newJobHandler(provider usecase.RaceDayProvider, dispatchRepo jobscheduler.Repository) *Handler {
	ingestion := usecase.NewIngestionService(nil, nil, nil, nil, nil)
	processor := usecase.NewDayProcessorService(provider, ingestion, nil)
	return NewHandler(processor, nil, dispatchRepo, nil, nil)
}

func postProcessDay(t *testing.T, handler *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/process-day", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.RunProcessDayJob(rec, req)
	return rec
}

func TestRunProcessDayJob_EmptyDayIsSuccess(t *testing.T) {
	dispatchRepo := &recordingDispatchRepo{}
	handler := newJobHandler(&stubProvider{
		scheduleFn: func(_ context.Context, _ string) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
			return nil, nil, nil
		},
	}, dispatchRepo)

	rec := postProcessDay(t, handler, `{"date":"2024-03-09"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data processDayResponse `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Data.Status != "success" {
		t.Fatalf("expected success status, got %q", body.Data.Status)
	}

	if len(dispatchRepo.events) != 1 {
		t.Fatalf("expected one dispatch event, got %d", len(dispatchRepo.events))
	}
	event := dispatchRepo.events[0]
	if event.Status != jobscheduler.StatusCompleted {
		t.Fatalf("expected completed dispatch event, got %s", event.Status)
	}
	if event.RaceDate != "2024-03-09" {
		t.Fatalf("expected event race date 2024-03-09, got %q", event.RaceDate)
	}
	if !strings.HasPrefix(event.DispatchID, "manual-process-day-2024-03-09-") {
		t.Fatalf("unexpected generated dispatch id %q", event.DispatchID)
	}
}

func TestRunProcessDayJob_RateLimitAnswers429(t *testing.T) {
	dispatchRepo := &recordingDispatchRepo{}
	handler := newJobHandler(&stubProvider{
		scheduleFn: func(_ context.Context, _ string) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
			failure := ingest.NewFailure(ingest.KindRateLimitError, "feed throttled").WithRetryAfter(90)
			return nil, nil, failure
		},
	}, dispatchRepo)

	rec := postProcessDay(t, handler, `{"date":"2024-03-09","dispatch_id":"msg-abc"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("expected Retry-After=90, got %q", got)
	}

	if len(dispatchRepo.events) != 1 {
		t.Fatalf("expected one dispatch event, got %d", len(dispatchRepo.events))
	}
	event := dispatchRepo.events[0]
	if event.Status != jobscheduler.StatusFailed {
		t.Fatalf("expected failed dispatch event, got %s", event.Status)
	}
	if event.DispatchID != "msg-abc" {
		t.Fatalf("expected dispatch id from request, got %q", event.DispatchID)
	}
}

func TestRunProcessDayJob_ParseFailureIsDiscarded(t *testing.T) {
	handler := newJobHandler(&stubProvider{
		scheduleFn: func(_ context.Context, _ string) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
			return nil, nil, ingest.NewFailure(ingest.KindParseError, "schedule body is not JSON")
		},
	}, &recordingDispatchRepo{})

	rec := postProcessDay(t, handler, `{"date":"2024-03-09"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for a discarded day, got %d", rec.Code)
	}

	var body struct {
		Data processDayResponse `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Data.Status != "discarded" {
		t.Fatalf("expected discarded status, got %q", body.Data.Status)
	}
	if body.Data.Error == "" {
		t.Fatal("expected discard reason in response")
	}
}

func TestRunProcessDayJob_BadDateRejected(t *testing.T) {
	handler := newJobHandler(&stubProvider{
		scheduleFn: func(_ context.Context, _ string) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
			t.Fatal("schedule fetch should not run for an invalid date")
			return nil, nil, nil
		},
	}, &recordingDispatchRepo{})

	rec := postProcessDay(t, handler, `{"date":"09/03/2024"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 from request validation, got %d", rec.Code)
	}
}

func TestRunProcessDayJob_MissingBody(t *testing.T) {
	handler := newJobHandler(&stubProvider{}, nil)

	rec := postProcessDay(t, handler, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestBuildManualDispatchID_SanitizesParts(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	id := buildManualDispatchID("process day!", "2024-03-09", now)
	if strings.ContainsAny(id, " !") {
		t.Fatalf("expected sanitized dispatch id, got %q", id)
	}
	if !strings.HasPrefix(id, "manual-process-day--2024-03-09-") {
		t.Fatalf("unexpected dispatch id %q", id)
	}
}
