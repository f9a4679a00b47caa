package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/domain/jobscheduler"
	"github.com/riskibarqy/turf-ingest/internal/usecase"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type processDayRequest struct {
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	DispatchID string `json:"dispatch_id"`
}

type enqueueRangeRequest struct {
	FromDate string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate   string `json:"to_date" validate:"required,datetime=2006-01-02"`
	Force    bool   `json:"force"`
}

type processDayResponse struct {
	Status string          `json:"status"`
	Stats  ingest.DayStats `json:"stats"`
	Error  string          `json:"error,omitempty"`
}

// RunProcessDayJob is the queue's delivery target. The response status code
// doubles as the retry signal: 2xx acknowledges the delivery, anything else
// makes the queue redeliver with backoff. A non-retryable day therefore
// still answers 200, just marked discarded.
func (h *Handler) RunProcessDayJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunProcessDayJob")
	defer span.End()

	if h.dayProcessor == nil {
		writeError(ctx, w, fmt.Errorf("%w: day processor is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req processDayRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	stats, err := h.dayProcessor.ProcessDay(ctx, req.Date)
	outcome := ingest.OutcomeFor(err)

	event := jobscheduler.DispatchEvent{
		JobName:    "process-day",
		JobPath:    "/v1/internal/jobs/process-day",
		RaceDate:   req.Date,
		Status:     jobscheduler.StatusCompleted,
		Payload:    map[string]any{"date": req.Date},
		OccurredAt: time.Now().UTC(),
	}
	if outcome == ingest.OutcomeRetry {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
	}
	h.recordInternalJobDispatch(ctx, req.DispatchID, event)

	switch outcome {
	case ingest.OutcomeSuccess:
		h.reportCache.Delete(ctx, dayReportCacheKey(req.Date))
		writeSuccess(ctx, w, http.StatusOK, processDayResponse{Status: "success", Stats: stats})
	case ingest.OutcomeDiscard:
		h.logger.WarnContext(ctx, "process day discarded", "date", req.Date, "error", err)
		writeSuccess(ctx, w, http.StatusOK, processDayResponse{Status: "discarded", Stats: stats, Error: err.Error()})
	default:
		h.logger.WarnContext(ctx, "process day failed, requesting redelivery", "date", req.Date, "error", err)
		writeRetryableJobError(ctx, w, err)
	}
}

func (h *Handler) RunEnqueueRangeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunEnqueueRangeJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req enqueueRangeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	result, err := h.jobOrchestrator.EnqueueRange(ctx, usecase.EnqueueRangeInput{
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Force:    req.Force,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "enqueue range failed", "from", req.FromDate, "to", req.ToDate, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

// writeRetryableJobError answers a retryable failure in the queue's
// language: 429 with Retry-After for rate limiting, 503 for everything
// else that deserves another delivery.
func writeRetryableJobError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	reason := "dependencyUnavailable"
	grpcStatus := "UNAVAILABLE"

	if failure, ok := ingest.AsFailure(err); ok && failure.Kind == ingest.KindRateLimitError {
		status = http.StatusTooManyRequests
		reason = "rateLimited"
		grpcStatus = "RESOURCE_EXHAUSTED"
		retryAfter := failure.RetryAfterSeconds
		if retryAfter <= 0 {
			retryAfter = 60
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	writeJSON(ctx, w, status, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error: &googleErrorBody{
			Code:    status,
			Message: err.Error(),
			Status:  grpcStatus,
			Errors: []googleErrorItem{
				{
					Domain:  errorDomain,
					Reason:  reason,
					Message: err.Error(),
				},
			},
		},
	})
}

func decodeJSONBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) recordInternalJobDispatch(ctx context.Context, dispatchID string, event jobscheduler.DispatchEvent) {
	if h.jobDispatchRepo == nil {
		return
	}

	dispatchID = strings.TrimSpace(dispatchID)
	if dispatchID == "" {
		dispatchID = buildManualDispatchID(event.JobName, event.RaceDate, event.OccurredAt)
	}
	event.DispatchID = dispatchID

	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID

	if err := h.jobDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record internal job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job_name", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}

func buildManualDispatchID(jobName, raceDate string, now time.Time) string {
	jobName = sanitizeDispatchPart(jobName)
	raceDate = sanitizeDispatchPart(raceDate)
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return "manual-" + jobName + "-" + raceDate + "-" + ts
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
