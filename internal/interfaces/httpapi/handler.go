package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/turf-ingest/internal/domain/jobscheduler"
	"github.com/riskibarqy/turf-ingest/internal/domain/race"
	"github.com/riskibarqy/turf-ingest/internal/platform/cache"
	"github.com/riskibarqy/turf-ingest/internal/usecase"
)

const dayReportCacheTTL = 30 * time.Second

type Handler struct {
	dayProcessor    *usecase.DayProcessorService
	jobOrchestrator *usecase.JobOrchestratorService
	jobDispatchRepo jobscheduler.Repository
	raceRepo        race.Repository
	reportCache     *cache.Store
	logger          *slog.Logger
	validator       *validator.Validate
}

func NewHandler(
	dayProcessor *usecase.DayProcessorService,
	jobOrchestrator *usecase.JobOrchestratorService,
	jobDispatchRepo jobscheduler.Repository,
	raceRepo race.Repository,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		dayProcessor:    dayProcessor,
		jobOrchestrator: jobOrchestrator,
		jobDispatchRepo: jobDispatchRepo,
		raceRepo:        raceRepo,
		reportCache:     cache.NewStore(dayReportCacheTTL),
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type dayReportDTO struct {
	Date    string `json:"date"`
	Races   int    `json:"races"`
	Entries int    `json:"entries"`
}

func (h *Handler) GetDayReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDayReport")
	defer span.End()

	if h.raceRepo == nil {
		writeError(ctx, w, fmt.Errorf("%w: race repository is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	date := r.PathValue("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: date must be YYYY-MM-DD", usecase.ErrInvalidInput))
		return
	}

	report, err := h.reportCache.GetOrLoad(ctx, dayReportCacheKey(date), func(ctx context.Context) (any, error) {
		races, entries, err := h.raceRepo.CountByDate(ctx, date)
		if err != nil {
			return nil, err
		}
		return dayReportDTO{Date: date, Races: races, Entries: entries}, nil
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "day report failed", "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

func dayReportCacheKey(date string) string {
	return "day-report:" + date
}
