package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sourcegraph/conc"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/turf-ingest/external/jobqueue"
	"github.com/riskibarqy/turf-ingest/external/racingfeed"
	"github.com/riskibarqy/turf-ingest/internal/config"
	"github.com/riskibarqy/turf-ingest/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/turf-ingest/internal/interfaces/httpapi"
	"github.com/riskibarqy/turf-ingest/internal/platform/logging"
	"github.com/riskibarqy/turf-ingest/internal/platform/resilience"
	"github.com/riskibarqy/turf-ingest/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// App wires the ingestion pipeline: database, feed client, queue publisher,
// services and the HTTP surface. cmd/api runs the server; cmd/backfill uses
// the same wiring without it.
type App struct {
	Config       config.Config
	DB           *sqlx.DB
	Server       *http.Server
	DayProcessor *usecase.DayProcessorService
	Backfill     *usecase.BackfillService
	Orchestrator *usecase.JobOrchestratorService

	logger *slog.Logger
}

func New(cfg config.Config, logger *logging.Logger, httpLogger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if httpLogger == nil {
		httpLogger = slog.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	horseRepo := postgres.NewHorseRepository(db)
	trainerRepo := postgres.NewTrainerRepository(db)
	jockeyRepo := postgres.NewJockeyRepository(db)
	raceRepo := postgres.NewRaceRepository(db)
	rawDataRepo := postgres.NewRawDataRepository(db)
	dispatchRepo := postgres.NewJobDispatchRepository(db)

	ingestion := usecase.NewIngestionService(horseRepo, trainerRepo, jockeyRepo, raceRepo, rawDataRepo)

	var provider usecase.RaceDayProvider
	if cfg.FeedEnabled {
		provider = racingfeed.NewClient(racingfeed.ClientConfig{
			BaseURL:        cfg.FeedBaseURL,
			APIKey:         cfg.FeedAPIKey,
			Timeout:        cfg.FeedTimeout,
			DefaultCountry: cfg.FeedDefaultCountry,
			Logger:         logger,
			RateLimiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
				RequestsPerSecond: cfg.FeedRequestsPerSecond,
				Burst:             cfg.FeedBurst,
			}),
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.FeedCircuitEnabled,
				FailureThreshold: cfg.FeedCircuitFailureCount,
				OpenTimeout:      cfg.FeedCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.FeedCircuitHalfOpenMaxReq,
			},
		})
	} else {
		logger.Info("racing feed disabled", "reason", "RACINGFEED_ENABLED=false")
	}

	dayProcessor := usecase.NewDayProcessorService(provider, ingestion, logger)

	var queue usecase.JobQueue
	if cfg.QStashEnabled {
		queue = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		}, httpLogger)
	} else {
		logger.Info("job queue disabled", "reason", "QSTASH_ENABLED=false")
	}

	orchestrator := usecase.NewJobOrchestratorService(queue, dispatchRepo, usecase.JobOrchestratorConfig{
		EnqueueSpacing: cfg.JobEnqueueSpacing,
		MaxRangeDays:   cfg.JobMaxRangeDays,
	}, logger)

	backfill := usecase.NewBackfillService(dayProcessor, usecase.BackfillConfig{
		Workers:     cfg.BackfillWorkers,
		MaxAttempts: cfg.BackfillMaxAttempts,
	}, logger)

	handler := httpapi.NewHandler(dayProcessor, orchestrator, dispatchRepo, raceRepo, httpLogger)
	router := httpapi.NewRouter(handler, httpLogger, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		_ = db.Close()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Config:       cfg,
		DB:           db,
		Server:       server,
		DayProcessor: dayProcessor,
		Backfill:     backfill,
		Orchestrator: orchestrator,
		logger:       httpLogger,
	}, nil
}

// Run serves HTTP until ctx is cancelled or the listener fails, then
// drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)

	var wg conc.WaitGroup
	wg.Go(func() {
		a.logger.Info("http server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})

	var runErr error
	select {
	case runErr = <-serveErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		runErr = a.Server.Shutdown(shutdownCtx)
	}

	wg.Wait()

	select {
	case err := <-serveErr:
		if runErr == nil {
			runErr = err
		}
	default:
	}

	if runErr == nil {
		a.logger.Info("http server stopped")
	}
	return runErr
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
