package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/riskibarqy/turf-ingest/internal/app"
	"github.com/riskibarqy/turf-ingest/internal/config"
	"github.com/riskibarqy/turf-ingest/internal/observability"
	"github.com/riskibarqy/turf-ingest/internal/platform/logging"
)

func main() {
	fromDate := flag.String("from", "", "first race date to replay (YYYY-MM-DD)")
	toDate := flag.String("to", "", "last race date to replay (YYYY-MM-DD, defaults to -from)")
	flag.Parse()

	if *fromDate == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *toDate == "" {
		*toDate = *fromDate
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logging.ToSlog(cfg.LogLevel),
	}))

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger, slogLogger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, runErr := application.Backfill.Run(ctx, *fromDate, *toDate)

	logger.Info("backfill finished",
		"from", *fromDate,
		"to", *toDate,
		"days", result.DayCount,
		"succeeded", result.SucceededDays,
		"discarded", result.DiscardedDays,
		"failed", len(result.FailedDays),
		"races_upserted", result.RacesUpserted,
		"entries_upserted", result.Entries,
	)
	if len(result.FailedDays) > 0 {
		logger.Warn("backfill left failed days", "dates", result.FailedDays)
	}

	if err := shutdownUptrace(context.Background()); err != nil {
		logger.Warn("shutdown uptrace", "error", err)
	}
	if err := application.Close(); err != nil {
		logger.Warn("close app", "error", err)
	}

	if runErr != nil {
		logger.Error("backfill failed", "error", runErr)
		_ = logger.Sync()
		os.Exit(1)
	}
}
