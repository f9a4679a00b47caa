package config

import (
	"testing"
	"time"

	"github.com/riskibarqy/turf-ingest/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev/123"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/123" {
		t.Fatalf("unexpected uptrace dsn %q", cfg.UptraceDSN)
	}
}

func TestLoad_FeedRequiresAPIKeyWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("RACINGFEED_ENABLED", "true")
	t.Setenv("RACINGFEED_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when RACINGFEED_ENABLED=true without api key")
	}
}

func TestLoad_FeedConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("RACINGFEED_ENABLED", "true")
	t.Setenv("RACINGFEED_API_KEY", "key-123")
	t.Setenv("RACINGFEED_BASE_URL", "https://feed.example.com/v2")
	t.Setenv("RACINGFEED_DEFAULT_COUNTRY", "nz")
	t.Setenv("RACINGFEED_TIMEOUT", "5s")
	t.Setenv("RACINGFEED_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("RACINGFEED_BURST", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.FeedEnabled {
		t.Fatalf("expected feed enabled")
	}
	if cfg.FeedBaseURL != "https://feed.example.com/v2" {
		t.Fatalf("unexpected feed base url %q", cfg.FeedBaseURL)
	}
	if cfg.FeedDefaultCountry != "NZ" {
		t.Fatalf("expected default country upper-cased, got %q", cfg.FeedDefaultCountry)
	}
	if cfg.FeedTimeout != 5*time.Second {
		t.Fatalf("unexpected feed timeout %s", cfg.FeedTimeout)
	}
	if cfg.FeedRequestsPerSecond != 0.5 {
		t.Fatalf("unexpected feed rps %v", cfg.FeedRequestsPerSecond)
	}
	if cfg.FeedBurst != 3 {
		t.Fatalf("unexpected feed burst %d", cfg.FeedBurst)
	}
}

func TestLoad_FeedRateMustBePositive(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("RACINGFEED_REQUESTS_PER_SECOND", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero request rate")
	}
}

func TestLoad_QStashRequiresTokensWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("QSTASH_ENABLED", "true")
	t.Setenv("QSTASH_TOKEN", "qstash-token")
	t.Setenv("QSTASH_TARGET_BASE_URL", "https://api.example.com")
	t.Setenv("INTERNAL_JOB_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when QSTASH_ENABLED=true without INTERNAL_JOB_TOKEN")
	}

	t.Setenv("INTERNAL_JOB_TOKEN", "job-token")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.QStashTargetBaseURL != "https://api.example.com" {
		t.Fatalf("unexpected qstash target %q", cfg.QStashTargetBaseURL)
	}
	if cfg.InternalJobToken != "job-token" {
		t.Fatalf("unexpected internal job token %q", cfg.InternalJobToken)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "turf-ingest-api" {
		t.Fatalf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.JobEnqueueSpacing != 2*time.Second {
		t.Fatalf("unexpected enqueue spacing %s", cfg.JobEnqueueSpacing)
	}
	if cfg.JobMaxRangeDays != 366 {
		t.Fatalf("unexpected max range days %d", cfg.JobMaxRangeDays)
	}
	if cfg.BackfillWorkers != 4 || cfg.BackfillMaxAttempts != 3 {
		t.Fatalf("unexpected backfill defaults workers=%d attempts=%d", cfg.BackfillWorkers, cfg.BackfillMaxAttempts)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected default log level %s", cfg.LogLevel)
	}
	if !cfg.DBDisablePreparedBinary {
		t.Fatalf("expected prepared binary results disabled by default")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"warn":    logging.LevelWarn,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"":        logging.LevelInfo,
		"bogus":   logging.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLogLevel(input); got != want {
			t.Fatalf("parseLogLevel(%q)=%s want=%s", input, got, want)
		}
	}
}
