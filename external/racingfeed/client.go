package racingfeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/turf-ingest/internal/domain/ingest"
	"github.com/riskibarqy/turf-ingest/internal/domain/rawdata"
	"github.com/riskibarqy/turf-ingest/internal/platform/logging"
	"github.com/riskibarqy/turf-ingest/internal/platform/resilience"
	"github.com/riskibarqy/turf-ingest/internal/usecase"
)

const (
	defaultBaseURL             = "https://api.racingfeed.io/v1"
	defaultCountryCode         = "AUS"
	defaultRateLimitRetryAfter = 60
	maxResponseBytes           = 6 << 20

	sourceName = "racingfeed"
)

var apiKeyParamRegex = regexp.MustCompile(`apiKey=[^&\s"']+`)

var errFeedUnavailable = crerr.New("racingfeed temporarily unavailable")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	DefaultCountry string
	Logger         *logging.Logger
	RateLimiter    *resilience.RateLimiter
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the racing feed and reconciles its payload shapes into
// the canonical meeting/race/runner records. Every request passes through
// the shared token bucket, so concurrent day jobs stay inside one aggregate
// request budget.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	defaultCountry string
	logger         *logging.Logger
	limiter        *resilience.RateLimiter
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}
	if httpClient.Transport == nil {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	defaultCountry := strings.ToUpper(strings.TrimSpace(cfg.DefaultCountry))
	if defaultCountry == "" {
		defaultCountry = defaultCountryCode
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		defaultCountry: defaultCountry,
		logger:         logger,
		limiter:        cfg.RateLimiter,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type meetingsEnvelope struct {
	Meetings []map[string]any `json:"meetings"`
}

// ScheduleByDate fetches the day's meeting list with its scheduled races.
func (c *Client) ScheduleByDate(ctx context.Context, date string) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
	path := "/racing/schedule"
	query := map[string]string{"date": date}

	var envelope meetingsEnvelope
	raw, err := c.doJSON(ctx, path, query, &envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch schedule date=%s: %w", date, err)
	}

	meetings := c.normalizeEnvelope(envelope)
	payload := buildAPIPayload(path, query, raw, date, 0)
	return meetings, []rawdata.Payload{payload}, nil
}

// ResultsByMeeting fetches one meeting's result card for the given day.
func (c *Client) ResultsByMeeting(ctx context.Context, date string, meetingNumber int) ([]usecase.ExternalMeeting, []rawdata.Payload, error) {
	path := "/racing/results"
	query := map[string]string{
		"date":    date,
		"meeting": strconv.Itoa(meetingNumber),
	}

	var envelope meetingsEnvelope
	raw, err := c.doJSON(ctx, path, query, &envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch results date=%s meeting=%d: %w", date, meetingNumber, err)
	}

	meetings := c.normalizeEnvelope(envelope)
	payload := buildAPIPayload(path, query, raw, date, meetingNumber)
	return meetings, []rawdata.Payload{payload}, nil
}

func (c *Client) normalizeEnvelope(envelope meetingsEnvelope) []usecase.ExternalMeeting {
	out := make([]usecase.ExternalMeeting, 0, len(envelope.Meetings))
	for _, item := range envelope.Meetings {
		meeting, failures := normalizeMeeting(item, c.defaultCountry)
		meeting.Failures = failures
		out = append(out, meeting)
	}
	return out
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ingest.WrapFailure(ingest.KindNetworkError, err, "rate limiter wait interrupted")
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "racingfeed circuit breaker rejected request", "state", c.breaker.State())
			return nil, ingest.WrapFailure(ingest.KindAPIError, errFeedUnavailable, "circuit breaker open").
				WithRetryAfter(15)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("apiKey", c.apiKey)

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if failure, ok := ingest.AsFailure(reqErr); ok && failure.Retryable() {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, ingest.WrapFailure(ingest.KindParseError, err, "decode feed payload").
			WithContext("path", path)
	}

	return raw, nil
}

// executeRequest performs a single attempt and classifies the outcome.
// Retrying is the job system's responsibility; the classified failure
// carries everything it needs to pick a backoff.
func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		message := sanitizeSensitiveText(err.Error(), c.apiKey)
		c.logger.WarnContext(ctx, "racingfeed request failed", "url", redactAPIURL(fullURL), "error", message)
		return nil, ingest.NewFailure(ingest.KindNetworkError, message)
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, ingest.WrapFailure(ingest.KindNetworkError, readErr, "read response body")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	return nil, classifyStatus(resp, raw)
}

func classifyStatus(resp *http.Response, body []byte) *ingest.Failure {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ingest.NewFailure(ingest.KindRateLimitError, "feed rate limit exceeded").
			WithRetryAfter(parseRetryAfter(resp.Header.Get("Retry-After"))).
			WithContext("status", resp.StatusCode)
	default:
		return ingest.NewFailure(ingest.KindAPIError, fmt.Sprintf("feed status=%d body=%s", resp.StatusCode, abbreviateBody(body))).
			WithContext("status", resp.StatusCode)
	}
}

func parseRetryAfter(header string) int {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds <= 0 {
		return defaultRateLimitRetryAfter
	}
	return seconds
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		return text[:256] + "..."
	}
	return text
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if apiKey != "" {
		value = strings.ReplaceAll(value, apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "apiKey=REDACTED")
}

func redactAPIURL(fullURL string) string {
	return apiKeyParamRegex.ReplaceAllString(fullURL, "apiKey=REDACTED")
}

func buildAPIPayload(path string, query map[string]string, raw []byte, date string, meetingNumber int) rawdata.Payload {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	sum := sha256.Sum256(raw)

	return rawdata.Payload{
		Source:        sourceName,
		EntityType:    "api_response",
		EntityKey:     path + "?" + values.Encode(),
		RaceDate:      date,
		MeetingNumber: meetingNumber,
		PayloadJSON:   string(raw),
		PayloadHash:   hex.EncodeToString(sum[:]),
	}
}
