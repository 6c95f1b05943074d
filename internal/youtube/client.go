// Package youtube is a small client for the two YouTube Data API v3 calls the
// enricher needs: video categories by region and video snippets by id.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/runnerr0/yoda/internal/history"
	"github.com/runnerr0/yoda/internal/metrics"
)

// DefaultBaseURL is the public Data API root.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// MaxIDsPerCall is the videos.list limit on the id parameter.
const MaxIDsPerCall = 50

// ErrTooManyIDs is returned when Videos is asked for more than MaxIDsPerCall ids.
var ErrTooManyIDs = errors.New("youtube: too many ids in one call")

// Config carries everything the client needs. The API key is injected by the
// caller; the client never looks it up itself.
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
}

// Client talks to the Data API through a retrying transport, a token bucket
// and a circuit breaker.
type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	baseURL string
	apiKey  string
	log     zerolog.Logger
}

// NewClient builds a Client. Zero config values fall back to sane defaults.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = maxRetries
	hc.RetryWaitMin = 250 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.HTTPClient.Timeout = timeout
	hc.Logger = leveledLogger{log: log}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		log:     log,
	}
	c.cb = newBreaker("youtube-api", log)
	return c
}

func newBreaker(name string, log zerolog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Categories lists video categories for a region as id -> title.
func (c *Client) Categories(ctx context.Context, region string) (map[string]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("regionCode", region)

	body, err := c.get(ctx, "videoCategories", params)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id").String()
		if id != "" {
			out[id] = item.Get("snippet.title").String()
		}
		return true
	})
	return out, nil
}

// Videos fetches snippets for up to MaxIDsPerCall ids. Ids the API does not
// return (deleted or private videos) are simply absent from the result.
func (c *Client) Videos(ctx context.Context, ids []string) ([]history.VideoMeta, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxIDsPerCall {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyIDs, len(ids), MaxIDsPerCall)
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", strings.Join(ids, ","))
	params.Set("maxResults", fmt.Sprint(MaxIDsPerCall))

	body, err := c.get(ctx, "videos", params)
	if err != nil {
		return nil, err
	}

	var out []history.VideoMeta
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id").String()
		if id == "" {
			return true
		}
		out = append(out, history.VideoMeta{
			ID:          id,
			CategoryID:  optional(item.Get("snippet.categoryId")),
			Title:       optional(item.Get("snippet.title")),
			Description: optional(item.Get("snippet.description")),
		})
		return true
	})
	return out, nil
}

func optional(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}

// get performs one rate-limited, breaker-guarded GET and returns the body of
// a 200 response.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("youtube %s: %w", endpoint, err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, params)
	})
	if err != nil {
		result := "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		metrics.CatalogRequests.WithLabelValues(endpoint, result).Inc()
		return nil, err
	}
	metrics.CatalogRequests.WithLabelValues(endpoint, "success").Inc()
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	u := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("youtube %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("youtube %s: read body: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("youtube %s: status %d: %s", endpoint, resp.StatusCode, msg)
	}
	return body, nil
}

// leveledLogger routes retryablehttp's logging into zerolog at debug level,
// keeping warnings and errors at their own levels.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
