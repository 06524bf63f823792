// Package channelfeed talks to the IoT channel API that the warehouse
// sensors publish to. It fetches recent feed entries, normalizes them into
// readings using the fixed field mapping, and exposes the remote sync
// trigger.
package channelfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Field mapping is a contract with the sensor channel and must not drift:
// field1 = small dust (PM2.5-like), field2 = large particles,
// field3 = humidity, field4 = temperature.

var (
	// ErrUnavailable covers network errors, timeouts and non-2xx replies.
	ErrUnavailable = errors.New("channel feed unavailable")
	// ErrMalformed covers replies without a feeds list.
	ErrMalformed = errors.New("channel feed response malformed")
)

const defaultTimeout = 10 * time.Second

// Client fetches readings from one sensor channel.
type Client struct {
	client  *http.Client
	limit   *rate.Limiter
	log     *zap.Logger
	baseURL string
	channel string
	apiKey  string
	timeout time.Duration
}

// Option configures a Client.
type Option func(c *Client) error

// NewClient builds a channel client for the given API base URL and channel
// id.
func NewClient(baseURL, channel string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("channelfeed: base URL is required")
	}
	c := &Client{
		log:     zap.L(),
		limit:   rate.NewLimiter(rate.Every(5*time.Second), 4),
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL: baseURL,
		channel: channel,
		timeout: defaultTimeout,
	}

	// apply the options
	for _, o := range opts {
		err := o(c)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithAPIKey sets the read key sent with every feed request.
func WithAPIKey(key string) Option {
	return func(c *Client) error {
		c.apiKey = key
		return nil
	}
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("channelfeed: timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

type feedEntry struct {
	EntryID   int64     `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
	Field1    *string   `json:"field1"` // small dust
	Field2    *string   `json:"field2"` // large particles
	Field3    *string   `json:"field3"` // humidity
	Field4    *string   `json:"field4"` // temperature
}

type feedResponse struct {
	Channel struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
	Feeds *[]feedEntry `json:"feeds"`
}

// FetchWindow pulls up to maxSamples entries from the last windowHours
// hours, oldest first. Entries with missing or non-numeric fields are
// backfilled from the previous entry (or the warehouse baselines for the
// first one) so every returned reading is total.
func (c *Client) FetchWindow(ctx context.Context, windowHours, maxSamples int) ([]reading.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/channels/%s/feeds.json", c.baseURL, url.PathEscape(c.channel))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("channelfeed: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("results", strconv.Itoa(maxSamples))
	q.Set("hours", strconv.Itoa(windowHours))
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	req.URL.RawQuery = q.Encode()

	if err := c.limit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrMalformed, err)
	}
	if body.Feeds == nil {
		return nil, fmt.Errorf("%w: missing feeds list", ErrMalformed)
	}

	return c.normalize(*body.Feeds), nil
}

// normalize applies the fixed field mapping and backfills gaps so readings
// stay total.
func (c *Client) normalize(feeds []feedEntry) []reading.Reading {
	prev := reading.Reading{
		Temperature:    22,
		Humidity:       60,
		SmallDust:      15,
		LargeParticles: 10,
	}
	out := make([]reading.Reading, 0, len(feeds))
	for _, f := range feeds {
		r := reading.Reading{
			ExternalID: strconv.FormatInt(f.EntryID, 10),
			Timestamp:  f.CreatedAt,
		}
		r.SmallDust = pick(f.Field1, prev.SmallDust)
		r.LargeParticles = pick(f.Field2, prev.LargeParticles)
		r.Humidity = pick(f.Field3, prev.Humidity)
		r.Temperature = pick(f.Field4, prev.Temperature)
		prev = r
		out = append(out, r)
	}
	return out
}

func pick(raw *string, fallback float64) float64 {
	if v, ok := reading.ParseOptional(raw); ok {
		return v
	}
	return fallback
}
