package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies this application to Nominatim, which
	// rejects anonymous clients.
	DefaultUserAgent = "GPX-Route-Editor/2.0"

	DefaultTimeout = 10 * time.Second
	DefaultLimit   = 5
)

// Options configures a Client. Zero fields take the defaults above.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Limit     int
}

// Client looks up places through the Nominatim HTTP API. Lookups fail
// closed: any transport, status or decode error is logged and reported
// as "no result".
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limit      int
	log        logrus.FieldLogger
}

// NewClient creates a Nominatim client. A nil log uses the standard logger.
func NewClient(opts Options, log logrus.FieldLogger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		limit:      opts.Limit,
		log:        log,
	}
}

// Geocode searches for query and returns at most the configured number of
// results. A blank query or a failed lookup yields an empty slice.
func (c *Client) Geocode(ctx context.Context, query string) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("addressdetails", "1")
	params.Set("extratags", "1")
	params.Set("namedetails", "1")

	var places []place
	if err := c.get(ctx, "/search", params, &places); err != nil {
		c.log.WithError(err).WithField("query", query).Error("Geocode: lookup failed")
		return []Result{}
	}

	results := make([]Result, 0, len(places))
	for _, p := range places {
		r, err := p.result()
		if err != nil {
			c.log.WithError(err).WithField("query", query).Warn("Geocode: skipping malformed result")
			continue
		}
		results = append(results, *r)
	}
	return results
}

// Reverse returns the place at lat/lon, or nil when nothing is found or the
// lookup fails.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) *Result {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	fields := logrus.Fields{"lat": lat, "lon": lon}

	var p place
	if err := c.get(ctx, "/reverse", params, &p); err != nil {
		c.log.WithError(err).WithFields(fields).Error("Reverse: lookup failed")
		return nil
	}
	// Nominatim answers a miss with 200 and {"error": "..."}
	if p.Error != "" || p.Lat == "" {
		return nil
	}

	r, err := p.result()
	if err != nil {
		c.log.WithError(err).WithFields(fields).Warn("Reverse: malformed result")
		return nil
	}
	return r
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	urlStr := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
