// Package geocode resolves free-text addresses to coordinates via the
// ArcGIS World Geocoder, which needs no API key for single lookups.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes free-text addresses.
type Client interface {
	// Geocode resolves a single address. An unresolvable address is not
	// an error: the result comes back with Matched=false.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Lat     float64
	Lon     float64
	Matched bool
}

// Option configures the geocoder.
type Option func(*arcgisClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *arcgisClient) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the ArcGIS endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *arcgisClient) {
		c.baseURL = u
	}
}

// WithTimeout bounds each lookup request.
func WithTimeout(d time.Duration) Option {
	return func(c *arcgisClient) {
		c.timeout = d
	}
}

// WithRateLimit sets the requests-per-second limit for lookups.
func WithRateLimit(rps float64) Option {
	return func(c *arcgisClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	c := &arcgisClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    arcgisFindURL,
		timeout:    10 * time.Second,
		limiter:    rate.NewLimiter(20, 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
