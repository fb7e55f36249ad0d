// Package geocode resolves free-text street addresses to WGS84 coordinates
// through the AIS geocoding API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes a single address.
type Client interface {
	Geocode(ctx context.Context, address string) (Coordinate, error)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		g.timeout = d
	}
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	key        string
	timeout    time.Duration
	limiter    *rate.Limiter
}

// NewClient creates an AIS Client. The address is appended verbatim (path
// escaped) to baseURL and key is sent as the gatekeeperKey query parameter.
func NewClient(baseURL, key string, opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		key:        key,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
