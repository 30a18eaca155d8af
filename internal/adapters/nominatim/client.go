package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// addressParts are the address keys usable as station names, in preference order.
var addressParts = []string{"road", "leisure", "quarter", "tourism", "neighbourhood", "suburb"}

// Client implements ports.Geocoder against the Nominatim reverse endpoint.
type Client struct {
	http      *fasthttp.Client
	baseURL   string
	userAgent string
	cache     ports.CacheService
	cacheTTL  int
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCache caches candidate lists for ttlSeconds.
func WithCache(cache ports.CacheService, ttlSeconds int) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttlSeconds
	}
}

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Nominatim client. The usage policy requires an identifying
// user agent.
func New(baseURL, userAgent string, opts ...Option) *Client {
	c := &Client{
		http: &fasthttp.Client{
			Name:                userAgent,
			MaxConnsPerHost:     2,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        5 * time.Second,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type reverseResponse struct {
	Address map[string]string `json:"address"`
	Error   string            `json:"error"`
}

// ReverseGeocode returns the interesting address parts at p.
func (c *Client) ReverseGeocode(ctx context.Context, p domain.GeoPoint) ([]string, error) {
	// ~11m grid keeps neighbouring clicks on one cache entry
	cacheKey := fmt.Sprintf("geocode:%.4f:%.4f", p.Lat, p.Lon)
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var names []string
			if err := json.Unmarshal(data, &names); err == nil {
				metrics.CacheHits.WithLabelValues("geocode").Inc()
				return names, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
	}

	names, err := c.fetch(ctx, p)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(names); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, c.cacheTTL)
		}
	}
	return names, nil
}

func (c *Client) fetch(ctx context.Context, p domain.GeoPoint) ([]string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	q.Set("format", "json")

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/reverse?" + q.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.userAgent)
	req.Header.Set("Accept", "application/json")

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("nominatim: unexpected status %d", code)
	}

	var body reverseResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("nominatim decode: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("nominatim: %s", body.Error)
	}
	return pickAddressParts(body.Address), nil
}

func pickAddressParts(address map[string]string) []string {
	var names []string
	for _, key := range addressParts {
		if v := address[key]; v != "" {
			names = append(names, v)
		}
	}
	return names
}
