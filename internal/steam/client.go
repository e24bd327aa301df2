// Package steam talks to the Steam Community market: the priceoverview
// endpoint for live unit prices, the listing page for the embedded image and
// price history, and the image CDN.
package steam

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
)

const (
	DefaultBaseURL   = "https://steamcommunity.com"
	DefaultAppID     = "730"
	DefaultUserAgent = "cs2-portfolio-tool/1.0"

	maxImageBytes = 10 << 20
	maxPageBytes  = 8 << 20
)

// Client defines the upstream operations the valuation core depends on.
// This interface enables dependency injection and testing with mock implementations.
type Client interface {
	PriceOverview(ctx context.Context, marketHashName, currency string) (PriceOverview, []byte, error)
	ListingPage(ctx context.Context, marketHashName string) (string, error)
	DownloadImage(ctx context.Context, imageURL string) (Image, error)
}

// MarketClient is the HTTP implementation of Client.
type MarketClient struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	userAgent  string
}

// Option configures a MarketClient.
type Option func(*MarketClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *MarketClient) { m.httpClient = c }
}

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(m *MarketClient) { m.baseURL = baseURL }
}

// WithAppID selects the Steam application whose market is queried.
func WithAppID(appID string) Option {
	return func(m *MarketClient) { m.appID = appID }
}

// WithTimeout bounds every request made by the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(m *MarketClient) { m.httpClient.Timeout = d }
}

// NewMarketClient creates a Steam market client with default settings.
func NewMarketClient(opts ...Option) *MarketClient {
	c := &MarketClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		appID:      DefaultAppID,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppID returns the Steam application id used for lookups.
func (c *MarketClient) AppID() string { return c.appID }

// PriceOverview queries the current lowest and median price of one item.
// The raw payload is returned alongside the parsed one for passthrough.
//
// Returns an error wrapping apperrors.ErrUpstreamUnavailable on transport
// failure or a non-2xx status, and apperrors.ErrMalformedPayload when the
// body is not JSON.
func (c *MarketClient) PriceOverview(ctx context.Context, marketHashName, currency string) (PriceOverview, []byte, error) {
	params := url.Values{}
	params.Set("appid", c.appID)
	params.Set("currency", currency)
	params.Set("market_hash_name", marketHashName)
	endpoint := c.baseURL + "/market/priceoverview/?" + params.Encode()

	data, _, err := c.get(ctx, endpoint, "application/json", maxPageBytes)
	if err != nil {
		return PriceOverview{}, nil, errors.Wrapf(err, "priceoverview %q", marketHashName)
	}

	overview, err := ParsePriceOverview(data)
	if err != nil {
		return PriceOverview{}, data, err
	}
	return overview, data, nil
}

// ListingPage fetches the market listing document of one item.
func (c *MarketClient) ListingPage(ctx context.Context, marketHashName string) (string, error) {
	endpoint := fmt.Sprintf("%s/market/listings/%s/%s", c.baseURL, c.appID, url.PathEscape(marketHashName))

	data, _, err := c.get(ctx, endpoint, "text/html", maxPageBytes)
	if err != nil {
		return "", errors.Wrapf(err, "listing %q", marketHashName)
	}
	return string(data), nil
}

// DownloadImage fetches image bytes and the declared content type.
func (c *MarketClient) DownloadImage(ctx context.Context, imageURL string) (Image, error) {
	data, contentType, err := c.get(ctx, imageURL, "image/avif,image/webp,image/apng,image/*,*/*;q=0.8", maxImageBytes)
	if err != nil {
		return Image{}, errors.Wrap(err, "download image")
	}
	return Image{Data: data, ContentType: contentType}, nil
}

func (c *MarketClient) get(ctx context.Context, endpoint, accept string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(apperrors.ErrUpstreamUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", errors.Wrapf(apperrors.ErrUpstreamUnavailable, "responded with %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", errors.Wrapf(apperrors.ErrUpstreamUnavailable, "read body: %v", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
