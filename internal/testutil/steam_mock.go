package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/steam"
)

// MockSteamClient is a mock implementation of steam.Client for testing.
// It serves canned payloads per market hash name and counts calls.
// An item without a canned payload answers like an unreachable upstream, and
// so does any call made with a done context.
type MockSteamClient struct {
	mu sync.Mutex

	// Prices holds raw priceoverview payloads by market hash name
	Prices map[string]string
	// Listings holds listing documents by market hash name
	Listings map[string]string
	// Images holds downloadable images by URL
	Images map[string]steam.Image

	// PriceError, ListingError and ImageError override every response when set
	PriceError   error
	ListingError error
	ImageError   error

	// PriceGate, when set, blocks every price lookup until it is closed
	PriceGate chan struct{}

	priceCalls   map[string]int
	listingCalls map[string]int
	imageCalls   map[string]int
}

// NewMockSteamClient creates a mock with no canned payloads.
func NewMockSteamClient() *MockSteamClient {
	return &MockSteamClient{
		Prices:       make(map[string]string),
		Listings:     make(map[string]string),
		Images:       make(map[string]steam.Image),
		priceCalls:   make(map[string]int),
		listingCalls: make(map[string]int),
		imageCalls:   make(map[string]int),
	}
}

// PriceOverview returns the canned payload for marketHashName.
func (m *MockSteamClient) PriceOverview(ctx context.Context, marketHashName, _ string) (steam.PriceOverview, []byte, error) {
	m.mu.Lock()
	m.priceCalls[marketHashName]++
	gate := m.PriceGate
	payload, ok := m.Prices[marketHashName]
	err := m.PriceError
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return steam.PriceOverview{}, nil, ctx.Err()
		}
	}

	if err != nil {
		return steam.PriceOverview{}, nil, err
	}
	if !ok {
		return steam.PriceOverview{}, nil, fmt.Errorf("%w: no price for %q", apperrors.ErrUpstreamUnavailable, marketHashName)
	}
	overview, err := steam.ParsePriceOverview([]byte(payload))
	return overview, []byte(payload), err
}

// ListingPage returns the canned document for marketHashName.
func (m *MockSteamClient) ListingPage(ctx context.Context, marketHashName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listingCalls[marketHashName]++

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: request failed: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	if m.ListingError != nil {
		return "", m.ListingError
	}
	doc, ok := m.Listings[marketHashName]
	if !ok {
		return "", fmt.Errorf("%w: no listing for %q", apperrors.ErrUpstreamUnavailable, marketHashName)
	}
	return doc, nil
}

// DownloadImage returns the canned image for imageURL.
func (m *MockSteamClient) DownloadImage(ctx context.Context, imageURL string) (steam.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageCalls[imageURL]++

	if err := ctx.Err(); err != nil {
		return steam.Image{}, fmt.Errorf("%w: request failed: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	if m.ImageError != nil {
		return steam.Image{}, m.ImageError
	}
	img, ok := m.Images[imageURL]
	if !ok {
		return steam.Image{}, fmt.Errorf("%w: no image at %q", apperrors.ErrUpstreamUnavailable, imageURL)
	}
	return img, nil
}

// SetPrice sets the canned payload of an item.
func (m *MockSteamClient) SetPrice(marketHashName, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[marketHashName] = payload
}

// SetPriceError makes every price lookup fail with err, or succeed again if err is nil.
func (m *MockSteamClient) SetPriceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PriceError = err
}

// SetListing sets the canned listing document of an item.
func (m *MockSteamClient) SetListing(marketHashName, doc string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Listings[marketHashName] = doc
}

// SetListingError makes every listing fetch fail with err, or succeed again if err is nil.
func (m *MockSteamClient) SetListingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListingError = err
}

// SetImage sets the canned image at a URL.
func (m *MockSteamClient) SetImage(imageURL string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Images[imageURL] = steam.Image{Data: data, ContentType: contentType}
}

// SetImageError makes every download fail with err, or succeed again if err is nil.
func (m *MockSteamClient) SetImageError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImageError = err
}

// PriceCalls returns the number of price lookups made for an item.
func (m *MockSteamClient) PriceCalls(marketHashName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.priceCalls[marketHashName]
}

// ListingCalls returns the number of listing fetches made for an item.
func (m *MockSteamClient) ListingCalls(marketHashName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listingCalls[marketHashName]
}

// ImageCalls returns the number of downloads made for a URL.
func (m *MockSteamClient) ImageCalls(imageURL string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageCalls[imageURL]
}

// PriceOverviewJSON returns a successful priceoverview payload quoting lowest.
func PriceOverviewJSON(lowest string) string {
	return fmt.Sprintf(`{"success":true,"lowest_price":%q,"volume":"1,204","median_price":%q}`, lowest, lowest)
}

// HistoryRow is one [date, price, volume] row of a listing's price series.
type HistoryRow struct {
	Date  string // e.g. "Mar 01 2024 01: +0"
	Price float64
}

// ListingHTML returns a minimal listing document with an og:image tag (when
// imageURL is set) and an embedded price series (when rows is non-nil).
func ListingHTML(imageURL string, rows []HistoryRow) string {
	doc := "<html><head>"
	if imageURL != "" {
		doc += fmt.Sprintf(`<meta property="og:image" content="%s">`, imageURL)
	}
	doc += "</head><body><script>\n"
	if rows != nil {
		doc += "\t\tvar line1=["
		for i, r := range rows {
			if i > 0 {
				doc += ","
			}
			doc += fmt.Sprintf(`[%q,%v,"12"]`, r.Date, r.Price)
		}
		doc += "];\n"
	}
	doc += "</script></body></html>"
	return doc
}
