package steam

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Replays recorded Steam market responses; nothing leaves the machine.
func TestMarketClient_Recorded(t *testing.T) {
	r, err := recorder.NewAsMode(filepath.Join("testdata", "cassettes", "market"), recorder.ModeReplaying, nil)
	require.NoError(t, err, "recorder.NewAsMode should not error")
	defer func() { _ = r.Stop() }()

	client := NewMarketClient(WithHTTPClient(&http.Client{Transport: r}))
	ctx := context.Background()

	t.Run("priceoverview", func(t *testing.T) {
		overview, raw, err := client.PriceOverview(ctx, "Kilowatt Case", "3")
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"lowest_price"`)
		assert.True(t, overview.Success)

		price, err := overview.UnitPrice()
		require.NoError(t, err)
		assert.Equal(t, "1.03", price.StringFixed(2))
	})

	t.Run("priceoverview without success", func(t *testing.T) {
		overview, _, err := client.PriceOverview(ctx, "Sticker Capsule", "3")
		require.NoError(t, err)
		_, err = overview.UnitPrice()
		assert.Error(t, err)
	})

	t.Run("listing page", func(t *testing.T) {
		doc, err := client.ListingPage(ctx, "Kilowatt Case")
		require.NoError(t, err)

		imageURL, ok := ExtractImageURL(doc)
		assert.True(t, ok)
		assert.Contains(t, imageURL, "/economy/image/")

		points, err := ExtractPriceHistory(doc)
		require.NoError(t, err)
		assert.Len(t, points, 3)
	})

	t.Run("unrecorded request fails", func(t *testing.T) {
		_, _, err := client.PriceOverview(ctx, "Dreams & Nightmares Case", "3")
		assert.Error(t, err)
	})
}
