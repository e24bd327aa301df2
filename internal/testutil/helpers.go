package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/currency"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/fixture"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/imagestore"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/repository"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/service"
)

// Cache windows used by NewTestServices.
const (
	PriceTTL         = 5 * time.Minute
	ListingTTL       = 6 * time.Hour
	ImageTTL         = 30 * 24 * time.Hour
	ImageNegativeTTL = 10 * time.Minute
)

// TestNow is the starting time of the FakeClock used by NewTestServices.
var TestNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// NewTestRates returns a EUR settlement table where one USD is worth 0.5 EUR
// and one GBP is worth 1.25 EUR.
func NewTestRates(t *testing.T) *currency.Table {
	t.Helper()

	rates, err := currency.NewTable("EUR", map[string]decimal.Decimal{
		"USD": decimal.RequireFromString("0.5"),
		"GBP": decimal.RequireFromString("1.25"),
	})
	if err != nil {
		t.Fatalf("Failed to create rate table: %v", err)
	}
	return rates
}

// TestServices is a fully wired set of services over a mock Steam client,
// an in-memory database, a temporary image directory and a fake clock.
type TestServices struct {
	DB          *sql.DB
	Client      *MockSteamClient
	Clock       *FakeClock
	Rates       *currency.Table
	Fixtures    *fixture.Store
	HistoryRepo *repository.HistoryRepository
	ImageStore  *imagestore.Store

	Prices   *service.PriceService
	Listings *service.ListingService
	Snapshot *service.SnapshotService
	History  *service.HistoryService
	Images   *service.ImageService
	System   *service.SystemService
}

// NewTestServices wires every service around items.
//
// Example usage:
//
//	ts := testutil.NewTestServices(t, []model.ItemFixture{
//	    testutil.NewItem("Kilowatt Case").WithBaseline("1.00", "EUR").Build(),
//	})
//	ts.Client.SetPrice("Kilowatt Case", testutil.PriceOverviewJSON("1,50€"))
func NewTestServices(t *testing.T, items []model.ItemFixture) *TestServices {
	t.Helper()

	db := SetupTestDB(t)
	logger := zaptest.NewLogger(t)

	store, err := imagestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create image store: %v", err)
	}

	ts := &TestServices{
		DB:          db,
		Client:      NewMockSteamClient(),
		Clock:       NewFakeClock(TestNow),
		Rates:       NewTestRates(t),
		Fixtures:    fixture.NewStaticStore(items),
		HistoryRepo: repository.NewHistoryRepository(db),
		ImageStore:  store,
	}

	ts.Prices = service.NewPriceService(ts.Client, service.PriceServiceConfig{
		SteamCurrency: "3",
		QuoteCurrency: "EUR",
		TTL:           PriceTTL,
		Timeout:       5 * time.Second,
	}, ts.Clock, logger)
	ts.Listings = service.NewListingService(ts.Client, ListingTTL, 5*time.Second, ts.Clock, logger)
	ts.Snapshot = service.NewSnapshotService(ts.Fixtures, ts.Prices, ts.Rates, ts.HistoryRepo, ts.Clock, 4, "730", logger)
	ts.History = service.NewHistoryService(ts.Fixtures, ts.Listings, ts.Rates, ts.HistoryRepo, ts.Clock, "EUR", 4, logger)
	ts.Images = service.NewImageService(ts.Client, ts.Listings, ts.Fixtures, store, service.ImageServiceConfig{
		URLPrefix:   "/cached_images",
		TTL:         ImageTTL,
		NegativeTTL: ImageNegativeTTL,
		Timeout:     5 * time.Second,
	}, ts.Clock, logger)
	ts.System = service.NewSystemService(db)

	return ts
}
