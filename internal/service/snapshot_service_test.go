package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/service"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/testutil"
)

// TestSnapshotService_BuildSnapshot tests portfolio valuation.
//
// WHY: The snapshot is what the dashboard shows and what the daily history
// log records. An item without a live price must still count at its baseline,
// and totals must be derived from unrounded per-item figures.
func TestSnapshotService_BuildSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("values live and baseline items", func(t *testing.T) {
		// Setup
		ts := testutil.NewTestServices(t, []model.ItemFixture{
			testutil.NewItem("Kilowatt Case").WithQuantity(2).WithBaseline("1.00", "EUR").Build(),
			testutil.NewItem("Sticker | Crown (Foil)").WithType("Sticker").WithQuantity(3).WithBaseline("2.00", "USD").Build(),
		})
		ts.Client.SetPrice("Kilowatt Case", testutil.PriceOverviewJSON("1,50€"))

		// Execute
		snap, err := ts.Snapshot.BuildSnapshot(ctx)

		// Assert
		if err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}
		if len(snap.Items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(snap.Items))
		}

		live := snap.Items[0]
		if live.PriceSource != model.PriceSourceLive {
			t.Errorf("Expected live source, got %s", live.PriceSource)
		}
		checkDecimal(t, "live unit", live.UnitPrice.StringFixed(2), "1.50")
		checkDecimal(t, "live value", live.Value.StringFixed(2), "3.00")
		checkDecimal(t, "live baseline value", live.BaselineValue.StringFixed(2), "2.00")
		checkDecimal(t, "live change", live.ChangeValue.StringFixed(2), "1.00")
		checkDecimal(t, "live change percent", live.ChangePercent.StringFixed(2), "50.00")
		if live.MarketURL != "https://steamcommunity.com/market/listings/730/Kilowatt%20Case" {
			t.Errorf("Unexpected market URL %q", live.MarketURL)
		}

		fallback := snap.Items[1]
		if fallback.PriceSource != model.PriceSourceBaseline {
			t.Errorf("Expected baseline source, got %s", fallback.PriceSource)
		}
		checkDecimal(t, "converted baseline", fallback.SettlementBaseline.StringFixed(2), "1.00")
		checkDecimal(t, "baseline unit", fallback.UnitPrice.StringFixed(2), "1.00")
		checkDecimal(t, "baseline value", fallback.Value.StringFixed(2), "3.00")
		checkDecimal(t, "baseline change", fallback.ChangeValue.StringFixed(2), "0.00")

		checkDecimal(t, "total value", snap.Totals.Value.StringFixed(2), "6.00")
		checkDecimal(t, "total baseline", snap.Totals.Baseline.StringFixed(2), "5.00")
		checkDecimal(t, "total change", snap.Totals.ChangeValue.StringFixed(2), "1.00")
		checkDecimal(t, "total percent", snap.Totals.ChangePercent.StringFixed(2), "20.00")
		if snap.Totals.ItemsCount != 2 {
			t.Errorf("Expected 2 items counted, got %d", snap.Totals.ItemsCount)
		}
		if snap.Totals.CasesCount != 2 {
			t.Errorf("Expected 2 cases, got %d", snap.Totals.CasesCount)
		}
		if !snap.GeneratedAt.Equal(testutil.TestNow) {
			t.Errorf("Expected GeneratedAt %v, got %v", testutil.TestNow, snap.GeneratedAt)
		}
	})

	t.Run("converts quotes from a non-settlement Steam currency", func(t *testing.T) {
		// Setup
		ts := testutil.NewTestServices(t, []model.ItemFixture{
			testutil.NewItem("Kilowatt Case").WithQuantity(2).WithBaseline("1.00", "EUR").Build(),
		})
		logger := zaptest.NewLogger(t)
		prices := service.NewPriceService(ts.Client, service.PriceServiceConfig{
			SteamCurrency: "1",
			QuoteCurrency: "USD",
			TTL:           testutil.PriceTTL,
			Timeout:       5 * time.Second,
		}, ts.Clock, logger)
		snapshots := service.NewSnapshotService(ts.Fixtures, prices, ts.Rates, ts.HistoryRepo, ts.Clock, 2, "730", logger)
		ts.Client.SetPrice("Kilowatt Case", testutil.PriceOverviewJSON("$3.00"))

		// Execute
		snap, err := snapshots.BuildSnapshot(ctx)

		// Assert
		if err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}
		item := snap.Items[0]
		if item.PriceSource != model.PriceSourceLive {
			t.Errorf("Expected live source, got %s", item.PriceSource)
		}
		checkDecimal(t, "unit in settlement", item.UnitPrice.StringFixed(2), "1.50")
		checkDecimal(t, "value in settlement", item.Value.StringFixed(2), "3.00")
		checkDecimal(t, "change", item.ChangeValue.StringFixed(2), "1.00")
	})

	t.Run("zero baseline yields zero percent", func(t *testing.T) {
		ts := testutil.NewTestServices(t, []model.ItemFixture{
			testutil.NewItem("Souvenir Package").WithBaseline("0", "EUR").Build(),
		})
		ts.Client.SetPrice("Souvenir Package", testutil.PriceOverviewJSON("2,00€"))

		snap, err := ts.Snapshot.BuildSnapshot(ctx)
		if err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}

		checkDecimal(t, "item percent", snap.Items[0].ChangePercent.StringFixed(2), "0.00")
		checkDecimal(t, "item change", snap.Items[0].ChangeValue.StringFixed(2), "2.00")
		checkDecimal(t, "total percent", snap.Totals.ChangePercent.StringFixed(2), "0.00")
	})

	t.Run("empty fixture", func(t *testing.T) {
		ts := testutil.NewTestServices(t, []model.ItemFixture{})

		snap, err := ts.Snapshot.BuildSnapshot(ctx)
		if err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}
		if len(snap.Items) != 0 || !snap.Totals.Value.IsZero() {
			t.Errorf("Expected an empty snapshot, got %+v", snap.Totals)
		}
	})

	t.Run("records today's total in the history log", func(t *testing.T) {
		ts := testutil.NewTestServices(t, []model.ItemFixture{
			testutil.NewItem("Kilowatt Case").WithQuantity(4).Build(),
		})
		ts.Client.SetPrice("Kilowatt Case", testutil.PriceOverviewJSON("1,25€"))

		if _, err := ts.Snapshot.BuildSnapshot(ctx); err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}
		ts.Client.SetPrice("Kilowatt Case", testutil.PriceOverviewJSON("1,50€"))
		ts.Clock.Advance(testutil.PriceTTL * 2)
		if _, err := ts.Snapshot.BuildSnapshot(ctx); err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}

		points, err := ts.HistoryRepo.Latest(ctx, 0)
		if err != nil {
			t.Fatalf("Latest() returned unexpected error: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("Expected one point for the day, got %d", len(points))
		}
		if points[0].Date != "2024-03-10" {
			t.Errorf("Expected date 2024-03-10, got %s", points[0].Date)
		}
		checkDecimal(t, "recorded value", points[0].Value.StringFixed(2), "6.00")
	})

	t.Run("returns the snapshot when the history write fails", func(t *testing.T) {
		ts := testutil.NewTestServices(t, []model.ItemFixture{
			testutil.NewItem("Kilowatt Case").WithQuantity(2).Build(),
		})
		ts.Client.SetPrice("Kilowatt Case", testutil.PriceOverviewJSON("1,50€"))
		ts.DB.Close()

		snap, err := ts.Snapshot.BuildSnapshot(ctx)

		if !errors.Is(err, apperrors.ErrFailedToPersistHistory) {
			t.Fatalf("Expected ErrFailedToPersistHistory, got %v", err)
		}
		checkDecimal(t, "total value", snap.Totals.Value.StringFixed(2), "3.00")
	})
}

func TestSnapshotService_BaselineTotal(t *testing.T) {
	ts := testutil.NewTestServices(t, []model.ItemFixture{
		testutil.NewItem("Kilowatt Case").WithQuantity(2).WithBaseline("1.10", "EUR").Build(),
		testutil.NewItem("Operation Pin").WithBaseline("4.00", "GBP").Build(),
	})

	total, err := ts.Snapshot.BaselineTotal()

	if err != nil {
		t.Fatalf("BaselineTotal() returned unexpected error: %v", err)
	}
	checkDecimal(t, "baseline total", total.StringFixed(2), "7.20")
	if calls := ts.Client.PriceCalls("Kilowatt Case"); calls != 0 {
		t.Errorf("Expected no upstream calls, got %d", calls)
	}
}

func checkDecimal(t *testing.T, what, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %s, got %s", what, want, got)
	}
}
