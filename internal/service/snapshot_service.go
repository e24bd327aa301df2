package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/cache"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/currency"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/fixture"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// SnapshotService values the whole fixture against live prices and records
// the total in the daily history log.
type SnapshotService struct {
	fixtures    *fixture.Store
	prices      *PriceService
	rates       *currency.Table
	historyRepo *repository.HistoryRepository
	clock       cache.Clock
	concurrency int
	marketURL   string
	logger      *zap.Logger
}

// NewSnapshotService creates a SnapshotService. concurrency bounds the number
// of price lookups in flight; appID is used to build item market links.
func NewSnapshotService(
	fixtures *fixture.Store,
	prices *PriceService,
	rates *currency.Table,
	historyRepo *repository.HistoryRepository,
	clock cache.Clock,
	concurrency int,
	appID string,
	logger *zap.Logger,
) *SnapshotService {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SnapshotService{
		fixtures:    fixtures,
		prices:      prices,
		rates:       rates,
		historyRepo: historyRepo,
		clock:       clock,
		concurrency: concurrency,
		marketURL:   "https://steamcommunity.com/market/listings/" + appID + "/",
		logger:      logger,
	}
}

// figures are the unrounded per-item values a snapshot is built from.
type figures struct {
	unit, baseline, value, baselineValue, change decimal.Decimal
	source                                       model.PriceSource
}

// BuildSnapshot resolves every item's price concurrently, values the
// portfolio and upserts today's total into the history log.
//
// A single item whose price cannot be resolved is valued at its baseline. If
// the history upsert fails the snapshot is still returned, together with an
// error wrapping apperrors.ErrFailedToPersistHistory.
func (s *SnapshotService) BuildSnapshot(ctx context.Context) (model.PortfolioSnapshot, error) {
	items, err := s.fixtures.Items()
	if err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToBuildSnapshot, err)
	}

	quotes := make([]model.PriceQuote, len(items))
	live := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			quotes[i], live[i] = s.prices.ResolveLivePrice(gctx, item.MarketHashName)
			return nil
		})
	}
	_ = g.Wait() // resolutions never fail; they degrade to baseline

	snapshot := model.PortfolioSnapshot{
		GeneratedAt: s.clock.Now().UTC(),
		Items:       make([]model.EnrichedItem, len(items)),
	}

	totalValue, totalBaseline := decimal.Zero, decimal.Zero
	for i, item := range items {
		f := s.value(item, quotes[i], live[i])
		totalValue = totalValue.Add(f.value)
		totalBaseline = totalBaseline.Add(f.baselineValue)

		snapshot.Items[i] = model.EnrichedItem{
			ItemFixture:        item,
			UnitPrice:          f.unit.Round(2),
			SettlementBaseline: f.baseline.Round(2),
			Value:              f.value.Round(2),
			BaselineValue:      f.baselineValue.Round(2),
			ChangeValue:        f.change.Round(2),
			ChangePercent:      percent(f.change, f.baselineValue).Round(2),
			PriceSource:        f.source,
			MarketURL:          s.marketURL + url.PathEscape(item.MarketHashName),
		}
		if item.Type == model.ItemTypeCase {
			snapshot.Totals.CasesCount += item.Quantity
		}
	}

	totalChange := totalValue.Sub(totalBaseline)
	snapshot.Totals.Value = totalValue.Round(2)
	snapshot.Totals.Baseline = totalBaseline.Round(2)
	snapshot.Totals.ChangeValue = totalChange.Round(2)
	snapshot.Totals.ChangePercent = percent(totalChange, totalBaseline).Round(2)
	snapshot.Totals.ItemsCount = len(items)

	point := model.HistoryPoint{
		Date:      model.Day(snapshot.GeneratedAt).Format(model.DateLayout),
		Value:     snapshot.Totals.Value,
		Timestamp: snapshot.GeneratedAt,
	}
	if err := s.historyRepo.Upsert(ctx, point); err != nil {
		s.logger.Error("failed to record snapshot total", zap.String("date", point.Date), zap.Error(err))
		return snapshot, fmt.Errorf("%w: %w", apperrors.ErrFailedToPersistHistory, err)
	}

	return snapshot, nil
}

// BaselineTotal returns the summed settlement-currency baseline value of the
// portfolio without contacting upstream.
func (s *SnapshotService) BaselineTotal() (decimal.Decimal, error) {
	items, err := s.fixtures.Items()
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(s.settlementBaseline(item).Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total, nil
}

func (s *SnapshotService) value(item model.ItemFixture, quote model.PriceQuote, live bool) figures {
	qty := decimal.NewFromInt(item.Quantity)
	f := figures{
		baseline: s.settlementBaseline(item),
		source:   model.PriceSourceBaseline,
	}
	f.unit = f.baseline

	if live {
		unit, err := s.rates.ToSettlement(quote.Value, quote.Currency)
		if err != nil {
			s.logger.Warn("live price in unconvertible currency, using baseline",
				zap.String("market_hash_name", item.MarketHashName),
				zap.String("currency", quote.Currency),
			)
		} else {
			f.unit = unit
			f.source = model.PriceSourceLive
		}
	}

	f.value = f.unit.Mul(qty)
	f.baselineValue = f.baseline.Mul(qty)
	f.change = f.value.Sub(f.baselineValue)
	return f
}

// settlementBaseline converts an item's baseline unit price. A currency the
// rate table does not know is taken as already being in settlement.
func (s *SnapshotService) settlementBaseline(item model.ItemFixture) decimal.Decimal {
	v, err := s.rates.ToSettlement(item.BaselineUnitPrice, item.BaselineCurrency)
	if err != nil {
		s.logger.Warn("no conversion rate for baseline currency",
			zap.String("market_hash_name", item.MarketHashName),
			zap.String("currency", item.BaselineCurrency),
		)
		return item.BaselineUnitPrice
	}
	return v
}

// percent returns change / base * 100, or 0 when base is 0.
func percent(change, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return change.Div(base).Mul(hundred)
}
