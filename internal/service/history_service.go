package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/cache"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/currency"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/fixture"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/history"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/repository"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/steam"
)

// HistoryService derives the daily portfolio value history from the price
// series embedded in listing documents and serves the persisted log.
type HistoryService struct {
	fixtures        *fixture.Store
	listings        *ListingService
	rates           *currency.Table
	historyRepo     *repository.HistoryRepository
	clock           cache.Clock
	listingCurrency string
	concurrency     int
	logger          *zap.Logger
}

// NewHistoryService creates a HistoryService. listingCurrency is the ISO code
// prices in listing documents are quoted in.
func NewHistoryService(
	fixtures *fixture.Store,
	listings *ListingService,
	rates *currency.Table,
	historyRepo *repository.HistoryRepository,
	clock cache.Clock,
	listingCurrency string,
	concurrency int,
	logger *zap.Logger,
) *HistoryService {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &HistoryService{
		fixtures:        fixtures,
		listings:        listings,
		rates:           rates,
		historyRepo:     historyRepo,
		clock:           clock,
		listingCurrency: listingCurrency,
		concurrency:     concurrency,
		logger:          logger,
	}
}

// History returns the most recent limit points of the persisted log in
// ascending date order.
func (s *HistoryService) History(ctx context.Context, limit int) ([]model.HistoryPoint, error) {
	points, err := s.historyRepo.Latest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveHistory, err)
	}
	return points, nil
}

// FetchItemHistory returns the daily settlement-currency price series of one
// item, one point per day in ascending order. Any failure yields an empty
// series: an empty series means "no data", not "worthless".
func (s *HistoryService) FetchItemHistory(ctx context.Context, marketHashName string) model.ItemHistorySeries {
	series := model.ItemHistorySeries{MarketHashName: marketHashName, Points: []model.SeriesPoint{}}

	doc, err := s.listings.Listing(ctx, marketHashName)
	if err != nil {
		s.logger.Warn("listing unavailable, no price history",
			zap.String("market_hash_name", marketHashName),
			zap.Error(err),
		)
		return series
	}

	points, err := steam.ExtractPriceHistory(doc)
	if err != nil {
		s.logger.Warn("no price history in listing",
			zap.String("market_hash_name", marketHashName),
			zap.Error(err),
		)
		return series
	}

	converted := make([]model.SeriesPoint, 0, len(points))
	for _, p := range points {
		price, err := s.rates.ToSettlement(p.Price, s.listingCurrency)
		if err != nil {
			s.logger.Warn("listing currency not convertible, no price history",
				zap.String("market_hash_name", marketHashName),
				zap.String("currency", s.listingCurrency),
			)
			return series
		}
		converted = append(converted, model.SeriesPoint{Date: p.Date, Price: price})
	}

	series.Points = history.Normalize(converted)
	return series
}

// Rebuild refetches every item's series, merges them and replaces the
// persisted log with the result.
//
// If no item has any series and the log already holds points, the log is
// kept as it is and returned. Otherwise the portfolio's baseline total seeds
// today's point when nothing else is known.
func (s *HistoryService) Rebuild(ctx context.Context) ([]model.HistoryPoint, error) {
	items, err := s.fixtures.Items()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRebuildHistory, err)
	}

	series := make([]model.ItemHistorySeries, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			series[i] = s.FetchItemHistory(gctx, item.MarketHashName)
			return nil
		})
	}
	_ = g.Wait() // fetches never fail; they degrade to empty series

	inputs := make([]history.Input, len(items))
	fallback := decimal.Zero
	anySeries := false
	for i, item := range items {
		qty := decimal.NewFromInt(item.Quantity)
		baseline := s.settlementBaseline(item).Mul(qty)
		fallback = fallback.Add(baseline)
		inputs[i] = history.Input{
			Quantity: item.Quantity,
			Baseline: baseline,
			Points:   series[i].Points,
		}
		if len(series[i].Points) > 0 {
			anySeries = true
		}
	}

	if !anySeries {
		persisted, err := s.historyRepo.Latest(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveHistory, err)
		}
		if len(persisted) > 0 {
			s.logger.Info("no upstream price history, keeping persisted log", zap.Int("points", len(persisted)))
			return persisted, nil
		}
	}

	merged := history.Merge(inputs, fallback, s.clock.Now(), s.historyRepo.Limit())
	if err := s.historyRepo.Replace(ctx, merged); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToPersistHistory, err)
	}

	s.logger.Info("history rebuilt", zap.Int("items", len(items)), zap.Int("points", len(merged)))
	return merged, nil
}

func (s *HistoryService) settlementBaseline(item model.ItemFixture) decimal.Decimal {
	v, err := s.rates.ToSettlement(item.BaselineUnitPrice, item.BaselineCurrency)
	if err != nil {
		return item.BaselineUnitPrice
	}
	return v
}
