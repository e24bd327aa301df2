package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/cache"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/steam"
)

// PriceService resolves live unit prices through a TTL cache in front of the
// Steam priceoverview endpoint.
type PriceService struct {
	client    steam.Client
	cache     *cache.Store[model.PriceQuote]
	currency  string // Steam numeric currency id
	quoteCode string // ISO code of the prices Steam answers with
	timeout   time.Duration
	logger    *zap.Logger
}

// PriceServiceConfig holds the settings of a PriceService.
type PriceServiceConfig struct {
	SteamCurrency string // Steam numeric currency id sent upstream
	QuoteCurrency string // ISO code of SteamCurrency, see steam.CurrencyCode
	TTL           time.Duration
	Timeout       time.Duration
}

// NewPriceService creates a PriceService. Quotes are tagged with
// QuoteCurrency; converting them to settlement is left to the caller.
func NewPriceService(client steam.Client, cfg PriceServiceConfig, clock cache.Clock, logger *zap.Logger) *PriceService {
	return &PriceService{
		client:    client,
		cache:     cache.New[model.PriceQuote](cfg.TTL, clock),
		currency:  cfg.SteamCurrency,
		quoteCode: cfg.QuoteCurrency,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// ResolveLivePrice returns the current unit price of an item.
//
// A fresh cached quote is returned without contacting upstream. Otherwise
// exactly one upstream lookup runs for the item, shared by all concurrent
// callers. Upstream failures never surface as errors: the last known quote is
// returned if there is one, and ok is false if there is none.
func (s *PriceService) ResolveLivePrice(ctx context.Context, marketHashName string) (model.PriceQuote, bool) {
	quote, err := s.cache.Resolve(ctx, marketHashName, func(ctx context.Context) (model.PriceQuote, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		overview, _, err := s.client.PriceOverview(ctx, marketHashName, s.currency)
		if err != nil {
			return model.PriceQuote{}, err
		}
		value, err := overview.UnitPrice()
		if err != nil {
			return model.PriceQuote{}, err
		}
		return model.PriceQuote{Value: value, Currency: s.quoteCode}, nil
	})
	if err == nil {
		return quote, true
	}

	stale, ok := s.cache.Get(marketHashName)
	s.logger.Warn("live price unavailable",
		zap.String("market_hash_name", marketHashName),
		zap.Bool("stale_fallback", ok),
		zap.Error(err),
	)
	if ok {
		return stale.Value, true
	}
	return model.PriceQuote{}, false
}

// Passthrough returns the raw priceoverview payload for an arbitrary Steam
// currency id. It bypasses the cache.
func (s *PriceService) Passthrough(ctx context.Context, marketHashName, currency string) ([]byte, error) {
	if currency == "" {
		currency = s.currency
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, raw, err := s.client.PriceOverview(ctx, marketHashName, currency)
	if raw != nil {
		// a payload Steam answered with is forwarded even if it did not parse
		return raw, nil
	}
	return nil, err
}
