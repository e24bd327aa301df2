// Package app wires configuration, storage, upstream client and services
// into one application shared by the server and the CLI.
package app

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/cache"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/config"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/currency"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/database"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/fixture"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/imagestore"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/repository"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/service"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/steam"
)

// App holds the long-lived components of the process.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Rates  *currency.Table

	Prices   *service.PriceService
	Listings *service.ListingService
	Snapshot *service.SnapshotService
	History  *service.HistoryService
	Images   *service.ImageService
	System   *service.SystemService
}

// New opens the database and builds every service. client may be nil, in
// which case a Steam market client is created from cfg.
func New(cfg *config.Config, client steam.Client, clock cache.Clock, logger *zap.Logger) (*App, error) {
	rates, err := currency.NewTable(cfg.Currency.Settlement, cfg.Currency.Rates)
	if err != nil {
		return nil, fmt.Errorf("failed to build currency table: %w", err)
	}
	if !rates.Supports(cfg.Steam.ListingCurrency) {
		return nil, fmt.Errorf("no conversion rate for listing currency %s", cfg.Steam.ListingCurrency)
	}
	quoteCurrency, ok := steam.CurrencyCode(cfg.Steam.Currency)
	if !ok {
		return nil, fmt.Errorf("unknown Steam currency id %q", cfg.Steam.Currency)
	}
	if !rates.Supports(quoteCurrency) {
		return nil, fmt.Errorf("no conversion rate for Steam currency %s (%s)", cfg.Steam.Currency, quoteCurrency)
	}

	images, err := imagestore.New(cfg.Images.Dir)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = steam.NewMarketClient(
			steam.WithBaseURL(cfg.Steam.BaseURL),
			steam.WithAppID(cfg.Steam.AppID),
			steam.WithTimeout(cfg.Steam.Timeout),
		)
	}

	fixtures := fixture.NewStore(cfg.Items.Path, cfg.Currency.Settlement)
	historyRepo := repository.NewHistoryRepository(db)

	a := &App{Config: cfg, DB: db, Rates: rates}
	a.Prices = service.NewPriceService(client, service.PriceServiceConfig{
		SteamCurrency: cfg.Steam.Currency,
		QuoteCurrency: quoteCurrency,
		TTL:           cfg.Cache.PriceTTL,
		Timeout:       cfg.Steam.Timeout,
	}, clock, logger.Named("price"))
	a.Listings = service.NewListingService(client, cfg.Cache.ListingTTL, cfg.Steam.Timeout, clock, logger.Named("listing"))
	a.Snapshot = service.NewSnapshotService(
		fixtures, a.Prices, rates, historyRepo, clock,
		cfg.Steam.FetchConcurrency, cfg.Steam.AppID, logger.Named("snapshot"),
	)
	a.History = service.NewHistoryService(
		fixtures, a.Listings, rates, historyRepo, clock,
		cfg.Steam.ListingCurrency, cfg.Steam.FetchConcurrency, logger.Named("history"),
	)
	a.Images = service.NewImageService(client, a.Listings, fixtures, images, service.ImageServiceConfig{
		URLPrefix:   cfg.Images.URLPrefix,
		TTL:         cfg.Cache.ImageTTL,
		NegativeTTL: cfg.Cache.ImageNegativeTTL,
		Timeout:     cfg.Steam.Timeout,
	}, clock, logger.Named("image"))
	a.System = service.NewSystemService(db)

	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}
