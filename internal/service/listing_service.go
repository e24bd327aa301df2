package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/cache"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/steam"
)

// ListingService memoizes listing documents. The same document feeds both
// image extraction and price history extraction, so one fetch per item per
// freshness window serves both.
type ListingService struct {
	client  steam.Client
	cache   *cache.Store[string]
	timeout time.Duration
	logger  *zap.Logger
}

// NewListingService creates a ListingService with the given freshness window.
func NewListingService(client steam.Client, ttl, timeout time.Duration, clock cache.Clock, logger *zap.Logger) *ListingService {
	return &ListingService{
		client:  client,
		cache:   cache.New[string](ttl, clock),
		timeout: timeout,
		logger:  logger,
	}
}

// Listing returns the listing document of an item.
//
// When a refetch fails and an older document is cached, the older document is
// returned instead of the error.
func (s *ListingService) Listing(ctx context.Context, marketHashName string) (string, error) {
	doc, err := s.cache.Resolve(ctx, marketHashName, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.client.ListingPage(ctx, marketHashName)
	})
	if err == nil {
		return doc, nil
	}

	if stale, ok := s.cache.Get(marketHashName); ok {
		s.logger.Warn("listing refetch failed, serving stale document",
			zap.String("market_hash_name", marketHashName),
			zap.Error(err),
		)
		return stale.Value, nil
	}
	return "", err
}
