package service

import (
	"context"
	"errors"
	"path"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/cache"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/fixture"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/imagestore"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/steam"
)

// ImageService resolves item images to references served from the local
// image directory, downloading and persisting them on first use.
type ImageService struct {
	client    steam.Client
	listings  *ListingService
	fixtures  *fixture.Store
	store     *imagestore.Store
	urlPrefix string
	timeout   time.Duration
	logger    *zap.Logger

	records   *cache.Store[model.ImageRecord] // persisted references, IMAGE_CACHE_TTL
	fallbacks *cache.Store[string]            // unpersisted external URLs, negative TTL
	misses    *cache.Store[error]             // failed resolutions, negative TTL
	group     singleflight.Group
}

// ImageServiceConfig holds the settings of an ImageService.
type ImageServiceConfig struct {
	URLPrefix   string // web path the image directory is served under
	TTL         time.Duration
	NegativeTTL time.Duration
	Timeout     time.Duration
}

// NewImageService creates an ImageService. fixtures may be nil; when set, an
// item's fixture image URL is downloaded directly instead of being extracted
// from its listing.
func NewImageService(
	client steam.Client,
	listings *ListingService,
	fixtures *fixture.Store,
	store *imagestore.Store,
	cfg ImageServiceConfig,
	clock cache.Clock,
	logger *zap.Logger,
) *ImageService {
	return &ImageService{
		client:    client,
		listings:  listings,
		fixtures:  fixtures,
		store:     store,
		urlPrefix: cfg.URLPrefix,
		timeout:   cfg.Timeout,
		logger:    logger,
		records:   cache.New[model.ImageRecord](cfg.TTL, clock),
		fallbacks: cache.New[string](cfg.NegativeTTL, clock),
		misses:    cache.New[error](cfg.NegativeTTL, clock),
	}
}

// ResolveItemImage returns a reference to the image of an item.
//
// A file in the image directory is authoritative and is returned whatever
// the in-memory state. Otherwise a fresh in-memory result is reused, and only
// then is the listing fetched and the image downloaded. When the download or
// the write fails, the external URL is returned instead.
//
// Returns apperrors.ErrUpstreamUnavailable when the listing cannot be
// fetched and apperrors.ErrImageNotFound when it carries no image. Both are
// remembered for the negative freshness window. A caller whose ctx ends
// first gets ctx.Err() and nothing is remembered for it.
func (s *ImageService) ResolveItemImage(ctx context.Context, marketHashName string) (string, error) {
	if ref, ok := s.fromDisk(marketHashName); ok {
		return ref, nil
	}

	if rec, ok := s.records.Fresh(marketHashName); ok {
		return rec.Reference, nil
	}
	if ref, ok := s.fallbacks.Fresh(marketHashName); ok {
		return ref, nil
	}
	if err, ok := s.misses.Fresh(marketHashName); ok {
		return "", err
	}

	// the shared fetch outlives any single caller; it is bounded by the
	// listing and download timeouts instead
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(marketHashName, func() (any, error) {
		ref, err := s.fetch(fetchCtx, marketHashName)
		if err != nil {
			s.misses.Set(marketHashName, err)
			return nil, err
		}
		return ref, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// fromDisk probes the image directory, trying the extension recorded for
// the item first.
func (s *ImageService) fromDisk(marketHashName string) (string, bool) {
	var preferred string
	if rec, ok := s.records.Get(marketHashName); ok {
		preferred = rec.Value.Ext
	}

	fileName, ext, found, err := s.store.Find(marketHashName, preferred)
	if err != nil {
		s.logger.Warn("failed to probe image directory", zap.String("market_hash_name", marketHashName), zap.Error(err))
		return "", false
	}
	if !found {
		return "", false
	}

	ref := s.reference(fileName)
	s.records.Set(marketHashName, model.ImageRecord{Reference: ref, Ext: ext})
	return ref, true
}

func (s *ImageService) fetch(ctx context.Context, marketHashName string) (string, error) {
	imageURL, err := s.sourceURL(ctx, marketHashName)
	if err != nil {
		return "", err
	}

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	img, err := s.client.DownloadImage(dctx, imageURL)
	if err != nil {
		s.logger.Warn("image download failed, serving external URL",
			zap.String("market_hash_name", marketHashName),
			zap.Error(err),
		)
		s.fallbacks.Set(marketHashName, imageURL)
		return imageURL, nil
	}

	fileName, err := s.store.Save(marketHashName, img.Data, img.ContentType)
	if err != nil {
		s.logger.Warn("image persist failed, serving external URL",
			zap.String("market_hash_name", marketHashName),
			zap.Error(errors.Join(apperrors.ErrFailedToPersistImage, err)),
		)
		s.fallbacks.Set(marketHashName, imageURL)
		return imageURL, nil
	}

	ref := s.reference(fileName)
	s.records.Set(marketHashName, model.ImageRecord{
		Reference: ref,
		Ext:       imagestore.ExtensionForContentType(img.ContentType),
	})
	s.logger.Debug("image cached", zap.String("market_hash_name", marketHashName), zap.String("file", fileName))
	return ref, nil
}

// sourceURL returns the external image URL of an item: its fixture image if
// it has one, otherwise the URL embedded in its listing.
func (s *ImageService) sourceURL(ctx context.Context, marketHashName string) (string, error) {
	if s.fixtures != nil {
		if item, err := s.fixtures.Lookup(marketHashName); err == nil && item.Image != "" {
			return item.Image, nil
		}
	}

	doc, err := s.listings.Listing(ctx, marketHashName)
	if err != nil {
		s.logger.Warn("listing unavailable, no image", zap.String("market_hash_name", marketHashName), zap.Error(err))
		if errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			return "", err
		}
		return "", errors.Join(apperrors.ErrUpstreamUnavailable, err)
	}

	imageURL, ok := steam.ExtractImageURL(doc)
	if !ok {
		return "", apperrors.ErrImageNotFound
	}
	return imageURL, nil
}

func (s *ImageService) reference(fileName string) string {
	return path.Join(s.urlPrefix, fileName)
}
