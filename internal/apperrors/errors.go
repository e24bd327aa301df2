package apperrors

import "errors"

// Lookup errors represent resources that could not be resolved.
var (
	// ErrImageNotFound indicates that no image reference could be extracted for an item.
	ErrImageNotFound = errors.New("image not found")

	// ErrItemNotFound indicates that a market hash name is not part of the item fixture.
	ErrItemNotFound = errors.New("item not found")

	// ErrPriceNotFound indicates that an upstream payload carried no usable price field.
	ErrPriceNotFound = errors.New("price not found")

	// ErrPriceHistoryNotFound indicates that a listing document carried no price series.
	ErrPriceHistoryNotFound = errors.New("price history not found")
)

// Validation errors represent client-input problems on the downstream surface.
var (
	ErrMissingMarketHashName = errors.New("marketHashName parameter is required")
	ErrInvalidLimit          = errors.New("limit must be a positive integer")
	ErrInvalidCurrency       = errors.New("invalid currency")
	ErrUnsupportedAppID      = errors.New("unsupported appid")
	ErrInvalidFixture        = errors.New("invalid item fixture")
)

// Upstream errors represent failures of the external market source.
// They are always degraded to a fallback value inside the core; only the
// passthrough and image endpoints surface them as 502.
var (
	// ErrUpstreamUnavailable indicates a network failure, timeout or non-success status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedPayload indicates an upstream document that could not be interpreted.
	ErrMalformedPayload = errors.New("malformed upstream payload")
)

// Operation failure errors represent local-storage failures.
var (
	ErrFixtureNotLoaded          = errors.New("item fixture not loaded")
	ErrFailedToPersistHistory    = errors.New("failed to persist history")
	ErrFailedToRetrieveHistory   = errors.New("failed to retrieve history")
	ErrFailedToPersistImage      = errors.New("failed to persist image")
	ErrFailedToBuildSnapshot     = errors.New("failed to build portfolio snapshot")
	ErrFailedToRebuildHistory    = errors.New("failed to rebuild history")
	ErrFailedToRetrievePriceData = errors.New("failed to retrieve price data")
)
