package model

import (
	"github.com/shopspring/decimal"
)

// ItemTypeCase is the fixture type whose quantities are summed into CasesCount.
const ItemTypeCase = "Case"

// ItemFixture represents one holding from the read-only item fixture.
// MarketHashName is the key used for every upstream lookup.
type ItemFixture struct {
	MarketHashName    string          `json:"marketHashName"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Type              string          `json:"type"`
	Quantity          int64           `json:"quantity"`
	BaselineUnitPrice decimal.Decimal `json:"baselineUnitPrice"`
	BaselineCurrency  string          `json:"baselineCurrency"`
	Image             string          `json:"image,omitempty"`
}

// PriceQuote is the resolved current unit price of one item.
type PriceQuote struct {
	Value    decimal.Decimal
	Currency string
}

// PriceSource records which price an enriched item was valued with.
type PriceSource string

const (
	PriceSourceLive     PriceSource = "live"
	PriceSourceBaseline PriceSource = "baseline"
)

// EnrichedItem is an ItemFixture valued in the settlement currency.
// All monetary values are rounded to two decimal places.
type EnrichedItem struct {
	ItemFixture
	UnitPrice          decimal.Decimal // live or baseline unit price
	SettlementBaseline decimal.Decimal // baseline unit price converted to settlement
	Value              decimal.Decimal // UnitPrice * Quantity
	BaselineValue      decimal.Decimal // SettlementBaseline * Quantity
	ChangeValue        decimal.Decimal
	ChangePercent      decimal.Decimal
	PriceSource        PriceSource
	MarketURL          string
}
