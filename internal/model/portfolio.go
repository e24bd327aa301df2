package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioTotals aggregates the enriched items of a snapshot.
// Monetary totals are sums of the unrounded per-item figures, rounded once.
type PortfolioTotals struct {
	Value         decimal.Decimal
	Baseline      decimal.Decimal
	ChangeValue   decimal.Decimal
	ChangePercent decimal.Decimal
	ItemsCount    int
	CasesCount    int64
}

// PortfolioSnapshot is the valuation of every fixture item at GeneratedAt.
// Items keep the order of the fixture.
type PortfolioSnapshot struct {
	GeneratedAt time.Time
	Totals      PortfolioTotals
	Items       []EnrichedItem
}
