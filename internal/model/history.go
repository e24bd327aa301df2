package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for HistoryPoint.Date.
const DateLayout = "2006-01-02"

// HistoryPoint represents the portfolio value for a single calendar day.
type HistoryPoint struct {
	Date      string          // Date in YYYY-MM-DD format
	Value     decimal.Decimal // Portfolio value in the settlement currency
	Timestamp time.Time       // When the value was observed
}

// SeriesPoint is one daily observation of an item's upstream price.
type SeriesPoint struct {
	Date  time.Time // UTC midnight
	Price decimal.Decimal
}

// ItemHistorySeries is the sparse daily price series of one item.
// An empty series means no data is available, not that the item is worthless.
type ItemHistorySeries struct {
	MarketHashName string
	Points         []SeriesPoint
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
