package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

// ItemBuilder provides a fluent interface for creating test fixture items.
//
// Example usage:
//
//	// Simple creation with defaults
//	item := testutil.NewItem("Kilowatt Case").Build()
//
//	// Customized item
//	item := testutil.NewItem("AK-47 | Redline (Field-Tested)").
//	    WithType("Rifle").
//	    WithQuantity(3).
//	    WithBaseline("12.50", "USD").
//	    Build()
type ItemBuilder struct {
	item model.ItemFixture
}

// NewItem creates an ItemBuilder for a case held once at 1.00 EUR.
func NewItem(marketHashName string) *ItemBuilder {
	return &ItemBuilder{item: model.ItemFixture{
		MarketHashName:    marketHashName,
		Name:              marketHashName,
		Description:       "Test item",
		Type:              model.ItemTypeCase,
		Quantity:          1,
		BaselineUnitPrice: decimal.NewFromInt(1),
		BaselineCurrency:  "EUR",
	}}
}

// WithName sets a custom display name.
func (b *ItemBuilder) WithName(name string) *ItemBuilder {
	b.item.Name = name
	return b
}

// WithType sets a custom item type.
func (b *ItemBuilder) WithType(itemType string) *ItemBuilder {
	b.item.Type = itemType
	return b
}

// WithQuantity sets the held quantity.
func (b *ItemBuilder) WithQuantity(qty int64) *ItemBuilder {
	b.item.Quantity = qty
	return b
}

// WithBaseline sets the baseline unit price and its currency.
func (b *ItemBuilder) WithBaseline(price, currency string) *ItemBuilder {
	b.item.BaselineUnitPrice = decimal.RequireFromString(price)
	b.item.BaselineCurrency = currency
	return b
}

// WithImage sets a known image URL.
func (b *ItemBuilder) WithImage(imageURL string) *ItemBuilder {
	b.item.Image = imageURL
	return b
}

// Build returns the item.
func (b *ItemBuilder) Build() model.ItemFixture {
	return b.item
}

// InsertHistoryPoint writes one history row directly, bypassing the repository.
func InsertHistoryPoint(t *testing.T, db *sql.DB, date, value string) {
	t.Helper()

	query := `
		INSERT INTO history_point (id, date, value, recorded_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.Exec(query, uuid.New().String(), date, value, date+"T12:00:00Z")
	if err != nil {
		t.Fatalf("Failed to create test history point: %v", err)
	}
}

// DailyPoints returns n consecutive daily points starting at start, valued
// 1, 2, 3 and so on.
func DailyPoints(start time.Time, n int) []model.HistoryPoint {
	points := make([]model.HistoryPoint, n)
	for i := range points {
		day := model.Day(start).AddDate(0, 0, i)
		points[i] = model.HistoryPoint{
			Date:      day.Format(model.DateLayout),
			Value:     decimal.NewFromInt(int64(i + 1)),
			Timestamp: day,
		}
	}
	return points
}
