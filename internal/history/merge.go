// Package history merges independent per-item daily price series into one
// gap-free portfolio value series.
package history

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

// MaxPoints bounds the persisted history log.
const MaxPoints = 90

// Input is one item's contribution to a merge.
type Input struct {
	Quantity int64
	// Baseline is the holding's baseline value (unit baseline * quantity) in
	// the settlement currency. It stands in for the item when Points is empty.
	Baseline decimal.Decimal
	Points   []model.SeriesPoint
}

// Normalize sorts points by day and keeps one point per UTC day, the last
// one in input order for that day.
func Normalize(points []model.SeriesPoint) []model.SeriesPoint {
	byDay := make(map[string]model.SeriesPoint, len(points))
	for _, p := range points {
		day := model.Day(p.Date)
		byDay[day.Format(model.DateLayout)] = model.SeriesPoint{Date: day, Price: p.Price}
	}

	out := make([]model.SeriesPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Merge combines the inputs into one value per calendar day.
//
// Every item's quantity-scaled price is carried forward across days it has
// no point for, and a day's value is the sum over all items that have a
// point on or before it. Items without any points add their baseline value
// to every day. When no item has points and fallback is positive, the result
// is a single point for the day of now. The most recent limit points are
// returned in ascending date order; limit <= 0 means MaxPoints.
//
// The output depends only on the set of inputs, not their order.
func Merge(inputs []Input, fallback decimal.Decimal, now time.Time, limit int) []model.HistoryPoint {
	if limit <= 0 {
		limit = MaxPoints
	}

	series := make([]map[string]decimal.Decimal, 0, len(inputs))
	offset := decimal.Zero
	var first, last time.Time

	for _, in := range inputs {
		if len(in.Points) == 0 {
			offset = offset.Add(in.Baseline)
			continue
		}
		qty := decimal.NewFromInt(in.Quantity)
		values := make(map[string]decimal.Decimal, len(in.Points))
		for _, p := range in.Points {
			day := model.Day(p.Date)
			values[day.Format(model.DateLayout)] = p.Price.Mul(qty)
			if first.IsZero() || day.Before(first) {
				first = day
			}
			if day.After(last) {
				last = day
			}
		}
		series = append(series, values)
	}

	if len(series) == 0 {
		if fallback.IsPositive() {
			return []model.HistoryPoint{{
				Date:      model.Day(now).Format(model.DateLayout),
				Value:     fallback.Round(2),
				Timestamp: now.UTC(),
			}}
		}
		return []model.HistoryPoint{}
	}

	carried := make([]decimal.Decimal, len(series))
	started := make([]bool, len(series))
	points := []model.HistoryPoint{}

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format(model.DateLayout)
		total := offset
		for i, values := range series {
			if v, ok := values[key]; ok {
				carried[i] = v
				started[i] = true
			}
			if started[i] {
				total = total.Add(carried[i])
			}
		}
		points = append(points, model.HistoryPoint{
			Date:      key,
			Value:     total.Round(2),
			Timestamp: day,
		})
	}

	return Latest(points, limit)
}

// Latest returns the last n points of an ascending series.
func Latest(points []model.HistoryPoint, n int) []model.HistoryPoint {
	if n <= 0 || len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}
