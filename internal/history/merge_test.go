package history_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/history"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

var d0 = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return d0.AddDate(0, 0, n) }

func pt(n int, price string) model.SeriesPoint {
	return model.SeriesPoint{Date: day(n), Price: decimal.RequireFromString(price)}
}

func values(points []model.HistoryPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Date + "=" + p.Value.StringFixed(2)
	}
	return out
}

func TestMerge(t *testing.T) {
	now := day(30).Add(15 * time.Hour)

	t.Run("forward-fills each item across gaps", func(t *testing.T) {
		inputs := []history.Input{
			{Quantity: 1, Points: []model.SeriesPoint{pt(0, "10")}},
			{Quantity: 1, Points: []model.SeriesPoint{pt(0, "5"), pt(2, "7")}},
		}

		got := history.Merge(inputs, decimal.Zero, now, 0)

		assert.Equal(t, []string{
			"2024-03-01=15.00",
			"2024-03-02=15.00",
			"2024-03-03=17.00",
		}, values(got))
	})

	t.Run("scales by quantity", func(t *testing.T) {
		inputs := []history.Input{
			{Quantity: 3, Points: []model.SeriesPoint{pt(0, "1.5")}},
			{Quantity: 2, Points: []model.SeriesPoint{pt(0, "0.25")}},
		}

		got := history.Merge(inputs, decimal.Zero, now, 0)

		assert.Equal(t, []string{"2024-03-01=5.00"}, values(got))
	})

	t.Run("items start contributing at their first point", func(t *testing.T) {
		inputs := []history.Input{
			{Quantity: 1, Points: []model.SeriesPoint{pt(0, "10")}},
			{Quantity: 1, Points: []model.SeriesPoint{pt(2, "4")}},
		}

		got := history.Merge(inputs, decimal.Zero, now, 0)

		assert.Equal(t, []string{
			"2024-03-01=10.00",
			"2024-03-02=10.00",
			"2024-03-03=14.00",
		}, values(got))
	})

	t.Run("items without series add their baseline to every point", func(t *testing.T) {
		inputs := []history.Input{
			{Quantity: 1, Points: []model.SeriesPoint{pt(0, "10"), pt(1, "12")}},
			{Quantity: 4, Baseline: decimal.RequireFromString("2.50"), Points: nil},
		}

		got := history.Merge(inputs, decimal.RequireFromString("999"), now, 0)

		assert.Equal(t, []string{"2024-03-01=12.50", "2024-03-02=14.50"}, values(got))
	})

	t.Run("seeds today with the fallback when nothing has series", func(t *testing.T) {
		inputs := []history.Input{{Quantity: 1, Baseline: decimal.NewFromInt(3)}}

		got := history.Merge(inputs, decimal.RequireFromString("42.123"), now, 0)

		require.Len(t, got, 1)
		assert.Equal(t, "2024-03-31", got[0].Date)
		assert.Equal(t, "42.12", got[0].Value.StringFixed(2))
		assert.Equal(t, now, got[0].Timestamp)
	})

	t.Run("empty without series or fallback", func(t *testing.T) {
		got := history.Merge(nil, decimal.Zero, now, 0)
		assert.NotNil(t, got)
		assert.Empty(t, got)

		got = history.Merge([]history.Input{{Quantity: 1}}, decimal.NewFromInt(-1), now, 0)
		assert.Empty(t, got)
	})

	t.Run("keeps the most recent points", func(t *testing.T) {
		points := make([]model.SeriesPoint, 0, 100)
		for i := range 100 {
			points = append(points, pt(i, "1"))
		}

		got := history.Merge([]history.Input{{Quantity: 1, Points: points}}, decimal.Zero, now, 0)

		require.Len(t, got, history.MaxPoints)
		assert.Equal(t, day(10).Format(model.DateLayout), got[0].Date)
		assert.Equal(t, day(99).Format(model.DateLayout), got[len(got)-1].Date)
	})

	t.Run("dates strictly increase with no gaps", func(t *testing.T) {
		inputs := []history.Input{
			{Quantity: 1, Points: []model.SeriesPoint{pt(9, "1"), pt(0, "2"), pt(4, "3")}},
			{Quantity: 2, Points: []model.SeriesPoint{pt(6, "1"), pt(2, "1")}},
		}

		got := history.Merge(inputs, decimal.Zero, now, 0)

		require.Len(t, got, 10)
		for i, p := range got {
			assert.Equal(t, day(i).Format(model.DateLayout), p.Date)
		}
	})
}

func TestMergeIsDeterministic(t *testing.T) {
	now := day(40)
	inputs := []history.Input{
		{Quantity: 1, Points: []model.SeriesPoint{pt(0, "10"), pt(5, "11.5")}},
		{Quantity: 3, Points: []model.SeriesPoint{pt(2, "0.33"), pt(3, "0.35"), pt(7, "0.31")}},
		{Quantity: 2, Baseline: decimal.RequireFromString("4.2")},
		{Quantity: 7, Points: []model.SeriesPoint{pt(1, "1.01")}},
	}

	first := history.Merge(inputs, decimal.NewFromInt(5), now, 0)
	second := history.Merge(inputs, decimal.NewFromInt(5), now, 0)
	assert.Equal(t, values(first), values(second))

	rng := rand.New(rand.NewSource(1))
	for range 10 {
		shuffled := append([]history.Input(nil), inputs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, values(first), values(history.Merge(shuffled, decimal.NewFromInt(5), now, 0)))
	}
}

func TestNormalize(t *testing.T) {
	points := []model.SeriesPoint{
		{Date: day(2).Add(3 * time.Hour), Price: decimal.NewFromInt(5)},
		{Date: day(0).Add(1 * time.Hour), Price: decimal.NewFromInt(1)},
		{Date: day(2).Add(9 * time.Hour), Price: decimal.NewFromInt(6)},
	}

	got := history.Normalize(points)

	require.Len(t, got, 2)
	assert.Equal(t, day(0), got[0].Date)
	assert.Equal(t, day(2), got[1].Date)
	assert.True(t, got[1].Price.Equal(decimal.NewFromInt(6)), "last observation of a day wins")
}

func TestLatest(t *testing.T) {
	points := []model.HistoryPoint{{Date: "a"}, {Date: "b"}, {Date: "c"}}

	assert.Len(t, history.Latest(points, 2), 2)
	assert.Equal(t, "b", history.Latest(points, 2)[0].Date)
	assert.Len(t, history.Latest(points, 5), 3)
	assert.Len(t, history.Latest(points, 0), 3)
}
