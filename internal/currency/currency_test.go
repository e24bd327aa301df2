package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewTable(t *testing.T) {
	t.Run("settlement has unit rate", func(t *testing.T) {
		table, err := NewTable("eur", map[string]decimal.Decimal{"usd": d("0.92"), "EUR": d("3")})
		require.NoError(t, err)

		assert.Equal(t, "EUR", table.Settlement())
		assert.Equal(t, []string{"EUR", "USD"}, table.Codes())

		v, err := table.ToSettlement(d("10"), "EUR")
		require.NoError(t, err)
		assert.True(t, v.Equal(d("10")))
	})

	t.Run("unknown settlement", func(t *testing.T) {
		_, err := NewTable("XYZ", nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)
	})

	t.Run("unknown rate code", func(t *testing.T) {
		_, err := NewTable("EUR", map[string]decimal.Decimal{"ABC": d("1")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)
	})

	t.Run("non-positive rate", func(t *testing.T) {
		_, err := NewTable("EUR", map[string]decimal.Decimal{"USD": d("0")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)
	})
}

func TestTable_ToSettlement(t *testing.T) {
	table, err := NewTable("EUR", map[string]decimal.Decimal{"USD": d("0.92"), "GBP": d("1.17")})
	require.NoError(t, err)

	v, err := table.ToSettlement(d("10"), "usd")
	require.NoError(t, err)
	assert.Equal(t, "9.2", v.String())

	v, err = table.ToSettlement(d("0.333"), "GBP")
	require.NoError(t, err)
	assert.Equal(t, "0.38961", v.String(), "result is not rounded")

	assert.True(t, table.Supports("gbp"))
	assert.False(t, table.Supports("JPY"))

	_, err = table.ToSettlement(d("1"), "JPY")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("EUR"))
	assert.NoError(t, Validate("usd"))
	assert.ErrorIs(t, Validate(""), apperrors.ErrInvalidCurrency)
	assert.ErrorIs(t, Validate("EURO"), apperrors.ErrInvalidCurrency)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.56", Format(d("1234.56"), "USD"))
	assert.Equal(t, "$0.01", Format(d("0.005"), "USD"))
	assert.Equal(t, "12.30 XYZ", Format(d("12.3"), "XYZ"))
}
