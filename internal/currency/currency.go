// Package currency normalizes amounts into the settlement currency using a
// fixed rate table.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
)

// Table converts amounts into its settlement currency. Rates are the value
// of one unit of the keyed currency expressed in settlement units.
type Table struct {
	settlement string
	rates      map[string]decimal.Decimal
}

// NewTable builds a Table. The settlement currency always has rate 1.
// Every code must be a known ISO 4217 currency.
func NewTable(settlement string, rates map[string]decimal.Decimal) (*Table, error) {
	settlement = strings.ToUpper(settlement)
	if err := Validate(settlement); err != nil {
		return nil, err
	}

	t := &Table{
		settlement: settlement,
		rates:      map[string]decimal.Decimal{settlement: decimal.NewFromInt(1)},
	}
	for code, rate := range rates {
		code = strings.ToUpper(code)
		if err := Validate(code); err != nil {
			return nil, err
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: rate for %s must be positive", apperrors.ErrInvalidCurrency, code)
		}
		if code == settlement {
			continue
		}
		t.rates[code] = rate
	}
	return t, nil
}

// Settlement returns the settlement currency code.
func (t *Table) Settlement() string { return t.settlement }

// Supports reports whether code can be converted.
func (t *Table) Supports(code string) bool {
	_, ok := t.rates[strings.ToUpper(code)]
	return ok
}

// Codes returns the convertible currency codes, sorted.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ToSettlement converts amount from code into the settlement currency.
// The result is not rounded.
func (t *Table) ToSettlement(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	rate, ok := t.rates[strings.ToUpper(code)]
	if !ok {
		return amount, fmt.Errorf("%w: no rate for %q", apperrors.ErrInvalidCurrency, code)
	}
	return amount.Mul(rate), nil
}

// Validate checks that code is a known ISO 4217 currency.
func Validate(code string) error {
	if code == "" || money.GetCurrency(strings.ToUpper(code)) == nil {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidCurrency, code)
	}
	return nil
}

// Format renders amount in code with the currency's grapheme and separators,
// e.g. "$1,234.56" for USD.
func Format(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}
