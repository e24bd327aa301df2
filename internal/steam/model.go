package steam

import (
	"encoding/json"

	"github.com/PaesslerAG/jsonpath"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
)

// PriceOverview is the parsed priceoverview payload.
//
// Fields:
//   - Success: upstream success flag
//   - LowestPrice: lowest current listing, localized (e.g. "1.234,56€")
//   - MedianPrice: median sale price over the last day, localized
//   - Volume: units sold over the last day
type PriceOverview struct {
	Success     bool
	LowestPrice string
	MedianPrice string
	Volume      string
}

// Image is a downloaded image and its declared content type.
type Image struct {
	Data        []byte
	ContentType string
}

// ParsePriceOverview decodes a raw priceoverview payload. Steam omits fields
// it has no data for, so every field is looked up independently.
func ParsePriceOverview(data []byte) (PriceOverview, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return PriceOverview{}, errors.Wrapf(apperrors.ErrMalformedPayload, "decode priceoverview: %v", err)
	}

	return PriceOverview{
		Success:     lookupBool(doc, "$.success"),
		LowestPrice: lookupString(doc, "$.lowest_price"),
		MedianPrice: lookupString(doc, "$.median_price"),
		Volume:      lookupString(doc, "$.volume"),
	}, nil
}

// UnitPrice returns the lowest price, falling back to the median price.
func (p PriceOverview) UnitPrice() (decimal.Decimal, error) {
	if !p.Success {
		return decimal.Zero, errors.Wrap(apperrors.ErrMalformedPayload, "priceoverview reported success=false")
	}
	for _, raw := range []string{p.LowestPrice, p.MedianPrice} {
		if raw == "" {
			continue
		}
		return ParsePrice(raw)
	}
	return decimal.Zero, apperrors.ErrPriceNotFound
}

func lookup(doc any, path string) any {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil
	}
	// jsonpath may wrap a single match in a list
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		v = list[0]
	}
	return v
}

func lookupString(doc any, path string) string {
	s, _ := lookup(doc, path).(string)
	return s
}

func lookupBool(doc any, path string) bool {
	switch v := lookup(doc, path).(type) {
	case bool:
		return v
	case float64:
		// older payloads encode success as 1
		return v == 1
	}
	return false
}
