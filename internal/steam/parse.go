package steam

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

var (
	ogImagePattern      = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)["']`)
	economyImagePattern = regexp.MustCompile(`https://[^"\\]*economy/image/[^"\\]*`)
	priceHistoryPattern = regexp.MustCompile(`(?s)var\s+line1\s*=\s*(\[.*?\]);`)
	timezoneSuffix      = regexp.MustCompile(`\s+[+-]\d+$`)
)

// historyDateLayouts are tried in order. Steam writes "Nov 27 2013 01: +0";
// the offset is stripped before parsing.
var historyDateLayouts = []string{
	"Jan 02 2006 15:",
	"Jan 2 2006 15:",
	"Jan 02 2006",
	"Jan 2 2006",
	model.DateLayout,
	time.RFC3339,
}

// ParsePrice converts a localized price string into a decimal.
// Currency glyphs and spaces are stripped, "--" cents become "00", and the
// decimal separator is whichever of ',' or '.' comes last. A lone ',' or '.'
// followed by exactly three digits is a thousands separator.
func ParsePrice(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), "--", "00")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.Trim(cleaned, ".,")
	if cleaned == "" {
		return decimal.Zero, errors.Wrapf(apperrors.ErrMalformedPayload, "no digits in price %q", raw)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 || len(cleaned)-lastComma-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(cleaned, ".") > 1 || len(cleaned)-lastDot-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errors.Wrapf(apperrors.ErrMalformedPayload, "parse price %q: %v", raw, err)
	}
	return value, nil
}

// ExtractImageURL finds the item image in a listing document: the og:image
// meta tag first, then any economy image URL in the raw markup.
func ExtractImageURL(document string) (string, bool) {
	if m := ogImagePattern.FindStringSubmatch(document); len(m) > 1 && m[1] != "" {
		return DecodeImageURL(m[1]), true
	}
	if m := economyImagePattern.FindString(document); m != "" {
		return DecodeImageURL(m), true
	}
	return "", false
}

// DecodeImageURL removes the escaping Steam applies to URLs embedded in
// script literals and attributes.
func DecodeImageURL(value string) string {
	if value == "" {
		return ""
	}
	var decoded string
	quoted := `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	if err := json.Unmarshal([]byte(quoted), &decoded); err != nil {
		decoded = strings.NewReplacer(`\/`, `/`, `\u0026`, `&`).Replace(value)
	}
	return html.UnescapeString(decoded)
}

// ExtractPriceHistory decodes the embedded "var line1=[...]" series of a
// listing document. Points whose date or price does not parse are dropped.
// Several points may share a calendar day.
func ExtractPriceHistory(document string) ([]model.SeriesPoint, error) {
	m := priceHistoryPattern.FindStringSubmatch(document)
	if len(m) < 2 {
		return nil, apperrors.ErrPriceHistoryNotFound
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal([]byte(m[1]), &rows); err != nil {
		return nil, errors.Wrapf(apperrors.ErrMalformedPayload, "decode price history: %v", err)
	}

	points := make([]model.SeriesPoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		var dateStr string
		if err := json.Unmarshal(row[0], &dateStr); err != nil {
			continue
		}
		date, err := ParseHistoryDate(dateStr)
		if err != nil {
			continue
		}
		price, err := parseHistoryPrice(row[1])
		if err != nil {
			continue
		}
		points = append(points, model.SeriesPoint{Date: date, Price: price})
	}
	return points, nil
}

// ParseHistoryDate parses a price history date and truncates it to its UTC day.
func ParseHistoryDate(raw string) (time.Time, error) {
	s := timezoneSuffix.ReplaceAllString(strings.TrimSpace(raw), "")
	for _, layout := range historyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized history date %q", raw)
}

func parseHistoryPrice(raw json.RawMessage) (decimal.Decimal, error) {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return decimal.NewFromString(number.String())
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return decimal.Zero, err
	}
	return ParsePrice(text)
}
