// Package fixture loads the read-only item fixture: the list of holdings with
// their baseline prices.
package fixture

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/currency"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

// fileTmp mirrors the YAML file; numbers are kept as strings so they can be
// parsed into decimals without float rounding.
type fileTmp struct {
	Items []itemTmp `yaml:"items"`
}

type itemTmp struct {
	MarketHashName    string `yaml:"marketHashName"`
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Type              string `yaml:"type"`
	Quantity          int64  `yaml:"quantity"`
	BaselineUnitPrice string `yaml:"baselineUnitPrice"`
	BaselineCurrency  string `yaml:"baselineCurrency"`
	Image             string `yaml:"image,omitempty"`
}

// Parse decodes and validates a fixture document. defaultCurrency is used
// for items that do not name a baseline currency.
func Parse(data []byte, defaultCurrency string) ([]model.ItemFixture, error) {
	var tmp fileTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFixture, err)
	}

	seen := make(map[string]bool, len(tmp.Items))
	items := make([]model.ItemFixture, 0, len(tmp.Items))
	for i, it := range tmp.Items {
		name := strings.TrimSpace(it.MarketHashName)
		if name == "" {
			return nil, fmt.Errorf("%w: item %d has no marketHashName", apperrors.ErrInvalidFixture, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate marketHashName %q", apperrors.ErrInvalidFixture, name)
		}
		seen[name] = true

		if it.Quantity < 0 {
			return nil, fmt.Errorf("%w: %q has negative quantity", apperrors.ErrInvalidFixture, name)
		}

		price := decimal.Zero
		if it.BaselineUnitPrice != "" {
			var err error
			price, err = decimal.NewFromString(it.BaselineUnitPrice)
			if err != nil {
				return nil, fmt.Errorf("%w: %q baselineUnitPrice: %v", apperrors.ErrInvalidFixture, name, err)
			}
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: %q has negative baselineUnitPrice", apperrors.ErrInvalidFixture, name)
		}

		cur := strings.ToUpper(it.BaselineCurrency)
		if cur == "" {
			cur = strings.ToUpper(defaultCurrency)
		}
		if err := currency.Validate(cur); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidFixture, name, err)
		}

		display := it.Name
		if display == "" {
			display = name
		}

		items = append(items, model.ItemFixture{
			MarketHashName:    name,
			Name:              display,
			Description:       it.Description,
			Type:              it.Type,
			Quantity:          it.Quantity,
			BaselineUnitPrice: price,
			BaselineCurrency:  cur,
			Image:             it.Image,
		})
	}
	return items, nil
}

// Store holds the fixture for the lifetime of the process. A failed load is
// retried on the next access; once loaded the items never change.
type Store struct {
	path            string
	defaultCurrency string

	mu     sync.Mutex
	items  []model.ItemFixture
	loaded bool
}

// NewStore creates a Store reading path on first use.
func NewStore(path, defaultCurrency string) *Store {
	return &Store{path: path, defaultCurrency: defaultCurrency}
}

// NewStaticStore creates an already-loaded Store, mainly for tests.
func NewStaticStore(items []model.ItemFixture) *Store {
	return &Store{items: items, loaded: true}
}

// Items returns the fixture, loading it if it was never loaded successfully.
// The returned slice must not be modified.
func (s *Store) Items() ([]model.ItemFixture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.items, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFixtureNotLoaded, err)
	}
	items, err := Parse(data, s.defaultCurrency)
	if err != nil {
		return nil, err
	}
	s.items = items
	s.loaded = true
	return s.items, nil
}

// Lookup returns the fixture item with the given market hash name.
func (s *Store) Lookup(marketHashName string) (model.ItemFixture, error) {
	items, err := s.Items()
	if err != nil {
		return model.ItemFixture{}, err
	}
	for _, it := range items {
		if it.MarketHashName == marketHashName {
			return it, nil
		}
	}
	return model.ItemFixture{}, apperrors.ErrItemNotFound
}
