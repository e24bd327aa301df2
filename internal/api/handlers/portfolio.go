package handlers

import (
	"net/http"
	"time"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api/response"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/service"
)

// PortfolioHandler handles portfolio-related HTTP requests
type PortfolioHandler struct {
	snapshotService *service.SnapshotService
	settlement      string
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(snapshotService *service.SnapshotService, settlement string) *PortfolioHandler {
	return &PortfolioHandler{
		snapshotService: snapshotService,
		settlement:      settlement,
	}
}

// PortfolioResponse represents the portfolio snapshot response
type PortfolioResponse struct {
	Success     bool                    `json:"success"`
	GeneratedAt time.Time               `json:"generatedAt"`
	LastUpdated time.Time               `json:"lastUpdated"`
	Currency    string                  `json:"currency"`
	Totals      PortfolioTotalsResponse `json:"totals"`
	Items       []PortfolioItemResponse `json:"items"`
}

// PortfolioTotalsResponse represents the aggregate figures of a snapshot
type PortfolioTotalsResponse struct {
	Value         float64 `json:"value"`
	Baseline      float64 `json:"baseline"`
	ChangeValue   float64 `json:"changeValue"`
	ChangePercent float64 `json:"changePercent"`
	ItemsCount    int     `json:"itemsCount"`
	CasesCount    int64   `json:"casesCount"`
}

// PortfolioItemResponse represents one valued holding. Baseline figures are
// in the settlement currency; the Fixture ones are as written in the fixture.
type PortfolioItemResponse struct {
	MarketHashName           string  `json:"marketHashName"`
	Name                     string  `json:"name"`
	Description              string  `json:"description"`
	Type                     string  `json:"type"`
	Quantity                 int64   `json:"quantity"`
	BaselineUnitPrice        float64 `json:"baselineUnitPrice"`
	BaselineCurrency         string  `json:"baselineCurrency"`
	FixtureBaselineUnitPrice float64 `json:"fixtureBaselineUnitPrice"`
	FixtureBaselineCurrency  string  `json:"fixtureBaselineCurrency"`
	UnitPrice                float64 `json:"unitPrice"`
	Value                    float64 `json:"value"`
	BaselineValue            float64 `json:"baselineValue"`
	ChangeValue              float64 `json:"changeValue"`
	ChangePercent            float64 `json:"changePercent"`
	PriceSource              string  `json:"priceSource"`
	MarketURL                string  `json:"marketUrl"`
	Image                    string  `json:"image,omitempty"`
}

// Portfolio builds a fresh snapshot of every holding.
//
// Endpoint: GET /api/portfolio
// Response: 200 OK with PortfolioResponse
// Error: 500 Internal Server Error if the fixture cannot be loaded or the
// day's total cannot be recorded
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshotService.BuildSnapshot(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to build portfolio snapshot", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, newPortfolioResponse(snapshot, h.settlement))
}

func newPortfolioResponse(s model.PortfolioSnapshot, settlement string) PortfolioResponse {
	items := make([]PortfolioItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = PortfolioItemResponse{
			MarketHashName:           it.MarketHashName,
			Name:                     it.Name,
			Description:              it.Description,
			Type:                     it.Type,
			Quantity:                 it.Quantity,
			BaselineUnitPrice:        it.SettlementBaseline.InexactFloat64(),
			BaselineCurrency:         settlement,
			FixtureBaselineUnitPrice: it.BaselineUnitPrice.InexactFloat64(),
			FixtureBaselineCurrency:  it.BaselineCurrency,
			UnitPrice:                it.UnitPrice.InexactFloat64(),
			Value:                    it.Value.InexactFloat64(),
			BaselineValue:            it.BaselineValue.InexactFloat64(),
			ChangeValue:              it.ChangeValue.InexactFloat64(),
			ChangePercent:            it.ChangePercent.InexactFloat64(),
			PriceSource:              string(it.PriceSource),
			MarketURL:                it.MarketURL,
			Image:                    it.Image,
		}
	}

	return PortfolioResponse{
		Success:     true,
		GeneratedAt: s.GeneratedAt,
		LastUpdated: s.GeneratedAt,
		Currency:    settlement,
		Totals: PortfolioTotalsResponse{
			Value:         s.Totals.Value.InexactFloat64(),
			Baseline:      s.Totals.Baseline.InexactFloat64(),
			ChangeValue:   s.Totals.ChangeValue.InexactFloat64(),
			ChangePercent: s.Totals.ChangePercent.InexactFloat64(),
			ItemsCount:    s.Totals.ItemsCount,
			CasesCount:    s.Totals.CasesCount,
		},
		Items: items,
	}
}
