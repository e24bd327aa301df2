package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api/middleware"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api/response"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/service"
)

// ItemHandler handles per-item HTTP requests: image resolution and the
// upstream price passthrough.
type ItemHandler struct {
	imageService *service.ImageService
	priceService *service.PriceService
	appID        string
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(imageService *service.ImageService, priceService *service.PriceService, appID string) *ItemHandler {
	return &ItemHandler{
		imageService: imageService,
		priceService: priceService,
		appID:        appID,
	}
}

// ItemMetaResponse represents the item image response
type ItemMetaResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
}

// ItemMeta resolves the image of an item.
//
// Endpoint: GET /api/item-meta?marketHashName=
// Response: 200 OK with ItemMetaResponse
// Error: 400 Bad Request if marketHashName is missing, 404 Not Found if the
// listing carries no image, 502 Bad Gateway if the listing cannot be fetched
func (h *ItemHandler) ItemMeta(w http.ResponseWriter, r *http.Request) {
	name := middleware.MarketHashName(r.Context())

	ref, err := h.imageService.ResolveItemImage(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrImageNotFound):
			response.RespondError(w, http.StatusNotFound, "image not found", "")
		default:
			response.RespondError(w, http.StatusBadGateway, "failed to fetch item listing", err.Error())
		}
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	respondJSON(w, http.StatusOK, ItemMetaResponse{Success: true, Image: ref})
}

// Price forwards the upstream priceoverview payload.
//
// Endpoint: GET /api/price?marketHashName=&currency=&appid=
// Query: currency is a Steam numeric currency id, default from configuration;
// appid must match the configured application if given
// Response: 200 OK with the raw upstream JSON
// Error: 400 Bad Request for a missing name or invalid parameters, 502 Bad
// Gateway on upstream failure
func (h *ItemHandler) Price(w http.ResponseWriter, r *http.Request) {
	name := middleware.MarketHashName(r.Context())
	q := r.URL.Query()

	if appID := q.Get("appid"); appID != "" && appID != h.appID {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrUnsupportedAppID.Error(), "")
		return
	}

	cur := q.Get("currency")
	if cur != "" {
		if n, err := strconv.Atoi(cur); err != nil || n <= 0 {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCurrency.Error(), "currency must be a Steam currency id")
			return
		}
	}

	payload, err := h.priceService.Passthrough(r.Context(), name, cur)
	if err != nil {
		response.RespondError(w, http.StatusBadGateway, "failed to fetch price", err.Error())
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	response.RespondRaw(w, http.StatusOK, payload)
}
