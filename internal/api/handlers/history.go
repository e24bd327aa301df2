package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api/response"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/history"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/service"
)

// DefaultHistoryLimit is the number of points returned when no limit is given.
const DefaultHistoryLimit = 30

// HistoryHandler handles portfolio value history HTTP requests
type HistoryHandler struct {
	historyService *service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// HistoryResponse represents the history response
type HistoryResponse struct {
	Success bool                   `json:"success"`
	Entries []HistoryEntryResponse `json:"entries"`
}

// HistoryEntryResponse represents one daily point
type HistoryEntryResponse struct {
	Date      string    `json:"date"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// History returns the most recent points of the persisted value log.
//
// Endpoint: GET /api/history?limit=N
// Query: limit between 1 and 90, default 30
// Response: 200 OK with HistoryResponse
// Error: 400 Bad Request for an invalid limit, 500 Internal Server Error if
// the log cannot be read
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > history.MaxPoints {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidLimit.Error(), "limit must be between 1 and 90")
			return
		}
		limit = n
	}

	points, err := h.historyService.History(r.Context(), limit)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve history", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, newHistoryResponse(points))
}

// Rebuild recomputes the log from upstream price series.
//
// Endpoint: POST /api/history/rebuild
// Response: 200 OK with HistoryResponse holding the new log
// Error: 500 Internal Server Error if the log cannot be written
func (h *HistoryHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	points, err := h.historyService.Rebuild(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to rebuild history", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, newHistoryResponse(points))
}

func newHistoryResponse(points []model.HistoryPoint) HistoryResponse {
	entries := make([]HistoryEntryResponse, len(points))
	for i, p := range points {
		entries[i] = HistoryEntryResponse{
			Date:      p.Date,
			Value:     p.Value.InexactFloat64(),
			Timestamp: p.Timestamp,
		}
	}
	return HistoryResponse{Success: true, Entries: entries}
}
