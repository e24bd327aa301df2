package handlers

import (
	"net/http"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api/response"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	response.RespondJSON(w, status, data)
}
