// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api/response"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
)

type contextKey string

const marketHashNameKey contextKey = "marketHashName"

// RequireMarketHashName validates that the marketHashName query parameter is
// present and stores the trimmed value in the request context.
// Returns 400 Bad Request if it is missing or blank.
//
// Example usage in router:
//
//	r.With(middleware.RequireMarketHashName).Get("/item-meta", handler.ItemMeta)
func RequireMarketHashName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("marketHashName"))
		if name == "" {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrMissingMarketHashName.Error(), "")
			return
		}

		ctx := context.WithValue(r.Context(), marketHashNameKey, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MarketHashName returns the value stored by RequireMarketHashName.
func MarketHashName(ctx context.Context) string {
	name, _ := ctx.Value(marketHashNameKey).(string)
	return name
}
