package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api/handlers"
	custommiddleware "github.com/tobiasfroe/cs2-portfolio-tool/internal/api/middleware"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/config"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/service"
)

// Services bundles the services the router dispatches to.
type Services struct {
	System   *service.SystemService
	Snapshot *service.SnapshotService
	History  *service.HistoryService
	Image    *service.ImageService
	Price    *service.PriceService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
		})

		portfolioHandler := handlers.NewPortfolioHandler(svc.Snapshot, cfg.Currency.Settlement)
		r.Get("/portfolio", portfolioHandler.Portfolio)

		r.Route("/history", func(r chi.Router) {
			historyHandler := handlers.NewHistoryHandler(svc.History)
			r.Get("/", historyHandler.History)
			r.Post("/rebuild", historyHandler.Rebuild)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireMarketHashName)
			itemHandler := handlers.NewItemHandler(svc.Image, svc.Price, cfg.Steam.AppID)
			r.Get("/item-meta", itemHandler.ItemMeta)
			r.Get("/price", itemHandler.Price)
		})
	})

	// Downloaded item images
	prefix := "/" + strings.Trim(cfg.Images.URLPrefix, "/")
	r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(cfg.Images.Dir))))

	return r
}
