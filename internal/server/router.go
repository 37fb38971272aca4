package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hamrosewa/hamrosewa/internal/api"
	"github.com/hamrosewa/hamrosewa/internal/api/handlers"
	"github.com/hamrosewa/hamrosewa/internal/api/middleware"
)

type RouterConfig struct {
	// APIKey guards catalog writes; empty disables auth.
	APIKey         string
	SearchHandler  *handlers.SearchHandler
	CatalogHandler *handlers.CatalogHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/search", cfg.SearchHandler.SearchGet)
	r.Post("/v1/search", cfg.SearchHandler.Search)

	r.Route("/v1/services", func(r chi.Router) {
		r.Get("/{serviceID}", cfg.CatalogHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.StaticAPIKey(cfg.APIKey))

			r.Post("/", cfg.CatalogHandler.Create)
			r.Put("/{serviceID}", cfg.CatalogHandler.Update)
			r.Delete("/{serviceID}", cfg.CatalogHandler.Delete)
			r.Post("/{serviceID}/images/upload-url", cfg.CatalogHandler.ImageUploadURL)
			r.Post("/{serviceID}/images/download-url", cfg.CatalogHandler.ImageDownloadURL)
		})
	})

	return r
}
