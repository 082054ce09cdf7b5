package stubapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/frahmantamala/gatepass/internal/transport/middleware"
)

// NewRouter mounts the gate-pass REST contract.
func NewRouter(h *Handler, db *gorm.DB, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/health", h.Health(db))

	router.Route("/auth", func(ar chi.Router) {
		ar.Post("/", h.Login)
		ar.Put("/", h.Refresh)
		ar.Delete("/", h.Logout)
	})

	router.Group(func(pr chi.Router) {
		pr.Use(h.AuthMiddleware)

		pr.Get("/home/", h.Dashboard)
		pr.Post("/home/", h.HomePost)
		pr.Put("/home/", h.HomePut)
		pr.Get("/home/gatepass/{id}/pdf/", h.PDF)
	})

	return otelhttp.NewHandler(router, "gatepass-stub")
}
