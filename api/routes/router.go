package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rcastillo-dev/terralote-backend/api/controllers"
	"github.com/rcastillo-dev/terralote-backend/api/middleware"
	"github.com/rcastillo-dev/terralote-backend/internal/directory"
	"github.com/rcastillo-dev/terralote-backend/internal/inventory"
	"github.com/rcastillo-dev/terralote-backend/internal/reservations"
	"github.com/rcastillo-dev/terralote-backend/internal/sales"
	"github.com/rcastillo-dev/terralote-backend/internal/sweeper"
	"github.com/rcastillo-dev/terralote-backend/pkg/config"
	"github.com/rcastillo-dev/terralote-backend/pkg/db"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
	"github.com/rcastillo-dev/terralote-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	inventoryService inventory.Service,
	reservationsService reservations.Service,
	salesService sales.Service,
	sweepService *sweeper.Service,
	directoryService directory.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/lots", func(r chi.Router) {
			r.Post("/", controllers.CreateLot(inventoryService, logg))
			r.Get("/{lotId}", controllers.GetLot(inventoryService, logg))
			r.Delete("/{lotId}", controllers.DeleteLot(inventoryService, logg))
		})

		r.Route("/projects/{projectId}/lots", func(r chi.Router) {
			r.Get("/", controllers.ListProjectLots(inventoryService, logg))
			r.Post("/import", controllers.ImportLots(inventoryService, logg))
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.Reserve(reservationsService, directoryService, logg))
			r.Get("/{reservationId}", controllers.GetReservation(reservationsService, directoryService, logg))
			r.Post("/{reservationId}/cancel", controllers.CancelReservation(reservationsService, directoryService, logg))
			r.Post("/{reservationId}/convert", controllers.ConvertReservation(salesService, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/{saleId}", controllers.GetSale(salesService, logg))
			r.Post("/{saleId}/payments", controllers.RecordPayment(salesService, logg))
			r.Post("/{saleId}/void", controllers.VoidSale(salesService, logg))
		})

		r.Post("/sweep", controllers.RunSweep(sweepService, logg))
	})

	return r
}
