package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oaklinehq/oakline-backend/api/controllers"
	"github.com/oaklinehq/oakline-backend/api/middleware"
	addrsvc "github.com/oaklinehq/oakline-backend/internal/addresses"
	cartsvc "github.com/oaklinehq/oakline-backend/internal/cart"
	checkoutsvc "github.com/oaklinehq/oakline-backend/internal/checkout"
	ordersvc "github.com/oaklinehq/oakline-backend/internal/orders"
	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/db"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
	"github.com/oaklinehq/oakline-backend/pkg/redis"
)

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           redis.Pinger
	CartService     cartsvc.Service
	AddressService  addrsvc.Service
	CheckoutService checkoutsvc.Service
	OrderService    ordersvc.Service
}

// NewRouter wires middleware and routes into the API handler.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(params)))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(params.CartService, logg))
			r.Post("/items", controllers.CartAddItem(params.CartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(params.CartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(params.CartService, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(params.AddressService, logg))
			r.Post("/", controllers.AddressCreate(params.AddressService, logg))
			r.Patch("/{addressId}", controllers.AddressUpdate(params.AddressService, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(params.AddressService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.Checkout(params.CheckoutService, logg))
			r.Post("/complete-payment", controllers.CheckoutCompletePayment(params.CheckoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(params.OrderService, logg))
			r.Get("/{orderId}", controllers.OrderGet(params.OrderService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(params.OrderService, logg))
		})
	})

	return r
}

func readinessDeps(params RouterParams) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if params.DB != nil {
		deps["database"] = params.DB
	}
	if params.Redis != nil {
		deps["redis"] = params.Redis
	}
	return deps
}
