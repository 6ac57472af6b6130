package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hmkwon/dishpatch-backend/api/controllers"
	"github.com/hmkwon/dishpatch-backend/api/middleware"
	"github.com/hmkwon/dishpatch-backend/internal/blacklist"
	"github.com/hmkwon/dishpatch-backend/internal/carts"
	"github.com/hmkwon/dishpatch-backend/internal/coupons"
	"github.com/hmkwon/dishpatch-backend/internal/deliveries"
	"github.com/hmkwon/dishpatch-backend/internal/notifications"
	"github.com/hmkwon/dishpatch-backend/internal/orders"
	"github.com/hmkwon/dishpatch-backend/internal/products"
	"github.com/hmkwon/dishpatch-backend/internal/reviews"
	"github.com/hmkwon/dishpatch-backend/internal/stores"
	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/db"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	"github.com/hmkwon/dishpatch-backend/pkg/logger"
	"github.com/hmkwon/dishpatch-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Metrics       prometheus.Gatherer
	Carts         carts.Service
	Orders        orders.Service
	Deliveries    deliveries.Service
	Reviews       reviews.Service
	Blacklist     blacklist.Service
	Coupons       coupons.Service
	Notifications notifications.Service
	Hub           *notifications.Hub
	Stores        stores.Service
	Products      products.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public browse surface. Guests read stores, menus, and reviews
		// without a token.
		r.Group(func(r chi.Router) {
			r.Get("/stores", controllers.ListStores(deps.Stores, logg))
			r.Get("/stores/{storeId}", controllers.StoreDetail(deps.Stores, logg))
			r.Get("/stores/{storeId}/products", controllers.StoreProducts(deps.Products, logg))
			r.Get("/stores/{storeId}/reviews", controllers.StoreReviews(deps.Reviews, logg))
			r.Get("/products/{productId}", controllers.ProductDetail(deps.Products, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RateLimit(mutationPolicy(cfg), deps.Redis, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleOwner, logg))
				r.Post("/stores", controllers.CreateStore(deps.Stores, logg))
				r.Put("/stores/{storeId}", controllers.UpdateStore(deps.Stores, logg))
				r.Put("/stores/{storeId}/hours", controllers.SetStoreHours(deps.Stores, logg))
				r.Post("/stores/{storeId}/products", controllers.CreateProduct(deps.Products, logg))
				r.Get("/stores/{storeId}/orders", controllers.StoreOrders(deps.Orders, logg))
				r.Route("/stores/{storeId}/blacklist", func(r chi.Router) {
					r.Get("/", controllers.BlacklistEntries(deps.Blacklist, logg))
					r.Post("/", controllers.BlacklistAdd(deps.Blacklist, logg))
					r.Delete("/{userId}", controllers.BlacklistRemove(deps.Blacklist, logg))
				})
				r.Get("/my/stores", controllers.MyStores(deps.Stores, logg))
				r.Patch("/products/{productId}", controllers.UpdateProduct(deps.Products, logg))
				r.Delete("/products/{productId}", controllers.DeleteProduct(deps.Products, logg))
				r.Post("/reviews/{reviewId}/reply", controllers.ReplyReview(deps.Reviews, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleCustomer, logg))
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.CartFetch(deps.Carts, logg))
					r.Put("/", controllers.CartPut(deps.Carts, logg))
					r.Delete("/", controllers.CartClear(deps.Carts, logg))
					r.Post("/quote", controllers.CartQuote(deps.Carts, logg))
				})
				r.Post("/orders", controllers.SubmitOrder(deps.Orders, logg))
				r.Get("/orders", controllers.ListMyOrders(deps.Orders, logg))
				r.Post("/orders/{orderId}/review", controllers.CreateReview(deps.Reviews, logg))
				r.Route("/coupons", func(r chi.Router) {
					r.Get("/", controllers.MyCoupons(deps.Coupons, logg))
					r.Post("/register", controllers.RegisterCoupon(deps.Coupons, logg))
				})
			})

			// Order detail and transitions serve customers, owners, and
			// riders; the service applies the per-role matrix.
			r.Get("/orders/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Patch("/orders/{orderId}/status", controllers.TransitionOrder(deps.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleRider, logg))
				r.Route("/deliveries", func(r chi.Router) {
					r.Get("/available", controllers.AvailableDeliveries(deps.Deliveries, logg))
					r.Get("/my", controllers.MyDeliveries(deps.Deliveries, logg))
					r.Patch("/{deliveryId}/claim", controllers.ClaimDelivery(deps.Deliveries, logg))
					r.Patch("/{deliveryId}/status", controllers.AdvanceDelivery(deps.Deliveries, logg))
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			})
			r.Get("/events/stream", controllers.EventStream(deps.Hub, logg))
		})
	})

	return r
}

func mutationPolicy(cfg *config.Config) middleware.RateLimitPolicy {
	return middleware.RateLimitPolicy{
		Name:   "api",
		Window: cfg.RateLimit.MutationWindow,
		Limit:  cfg.RateLimit.MutationLimit,
	}
}
