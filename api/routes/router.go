package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archivobordado/bordado-backend/api/controllers"
	webhookcontrollers "github.com/archivobordado/bordado-backend/api/controllers/webhooks"
	"github.com/archivobordado/bordado-backend/api/middleware"
	"github.com/archivobordado/bordado-backend/internal/auth"
	"github.com/archivobordado/bordado-backend/internal/cart"
	"github.com/archivobordado/bordado-backend/internal/catalog"
	checkoutsvc "github.com/archivobordado/bordado-backend/internal/checkout"
	"github.com/archivobordado/bordado-backend/internal/orders"
	mpwebhook "github.com/archivobordado/bordado-backend/internal/webhooks/mercadopago"
	"github.com/archivobordado/bordado-backend/pkg/auth/session"
	"github.com/archivobordado/bordado-backend/pkg/config"
	"github.com/archivobordado/bordado-backend/pkg/db"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/archivobordado/bordado-backend/pkg/redis"
	"github.com/archivobordado/bordado-backend/pkg/storage/supabase"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	storageClient *supabase.Client,
	sessionChecker session.Checker,
	catalogService catalog.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	authService auth.Service,
	webhookService *mpwebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewLoginRateLimitPolicy(
		cfg.LoginLimit.Window,
		cfg.LoginLimit.IPLimit,
		cfg.LoginLimit.EmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, storageClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/matrices", func(r chi.Router) {
			r.Get("/", controllers.ListMatrices(catalogService, logg))
			r.Get("/random", controllers.RandomMatrix(catalogService, logg))
			r.Get("/{slug}", controllers.GetMatrix(catalogService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/items", controllers.CartAdd(cartService, logg))
			r.Delete("/items", controllers.CartRemove(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/preference", controllers.CheckoutPreference(checkoutService, cartService, logg))
			r.Post("/transfer", controllers.CheckoutTransfer(checkoutService, cartService, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(webhookService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(loginPolicy, redisClient, logg)).
			Post("/auth/login", controllers.AuthLogin(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWT, sessionChecker, logg))

			r.Post("/auth/logout", controllers.AuthLogout(authService, logg))

			r.Route("/matrices", func(r chi.Router) {
				r.Get("/", controllers.ListMatrices(catalogService, logg))
				r.Post("/", controllers.AdminCreateMatrix(catalogService, logg))
				r.Patch("/{matrixId}", controllers.AdminUpdateMatrix(catalogService, logg))
				r.Delete("/{matrixId}", controllers.AdminDeleteMatrix(catalogService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(ordersService, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(ordersService, logg))
				r.Post("/{orderId}/approve-transfer", controllers.AdminApproveTransfer(ordersService, logg))
				r.Post("/{orderId}/resend-email", controllers.AdminResendFulfillment(ordersService, logg))
			})
		})
	})

	return r
}
