package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devsanbid/quickbite/internal/cart"
	"github.com/devsanbid/quickbite/internal/config"
	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/devsanbid/quickbite/internal/handler"
	"github.com/devsanbid/quickbite/internal/metrics"
	mw "github.com/devsanbid/quickbite/internal/middleware"
	"github.com/devsanbid/quickbite/internal/service"
	"github.com/devsanbid/quickbite/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, restaurant scoping, and role-based middleware
// as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, carts *cart.Store, hub *ws.Hub, events service.EventPublisher) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services shared across handlers
	cartService := service.NewCartService(carts, queries)
	notificationService := service.NewNotificationService(queries, hub)
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore, carts, cartService.Locks(), notificationService, events)

	restaurantHandler := handler.NewRestaurantHandler(queries, cfg.PublicBaseURL)
	orderHandler := handler.NewOrderHandler(orderService, queries)
	reportHandler := handler.NewReportHandler(queries, cfg.CommissionRate)

	r.Route("/restaurants", func(r chi.Router) {
		restaurantHandler.RegisterPublicRoutes(r)

		r.Route("/{rid}", func(r chi.Router) {
			restaurantHandler.RegisterPublicDetailRoutes(r)

			// Owner management, scoped to the restaurant in the path
			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRestaurant)

				restaurantHandler.RegisterOwnerRoutes(r)
				orderHandler.RegisterOwnerRoutes(r)
				reportHandler.RegisterOwnerRoutes(r)

				menuHandler := handler.NewMenuHandler(queries)
				menuHandler.RegisterRoutes(r)

				discountHandler := handler.NewDiscountHandler(queries)
				discountHandler.RegisterRoutes(r)
			})
		})
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		userHandler := handler.NewUserHandler(queries)
		userHandler.RegisterRoutes(r)

		cartHandler := handler.NewCartHandler(cartService)
		cartHandler.RegisterRoutes(r)

		orderHandler.RegisterRoutes(r)

		notificationHandler := handler.NewNotificationHandler(queries, notificationService)
		notificationHandler.RegisterRoutes(r)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin, enum.RoleSuperAdmin))

			userHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)
			restaurantHandler.RegisterAdminRoutes(r)
			notificationHandler.RegisterAdminRoutes(r)
			reportHandler.RegisterAdminRoutes(r)
		})
	})

	return r
}
