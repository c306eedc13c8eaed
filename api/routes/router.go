package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groceryscout/storefront-gateway/api/controllers"
	authcontrollers "github.com/groceryscout/storefront-gateway/api/controllers/auth"
	cartcontrollers "github.com/groceryscout/storefront-gateway/api/controllers/cart"
	"github.com/groceryscout/storefront-gateway/api/middleware"
	"github.com/groceryscout/storefront-gateway/internal/registry"
	"github.com/groceryscout/storefront-gateway/internal/session"
	"github.com/groceryscout/storefront-gateway/pkg/config"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
	"github.com/groceryscout/storefront-gateway/pkg/redis"
	"github.com/groceryscout/storefront-gateway/pkg/upstream"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	backendProbe *upstream.Client,
	reg *registry.Registry,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisClient, backendProbe, logg))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, reg, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", authcontrollers.Me(logg))
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", authcontrollers.Login(reg, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", authcontrollers.Register(reg, logg))
			r.Post("/logout", authcontrollers.Logout(reg, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogList(logg))
			r.Get("/products/{productID}", controllers.CatalogGet(logg))
			r.Get("/products/search", controllers.CatalogSearch(logg))
			r.Get("/categories", controllers.CatalogCategories(logg))
			r.Get("/trending", controllers.CatalogTrending(logg))
		})

		r.Get("/recipes/public", controllers.RecipesPublic(logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.View(logg))
				r.Post("/refresh", cartcontrollers.Fetch(logg))
				r.Post("/items", cartcontrollers.Add(logg))
				r.Patch("/items/{productID}", cartcontrollers.Adjust(logg))
				r.Delete("/items/{productID}", cartcontrollers.Remove(logg))
				r.Delete("/", cartcontrollers.Clear(logg))
				r.Post("/checkout", cartcontrollers.Checkout(logg))
			})

			r.Get("/orders", controllers.OrdersList(logg))
			r.Post("/orders", controllers.OrdersPlace(logg))

			r.Route("/recipes", func(r chi.Router) {
				r.Post("/generate", controllers.RecipeGenerate(logg))
				r.Get("/", controllers.RecipesMine(logg))
				r.Delete("/{recipeID}", controllers.RecipeDelete(logg))
				r.Post("/{recipeID}/to-cart", controllers.RecipeToCart(logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			// Product CRUD serves the manager inventory screen too; only
			// the user list is admin-only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, session.RoleManager, session.RoleAdmin))
				r.Get("/products", controllers.AdminProducts(logg))
				r.Post("/products", controllers.AdminCreateProduct(logg))
				r.Put("/products/{productID}", controllers.AdminUpdateProduct(logg))
				r.Delete("/products/{productID}", controllers.AdminDeleteProduct(logg))
			})
			r.With(middleware.RequireRole(logg, session.RoleAdmin)).Get("/users", controllers.AdminUsers(logg))
		})

		r.Route("/manager", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, session.RoleManager, session.RoleAdmin))
			r.Get("/stats", controllers.ManagerStats(logg))
			r.Get("/orders", controllers.ManagerOrders(logg))
			r.Get("/orders/paged", controllers.ManagerPagedOrders(logg))
			r.Patch("/orders/{orderID}/status", controllers.ManagerUpdateOrderStatus(logg))
			r.Get("/revenue", controllers.ManagerRevenue(logg))
		})
	})

	return r
}
