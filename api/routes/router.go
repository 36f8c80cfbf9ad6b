package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tradedesk-backend/api/controllers"
	"github.com/angelmondragon/tradedesk-backend/api/middleware"
	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/internal/auth"
	"github.com/angelmondragon/tradedesk-backend/internal/customers"
	"github.com/angelmondragon/tradedesk-backend/internal/dashboard"
	"github.com/angelmondragon/tradedesk-backend/internal/lots"
	"github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/internal/purchases"
	"github.com/angelmondragon/tradedesk-backend/internal/returns"
	"github.com/angelmondragon/tradedesk-backend/internal/sales"
	"github.com/angelmondragon/tradedesk-backend/internal/suppliers"
	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/auth/session"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/redis"
)

// Params carries everything the router mounts. Redis, MetricsHandler and the
// metric recorders are optional.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker

	MetricsHandler    http.Handler
	HTTPMetrics       *metrics.HTTPMetrics
	CalculatorMetrics *metrics.CalculatorMetrics

	Auth        auth.Service
	Users       users.Service
	Customers   customers.Service
	Suppliers   suppliers.Service
	Products    products.Service
	Lots        lots.Service
	Purchases   purchases.Service
	Sales       sales.Service
	Returns     returns.Service
	ActivityLog activitylog.Service
	Dashboard   dashboard.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.ThrottlePolicy{
		Name:     "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	// A nil *redis.Client must not reach the middleware as a non-nil interface.
	var (
		cachePinger db.Pinger
		counters    middleware.CounterStore = middleware.NewLocalCounter()
		idemStore   redis.IdempotencyStore
	)
	if p.Redis != nil {
		cachePinger = p.Redis
		counters = p.Redis
		idemStore = p.Redis
	}
	rateLimit := middleware.Throttle(loginPolicy, counters, logg)
	idempotent := middleware.Idempotency(idemStore, cfg.Idempotency.TTL, logg)
	// Sale and purchase documents keep their keys for CriticalTTL.
	idempotentDoc := middleware.Idempotency(idemStore, cfg.Idempotency.CriticalTTL, logg)
	supervisors := middleware.RequireRoles(logg, enums.UserRoleAdmin, enums.UserRoleManager)
	adminOnly := middleware.RequireRoles(logg, enums.UserRoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, cachePinger))
	})
	if p.MetricsHandler != nil && cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, p.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(rateLimit).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Route("/api/users", func(r chi.Router) {
			r.With(adminOnly).Post("/", controllers.UserCreate(p.Users, logg))
			r.Get("/", controllers.UserList(p.Users, logg))
			r.Get("/{userId}", controllers.UserGet(p.Users, logg))
			r.Put("/{userId}", controllers.UserUpdate(p.Users, logg))
			r.With(adminOnly).Delete("/{userId}", controllers.UserDelete(p.Users, logg))
		})

		r.Route("/api/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(p.Customers, logg))
			r.Get("/", controllers.CustomerList(p.Customers, logg))
			r.Get("/{customerId}", controllers.CustomerGet(p.Customers, logg))
			r.Put("/{customerId}", controllers.CustomerUpdate(p.Customers, logg))
			r.With(supervisors).Delete("/{customerId}", controllers.CustomerDelete(p.Customers, logg))
			r.Get("/{customerId}/sales", controllers.CustomerSales(p.Customers, logg))
			r.With(idempotent).Post("/{customerId}/payments", controllers.CustomerPayment(p.Customers, logg))
		})

		r.Route("/api/suppliers", func(r chi.Router) {
			r.Post("/", controllers.SupplierCreate(p.Suppliers, logg))
			r.Get("/", controllers.SupplierList(p.Suppliers, logg))
			r.Get("/{supplierId}", controllers.SupplierGet(p.Suppliers, logg))
			r.Put("/{supplierId}", controllers.SupplierUpdate(p.Suppliers, logg))
			r.With(supervisors).Delete("/{supplierId}", controllers.SupplierDelete(p.Suppliers, logg))
		})

		r.Route("/api/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(p.Products, logg))
			r.Get("/", controllers.ProductList(p.Products, logg))
			r.Get("/{productId}", controllers.ProductGet(p.Products, logg))
			r.Put("/{productId}", controllers.ProductUpdate(p.Products, logg))
			r.With(supervisors).Delete("/{productId}", controllers.ProductDelete(p.Products, logg))
			r.With(supervisors).Patch("/{productId}/stock", controllers.ProductAdjustStock(p.Products, logg))
		})

		r.Route("/api/lots", func(r chi.Router) {
			r.Post("/search", controllers.LotSearch(p.Lots, logg))
			r.Get("/{lotId}", controllers.LotGet(p.Lots, logg))
		})

		r.Route("/api/purchases", func(r chi.Router) {
			r.With(idempotentDoc).Post("/", controllers.PurchaseCreate(p.Purchases, logg))
			r.Get("/", controllers.PurchaseList(p.Purchases, logg))
			r.Get("/{purchaseId}", controllers.PurchaseGet(p.Purchases, logg))
			r.Put("/{purchaseId}", controllers.PurchaseUpdate(p.Purchases, logg))
			r.With(supervisors).Delete("/{purchaseId}", controllers.PurchaseDelete(p.Purchases, logg))
			r.With(idempotent).Post("/{purchaseId}/payments", controllers.PurchasePayment(p.Purchases, logg))
		})

		r.Route("/api/sales", func(r chi.Router) {
			r.With(idempotentDoc).Post("/", controllers.SaleCreate(p.Sales, logg))
			r.Get("/", controllers.SaleList(p.Sales, logg))
			r.Get("/customer/{customerId}", controllers.SalesByCustomer(p.Sales, logg))
			r.Get("/{saleId}", controllers.SaleGet(p.Sales, logg))
			r.Get("/{saleId}/receipt", controllers.SaleReceipt(p.Sales, logg))
			r.With(supervisors).Delete("/{saleId}", controllers.SaleDelete(p.Sales, logg))
		})

		r.Route("/api/returns", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.ReturnCreate(p.Returns, logg))
			r.Get("/", controllers.ReturnList(p.Returns, logg))
			r.Get("/{returnId}", controllers.ReturnGet(p.Returns, logg))
			r.Put("/{returnId}", controllers.ReturnUpdate(p.Returns, logg))
			r.With(supervisors).Delete("/{returnId}", controllers.ReturnDelete(p.Returns, logg))
		})

		r.Route("/api/activitylogs", func(r chi.Router) {
			r.Get("/", controllers.ActivityList(p.ActivityLog, logg))
			r.Post("/", controllers.ActivityCreate(p.ActivityLog, logg))
			r.Get("/{logId}", controllers.ActivityGet(p.ActivityLog, logg))
		})

		r.Get("/api/dashboard", controllers.DashboardSummary(p.Dashboard, logg))

		r.Route("/api/calculator", func(r chi.Router) {
			r.Post("/line", controllers.CalculatorLine(p.CalculatorMetrics, logg))
			r.Post("/document", controllers.CalculatorDocument(p.CalculatorMetrics, logg))
		})
	})

	return r
}
