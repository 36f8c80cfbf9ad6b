package main

import (
	"fmt"

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
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
	"github.com/angelmondragon/tradedesk-backend/pkg/redis"
)

type services struct {
	auth      auth.Service
	users     users.Service
	customers customers.Service
	suppliers suppliers.Service
	products  products.Service
	lots      lots.Service
	purchases purchases.Service
	sales     sales.Service
	returns   returns.Service
	activity  activitylog.Service
	dashboard dashboard.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessions *session.Manager, business *metrics.BusinessMetrics) (*services, error) {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	lotRepo := lots.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	cache := dashboard.NewCache(redisClient, logg)

	var (
		out services
		err error
	)

	if out.activity, err = activitylog.NewService(activitylog.NewRepository(conn), logg); err != nil {
		return nil, fmt.Errorf("activity log service: %w", err)
	}
	if out.auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		Activity:       out.activity,
		JWTConfig:      cfg.JWT,
		Password:       cfg.Password,
		Logger:         logg,
	}); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if out.users, err = users.NewService(users.ServiceParams{
		Repo:     userRepo,
		DB:       dbClient,
		Activity: out.activity,
		Password: cfg.Password,
	}); err != nil {
		return nil, fmt.Errorf("user service: %w", err)
	}
	if out.customers, err = customers.NewService(customers.ServiceParams{
		Repo:     customerRepo,
		DB:       dbClient,
		Activity: out.activity,
		Outbox:   emitter,
		Cache:    cache,
		Metrics:  business,
	}); err != nil {
		return nil, fmt.Errorf("customer service: %w", err)
	}
	if out.suppliers, err = suppliers.NewService(suppliers.ServiceParams{
		Repo:     suppliers.NewRepository(conn),
		DB:       dbClient,
		Activity: out.activity,
		Cache:    cache,
	}); err != nil {
		return nil, fmt.Errorf("supplier service: %w", err)
	}
	if out.products, err = products.NewService(products.ServiceParams{
		Repo:     productRepo,
		DB:       dbClient,
		Activity: out.activity,
		Cache:    cache,
	}); err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}
	if out.lots, err = lots.NewService(lotRepo); err != nil {
		return nil, fmt.Errorf("lot service: %w", err)
	}
	if out.purchases, err = purchases.NewService(purchases.ServiceParams{
		Repo:     purchases.NewRepository(conn),
		Products: productRepo,
		Lots:     lotRepo,
		DB:       dbClient,
		Activity: out.activity,
		Outbox:   emitter,
		Cache:    cache,
		Metrics:  business,
	}); err != nil {
		return nil, fmt.Errorf("purchase service: %w", err)
	}
	if out.sales, err = sales.NewService(sales.ServiceParams{
		Repo:      sales.NewRepository(conn),
		Customers: customerRepo,
		Products:  productRepo,
		Lots:      lotRepo,
		DB:        dbClient,
		Activity:  out.activity,
		Outbox:    emitter,
		Cache:     cache,
		Metrics:   business,
	}); err != nil {
		return nil, fmt.Errorf("sale service: %w", err)
	}
	if out.returns, err = returns.NewService(returns.ServiceParams{
		Repo:      returns.NewRepository(conn),
		Customers: customerRepo,
		Products:  productRepo,
		Lots:      lotRepo,
		DB:        dbClient,
		Activity:  out.activity,
		Outbox:    emitter,
		Cache:     cache,
		Metrics:   business,
	}); err != nil {
		return nil, fmt.Errorf("return service: %w", err)
	}
	if out.dashboard, err = dashboard.NewService(dashboard.ServiceParams{
		Repo:     dashboard.NewRepository(conn),
		Activity: out.activity,
		Cache:    cache,
		Logger:   logg,
	}); err != nil {
		return nil, fmt.Errorf("dashboard service: %w", err)
	}

	return &out, nil
}
