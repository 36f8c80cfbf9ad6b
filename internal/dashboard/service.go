package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// RecentActivityLimit is how many log entries the dashboard shows.
const RecentActivityLimit = 10

type Counts struct {
	Customers int64 `json:"customers"`
	Products  int64 `json:"products"`
	Suppliers int64 `json:"suppliers"`
	Users     int64 `json:"users"`
}

// Summary is the dashboard home payload. TotalDue sums sale dues as billed;
// TotalPayable sums what is still owed to suppliers.
type Summary struct {
	TotalSales     decimal.Decimal      `json:"totalSales"`
	TotalPurchases decimal.Decimal      `json:"totalPurchases"`
	TotalDue       decimal.Decimal      `json:"totalDue"`
	TotalPayable   decimal.Decimal      `json:"totalPayable"`
	Counts         Counts               `json:"counts"`
	RecentActivity []activitylog.LogDTO `json:"recentActivity"`
	GeneratedAt    time.Time            `json:"generatedAt"`
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type recentActivity interface {
	Recent(ctx context.Context, n int) ([]activitylog.LogDTO, error)
}

// ServiceParams wires the dashboard. Cache is optional.
type ServiceParams struct {
	Repo     *Repository
	Activity recentActivity
	Cache    *Cache
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	activity recentActivity
	cache    *Cache
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		activity: params.Activity,
		cache:    params.Cache,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	if cached, ok := s.cache.load(ctx); ok {
		return cached, nil
	}

	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count records")
	}
	sales, due, err := s.repo.SaleTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum sales")
	}
	purchases, payable, err := s.repo.PurchaseTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum purchases")
	}
	recent, err := s.activity.Recent(ctx, RecentActivityLimit)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalSales:     sales.Round(2),
		TotalPurchases: purchases.Round(2),
		TotalDue:       due.Round(2),
		TotalPayable:   payable.Round(2),
		Counts:         counts,
		RecentActivity: recent,
		GeneratedAt:    s.now(),
	}
	s.cache.save(ctx, summary)
	return summary, nil
}

func (c *Cache) load(ctx context.Context) (*Summary, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, c.key())
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.warn(ctx, "dashboard cache read failed", err)
		}
		return nil, false
	}
	var summary Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		c.warn(ctx, "dashboard cache entry unreadable", err)
		return nil, false
	}
	return &summary, true
}

func (c *Cache) save(ctx context.Context, summary *Summary) {
	if c == nil || c.store == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		c.warn(ctx, "dashboard cache encode failed", err)
		return
	}
	if err := c.store.Set(ctx, c.key(), string(payload), cacheTTL); err != nil {
		c.warn(ctx, "dashboard cache write failed", err)
	}
}

func (c *Cache) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}
