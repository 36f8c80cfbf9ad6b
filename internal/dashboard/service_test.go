package dashboard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.sets++
	return nil
}

func (m *memoryStore) CacheKey(parts ...string) string {
	return "cache:" + strings.Join(parts, ":")
}

func (m *memoryStore) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

type fixedActivity struct {
	calls int
}

func (f *fixedActivity) Recent(_ context.Context, n int) ([]activitylog.LogDTO, error) {
	f.calls++
	return []activitylog.LogDTO{{Action: enums.ActivityActionLogin, Entity: activitylog.EntityUser, Description: "login"}}[:min(n, 1)], nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T) *Repository {
	t.Helper()
	conn := dbtest.Open(t, models.All()...)
	require.NoError(t, conn.Create(&models.Customer{Name: "A"}).Error)
	require.NoError(t, conn.Create(&models.Customer{Name: "B"}).Error)
	require.NoError(t, conn.Create(&models.Supplier{Name: "S"}).Error)
	require.NoError(t, conn.Create(&models.Product{Name: "Rice", UnitCategory: enums.UnitCategoryKG}).Error)
	require.NoError(t, conn.Create(&models.Sale{BillNo: "B-1", SaleDate: time.Now(), PaymentMode: "due",
		GrandTotal: dec("100"), NetTotal: dec("90"), SaleDue: dec("40"), TotalDue: dec("40")}).Error)
	require.NoError(t, conn.Create(&models.Sale{BillNo: "B-2", SaleDate: time.Now(), PaymentMode: "due",
		GrandTotal: dec("60.5"), NetTotal: dec("60.5"), SaleDue: dec("10.25"), TotalDue: dec("50.25")}).Error)
	require.NoError(t, conn.Create(&models.Purchase{PurchaseDate: time.Now(),
		Quantity: dec("10"), UnitPrice: dec("30"), TotalAmount: dec("300"), DueAmount: dec("120")}).Error)
	return NewRepository(conn)
}

func TestSummaryAggregates(t *testing.T) {
	activity := &fixedActivity{}
	svc, err := NewService(ServiceParams{Repo: seed(t), Activity: activity})
	require.NoError(t, err)

	out, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, out.TotalSales.Equal(dec("150.5")))
	assert.True(t, out.TotalDue.Equal(dec("50.25")))
	assert.True(t, out.TotalPurchases.Equal(dec("300")))
	assert.True(t, out.TotalPayable.Equal(dec("120")))
	assert.Equal(t, Counts{Customers: 2, Products: 1, Suppliers: 1, Users: 0}, out.Counts)
	assert.Len(t, out.RecentActivity, 1)
}

func TestSummaryUsesCacheUntilInvalidated(t *testing.T) {
	store := newMemoryStore()
	cache := NewCache(store, logger.Nop())
	activity := &fixedActivity{}
	svc, err := NewService(ServiceParams{Repo: seed(t), Activity: activity, Cache: cache})
	require.NoError(t, err)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	second, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, activity.calls)
	assert.Equal(t, 1, store.sets)
	assert.True(t, second.TotalSales.Equal(first.TotalSales))
	assert.True(t, second.GeneratedAt.Equal(first.GeneratedAt))

	Invalidate(context.Background(), cache)
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, activity.calls)
}

func TestInvalidateIsNilSafe(t *testing.T) {
	var cache *Cache
	assert.NotPanics(t, func() {
		cache.Invalidate(context.Background())
		Invalidate(context.Background(), nil)
	})
}
