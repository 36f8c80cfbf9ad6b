package returns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/internal/customers"
	"github.com/angelmondragon/tradedesk-backend/internal/fixtures"
	"github.com/angelmondragon/tradedesk-backend/internal/lots"
	"github.com/angelmondragon/tradedesk-backend/internal/products"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *fixtures.Env) {
	t.Helper()
	env := fixtures.New(t)
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(env.Conn),
		Customers: customers.NewRepository(env.Conn),
		Products:  products.NewRepository(env.Conn),
		Lots:      lots.NewRepository(env.Conn),
		DB:        env.Client,
		Activity:  env.Activity,
		Outbox:    env.Outbox,
		Cache:     env.Cache,
	})
	require.NoError(t, err)
	return svc, env
}

type world struct {
	product  *models.Product
	supplier *models.Supplier
	purchase *models.Purchase
	lot      *models.Lot
	customer *models.Customer
	sale     *models.Sale
	line     *models.SaleLine
}

// seed stocks 100 kg through one purchase and sells 40 kg of it at 10/kg.
func seed(t *testing.T, env *fixtures.Env) *world {
	t.Helper()
	w := &world{
		product:  env.Product(t, "Rice", enums.UnitCategoryKG, "60"),
		supplier: env.Supplier(t, "Mill"),
		customer: env.Customer(t, "Hasan", "400"),
	}
	w.purchase = &models.Purchase{
		SupplierID: w.supplier.ID, ProductID: w.product.ID,
		Quantity: fixtures.Dec("100"), UnitPrice: fixtures.Dec("8"), TotalAmount: fixtures.Dec("800"),
		PaidAmount: fixtures.Dec("300"), DueAmount: fixtures.Dec("500"), PurchaseDate: time.Now().UTC(),
	}
	require.NoError(t, env.Conn.Create(w.purchase).Error)
	w.lot = &models.Lot{
		Number: "L-000001", PurchaseID: w.purchase.ID, ProductID: w.product.ID, SupplierID: w.supplier.ID,
		Quantity: fixtures.Dec("100"), PendingQuantity: fixtures.Dec("60"), ReceivedAt: time.Now().UTC(),
	}
	require.NoError(t, env.Conn.Create(w.lot).Error)
	w.sale = &models.Sale{
		BillNo: "B-000001", CustomerID: w.customer.ID, SaleDate: time.Now().UTC(), PaymentMode: "due",
		GrandTotal: fixtures.Dec("400"), NetTotal: fixtures.Dec("400"), SaleDue: fixtures.Dec("400"), TotalDue: fixtures.Dec("400"),
	}
	require.NoError(t, env.Conn.Create(w.sale).Error)
	w.line = &models.SaleLine{
		SaleID: w.sale.ID, Position: 1, ProductID: w.product.ID, LotID: &w.lot.ID,
		Quantity: fixtures.Dec("40"), UnitPrice: fixtures.Dec("10"), TotalAmount: fixtures.Dec("400"), DueAmount: fixtures.Dec("400"),
	}
	require.NoError(t, env.Conn.Create(w.line).Error)
	return w
}

func TestSaleReturnRestocksAndCredits(t *testing.T) {
	svc, env := newTestService(t)
	w := seed(t, env)
	reason := " damp "

	out, err := svc.Create(context.Background(), env.Actor(t), CreateReturnInput{
		Type:     enums.ReturnTypeSale,
		SaleID:   &w.sale.ID,
		Product:  &w.product.ID,
		Quantity: "10+5",
		Reason:   &reason,
	})
	require.NoError(t, err)
	assert.True(t, out.Quantity.Equal(fixtures.Dec("15")))
	assert.True(t, out.Amount.Equal(fixtures.Dec("150")))
	require.NotNil(t, out.SaleLineID)
	assert.Equal(t, w.line.ID, *out.SaleLineID)
	assert.Equal(t, "Rice", out.Product.Name)
	require.NotNil(t, out.Reason)
	assert.Equal(t, "damp", *out.Reason)

	env.Reload(t, w.lot)
	assert.True(t, w.lot.PendingQuantity.Equal(fixtures.Dec("75")))
	env.Reload(t, w.product)
	assert.True(t, w.product.CurrentStock.Equal(fixtures.Dec("75")))
	env.Reload(t, w.customer)
	assert.True(t, w.customer.TotalDue.Equal(fixtures.Dec("250")))
	env.Reload(t, w.line)
	assert.True(t, w.line.ReturnedQuantity.Equal(fixtures.Dec("15")))

	assert.Equal(t, []enums.OutboxEventType{enums.EventReturnCreated}, env.OutboxEvents(t))
	assert.EqualValues(t, 1, env.ActivityCount(t, activitylog.EntityReturn, enums.ActivityActionReturn))
}

func TestSaleReturnNeverExceedsSoldQuantity(t *testing.T) {
	svc, env := newTestService(t)
	w := seed(t, env)

	_, err := svc.Create(context.Background(), env.Actor(t), CreateReturnInput{
		Type: enums.ReturnTypeSale, SaleID: &w.sale.ID, SaleLineID: &w.line.ID, Quantity: "30",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), env.Actor(t), CreateReturnInput{
		Type: enums.ReturnTypeSale, SaleID: &w.sale.ID, SaleLineID: &w.line.ID, Quantity: "11",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	env.Reload(t, w.customer)
	assert.True(t, w.customer.TotalDue.Equal(fixtures.Dec("100")))
}

func TestSaleReturnFloorsCustomerDue(t *testing.T) {
	svc, env := newTestService(t)
	w := seed(t, env)
	require.NoError(t, env.Conn.Model(w.customer).Update("total_due", fixtures.Dec("50")).Error)

	_, err := svc.Create(context.Background(), env.Actor(t), CreateReturnInput{
		Type: enums.ReturnTypeSale, SaleID: &w.sale.ID, Product: &w.product.ID, Quantity: "40",
	})
	require.NoError(t, err)
	env.Reload(t, w.customer)
	assert.True(t, w.customer.TotalDue.IsZero())
}

func TestPurchaseReturnDrawsLotAndDue(t *testing.T) {
	svc, env := newTestService(t)
	w := seed(t, env)

	out, err := svc.Create(context.Background(), env.Actor(t), CreateReturnInput{
		Type: enums.ReturnTypePurchase, PurchaseID: &w.purchase.ID, Quantity: "20",
	})
	require.NoError(t, err)
	assert.True(t, out.Amount.Equal(fixtures.Dec("160")))
	require.NotNil(t, out.LotID)
	assert.Equal(t, w.lot.ID, *out.LotID)

	env.Reload(t, w.lot)
	assert.True(t, w.lot.PendingQuantity.Equal(fixtures.Dec("40")))
	env.Reload(t, w.product)
	assert.True(t, w.product.CurrentStock.Equal(fixtures.Dec("40")))
	env.Reload(t, w.purchase)
	assert.True(t, w.purchase.DueAmount.Equal(fixtures.Dec("340")))

	_, err = svc.Create(context.Background(), env.Actor(t), CreateReturnInput{
		Type: enums.ReturnTypePurchase, PurchaseID: &w.purchase.ID, Quantity: "41",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreateReturnValidates(t *testing.T) {
	svc, env := newTestService(t)
	w := seed(t, env)
	other := uuid.New()
	actor := env.Actor(t)

	cases := map[string]CreateReturnInput{
		"bad type":       {Type: "swap", SaleID: &w.sale.ID, Quantity: "1"},
		"bad quantity":   {Type: enums.ReturnTypeSale, SaleID: &w.sale.ID, Product: &w.product.ID, Quantity: "abc"},
		"zero quantity":  {Type: enums.ReturnTypeSale, SaleID: &w.sale.ID, Product: &w.product.ID, Quantity: "0"},
		"no sale":        {Type: enums.ReturnTypeSale, Quantity: "1"},
		"unsold product": {Type: enums.ReturnTypeSale, SaleID: &w.sale.ID, Product: &other, Quantity: "1"},
		"no purchase":    {Type: enums.ReturnTypePurchase, Quantity: "1"},
		"wrong product":  {Type: enums.ReturnTypePurchase, PurchaseID: &w.purchase.ID, Product: &other, Quantity: "1"},
	}
	for name, input := range cases {
		_, err := svc.Create(context.Background(), actor, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
	}

	_, err := svc.Create(context.Background(), actor, CreateReturnInput{Type: enums.ReturnTypeSale, SaleID: &other, Product: &w.product.ID, Quantity: "1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateListAndDeleteReverse(t *testing.T) {
	svc, env := newTestService(t)
	w := seed(t, env)
	actor := env.Actor(t)

	saleReturn, err := svc.Create(context.Background(), actor, CreateReturnInput{
		Type: enums.ReturnTypeSale, SaleID: &w.sale.ID, Product: &w.product.ID, Quantity: "10",
	})
	require.NoError(t, err)
	purchaseReturn, err := svc.Create(context.Background(), actor, CreateReturnInput{
		Type: enums.ReturnTypePurchase, PurchaseID: &w.purchase.ID, Quantity: "5",
	})
	require.NoError(t, err)

	reason := "wrong grade"
	updated, err := svc.Update(context.Background(), actor, saleReturn.ID, UpdateReturnInput{Reason: &reason})
	require.NoError(t, err)
	require.NotNil(t, updated.Reason)
	assert.Equal(t, "wrong grade", *updated.Reason)
	assert.True(t, updated.Quantity.Equal(fixtures.Dec("10")))

	saleType := enums.ReturnTypeSale
	page, err := svc.List(context.Background(), ListFilter{Type: &saleType}, pagination.PageParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	page, err = svc.List(context.Background(), ListFilter{}, pagination.PageParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	require.NoError(t, svc.Delete(context.Background(), actor, saleReturn.ID))
	require.NoError(t, svc.Delete(context.Background(), actor, purchaseReturn.ID))

	env.Reload(t, w.lot)
	assert.True(t, w.lot.PendingQuantity.Equal(fixtures.Dec("60")))
	env.Reload(t, w.product)
	assert.True(t, w.product.CurrentStock.Equal(fixtures.Dec("60")))
	env.Reload(t, w.customer)
	assert.True(t, w.customer.TotalDue.Equal(fixtures.Dec("400")))
	env.Reload(t, w.purchase)
	assert.True(t, w.purchase.DueAmount.Equal(fixtures.Dec("500")))
	env.Reload(t, w.line)
	assert.True(t, w.line.ReturnedQuantity.IsZero())

	_, err = svc.Get(context.Background(), saleReturn.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
