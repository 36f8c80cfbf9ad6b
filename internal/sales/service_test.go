package sales

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
	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
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

func seedLot(t *testing.T, env *fixtures.Env, product *models.Product, number, qty string, bags int) *models.Lot {
	t.Helper()
	lot := &models.Lot{
		Number:          number,
		PurchaseID:      uuid.New(),
		ProductID:       product.ID,
		SupplierID:      uuid.New(),
		Quantity:        fixtures.Dec(qty),
		PendingQuantity: fixtures.Dec(qty),
		PendingBag:      bags,
		ReceivedAt:      time.Now().UTC(),
	}
	require.NoError(t, env.Conn.Create(lot).Error)
	return lot
}

func TestCreateSaleDrawsStockAndBillsCustomer(t *testing.T) {
	svc, env := newTestService(t)
	rice := env.Product(t, "Rice", enums.UnitCategoryKG, "200")
	eggs := env.Product(t, "Eggs", enums.UnitCategoryTray, "70")
	riceLot := seedLot(t, env, rice, "L-000001", "200", 5)
	customer := env.Customer(t, "Hasan", "500")

	out, err := svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		Customer: &customer.ID,
		Lines: []LineInput{
			{
				Product: rice.ID,
				Lot:     &riceLot.ID,
				LineInput: calculator.LineInput{
					Quantity:   "30+10",
					PriceMon:   "1600",
					PaidOnline: "200",
					TotalBags:  "1",
				},
			},
			{
				Product:   eggs.ID,
				LineInput: calculator.LineInput{DisplayQuantity: "2", UnitPricePeti: "10", Discount: "40"},
			},
		},
		DiscountTotal: "60",
	})
	require.NoError(t, err)

	assert.Equal(t, "B-000001", out.BillNo)
	assert.Equal(t, "Hasan", out.Customer.Name)
	require.Len(t, out.Lines, 2)
	assert.True(t, out.Lines[0].Quantity.Equal(fixtures.Dec("40")))
	assert.Equal(t, "1", out.Lines[0].DisplayQuantity)
	assert.True(t, out.Lines[0].TotalAmount.Equal(fixtures.Dec("1600")))
	assert.True(t, out.Lines[0].DueAmount.Equal(fixtures.Dec("1400")))
	require.NotNil(t, out.Lines[0].Lat)
	assert.Equal(t, "L-000001", out.Lines[0].Lat.LatNumber)
	require.NotNil(t, out.Lines[0].Note)
	assert.Equal(t, "L-000001 :- 30+10", *out.Lines[0].Note)
	assert.True(t, out.Lines[1].Quantity.Equal(fixtures.Dec("14")))
	assert.True(t, out.Lines[1].TotalAmount.Equal(fixtures.Dec("100")))

	assert.True(t, out.GrandTotal.Equal(fixtures.Dec("1700")))
	assert.True(t, out.NetTotal.Equal(fixtures.Dec("1640")))
	assert.True(t, out.PaidTotal.Equal(fixtures.Dec("200")))
	assert.True(t, out.SaleDue.Equal(fixtures.Dec("1440")))
	assert.True(t, out.PreviousDue.Equal(fixtures.Dec("500")))
	assert.True(t, out.TotalDue.Equal(fixtures.Dec("1940")))
	assert.Equal(t, PaymentModeOnline, out.PaymentMode)
	require.NotNil(t, out.Notes)
	assert.Equal(t, "L-000001 :- 30+10", *out.Notes)

	env.Reload(t, riceLot)
	assert.True(t, riceLot.PendingQuantity.Equal(fixtures.Dec("160")))
	assert.Equal(t, 4, riceLot.PendingBag)
	env.Reload(t, rice)
	assert.True(t, rice.CurrentStock.Equal(fixtures.Dec("160")))
	env.Reload(t, eggs)
	assert.True(t, eggs.CurrentStock.Equal(fixtures.Dec("56")))
	env.Reload(t, customer)
	assert.True(t, customer.TotalDue.Equal(fixtures.Dec("1940")))
	require.NotNil(t, customer.LastShop)

	assert.Equal(t, []enums.OutboxEventType{enums.EventSaleCreated}, env.OutboxEvents(t))
	assert.EqualValues(t, 1, env.ActivityCount(t, activitylog.EntitySale, enums.ActivityActionCreate))
	assert.Equal(t, 1, env.Cache.Calls())
}

func TestCreateSaleClampsToLotCeilingAcrossLines(t *testing.T) {
	svc, env := newTestService(t)
	rice := env.Product(t, "Rice", enums.UnitCategoryKG, "100")
	lot := seedLot(t, env, rice, "L-000001", "50", 0)

	out, err := svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		NewCustomerName: "Walk-in",
		Lines: []LineInput{
			{Product: rice.ID, Lot: &lot.ID, LineInput: calculator.LineInput{Quantity: "30", UnitPrice: "10"}},
			{Product: rice.ID, Lot: &lot.ID, LineInput: calculator.LineInput{Quantity: "30", UnitPrice: "10"}},
		},
	})
	require.NoError(t, err)
	assert.True(t, out.Lines[0].Quantity.Equal(fixtures.Dec("30")))
	assert.True(t, out.Lines[1].Quantity.Equal(fixtures.Dec("20")))
	assert.Equal(t, "Walk-in", out.Customer.Name)
	assert.Equal(t, PaymentModeDue, out.PaymentMode)

	env.Reload(t, lot)
	assert.True(t, lot.PendingQuantity.IsZero())

	_, err = svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		NewCustomerName: "Late",
		Lines:           []LineInput{{Product: rice.ID, Lot: &lot.ID, LineInput: calculator.LineInput{Quantity: "1", UnitPrice: "10"}}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreateSaleRedistributesPayment(t *testing.T) {
	svc, env := newTestService(t)
	feed := env.Product(t, "Feed", enums.UnitCategoryBag, "10")
	customer := env.Customer(t, "Rahim", "0")

	out, err := svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		Customer: &customer.ID,
		Lines: []LineInput{
			{Product: feed.ID, LineInput: calculator.LineInput{Quantity: "2", UnitPriceBag: "500"}},
			{Product: feed.ID, LineInput: calculator.LineInput{Quantity: "1", UnitPrice: "500", PaidOffline: "500"}},
		},
		Payment: "1200",
	})
	require.NoError(t, err)
	assert.True(t, out.Lines[0].PaidOffline.Equal(fixtures.Dec("1000")))
	assert.True(t, out.Lines[1].PaidOffline.Equal(fixtures.Dec("200")))
	assert.True(t, out.PaidTotal.Equal(fixtures.Dec("1200")))
	assert.True(t, out.SaleDue.Equal(fixtures.Dec("300")))
	assert.Equal(t, PaymentModeOffline, out.PaymentMode)
	assert.Equal(t, 2, out.Lines[0].TotalBags)

	env.Reload(t, feed)
	assert.True(t, feed.CurrentStock.Equal(fixtures.Dec("7")))
}

func TestCreateSalePaymentCoversOnlyOutstanding(t *testing.T) {
	svc, env := newTestService(t)
	feed := env.Product(t, "Feed", enums.UnitCategoryBag, "10")
	customer := env.Customer(t, "Karim", "0")

	out, err := svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		Customer: &customer.ID,
		Lines: []LineInput{
			{Product: feed.ID, LineInput: calculator.LineInput{Quantity: "1", UnitPriceBag: "100", PaidOnline: "60"}},
		},
		Payment: "100",
	})
	require.NoError(t, err)
	assert.True(t, out.Lines[0].PaidOnline.Equal(fixtures.Dec("60")))
	assert.True(t, out.Lines[0].PaidOffline.Equal(fixtures.Dec("40")))
	assert.True(t, out.Lines[0].DueAmount.IsZero())
	assert.True(t, out.PaidTotal.Equal(fixtures.Dec("100")))
	assert.True(t, out.SaleDue.IsZero())
	assert.Equal(t, PaymentModeMixed, out.PaymentMode)
}

func TestCreateSaleValidates(t *testing.T) {
	svc, env := newTestService(t)
	rice := env.Product(t, "Rice", enums.UnitCategoryKG, "100")
	other := env.Product(t, "Wheat", enums.UnitCategoryKG, "100")
	lot := seedLot(t, env, other, "L-000009", "10", 0)
	customer := env.Customer(t, "C", "0")
	actor := env.Actor(t)

	cases := map[string]CreateSaleInput{
		"no lines":     {Customer: &customer.ID},
		"no customer":  {Lines: []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "1"}}}},
		"bad discount": {Customer: &customer.ID, DiscountTotal: "1+1", Lines: []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "1"}}}},
		"zero qty":     {Customer: &customer.ID, Lines: []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{UnitPrice: "1"}}}},
		"overpaid":     {Customer: &customer.ID, Lines: []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "1", UnitPrice: "10", PaidOffline: "11"}}}},
		"wrong lot":    {Customer: &customer.ID, Lines: []LineInput{{Product: rice.ID, Lot: &lot.ID, LineInput: calculator.LineInput{Quantity: "1"}}}},
		"big discount": {Customer: &customer.ID, DiscountTotal: "11", Lines: []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "1", UnitPrice: "10"}}}},
		"paid amount":  {Customer: &customer.ID, Lines: []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "1", PaidAmount: "1"}}}},
	}
	for name, input := range cases {
		_, err := svc.Create(context.Background(), actor, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
	}

	_, err := svc.Create(context.Background(), actor, CreateSaleInput{
		Customer: &customer.ID,
		Lines:    []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "101", UnitPrice: "1"}}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	missing := uuid.New()
	_, err = svc.Create(context.Background(), actor, CreateSaleInput{
		Customer: &missing,
		Lines:    []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "1"}}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Empty(t, env.OutboxEvents(t))
	env.Reload(t, rice)
	assert.True(t, rice.CurrentStock.Equal(fixtures.Dec("100")))
}

func TestListAndByCustomer(t *testing.T) {
	svc, env := newTestService(t)
	rice := env.Product(t, "Rice", enums.UnitCategoryKG, "100")
	a := env.Customer(t, "A", "0")
	b := env.Customer(t, "B", "0")
	actor := env.Actor(t)
	for _, c := range []*models.Customer{a, a, b} {
		_, err := svc.Create(context.Background(), actor, CreateSaleInput{
			Customer: &c.ID,
			Lines:    []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "1", UnitPrice: "10"}}},
		})
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), ListFilter{}, pagination.PageParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)

	page, err = svc.ByCustomer(context.Background(), a.ID, pagination.PageParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.List(context.Background(), ListFilter{BillNo: "b-000003"}, pagination.PageParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B", page.Items[0].Customer.Name)

	_, err = svc.ByCustomer(context.Background(), uuid.New(), pagination.PageParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteSaleRestoresEverything(t *testing.T) {
	svc, env := newTestService(t)
	rice := env.Product(t, "Rice", enums.UnitCategoryKG, "100")
	lot := seedLot(t, env, rice, "L-000001", "100", 3)
	customer := env.Customer(t, "C", "50")

	sale, err := svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		Customer: &customer.ID,
		Lines:    []LineInput{{Product: rice.ID, Lot: &lot.ID, LineInput: calculator.LineInput{Quantity: "40", UnitPrice: "10", TotalBags: "1"}}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), env.Actor(t), sale.ID))
	env.Reload(t, lot)
	assert.True(t, lot.PendingQuantity.Equal(fixtures.Dec("100")))
	assert.Equal(t, 3, lot.PendingBag)
	env.Reload(t, rice)
	assert.True(t, rice.CurrentStock.Equal(fixtures.Dec("100")))
	env.Reload(t, customer)
	assert.True(t, customer.TotalDue.Equal(fixtures.Dec("50")))

	var lines int64
	require.NoError(t, env.Conn.Model(&models.SaleLine{}).Count(&lines).Error)
	assert.Zero(t, lines)
	assert.Equal(t, []enums.OutboxEventType{enums.EventSaleCreated, enums.EventSaleDeleted}, env.OutboxEvents(t))
}

func TestDeleteSaleWithReturnsConflicts(t *testing.T) {
	svc, env := newTestService(t)
	rice := env.Product(t, "Rice", enums.UnitCategoryKG, "100")
	customer := env.Customer(t, "C", "0")
	sale, err := svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		Customer: &customer.ID,
		Lines:    []LineInput{{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "4", UnitPrice: "10"}}},
	})
	require.NoError(t, err)
	require.NoError(t, env.Conn.Create(&models.Return{
		Type: enums.ReturnTypeSale, SaleID: &sale.ID, ProductID: rice.ID,
		Quantity: fixtures.Dec("1"), Amount: fixtures.Dec("10"),
	}).Error)

	err = svc.Delete(context.Background(), env.Actor(t), sale.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestReceipt(t *testing.T) {
	svc, env := newTestService(t)
	rice := env.Product(t, "Rice", enums.UnitCategoryKG, "100")
	feed := env.Product(t, "Feed", enums.UnitCategoryBag, "10")
	customer := env.Customer(t, "Hasan", "100")
	sale, err := svc.Create(context.Background(), env.Actor(t), CreateSaleInput{
		Customer: &customer.ID,
		Lines: []LineInput{
			{Product: rice.ID, LineInput: calculator.LineInput{Quantity: "60", UnitPrice: "40"}},
			{Product: feed.ID, LineInput: calculator.LineInput{Quantity: "1", UnitPrice: "900"}},
		},
		Payment: "1000",
	})
	require.NoError(t, err)

	receipt, err := svc.Receipt(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "B-000001", receipt.BillNo)
	assert.Equal(t, "Hasan", receipt.Customer.Name)
	require.Len(t, receipt.Items, 2)
	assert.Equal(t, "1.50 mon", receipt.Items[0].Display)
	assert.Equal(t, "kg", receipt.Items[0].Unit)
	assert.Empty(t, receipt.Items[1].Display)
	assert.True(t, receipt.Total.Equal(fixtures.Dec("3300")))
	assert.True(t, receipt.SaleDue.Equal(fixtures.Dec("2300")))
	assert.True(t, receipt.TotalDue.Equal(fixtures.Dec("2400")))
	assert.True(t, receipt.CustomerTotalDue.Equal(fixtures.Dec("2400")))

	_, err = svc.Receipt(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
