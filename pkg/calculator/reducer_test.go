package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

func kgProduct() ProductRef {
	return ProductRef{ID: "p-kg", Name: "Rice", Category: enums.UnitCategoryKG}
}

func bagProduct() ProductRef {
	return ProductRef{ID: "p-bag", Name: "Cement", Category: enums.UnitCategoryBag}
}

func trayProduct() ProductRef {
	return ProductRef{ID: "p-tray", Name: "Eggs", Category: enums.UnitCategoryTray}
}

func lineFor(p ProductRef) Line {
	return Reduce(Line{}, SelectProduct{Product: p})
}

func TestReduce_SelectProductPicksVariant(t *testing.T) {
	assert.IsType(t, KGUnits{}, lineFor(kgProduct()).Units)
	assert.IsType(t, BagUnits{}, lineFor(bagProduct()).Units)
	assert.IsType(t, TrayUnits{}, lineFor(trayProduct()).Units)

	line := ReduceAll(lineFor(kgProduct()), Edit{Field: FieldQuantity, Value: "80"})
	require.Equal(t, "2", line.AltQuantity())

	reset := Reduce(line, SelectProduct{Product: trayProduct()})
	assert.Equal(t, "", reset.Quantity)
	assert.Equal(t, "", reset.AltQuantity())
	assert.Equal(t, SplitPayment, reset.Mode)
}

func TestReduce_KGQuantity(t *testing.T) {
	line := Reduce(lineFor(kgProduct()), Edit{Field: FieldQuantity, Value: "100"})
	assert.Equal(t, "100", line.Quantity)
	assert.Equal(t, "2.50", line.AltQuantity())

	line = Reduce(line, Edit{Field: FieldDisplayQuantity, Value: "3"})
	assert.Equal(t, "120", line.Quantity)
	assert.Equal(t, "3", line.AltQuantity())
}

func TestReduce_BagQuantity(t *testing.T) {
	line := Reduce(lineFor(bagProduct()), Edit{Field: FieldQuantity, Value: "4"})
	assert.Equal(t, "4", line.Quantity)
	assert.Equal(t, "200", line.AltQuantity())

	line = Reduce(line, Edit{Field: FieldBagQuantity, Value: "75"})
	assert.Equal(t, "1.5", line.Quantity)
	assert.Equal(t, "75", line.AltQuantity())
}

func TestReduce_BagQuantityFromKgKeepsPrecision(t *testing.T) {
	line := ReduceAll(lineFor(bagProduct()),
		Edit{Field: FieldBagQuantity, Value: "37.3"},
		Edit{Field: FieldUnitPriceBag, Value: "2000"},
	)
	assert.Equal(t, "0.746", line.Quantity)
	assert.Equal(t, "37.3", line.AltQuantity())
	assert.True(t, line.Total.Equal(decimal.NewFromInt(1492)), line.String())

	small := Reduce(lineFor(bagProduct()), Edit{Field: FieldBagQuantity, Value: "0.2"})
	assert.Equal(t, "0.004", small.Quantity)
	assert.Equal(t, "0.2", small.AltQuantity())
}

func TestReduce_TrayQuantity(t *testing.T) {
	line := Reduce(lineFor(trayProduct()), Edit{Field: FieldDisplayQuantity, Value: "2"})
	assert.Equal(t, "14", line.Quantity)
	assert.Equal(t, "2", line.AltQuantity())

	line = Reduce(line, Edit{Field: FieldQuantity, Value: "10"})
	assert.Equal(t, "1.43", line.AltQuantity())
}

func TestReduce_SumOnEntryRewritesField(t *testing.T) {
	line := Reduce(lineFor(kgProduct()), Edit{Field: FieldQuantity, Value: "10+5+2.5"})
	assert.Equal(t, "17.5", line.Quantity)
	assert.Equal(t, "0.44", line.AltQuantity())
}

func TestReduce_ClampToLot(t *testing.T) {
	line := Reduce(lineFor(kgProduct()), SelectLot{Lot: LotRef{ID: "lot-1", Number: "L-000001", Pending: decimal.NewFromInt(100)}})
	line = Reduce(line, Edit{Field: FieldQuantity, Value: "150"})
	assert.Equal(t, "100", line.Quantity)
	assert.Equal(t, "2.50", line.AltQuantity())

	line = Reduce(line, Edit{Field: FieldDisplayQuantity, Value: "5"})
	assert.Equal(t, "100", line.Quantity)
	assert.Equal(t, "2.50", line.AltQuantity())
}

func TestReduce_SelectLotClampsExistingQuantity(t *testing.T) {
	line := Reduce(lineFor(trayProduct()), Edit{Field: FieldQuantity, Value: "70"})
	line = Reduce(line, SelectLot{Lot: LotRef{ID: "lot-2", Pending: decimal.NewFromInt(35)}})
	assert.Equal(t, "35", line.Quantity)
	assert.Equal(t, "5", line.AltQuantity())
}

func TestReduce_ClearLotResetsInputs(t *testing.T) {
	line := ReduceAll(lineFor(kgProduct()),
		SelectLot{Lot: LotRef{ID: "lot-1", Pending: decimal.NewFromInt(500)}},
		Edit{Field: FieldQuantity, Value: "40"},
		Edit{Field: FieldUnitPriceMon, Value: "400"},
	)
	require.True(t, line.Total.Equal(decimal.NewFromInt(400)))

	line = Reduce(line, ClearLot{})
	assert.Nil(t, line.Lot)
	assert.Equal(t, "", line.Quantity)
	assert.Equal(t, "", line.UnitPrice)
	assert.Equal(t, KGUnits{}, line.Units)
	assert.True(t, line.Total.IsZero())
}

func TestReduce_EmptyResetsSiblings(t *testing.T) {
	line := Reduce(lineFor(kgProduct()), Edit{Field: FieldQuantity, Value: "80"})
	line = Reduce(line, Edit{Field: FieldQuantity, Value: ""})
	assert.Equal(t, "", line.Quantity)
	assert.Equal(t, "", line.AltQuantity())

	bag := Reduce(lineFor(bagProduct()), Edit{Field: FieldBagQuantity, Value: "100"})
	bag = Reduce(bag, Edit{Field: FieldBagQuantity, Value: ""})
	assert.Equal(t, "", bag.Quantity)
	assert.Equal(t, "", bag.AltQuantity())
}

func TestReduce_PriceAsymmetry(t *testing.T) {
	kg := Reduce(lineFor(kgProduct()), Edit{Field: FieldUnitPriceMon, Value: "400"})
	units := kg.Units.(KGUnits)
	assert.Equal(t, "10", kg.UnitPrice)
	assert.Equal(t, "10", units.PricePerKG)
	assert.Equal(t, "400", units.PricePerMon)

	kg = Reduce(kg, Edit{Field: FieldUnitPriceKG, Value: "10"})
	assert.Equal(t, "400", kg.Units.(KGUnits).PricePerMon)
	assert.Equal(t, "10", kg.UnitPrice)

	bag := Reduce(lineFor(bagProduct()), Edit{Field: FieldUnitPriceBag, Value: "500"})
	assert.Equal(t, "500", bag.UnitPrice)

	tray := Reduce(lineFor(trayProduct()), Edit{Field: FieldUnitPricePeti, Value: "350"})
	assert.Equal(t, "350", tray.UnitPrice)
}

func TestReduce_PriceSumOnEntry(t *testing.T) {
	line := Reduce(lineFor(kgProduct()), Edit{Field: FieldUnitPriceMon, Value: "400+20"})
	units := line.Units.(KGUnits)
	assert.Equal(t, "420", units.PricePerMon)
	assert.Equal(t, "10.50", line.UnitPrice)
}

func TestReduce_InvalidInputKeepsState(t *testing.T) {
	line := Reduce(lineFor(kgProduct()), Edit{Field: FieldQuantity, Value: "12"})
	for _, raw := range []string{"abc", "1.2.3", "abc+5", "-4"} {
		assert.Equal(t, line, Reduce(line, Edit{Field: FieldQuantity, Value: raw}), "input %q", raw)
	}
	assert.Equal(t, line, Reduce(line, Edit{Field: FieldDiscount, Value: "5+5"}))
	assert.Equal(t, line, Reduce(line, Edit{Field: Field("color"), Value: "5"}))
}

func TestReduce_FieldOutsideVariantIsIgnored(t *testing.T) {
	bag := lineFor(bagProduct())
	assert.Equal(t, bag, Reduce(bag, Edit{Field: FieldUnitPriceMon, Value: "400"}))
	assert.Equal(t, bag, Reduce(bag, Edit{Field: FieldDisplayQuantity, Value: "4"}))
	assert.Equal(t, bag, Reduce(bag, Edit{Field: FieldTotalBags, Value: "4"}))

	kg := lineFor(kgProduct())
	assert.Equal(t, kg, Reduce(kg, Edit{Field: FieldBagQuantity, Value: "4"}))
}

func TestReduce_MissingProductIsNoop(t *testing.T) {
	empty := NewLine(nil, SplitPayment)
	assert.Equal(t, empty, Reduce(empty, Edit{Field: FieldQuantity, Value: "10"}))
	assert.Equal(t, empty, Reduce(empty, Edit{Field: FieldUnitPrice, Value: "10"}))
	assert.Equal(t, "", empty.AltQuantity())
}

func TestReduce_TotalBagsIsIndependent(t *testing.T) {
	line := ReduceAll(lineFor(kgProduct()),
		Edit{Field: FieldQuantity, Value: "100"},
		Edit{Field: FieldTotalBags, Value: "3 bags"},
	)
	assert.Equal(t, "3", line.ExtraBags())

	line = Reduce(line, Edit{Field: FieldQuantity, Value: "400"})
	assert.Equal(t, "3", line.ExtraBags())
}

func TestReduce_LineTotals(t *testing.T) {
	line := ReduceAll(lineFor(kgProduct()),
		Edit{Field: FieldQuantity, Value: "10"},
		Edit{Field: FieldUnitPrice, Value: "50"},
		Edit{Field: FieldDiscount, Value: "20"},
	)
	assert.True(t, line.Total.Equal(decimal.NewFromInt(480)), "total %s", line.Total)

	line = ReduceAll(line,
		Edit{Field: FieldPaidOnline, Value: "200"},
		Edit{Field: FieldPaidOffline, Value: "100"},
	)
	assert.True(t, line.Due.Equal(decimal.NewFromInt(180)), "due %s", line.Due)
}

func TestReduce_SinglePaymentMode(t *testing.T) {
	line := Reduce(NewLine(nil, SinglePayment), SelectProduct{Product: bagProduct()})
	require.Equal(t, SinglePayment, line.Mode)

	line = ReduceAll(line,
		Edit{Field: FieldQuantity, Value: "10"},
		Edit{Field: FieldUnitPriceBag, Value: "450"},
		Edit{Field: FieldPaidAmount, Value: "1000"},
	)
	assert.True(t, line.Total.Equal(decimal.NewFromInt(4500)))
	assert.True(t, line.Due.Equal(decimal.NewFromInt(3500)))

	assert.Equal(t, line, Reduce(line, Edit{Field: FieldPaidOnline, Value: "5"}))

	split := lineFor(bagProduct())
	assert.Equal(t, split, Reduce(split, Edit{Field: FieldPaidAmount, Value: "5"}))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	line := ReduceAll(lineFor(kgProduct()), Edit{Field: FieldQuantity, Value: "40"})
	before := line
	_ = Reduce(line, Edit{Field: FieldDisplayQuantity, Value: "9"})
	assert.Equal(t, before, line)
}

func TestReduce_Idempotent(t *testing.T) {
	events := []Event{
		Edit{Field: FieldQuantity, Value: "10+5"},
		Edit{Field: FieldUnitPriceMon, Value: "800"},
		Edit{Field: FieldDiscount, Value: "5"},
	}
	first := ReduceAll(lineFor(kgProduct()), events...)
	second := ReduceAll(lineFor(kgProduct()), events...)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Recalculate(first))
}

func TestParseField(t *testing.T) {
	f, err := ParseField("unitPriceMon")
	require.NoError(t, err)
	assert.Equal(t, FieldUnitPriceMon, f)

	_, err = ParseField("weight")
	require.Error(t, err)
}
