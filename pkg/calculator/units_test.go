package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

var tolerance = decimal.RequireFromString("0.01")

func withinTolerance(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	diff := want.Sub(got).Abs()
	assert.True(t, diff.LessThanOrEqual(tolerance), "want %s got %s", want, got)
}

func TestMonRoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "1", "40", "55.5", "123.45", "1000", "0.01"} {
		kg := decimal.RequireFromString(raw)
		withinTolerance(t, kg, ToMon(kg).Mul(KgPerMon))
		withinTolerance(t, kg, FromMon(ToMon(kg)))
	}
}

func TestPetiRoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "1", "7", "10", "22.5", "999"} {
		trays := decimal.RequireFromString(raw)
		withinTolerance(t, trays, ToPeti(trays).Mul(TraysPerPeti))
		withinTolerance(t, trays, FromPeti(ToPeti(trays)))
	}
}

func TestBagConversions(t *testing.T) {
	assert.True(t, BagsToKg(decimal.NewFromInt(3)).Equal(decimal.NewFromInt(150)))
	assert.True(t, KgToBags(decimal.NewFromInt(75)).Equal(decimal.RequireFromString("1.5")))
}

func TestAltQuantity(t *testing.T) {
	cases := []struct {
		category enums.UnitCategory
		base     string
		alt      string
	}{
		{enums.UnitCategoryKG, "80", "2"},
		{enums.UnitCategoryBag, "2", "100"},
		{enums.UnitCategoryTray, "14", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.category.String(), func(t *testing.T) {
			base := decimal.RequireFromString(tc.base)
			alt := AltQuantity(tc.category, base)
			require.Equal(t, tc.alt, Format(alt))
			withinTolerance(t, base, BaseFromAlt(tc.category, alt))
		})
	}
	assert.True(t, AltQuantity("", decimal.NewFromInt(5)).IsZero())
}

func TestSumEntry(t *testing.T) {
	cases := map[string]string{
		"10+5+2.5": "17.5",
		"abc+5":    "5",
		"":         "0",
		"7":        "7",
		" 3 + 4 ":  "7",
		"1.5+":     "1.5",
		".5+.5":    "1",
	}
	for raw, want := range cases {
		got := SumEntry(raw)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "SumEntry(%q) = %s, want %s", raw, got, want)
	}
}

func TestValidEntry(t *testing.T) {
	assert.True(t, ValidEntry("", false))
	assert.True(t, ValidEntry("12.5", false))
	assert.True(t, ValidEntry("12.", false))
	assert.True(t, ValidEntry("10+5", true))
	assert.False(t, ValidEntry("10+5", false))
	assert.False(t, ValidEntry("1.2.3", false))
	assert.False(t, ValidEntry("abc", true))
	assert.False(t, ValidEntry("-5", false))
	assert.False(t, ValidEntry("abc+5", true))
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", ""},
		{"0.001", ""},
		{"12.00", "12"},
		{"12", "12"},
		{"12.345", "12.35"},
		{"12.5", "12.50"},
		{"0.125", "0.13"},
		{"-20", "-20"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(decimal.RequireFromString(tc.in)), "Format(%s)", tc.in)
	}
}

func TestLotNote(t *testing.T) {
	assert.Equal(t, "L-000004 :- 10+5", LotNote("L-000004", "10+5"))
	assert.Equal(t, "", LotNote("L-000004", "15"))
	assert.Equal(t, "", LotNote("", "10+5"))
}

func TestAltPrice(t *testing.T) {
	assert.Equal(t, "400", AltPrice(enums.UnitCategoryKG, decimal.NewFromInt(10)).String())
	assert.Equal(t, "2500", AltPrice(enums.UnitCategoryBag, decimal.NewFromInt(2500)).String())
	assert.Equal(t, "350", AltPrice(enums.UnitCategoryTray, decimal.NewFromInt(350)).String())
}
