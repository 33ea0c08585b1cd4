package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := NewCatalog("$", []ServiceOffering{
		{
			ID:        "a",
			BasePrice: 500,
			AddOns: []AddOn{
				{ID: "a1", Price: 100, Name: "Extra A1"},
				{ID: "a2", Price: 50, Name: "Extra A2"},
			},
			BudgetTiers: []BudgetTier{
				{ID: "low", Fee: 0, Label: "Low"},
				{ID: "high", Fee: 200, Label: "High"},
			},
		},
		{ID: "b", BasePrice: 600},
		{ID: "c", BasePrice: 333.33, AddOns: []AddOn{{ID: "c1", Price: 0.4, Name: "C1"}}},
		{ID: "d", BasePrice: 250},
		{ID: "e", BasePrice: 100},
	}, nil)
	require.NoError(t, err)
	return c
}

func selectAll(c *Catalog, ids ...string) Selection {
	var s Selection
	for _, id := range ids {
		s = s.ToggleOffering(c, id)
	}
	return s
}

func TestComputeBreakdown_TwoOfferings(t *testing.T) {
	c, err := NewCatalog("$", []ServiceOffering{
		{ID: "A", BasePrice: 500},
		{ID: "B", BasePrice: 600},
	}, nil)
	require.NoError(t, err)

	b := ComputeBreakdown(c, selectAll(c, "A", "B"))

	assert.Equal(t, 2, b.Count)
	assert.Equal(t, 1100.0, b.BaseSum)
	assert.Equal(t, 10.0, b.DiscountPercent)
	assert.Equal(t, 110.0, b.DiscountAmount)
	assert.Equal(t, 1100.0, b.OldTotal)
	assert.Equal(t, 990.0, b.NewTotal)
}

func TestComputeBreakdown_Empty(t *testing.T) {
	c := testCatalog(t)

	b := ComputeBreakdown(c, Selection{})

	assert.Equal(t, 0, b.Count)
	assert.Empty(t, b.Lines)
	assert.Zero(t, b.BaseSum)
	assert.Zero(t, b.DiscountPercent)
	assert.Zero(t, b.DiscountAmount)
	assert.Zero(t, b.OldTotal)
	assert.Zero(t, b.NewTotal)
}

func TestComputeBreakdown_DiscountExcludesAddOnsAndTiers(t *testing.T) {
	c := testCatalog(t)

	s := selectAll(c, "a", "b")
	s = s.ToggleAddOn(c, "a", "a1")
	s = s.SelectBudgetTier(c, "a", "high")

	b := ComputeBreakdown(c, s)

	require.Len(t, b.Lines, 2)
	assert.Equal(t, 800.0, b.Lines[0].LineTotal) // 500 + 100 + 200
	assert.Equal(t, 600.0, b.Lines[1].LineTotal)
	assert.Equal(t, 1100.0, b.BaseSum)
	assert.Equal(t, 100.0, b.AddOnsSum)
	assert.Equal(t, 200.0, b.BudgetFeesSum)
	assert.Equal(t, 110.0, b.DiscountAmount)
	assert.Equal(t, 1400.0, b.OldTotal)
	assert.Equal(t, 1290.0, b.NewTotal)
}

func TestComputeBreakdown_SingleOfferingHasNoDiscount(t *testing.T) {
	c := testCatalog(t)

	s := selectAll(c, "a").ToggleAddOn(c, "a", "a2")
	b := ComputeBreakdown(c, s)

	assert.Equal(t, 1, b.Count)
	assert.Zero(t, b.DiscountAmount)
	assert.Equal(t, b.OldTotal, b.NewTotal)
	assert.Equal(t, 550.0, b.NewTotal)
}

func TestComputeBreakdown_Deterministic(t *testing.T) {
	c := testCatalog(t)
	s := selectAll(c, "c", "a", "d").ToggleAddOn(c, "c", "c1")

	assert.Equal(t, ComputeBreakdown(c, s), ComputeBreakdown(c, s))
}

func TestComputeBreakdown_AllSubsets(t *testing.T) {
	c := testCatalog(t)
	ids := []string{"a", "b", "c", "d", "e"}

	for mask := 0; mask < 1<<len(ids); mask++ {
		var s Selection
		for i, id := range ids {
			if mask&(1<<i) != 0 {
				s = s.ToggleOffering(c, id)
			}
		}
		if s.Has("a") {
			s = s.ToggleAddOn(c, "a", "a1").SelectBudgetTier(c, "a", "high")
		}

		b := ComputeBreakdown(c, s)

		assert.LessOrEqual(t, b.NewTotal, b.OldTotal, "mask %b", mask)
		if b.Count < 2 {
			assert.Zero(t, b.DiscountAmount, "mask %b", mask)
			assert.Equal(t, b.OldTotal, b.NewTotal, "mask %b", mask)
		}
	}
}

func TestDiscountPercent_Schedule(t *testing.T) {
	c := testCatalog(t)

	cases := map[int]float64{0: 0, 1: 0, 2: 10, 3: 15, 4: 20, 5: 20, 42: 20}
	for count, want := range cases {
		assert.Equal(t, want, c.DiscountPercent(count), "count %d", count)
	}

	prev := 0.0
	for count := 0; count <= 10; count++ {
		p := c.DiscountPercent(count)
		assert.Contains(t, []float64{0, 10, 15, 20}, p)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestRounded_OnlyAtPresentation(t *testing.T) {
	c := testCatalog(t)

	// Rounding each amount first would give 333 + 0.
	s := selectAll(c, "c").ToggleAddOn(c, "c", "c1")
	b := ComputeBreakdown(c, s)

	assert.InDelta(t, 333.73, b.NewTotal, 1e-9)
	assert.Equal(t, int64(334), b.Rounded().NewTotal)
}

func TestFormatQuoteSummary(t *testing.T) {
	c, err := NewCatalog("$", []ServiceOffering{
		{ID: "A", Icon: "🎯", BasePrice: 500, AddOns: []AddOn{{ID: "x", Price: 100, Name: "Extra"}}},
		{ID: "B", Icon: "📱", BasePrice: 600},
	}, nil)
	require.NoError(t, err)

	s := selectAll(c, "A", "B").ToggleAddOn(c, "A", "x")
	b := ComputeBreakdown(c, s)
	ct, err := ComputeContract(c, b, 6)
	require.NoError(t, err)
	names := func(id string) string { return "Service " + id }

	text := FormatQuoteSummary(c, b, ct, names, language.English)

	assert.Contains(t, text, "Услуги: 🎯 Service A, 📱 Service B\nДлительность: 6 мес.\n")
	assert.Contains(t, text, "- Service A: $600 (Extra)")
	assert.Contains(t, text, "Скидка 10%: -$110")
	assert.Contains(t, text, "Итого: $1,090\nЗа весь срок: $5,886")
}

func TestFormatQuoteSummary_OneTimeOnlyHasNoDuration(t *testing.T) {
	c, err := NewCatalog("$", []ServiceOffering{
		{ID: "site", BasePrice: 1000, OneTime: true},
	}, nil)
	require.NoError(t, err)

	b := ComputeBreakdown(c, selectAll(c, "site"))
	ct, err := ComputeContract(c, b, 12)
	require.NoError(t, err)

	text := FormatQuoteSummary(c, b, ct, func(id string) string { return id }, language.English)

	assert.NotContains(t, text, "Длительность")
	assert.NotContains(t, text, "За весь срок")
	assert.Equal(t, 1000.0, ct.Total)
}

func TestComputeContract_MonthlyAndOneTime(t *testing.T) {
	c, err := NewCatalog("$", []ServiceOffering{
		{ID: "ads", BasePrice: 500, AddOns: []AddOn{{ID: "x", Price: 100}}},
		{ID: "site", BasePrice: 600, OneTime: true},
	}, nil)
	require.NoError(t, err)

	b := ComputeBreakdown(c, selectAll(c, "ads", "site").ToggleAddOn(c, "ads", "x"))
	ct, err := ComputeContract(c, b, 6)
	require.NoError(t, err)

	// ads: 600 - 10% of 500; site: 600 - 10% of 600
	assert.Equal(t, 6, ct.Months)
	assert.Equal(t, 0.9, ct.Multiplier)
	assert.InDelta(t, 550, ct.Monthly, 1e-9)
	assert.InDelta(t, 540, ct.OneTime, 1e-9)
	assert.InDelta(t, 550*6*0.9+540, ct.Total, 1e-9)
	assert.True(t, ct.Recurring())

	assert.Equal(t, 1090.0, b.NewTotal, "breakdown totals are not affected")
}

func TestComputeContract_OneMonthEqualsNewTotal(t *testing.T) {
	c := testCatalog(t)
	c.Offerings[1].OneTime = true
	ids := []string{"a", "b", "c", "d", "e"}

	for mask := 1; mask < 1<<len(ids); mask++ {
		var s Selection
		for i, id := range ids {
			if mask&(1<<i) != 0 {
				s = s.ToggleOffering(c, id)
			}
		}
		b := ComputeBreakdown(c, s)

		ct, err := ComputeContract(c, b, 1)
		require.NoError(t, err)
		assert.InDelta(t, b.NewTotal, ct.Total, 1e-6)
	}
}

func TestComputeContract_Duration(t *testing.T) {
	c := testCatalog(t)
	b := ComputeBreakdown(c, selectAll(c, "a"))

	ct, err := ComputeContract(c, b, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ct.Months, "zero picks the shortest duration")

	_, err = ComputeContract(c, b, 5)
	assert.ErrorIs(t, err, ErrUnknownDuration)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,100", FormatMoney(language.English, "$", 1099.6))
	assert.Equal(t, "$0", FormatMoney(language.English, "$", 0))
}
