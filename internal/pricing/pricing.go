package pricing

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownDuration = errors.New("unknown contract duration")

type PricedItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type LineItem struct {
	OfferingID string       `json:"offeringId"`
	BasePrice  float64      `json:"basePrice"`
	AddOns     []PricedItem `json:"addOns"`
	BudgetTier *PricedItem  `json:"budgetTier,omitempty"`
	LineTotal  float64      `json:"lineTotal"`
	OneTime    bool         `json:"oneTime"`
}

// PriceBreakdown is derived from a selection and never stored. All amounts
// are unrounded; see Rounded for display values.
type PriceBreakdown struct {
	Lines           []LineItem `json:"lines"`
	Count           int        `json:"count"`
	BaseSum         float64    `json:"baseSum"`
	AddOnsSum       float64    `json:"addOnsSum"`
	BudgetFeesSum   float64    `json:"budgetFeesSum"`
	DiscountPercent float64    `json:"discountPercent"`
	DiscountAmount  float64    `json:"discountAmount"`
	OldTotal        float64    `json:"oldTotal"`
	NewTotal        float64    `json:"newTotal"`
}

// ComputeBreakdown prices a selection. The multi-service discount applies to
// the sum of base prices only, never to add-ons or budget tier fees.
func ComputeBreakdown(c *Catalog, s Selection) PriceBreakdown {
	b := PriceBreakdown{Lines: []LineItem{}}

	for _, offering := range c.Offerings {
		ch, ok := s.chosen[offering.ID]
		if !ok {
			continue
		}

		line := LineItem{
			OfferingID: offering.ID,
			BasePrice:  offering.BasePrice,
			AddOns:     []PricedItem{},
			LineTotal:  offering.BasePrice,
			OneTime:    offering.OneTime,
		}
		for _, a := range offering.AddOns {
			if _, on := ch.addOns[a.ID]; !on {
				continue
			}
			line.AddOns = append(line.AddOns, PricedItem{ID: a.ID, Name: a.Name, Price: a.Price})
			line.LineTotal += a.Price
			b.AddOnsSum += a.Price
		}
		if tier, ok := offering.budgetTier(ch.tier); ok {
			line.BudgetTier = &PricedItem{ID: tier.ID, Name: tier.Label, Price: tier.Fee}
			line.LineTotal += tier.Fee
			b.BudgetFeesSum += tier.Fee
		}

		b.BaseSum += offering.BasePrice
		b.Lines = append(b.Lines, line)
	}

	b.Count = len(b.Lines)
	b.DiscountPercent = c.DiscountPercent(b.Count)
	b.DiscountAmount = b.BaseSum * b.DiscountPercent / 100
	b.OldTotal = b.BaseSum + b.AddOnsSum + b.BudgetFeesSum
	b.NewTotal = b.OldTotal - b.DiscountAmount

	return b
}

// Contract prices a breakdown over a contract length. It is derived from the
// breakdown and leaves its totals untouched.
type Contract struct {
	Months     int     `json:"months"`
	Multiplier float64 `json:"multiplier"`
	Monthly    float64 `json:"monthly"`
	OneTime    float64 `json:"oneTime"`
	Total      float64 `json:"total"`
}

// Recurring reports whether any priced line is billed monthly.
func (ct Contract) Recurring() bool {
	return ct.Monthly > 0
}

// ComputeContract bills monthly lines Months times at the duration
// multiplier and one-time lines once. Each line carries its share of the
// multi-service discount, which is taken from its base price. Zero months
// means the shortest duration of the catalog.
func ComputeContract(c *Catalog, b PriceBreakdown, months int) (Contract, error) {
	if months == 0 && len(c.Durations) > 0 {
		months = c.Durations[0].Months
	}
	d, ok := c.Duration(months)
	if !ok {
		return Contract{}, fmt.Errorf("%w: %d months", ErrUnknownDuration, months)
	}

	ct := Contract{Months: d.Months, Multiplier: d.Multiplier}
	for _, line := range b.Lines {
		amount := line.LineTotal - line.BasePrice*b.DiscountPercent/100
		if line.OneTime {
			ct.OneTime += amount
		} else {
			ct.Monthly += amount
		}
	}
	ct.Total = ct.Monthly*float64(d.Months)*d.Multiplier + ct.OneTime
	return ct, nil
}

// DisplayTotals holds whole-currency amounts for presentation.
type DisplayTotals struct {
	BaseSum        int64 `json:"baseSum"`
	DiscountAmount int64 `json:"discountAmount"`
	OldTotal       int64 `json:"oldTotal"`
	NewTotal       int64 `json:"newTotal"`
}

// Rounded rounds the totals to whole currency units. Rounding happens once,
// here, on the already accumulated sums.
func (b PriceBreakdown) Rounded() DisplayTotals {
	return DisplayTotals{
		BaseSum:        roundUnits(b.BaseSum),
		DiscountAmount: roundUnits(b.DiscountAmount),
		OldTotal:       roundUnits(b.OldTotal),
		NewTotal:       roundUnits(b.NewTotal),
	}
}

func roundUnits(v float64) int64 {
	return int64(math.Round(v))
}
