package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SERVICE CATALOG

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

// AddOn and BudgetTier names are optional; the translation store has the
// localized ones.
type AddOn struct {
	ID    string  `yaml:"id" json:"id"`
	Price float64 `yaml:"price" json:"price"`
	Name  string  `yaml:"name,omitempty" json:"name,omitempty"`
}

type BudgetTier struct {
	ID    string  `yaml:"id" json:"id"`
	Fee   float64 `yaml:"fee" json:"fee"`
	Label string  `yaml:"label,omitempty" json:"label,omitempty"`
}

// ServiceOffering is a sellable line item. Display strings live in the
// translation store and are joined by ID. Prices are per month unless
// OneTime is set.
type ServiceOffering struct {
	ID          string       `yaml:"id" json:"id"`
	Icon        string       `yaml:"icon" json:"icon"`
	BasePrice   float64      `yaml:"base_price" json:"basePrice"`
	OneTime     bool         `yaml:"one_time" json:"oneTime"`
	AddOns      []AddOn      `yaml:"add_ons" json:"addOns"`
	BudgetTiers []BudgetTier `yaml:"budget_tiers" json:"budgetTiers"`
}

func (o ServiceOffering) addOn(id string) (AddOn, bool) {
	for _, a := range o.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOn{}, false
}

func (o ServiceOffering) budgetTier(id string) (BudgetTier, bool) {
	for _, t := range o.BudgetTiers {
		if t.ID == id {
			return t, true
		}
	}
	return BudgetTier{}, false
}

// DiscountStep grants Percent off the base-price sum once at least
// MinCount offerings are selected.
type DiscountStep struct {
	MinCount int     `yaml:"min_count" json:"minCount"`
	Percent  float64 `yaml:"percent" json:"percent"`
}

// DefaultDiscountSchedule is the agency's multi-service discount rule:
// 2 services 10%, 3 services 15%, 4 or more 20%.
func DefaultDiscountSchedule() []DiscountStep {
	return []DiscountStep{
		{MinCount: 2, Percent: 10},
		{MinCount: 3, Percent: 15},
		{MinCount: 4, Percent: 20},
	}
}

// ContractDuration is a contract length in months. Monthly offerings are
// billed Months times at Multiplier.
type ContractDuration struct {
	Months     int     `yaml:"months" json:"months"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// DefaultDurations: 1 month at full price, 3 months -5%, 6 months -10%,
// 12 months -15%.
func DefaultDurations() []ContractDuration {
	return []ContractDuration{
		{Months: 1, Multiplier: 1},
		{Months: 3, Multiplier: 0.95},
		{Months: 6, Multiplier: 0.9},
		{Months: 12, Multiplier: 0.85},
	}
}

type Catalog struct {
	Currency  string             `yaml:"currency" json:"currency"`
	Offerings []ServiceOffering  `yaml:"offerings" json:"offerings"`
	Discounts []DiscountStep     `yaml:"discounts" json:"discounts"`
	Durations []ContractDuration `yaml:"durations" json:"durations"`

	index map[string]int
}

// NewCatalog validates offerings and builds the lookup index. A nil
// schedule means DefaultDiscountSchedule; durations are DefaultDurations.
func NewCatalog(currency string, offerings []ServiceOffering, discounts []DiscountStep) (*Catalog, error) {
	if discounts == nil {
		discounts = DefaultDiscountSchedule()
	}
	c := &Catalog{
		Currency:  currency,
		Offerings: offerings,
		Discounts: discounts,
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog from path, or the embedded default when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	const operation = "pricing.LoadCatalog"

	data := defaultCatalogYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read catalog: %w", operation, err)
		}
	}

	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return c, nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if c.Discounts == nil {
		c.Discounts = DefaultDiscountSchedule()
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) init() error {
	c.index = make(map[string]int, len(c.Offerings))
	for i, o := range c.Offerings {
		if o.ID == "" {
			return fmt.Errorf("%w: offering #%d has empty id", ErrInvalidCatalog, i)
		}
		if _, dup := c.index[o.ID]; dup {
			return fmt.Errorf("%w: duplicate offering %q", ErrInvalidCatalog, o.ID)
		}
		if !validAmount(o.BasePrice) {
			return fmt.Errorf("%w: bad base price for %q", ErrInvalidCatalog, o.ID)
		}
		seen := make(map[string]bool)
		for _, a := range o.AddOns {
			if a.ID == "" || seen["addon:"+a.ID] {
				return fmt.Errorf("%w: bad add-on %q in %q", ErrInvalidCatalog, a.ID, o.ID)
			}
			if !validAmount(a.Price) {
				return fmt.Errorf("%w: bad add-on price %q in %q", ErrInvalidCatalog, a.ID, o.ID)
			}
			seen["addon:"+a.ID] = true
		}
		for _, t := range o.BudgetTiers {
			if t.ID == "" || seen["tier:"+t.ID] {
				return fmt.Errorf("%w: bad budget tier %q in %q", ErrInvalidCatalog, t.ID, o.ID)
			}
			if !validAmount(t.Fee) {
				return fmt.Errorf("%w: bad tier fee %q in %q", ErrInvalidCatalog, t.ID, o.ID)
			}
			seen["tier:"+t.ID] = true
		}
		c.index[o.ID] = i
	}

	// A single offering never gets a discount.
	sort.SliceStable(c.Discounts, func(i, j int) bool {
		return c.Discounts[i].MinCount < c.Discounts[j].MinCount
	})
	prev := 0.0
	for _, d := range c.Discounts {
		if d.MinCount < 2 {
			return fmt.Errorf("%w: discount min_count must be at least 2", ErrInvalidCatalog)
		}
		if !validAmount(d.Percent) || d.Percent < prev || d.Percent > 100 {
			return fmt.Errorf("%w: discount percent %.2f breaks the schedule", ErrInvalidCatalog, d.Percent)
		}
		prev = d.Percent
	}

	if c.Durations == nil {
		c.Durations = DefaultDurations()
	}
	if len(c.Durations) == 0 {
		return fmt.Errorf("%w: no contract durations", ErrInvalidCatalog)
	}
	sort.SliceStable(c.Durations, func(i, j int) bool {
		return c.Durations[i].Months < c.Durations[j].Months
	})
	for i, d := range c.Durations {
		if d.Months < 1 || (i > 0 && c.Durations[i-1].Months == d.Months) {
			return fmt.Errorf("%w: bad duration of %d months", ErrInvalidCatalog, d.Months)
		}
		if !validAmount(d.Multiplier) || d.Multiplier == 0 || d.Multiplier > 1 {
			return fmt.Errorf("%w: duration multiplier %.2f out of range", ErrInvalidCatalog, d.Multiplier)
		}
	}
	return nil
}

// validAmount reports whether v is a finite, non-negative number.
func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Offering returns the offering with the given ID.
func (c *Catalog) Offering(id string) (ServiceOffering, bool) {
	i, ok := c.index[id]
	if !ok {
		return ServiceOffering{}, false
	}
	return c.Offerings[i], true
}

// DiscountPercent is a step function on the number of selected offerings
// alone.
func (c *Catalog) DiscountPercent(count int) float64 {
	percent := 0.0
	for _, d := range c.Discounts {
		if count >= d.MinCount {
			percent = d.Percent
		}
	}
	return percent
}

// Duration returns the contract duration of the given length.
func (c *Catalog) Duration(months int) (ContractDuration, bool) {
	for _, d := range c.Durations {
		if d.Months == months {
			return d, true
		}
	}
	return ContractDuration{}, false
}
