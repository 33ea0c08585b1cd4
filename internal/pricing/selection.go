package pricing

// USER SELECTION STATE

type choice struct {
	addOns map[string]struct{}
	tier   string
}

// Selection is an immutable value: every operation returns a new Selection
// and leaves the receiver untouched. The zero value is an empty selection.
//
// References to IDs that are unknown to the catalog, or to add-ons and tiers
// of offerings that are not selected, are ignored.
type Selection struct {
	chosen map[string]choice
}

// Choice is the wire form of one selected offering.
type Choice struct {
	ID         string   `json:"id" validate:"required,max=64"`
	AddOns     []string `json:"addOns,omitempty" validate:"max=32,dive,max=64"`
	BudgetTier string   `json:"budgetTier,omitempty" validate:"max=64"`
}

// NewSelection builds a selection from its wire form. Repeated offerings
// and add-ons collapse instead of toggling back off.
func NewSelection(c *Catalog, choices []Choice) Selection {
	var s Selection
	for _, ch := range choices {
		if s.Has(ch.ID) {
			continue
		}
		s = s.ToggleOffering(c, ch.ID)
		if !s.Has(ch.ID) {
			continue
		}
		for _, addOnID := range ch.AddOns {
			if !s.HasAddOn(ch.ID, addOnID) {
				s = s.ToggleAddOn(c, ch.ID, addOnID)
			}
		}
		if ch.BudgetTier != "" {
			s = s.SelectBudgetTier(c, ch.ID, ch.BudgetTier)
		}
	}
	return s
}

func (s Selection) clone() Selection {
	out := Selection{chosen: make(map[string]choice, len(s.chosen)+1)}
	for id, ch := range s.chosen {
		addOns := make(map[string]struct{}, len(ch.addOns))
		for a := range ch.addOns {
			addOns[a] = struct{}{}
		}
		out.chosen[id] = choice{addOns: addOns, tier: ch.tier}
	}
	return out
}

// ToggleOffering selects the offering with its first budget tier, or
// deselects it together with its add-ons and tier.
func (s Selection) ToggleOffering(c *Catalog, offeringID string) Selection {
	offering, ok := c.Offering(offeringID)
	if !ok {
		return s
	}

	next := s.clone()
	if _, selected := next.chosen[offeringID]; selected {
		delete(next.chosen, offeringID)
		return next
	}

	ch := choice{addOns: make(map[string]struct{})}
	if len(offering.BudgetTiers) > 0 {
		ch.tier = offering.BudgetTiers[0].ID
	}
	next.chosen[offeringID] = ch
	return next
}

// ToggleAddOn flips one add-on of an already selected offering.
func (s Selection) ToggleAddOn(c *Catalog, offeringID, addOnID string) Selection {
	if !s.Has(offeringID) {
		return s
	}
	offering, ok := c.Offering(offeringID)
	if !ok {
		return s
	}
	if _, ok := offering.addOn(addOnID); !ok {
		return s
	}

	next := s.clone()
	addOns := next.chosen[offeringID].addOns
	if _, on := addOns[addOnID]; on {
		delete(addOns, addOnID)
	} else {
		addOns[addOnID] = struct{}{}
	}
	return next
}

// SelectBudgetTier replaces the tier of an already selected offering.
func (s Selection) SelectBudgetTier(c *Catalog, offeringID, tierID string) Selection {
	if !s.Has(offeringID) {
		return s
	}
	offering, ok := c.Offering(offeringID)
	if !ok {
		return s
	}
	if _, ok := offering.budgetTier(tierID); !ok {
		return s
	}

	next := s.clone()
	ch := next.chosen[offeringID]
	ch.tier = tierID
	next.chosen[offeringID] = ch
	return next
}

func (s Selection) Has(offeringID string) bool {
	_, ok := s.chosen[offeringID]
	return ok
}

func (s Selection) HasAddOn(offeringID, addOnID string) bool {
	ch, ok := s.chosen[offeringID]
	if !ok {
		return false
	}
	_, on := ch.addOns[addOnID]
	return on
}

// BudgetTier returns the chosen tier ID, empty when none.
func (s Selection) BudgetTier(offeringID string) string {
	return s.chosen[offeringID].tier
}

func (s Selection) Count() int {
	return len(s.chosen)
}

// Choices returns the wire form in catalog order.
func (s Selection) Choices(c *Catalog) []Choice {
	out := make([]Choice, 0, len(s.chosen))
	for _, o := range c.Offerings {
		ch, ok := s.chosen[o.ID]
		if !ok {
			continue
		}
		item := Choice{ID: o.ID, BudgetTier: ch.tier}
		for _, a := range o.AddOns {
			if _, on := ch.addOns[a.ID]; on {
				item.AddOns = append(item.AddOns, a.ID)
			}
		}
		out = append(out, item)
	}
	return out
}
