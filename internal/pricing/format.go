package pricing

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Namer resolves the display name of an offering.
type Namer func(offeringID string) string

// FormatMoney renders a whole-unit amount with locale digit grouping.
func FormatMoney(tag language.Tag, currency string, amount float64) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%s%d", currency, roundUnits(amount))
}

// FormatQuoteSummary renders the calculator result as the free-text part
// of a lead. The contract lines are written only when a monthly offering
// was picked.
func FormatQuoteSummary(c *Catalog, b PriceBreakdown, ct Contract, name Namer, tag language.Tag) string {
	var sb strings.Builder

	sb.WriteString("Калькулятор стоимости:\n\n")
	sb.WriteString("Услуги: " + ServiceNames(c, b, name) + "\n")
	if ct.Recurring() {
		fmt.Fprintf(&sb, "Длительность: %d мес.\n", ct.Months)
	}

	for _, line := range b.Lines {
		fmt.Fprintf(&sb, "- %s: %s", name(line.OfferingID), FormatMoney(tag, c.Currency, line.LineTotal))
		var extras []string
		for _, a := range line.AddOns {
			extras = append(extras, a.Name)
		}
		if line.BudgetTier != nil {
			extras = append(extras, line.BudgetTier.Name)
		}
		if len(extras) > 0 {
			sb.WriteString(" (" + strings.Join(extras, ", ") + ")")
		}
		sb.WriteString("\n")
	}

	if b.DiscountAmount > 0 {
		fmt.Fprintf(&sb, "Без скидки: %s\n", FormatMoney(tag, c.Currency, b.OldTotal))
		fmt.Fprintf(&sb, "Скидка %.0f%%: -%s\n", b.DiscountPercent, FormatMoney(tag, c.Currency, b.DiscountAmount))
	}
	fmt.Fprintf(&sb, "Итого: %s", FormatMoney(tag, c.Currency, b.NewTotal))
	if ct.Recurring() {
		fmt.Fprintf(&sb, "\nЗа весь срок: %s", FormatMoney(tag, c.Currency, ct.Total))
	}

	return sb.String()
}

// ServiceNames joins icon and name of every priced offering.
func ServiceNames(c *Catalog, b PriceBreakdown, name Namer) string {
	names := make([]string, 0, len(b.Lines))
	for _, line := range b.Lines {
		label := name(line.OfferingID)
		if o, ok := c.Offering(line.OfferingID); ok && o.Icon != "" {
			label = o.Icon + " " + label
		}
		names = append(names, label)
	}
	return strings.Join(names, ", ")
}
