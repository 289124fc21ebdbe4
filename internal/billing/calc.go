package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineSubtotal computes quantity * unitPrice * (1 + taxPct/100) rounded half
// up to 2 decimal places. A nil taxPct means no tax.
func LineSubtotal(quantity, unitPrice decimal.Decimal, taxPct *decimal.Decimal) decimal.Decimal {
	sub := quantity.Mul(unitPrice)
	if taxPct != nil && !taxPct.IsZero() {
		sub = sub.Mul(hundred.Add(*taxPct)).Div(hundred)
	}
	return sub.Round(2)
}

// InvoiceTotal sums the subtotals of the given items. Each line is rounded
// before summing, so the total matches what the detail view displays.
func InvoiceTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// DeriveStatus maps the cumulative paid amount against the invoice total.
// Overpayment still derives PAID; the surplus stays visible on the payment
// ledger. VOID is terminal and never produced here.
func DeriveStatus(total, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return StatusOpen
	case paid.LessThan(total):
		return StatusPartial
	default:
		return StatusPaid
	}
}
