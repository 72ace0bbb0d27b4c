package engines

import "github.com/shopspring/decimal"

// CorporateTaxInput is the annual corporate-tax calculation request
// (spec.md §4.3).
type CorporateTaxInput struct {
	Year         int
	Revenue      decimal.Decimal
	Expenses     decimal.Decimal
	Uplifts      decimal.Decimal
	Reductions   decimal.Decimal
	Prepayments  decimal.Decimal
}

// CorporateTaxResult is the computed corporate-tax liability.
type CorporateTaxResult struct {
	Profit    decimal.Decimal
	TaxBase   decimal.Decimal
	Rate      decimal.Decimal
	Tax       decimal.Decimal
	ToPay     decimal.Decimal
	ToRefund  decimal.Decimal
	Explain   Explain
}

// CorporateTax computes profit = revenue - expenses, base =
// max(0, profit + uplifts - reductions), rate 10% if revenue <= 1,000,000
// else 18%, and nets prepayments to a to-pay/to-refund figure (spec.md
// §4.3, §8.4: "rate is 10% iff revenue <= 1,000,000, else 18%; base is
// never negative").
func CorporateTax(in CorporateTaxInput) CorporateTaxResult {
	var ex Explain
	profit := round2(in.Revenue.Sub(in.Expenses))
	ex.add("profit", profit)

	base := profit.Add(in.Uplifts).Sub(in.Reductions)
	if base.LessThan(decimal.Zero) {
		base = decimal.Zero
	}
	base = round2(base)
	ex.add("tax_base", base)

	rate := CorporateTaxRateHigh
	if in.Revenue.LessThanOrEqual(CorporateTaxRevenueThreshold) {
		rate = CorporateTaxRateLow
	}
	ex.add("rate_percent", rate.Mul(decimal.NewFromInt(100)))

	tax := round2(base.Mul(rate))
	ex.add("tax", tax)

	toPay, toRefund := decimal.Zero, decimal.Zero
	diff := tax.Sub(in.Prepayments)
	if diff.GreaterThan(decimal.Zero) {
		toPay = diff
	} else if diff.LessThan(decimal.Zero) {
		toRefund = diff.Neg()
	}
	ex.add("to_pay", toPay)
	ex.add("to_refund", toRefund)

	return CorporateTaxResult{
		Profit: profit, TaxBase: base, Rate: rate, Tax: tax,
		ToPay: toPay, ToRefund: toRefund, Explain: ex,
	}
}
