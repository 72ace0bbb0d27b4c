package engines

import "github.com/shopspring/decimal"

// VATSide is the input/output side of a VAT line item.
type VATSide string

const (
	VATInput  VATSide = "input"
	VATOutput VATSide = "output"
)

// VATLineItem is one line of a VAT return (spec.md §4.3).
type VATLineItem struct {
	Side          VATSide
	Base          decimal.Decimal
	Rate          decimal.Decimal
	Tax           decimal.Decimal
	EU            bool
	ReverseCharge bool
}

// RateBucket accumulates base/tax for one VAT rate.
type RateBucket struct {
	Rate decimal.Decimal
	Base decimal.Decimal
	Tax  decimal.Decimal
	side VATSide
}

// VATResult is the computed VAT return (spec.md §4.3).
type VATResult struct {
	OutputBuckets []RateBucket
	InputBuckets  []RateBucket
	Liability     decimal.Decimal
	Credit        decimal.Decimal
	EUSupplies    decimal.Decimal
	ToPay         decimal.Decimal
	ToRefund      decimal.Decimal
	Warnings      []string
	Explain       Explain
}

var recognisedRates = []decimal.Decimal{VATRateZero, VATRateReduced1, VATRateReduced2, VATRateStandard}

func rateRecognised(r decimal.Decimal) bool {
	for _, rr := range recognisedRates {
		if rr.Equal(r) {
			return true
		}
	}
	return false
}

// VATReturn computes per-rate buckets, total liability/credit, EU supplies
// and the to-pay/to-refund figure (spec.md §4.3). At most one of ToPay,
// ToRefund is positive and the other is zero; when liability equals credit
// both are zero.
func VATReturn(items []VATLineItem) VATResult {
	var ex Explain
	buckets := map[string]*RateBucket{}
	bucketFor := func(side VATSide, rate decimal.Decimal) *RateBucket {
		key := string(side) + rate.String()
		b, ok := buckets[key]
		if !ok {
			b = &RateBucket{Rate: rate, side: side}
			buckets[key] = b
		}
		return b
	}

	var warnings []string
	liability := decimal.Zero
	credit := decimal.Zero
	euSupplies := decimal.Zero

	for _, it := range items {
		if !rateRecognised(it.Rate) {
			warnings = append(warnings, "unrecognised VAT rate "+it.Rate.String()+"%")
		}
		b := bucketFor(it.Side, it.Rate)
		b.Base = b.Base.Add(it.Base)
		b.Tax = b.Tax.Add(it.Tax)

		switch it.Side {
		case VATOutput:
			if it.EU && it.ReverseCharge {
				euSupplies = euSupplies.Add(it.Base)
			} else {
				liability = liability.Add(it.Tax)
			}
		case VATInput:
			credit = credit.Add(it.Tax)
		}
	}

	liability = round2(liability)
	credit = round2(credit)
	euSupplies = round2(euSupplies)
	ex.add("liability", liability)
	ex.add("credit", credit)
	ex.add("eu_supplies", euSupplies)

	toPay, toRefund := decimal.Zero, decimal.Zero
	diff := liability.Sub(credit)
	if diff.GreaterThan(decimal.Zero) {
		toPay = diff
	} else if diff.LessThan(decimal.Zero) {
		toRefund = diff.Neg()
	}
	ex.add("to_pay", toPay)
	ex.add("to_refund", toRefund)

	var outputs, inputs []RateBucket
	for _, b := range buckets {
		if b.side == VATOutput {
			outputs = append(outputs, *b)
		} else {
			inputs = append(inputs, *b)
		}
	}

	return VATResult{
		OutputBuckets: outputs,
		InputBuckets:  inputs,
		Liability:     liability,
		Credit:        credit,
		EUSupplies:    euSupplies,
		ToPay:         toPay,
		ToRefund:      toRefund,
		Warnings:      warnings,
		Explain:       ex,
	}
}
