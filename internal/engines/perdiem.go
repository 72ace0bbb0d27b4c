package engines

import "github.com/shopspring/decimal"

// TravelInput is one travel-order calculation request (spec.md §4.3).
type TravelInput struct {
	KmDriven         decimal.Decimal
	KmRate           decimal.Decimal // actual rate claimed, may exceed KmAllowanceCap
	FullDays         int
	HalfDays         int
	RepresentationCost decimal.Decimal
}

// TravelResult reports both the total paid out and the tax-deductible
// portion, since amounts above statutory caps are still paid but not
// tax-deductible (spec.md §4.3).
type TravelResult struct {
	KmPaid              decimal.Decimal
	KmDeductible        decimal.Decimal
	PerDiemPaid         decimal.Decimal
	RepresentationPaid  decimal.Decimal
	RepresentationDeductible decimal.Decimal
	TotalPaid           decimal.Decimal
	TotalDeductible     decimal.Decimal
	Explain             Explain
}

// Travel computes the km allowance (capped at 0.30 EUR/km for tax
// deductibility, though the full claimed rate is still paid out),
// domestic per-diems (full 26.55, half 13.28), and representation expenses
// (50% tax non-deductible but still paid) — spec.md §4.3.
func Travel(in TravelInput) TravelResult {
	var ex Explain

	effectiveRate := in.KmRate
	if effectiveRate.IsZero() {
		effectiveRate = KmAllowanceCap
	}
	kmPaid := round2(in.KmDriven.Mul(effectiveRate))
	deductibleRate := effectiveRate
	if deductibleRate.GreaterThan(KmAllowanceCap) {
		deductibleRate = KmAllowanceCap
	}
	kmDeductible := round2(in.KmDriven.Mul(deductibleRate))
	ex.add("km_paid", kmPaid)
	ex.add("km_deductible", kmDeductible)

	perDiem := round2(DomesticPerDiemFull.Mul(decimal.NewFromInt(int64(in.FullDays))).
		Add(DomesticPerDiemHalf.Mul(decimal.NewFromInt(int64(in.HalfDays)))))
	ex.add("per_diem", perDiem)

	repPaid := round2(in.RepresentationCost)
	repDeductible := round2(repPaid.Mul(decimal.NewFromInt(1).Sub(RepresentationNonDeductibleRate)))
	ex.add("representation_paid", repPaid)
	ex.add("representation_deductible", repDeductible)

	totalPaid := round2(kmPaid.Add(perDiem).Add(repPaid))
	totalDeductible := round2(kmDeductible.Add(perDiem).Add(repDeductible))
	ex.add("total_paid", totalPaid)
	ex.add("total_deductible", totalDeductible)

	return TravelResult{
		KmPaid: kmPaid, KmDeductible: kmDeductible,
		PerDiemPaid: perDiem,
		RepresentationPaid: repPaid, RepresentationDeductible: repDeductible,
		TotalPaid: totalPaid, TotalDeductible: totalDeductible,
		Explain: ex,
	}
}
