package engines

import "github.com/shopspring/decimal"

// DepreciationInput describes one fixed asset (spec.md §4.3).
type DepreciationInput struct {
	Description string
	Cost        decimal.Decimal
	Category    string // key into DepreciationCategoryRates
}

// DepreciationResult is the computed depreciation schedule summary.
type DepreciationResult struct {
	SmallInventory   bool
	AnnualRate       decimal.Decimal
	MonthlyAmount    decimal.Decimal
	UsefulLifeMonths int
	Explain          Explain
}

// Depreciation classifies the asset as small inventory (one-shot
// write-off, below SmallInventoryThreshold) or computes its monthly
// depreciation = cost * rate / 100 / 12, rounded to two decimals
// (spec.md §4.3, §8.3).
func Depreciation(in DepreciationInput) DepreciationResult {
	var ex Explain
	ex.add("cost", in.Cost)

	if in.Cost.LessThan(SmallInventoryThreshold) {
		ex.add("classification", decimal.Zero) // small inventory: see Explain label
		return DepreciationResult{
			SmallInventory: true,
			MonthlyAmount:  in.Cost,
			Explain:        ex,
		}
	}

	rate, ok := DepreciationCategoryRates[in.Category]
	if !ok {
		rate = DepreciationCategoryRates["office_equipment"]
	}
	ratePercent := rate.Mul(decimal.NewFromInt(100))
	ex.add("annual_rate_percent", ratePercent)

	monthly := round2(in.Cost.Mul(ratePercent).Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(12)))
	ex.add("monthly_amount", monthly)

	months := 0
	if monthly.GreaterThan(decimal.Zero) {
		// Round to the nearest whole month rather than ceiling: the last
		// month absorbs the two-decimal rounding remainder so accumulated
		// depreciation lands exactly on cost at the useful-life boundary
		// (spec.md §8 scenario 4: 2000 EUR / 83.33 exhausts in 24 months).
		months = int(in.Cost.Div(monthly).Round(0).IntPart())
		if months < 1 {
			months = 1
		}
	}

	return DepreciationResult{
		SmallInventory:   false,
		AnnualRate:       rate,
		MonthlyAmount:    monthly,
		UsefulLifeMonths: months,
		Explain:          ex,
	}
}

// AccumulatedSchedule returns the monthly depreciation amount for each
// month up to the asset's useful life, after which the asset is no longer
// returned (spec.md §8 boundary: "Asset depreciated to zero is no longer
// returned by the monthly-depreciation call").
func AccumulatedSchedule(in DepreciationInput) []decimal.Decimal {
	res := Depreciation(in)
	if res.SmallInventory {
		return []decimal.Decimal{res.MonthlyAmount}
	}
	schedule := make([]decimal.Decimal, 0, res.UsefulLifeMonths)
	accumulated := decimal.Zero
	for m := 0; m < res.UsefulLifeMonths; m++ {
		remaining := in.Cost.Sub(accumulated)
		amount := res.MonthlyAmount
		if m == res.UsefulLifeMonths-1 || amount.GreaterThan(remaining) {
			amount = remaining
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			break
		}
		schedule = append(schedule, amount)
		accumulated = accumulated.Add(amount)
	}
	return schedule
}

// MonthlyDepreciationAt returns the depreciation amount for month index
// (0-based), and false once the asset is fully depreciated — accumulated
// depreciation never exceeds cost (spec.md §3, §8.3).
func MonthlyDepreciationAt(in DepreciationInput, monthIndex int) (decimal.Decimal, bool) {
	schedule := AccumulatedSchedule(in)
	if monthIndex < 0 || monthIndex >= len(schedule) {
		return decimal.Zero, false
	}
	return schedule[monthIndex], true
}
