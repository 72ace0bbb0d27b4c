// Package engines implements the deterministic accounting engines
// (spec.md §4.3): payroll, VAT, depreciation, corporate tax, per-diem,
// till validation and other income. None of these consult the LLM — every
// currency figure on an approved BookingProposal must trace back to one of
// these closed-form calculations (spec.md Non-goals).
//
// Every engine uses github.com/shopspring/decimal rather than float64 so
// that "re-running payroll with the same inputs 100 times produces the
// same net to the last cent" (spec.md §8) holds by construction, not by
// convention.
package engines

import "github.com/shopspring/decimal"

// Named statutory constants, each citing the NN (official gazette) article
// it encodes, per design note "Preservation of Croatian-specific constants":
// when the law changes, the diff is one constant in this file.
var (
	// Pillar-1/pillar-2 pension contribution rates (Zakon o mirovinskom
	// osiguranju, NN 157/13 i dalje).
	Pillar1Rate = decimal.NewFromFloat(0.15)
	Pillar2Rate = decimal.NewFromFloat(0.05)

	// Employer health-insurance contribution (Zakon o obveznom
	// zdravstvenom osiguranju, NN 80/13 i dalje).
	EmployerHealthRate = decimal.NewFromFloat(0.165)

	// Personal allowance base and per-dependent/child factors
	// (Zakon o porezu na dohodak, NN 115/16 i dalje, čl. 12-14).
	AllowanceBase           = decimal.NewFromFloat(560.00)
	DependentFactor         = decimal.NewFromFloat(0.7)
	DisabilityFactor        = decimal.NewFromFloat(0.4)
	ChildFactors            = []decimal.Decimal{
		decimal.NewFromFloat(0.7),
		decimal.NewFromFloat(1.0),
		decimal.NewFromFloat(1.4),
		decimal.NewFromFloat(1.9),
	}

	// Progressive income-tax brackets (čl. 20).
	TaxBracketLow   = decimal.NewFromFloat(4200.00)
	TaxRateLow      = decimal.NewFromFloat(0.20)
	TaxRateHigh     = decimal.NewFromFloat(0.30)

	// Minimum wage, used only to decide the below-minimum-wage warning
	// (spec.md §8 boundary behaviour).
	MinimumWage = decimal.NewFromFloat(970.00)

	// Work-contract ("ugovor o djelu") rates.
	WorkContractPillar1Rate = decimal.NewFromFloat(0.075)
	WorkContractPillar2Rate = decimal.NewFromFloat(0.025)
	WorkContractHealthRate  = decimal.NewFromFloat(0.075)

	// Royalty statutory deduction before contributions.
	RoyaltyDeduction = decimal.NewFromFloat(0.30)

	// Non-taxable allowance catalogue, exposed read-only (spec.md §4.3).
	MealAllowanceDaily      = decimal.NewFromFloat(7.96)
	DomesticPerDiemFull     = decimal.NewFromFloat(26.55)
	DomesticPerDiemHalf     = decimal.NewFromFloat(13.28)
	HolidayBonusCap         = decimal.NewFromFloat(331.81)
	KmAllowanceCap          = decimal.NewFromFloat(0.30)
	RepresentationNonDeductibleRate = decimal.NewFromFloat(0.50)

	// VAT rates recognised by the VAT engine (spec.md §4.3).
	VATRateZero     = decimal.NewFromFloat(0)
	VATRateReduced1 = decimal.NewFromFloat(5)
	VATRateReduced2 = decimal.NewFromFloat(13)
	VATRateStandard = decimal.NewFromFloat(25)

	// Depreciation threshold for "small inventory" write-off (čl. Zakona
	// o porezu na dobit, Pravilnik o porezu na dobit).
	SmallInventoryThreshold = decimal.NewFromFloat(665.00)

	// Corporate tax rate break (čl. 28 Zakona o porezu na dobit).
	CorporateTaxRevenueThreshold = decimal.NewFromFloat(1000000.00)
	CorporateTaxRateLow          = decimal.NewFromFloat(0.10)
	CorporateTaxRateHigh         = decimal.NewFromFloat(0.18)

	// AML cash-transaction prohibition (Zakon o sprječavanju pranja novca).
	CashTransactionLimit = decimal.NewFromFloat(10000.00)
)

// SurtaxRates maps a city name to its surtax ("prirez") rate. Any city not
// listed defaults to 0% (spec.md §4.3: "0% otherwise").
var SurtaxRates = map[string]decimal.Decimal{
	"Zagreb": decimal.NewFromFloat(0.18),
	"Split":  decimal.NewFromFloat(0.15),
}

// SurtaxRate returns the surtax rate for city, 0 if the city is unlisted.
func SurtaxRate(city string) decimal.Decimal {
	if r, ok := SurtaxRates[city]; ok {
		return r
	}
	return decimal.Zero
}

// DepreciationCategoryRates maps an asset category to its annual
// depreciation rate (spec.md §4.3).
var DepreciationCategoryRates = map[string]decimal.Decimal{
	"buildings":        decimal.NewFromFloat(0.05),
	"cars":             decimal.NewFromFloat(0.20),
	"furniture":        decimal.NewFromFloat(0.20),
	"office_equipment": decimal.NewFromFloat(0.25),
	"trucks":           decimal.NewFromFloat(0.25),
	"computers":        decimal.NewFromFloat(0.50),
	"software":         decimal.NewFromFloat(0.50),
}

// round2 rounds d to two decimal places, banker's-rounding-free (half away
// from zero), matching the monetary rounding every invariant in spec.md §8
// is phrased against.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
