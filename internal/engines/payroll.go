package engines

import "github.com/shopspring/decimal"

// PayrollInput is the gross-salary calculation request (spec.md §4.3).
type PayrollInput struct {
	Gross               decimal.Decimal
	City                string
	Dependents          int
	Children            int
	SecondPillarEnabled bool
	YoungWorkerRelief   string // "" | "full" (<=25) | "half" (26-30)
	Disabled            bool
}

// PayrollResult is the full breakdown of one payroll calculation.
type PayrollResult struct {
	Gross               decimal.Decimal
	Pillar1             decimal.Decimal
	Pillar2             decimal.Decimal
	WorkerContributions decimal.Decimal
	TaxableIncome       decimal.Decimal
	Allowance           decimal.Decimal
	TaxBase             decimal.Decimal
	IncomeTax           decimal.Decimal
	Surtax              decimal.Decimal
	Net                 decimal.Decimal
	EmployerHealth      decimal.Decimal
	EmployerTotalCost   decimal.Decimal
	RequiresApproval    bool
	Warnings            []string
	Explain             Explain
}

// allowance computes the personal allowance: base + 0.7*base per dependent
// + per-child factors (0.7, 1.0, 1.4, 1.9, ...; the list is extended by
// repeating its last element for any child beyond its length) + 0.4*base
// if disabled.
func allowance(dependents, children int, disabled bool) decimal.Decimal {
	total := AllowanceBase
	for i := 0; i < dependents; i++ {
		total = total.Add(DependentFactor.Mul(AllowanceBase))
	}
	for i := 0; i < children; i++ {
		factor := ChildFactors[len(ChildFactors)-1]
		if i < len(ChildFactors) {
			factor = ChildFactors[i]
		}
		total = total.Add(factor.Mul(AllowanceBase))
	}
	if disabled {
		total = total.Add(DisabilityFactor.Mul(AllowanceBase))
	}
	return round2(total)
}

// incomeTax applies the two-bracket progressive schedule: 20% on the first
// 4,200 EUR of base, 30% above it.
func incomeTax(base decimal.Decimal) decimal.Decimal {
	if base.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if base.LessThanOrEqual(TaxBracketLow) {
		return round2(base.Mul(TaxRateLow))
	}
	low := TaxBracketLow.Mul(TaxRateLow)
	high := base.Sub(TaxBracketLow).Mul(TaxRateHigh)
	return round2(low.Add(high))
}

// Payroll computes a full gross-to-net payroll breakdown (spec.md §4.3).
// Invariant (spec.md §8.1): gross = net + worker_contributions + tax +
// surtax, to within 0.02 EUR, for any gross >= 0 — this holds by
// construction since Net is defined as that subtraction.
func Payroll(in PayrollInput) PayrollResult {
	var ex Explain
	ex.add("gross", in.Gross)

	var pillar1, pillar2 decimal.Decimal
	if in.SecondPillarEnabled {
		pillar1 = round2(in.Gross.Mul(Pillar1Rate))
		pillar2 = round2(in.Gross.Mul(Pillar2Rate))
	} else {
		pillar1 = round2(in.Gross.Mul(Pillar1Rate.Add(Pillar2Rate)))
		pillar2 = decimal.Zero
	}
	ex.add("pillar1", pillar1)
	ex.add("pillar2", pillar2)

	workerContrib := pillar1.Add(pillar2)
	ex.add("worker_contributions", workerContrib)

	taxable := round2(in.Gross.Sub(workerContrib))
	ex.add("taxable_income", taxable)

	allow := allowance(in.Dependents, in.Children, in.Disabled)
	ex.add("allowance", allow)

	base := taxable.Sub(allow)
	if base.LessThan(decimal.Zero) {
		base = decimal.Zero
	}
	base = round2(base)
	ex.add("tax_base", base)

	tax := incomeTax(base)
	surtax := round2(tax.Mul(SurtaxRate(in.City)))
	ex.add("income_tax_pre_relief", tax)
	ex.add("surtax_pre_relief", surtax)

	switch in.YoungWorkerRelief {
	case "full":
		tax, surtax = decimal.Zero, decimal.Zero
	case "half":
		tax = round2(tax.Div(decimal.NewFromInt(2)))
		surtax = round2(surtax.Div(decimal.NewFromInt(2)))
	}
	ex.add("income_tax", tax)
	ex.add("surtax", surtax)

	net := round2(in.Gross.Sub(workerContrib).Sub(tax).Sub(surtax))
	ex.add("net", net)

	health := round2(in.Gross.Mul(EmployerHealthRate))
	totalCost := round2(in.Gross.Add(health))
	ex.add("employer_health", health)
	ex.add("employer_total_cost", totalCost)

	var warnings []string
	if in.Gross.LessThan(MinimumWage) {
		warnings = append(warnings, "gross salary is below the statutory minimum wage")
	}

	return PayrollResult{
		Gross:               in.Gross,
		Pillar1:             pillar1,
		Pillar2:             pillar2,
		WorkerContributions: workerContrib,
		TaxableIncome:       taxable,
		Allowance:           allow,
		TaxBase:             base,
		IncomeTax:           tax,
		Surtax:              surtax,
		Net:                 net,
		EmployerHealth:      health,
		EmployerTotalCost:   totalCost,
		RequiresApproval:    true,
		Warnings:            warnings,
		Explain:             ex,
	}
}

// WorkContractInput is the calculation request for ugovor o djelu
// (spec.md §4.3).
type WorkContractInput struct {
	Gross decimal.Decimal
	City  string
}

// WorkContractResult mirrors PayrollResult's shape for a work contract.
type WorkContractResult struct {
	Gross               decimal.Decimal
	Pillar1             decimal.Decimal
	Pillar2             decimal.Decimal
	Health              decimal.Decimal
	WorkerContributions decimal.Decimal
	IncomeTax           decimal.Decimal
	Surtax              decimal.Decimal
	Net                 decimal.Decimal
	Explain             Explain
}

// WorkContract computes pillar-1 7.5%, pillar-2 2.5%, health 7.5% on
// gross, then 20% tax and surtax (spec.md §4.3).
func WorkContract(in WorkContractInput) WorkContractResult {
	var ex Explain
	pillar1 := round2(in.Gross.Mul(WorkContractPillar1Rate))
	pillar2 := round2(in.Gross.Mul(WorkContractPillar2Rate))
	health := round2(in.Gross.Mul(WorkContractHealthRate))
	contrib := pillar1.Add(pillar2).Add(health)
	ex.add("gross", in.Gross)
	ex.add("pillar1", pillar1)
	ex.add("pillar2", pillar2)
	ex.add("health", health)

	base := round2(in.Gross.Sub(contrib))
	if base.LessThan(decimal.Zero) {
		base = decimal.Zero
	}
	tax := round2(base.Mul(TaxRateLow))
	surtax := round2(tax.Mul(SurtaxRate(in.City)))
	ex.add("tax_base", base)
	ex.add("income_tax", tax)
	ex.add("surtax", surtax)

	net := round2(in.Gross.Sub(contrib).Sub(tax).Sub(surtax))
	ex.add("net", net)

	return WorkContractResult{
		Gross: in.Gross, Pillar1: pillar1, Pillar2: pillar2, Health: health,
		WorkerContributions: contrib, IncomeTax: tax, Surtax: surtax, Net: net,
		Explain: ex,
	}
}

// RoyaltyInput is the calculation request for authorial/royalty income.
type RoyaltyInput struct {
	Gross decimal.Decimal
	City  string
}

// Royalty applies the 30% statutory deduction before the
// work-contract contribution schedule (spec.md §4.3).
func Royalty(in RoyaltyInput) WorkContractResult {
	deducted := round2(in.Gross.Mul(decimal.NewFromInt(1).Sub(RoyaltyDeduction)))
	result := WorkContract(WorkContractInput{Gross: deducted, City: in.City})
	result.Explain.add("royalty_gross", in.Gross)
	result.Explain.add("after_statutory_deduction", deducted)
	return result
}
