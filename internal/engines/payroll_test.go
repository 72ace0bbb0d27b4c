package engines

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 1 from spec.md §8: Payroll Zagreb, 2000 EUR, no children.
func TestPayroll_ZagrebScenario(t *testing.T) {
	res := Payroll(PayrollInput{
		Gross:               decimal.NewFromFloat(2000),
		City:                "Zagreb",
		SecondPillarEnabled: true,
	})

	assert.True(t, res.Pillar1.Equal(decimal.NewFromFloat(300.00)))
	assert.True(t, res.Pillar2.Equal(decimal.NewFromFloat(100.00)))
	assert.True(t, res.TaxableIncome.Equal(decimal.NewFromFloat(1600.00)))
	assert.True(t, res.Allowance.Equal(decimal.NewFromFloat(560.00)))
	assert.True(t, res.TaxBase.Equal(decimal.NewFromFloat(1040.00)))
	assert.True(t, res.IncomeTax.Equal(decimal.NewFromFloat(208.00)))
	assert.True(t, res.Surtax.Equal(decimal.NewFromFloat(37.44)))
	assert.True(t, res.Net.Equal(decimal.NewFromFloat(1354.56)), "net=%s", res.Net)
	assert.True(t, res.EmployerHealth.Equal(decimal.NewFromFloat(330.00)))
	assert.True(t, res.EmployerTotalCost.Equal(decimal.NewFromFloat(2330.00)))
	assert.True(t, res.RequiresApproval)
}

// Invariant 1 (spec.md §8): gross = net + worker_contributions + tax +
// surtax, to within 0.02 EUR, for any gross >= 0.
func TestPayroll_GrossInvariant(t *testing.T) {
	cities := []string{"Zagreb", "Split", "Rijeka", ""}
	grosses := []float64{0, 500, 970, 1354.33, 2000, 5000, 10999.99}

	for _, city := range cities {
		for _, g := range grosses {
			res := Payroll(PayrollInput{
				Gross:               decimal.NewFromFloat(g),
				City:                city,
				Dependents:          1,
				Children:            2,
				SecondPillarEnabled: true,
			})
			reconstructed := res.Net.Add(res.WorkerContributions).Add(res.IncomeTax).Add(res.Surtax)
			diff := reconstructed.Sub(res.Gross).Abs()
			assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.02)),
				"city=%s gross=%v reconstructed=%s diff=%s", city, g, reconstructed, diff)
		}
	}
}

func TestPayroll_SecondPillarDisabledRedirectsToPillar1(t *testing.T) {
	res := Payroll(PayrollInput{
		Gross:               decimal.NewFromFloat(2000),
		SecondPillarEnabled: false,
	})
	assert.True(t, res.Pillar1.Equal(decimal.NewFromFloat(400.00)))
	assert.True(t, res.Pillar2.IsZero())
}

func TestPayroll_YoungWorkerRelief(t *testing.T) {
	full := Payroll(PayrollInput{Gross: decimal.NewFromFloat(2000), City: "Zagreb", SecondPillarEnabled: true, YoungWorkerRelief: "full"})
	assert.True(t, full.IncomeTax.IsZero())
	assert.True(t, full.Surtax.IsZero())

	half := Payroll(PayrollInput{Gross: decimal.NewFromFloat(2000), City: "Zagreb", SecondPillarEnabled: true, YoungWorkerRelief: "half"})
	full2 := Payroll(PayrollInput{Gross: decimal.NewFromFloat(2000), City: "Zagreb", SecondPillarEnabled: true})
	assert.True(t, half.IncomeTax.Equal(round2(full2.IncomeTax.Div(decimal.NewFromInt(2)))))
}

func TestPayroll_BelowMinimumWageWarns(t *testing.T) {
	res := Payroll(PayrollInput{Gross: decimal.NewFromFloat(969.99), SecondPillarEnabled: true})
	require.NotEmpty(t, res.Warnings)

	above := Payroll(PayrollInput{Gross: decimal.NewFromFloat(970.00), SecondPillarEnabled: true})
	assert.Empty(t, above.Warnings)
}

func TestPayroll_RepeatedCallsAreIdempotent(t *testing.T) {
	in := PayrollInput{Gross: decimal.NewFromFloat(2000), City: "Zagreb", SecondPillarEnabled: true}
	first := Payroll(in)
	for i := 0; i < 100; i++ {
		again := Payroll(in)
		assert.True(t, again.Net.Equal(first.Net))
	}
}
