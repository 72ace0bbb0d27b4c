package engines

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Scenario 3 from spec.md §8: small firm, no prepayments.
func TestCorporateTax_SmallFirmScenario(t *testing.T) {
	res := CorporateTax(CorporateTaxInput{
		Year:     2025,
		Revenue:  decimal.NewFromFloat(500000),
		Expenses: decimal.NewFromFloat(400000),
	})
	assert.True(t, res.Profit.Equal(decimal.NewFromFloat(100000)))
	assert.True(t, res.Rate.Equal(decimal.NewFromFloat(0.10)))
	assert.True(t, res.Tax.Equal(decimal.NewFromFloat(10000)))
	assert.True(t, res.ToPay.Equal(decimal.NewFromFloat(10000)))
	assert.True(t, res.ToRefund.IsZero())
}

// Invariant 4 / boundary (spec.md §8): rate is 10% iff revenue <=
// 1,000,000, else 18%; 1,000,000 uses 10%, 1,000,001 uses 18%.
func TestCorporateTax_RevenueThresholdBoundary(t *testing.T) {
	at := CorporateTax(CorporateTaxInput{Revenue: decimal.NewFromFloat(1000000), Expenses: decimal.Zero})
	assert.True(t, at.Rate.Equal(CorporateTaxRateLow))

	above := CorporateTax(CorporateTaxInput{Revenue: decimal.NewFromFloat(1000001), Expenses: decimal.Zero})
	assert.True(t, above.Rate.Equal(CorporateTaxRateHigh))
}

func TestCorporateTax_BaseNeverNegative(t *testing.T) {
	res := CorporateTax(CorporateTaxInput{
		Revenue:  decimal.NewFromFloat(100000),
		Expenses: decimal.NewFromFloat(500000),
	})
	assert.True(t, res.TaxBase.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, res.TaxBase.IsZero())
}
