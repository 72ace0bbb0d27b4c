package engines

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Scenario 2 from spec.md §8: three outputs, two inputs.
func TestVATReturn_Scenario(t *testing.T) {
	items := []VATLineItem{
		{Side: VATOutput, Base: decimal.NewFromFloat(10000), Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(2500)},
		{Side: VATOutput, Base: decimal.NewFromFloat(5000), Rate: decimal.NewFromFloat(13), Tax: decimal.NewFromFloat(650)},
		{Side: VATOutput, Base: decimal.NewFromFloat(2000), Rate: decimal.NewFromFloat(5), Tax: decimal.NewFromFloat(100)},
		{Side: VATInput, Base: decimal.NewFromFloat(8000), Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(2000)},
		{Side: VATInput, Base: decimal.NewFromFloat(3000), Rate: decimal.NewFromFloat(13), Tax: decimal.NewFromFloat(390)},
	}
	res := VATReturn(items)
	assert.True(t, res.Liability.Equal(decimal.NewFromFloat(3250)))
	assert.True(t, res.Credit.Equal(decimal.NewFromFloat(2390)))
	assert.True(t, res.ToPay.Equal(decimal.NewFromFloat(860)))
	assert.True(t, res.ToRefund.IsZero())
}

// At most one of ToPay/ToRefund is positive; a balanced return has both zero.
func TestVATReturn_AtMostOnePositive(t *testing.T) {
	cases := [][]VATLineItem{
		{{Side: VATOutput, Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(100)}},
		{{Side: VATInput, Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(100)}},
		{{Side: VATOutput, Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(50)}, {Side: VATInput, Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(50)}},
	}
	for _, items := range cases {
		res := VATReturn(items)
		positive := 0
		if res.ToPay.GreaterThan(decimal.Zero) {
			positive++
		}
		if res.ToRefund.GreaterThan(decimal.Zero) {
			positive++
		}
		assert.LessOrEqual(t, positive, 1)
		assert.True(t, res.ToPay.IsZero() || res.ToRefund.IsZero())
	}
}

func TestVATReturn_ReverseChargeExcludedFromLiability(t *testing.T) {
	items := []VATLineItem{
		{Side: VATOutput, Base: decimal.NewFromFloat(1000), Rate: decimal.NewFromFloat(0), Tax: decimal.Zero, EU: true, ReverseCharge: true},
	}
	res := VATReturn(items)
	assert.True(t, res.Liability.IsZero())
	assert.True(t, res.EUSupplies.Equal(decimal.NewFromFloat(1000)))
}
