package engines

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Scenario 4 from spec.md §8: laptop, 2000 EUR, computer category.
func TestDepreciation_LaptopScenario(t *testing.T) {
	in := DepreciationInput{Description: "laptop", Cost: decimal.NewFromFloat(2000), Category: "computers"}
	res := Depreciation(in)
	assert.False(t, res.SmallInventory)
	assert.True(t, res.MonthlyAmount.Equal(decimal.NewFromFloat(83.33)))
	assert.Equal(t, 24, res.UsefulLifeMonths)

	schedule := AccumulatedSchedule(in)
	assert.Len(t, schedule, 24)

	_, ok := MonthlyDepreciationAt(in, 24)
	assert.False(t, ok, "a 25th call must return no entry")

	_, ok = MonthlyDepreciationAt(in, 23)
	assert.True(t, ok)
}

func TestDepreciation_SmallInventoryBoundary(t *testing.T) {
	atThreshold := Depreciation(DepreciationInput{Cost: decimal.NewFromFloat(665.00), Category: "computers"})
	assert.False(t, atThreshold.SmallInventory, "665.00 is long-term")

	belowThreshold := Depreciation(DepreciationInput{Cost: decimal.NewFromFloat(664.99), Category: "computers"})
	assert.True(t, belowThreshold.SmallInventory, "664.99 is small inventory")
}

// Invariant 3 (spec.md §8): accumulated never exceeds cost.
func TestDepreciation_AccumulatedNeverExceedsCost(t *testing.T) {
	in := DepreciationInput{Cost: decimal.NewFromFloat(17321.55), Category: "cars"}
	schedule := AccumulatedSchedule(in)
	sum := decimal.Zero
	for _, m := range schedule {
		sum = sum.Add(m)
		assert.True(t, sum.LessThanOrEqual(in.Cost), "accumulated %s exceeded cost %s", sum, in.Cost)
	}
}
