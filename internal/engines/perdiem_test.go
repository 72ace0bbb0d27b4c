package engines

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Claimed km rate above the 0.30 cap is still paid out in full, but only
// the capped portion is tax-deductible (spec.md §4.3).
func TestTravel_KmRateAboveCapPaidButNotDeductible(t *testing.T) {
	r := Travel(TravelInput{
		KmDriven: decimal.NewFromInt(100),
		KmRate:   decimal.NewFromFloat(0.40),
	})

	assert.True(t, r.KmPaid.Equal(decimal.NewFromFloat(40.00)), "paid %s", r.KmPaid)
	assert.True(t, r.KmDeductible.Equal(decimal.NewFromFloat(30.00)), "deductible %s", r.KmDeductible)
}

func TestTravel_ZeroRateDefaultsToCap(t *testing.T) {
	r := Travel(TravelInput{KmDriven: decimal.NewFromInt(200)})

	assert.True(t, r.KmPaid.Equal(decimal.NewFromFloat(60.00)))
	assert.True(t, r.KmPaid.Equal(r.KmDeductible))
}

func TestTravel_PerDiemFullAndHalfDays(t *testing.T) {
	r := Travel(TravelInput{FullDays: 2, HalfDays: 1})

	// 2 × 26.55 + 1 × 13.28
	assert.True(t, r.PerDiemPaid.Equal(decimal.NewFromFloat(66.38)), "per diem %s", r.PerDiemPaid)
}

// Representation is paid in full but only 50% tax-deductible (spec.md §4.3).
func TestTravel_RepresentationHalfDeductible(t *testing.T) {
	r := Travel(TravelInput{RepresentationCost: decimal.NewFromFloat(200)})

	assert.True(t, r.RepresentationPaid.Equal(decimal.NewFromFloat(200.00)))
	assert.True(t, r.RepresentationDeductible.Equal(decimal.NewFromFloat(100.00)))
	assert.True(t, r.TotalPaid.Equal(decimal.NewFromFloat(200.00)))
	assert.True(t, r.TotalDeductible.Equal(decimal.NewFromFloat(100.00)))
}

func TestTravel_TotalsSumComponents(t *testing.T) {
	r := Travel(TravelInput{
		KmDriven:           decimal.NewFromInt(50),
		KmRate:             decimal.NewFromFloat(0.40),
		FullDays:           1,
		RepresentationCost: decimal.NewFromFloat(80),
	})

	wantPaid := r.KmPaid.Add(r.PerDiemPaid).Add(r.RepresentationPaid)
	wantDeductible := r.KmDeductible.Add(r.PerDiemPaid).Add(r.RepresentationDeductible)
	assert.True(t, r.TotalPaid.Equal(wantPaid))
	assert.True(t, r.TotalDeductible.Equal(wantDeductible))
}
