package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mladen1312/nyx-light-racunovodja/internal/engines"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func TestFromPayroll_LinesBalance(t *testing.T) {
	proposal := FromPayroll("client-1", "PAY-2025-06", engines.PayrollInput{
		Gross: decimal.NewFromFloat(2000), City: "Zagreb", Dependents: 1,
	}, types.ERPCpp)

	assert.True(t, proposal.Balanced())
	assert.True(t, proposal.RequiresApproval)
	assert.Equal(t, types.DocPayroll, proposal.DocumentKind)
}

func TestFromPettyCash_RejectedHasNoLines(t *testing.T) {
	proposal := FromPettyCash("client-1", "TILL-1", engines.TillInput{
		SingleTransactionAmounts: []decimal.Decimal{decimal.NewFromFloat(15000)},
	}, types.ERPCpp)

	assert.Empty(t, proposal.Lines)
	assert.True(t, proposal.RequiresApproval)
	assert.NotEmpty(t, proposal.Warnings)
}

func TestFromPettyCash_ValidBalances(t *testing.T) {
	proposal := FromPettyCash("client-1", "TILL-2", engines.TillInput{
		OpeningBalance: decimal.NewFromFloat(100),
		CashIn:         decimal.NewFromFloat(50),
		CashOut:        decimal.NewFromFloat(0),
		ClosingBalance: decimal.NewFromFloat(150),
	}, types.ERPCpp)

	assert.True(t, proposal.Balanced())
	assert.True(t, proposal.RequiresApproval)
	assert.Empty(t, proposal.Warnings)
}

func TestFromDepreciation_NilAfterScheduleExhausted(t *testing.T) {
	in := engines.DepreciationInput{Description: "laptop", Cost: decimal.NewFromFloat(2000), Category: "computers"}
	last := FromDepreciation("client-1", "FA-1", in, 23, types.ERPCpp)
	require.NotNil(t, last)
	assert.True(t, last.Balanced())

	exhausted := FromDepreciation("client-1", "FA-1", in, 24, types.ERPCpp)
	assert.Nil(t, exhausted)
}

func TestFromVATFiling_ToPayBooksLiability(t *testing.T) {
	items := []engines.VATLineItem{
		{Side: engines.VATOutput, Base: decimal.NewFromFloat(10000), Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(2500)},
		{Side: engines.VATInput, Base: decimal.NewFromFloat(4000), Rate: decimal.NewFromFloat(25), Tax: decimal.NewFromFloat(1000)},
	}
	proposal := FromVATFiling("client-1", "VAT-2025-06", items, types.ERPCpp)
	assert.True(t, proposal.Balanced())
	assert.Len(t, proposal.Lines, 2)
}

func TestFromCorporateTax_ToRefundBooksOverpayment(t *testing.T) {
	proposal := FromCorporateTax("client-1", "CIT-2025", engines.CorporateTaxInput{
		Revenue: decimal.NewFromFloat(500000), Expenses: decimal.NewFromFloat(400000), Prepayments: decimal.NewFromFloat(15000),
	}, types.ERPCpp)
	assert.True(t, proposal.Balanced())
	assert.Len(t, proposal.Lines, 2)
}
