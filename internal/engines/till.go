package engines

import "github.com/shopspring/decimal"

// TillInput is one cash-register (blagajna) validation request
// (spec.md §4.3).
type TillInput struct {
	OpeningBalance decimal.Decimal
	CashIn         decimal.Decimal
	CashOut        decimal.Decimal
	ClosingBalance decimal.Decimal
	// SingleTransactionAmounts lists every individual cash transaction so
	// the AML threshold can be checked per-transaction, not on the total.
	SingleTransactionAmounts []decimal.Decimal
}

// TillResult is the validation outcome.
type TillResult struct {
	Valid            bool
	ExpectedClosing  decimal.Decimal
	Rejected         bool
	RejectionReason  string
	Explain          Explain
}

// TillValidate rejects any single cash transaction of 10,000 EUR or more
// (legal AML prohibition) and otherwise validates that opening balance +
// flows equals the closing balance (spec.md §4.3, §8 boundary: "exactly
// 10,000.00 is rejected; 9,999.99 passes").
func TillValidate(in TillInput) TillResult {
	var ex Explain
	for _, amt := range in.SingleTransactionAmounts {
		ex.add("transaction", amt)
		if amt.GreaterThanOrEqual(CashTransactionLimit) {
			return TillResult{
				Valid:           false,
				Rejected:        true,
				RejectionReason: "single cash transaction of 10,000 EUR or more is prohibited",
				Explain:         ex,
			}
		}
	}

	expected := round2(in.OpeningBalance.Add(in.CashIn).Sub(in.CashOut))
	ex.add("expected_closing", expected)
	ex.add("reported_closing", in.ClosingBalance)

	return TillResult{
		Valid:           expected.Equal(round2(in.ClosingBalance)),
		ExpectedClosing: expected,
		Explain:         ex,
	}
}
