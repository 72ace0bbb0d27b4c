package engines

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OtherIncomeKind distinguishes the two "other income" (drugi dohodak)
// flavours the router's drugi_dohodak module handles (spec.md §4.3).
type OtherIncomeKind string

const (
	OtherIncomeWorkContract OtherIncomeKind = "work_contract"
	OtherIncomeRoyalty      OtherIncomeKind = "royalty"
)

// OtherIncome dispatches to WorkContract or Royalty — "other income" is not
// a distinct formula, it's a routing label over the same two engines
// (spec.md §4.3: "Other income — work-contract and royalty with the rates
// above").
func OtherIncome(kind OtherIncomeKind, gross decimal.Decimal, city string) (WorkContractResult, error) {
	switch kind {
	case OtherIncomeWorkContract:
		return WorkContract(WorkContractInput{Gross: gross, City: city}), nil
	case OtherIncomeRoyalty:
		return Royalty(RoyaltyInput{Gross: gross, City: city}), nil
	default:
		return WorkContractResult{}, fmt.Errorf("unknown other-income kind %q", kind)
	}
}
