package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mladen1312/nyx-light-racunovodja/internal/engines"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// The adapters in this file turn deterministic engine output into
// BookingProposals. They never compute an amount themselves — every figure
// comes straight from internal/engines — they only shape lines and
// metadata (spec.md Non-goals: "no model-generated monetary amounts").

// FromPayroll builds the proposal for one employee's monthly payroll run.
func FromPayroll(clientID, documentNo string, in engines.PayrollInput, erp types.ERPTarget) *types.BookingProposal {
	res := engines.Payroll(in)

	lines := []types.BookingLine{
		{Account: "4200", Side: types.SideDebit, Amount: res.EmployerTotalCost, Description: "gross salary expense incl. employer contributions"},
		{Account: "2200", Side: types.SideCredit, Amount: res.Net, Description: "net salary payable"},
		{Account: "2410", Side: types.SideCredit, Amount: res.Pillar1.Add(res.Pillar2), Description: "pension contributions payable"},
		{Account: "2420", Side: types.SideCredit, Amount: res.IncomeTax.Add(res.Surtax), Description: "income tax and surtax payable"},
		{Account: "2430", Side: types.SideCredit, Amount: res.EmployerHealth, Description: "employer health contribution payable"},
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocPayroll,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), GrossAmount: in.Gross, Currency: "EUR"},
		RequiresApproval: res.RequiresApproval,
		Warnings:         res.Warnings,
		AI:               types.AIAnnotations{SourceModule: "payroll"},
	}
}

// FromOtherIncome builds the proposal for a work-contract or royalty
// settlement.
func FromOtherIncome(clientID, documentNo string, kind engines.OtherIncomeKind, gross decimal.Decimal, city string, erp types.ERPTarget) (*types.BookingProposal, error) {
	res, err := engines.OtherIncome(kind, gross, city)
	if err != nil {
		return nil, err
	}

	docKind := types.DocWorkContract
	if kind == engines.OtherIncomeRoyalty {
		docKind = types.DocRoyalty
	}

	lines := []types.BookingLine{
		{Account: "4210", Side: types.SideDebit, Amount: gross, Description: "other income gross payment"},
		{Account: "2200", Side: types.SideCredit, Amount: res.Net, Description: "net payment payable"},
		{Account: "2410", Side: types.SideCredit, Amount: res.Pillar1.Add(res.Pillar2), Description: "pension contributions payable"},
		{Account: "2420", Side: types.SideCredit, Amount: res.IncomeTax.Add(res.Surtax), Description: "income tax and surtax payable"},
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     docKind,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), GrossAmount: gross, Currency: "EUR"},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "other_income"},
	}, nil
}

// FromPettyCash builds the proposal for a cash register (till) closing, or
// a rejection warning when the till engine flags an AML-limit violation.
func FromPettyCash(clientID, documentNo string, in engines.TillInput, erp types.ERPTarget) *types.BookingProposal {
	res := engines.TillValidate(in)

	proposal := &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocTill,
		ERPTarget:        erp,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), GrossAmount: in.ClosingBalance, Currency: "EUR"},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "till"},
	}

	if res.Rejected {
		proposal.Warnings = append(proposal.Warnings, res.RejectionReason)
		return proposal
	}

	proposal.Lines = []types.BookingLine{
		{Account: "1000", Side: types.SideDebit, Amount: in.CashIn, Description: "till cash received"},
		{Account: "4000", Side: types.SideCredit, Amount: in.CashIn, Description: "revenue recognised against till"},
	}
	if !res.Valid {
		proposal.Warnings = append(proposal.Warnings, "expected closing balance does not match reported closing balance")
	}
	return proposal
}

// FromTravelExpense builds the proposal for a business-travel order
// settlement (per diem, mileage, representation).
func FromTravelExpense(clientID, documentNo string, in engines.TravelInput, erp types.ERPTarget) *types.BookingProposal {
	res := engines.Travel(in)

	lines := []types.BookingLine{
		{Account: "4220", Side: types.SideDebit, Amount: res.TotalPaid, Description: "travel order settlement"},
		{Account: "2200", Side: types.SideCredit, Amount: res.TotalPaid, Description: "travel settlement payable"},
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocTravelOrder,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), GrossAmount: res.TotalPaid, Currency: "EUR"},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "travel_order"},
	}
}

// FromDepreciation builds the proposal for one month's depreciation
// booking of a fixed asset, or nil once the asset's schedule is exhausted.
func FromDepreciation(clientID, documentNo string, in engines.DepreciationInput, monthIndex int, erp types.ERPTarget) *types.BookingProposal {
	amount, ok := engines.MonthlyDepreciationAt(in, monthIndex)
	if !ok {
		return nil
	}

	lines := []types.BookingLine{
		{Account: "4400", Side: types.SideDebit, Amount: amount, Description: "depreciation expense: " + in.Description},
		{Account: "0290", Side: types.SideCredit, Amount: amount, Description: "accumulated depreciation: " + in.Description},
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocDepreciation,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), GrossAmount: amount, Currency: "EUR"},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "depreciation"},
	}
}

// FromVATFiling builds the proposal that books the period's net VAT
// liability or refund claim.
func FromVATFiling(clientID, documentNo string, items []engines.VATLineItem, erp types.ERPTarget) *types.BookingProposal {
	res := engines.VATReturn(items)

	var lines []types.BookingLine
	switch {
	case res.ToPay.IsPositive():
		lines = []types.BookingLine{
			{Account: "4800", Side: types.SideDebit, Amount: res.ToPay, Description: "VAT liability for the period"},
			{Account: "2600", Side: types.SideCredit, Amount: res.ToPay, Description: "VAT payable to tax authority"},
		}
	case res.ToRefund.IsPositive():
		lines = []types.BookingLine{
			{Account: "1460", Side: types.SideDebit, Amount: res.ToRefund, Description: "VAT refund claim"},
			{Account: "4800", Side: types.SideCredit, Amount: res.ToRefund, Description: "VAT credit for the period"},
		}
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocVATFiling,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), Currency: "EUR"},
		RequiresApproval: true,
		Warnings:         res.Warnings,
		AI:               types.AIAnnotations{SourceModule: "vat"},
	}
}

// FromCorporateTax builds the proposal that books the annual corporate
// income tax liability or prepayment refund.
func FromCorporateTax(clientID, documentNo string, in engines.CorporateTaxInput, erp types.ERPTarget) *types.BookingProposal {
	res := engines.CorporateTax(in)

	var lines []types.BookingLine
	switch {
	case res.ToPay.IsPositive():
		lines = []types.BookingLine{
			{Account: "4900", Side: types.SideDebit, Amount: res.ToPay, Description: "corporate income tax expense"},
			{Account: "2610", Side: types.SideCredit, Amount: res.ToPay, Description: "corporate income tax payable"},
		}
	case res.ToRefund.IsPositive():
		lines = []types.BookingLine{
			{Account: "1470", Side: types.SideDebit, Amount: res.ToRefund, Description: "corporate income tax overpayment"},
			{Account: "4900", Side: types.SideCredit, Amount: res.ToRefund, Description: "corporate income tax expense adjustment"},
		}
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocOther,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), Currency: "EUR"},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "corporate_tax"},
	}
}

// FromInvoice builds the proposal for a purchase or sales invoice: a single
// gross line split into net expense/revenue plus the VAT block, the way
// any invoice-booking module in the router does it regardless of source
// (manual entry, OCR, or e-invoice ingest — spec.md §4.8/§4.9).
func FromInvoice(clientID, documentNo string, sales bool, netAmount, vatRate, vatAmount decimal.Decimal, partnerTaxID, partnerName string, erp types.ERPTarget) *types.BookingProposal {
	gross := netAmount.Add(vatAmount)
	docKind := types.DocPurchaseInvoice
	netAccount, payableAccount := "4000", "2200"
	if sales {
		docKind = types.DocSalesInvoice
		netAccount, payableAccount = "1200", "7500"
	}

	var lines []types.BookingLine
	if sales {
		lines = []types.BookingLine{
			{Account: netAccount, Side: types.SideDebit, Amount: gross, Description: "sales invoice gross receivable", PartnerTaxID: partnerTaxID},
			{Account: payableAccount, Side: types.SideCredit, Amount: netAmount, Description: "revenue", PartnerTaxID: partnerTaxID},
			{Account: "2620", Side: types.SideCredit, Amount: vatAmount, Description: "output VAT payable", VATRate: vatRate, VATAmount: vatAmount},
		}
	} else {
		lines = []types.BookingLine{
			{Account: netAccount, Side: types.SideDebit, Amount: netAmount, Description: "purchase expense", PartnerTaxID: partnerTaxID},
			{Account: "1400", Side: types.SideDebit, Amount: vatAmount, Description: "input VAT receivable", VATRate: vatRate, VATAmount: vatAmount},
			{Account: payableAccount, Side: types.SideCredit, Amount: gross, Description: "trade payable", PartnerTaxID: partnerTaxID},
		}
	}

	return &types.BookingProposal{
		ClientID:     clientID,
		DocumentKind: docKind,
		ERPTarget:    erp,
		Lines:        lines,
		Meta: types.DocumentMeta{
			DocumentNo: documentNo, IssueDate: time.Now().UTC(), PartnerTaxID: partnerTaxID,
			PartnerName: partnerName, GrossAmount: gross, Currency: "EUR",
		},
		VAT:              types.VATBlock{Rate: vatRate, Base: netAmount, Tax: vatAmount},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "invoice"},
	}
}

// FromBankStatement builds the proposal for one bank-statement line: a
// payment received books against a partner's receivable, a payment made
// books against a payable. Amount is always positive; direction decides
// the side.
func FromBankStatement(clientID, documentNo string, amount decimal.Decimal, incoming bool, partnerName, paymentReference string, erp types.ERPTarget) *types.BookingProposal {
	bankAccount := "1000"
	partnerAccount := "1200"
	if !incoming {
		partnerAccount = "2200"
	}

	var lines []types.BookingLine
	if incoming {
		lines = []types.BookingLine{
			{Account: bankAccount, Side: types.SideDebit, Amount: amount, Description: "bank statement receipt", PaymentReference: paymentReference},
			{Account: partnerAccount, Side: types.SideCredit, Amount: amount, Description: "settles receivable: " + partnerName, PaymentReference: paymentReference},
		}
	} else {
		lines = []types.BookingLine{
			{Account: partnerAccount, Side: types.SideDebit, Amount: amount, Description: "settles payable: " + partnerName, PaymentReference: paymentReference},
			{Account: bankAccount, Side: types.SideCredit, Amount: amount, Description: "bank statement payment", PaymentReference: paymentReference},
		}
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocBankStatement,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), PartnerName: partnerName, GrossAmount: amount, Currency: "EUR"},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "bank_statement"},
	}
}

// FromIOS builds the proposal for an IOS (izjava o prijeboju/saldu —
// settlement/reconciliation statement): a net settlement between two
// partner balances, booked as a single offsetting entry.
func FromIOS(clientID, documentNo string, netAmount decimal.Decimal, partnerTaxID, partnerName string, erp types.ERPTarget) *types.BookingProposal {
	lines := []types.BookingLine{
		{Account: "2200", Side: types.SideDebit, Amount: netAmount, Description: "settlement statement: payable offset", PartnerTaxID: partnerTaxID},
		{Account: "1200", Side: types.SideCredit, Amount: netAmount, Description: "settlement statement: receivable offset", PartnerTaxID: partnerTaxID},
	}

	return &types.BookingProposal{
		ClientID:         clientID,
		DocumentKind:     types.DocSettlementStatement,
		ERPTarget:        erp,
		Lines:            lines,
		Meta:             types.DocumentMeta{DocumentNo: documentNo, IssueDate: time.Now().UTC(), PartnerTaxID: partnerTaxID, PartnerName: partnerName, GrossAmount: netAmount, Currency: "EUR"},
		RequiresApproval: true,
		AI:               types.AIAnnotations{SourceModule: "ios"},
	}
}
