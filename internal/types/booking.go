package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind enumerates the document kinds a BookingProposal may represent
// (spec.md §3).
type DocumentKind string

const (
	DocPurchaseInvoice     DocumentKind = "purchase-invoice"
	DocSalesInvoice        DocumentKind = "sales-invoice"
	DocBankStatement       DocumentKind = "bank-statement"
	DocTill                DocumentKind = "till"
	DocTravelOrder         DocumentKind = "travel-order"
	DocFixedAsset          DocumentKind = "fixed-asset"
	DocSettlementStatement DocumentKind = "settlement-statement"
	DocIOS                 DocumentKind = "IOS"
	DocPayroll             DocumentKind = "payroll"
	DocWorkContract        DocumentKind = "work-contract"
	DocRoyalty             DocumentKind = "royalty"
	DocVATFiling           DocumentKind = "VAT-filing"
	DocDepreciation        DocumentKind = "depreciation"
	DocAccrual             DocumentKind = "accrual"
	DocOther               DocumentKind = "other"
)

// ERPTarget enumerates the ERP systems the exporter targets (spec.md §3, §6).
type ERPTarget string

const (
	ERPCpp      ERPTarget = "CPP"
	ERPSynesis  ERPTarget = "Synesis"
	ERPERacuni  ERPTarget = "eRacuni"
	ERPPantheon ERPTarget = "Pantheon"
)

// Side is the debit/credit side of a booking line.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Status is a BookingProposal's lifecycle state (spec.md §4.1 state machine).
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCorrected Status = "corrected"
	StatusRejected  Status = "rejected"
	StatusExported  Status = "exported"
	StatusError     Status = "error"
)

// BookingLine is one debit or credit leg of a proposal.
type BookingLine struct {
	Account          string          `json:"account"`
	Side             Side            `json:"side"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	PartnerTaxID     string          `json:"partner_tax_id,omitempty"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	VATAmount        decimal.Decimal `json:"vat_amount"`
	PaymentReference string          `json:"payment_reference,omitempty"`
}

// DocumentMeta carries the document-level attributes of a proposal.
type DocumentMeta struct {
	IssueDate    time.Time       `json:"issue_date"`
	PostingDate  time.Time       `json:"posting_date"`
	DocumentNo   string          `json:"document_number"`
	Narrative    string          `json:"narrative"`
	PartnerTaxID string          `json:"partner_tax_id"`
	PartnerName  string          `json:"partner_name"`
	GrossAmount  decimal.Decimal `json:"gross_amount"`
	Currency     string          `json:"currency"`
}

// VATBlock summarises the VAT treatment of a proposal.
type VATBlock struct {
	Rate decimal.Decimal `json:"rate"`
	Base decimal.Decimal `json:"base"`
	Tax  decimal.Decimal `json:"tax"`
}

// AIAnnotations records the model's contribution to a proposal — never an
// amount (spec.md Non-goals: "No model-generated monetary amounts").
type AIAnnotations struct {
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	SourceModule string  `json:"source_module"`
}

// BookingProposal is the universal, module-agnostic posting envelope
// (spec.md §3).
type BookingProposal struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"client_id"`
	DocumentKind DocumentKind    `json:"document_kind"`
	ERPTarget    ERPTarget       `json:"erp_target"`
	Lines        []BookingLine   `json:"lines"`
	Meta         DocumentMeta    `json:"meta"`
	VAT          VATBlock        `json:"vat"`
	AI           AIAnnotations   `json:"ai"`
	Status       Status          `json:"status"`
	Warnings     []string        `json:"warnings,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	RequiresApproval bool        `json:"requires_approval"`
}

// tieBreakKey derives the natural key used to flag export collisions
// (spec.md §4.1 "Tie-breaks"): same document number, same client, same kind.
func (p *BookingProposal) tieBreakKey() string {
	return string(p.DocumentKind) + "|" + p.ClientID + "|" + p.Meta.DocumentNo
}

// TieBreakKey exposes tieBreakKey for the export collector.
func (p *BookingProposal) TieBreakKey() string { return p.tieBreakKey() }

const balanceTolerance = 0.01

// Balanced reports whether sum(debits) == sum(credits) to within one cent
// (spec.md §8 invariant 6).
func (p *BookingProposal) Balanced() bool {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range p.Lines {
		switch l.Side {
		case SideDebit:
			debit = debit.Add(l.Amount)
		case SideCredit:
			credit = credit.Add(l.Amount)
		}
	}
	diff := debit.Sub(credit).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(balanceTolerance))
}

// CorrectionRecord is emitted whenever a user corrects a proposal
// (spec.md §3).
type CorrectionRecord struct {
	ID              string        `json:"id"`
	ProposalID      string        `json:"proposal_id"`
	OriginalLines   []BookingLine `json:"original_lines"`
	CorrectedLines  []BookingLine `json:"corrected_lines"`
	UserID          string        `json:"user_id"`
	DocumentKind    DocumentKind  `json:"document_kind"`
	ClientID        string        `json:"client_id"`
	Reason          string        `json:"reason"`
	CreatedAt       time.Time     `json:"created_at"`
}
