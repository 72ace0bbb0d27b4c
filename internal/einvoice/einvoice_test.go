package einvoice

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/speedata/einvoice"
)

func sampleInvoice() *einvoice.Invoice {
	fixedDate, _ := time.Parse("02.01.2006", "31.12.2025")
	return &einvoice.Invoice{
		InvoiceNumber:   "1",
		InvoiceTypeCode: 380,
		GuidelineSpecifiedDocumentContextParameter: einvoice.SpecEN16931,
		InvoiceDate:         fixedDate,
		InvoiceCurrencyCode: "EUR",
		TaxCurrencyCode:     "EUR",
		Seller: einvoice.Party{
			Name:              "Prodavatelj d.o.o.",
			VATaxRegistration: "HR12345678901",
		},
		Buyer: einvoice.Party{
			Name: "Kupac d.o.o.",
		},
		InvoiceLines: []einvoice.InvoiceLine{
			{
				LineID:                   "1",
				ItemName:                 "Uredski materijal",
				BilledQuantity:           decimal.NewFromInt(1),
				BilledQuantityUnit:       "C62",
				NetPrice:                 decimal.NewFromInt(100),
				TaxRateApplicablePercent: decimal.NewFromInt(25),
				Total:                    decimal.NewFromInt(100),
				TaxTypeCode:              "VAT",
				TaxCategoryCode:          "S",
			},
		},
	}
}

func TestValidateKPDCodesRejectsShortCode(t *testing.T) {
	err := ValidateKPDCodes([]LineClassification{{LineID: "1", KPDCode: "1234"}})
	if err == nil {
		t.Fatal("expected a validation error for a 4-digit KPD code")
	}
}

func TestValidateKPDCodesAcceptsSixDigits(t *testing.T) {
	err := ValidateKPDCodes([]LineClassification{{LineID: "1", KPDCode: "123456"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestEgressRequiresExtension(t *testing.T) {
	d := &Document{Invoice: sampleInvoice()}
	if _, err := Egress(d); err == nil {
		t.Fatal("expected Egress to fail without a Croatian fiscalisation extension")
	}
}

func TestEgressSplicesFiscalisationBlock(t *testing.T) {
	inv := sampleInvoice()
	inv.UpdateApplicableTradeTax(nil)
	inv.UpdateTotals()

	d := &Document{
		Invoice: inv,
		Extension: &CroatianExtension{
			PoslovniProstor: "PP1",
			NaplatniUredaj:  "NU1",
			RedniBroj:       42,
			OperaterOIB:     "12345678901",
		},
		LineCodes: []LineClassification{{LineID: "1", KPDCode: "620100"}},
	}

	out, err := Egress(d)
	if err != nil {
		t.Fatalf("Egress failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "<hr:PoslovniProstor>PP1</hr:PoslovniProstor>") {
		t.Fatal("expected PoslovniProstor in the spliced output")
	}
	if !strings.Contains(s, "<hr:NaplatniUredaj>NU1</hr:NaplatniUredaj>") {
		t.Fatal("expected NaplatniUredaj in the spliced output")
	}
	if !strings.Contains(s, "<hr:RedniBroj>42</hr:RedniBroj>") {
		t.Fatal("expected RedniBroj in the spliced output")
	}
	if !strings.Contains(s, "<hr:OperaterOIB>12345678901</hr:OperaterOIB>") {
		t.Fatal("expected OperaterOIB in the spliced output")
	}
	if !strings.Contains(s, `listID="KPD_2025"`) {
		t.Fatal("expected a KPD_2025 classification on the invoice line")
	}
	if !strings.Contains(s, "620100") {
		t.Fatal("expected the KPD code itself in the spliced output")
	}
}

func TestIngestRoundTrip(t *testing.T) {
	inv := sampleInvoice()
	inv.UpdateApplicableTradeTax(nil)
	inv.UpdateTotals()

	var buf bytes.Buffer
	if err := inv.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	doc, err := Ingest(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if doc.Invoice.InvoiceNumber != "1" {
		t.Fatalf("expected invoice number 1, got %s", doc.Invoice.InvoiceNumber)
	}
}

func TestIngestRejectsGarbage(t *testing.T) {
	if _, err := Ingest(strings.NewReader("not xml at all")); err == nil {
		t.Fatal("expected Ingest to reject malformed input")
	}
}
