package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func testIntake() *Intake {
	return NewIntake([]ClientRecord{
		{ClientID: "client-1", OIB: "94577403209", IBAN: "HR1234567890123456789", SenderDomain: "klijent.hr", Folder: "klijent1"},
		{ClientID: "client-2", OIB: "12345678903", Folder: "klijent2"},
	})
}

func TestDetect_UBLInvoiceByContent(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2">...`)
	doc := testIntake().Detect("/drop/racun-001.xml", "", raw)

	assert.Equal(t, types.DocPurchaseInvoice, doc.DetectedKind)
	assert.Equal(t, "eracuni_parser", doc.AssignedModule)
	assert.Greater(t, doc.Confidence, 0.4)
}

func TestDetect_ClientByOIBInContent(t *testing.T) {
	raw := []byte(`<Invoice>...<cbc:CompanyID>94577403209</cbc:CompanyID>...`)
	doc := testIntake().Detect("/drop/racun.xml", "", raw)

	assert.Equal(t, "client-1", doc.DetectedClient)
	assert.Equal(t, "tax_id", doc.RoutingMethod)
}

// An 11-digit string that fails the MOD 11,10 check must not match a
// client even when the directory carries the same digits (a typo in the
// directory must not route documents).
func TestDetect_InvalidOIBIsIgnored(t *testing.T) {
	in := NewIntake([]ClientRecord{{ClientID: "client-x", OIB: "12345678901"}})
	doc := in.Detect("/drop/nesto.txt", "", []byte(`broj 12345678901 u tekstu`))

	assert.Empty(t, doc.DetectedClient)
}

func TestDetect_ClientByIBAN(t *testing.T) {
	raw := []byte(`:20:IZVOD :25:HR1234567890123456789`)
	doc := testIntake().Detect("/drop/izvod_03.sta", "", raw)

	assert.Equal(t, types.DocBankStatement, doc.DetectedKind)
	assert.Equal(t, "bank_parser", doc.AssignedModule)
	assert.Equal(t, "client-1", doc.DetectedClient)
	assert.Equal(t, "iban", doc.RoutingMethod)
}

func TestDetect_ClientBySenderDomain(t *testing.T) {
	doc := testIntake().Detect("/drop/ponuda.pdf", "ivana@klijent.hr", nil)

	assert.Equal(t, "invoice_ocr", doc.AssignedModule)
	assert.Equal(t, "client-1", doc.DetectedClient)
	assert.Equal(t, "sender_domain", doc.RoutingMethod)
}

func TestDetect_ClientByFolder(t *testing.T) {
	doc := testIntake().Detect("/data/uploads/klijent2/blagajna_07.pdf", "", nil)

	assert.Equal(t, types.DocTill, doc.DetectedKind)
	assert.Equal(t, "blagajna", doc.AssignedModule)
	assert.Equal(t, "client-2", doc.DetectedClient)
	assert.Equal(t, "folder", doc.RoutingMethod)
}

func TestDetect_UnmatchedClientHalvesConfidence(t *testing.T) {
	withClient := testIntake().Detect("/data/uploads/klijent2/racun.pdf", "", nil)
	without := testIntake().Detect("/tmp/racun.pdf", "", nil)

	assert.Empty(t, without.DetectedClient)
	assert.InDelta(t, withClient.Confidence/2, without.Confidence, 1e-9)
}

func TestDetect_UnknownFallsBackToUniversalParser(t *testing.T) {
	doc := testIntake().Detect("/drop/nepoznato.bin", "", []byte{0x00, 0x01})

	assert.Equal(t, types.DocOther, doc.DetectedKind)
	assert.Equal(t, "universal_parser", doc.AssignedModule)
}
