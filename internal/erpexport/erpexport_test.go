package erpexport

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func sampleProposal() *types.BookingProposal {
	return &types.BookingProposal{
		ID:           "p-1",
		ClientID:     "client-1",
		DocumentKind: types.DocPurchaseInvoice,
		ERPTarget:    types.ERPCpp,
		Meta: types.DocumentMeta{
			DocumentNo:   "INV-001",
			IssueDate:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			PartnerTaxID: "69435151530",
		},
		Lines: []types.BookingLine{
			{Account: "4000", Side: types.SideDebit, Amount: decimal.NewFromFloat(100), Description: "roba"},
			{Account: "2200", Side: types.SideCredit, Amount: decimal.NewFromFloat(100), Description: "dobavljač"},
		},
	}
}

func TestFlatten_SplitsSidesAndFallsBackToDocumentOIB(t *testing.T) {
	lines := flatten([]*types.BookingProposal{sampleProposal()})

	// Neither line carries its own partner tax id; both inherit the
	// document-level one.
	want := []exportLine{
		{DatumDokumenta: "2026-03-15", KontoDuguje: "4000", Iznos: "100.00", Opis: "roba", OIB: "69435151530"},
		{DatumDokumenta: "2026-03-15", KontoPotrazuje: "2200", Iznos: "100.00", Opis: "dobavljač", OIB: "69435151530"},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestCPPWriter_EmitsCPPImportSchema(t *testing.T) {
	dir := t.TempDir()
	result, err := CPPWriter{}.Write(dir, []*types.BookingProposal{sampleProposal()}, "")
	require.NoError(t, err)

	raw, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	doc := string(raw)

	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, doc, "<CPPImport>")
	assert.Contains(t, doc, "<Knjizenje>")
	assert.Contains(t, doc, "<DatumDokumenta>2026-03-15</DatumDokumenta>")
	assert.Contains(t, doc, "<KontoDuguje>4000</KontoDuguje>")
	assert.Contains(t, doc, "<KontoPotrazuje>2200</KontoPotrazuje>")
	assert.Contains(t, doc, "<Iznos>100.00</Iznos>")
	assert.Contains(t, doc, "<OIB>69435151530</OIB>")
}

func TestSynesisWriter_EmitsSemicolonCSV(t *testing.T) {
	dir := t.TempDir()
	result, err := SynesisWriter{}.Write(dir, []*types.BookingProposal{sampleProposal()}, "")
	require.NoError(t, err)

	f, err := os.Open(result.Path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"DatumDok", "KontoDug", "KontoPot", "Iznos", "Opis", "OIB"}, rows[0])
	assert.Equal(t, []string{"2026-03-15", "4000", "", "100.00", "roba", "69435151530"}, rows[1])
	assert.Equal(t, []string{"2026-03-15", "", "2200", "100.00", "dobavljač", "69435151530"}, rows[2])
}

func TestJSONWriter_EmitsFlattenedLineArray(t *testing.T) {
	dir := t.TempDir()
	result, err := JSONWriter{}.Write(dir, []*types.BookingProposal{sampleProposal()}, "")
	require.NoError(t, err)

	raw, err := os.ReadFile(result.Path)
	require.NoError(t, err)

	var lines []map[string]string
	require.NoError(t, json.Unmarshal(raw, &lines))
	require.Len(t, lines, 2)
	assert.Equal(t, "4000", lines[0]["konto_duguje"])
	assert.Equal(t, "100.00", lines[0]["iznos"])
}

func TestDefault_CoversEveryERPTarget(t *testing.T) {
	writers := Default()
	for _, target := range []types.ERPTarget{types.ERPCpp, types.ERPSynesis, types.ERPERacuni, types.ERPPantheon} {
		assert.Contains(t, writers, target)
	}
}
