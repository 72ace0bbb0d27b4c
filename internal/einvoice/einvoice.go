// Package einvoice implements e-invoice ingest and egress (spec.md §6):
// parsing UBL/CII/FatturaPA documents via speedata/einvoice, and emitting
// UBL wrapped in the Croatian fiscalisation extension block. The
// fiscalisation ACK-code state machine (10/90/91/99 with exponential
// backoff) lives alongside it.
package einvoice

import (
	"bytes"
	"fmt"
	"io"

	"github.com/speedata/einvoice"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
)

// CroatianExtension is the fiscalisation block the spec requires inside
// UBLExtensions on every outgoing invoice (spec.md §6): business premises
// ("PoslovniProstor"), register ("NaplatniUredaj"), the sequential invoice
// number within that register ("RedniBroj"), and the optional operator
// OIB for cash-register fiscalisation.
type CroatianExtension struct {
	PoslovniProstor string
	NaplatniUredaj  string
	RedniBroj       int
	OperaterOIB     string
}

// LineClassification is the KPD 2025 commodity/service classification
// code spec.md §6 requires on every invoice line from 2026
// ("CommodityClassification/ItemClassificationCode", listID="KPD_2025",
// at least six digits).
type LineClassification struct {
	LineID  string
	KPDCode string
}

// Document wraps a parsed speedata/einvoice.Invoice with the Croatian
// extension data this package's egress path adds. Ingest never requires
// the extension (a supplier's incoming invoice may be plain EN16931/CII);
// Egress always attaches one.
type Document struct {
	Invoice    *einvoice.Invoice
	Extension  *CroatianExtension
	LineCodes  []LineClassification
}

// Ingest parses an incoming e-invoice — UBL, CII, or FatturaPA, whichever
// speedata/einvoice auto-detects from r — into a Document. The Croatian
// extension is left nil; this package does not read an incoming
// UBLExtensions block.
func Ingest(r io.Reader) (*Document, error) {
	timer := logging.StartTimer(logging.CategoryEinvoice, "Ingest")
	defer timer.Stop()

	inv, err := einvoice.ParseReader(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "parse e-invoice document")
	}
	return &Document{Invoice: inv}, nil
}

// ValidateKPDCodes checks that every line in codes carries a KPD 2025 code
// of at least six digits (spec.md §6). Returns a single
// apperr.KindValidation error listing every offending line id, or nil if
// every line is compliant.
func ValidateKPDCodes(codes []LineClassification) error {
	var bad []string
	for _, c := range codes {
		digits := 0
		for _, r := range c.KPDCode {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 6 {
			bad = append(bad, c.LineID)
		}
	}
	if len(bad) > 0 {
		return apperr.Newf(apperr.KindValidation,
			"invoice lines missing a 6+ digit KPD_2025 classification code: %v", bad)
	}
	return nil
}

// Egress re-emits d.Invoice as UBL (the format egress always targets per
// spec.md §6, regardless of what format was ingested) and wraps the
// result with the Croatian fiscalisation UBLExtensions block and
// per-line KPD classification codes. speedata/einvoice has no concept of
// this Croatian-specific extension, so it is spliced into the library's
// output with stdlib text manipulation — the same "wrap a fixed
// third-party/stdlib encoding with an original, narrowly-scoped wrapper"
// approach internal/erpexport takes for CPP/Synesis's proprietary
// schemas, since no pack library models Croatian fiscalisation XML.
func Egress(d *Document) ([]byte, error) {
	timer := logging.StartTimer(logging.CategoryEinvoice, "Egress")
	defer timer.Stop()

	if d.Extension == nil {
		return nil, apperr.New(apperr.KindValidation, "outgoing e-invoice is missing its Croatian fiscalisation extension")
	}
	if err := ValidateKPDCodes(d.LineCodes); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := d.Invoice.Write(&buf); err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "render e-invoice XML")
	}

	out, err := spliceExtensions(buf.Bytes(), d.Extension, d.LineCodes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "splice Croatian fiscalisation extension")
	}
	return out, nil
}

// spliceExtensions inserts the UBLExtensions fiscalisation block right
// after the document's opening root tag, and a CommodityClassification
// block before each line's closing tag. It operates on raw bytes rather
// than re-parsing into a generic xml.Node tree, since the only edits
// needed are two fixed, well-known insertion points.
func spliceExtensions(doc []byte, ext *CroatianExtension, lines []LineClassification) ([]byte, error) {
	extBlock := renderExtensionBlock(ext)

	rootEnd := findRootOpenTagEnd(doc)
	if rootEnd < 0 {
		return nil, fmt.Errorf("could not locate invoice root element to attach UBLExtensions")
	}
	var out bytes.Buffer
	out.Write(doc[:rootEnd])
	out.WriteString(extBlock)
	out.Write(doc[rootEnd:])

	result := out.Bytes()
	for _, lc := range lines {
		result = appendClassificationToLine(result, lc)
	}
	return result, nil
}

func renderExtensionBlock(ext *CroatianExtension) string {
	var sb bytes.Buffer
	sb.WriteString("\n  <ext:UBLExtensions>\n    <ext:UBLExtension>\n      <ext:ExtensionContent>\n")
	sb.WriteString("        <hr:Fiskalizacija>\n")
	sb.WriteString("          <hr:PoslovniProstor>" + escapeXML(ext.PoslovniProstor) + "</hr:PoslovniProstor>\n")
	sb.WriteString("          <hr:NaplatniUredaj>" + escapeXML(ext.NaplatniUredaj) + "</hr:NaplatniUredaj>\n")
	sb.WriteString(fmt.Sprintf("          <hr:RedniBroj>%d</hr:RedniBroj>\n", ext.RedniBroj))
	if ext.OperaterOIB != "" {
		sb.WriteString("          <hr:OperaterOIB>" + escapeXML(ext.OperaterOIB) + "</hr:OperaterOIB>\n")
	}
	sb.WriteString("        </hr:Fiskalizacija>\n")
	sb.WriteString("      </ext:ExtensionContent>\n    </ext:UBLExtension>\n  </ext:UBLExtensions>")
	return sb.String()
}

func escapeXML(s string) string {
	var out bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			out.WriteString("&amp;")
		case '<':
			out.WriteString("&lt;")
		case '>':
			out.WriteString("&gt;")
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

// findRootOpenTagEnd returns the index just after the first top-level
// element's closing '>', skipping the XML declaration if present.
func findRootOpenTagEnd(doc []byte) int {
	i := 0
	if bytes.HasPrefix(doc, []byte("<?xml")) {
		end := bytes.Index(doc, []byte("?>"))
		if end < 0 {
			return -1
		}
		i = end + 2
	}
	for i < len(doc) && (doc[i] == '\n' || doc[i] == '\r' || doc[i] == ' ' || doc[i] == '\t') {
		i++
	}
	if i >= len(doc) || doc[i] != '<' {
		return -1
	}
	end := bytes.IndexByte(doc[i:], '>')
	if end < 0 {
		return -1
	}
	return i + end + 1
}

// appendClassificationToLine inserts a CommodityClassification element
// with a KPD_2025 listID just before the closing tag of the named
// invoice line. It finds the first ">LineID<" text anywhere in the
// document and inserts before the first </cac:InvoiceLine> after it, or,
// if there is none, the first </ram:IncludedSupplyChainTradeLineItem> —
// a best-effort textual match, since the two supported schemas name the
// line-closing element differently. The document is returned unchanged
// when no match is found.
func appendClassificationToLine(doc []byte, lc LineClassification) []byte {
	classification := fmt.Sprintf(
		"<cac:CommodityClassification><cbc:ItemClassificationCode listID=\"KPD_2025\">%s</cbc:ItemClassificationCode></cac:CommodityClassification>",
		escapeXML(lc.KPDCode),
	)

	idMarker := []byte(">" + lc.LineID + "<")
	idx := bytes.Index(doc, idMarker)
	if idx < 0 {
		return doc
	}

	for _, closeTag := range [][]byte{[]byte("</cac:InvoiceLine>"), []byte("</ram:IncludedSupplyChainTradeLineItem>")} {
		closeIdx := bytes.Index(doc[idx:], closeTag)
		if closeIdx < 0 {
			continue
		}
		insertAt := idx + closeIdx
		var out bytes.Buffer
		out.Write(doc[:insertAt])
		out.WriteString(classification)
		out.Write(doc[insertAt:])
		return out.Bytes()
	}
	return doc
}
