// Package erpexport renders approved BookingProposals into the wire
// formats the supported Croatian ERP systems expect (spec.md §4.1, §6).
// Proposals are flattened into per-line export records; the pipeline hands
// the batch over and this package owns the encoding, nothing else.
package erpexport

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// Result summarises one export_approved call.
type Result struct {
	Path          string   `json:"path"`
	ExportedCount int      `json:"exported_count"`
	Collisions    []string `json:"collisions,omitempty"`
}

// Writer renders a batch of proposals to exportDir in the given format
// and returns the file path written.
type Writer interface {
	Write(exportDir string, proposals []*types.BookingProposal, format string) (*Result, error)
}

func stamp() string { return time.Now().UTC().Format("20060102T150405") }

// exportLine is one flattened posting line, the unit every target format
// encodes. The debit/credit account split follows the line side; the OIB
// falls back to the document-level partner tax id when the line carries
// none.
type exportLine struct {
	DatumDokumenta string `json:"datum_dokumenta"`
	KontoDuguje    string `json:"konto_duguje"`
	KontoPotrazuje string `json:"konto_potrazuje"`
	Iznos          string `json:"iznos"`
	Opis           string `json:"opis"`
	OIB            string `json:"oib"`
}

func flatten(proposals []*types.BookingProposal) []exportLine {
	var lines []exportLine
	for _, p := range proposals {
		for _, l := range p.Lines {
			oib := l.PartnerTaxID
			if oib == "" {
				oib = p.Meta.PartnerTaxID
			}
			el := exportLine{
				DatumDokumenta: p.Meta.IssueDate.Format("2006-01-02"),
				Iznos:          l.Amount.StringFixed(2),
				Opis:           l.Description,
				OIB:            oib,
			}
			switch l.Side {
			case types.SideDebit:
				el.KontoDuguje = l.Account
			case types.SideCredit:
				el.KontoPotrazuje = l.Account
			}
			lines = append(lines, el)
		}
	}
	return lines
}

// --- CPP -------------------------------------------------------------

// cppImport is the XML shape CPP ingests (spec.md §6): a <CPPImport> root
// with one <Knjizenje> per posting line.
type cppImport struct {
	XMLName   xml.Name       `xml:"CPPImport"`
	Knjizenja []cppKnjizenje `xml:"Knjizenje"`
}

type cppKnjizenje struct {
	DatumDokumenta string `xml:"DatumDokumenta"`
	KontoDuguje    string `xml:"KontoDuguje"`
	KontoPotrazuje string `xml:"KontoPotrazuje"`
	Iznos          string `xml:"Iznos"`
	Opis           string `xml:"Opis"`
	OIB            string `xml:"OIB"`
}

// CPPWriter writes the CPPImport XML batch.
type CPPWriter struct{}

func (CPPWriter) Write(exportDir string, proposals []*types.BookingProposal, format string) (*Result, error) {
	doc := cppImport{}
	for _, el := range flatten(proposals) {
		doc.Knjizenja = append(doc.Knjizenja, cppKnjizenje(el))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal CPP batch: %w", err)
	}

	path := filepath.Join(exportDir, fmt.Sprintf("cpp_%s.xml", stamp()))
	if err := os.WriteFile(path, append([]byte(xml.Header), out...), 0o644); err != nil {
		return nil, fmt.Errorf("write CPP batch: %w", err)
	}
	logging.For(logging.CategoryExport).Info("wrote CPP batch", zap.String("path", path))
	return &Result{Path: path}, nil
}

// --- Synesis -----------------------------------------------------------

// SynesisWriter writes the semicolon-separated CSV import Synesis expects
// (spec.md §6): header DatumDok;KontoDug;KontoPot;Iznos;Opis;OIB.
type SynesisWriter struct{}

func (SynesisWriter) Write(exportDir string, proposals []*types.BookingProposal, format string) (*Result, error) {
	path := filepath.Join(exportDir, fmt.Sprintf("synesis_%s.csv", stamp()))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create synesis export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write([]string{"DatumDok", "KontoDug", "KontoPot", "Iznos", "Opis", "OIB"}); err != nil {
		return nil, err
	}
	for _, el := range flatten(proposals) {
		row := []string{el.DatumDokumenta, el.KontoDuguje, el.KontoPotrazuje, el.Iznos, el.Opis, el.OIB}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	logging.For(logging.CategoryExport).Info("wrote Synesis export", zap.String("path", path))
	return &Result{Path: path}, nil
}

// --- JSON (eRacuni / Pantheon, debugging) -------------------------------

// JSONWriter writes the flattened line records as a JSON array — the
// debugging format and the envelope for ERPs without a bespoke schema
// (spec.md §6).
type JSONWriter struct{}

func (JSONWriter) Write(exportDir string, proposals []*types.BookingProposal, format string) (*Result, error) {
	path := filepath.Join(exportDir, fmt.Sprintf("export_%s.json", stamp()))
	out, err := json.MarshalIndent(flatten(proposals), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON export: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, fmt.Errorf("write JSON export: %w", err)
	}
	logging.For(logging.CategoryExport).Info("wrote JSON export", zap.String("path", path))
	return &Result{Path: path}, nil
}

// Default returns the standard writer set keyed by ERP target, matching
// spec.md §6's target list.
func Default() map[types.ERPTarget]Writer {
	return map[types.ERPTarget]Writer{
		types.ERPCpp:      CPPWriter{},
		types.ERPSynesis:  SynesisWriter{},
		types.ERPERacuni:  JSONWriter{},
		types.ERPPantheon: JSONWriter{},
	}
}
