// Package router implements the two-phase Module Router + Executor
// (spec.md §4.2, SPEC_FULL.md §4.2): a lightweight deterministic classifier
// ("the router is a cheap deterministic classifier" — design notes) that
// never calls the LLM, followed by an Overseer safety check and a handler
// dispatch table keyed by module name.
//
// Grounded on the teacher's own dispatch style: a static map of keyword
// signals per category, the same register internal/overseer uses for its
// forbidden-category matching, generalized here to ~45 module ids instead
// of 3 safety categories.
package router

import (
	"regexp"
	"strings"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// Signal is one lexical/shape clue a module can be classified from.
// Keyword entries match a lowercased substring; Patterns match a compiled
// regex against the raw (not lowercased) text, for shape features like
// IBAN/OIB/document numbers.
type Signal struct {
	Module   string
	Keywords []string
	Patterns []*regexp.Regexp
	// RequiresFile, when true, only contributes if hasFile is true —
	// routing documents (invoices, bank statements) rarely arrive as
	// bare chat text.
	RequiresFile bool
	Weight       float64
}

var ibanPattern = regexp.MustCompile(`(?i)\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`)
var oibPattern = regexp.MustCompile(`\b\d{11}\b`)

// signals is the full module classification table: one entry per module id
// from spec.md §4.2's ≈45-value Executor dispatch list. Keyword lists are
// Croatian-first, matching the domain's working language, with common
// English/abbreviation synonyms folded in.
var signals = []Signal{
	{Module: "bank_parser", Keywords: []string{"izvod", "bankovni izvod", "izvadak"}, Patterns: []*regexp.Regexp{ibanPattern}, Weight: 0.75},
	{Module: "invoice_ocr", Keywords: []string{"račun", "racun", "faktura", "ulazni račun"}, RequiresFile: true, Weight: 0.8},
	{Module: "universal_parser", Keywords: []string{"dokument", "pdf", "skeniraj"}, RequiresFile: true, Weight: 0.5},
	{Module: "eracuni_parser", Keywords: []string{"e-račun", "eracun", "ubl", "peppol xml"}, Weight: 0.8},
	{Module: "ios", Keywords: []string{"ios", "izjava o prijeboju", "izjava o saldu", "usklađenje salda"}, Weight: 0.8},
	{Module: "kontiranje", Keywords: []string{"proknjiži", "proknjizi", "kontiranje", "knjiženje", "na koji konto"}, Weight: 0.75},
	{Module: "blagajna", Keywords: []string{"blagajna", "blagajne", "blagajnički", "gotovinska uplata", "fiskalna blagajna"}, Weight: 0.8},
	{Module: "putni_nalozi", Keywords: []string{"putni nalog", "dnevnica", "službeni put", "kilometraža"}, Weight: 0.8},
	{Module: "osnovna_sredstva", Keywords: []string{"osnovno sredstvo", "amortizacija", "otpis sredstva"}, Weight: 0.75},
	{Module: "amortizacija", Keywords: []string{"obračun amortizacije", "amortizacijska stopa"}, Weight: 0.8},
	{Module: "ledger", Keywords: []string{"glavna knjiga", "saldo konta", "otvorene stavke"}, Weight: 0.7},
	{Module: "fakturiranje", Keywords: []string{"ispostavi račun", "izdaj fakturu", "izlazni račun"}, Weight: 0.75},
	{Module: "outgoing_invoice", Keywords: []string{"izlazna faktura", "izlazni račun broj"}, Weight: 0.75},
	{Module: "kompenzacije", Keywords: []string{"kompenzacija", "prijeboj tražbina"}, Weight: 0.8},
	{Module: "likvidacija", Keywords: []string{"likvidacija firme", "likvidacijski postupak"}, Weight: 0.8},
	{Module: "accruals", Keywords: []string{"razgraničenje", "vremensko razgraničenje", "accrual"}, Weight: 0.75},
	{Module: "novcani_tokovi", Keywords: []string{"novčani tok", "cash flow", "izvještaj o novčanom tijeku"}, Weight: 0.75},
	{Module: "porez_dobit", Keywords: []string{"porez na dobit", "pd obrazac", "porez na dobit prijava"}, Weight: 0.8},
	{Module: "porez_dohodak", Keywords: []string{"porez na dohodak", "godišnja prijava poreza na dohodak"}, Weight: 0.8},
	{Module: "pdv_prijava", Keywords: []string{"pdv prijava", "obrazac pdv", "pdv obračun"}, Weight: 0.8},
	{Module: "payroll", Keywords: []string{"plaća", "plaću", "place", "obračun plaće", "neto plaća", "bruto plaća"}, Weight: 0.8},
	{Module: "joppd", Keywords: []string{"joppd", "jedinstveni obrazac"}, Weight: 0.85},
	{Module: "drugi_dohodak", Keywords: []string{"drugi dohodak", "ugovor o djelu", "autorski honorar"}, Weight: 0.8},
	{Module: "bolovanje", Keywords: []string{"bolovanje", "naknada plaće za bolovanje"}, Weight: 0.8},
	{Module: "place", Keywords: []string{"isplata plaće", "obračunski list"}, Weight: 0.7},
	{Module: "peppol", Keywords: []string{"peppol", "access point"}, Weight: 0.85},
	{Module: "fiskalizacija2", Keywords: []string{"fiskalizacija", "fiskalizacija 2.0", "fiskalni račun"}, Weight: 0.8},
	{Module: "e_racun", Keywords: []string{"e-račun obveza", "slanje e-računa"}, Weight: 0.75},
	{Module: "intrastat", Keywords: []string{"intrastat", "statistika razmjene robe"}, Weight: 0.85},
	{Module: "gfi_xml", Keywords: []string{"gfi xml", "fina gfi", "godišnji financijski izvještaj xml"}, Weight: 0.85},
	{Module: "gfi_prep", Keywords: []string{"priprema gfi-a", "priprema godišnjih izvještaja"}, Weight: 0.75},
	{Module: "reports", Keywords: []string{"izvještaj", "izvjestaj", "bilanca", "račun dobiti i gubitka"}, Weight: 0.6},
	{Module: "kpi", Keywords: []string{"kpi", "pokazatelj poslovanja", "ključni pokazatelj"}, Weight: 0.7},
	{Module: "management_accounting", Keywords: []string{"upravljačko računovodstvo", "analiza troškova"}, Weight: 0.65},
	{Module: "business_plan", Keywords: []string{"poslovni plan", "investicijski plan"}, Weight: 0.75},
	{Module: "audit", Keywords: []string{"revizija", "revizorski nalaz"}, Weight: 0.8},
	{Module: "client_management", Keywords: []string{"novi klijent", "onboarding klijenta", "podaci o klijentu"}, Weight: 0.6},
	{Module: "communication", Keywords: []string{"pošalji email", "obavijesti klijenta"}, Weight: 0.55},
	{Module: "kadrovska", Keywords: []string{"kadrovska evidencija", "ugovor o radu", "radna knjižica"}, Weight: 0.7},
	{Module: "deadlines", Keywords: []string{"rok", "kada dospijeva", "kalendar obveza"}, Weight: 0.6},
	{Module: "network", Keywords: []string{"mreža", "vpn", "pristup serveru"}, Weight: 0.5},
	{Module: "vision_llm", Keywords: []string{"slika", "fotografija računa", "skeniran dokument"}, RequiresFile: true, Weight: 0.6},
	{Module: "rag", Keywords: []string{"koji zakon", "prema zakonu", "pravna osnova", "koji članak"}, Weight: 0.7},
	{Module: "scalability", Keywords: []string{"opterećenje sustava", "skaliranje"}, Weight: 0.5},
	{Module: "web_ui", Keywords: []string{"sučelje", "dashboard prikaz"}, Weight: 0.5},
	{Module: "export", Keywords: []string{"izvezi u", "export u cpp", "export u synesis", "export u eracuni", "export u pantheon"}, Weight: 0.75},
}

// Classify is the Router's entry point (spec.md §4.2): a deterministic,
// non-generative classification of text (plus whether the message carries
// a file attachment) into a module/sub-intent/entities/confidence tuple.
func Classify(text string, hasFile bool) types.RouterResult {
	lower := strings.ToLower(text)

	best := Signal{Module: "general", Weight: 0}
	bestScore := 0.0
	for _, sig := range signals {
		if sig.RequiresFile && !hasFile {
			continue
		}
		score := 0.0
		for _, kw := range sig.Keywords {
			if strings.Contains(lower, kw) {
				score = sig.Weight
				break
			}
		}
		for _, pat := range sig.Patterns {
			if pat.MatchString(text) {
				if sig.Weight > score {
					score = sig.Weight
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = sig
		}
	}

	entities := extractEntities(text)
	module := best.Module
	if bestScore == 0 {
		module = "general"
	}

	return types.RouterResult{
		Module:     module,
		SubIntent:  subIntent(lower, module),
		Entities:   entities,
		Confidence: bestScore,
	}
}

// extractEntities pulls shape-based entities (IBAN, OIB) out of raw text,
// the same "shape features" register spec.md §4.2 names for the Router.
func extractEntities(text string) map[string]interface{} {
	entities := make(map[string]interface{})
	if iban := ibanPattern.FindString(text); iban != "" {
		entities["iban"] = iban
	}
	if oib := oibPattern.FindString(text); oib != "" {
		entities["oib"] = oib
	}
	return entities
}

// subIntent gives a coarse verb-level hint within a module (create vs.
// query vs. correct), derived from a handful of Croatian verb stems —
// handlers may ignore it and re-derive their own sub-intent from entities.
func subIntent(lower, module string) string {
	switch {
	case strings.Contains(lower, "ispravi") || strings.Contains(lower, "izmijeni") || strings.Contains(lower, "koriguj"):
		return "correct"
	case strings.Contains(lower, "koliko") || strings.Contains(lower, "koji je") || strings.Contains(lower, "provjeri"):
		return "query"
	case strings.Contains(lower, "izvezi") || strings.Contains(lower, "export"):
		return "export"
	default:
		return "create"
	}
}
