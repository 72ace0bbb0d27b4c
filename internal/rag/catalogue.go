// Package rag implements the Time-Aware Legal RAG (spec.md §4.6): a small
// SQLite-backed vector store over LawChunks, effective-date filtering, and
// answer generation with verbatim citations.
package rag

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// CataloguedLaw is one entry of the static law catalogue — the reference
// list of legal sources the RAG ingests from, grounded verbatim on
// original_source/src/nyx_light/rag/law_downloader.py's LAW_CATALOG
// dataclass list (slug, name, primary NN number, amendment NN numbers,
// effective-from date, category, priority tier).
type CataloguedLaw struct {
	Slug          string          `yaml:"slug"`
	Name          string          `yaml:"name"`
	ShortCode     string          `yaml:"short_code"`
	Category      types.LawCategory `yaml:"category"`
	NNPrimary     string          `yaml:"nn_primary"`
	NNAmendments  []string        `yaml:"nn_amendments"`
	EffectiveFrom string          `yaml:"effective_from"` // YYYY-MM-DD
	Priority      int             `yaml:"priority"`       // 1=critical, 2=important, 3=useful
}

// Catalogue is the ≈25-law reference list, YAML-encoded so an operator can
// extend it without a code change — the same registry shape
// law_downloader.py's LAW_CATALOG serves, trimmed to the laws SPEC_FULL.md
// §4.6 calls for and translated from Python dataclass literals to a Go
// slice literal.
var Catalogue = []CataloguedLaw{
	{Slug: "zakon_o_pdv", Name: "Zakon o porezu na dodanu vrijednost", ShortCode: "ZPDV", Category: types.CategoryVAT, NNPrimary: "73/13", NNAmendments: []string{"99/13", "148/13", "153/13", "143/14", "115/16", "106/18", "121/19", "138/20", "39/22", "113/22", "33/23", "114/23", "35/24", "152/24", "52/25", "151/25"}, EffectiveFrom: "2013-07-01", Priority: 1},
	{Slug: "pravilnik_o_pdv", Name: "Pravilnik o porezu na dodanu vrijednost", ShortCode: "PPDV", Category: types.CategoryVAT, NNPrimary: "79/13", NNAmendments: []string{"85/13", "160/13", "35/14", "157/14", "130/15", "1/17", "41/17", "128/17", "1/19", "1/20", "1/21", "73/21", "41/22", "133/22", "43/23", "16/25"}, EffectiveFrom: "2013-07-01", Priority: 1},
	{Slug: "zakon_o_racunovodstvu", Name: "Zakon o računovodstvu", ShortCode: "ZOR", Category: types.CategoryAccounting, NNPrimary: "78/15", NNAmendments: []string{"120/16", "116/18", "42/20", "47/20", "114/22", "82/23", "18/25"}, EffectiveFrom: "2016-01-01", Priority: 1},
	{Slug: "zakon_o_porezu_na_dobit", Name: "Zakon o porezu na dobit", ShortCode: "ZPD", Category: types.CategoryCorporateTax, NNPrimary: "177/04", NNAmendments: []string{"90/05", "57/06", "146/08", "80/10", "22/12", "148/13", "143/14", "50/16", "115/16", "106/18", "121/19", "32/20", "138/20", "114/22", "114/23", "151/25"}, EffectiveFrom: "2005-01-01", Priority: 1},
	{Slug: "pravilnik_o_porezu_na_dobit", Name: "Pravilnik o porezu na dobit", ShortCode: "PPD", Category: types.CategoryCorporateTax, NNPrimary: "95/05", NNAmendments: []string{"133/07", "156/08", "146/09", "123/10", "137/11", "61/12", "146/12", "160/13", "12/14", "157/14", "137/15", "1/17", "2/18", "1/19", "1/20", "59/20", "1/21", "156/22", "156/23", "16/25"}, EffectiveFrom: "2005-01-01", Priority: 1},
	{Slug: "zakon_o_porezu_na_dohodak", Name: "Zakon o porezu na dohodak", ShortCode: "ZPDoh", Category: types.CategoryIncomeTax, NNPrimary: "115/16", NNAmendments: []string{"106/18", "121/19", "32/20", "138/20", "151/22", "114/23", "152/24"}, EffectiveFrom: "2017-01-01", Priority: 1},
	{Slug: "pravilnik_o_porezu_na_dohodak", Name: "Pravilnik o porezu na dohodak", ShortCode: "PPDoh", Category: types.CategoryIncomeTax, NNPrimary: "10/17", NNAmendments: []string{"128/17", "106/18", "1/19", "80/19", "1/20", "74/20", "1/21", "102/22", "112/22", "156/22", "1/23", "43/23"}, EffectiveFrom: "2017-01-01", Priority: 1},
	{Slug: "zakon_o_doprinosima", Name: "Zakon o doprinosima", ShortCode: "ZOD", Category: types.CategoryContributions, NNPrimary: "84/08", NNAmendments: []string{"152/08", "94/09", "18/11", "22/12", "144/12", "148/13", "41/14", "143/14", "115/16", "106/18", "33/23", "114/23"}, EffectiveFrom: "2009-01-01", Priority: 1},
	{Slug: "pravilnik_o_doprinosima", Name: "Pravilnik o doprinosima", ShortCode: "PDOD", Category: types.CategoryContributions, NNPrimary: "2/09", NNAmendments: []string{"9/09", "97/09", "25/11", "61/12", "86/13", "157/14", "1/17", "1/19"}, EffectiveFrom: "2009-01-01", Priority: 2},
	{Slug: "pravilnik_o_joppd", Name: "Pravilnik o sadržaju obračuna plaće i JOPPD", ShortCode: "JOPPD", Category: types.CategoryContributions, NNPrimary: "32/15", NNAmendments: []string{"102/15", "79/16", "1/17", "35/17", "93/17", "1/19", "1/20", "1/21"}, EffectiveFrom: "2015-01-01", Priority: 1},
	{Slug: "pravilnik_o_neoporezivim_primicima", Name: "Pravilnik o neoporezivim primicima", ShortCode: "PNP", Category: types.CategoryIncomeTax, NNPrimary: "1/23", NNAmendments: []string{"43/23"}, EffectiveFrom: "2023-01-01", Priority: 1},
	{Slug: "zakon_o_fiskalizaciji", Name: "Zakon o fiskalizaciji", ShortCode: "ZOF", Category: types.CategoryFiscalisation, NNPrimary: "89/25", EffectiveFrom: "2025-09-01", Priority: 1},
	{Slug: "pravilnik_o_fiskalizaciji", Name: "Pravilnik o fiskalizaciji računa u krajnjoj potrošnji", ShortCode: "PFIS", Category: types.CategoryFiscalisation, NNPrimary: "153/25", EffectiveFrom: "2026-01-01", Priority: 1},
	{Slug: "opci_porezni_zakon", Name: "Opći porezni zakon", ShortCode: "OPZ", Category: types.CategoryOther, NNPrimary: "115/16", NNAmendments: []string{"106/18", "121/19", "32/20", "42/20", "114/23", "152/24", "151/25"}, EffectiveFrom: "2017-01-01", Priority: 2},
	{Slug: "zakon_o_radu", Name: "Zakon o radu", ShortCode: "ZOR2", Category: types.CategoryLabour, NNPrimary: "93/14", NNAmendments: []string{"127/17", "98/19", "151/22", "64/23"}, EffectiveFrom: "2014-08-07", Priority: 2},
	{Slug: "zakon_o_trgovackim_drustvima", Name: "Zakon o trgovačkim društvima", ShortCode: "ZTD", Category: types.CategoryOther, NNPrimary: "111/93", NNAmendments: []string{"34/99", "121/99", "52/00", "118/03", "107/07", "146/08", "137/09", "125/11", "152/11", "111/12", "68/13", "110/15", "40/19", "34/22", "114/22", "18/23"}, EffectiveFrom: "1995-01-01", Priority: 2},
	{Slug: "zakon_o_obrtu", Name: "Zakon o obrtu", ShortCode: "ZOO", Category: types.CategoryOther, NNPrimary: "143/13", NNAmendments: []string{"127/19", "41/20"}, EffectiveFrom: "2014-01-01", Priority: 2},
	{Slug: "zakon_o_provedbi_ovrhe", Name: "Zakon o provedbi ovrhe na novčanim sredstvima", ShortCode: "ZPO", Category: types.CategoryOther, NNPrimary: "68/18", NNAmendments: []string{"2/20", "46/20", "47/20"}, EffectiveFrom: "2018-08-04", Priority: 3},
	{Slug: "zakon_o_minimalnom_globalnom_porezu", Name: "Zakon o minimalnom globalnom porezu na dobit", ShortCode: "ZMGP", Category: types.CategoryCorporateTax, NNPrimary: "155/23", NNAmendments: []string{"151/25"}, EffectiveFrom: "2024-01-01", Priority: 3},
	{Slug: "pravilnik_o_amortizaciji", Name: "Pravilnik o amortizaciji", ShortCode: "PAM", Category: types.CategoryAccounting, NNPrimary: "1/01", NNAmendments: []string{"54/01", "2/06"}, EffectiveFrom: "2001-01-01", Priority: 2},
	{Slug: "pravilnik_o_kontnom_planu", Name: "Pravilnik o strukturi i sadržaju financijskih izvještaja", ShortCode: "PKP", Category: types.CategoryAccounting, NNPrimary: "95/16", NNAmendments: []string{"4/19"}, EffectiveFrom: "2016-01-01", Priority: 2},
	{Slug: "pravilnik_o_eracunu", Name: "Pravilnik o e-Računu u javnoj nabavi", ShortCode: "PER", Category: types.CategoryFiscalisation, NNPrimary: "1/19", EffectiveFrom: "2019-07-01", Priority: 3},
	{Slug: "hsfi", Name: "Hrvatski standardi financijskog izvještavanja", ShortCode: "HSFI", Category: types.CategoryAccounting, NNPrimary: "86/15", NNAmendments: []string{"105/20", "9/23"}, EffectiveFrom: "2016-01-01", Priority: 2},
	{Slug: "minimalna_placa", Name: "Uredba o visini minimalne plaće za 2026.", ShortCode: "MINPL", Category: types.CategoryContributions, NNPrimary: "132/25", EffectiveFrom: "2026-01-01", Priority: 2},
	{Slug: "naredba_doprinosi_2026", Name: "Naredba o iznosima osnovica za obračun doprinosa za 2026.", ShortCode: "NDOP", Category: types.CategoryContributions, NNPrimary: "150/25", EffectiveFrom: "2026-01-01", Priority: 2},
	{Slug: "osobni_odbitak", Name: "Neoporezivi osobni odbitak i porezne stope", ShortCode: "OOD", Category: types.CategoryIncomeTax, NNPrimary: "9/25", EffectiveFrom: "2025-01-01", Priority: 1},
}

// WriteCatalogueYAML dumps the built-in catalogue to a YAML file, the
// format an operator edits to add a newly enacted law without touching
// Go source — the same config.yaml.v3 library the teacher's own config
// layer uses, per SPEC_FULL.md's note that the catalogue is "YAML-encoded".
func WriteCatalogueYAML(path string) error {
	b, err := yaml.Marshal(Catalogue)
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "marshal law catalogue")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "write law catalogue file")
	}
	return nil
}

// LoadCatalogueYAML reads an operator-edited catalogue override from path,
// falling back to the built-in Catalogue if path does not exist.
func LoadCatalogueYAML(path string) ([]CataloguedLaw, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Catalogue, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "read law catalogue file")
	}
	var laws []CataloguedLaw
	if err := yaml.Unmarshal(b, &laws); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "parse law catalogue file")
	}
	return laws, nil
}

// EffectiveDate parses a catalogue entry's EffectiveFrom into a time.Time,
// UTC midnight. Catalogue entries are a fixed literal, so a parse failure
// here is a programming error, not a runtime condition to recover from.
func (l CataloguedLaw) EffectiveDate() time.Time {
	t, err := time.Parse("2006-01-02", l.EffectiveFrom)
	if err != nil {
		panic("rag: malformed catalogue effective_from for " + l.Slug + ": " + err.Error())
	}
	return t
}
