package rag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"

	"go.uber.org/zap"
)

// trackedKeywords mirrors the original Narodne Novine monitor's keyword
// list: Croatian accounting/tax legal terms, weighted below by how
// central they are to the corpus this assistant relies on.
var trackedKeywords = []string{
	"porez na dodanu vrijednost", "pdv",
	"porez na dobit",
	"porez na dohodak",
	"doprinosi",
	"fiskalizacija",
	"opći porezni zakon",
	"zakon o računovodstvu",
	"financijsko izvještavanje", "hsfi", "msfi",
	"revizija",
	"pravilnik o pdv", "pravilnik o porezu na dodanu vrijednost",
	"pravilnik o porezu na dobit",
	"pravilnik o porezu na dohodak",
	"pravilnik o doprinosima",
	"joppd", "obrazac joppd",
	"zakon o radu",
	"minimalna plaća",
	"osobni odbitak",
	"neoporezivi primici",
	"zakon o trgovačkim društvima",
	"zakon o obrtu",
	"intrastat",
	"e-račun", "eračun",
	"stopa pdv", "porezna stopa",
	"prag za pdv",
	"amortizacija", "amortizacijske stope",
}

// criticalKeywords score 0.4, importantKeywords score 0.3, the rest 0.15 —
// same three-tier weighting the original monitor applies.
var criticalKeywords = map[string]bool{
	"pdv": true, "porez na dodanu vrijednost": true,
	"porez na dobit": true, "porez na dohodak": true,
	"zakon o računovodstvu": true, "doprinosi": true,
}

var importantKeywords = map[string]bool{
	"fiskalizacija": true, "joppd": true, "hsfi": true,
	"opći porezni zakon": true, "minimalna plaća": true,
}

// trackedLaws maps an NN slug fragment to this corpus's internal short
// code, so an amendment to a tracked law can be linked back to the
// LawChunks it should supersede.
var trackedLaws = map[string]string{
	"zakon o porezu na dodanu vrijednost":  "zakon_o_pdv",
	"zakon o racunovodstvu":                "zakon_o_racunovodstvu",
	"zakon o porezu na dobit":              "zakon_o_porezu_na_dobit",
	"zakon o porezu na dohodak":            "zakon_o_porezu_na_dohodak",
	"zakon o doprinosima":                  "zakon_o_doprinosima",
	"zakon o fiskalizaciji u prometu gotovinom": "zakon_o_fiskalizaciji",
	"opci porezni zakon":                   "opci_porezni_zakon",
	"zakon o radu":                         "zakon_o_radu",
	"pravilnik o porezu na dodanu vrijednost": "pravilnik_o_pdv",
	"pravilnik o porezu na dobit":          "pravilnik_o_porezu_na_dobit",
	"pravilnik o porezu na dohodak":        "pravilnik_o_porezu_na_dohodak",
}

var titlePattern = regexp.MustCompile(
	`(?i)(?:Zakon|Pravilnik|Uredba|Odluka|Naredba|Ispravak)\s+o\s+[\p{L}\s,\-–—]+`,
)

var amendmentMarkers = []string{"izmjen", "dopun", "isprav"}

// Article is one regulation title found in an NN issue.
type Article struct {
	NNRef            string
	Title            string
	Category         string // zakon, pravilnik, uredba, ostalo
	URL              string
	RelevanceScore   float64
	MatchedKeywords  []string
	IsAmendment      bool
	ParentLawCode    string // this corpus's short code, if the amendment matches a tracked law
}

// CheckResult summarises one monitor pass (spec.md §4.6 ADDED: NN gazette
// monitor).
type CheckResult struct {
	CheckedAt      time.Time
	IssuesChecked  int
	RelevantFound  int
	NewAmendments  []Article
	NewLaws        []Article
	Errors         []string
}

const (
	nnBase     = "https://narodne-novine.nn.hr"
	nnSluzbeni = nnBase + "/clanci/sluzbeni"
	// relevanceThreshold below which an article is not reported (original
	// monitor's 0.5 cutoff).
	relevanceThreshold = 0.5
)

// Monitor polls Narodne Novine issues for amendments to tracked Croatian
// accounting/tax law, grounded on original_source's nn_monitor.py.
type Monitor struct {
	client *http.Client
}

// NewMonitor builds a Monitor using http.DefaultClient's transport with a
// fixed per-request timeout, matching the teacher's web_fetch.go pattern.
func NewMonitor() *Monitor {
	return &Monitor{client: &http.Client{Timeout: 30 * time.Second}}
}

// CheckIssue fetches and scores one NN issue, identified by its "broj/godina"
// reference (e.g. "73/13").
func (m *Monitor) CheckIssue(ctx context.Context, nnRef string) ([]Article, error) {
	timer := logging.StartTimer(logging.CategoryRAG, "nn_monitor.CheckIssue")
	defer timer.Stop()

	parts := strings.SplitN(nnRef, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed NN reference %q", nnRef)
	}
	year := parts[1]
	if len(year) == 2 {
		year = "20" + year
	}

	url := fmt.Sprintf("%s/%s/%s", nnSluzbeni, year, strings.ReplaceAll(nnRef, "/", "_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build NN request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; nyx-light-racunovodja/1.0)")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch NN issue %s: %w", nnRef, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NN issue %s: HTTP %d", nnRef, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read NN issue %s: %w", nnRef, err)
	}

	return ParseIssue(string(body), nnRef, url), nil
}

// ParseIssue extracts regulation titles from raw NN issue HTML/text and
// scores each for relevance. Exported so tests (and batch re-scoring
// tooling) can run it against fixture content without a network call.
func ParseIssue(content, nnRef, url string) []Article {
	var out []Article
	for _, m := range titlePattern.FindAllString(content, -1) {
		title := strings.TrimSpace(m)
		if len(title) > 200 {
			title = title[:200]
		}
		a := Article{NNRef: nnRef, Title: title, URL: url}
		a.Category = classifyCategory(title)
		scoreArticle(&a)
		out = append(out, a)
	}
	return out
}

func classifyCategory(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.HasPrefix(lower, "zakon"):
		return "zakon"
	case strings.HasPrefix(lower, "pravilnik"):
		return "pravilnik"
	case strings.HasPrefix(lower, "uredba"):
		return "uredba"
	default:
		return "ostalo"
	}
}

// scoreArticle computes a's relevance score in place, following the
// original monitor's weighted-keyword scheme: stems are matched so
// Croatian case endings ("porezu" vs "porez") still hit, tracked laws add
// an amendment bonus, and zakon/pravilnik categories get a small boost
// over uredba/odluka.
func scoreArticle(a *Article) {
	titleLower := strings.ToLower(a.Title)
	titleWords := strings.Fields(titleLower)

	var score float64
	var matched []string
	for _, kw := range trackedKeywords {
		if !keywordMatches(kw, titleLower, titleWords) {
			continue
		}
		switch {
		case criticalKeywords[kw]:
			score += 0.4
		case importantKeywords[kw]:
			score += 0.3
		default:
			score += 0.15
		}
		matched = append(matched, kw)
	}

	if a.Category == "zakon" || a.Category == "pravilnik" {
		score += 0.1
	}

	// Amendment titles cite the amended law in the genitive ("... Zakona o
	// porezu ..."), so fold that back to the nominative the map keys use.
	normalizedTitle := strings.NewReplacer("-", " ", "zakona o ", "zakon o ", "pravilnika o ", "pravilnik o ").Replace(titleLower)
	for slug, code := range trackedLaws {
		if strings.Contains(normalizedTitle, slug) {
			score += 0.3
			a.ParentLawCode = code
			a.IsAmendment = true
			break
		}
	}
	if !a.IsAmendment {
		for _, marker := range amendmentMarkers {
			if strings.Contains(titleLower, marker) {
				a.IsAmendment = true
				break
			}
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	a.RelevanceScore = score
	a.MatchedKeywords = matched
}

// keywordMatches applies the original's stem-matching rule: a single-word
// keyword matches on a truncated stem; a multi-word keyword matches when
// every word's stem appears somewhere in the title.
func keywordMatches(keyword, titleLower string, titleWords []string) bool {
	if strings.Contains(titleLower, keyword) {
		return true
	}
	words := strings.Fields(keyword)
	if len(words) == 1 {
		stem := stemOf(keyword)
		return strings.Contains(titleLower, stem)
	}
	if titleWords == nil {
		titleWords = strings.Fields(titleLower)
	}
	for _, w := range words {
		stem := stemOf(w)
		found := false
		for _, tw := range titleWords {
			if strings.Contains(tw, stem) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func stemOf(word string) string {
	n := len(word) - 2
	if n < 3 {
		n = 3
	}
	if n > len(word) {
		n = len(word)
	}
	return word[:n]
}

// Check walks recent issue references and aggregates relevant findings,
// logging each failed fetch rather than aborting the pass (mirrors
// check_for_updates's per-issue try/except). Issue references are supplied
// by the caller (the nightly scheduler enumerates the likely range) since
// NN publishes no stable index endpoint to crawl.
func (m *Monitor) Check(ctx context.Context, nnRefs []string) CheckResult {
	result := CheckResult{CheckedAt: time.Now().UTC(), IssuesChecked: len(nnRefs)}
	logger := logging.For(logging.CategoryRAG)

	for _, ref := range nnRefs {
		articles, err := m.CheckIssue(ctx, ref)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			logger.Warn("nn_monitor: issue check failed", zap.String("nn_ref", ref), zap.Error(err))
			continue
		}
		for _, a := range articles {
			if a.RelevanceScore < relevanceThreshold {
				continue
			}
			if a.IsAmendment {
				result.NewAmendments = append(result.NewAmendments, a)
			} else {
				result.NewLaws = append(result.NewLaws, a)
			}
		}
	}
	result.RelevantFound = len(result.NewAmendments) + len(result.NewLaws)
	return result
}
