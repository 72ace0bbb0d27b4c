package rag

import (
	"context"
	"testing"
)

func TestParseIssueFindsTrackedLawAmendment(t *testing.T) {
	html := `<html><body><h1>Zakon o izmjenama i dopunama Zakona o porezu na dodanu vrijednost</h1></body></html>`
	articles := ParseIssue(html, "42/26", "https://narodne-novine.nn.hr/clanci/sluzbeni/2026/42_26")
	if len(articles) == 0 {
		t.Fatal("expected at least one article parsed from the issue")
	}
	a := articles[0]
	if a.Category != "zakon" {
		t.Fatalf("expected category zakon, got %s", a.Category)
	}
	if !a.IsAmendment {
		t.Fatal("expected the article to be flagged as an amendment")
	}
	if a.ParentLawCode != "zakon_o_pdv" {
		t.Fatalf("expected parent law code zakon_o_pdv, got %q", a.ParentLawCode)
	}
	if a.RelevanceScore < relevanceThreshold {
		t.Fatalf("expected relevance >= %v, got %v", relevanceThreshold, a.RelevanceScore)
	}
}

func TestParseIssueIgnoresIrrelevantTitle(t *testing.T) {
	html := `<html><body><h1>Odluka o imenovanju člana povjerenstva</h1></body></html>`
	articles := ParseIssue(html, "42/26", "https://narodne-novine.nn.hr/clanci/sluzbeni/2026/42_26")
	for _, a := range articles {
		if a.RelevanceScore >= relevanceThreshold {
			t.Fatalf("did not expect an unrelated appointment decision to score above threshold: %+v", a)
		}
	}
}

func TestCheckAggregatesAcrossIssuesAndSkipsErrors(t *testing.T) {
	m := NewMonitor()
	result := m.Check(context.Background(), []string{"not-a-valid-ref"})
	if result.IssuesChecked != 1 {
		t.Fatalf("expected 1 issue checked, got %d", result.IssuesChecked)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected the malformed reference to produce one error, got %v", result.Errors)
	}
	if result.RelevantFound != 0 {
		t.Fatalf("expected no relevant findings from a failed fetch, got %d", result.RelevantFound)
	}
}

func TestKeywordMatchesCroatianCaseEndings(t *testing.T) {
	title := "Pravilnik o porezu na dodanu vrijednost u prometu dobara"
	if !keywordMatches("porez na dodanu vrijednost", title, nil) {
		t.Fatal("expected stem-matching to tolerate case endings (porezu vs porez)")
	}
}
