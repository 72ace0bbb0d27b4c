package rag

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "rag.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestIngestAndSearchFindsCurrentChunk(t *testing.T) {
	s := newTestStore(t)
	c := &types.LawChunk{
		ID: "c1", LawName: "Zakon o PDV-u", ShortCode: "ZPDV",
		Category: types.CategoryVAT, Article: "čl. 38",
		Text:      "Opća stopa poreza na dodanu vrijednost iznosi 25%.",
		NNRef:     "73/13", ValidFrom: date("2013-07-01"),
	}
	if err := s.Ingest(c); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(Query{Text: "stopa poreza na dodanu vrijednost", TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "c1" {
		t.Fatalf("expected to find c1, got %+v", results)
	}
	if results[0].Expired {
		t.Fatal("currently in-force chunk should not be marked expired")
	}
}

func TestIngestSupersedesPreviousOpenEndedChunk(t *testing.T) {
	s := newTestStore(t)
	old := &types.LawChunk{
		ID: "old", ShortCode: "ZPDV", Article: "čl. 38", Category: types.CategoryVAT,
		Text: "Opća stopa PDV-a iznosi 25%.", ValidFrom: date("2013-07-01"),
	}
	if err := s.Ingest(old); err != nil {
		t.Fatal(err)
	}

	newer := &types.LawChunk{
		ID: "new", ShortCode: "ZPDV", Article: "čl. 38", Category: types.CategoryVAT,
		Text: "Opća stopa PDV-a iznosi 26%.", ValidFrom: date("2026-01-01"),
	}
	if err := s.Ingest(newer); err != nil {
		t.Fatal(err)
	}

	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	var gotOld *types.LawChunk
	for _, c := range all {
		if c.ID == "old" {
			gotOld = c
		}
	}
	if gotOld == nil || gotOld.ValidTo == nil {
		t.Fatal("expected old chunk to be closed out by the new one's ingestion")
	}
	wantClose := date("2025-12-31")
	if !gotOld.ValidTo.Equal(wantClose) {
		t.Fatalf("expected old chunk closed on %v, got %v", wantClose, gotOld.ValidTo)
	}

	// As of today the new chunk is the one in force.
	results, err := s.Search(Query{Text: "stopa PDV-a", TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "new" {
		t.Fatalf("expected only the new chunk in force, got %+v", results)
	}
}

func TestSearchRespectsEventDateAndIncludeExpired(t *testing.T) {
	s := newTestStore(t)
	expiredTo := date("2025-12-31")
	old := &types.LawChunk{
		ID: "old", ShortCode: "ZPDV", Article: "čl. 38", Category: types.CategoryVAT,
		Text: "Stara stopa PDV-a bila je 25%.", ValidFrom: date("2013-07-01"), ValidTo: &expiredTo,
	}
	newer := &types.LawChunk{
		ID: "new", ShortCode: "ZPDV", Article: "čl. 38", Category: types.CategoryVAT,
		Text: "Nova stopa PDV-a iznosi 26%.", ValidFrom: date("2026-01-01"),
	}
	if err := s.Ingest(old); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest(newer); err != nil {
		t.Fatal(err)
	}

	pastDate := date("2020-01-01")
	results, err := s.Search(Query{Text: "stopa PDV-a", EventDate: &pastDate, TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "old" {
		t.Fatalf("expected only the old chunk valid on 2020-01-01, got %+v", results)
	}

	// Querying "now" (2026) without IncludeExpired should surface only the new chunk.
	resultsNow, err := s.Search(Query{Text: "stopa PDV-a", TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resultsNow {
		if r.Chunk.ID == "old" {
			t.Fatal("expired chunk should not appear without IncludeExpired")
		}
	}

	resultsExpired, err := s.Search(Query{Text: "stara stopa", IncludeExpired: true, TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range resultsExpired {
		if r.Chunk.ID == "old" {
			found = true
			if !r.Expired {
				t.Fatal("old chunk should be flagged Expired when surfaced via IncludeExpired")
			}
		}
	}
	if !found {
		t.Fatal("expected the expired chunk to be retrievable with IncludeExpired")
	}
}

func TestGenerateAnswerCitesVerbatim(t *testing.T) {
	results := []Result{
		{Chunk: &types.LawChunk{
			ShortCode: "ZPDV", Article: "čl. 38", NNRef: "73/13",
			Text: "Opća stopa PDV-a iznosi 25%.", ValidFrom: date("2013-07-01"),
		}},
	}
	answer := GenerateAnswer(results)
	if answer.Text != "Opća stopa PDV-a iznosi 25%." {
		t.Fatalf("expected verbatim chunk text, got %q", answer.Text)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].ShortCode != "ZPDV" {
		t.Fatalf("expected one citation to ZPDV, got %+v", answer.Citations)
	}
}

func TestGenerateAnswerEmptyResults(t *testing.T) {
	answer := GenerateAnswer(nil)
	if len(answer.Citations) != 0 {
		t.Fatal("expected no citations for an empty result set")
	}
	if answer.Text == "" {
		t.Fatal("expected a non-empty fallback message")
	}
}

func TestCosineSimilarityRanksClosestEmbedding(t *testing.T) {
	s := newTestStore(t)
	a := &types.LawChunk{ID: "a", ShortCode: "ZPDV", Article: "1", Text: "a", ValidFrom: date("2020-01-01"), Embedding: []float32{1, 0, 0}}
	b := &types.LawChunk{ID: "b", ShortCode: "ZPDV", Article: "2", Text: "b", ValidFrom: date("2020-01-01"), Embedding: []float32{0, 1, 0}}
	if err := s.Ingest(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest(b); err != nil {
		t.Fatal(err)
	}

	results, err := s.SearchWithEmbedding(Query{Text: "q", TopK: 2}, fakeEmbedder{vec: []float32{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Chunk.ID != "a" {
		t.Fatalf("expected chunk a ranked first by cosine similarity, got %+v", results)
	}
}

type fakeEmbedder struct{ vec []float32 }

func (f fakeEmbedder) Embed(string) ([]float32, error) { return f.vec, nil }
