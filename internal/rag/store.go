package rag

import (
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"

	_ "modernc.org/sqlite"
)

// Store persists LawChunks and ranks retrieval candidates by in-process
// cosine similarity over their stored embedding — the fallback path the
// teacher's own internal/mcp/store.go takes when the cgo sqlite-vec
// extension is unavailable, which it always is here (see SPEC_FULL.md's
// "Dropped teacher dependencies" note: this repo's stores are
// cgo-free modernc.org/sqlite).
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (and migrates) the RAG corpus database at path.
func NewStore(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryRAG, "NewStore")
	defer timer.Stop()

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "open rag store")
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		law_name TEXT NOT NULL,
		short_code TEXT NOT NULL,
		category TEXT NOT NULL,
		article TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_code_article ON chunks(short_code, article);
	CREATE INDEX IF NOT EXISTS idx_chunks_category ON chunks(category);
	`)
	return err
}

type chunkRow struct {
	ID        string
	ShortCode string
	Article   string
	ValidFrom time.Time
	ValidTo   *time.Time
	Chunk     types.LawChunk
}

// Ingest inserts or replaces a LawChunk. The invariant from spec.md §3
// ("for any (law, article) pair at most one chunk has empty valid_to") is
// enforced here: inserting a new in-force chunk closes out the previous
// in-force chunk for the same (short code, article) by setting its
// valid_to to the new chunk's valid_from minus one day.
func (s *Store) Ingest(c *types.LawChunk) error {
	timer := logging.StartTimer(logging.CategoryRAG, "Ingest")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "begin ingest transaction")
	}
	defer tx.Rollback()

	if c.ValidTo == nil {
		rows, err := tx.Query(
			`SELECT id, body FROM chunks WHERE short_code = ? AND article = ? AND valid_to IS NULL AND id != ?`,
			c.ShortCode, c.Article, c.ID,
		)
		if err != nil {
			return apperr.Wrap(apperr.KindFatal, err, "query open-ended chunks")
		}
		var toClose []chunkRow
		for rows.Next() {
			var id, body string
			if err := rows.Scan(&id, &body); err != nil {
				rows.Close()
				return apperr.Wrap(apperr.KindFatal, err, "scan chunk")
			}
			var old types.LawChunk
			if err := json.Unmarshal([]byte(body), &old); err != nil {
				rows.Close()
				return apperr.Wrap(apperr.KindFatal, err, "decode chunk")
			}
			toClose = append(toClose, chunkRow{ID: id, Chunk: old})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return apperr.Wrap(apperr.KindFatal, err, "iterate open-ended chunks")
		}

		for _, row := range toClose {
			closeDate := c.ValidFrom.AddDate(0, 0, -1)
			row.Chunk.ValidTo = &closeDate
			body, err := json.Marshal(row.Chunk)
			if err != nil {
				return apperr.Wrap(apperr.KindFatal, err, "encode superseded chunk")
			}
			if _, err := tx.Exec(`UPDATE chunks SET valid_to = ?, body = ? WHERE id = ?`,
				closeDate.UTC().Format("2006-01-02"), body, row.ID); err != nil {
				return apperr.Wrap(apperr.KindFatal, err, "close superseded chunk")
			}
		}
	}

	body, err := json.Marshal(c)
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "encode chunk")
	}
	validTo := ""
	if c.ValidTo != nil {
		validTo = c.ValidTo.UTC().Format("2006-01-02")
	}
	_, err = tx.Exec(
		`INSERT INTO chunks (id, law_name, short_code, category, article, valid_from, valid_to, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body, valid_to = excluded.valid_to`,
		c.ID, c.LawName, c.ShortCode, string(c.Category), c.Article,
		c.ValidFrom.UTC().Format("2006-01-02"), nullable(validTo), body,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, err, "insert chunk")
	}
	return tx.Commit()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// All returns every chunk in the corpus (used by ingestion tooling and
// tests; not on the hot query path).
func (s *Store) All() ([]*types.LawChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT body FROM chunks`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "query all chunks")
	}
	defer rows.Close()
	var out []*types.LawChunk
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, err, "scan chunk")
		}
		var c types.LawChunk
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, err, "decode chunk")
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Query is a retrieval request (spec.md §4.6).
type Query struct {
	Text           string
	EventDate      *time.Time // nil -> "currently in force"
	IncludeExpired bool
	TopK           int
}

// Result pairs a retrieved chunk with its relevance score and whether it
// is expired relative to the query's event date.
type Result struct {
	Chunk   *types.LawChunk
	Score   float64
	Expired bool
}

// Search retrieves chunks valid on q.EventDate (or currently in force if
// nil), ranked by lexical overlap with q.Text — a keyword-overlap scorer
// standing in for the embedding cosine-similarity ranking used when an
// Embedder is wired in via SearchWithEmbedding below; both paths respect
// the same effective-date filter (spec.md §4.6, §8 invariant 9).
func (s *Store) Search(q Query) ([]Result, error) {
	timer := logging.StartTimer(logging.CategoryRAG, "Search")
	defer timer.Stop()

	chunks, err := s.All()
	if err != nil {
		return nil, err
	}

	asOf := time.Now().UTC()
	if q.EventDate != nil {
		asOf = *q.EventDate
	}

	terms := tokenize(q.Text)
	var results []Result
	for _, c := range chunks {
		valid := c.WasValidOn(asOf)
		expired := !valid && c.ValidTo != nil
		if !valid && !(q.IncludeExpired && expired) {
			continue
		}
		score := lexicalOverlap(terms, c.Text)
		if score <= 0 {
			continue
		}
		results = append(results, Result{Chunk: c, Score: score, Expired: !valid})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	topK := q.TopK
	if topK <= 0 {
		topK = 5
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Embedder produces a fixed-dimension embedding for a piece of text — an
// interface so the inference layer's google.golang.org/genai client can
// supply real embeddings without the RAG package importing the inference
// package directly.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// SearchWithEmbedding ranks chunks by cosine similarity between
// embedder's embedding of q.Text and each chunk's stored embedding,
// falling back to Search's lexical scorer for any chunk with no stored
// embedding yet.
func (s *Store) SearchWithEmbedding(q Query, embedder Embedder) ([]Result, error) {
	qVec, err := embedder.Embed(q.Text)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "embed query")
	}

	chunks, err := s.All()
	if err != nil {
		return nil, err
	}

	asOf := time.Now().UTC()
	if q.EventDate != nil {
		asOf = *q.EventDate
	}

	var results []Result
	for _, c := range chunks {
		valid := c.WasValidOn(asOf)
		expired := !valid && c.ValidTo != nil
		if !valid && !(q.IncludeExpired && expired) {
			continue
		}
		var score float64
		if len(c.Embedding) > 0 {
			score = cosineSimilarity(qVec, c.Embedding)
		} else {
			score = lexicalOverlap(tokenize(q.Text), c.Text)
		}
		if score <= 0 {
			continue
		}
		results = append(results, Result{Chunk: c, Score: score, Expired: !valid})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	topK := q.TopK
	if topK <= 0 {
		topK = 5
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func tokenize(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()\"'")
		if f != "" {
			out[f] = true
		}
	}
	return out
}

func lexicalOverlap(terms map[string]bool, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	textTerms := tokenize(text)
	hits := 0
	for t := range terms {
		if textTerms[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// Answer is the generated response to a legal query (spec.md §4.6).
type Answer struct {
	Text      string
	Citations []types.Citation
}

// GenerateAnswer builds a short answer from the top retrieval results plus
// their verbatim citations. It never invents a figure or date: every
// sentence is drawn directly from a chunk's Text, and every Citation field
// is copied from the corpus.
func GenerateAnswer(results []Result) Answer {
	if len(results) == 0 {
		return Answer{Text: "Nema pronađenih odredbi za upit u trenutno dostupnom korpusu propisa."}
	}
	var sb strings.Builder
	citations := make([]types.Citation, 0, len(results))
	for i, r := range results {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(r.Chunk.Text)
		citations = append(citations, types.Citation{
			ShortCode: r.Chunk.ShortCode,
			Article:   r.Chunk.Article,
			NNRef:     r.Chunk.NNRef,
			ValidFrom: r.Chunk.ValidFrom,
			ValidTo:   r.Chunk.ValidTo,
			Expired:   r.Expired,
		})
	}
	return Answer{Text: sb.String(), Citations: citations}
}
