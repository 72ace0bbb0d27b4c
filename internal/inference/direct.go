package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
)

// DirectEngine loads/serves the model in-process via google.golang.org/genai,
// mirroring the library-mode shape of the teacher's
// internal/embedding.GenAIEngine (internal/embedding/genai.go) but for text
// generation rather than embeddings. This stands in for
// vllm_mlx_engine.py's `_generate_direct` path: "loads the model in-process
// and generates token-by-token" (spec.md §4.7), minus MLX itself, which Go
// cannot load.
type DirectEngine struct {
	client *genai.Client
	model  string
	cache  *PromptCache
}

// NewDirectEngine builds a DirectEngine against apiKey/model.
func NewDirectEngine(ctx context.Context, apiKey, model string, cache *PromptCache) (*DirectEngine, error) {
	if model == "" {
		model = "qwen3-235b"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create direct inference client: %w", err)
	}
	return &DirectEngine{client: client, model: model, cache: cache}, nil
}

func (e *DirectEngine) Backend() Backend { return BackendDirect }

// Generate issues one unary generation. The prompt cache is consulted
// first (spec.md §4.7 "Prompt-KV cache"): a cache hit means the system
// prompt's KV state does not need to be recomputed by the backend, which
// we represent here as a hit counter plus a flag on the response — the
// actual KV reuse happens inside the backend process, not in this client.
func (e *DirectEngine) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	_, cacheHit := e.cache.Get(req.SystemPrompt)

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genaiFloat32(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("direct generate: %w", err)
	}
	if !cacheHit {
		e.cache.Put(req.SystemPrompt, []byte("warm"))
	}

	text := extractText(result)
	elapsed := time.Since(start)
	logging.For(logging.CategoryInference).Debug("direct generate",
		zap.Duration("elapsed", elapsed), zap.Bool("cache_hit", cacheHit))

	return &Response{Text: text, Backend: BackendDirect, CacheHit: cacheHit, Elapsed: elapsed}, nil
}

// GenerateStream yields the response in one shot followed by a done
// marker: it runs the unary Generate call and emits its whole text as a
// single chunk behind the same channel contract the server backend uses,
// so callers never branch on backend when consuming a stream.
func (e *DirectEngine) GenerateStream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 1)
	go func() {
		defer close(out)
		resp, err := e.Generate(ctx, req)
		if err != nil {
			out <- StreamChunk{Err: err, Done: true}
			return
		}
		select {
		case out <- StreamChunk{Text: resp.Text}:
		case <-ctx.Done():
			out <- StreamChunk{Err: ctx.Err(), Done: true}
			return
		}
		out <- StreamChunk{Done: true}
	}()
	return out, nil
}

func genaiFloat32(f float64) *float32 {
	v := float32(f)
	return &v
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range result.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out
}
