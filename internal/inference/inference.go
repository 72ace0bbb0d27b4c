// Package inference implements the pluggable LLM backend (spec.md §4.7):
// a direct in-process client and an HTTP server client behind one
// interface, a prompt-KV cache, and LoRA hot-loading. Backend selection is
// `auto`: probe the server's /health endpoint, fall back to direct.
//
// Ported from original_source/src/nyx_light/silicon/vllm_mlx_engine.py's
// VLLMMLXEngine/PromptCache, adapted to Go's inability to load MLX weights
// in-process: the Direct backend becomes an in-process
// google.golang.org/genai client (library-mode inference, still no HTTP
// round-trip to a separate process) and the Server backend becomes
// sashabaranov/go-openai against the local vLLM-MLX OpenAI-compatible
// endpoint, per SPEC_FULL.md's DOMAIN STACK table.
package inference

import (
	"context"
	"time"
)

// Backend names which concrete client served a generation.
type Backend string

const (
	BackendDirect Backend = "direct"
	BackendServer Backend = "server"
)

// Request is one generation request (spec.md §4.7 generate(...) params).
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Response is a complete, non-streaming generation result.
type Response struct {
	Text       string
	Backend    Backend
	CacheHit   bool
	TokensUsed int
	Elapsed    time.Duration
}

// StreamChunk is one segment yielded by GenerateStream; Done is true on the
// final chunk, which carries no further Text (spec.md design notes: "a
// cooperative generate_stream(...) yielding token segments plus a final
// 'done' marker").
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// Engine is the fixed interface every backend implements (spec.md §4.7).
// Cancellation is via ctx, matching design note "Cancellation is explicit,
// not by exception."
type Engine interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	GenerateStream(ctx context.Context, req Request) (<-chan StreamChunk, error)
	Backend() Backend
}

// HealthProber reports whether the server backend is reachable, used by
// the `auto` selector.
type HealthProber interface {
	Healthy(ctx context.Context) bool
}
