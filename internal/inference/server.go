package inference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
)

// ServerEngine talks to a local OpenAI-compatible HTTP endpoint (the
// vLLM-MLX server), using continuous batching on the server side (spec.md
// §4.7). Grounded on the pack's `lh0x0-tax-ai-tools` booking service
// (other_examples/19f11cfa_lh0x0-tax-ai-tools__internal-booking-skr03.go.go),
// which drives github.com/sashabaranov/go-openai the same way: a plain
// chat-completion request/response round trip, no streaming SDK quirks.
type ServerEngine struct {
	client      *openai.Client
	model       string
	baseURL     string
	cache       *PromptCache
	chatTimeout time.Duration
}

// NewServerEngine builds a ServerEngine pointed at baseURL (the vLLM-MLX
// server's OpenAI-compatible API root, e.g. http://127.0.0.1:8089/v1).
func NewServerEngine(baseURL, apiKey, model string, cache *PromptCache, chatTimeout time.Duration) *ServerEngine {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if chatTimeout <= 0 {
		chatTimeout = 120 * time.Second
	}
	// Long-lived connection to a single local endpoint: one transport,
	// generous idle reuse, h2 negotiated when the server offers it.
	transport := &http.Transport{MaxIdleConns: 8, IdleConnTimeout: 90 * time.Second}
	_ = http2.ConfigureTransport(transport)
	cfg.HTTPClient = &http.Client{Transport: transport, Timeout: chatTimeout}
	return &ServerEngine{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		baseURL:     baseURL,
		cache:       cache,
		chatTimeout: chatTimeout,
	}
}

func (e *ServerEngine) Backend() Backend { return BackendServer }

// Healthy probes the server's /health endpoint with a 2s timeout (spec.md
// §5 "Every HTTP call has a timeout (health 2 s...)"). This is also the
// signal the `auto` selector uses to prefer the server over the direct
// backend.
func (e *ServerEngine) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (e *ServerEngine) messages(req Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	return msgs
}

// Generate issues one chat-completion call against the server with a
// 120s timeout, cancelled (not retried) on overrun per spec.md §5/§7.
func (e *ServerEngine) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.chatTimeout)
	defer cancel()

	start := time.Now()
	_, cacheHit := e.cache.Get(req.SystemPrompt)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Messages:    e.messages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("server generate timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("server generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("server generate: no choices returned")
	}
	if !cacheHit {
		e.cache.Put(req.SystemPrompt, []byte("warm"))
	}

	elapsed := time.Since(start)
	logging.For(logging.CategoryInference).Debug("server generate",
		zap.Duration("elapsed", elapsed), zap.Bool("cache_hit", cacheHit), zap.Int("tokens", resp.Usage.TotalTokens))

	return &Response{
		Text:       resp.Choices[0].Message.Content,
		Backend:    BackendServer,
		CacheHit:   cacheHit,
		TokensUsed: resp.Usage.TotalTokens,
		Elapsed:    elapsed,
	}, nil
}

// GenerateStream uses the server's token-streaming endpoint, yielding one
// StreamChunk per delta and a final Done chunk — the continuous-batching
// counterpart to vllm_mlx_engine.py's `_generate_vllm` async generator.
func (e *ServerEngine) GenerateStream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, e.chatTimeout)

	stream, err := e.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Messages:    e.messages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("server stream: %w", err)
	}

	out := make(chan StreamChunk, 8)
	go func() {
		defer cancel()
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				out <- StreamChunk{Done: true}
				return
			}
			if err != nil {
				out <- StreamChunk{Err: err, Done: true}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			select {
			case out <- StreamChunk{Text: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				out <- StreamChunk{Err: ctx.Err(), Done: true}
				return
			}
		}
	}()
	return out, nil
}
