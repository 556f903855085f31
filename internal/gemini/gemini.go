// Package gemini binds the answer engine's provider contracts to the Gemini
// API via google.golang.org/genai.
//
// Grounded conversations are chat sessions with the Google Search tool
// enabled; the fallback path and the HTTP proxy use session-less calls.
// All outbound calls share one proactive rate limiter.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/farosearch/faro/internal/answer"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// emptyAnswerText substitutes for a well-formed response with no text,
// so the proxy endpoint never returns a blank answer.
const emptyAnswerText = "No answer was produced for this query."

// groundedInstruction steers grounded conversations. Every clause is a hard
// requirement: answers must come from live search, not model memory.
const groundedInstruction = `You are an AI search assistant.
Never answer from your internal knowledge. Always invoke the web search tool for every query.
If the search yields no useful results, state that you could not find the information.
Respond in Markdown. Never fabricate information.
Cite every factual claim inline using the search results you were given.`

// offlineInstruction steers the degraded single-turn fallback.
const offlineInstruction = `Live web search is currently unavailable.
Answer from your training data on a best-effort basis.
Disclose that the response is not grounded in live search results and may be outdated.`

// Config contains required parameters for Client.
type Config struct {
	APIKey string
	Model  string // empty = DefaultModel
	Logger *slog.Logger

	// Limiter throttles all provider calls (nil = default 10 rps, burst 30).
	Limiter *rate.Limiter
	// Retry configures backoff for the non-streaming Answer path
	// (zero value uses defaults).
	Retry RetryConfig
}

// Client talks to the Gemini API. It implements [answer.Provider].
type Client struct {
	genai   *genai.Client
	model   string
	logger  *slog.Logger
	limiter *rate.Limiter
	retry   RetryConfig
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	return &Client{
		genai:   client,
		model:   model,
		logger:  logger,
		limiter: limiter,
		retry:   retry,
	}, nil
}

// NewConversation creates a grounded multi-turn chat session. History is
// held by the chat object; each send appends a turn.
func (c *Client) NewConversation(ctx context.Context) (answer.Conversation, error) {
	chat, err := c.genai.Chats.Create(ctx, c.model, groundedConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating chat session: %w", err)
	}
	return &conversation{client: c, chat: chat}, nil
}

// Complete issues the degraded single-turn completion: no history, no
// grounding tool, offline-mode system instruction.
func (c *Client) Complete(ctx context.Context, prompt string) iter.Seq2[answer.Chunk, error] {
	return func(yield func(answer.Chunk, error) bool) {
		if err := c.limiter.Wait(ctx); err != nil {
			yield(answer.Chunk{}, fmt.Errorf("rate limiter: %w", err))
			return
		}
		cfg := &genai.GenerateContentConfig{
			SystemInstruction: systemContent(offlineInstruction),
		}
		for resp, err := range c.genai.Models.GenerateContentStream(ctx, c.model, genai.Text(prompt), cfg) {
			if err != nil {
				yield(answer.Chunk{}, fmt.Errorf("offline completion: %w", err))
				return
			}
			if !yield(toChunk(resp), nil) {
				return
			}
		}
	}
}

// ProxyAnswer is the result of the non-streaming, session-less Answer call.
type ProxyAnswer struct {
	Answer    string                    `json:"answer"`
	Grounding *genai.GroundingMetadata  `json:"groundingMetadata"`
}

// Answer performs a single grounded, non-streaming generation for the HTTP
// proxy endpoint. Unlike the answer engine, errors propagate to the caller;
// transient provider failures are retried with exponential backoff.
func (c *Client) Answer(ctx context.Context, query string) (*ProxyAnswer, error) {
	resp, err := doWithRetry(ctx, c.retry, c.logger, func() (*genai.GenerateContentResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.genai.Models.GenerateContent(ctx, c.model, genai.Text(query), groundedConfig())
	})
	if err != nil {
		return nil, fmt.Errorf("grounded generation: %w", err)
	}

	out := &ProxyAnswer{Answer: resp.Text()}
	if out.Answer == "" {
		out.Answer = emptyAnswerText
	}
	if len(resp.Candidates) > 0 {
		out.Grounding = resp.Candidates[0].GroundingMetadata
	}
	return out, nil
}

// conversation adapts *genai.Chat to answer.Conversation.
type conversation struct {
	client *Client
	chat   *genai.Chat
}

func (cv *conversation) Stream(ctx context.Context, prompt string) iter.Seq2[answer.Chunk, error] {
	return func(yield func(answer.Chunk, error) bool) {
		if err := cv.client.limiter.Wait(ctx); err != nil {
			yield(answer.Chunk{}, fmt.Errorf("rate limiter: %w", err))
			return
		}
		for resp, err := range cv.chat.SendMessageStream(ctx, genai.Part{Text: prompt}) {
			if err != nil {
				yield(answer.Chunk{}, fmt.Errorf("streaming response: %w", err))
				return
			}
			if !yield(toChunk(resp), nil) {
				return
			}
		}
	}
}

// groundedConfig enables the Google Search tool with the grounded system
// instruction.
func groundedConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		SystemInstruction: systemContent(groundedInstruction),
	}
}

func systemContent(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

// toChunk flattens one streamed response into the engine's chunk shape.
// Grounding metadata rides on the first candidate when present.
func toChunk(resp *genai.GenerateContentResponse) answer.Chunk {
	ch := answer.Chunk{Text: resp.Text()}
	if len(resp.Candidates) > 0 {
		ch.Grounding = resp.Candidates[0].GroundingMetadata
	}
	return ch
}

var _ answer.Provider = (*Client)(nil)
