package answer

import (
	"context"
	"iter"

	"google.golang.org/genai"
)

// Chunk is one unit of an incremental model response. Either field may be
// empty; grounding metadata typically arrives on the final chunks.
type Chunk struct {
	Text      string
	Grounding *genai.GroundingMetadata
}

// Conversation is a multi-turn conversational context held by the provider.
// Stream sends prompt as a new turn and yields response chunks lazily; the
// sequence is finite and must not be iterated twice. Sending mutates the
// conversation's history as a side effect.
type Conversation interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[Chunk, error]
}

// Provider abstracts the generative-model backend.
//
// NewConversation creates a grounded (web-search enabled) multi-turn
// conversation. Complete issues a degraded single-turn completion with no
// history and no grounding; it is the fallback path's transport.
type Provider interface {
	NewConversation(ctx context.Context) (Conversation, error)
	Complete(ctx context.Context, prompt string) iter.Seq2[Chunk, error]
}
