package answer

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConversation replays scripted chunks and records prompts. It also
// tracks overlapping Stream calls to verify per-session serialization.
type fakeConversation struct {
	chunks []Chunk
	err    error
	delay  time.Duration

	mu      sync.Mutex
	prompts []string
	active  atomic.Int32
	overlap atomic.Bool
}

func (c *fakeConversation) Stream(_ context.Context, prompt string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		if c.active.Add(1) > 1 {
			c.overlap.Store(true)
		}
		defer c.active.Add(-1)

		c.mu.Lock()
		c.prompts = append(c.prompts, prompt)
		c.mu.Unlock()

		if c.delay > 0 {
			time.Sleep(c.delay)
		}
		for _, ch := range c.chunks {
			if !yield(ch, nil) {
				return
			}
		}
		if c.err != nil {
			yield(Chunk{}, c.err)
		}
	}
}

func (c *fakeConversation) promptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// fakeProvider hands out fakeConversations and serves scripted fallback
// completions.
type fakeProvider struct {
	convChunks     []Chunk
	convErr        error
	convStreamErr  error
	convDelay      time.Duration
	completeChunks []Chunk
	completeErr    error

	mu            sync.Mutex
	conversations []*fakeConversation
	completes     []string
}

func (p *fakeProvider) NewConversation(context.Context) (Conversation, error) {
	if p.convErr != nil {
		return nil, p.convErr
	}
	conv := &fakeConversation{chunks: p.convChunks, err: p.convStreamErr, delay: p.convDelay}
	p.mu.Lock()
	p.conversations = append(p.conversations, conv)
	p.mu.Unlock()
	return conv, nil
}

func (p *fakeProvider) Complete(_ context.Context, prompt string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		p.mu.Lock()
		p.completes = append(p.completes, prompt)
		p.mu.Unlock()

		if p.completeErr != nil {
			yield(Chunk{}, p.completeErr)
			return
		}
		for _, ch := range p.completeChunks {
			if !yield(ch, nil) {
				return
			}
		}
	}
}

func (p *fakeProvider) conversationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conversations)
}

func newTestEngine(t *testing.T, provider Provider, capacity int) *Engine {
	t.Helper()
	registry, err := NewRegistry(provider, capacity, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	engine, err := New(Config{Provider: provider, Registry: registry})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return engine
}
