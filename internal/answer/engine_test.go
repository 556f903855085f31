package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestEngineGenerate_StreamingOrder(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{convChunks: []Chunk{
		{Text: "Hel"}, {Text: "lo"}, {Text: " world"},
	}}
	engine := newTestEngine(t, provider, 0)

	var got []string
	res := engine.Generate(context.Background(), "s1", "hi", func(text string) {
		got = append(got, text)
	})

	assert.Equal(t, []string{"Hel", "lo", " world"}, got)
	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, ModeGrounded, res.Mode)
	assert.Empty(t, res.Sources)
}

func TestEngineGenerate_CollectsAndDedupesSources(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{convChunks: []Chunk{
		{Text: "answer", Grounding: &genai.GroundingMetadata{
			GroundingChunks: []*genai.GroundingChunk{
				webChunk("A", "u1"),
				webChunk("B", "u2"),
			},
		}},
		{Grounding: &genai.GroundingMetadata{
			GroundingChunks: []*genai.GroundingChunk{
				webChunk("C", "u1"), // duplicate URI, first entry wins
			},
		}},
	}}
	engine := newTestEngine(t, provider, 0)

	res := engine.Generate(context.Background(), "s1", "hi", nil)

	require.Equal(t, ModeGrounded, res.Mode)
	assert.Equal(t, []Source{{Title: "A", URI: "u1"}, {Title: "B", URI: "u2"}}, res.Sources)
}

func TestEngineGenerate_SessionReuse(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{convChunks: []Chunk{{Text: "ok"}}}
	engine := newTestEngine(t, provider, 0)
	ctx := context.Background()

	engine.Generate(ctx, "shared", "first", nil)
	engine.Generate(ctx, "shared", "second", nil)
	engine.Generate(ctx, "other", "third", nil)

	require.Equal(t, 2, provider.conversationCount())
	assert.Equal(t, 2, provider.conversations[0].promptCount())
	assert.Equal(t, 1, provider.conversations[1].promptCount())
}

func TestEngineGenerate_FallbackOnPrimaryFailure(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		convStreamErr:  errors.New("provider unreachable"),
		completeChunks: []Chunk{{Text: "from training data"}},
	}
	engine := newTestEngine(t, provider, 0)

	var increments []string
	res := engine.Generate(context.Background(), "s1", "hi", func(text string) {
		increments = append(increments, text)
	})

	assert.Equal(t, ModeDegraded, res.Mode)
	assert.True(t, strings.HasPrefix(res.Text, DegradedNotice), "text should begin with the disclosure notice")
	assert.Contains(t, res.Text, "from training data")
	require.NotEmpty(t, increments)
	assert.True(t, strings.HasPrefix(increments[0], DegradedNotice))
	require.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
}

func TestEngineGenerate_FallbackOnSessionCreationFailure(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		convErr:        errors.New("no session for you"),
		completeChunks: []Chunk{{Text: "degraded"}},
	}
	engine := newTestEngine(t, provider, 0)

	res := engine.Generate(context.Background(), "s1", "hi", nil)

	assert.Equal(t, ModeDegraded, res.Mode)
	assert.True(t, strings.HasPrefix(res.Text, DegradedNotice))
}

func TestEngineGenerate_TerminalFailure(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		convStreamErr: errors.New("primary down"),
		completeErr:   errors.New("fallback down too"),
	}
	engine := newTestEngine(t, provider, 0)

	var increments []string
	res := engine.Generate(context.Background(), "s1", "hi", func(text string) {
		increments = append(increments, text)
	})

	assert.Equal(t, ModeFailed, res.Mode)
	assert.Equal(t, FailureNotice, res.Text)
	assert.Empty(t, res.Sources)
	assert.Contains(t, increments, FailureNotice)
}

func TestEngineGenerate_SerializesSameSession(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		convChunks: []Chunk{{Text: "ok"}},
		convDelay:  10 * time.Millisecond,
	}
	engine := newTestEngine(t, provider, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Generate(ctx, "shared", "hi", nil)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, provider.conversationCount())
	assert.False(t, provider.conversations[0].overlap.Load(),
		"concurrent Generate calls on one session ID must not interleave")
	assert.Equal(t, 8, provider.conversations[0].promptCount())
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	registry, err := NewRegistry(provider, 0, nil)
	require.NoError(t, err)

	_, err = New(Config{Registry: registry})
	assert.Error(t, err)

	_, err = New(Config{Provider: provider})
	assert.Error(t, err)
}
