package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/farosearch/faro/internal/answer"
	"github.com/farosearch/faro/internal/log"
)

// yieldChunks streams canned chunks, or a single error.
func yieldChunks(chunks []answer.Chunk, err error) iter.Seq2[answer.Chunk, error] {
	return func(yield func(answer.Chunk, error) bool) {
		if err != nil {
			yield(answer.Chunk{}, err)
			return
		}
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// scriptedConversation yields a fixed sequence of chunks, or an error.
type scriptedConversation struct {
	chunks []answer.Chunk
	err    error
}

func (c *scriptedConversation) Stream(_ context.Context, _ string) iter.Seq2[answer.Chunk, error] {
	return yieldChunks(c.chunks, c.err)
}

// scriptedProvider builds engines backed by canned chunks.
type scriptedProvider struct {
	convChunks     []answer.Chunk
	convErr        error
	completeChunks []answer.Chunk
	completeErr    error
}

func (p *scriptedProvider) NewConversation(_ context.Context) (answer.Conversation, error) {
	return &scriptedConversation{chunks: p.convChunks, err: p.convErr}, nil
}

func (p *scriptedProvider) Complete(_ context.Context, _ string) iter.Seq2[answer.Chunk, error] {
	return yieldChunks(p.completeChunks, p.completeErr)
}

func newTestEngine(t *testing.T, provider answer.Provider) *answer.Engine {
	t.Helper()
	logger := log.NewNop()
	registry, err := answer.NewRegistry(provider, 8, logger)
	require.NoError(t, err)
	engine, err := answer.New(answer.Config{Provider: provider, Registry: registry, Logger: logger})
	require.NoError(t, err)
	return engine
}

func postStream(t *testing.T, h *ChatHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.handleStream(w, req)
	return w
}

func TestChatHandlerInvalidInput(t *testing.T) {
	t.Parallel()

	h := NewChatHandler(newTestEngine(t, &scriptedProvider{}), nil, log.NewNop())

	t.Run("missing session ID", func(t *testing.T) {
		w := postStream(t, h, StreamRequest{Query: "test query"})

		assert.Equal(t, http.StatusOK, w.Code) // SSE always returns 200 first
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "MISSING_SESSION_ID")
		assert.Contains(t, w.Body.String(), "event: error")
	})

	t.Run("missing query", func(t *testing.T) {
		w := postStream(t, h, StreamRequest{SessionID: "sess-1"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_QUERY")
		assert.Contains(t, w.Body.String(), "event: error")
	})

	t.Run("oversized query", func(t *testing.T) {
		w := postStream(t, h, StreamRequest{
			SessionID: "sess-1",
			Query:     strings.Repeat("x", MaxQueryLength+1),
		})

		assert.Contains(t, w.Body.String(), "QUERY_TOO_LONG")
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader("not json"))
		w := httptest.NewRecorder()
		h.handleStream(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
		assert.Contains(t, w.Body.String(), "event: error")
	})
}

func TestChatHandlerStream(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		convChunks: []answer.Chunk{
			{Text: "Hello, "},
			{Text: "world.", Grounding: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{Title: "Example", URI: "https://example.com"}},
				},
			}},
		},
	}
	h := NewChatHandler(newTestEngine(t, provider), nil, log.NewNop())

	w := postStream(t, h, StreamRequest{Query: "greet", SessionID: "sess-1"})
	body := w.Body.String()

	assert.Contains(t, body, "event: chunk")
	assert.Contains(t, body, `"Hello, "`)
	assert.Contains(t, body, "event: sources")
	assert.Contains(t, body, "https://example.com")
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"mode":"grounded"`)
	assert.Contains(t, body, "Hello, world.")
	assert.NotContains(t, body, "event: error")
}

func TestChatHandlerDegradedStream(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{
		convErr:        errors.New("quota exhausted"),
		completeChunks: []answer.Chunk{{Text: "Offline answer."}},
	}
	h := NewChatHandler(newTestEngine(t, provider), nil, log.NewNop())

	w := postStream(t, h, StreamRequest{Query: "anything", SessionID: "sess-1"})
	body := w.Body.String()

	assert.Contains(t, body, `"mode":"degraded"`)
	assert.Contains(t, body, "Offline answer.")
	// Degradation is reported in-band, never as a stream error.
	assert.NotContains(t, body, "event: error")
}

func TestChatHandlerSSEFormat(t *testing.T) {
	t.Parallel()

	h := NewChatHandler(newTestEngine(t, &scriptedProvider{}), nil, log.NewNop())
	w := postStream(t, h, StreamRequest{SessionID: "test"})

	// Verify SSE format: "event: <type>\ndata: <json>\n\n"
	lines := strings.Split(w.Body.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	var foundEvent, foundData bool
	for _, line := range lines {
		if strings.HasPrefix(line, "event: error") {
			foundEvent = true
		}
		if strings.HasPrefix(line, "data: ") {
			foundData = true
			jsonData := strings.TrimPrefix(line, "data: ")
			var parsed map[string]any
			err := json.Unmarshal([]byte(jsonData), &parsed)
			assert.NoError(t, err, "SSE data should be valid JSON")
			assert.Contains(t, parsed, "code")
			assert.Contains(t, parsed, "message")
		}
	}

	assert.True(t, foundEvent, "should have 'event: error' line")
	assert.True(t, foundData, "should have 'data: ' line")
}

func TestChatHandlerRegisterRoutes(t *testing.T) {
	t.Parallel()

	t.Run("nil engine does not register routes", func(t *testing.T) {
		t.Parallel()

		h := NewChatHandler(nil, nil, log.NewNop())
		mux := http.NewServeMux()
		h.RegisterRoutes(mux)

		req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
