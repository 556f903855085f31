package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToChunk(t *testing.T) {
	t.Parallel()

	t.Run("text and grounding are carried over", func(t *testing.T) {
		t.Parallel()
		md := &genai.GroundingMetadata{}
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content:           &genai.Content{Parts: []*genai.Part{{Text: "partial"}}},
				GroundingMetadata: md,
			}},
		}

		ch := toChunk(resp)
		assert.Equal(t, "partial", ch.Text)
		assert.Same(t, md, ch.Grounding)
	})

	t.Run("no candidates yields empty chunk", func(t *testing.T) {
		t.Parallel()
		ch := toChunk(&genai.GenerateContentResponse{})
		assert.Empty(t, ch.Text)
		assert.Nil(t, ch.Grounding)
	})
}

func TestGroundedConfig(t *testing.T) {
	t.Parallel()

	cfg := groundedConfig()
	require.Len(t, cfg.Tools, 1)
	assert.NotNil(t, cfg.Tools[0].GoogleSearch, "web search tool must be enabled")
	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, "Never answer from your internal knowledge")
}
