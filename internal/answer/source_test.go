package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func webChunk(title, uri string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{Title: title, URI: uri}}
}

func TestExtractSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		md   *genai.GroundingMetadata
		want []Source
	}{
		{
			name: "nil metadata",
			md:   nil,
			want: nil,
		},
		{
			name: "web chunks become sources",
			md: &genai.GroundingMetadata{GroundingChunks: []*genai.GroundingChunk{
				webChunk("Example", "https://example.com"),
				webChunk("Other", "https://other.org"),
			}},
			want: []Source{
				{Title: "Example", URI: "https://example.com"},
				{Title: "Other", URI: "https://other.org"},
			},
		},
		{
			name: "chunks without web reference are skipped",
			md: &genai.GroundingMetadata{GroundingChunks: []*genai.GroundingChunk{
				{},
				nil,
				webChunk("Kept", "https://kept.dev"),
			}},
			want: []Source{{Title: "Kept", URI: "https://kept.dev"}},
		},
		{
			name: "missing fields get placeholders",
			md: &genai.GroundingMetadata{GroundingChunks: []*genai.GroundingChunk{
				webChunk("", ""),
			}},
			want: []Source{{Title: "Source", URI: "#"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, extractSources(tc.md))
		})
	}
}

func TestDedupeSources(t *testing.T) {
	t.Parallel()

	t.Run("first occurrence wins, order preserved", func(t *testing.T) {
		t.Parallel()
		in := []Source{
			{Title: "A", URI: "u1"},
			{Title: "B", URI: "u2"},
			{Title: "C", URI: "u1"},
		}
		got := dedupeSources(in)
		require.Len(t, got, 2)
		assert.Equal(t, []Source{{Title: "A", URI: "u1"}, {Title: "B", URI: "u2"}}, got)
	})

	t.Run("empty input yields empty non-nil slice", func(t *testing.T) {
		t.Parallel()
		got := dedupeSources(nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("no duplicates is a no-op", func(t *testing.T) {
		t.Parallel()
		in := []Source{{Title: "A", URI: "u1"}, {Title: "B", URI: "u2"}}
		assert.Equal(t, in, dedupeSources(in))
	})
}
