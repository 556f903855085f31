package answer

import (
	"google.golang.org/genai"
)

// Placeholder values substituted when grounding metadata omits a field.
const (
	placeholderTitle = "Source"
	placeholderURI   = "#"
)

// Source is a single web citation backing part of an answer.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// extractSources converts grounding metadata into sources, one per grounding
// chunk that references a web origin. Chunks without a web reference are
// skipped; missing titles and URIs get placeholders.
func extractSources(md *genai.GroundingMetadata) []Source {
	if md == nil {
		return nil
	}
	var sources []Source
	for _, gc := range md.GroundingChunks {
		if gc == nil || gc.Web == nil {
			continue
		}
		s := Source{Title: gc.Web.Title, URI: gc.Web.URI}
		if s.Title == "" {
			s.Title = placeholderTitle
		}
		if s.URI == "" {
			s.URI = placeholderURI
		}
		sources = append(sources, s)
	}
	return sources
}

// dedupeSources keeps the first occurrence of each distinct URI, preserving
// the relative order of first occurrences. The result is never nil.
func dedupeSources(sources []Source) []Source {
	out := make([]Source, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, dup := seen[s.URI]; dup {
			continue
		}
		seen[s.URI] = struct{}{}
		out = append(out, s)
	}
	return out
}
