package api

import (
	"encoding/json"
	"net/http"

	"github.com/farosearch/faro/internal/gemini"
	"github.com/farosearch/faro/internal/log"
)

// AskHandler handles the one-shot answer proxy endpoint.
//
// Endpoint:
//   - POST /api/ask - synchronous answer (JSON request/response)
//
// Unlike the streaming endpoint, this path has no fallback: a provider
// failure is returned to the caller as HTTP 500.
type AskHandler struct {
	proxy  *gemini.Client
	logger log.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(proxy *gemini.Client, logger log.Logger) *AskHandler {
	return &AskHandler{proxy: proxy, logger: logger}
}

// RegisterRoutes registers ask routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.proxy != nil {
		mux.HandleFunc("POST /api/ask", h.ask)
	} else if h.logger != nil {
		h.logger.Warn("AskHandler: proxy is nil, ask endpoint not registered")
	}
}

// AskRequest is the request body for the ask endpoint.
type AskRequest struct {
	Query string `json:"query"`
}

// ask returns a complete grounded answer in one response.
func (h *AskHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	if len(req.Query) > MaxQueryLength {
		writeError(w, http.StatusBadRequest, "query_too_long", "query exceeds maximum length")
		return
	}

	result, err := h.proxy.Answer(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, "generation_failed", "failed to generate answer")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
