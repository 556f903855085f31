package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/farosearch/faro/internal/answer"
	"github.com/farosearch/faro/internal/log"
	"github.com/farosearch/faro/internal/store"
)

// MaxQueryLength bounds the accepted query size.
const MaxQueryLength = 10000

// ChatHandler handles the streaming answer endpoint.
//
// Endpoint:
//   - POST /api/chat/stream - streaming answer (SSE - Server-Sent Events)
//
// The handler wraps the answer engine: text increments stream as they
// arrive, citations follow once the answer is complete. Provider failures
// never surface as stream errors; the engine degrades instead and the
// outcome is reported in the done event's mode field.
type ChatHandler struct {
	engine *answer.Engine
	store  *store.Store
	logger log.Logger
}

// NewChatHandler creates a new chat handler. store may be nil, in which case
// history recording is skipped.
func NewChatHandler(engine *answer.Engine, st *store.Store, logger log.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, store: st, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.engine != nil {
		mux.HandleFunc("POST /api/chat/stream", h.handleStream)
	} else if h.logger != nil {
		h.logger.Warn("ChatHandler: engine is nil, chat endpoint not registered")
	}
}

// StreamRequest is the request body for the streaming endpoint.
type StreamRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`

	// UserID is optional; when present the exchange is recorded as history
	// and the user's query counter is bumped.
	UserID *uuid.UUID `json:"userId,omitempty"`
}

// SSEChunkData is the data for "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSESourcesData is the data for "sources" events.
type SSESourcesData struct {
	Sources []answer.Source `json:"sources"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	Response  string      `json:"response"`
	SessionID string      `json:"sessionId"`
	Mode      answer.Mode `json:"mode"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleStream handles the SSE streaming endpoint.
//
// Request body: {"query": "...", "sessionId": "...", "userId": "..."}
// Response: Server-Sent Events stream
//
// Event types:
//   - chunk:   partial text {"text": "..."}
//   - sources: deduped citations {"sources": [...]}
//   - done:    final answer {"response": "...", "sessionId": "...", "mode": "..."}
//   - error:   pre-stream validation failure {"code": "...", "message": "..."}
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		h.writeSSEError(w, flusher, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	if req.Query == "" {
		h.writeSSEError(w, flusher, "MISSING_QUERY", "query is required")
		return
	}
	if len(req.Query) > MaxQueryLength {
		h.writeSSEError(w, flusher, "QUERY_TOO_LONG",
			fmt.Sprintf("query too long (max %d characters)", MaxQueryLength))
		return
	}

	ctx := r.Context()
	h.logger.Info("SSE stream started", "sessionId", req.SessionID)

	h.recordQuestion(r, &req)

	result := h.engine.Generate(ctx, req.SessionID, req.Query, func(text string) {
		h.writeSSEChunk(w, flusher, text)
	})

	// Client gone, nothing left to write.
	if ctx.Err() != nil {
		h.logger.Info("client disconnected", "sessionId", req.SessionID)
		return
	}

	h.writeSSESources(w, flusher, result.Sources)
	h.writeSSEDone(w, flusher, result.Text, req.SessionID, result.Mode)

	h.recordAnswer(r, &req, result)

	h.logger.Info("SSE stream completed",
		"sessionId", req.SessionID,
		"mode", result.Mode,
		"responseLen", len(result.Text))
}

// recordQuestion persists the user's query and bumps the query counter.
// Recording is best-effort; failures never interrupt the stream.
func (h *ChatHandler) recordQuestion(r *http.Request, req *StreamRequest) {
	if h.store == nil || req.UserID == nil {
		return
	}
	ctx := r.Context()
	msg := &store.Message{
		UserID:    *req.UserID,
		SessionID: req.SessionID,
		Role:      store.RoleUser,
		Content:   req.Query,
	}
	if err := h.store.RecordMessage(ctx, msg); err != nil {
		h.logger.Warn("failed to record question", "error", err, "sessionId", req.SessionID)
	}
	if _, err := h.store.IncrementQueryCount(ctx, *req.UserID); err != nil {
		h.logger.Warn("failed to bump query counter", "error", err, "userId", *req.UserID)
	}
}

// recordAnswer persists the generated answer. Best-effort, like recordQuestion.
func (h *ChatHandler) recordAnswer(r *http.Request, req *StreamRequest, result *answer.Result) {
	if h.store == nil || req.UserID == nil {
		return
	}
	msg := &store.Message{
		UserID:    *req.UserID,
		SessionID: req.SessionID,
		Role:      store.RoleAssistant,
		Content:   result.Text,
		Sources:   result.Sources,
		Mode:      string(result.Mode),
	}
	if err := h.store.RecordMessage(r.Context(), msg); err != nil {
		h.logger.Warn("failed to record answer", "error", err, "sessionId", req.SessionID)
	}
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSESources writes a sources event to the SSE stream.
func (h *ChatHandler) writeSSESources(w http.ResponseWriter, flusher http.Flusher, sources []answer.Source) {
	data, _ := json.Marshal(SSESourcesData{Sources: sources})
	fmt.Fprintf(w, "event: sources\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, response, sessionID string, mode answer.Mode) {
	data, _ := json.Marshal(SSEDoneData{Response: response, SessionID: sessionID, Mode: mode})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
