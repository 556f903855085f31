package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/farosearch/faro/internal/log"
	"github.com/farosearch/faro/internal/store"
)

// Pagination and validation bounds.
const (
	MaxWorkspaceNameLength = 100
	DefaultListLimit       = 100
	MaxListLimit           = 1000
	MaxListOffset          = 100000
)

// WorkspaceHandler handles workspace and history endpoints.
type WorkspaceHandler struct {
	store  *store.Store
	logger log.Logger
}

// NewWorkspaceHandler creates a new workspace handler.
func NewWorkspaceHandler(st *store.Store, logger log.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{store: st, logger: logger}
}

// RegisterRoutes registers workspace and history routes on the given mux.
func (h *WorkspaceHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.store == nil {
		if h.logger != nil {
			h.logger.Warn("WorkspaceHandler: store is nil, workspace endpoints not registered")
		}
		return
	}
	mux.HandleFunc("GET /api/workspaces", h.list)
	mux.HandleFunc("POST /api/workspaces", h.create)
	mux.HandleFunc("PATCH /api/workspaces/{id}", h.rename)
	mux.HandleFunc("DELETE /api/workspaces/{id}", h.delete)
	mux.HandleFunc("GET /api/messages", h.messages)
	mux.HandleFunc("PATCH /api/messages/{id}", h.assignMessage)
}

// userIDParam extracts and parses the required userId query parameter.
func userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "userId query parameter is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "userId must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the {id} path segment as a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// list returns the user's workspaces.
func (h *WorkspaceHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	workspaces, err := h.store.Workspaces(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list workspaces", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list workspaces")
		return
	}
	if workspaces == nil {
		workspaces = []*store.Workspace{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": workspaces})
}

// CreateWorkspaceRequest is the request body for creating a workspace.
type CreateWorkspaceRequest struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
}

// create creates a new workspace.
func (h *WorkspaceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "missing_user_id", "userId is required")
		return
	}
	if req.Name == "" || len(req.Name) > MaxWorkspaceNameLength {
		writeError(w, http.StatusBadRequest, "invalid_name", "name is required (max 100 characters)")
		return
	}

	ws, err := h.store.CreateWorkspace(r.Context(), req.UserID, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "name_taken", "a workspace with that name already exists")
			return
		}
		h.logger.Error("failed to create workspace", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create workspace")
		return
	}

	writeJSON(w, http.StatusCreated, ws)
}

// RenameWorkspaceRequest is the request body for renaming a workspace.
type RenameWorkspaceRequest struct {
	Name string `json:"name"`
}

// rename updates a workspace's name.
func (h *WorkspaceHandler) rename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req RenameWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > MaxWorkspaceNameLength {
		writeError(w, http.StatusBadRequest, "invalid_name", "name is required (max 100 characters)")
		return
	}

	if err := h.store.RenameWorkspace(r.Context(), id, req.Name); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "workspace not found")
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "name_taken", "a workspace with that name already exists")
		default:
			h.logger.Error("failed to rename workspace", "error", err)
			writeError(w, http.StatusInternalServerError, "rename_failed", "failed to rename workspace")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// delete removes a workspace. Its messages are unfiled, not deleted.
func (h *WorkspaceHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteWorkspace(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workspace not found")
			return
		}
		h.logger.Error("failed to delete workspace", "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete workspace")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// messages returns the user's query history with pagination.
// Query parameters:
//   - userId: required, owner of the history
//   - workspaceId: optional, restricts to one workspace
//   - limit: maximum messages to return (default 100, max 1000)
//   - offset: messages to skip (default 0)
func (h *WorkspaceHandler) messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var workspaceID *uuid.UUID
	if raw := r.URL.Query().Get("workspaceId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_workspace_id", "workspaceId must be a UUID")
			return
		}
		workspaceID = &id
	}

	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)
	offset := parseIntParam(r, "offset", 0, 0, MaxListOffset)

	// #nosec G115 -- limit and offset are bounded by MaxListLimit and MaxListOffset
	messages, err := h.store.Messages(r.Context(), userID, workspaceID, int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("failed to list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list messages")
		return
	}
	if messages == nil {
		messages = []*store.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"total":    len(messages),
		"limit":    limit,
		"offset":   offset,
	})
}

// AssignMessageRequest is the request body for filing a message.
type AssignMessageRequest struct {
	WorkspaceID *uuid.UUID `json:"workspaceId"`
}

// assignMessage files a message under a workspace (or unfiles it with a
// null workspaceId).
func (h *WorkspaceHandler) assignMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req AssignMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if err := h.store.AssignMessageWorkspace(r.Context(), id, req.WorkspaceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "message not found")
			return
		}
		h.logger.Error("failed to assign message", "error", err)
		writeError(w, http.StatusInternalServerError, "assign_failed", "failed to assign message")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
