package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/farosearch/faro/internal/log"
	"github.com/farosearch/faro/internal/store"
)

// MaxUsernameLength bounds accepted usernames.
const MaxUsernameLength = 64

// passwordHashPattern matches a SHA-256 hex digest. Clients hash the
// password before sending it; the server only ever stores and compares
// digests.
var passwordHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// AuthHandler handles account endpoints.
type AuthHandler struct {
	store  *store.Store
	logger log.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(st *store.Store, logger log.Logger) *AuthHandler {
	return &AuthHandler{store: st, logger: logger}
}

// RegisterRoutes registers auth routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.store == nil {
		if h.logger != nil {
			h.logger.Warn("AuthHandler: store is nil, auth endpoints not registered")
		}
		return
	}
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
}

// AuthRequest is the request body for register and login.
type AuthRequest struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request) (*AuthRequest, bool) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return nil, false
	}
	if req.Username == "" || len(req.Username) > MaxUsernameLength {
		writeError(w, http.StatusBadRequest, "invalid_username", "username is required (max 64 characters)")
		return nil, false
	}
	if !passwordHashPattern.MatchString(req.PasswordHash) {
		writeError(w, http.StatusBadRequest, "invalid_password_hash", "passwordHash must be a SHA-256 hex digest")
		return nil, false
	}
	return &req, true
}

// register creates a new account.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Username, req.PasswordHash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "username_taken", "username is already taken")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration_failed", "failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// login checks credentials by digest comparison.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}

	user, err := h.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
			return
		}
		h.logger.Error("failed to fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "login_failed", "failed to log in")
		return
	}

	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(req.PasswordHash)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
