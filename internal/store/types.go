package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/farosearch/faro/internal/answer"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User is an account in the custom identity scheme. PasswordHash is the
// client-side SHA-256 hex digest; the server never sees the password.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	QueryCount   int       `json:"queryCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message is one entry of a user's query/answer history. Sources is stored
// as JSONB; WorkspaceID is nil for unfiled messages.
type Message struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	WorkspaceID *uuid.UUID      `json:"workspaceId,omitempty"`
	SessionID   string          `json:"sessionId"`
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	Sources     []answer.Source `json:"sources"`
	Mode        string          `json:"mode,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Workspace is a named collection grouping query history.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Change is one row-level change notification.
type Change struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	ID    uuid.UUID `json:"id"`
}
