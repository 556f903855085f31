package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farosearch/faro/internal/answer"
)

// Store manages user, message, and workspace persistence.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store on the given connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// CreateUser registers a new account. passwordHash is the client-computed
// SHA-256 hex digest. Returns ErrDuplicate if the username is taken.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	u := &User{Username: username, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, query_count, created_at`,
		username, passwordHash,
	).Scan(&u.ID, &u.QueryCount, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", mapError(err))
	}
	s.logger.Debug("created user", "user_id", u.ID, "username", username)
	return u, nil
}

// UserByUsername fetches an account by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{Username: username}
	err := s.pool.QueryRow(ctx,
		`SELECT id, password_hash, query_count, created_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.PasswordHash, &u.QueryCount, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching user %q: %w", username, mapError(err))
	}
	return u, nil
}

// IncrementQueryCount bumps the user's display counter and returns the new
// value. This is a display counter only, not quota enforcement.
func (s *Store) IncrementQueryCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET query_count = query_count + 1
		 WHERE id = $1
		 RETURNING query_count`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing query count: %w", mapError(err))
	}
	return count, nil
}

// RecordMessage appends one history entry. The message's ID and CreatedAt
// are filled in from the database.
func (s *Store) RecordMessage(ctx context.Context, msg *Message) error {
	sources := msg.Sources
	if sources == nil {
		sources = []answer.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshaling sources: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (user_id, workspace_id, session_id, role, content, sources, mode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		msg.UserID, msg.WorkspaceID, msg.SessionID, msg.Role, msg.Content, sourcesJSON, msg.Mode,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording message: %w", mapError(err))
	}
	return nil
}

// Messages lists a user's history, newest first. If workspaceID is non-nil,
// only messages filed under that workspace are returned.
func (s *Store) Messages(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID, limit, offset int32) ([]*Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, workspace_id, session_id, role, content, sources, mode, created_at
		 FROM messages
		 WHERE user_id = $1 AND ($2::uuid IS NULL OR workspace_id = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		userID, workspaceID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		var sourcesJSON []byte
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.WorkspaceID, &msg.SessionID,
			&msg.Role, &msg.Content, &sourcesJSON, &msg.Mode, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal(sourcesJSON, &msg.Sources); err != nil {
			s.logger.Warn("skipping message with malformed sources",
				"message_id", msg.ID, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return messages, nil
}

// AssignMessageWorkspace files a message under a workspace, or unfiles it
// when workspaceID is nil.
func (s *Store) AssignMessageWorkspace(ctx context.Context, messageID uuid.UUID, workspaceID *uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET workspace_id = $2 WHERE id = $1`,
		messageID, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("assigning message to workspace: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assigning message %s: %w", messageID, ErrNotFound)
	}
	return nil
}

// CreateWorkspace creates a named collection for the user. Returns
// ErrDuplicate if the user already has a workspace with that name.
func (s *Store) CreateWorkspace(ctx context.Context, userID uuid.UUID, name string) (*Workspace, error) {
	ws := &Workspace{UserID: userID, Name: name}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO workspaces (user_id, name)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		userID, name,
	).Scan(&ws.ID, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", mapError(err))
	}
	s.logger.Debug("created workspace", "workspace_id", ws.ID, "name", name)
	return ws, nil
}

// Workspaces lists the user's workspaces, most recently updated first.
func (s *Store) Workspaces(ctx context.Context, userID uuid.UUID) ([]*Workspace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM workspaces WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		ws := &Workspace{}
		if err := rows.Scan(&ws.ID, &ws.UserID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return workspaces, nil
}

// RenameWorkspace updates a workspace's name.
func (s *Store) RenameWorkspace(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE workspaces SET name = $2, updated_at = now() WHERE id = $1`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("renaming workspace: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("renaming workspace %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteWorkspace removes a workspace. Messages filed under it are unfiled,
// not deleted (ON DELETE SET NULL).
func (s *Store) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting workspace %s: %w", id, ErrNotFound)
	}
	return nil
}
