package session

import (
	"context"

	"github.com/mohammad-safakhou/newsrag/models"
)

// Store is an append-only, TTL-bound log of chat turns keyed by session ID.
type Store interface {
	// Append adds turn to the end of the session's log and refreshes the
	// session TTL. The session is created implicitly on first append.
	Append(ctx context.Context, sessionID string, turn models.ChatTurn) error
	// Read returns the session's turns oldest first. Unknown or expired
	// sessions yield an empty slice, not an error.
	Read(ctx context.Context, sessionID string) ([]models.ChatTurn, error)
	// Clear deletes the session. Returns true if a session existed.
	Clear(ctx context.Context, sessionID string) (bool, error)
}
