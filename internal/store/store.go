// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/bridgetext/coach/internal/domain"
)

// Repository defines the narrow persistence contract the engine writes through.
// A session has at most one in-flight turn, so reads and writes are treated as
// atomic per session; no cross-session state is shared.
type Repository interface {
	// GetSession retrieves a session by user ID. Returns (nil, nil) when the
	// user has no session yet.
	GetSession(ctx context.Context, userID string) (*domain.Session, error)

	// PutSession creates or replaces a session record.
	PutSession(ctx context.Context, session *domain.Session) error

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, userID string) error

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
