package storage

import (
	"context"
	"errors"
	"time"

	"sessionhistory/internal/models"
)

// ErrNotFound is returned when a filtered lookup matches no row.
var ErrNotFound = errors.New("record not found")

// OwnedMessage is a message joined with the owner of its parent session.
type OwnedMessage struct {
	Message *models.Message
	OwnerID string
}

// Store is the storage collaborator used by the history services. Each
// method is a single round trip; none of them opens a transaction.
type Store interface {
	// GetSessionForUser loads a session filtered by id and owner.
	GetSessionForUser(ctx context.Context, sessionID, userID string) (*models.Session, error)
	// ListMessages returns at most limit messages ordered by message_order, skipping offset.
	ListMessages(ctx context.Context, sessionID string, offset, limit int) ([]*models.Message, error)
	// GetMessageWithOwner loads a message and its session's user_id in one joined read.
	GetMessageWithOwner(ctx context.Context, messageID string) (*OwnedMessage, error)
	// AnnotateMessage writes the supplied annotation fields and updated_at.
	AnnotateMessage(ctx context.Context, messageID string, a models.Annotation, now time.Time) error
	Ping(ctx context.Context) error
	Close() error
}
