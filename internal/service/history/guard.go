package history

import (
	"context"
	"errors"

	"sessionhistory/internal/models"
	"sessionhistory/internal/storage"
)

// Guard resolves the caller and checks ownership of sessions and messages.
type Guard struct {
	store storage.Store
}

func NewGuard(store storage.Store) *Guard {
	return &Guard{store: store}
}

// ResolveCaller reads the identity placed in ctx by the authentication middleware.
func (g *Guard) ResolveCaller(ctx context.Context) (models.Caller, error) {
	caller, ok := models.CallerFromContext(ctx)
	if !ok || caller.UserID == "" {
		return models.Caller{}, ErrUnauthenticated
	}
	return caller, nil
}

// AuthorizeSessionRead loads the session only if caller owns it.
func (g *Guard) AuthorizeSessionRead(ctx context.Context, caller models.Caller, sessionID string) (*models.Session, error) {
	session, err := g.store.GetSessionForUser(ctx, sessionID, caller.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, &StorageError{Op: "load session", Err: err}
	}
	return session, nil
}

// AuthorizeMessageWrite loads the message and compares its session owner with caller.
func (g *Guard) AuthorizeMessageWrite(ctx context.Context, caller models.Caller, messageID string) (*models.Message, error) {
	owned, err := g.store.GetMessageWithOwner(ctx, messageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, &StorageError{Op: "load message", Err: err}
	}
	if owned.OwnerID == "" || owned.OwnerID != caller.UserID {
		return nil, ErrNotFoundOrForbidden
	}
	return owned.Message, nil
}
