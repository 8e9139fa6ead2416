package history

import (
	"context"

	"sessionhistory/internal/models"
	"sessionhistory/internal/storage"
)

// Paginator reads fixed windows of a session's messages in message order.
type Paginator struct {
	store storage.Store
}

func NewPaginator(store storage.Store) *Paginator {
	return &Paginator{store: store}
}

// Page returns at most limit messages starting at the zero-based offset.
// offset and limit are expected to be validated already.
func (p *Paginator) Page(ctx context.Context, sessionID string, offset, limit int) ([]*models.Message, error) {
	messages, err := p.store.ListMessages(ctx, sessionID, offset, limit)
	if err != nil {
		return nil, &StorageError{Op: "list messages", Err: err}
	}
	return messages, nil
}

// HasMore guesses whether another page exists. A full page may still be the
// last one; no total count is taken.
func HasMore(returned, limit int) bool {
	return limit > 0 && returned == limit
}
