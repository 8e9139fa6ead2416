package history

import (
	"context"

	"sessionhistory/internal/models"
)

// Query selects a window of one session's messages.
type Query struct {
	SessionID string
	Offset    int
	Limit     int
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// Result is everything the read endpoint returns. Stats cover Messages only.
type Result struct {
	Session    *models.Session
	Messages   []*models.Message
	Stats      models.PageStats
	Pagination Pagination
}

// History returns one page of the caller's session together with page statistics.
func (s *Service) History(ctx context.Context, q Query) (*Result, error) {
	caller, err := s.guard.ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	session, err := s.guard.AuthorizeSessionRead(ctx, caller, q.SessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.paginator.Page(ctx, session.ID, q.Offset, q.Limit)
	if err != nil {
		return nil, err
	}
	return &Result{
		Session:  session,
		Messages: messages,
		Stats:    Aggregate(messages),
		Pagination: Pagination{
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: HasMore(len(messages), q.Limit),
		},
	}, nil
}
