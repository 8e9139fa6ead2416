package history

import (
	"time"

	"sessionhistory/internal/storage"
)

// Service answers history reads and message annotations for the authenticated caller.
type Service struct {
	store     storage.Store
	guard     *Guard
	paginator *Paginator
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		guard:     NewGuard(store),
		paginator: NewPaginator(store),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
