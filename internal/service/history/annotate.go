package history

import (
	"context"
	"errors"
	"fmt"

	"sessionhistory/internal/models"
	"sessionhistory/internal/storage"
)

// AnnotationRequest is a partial update of one message's user feedback.
type AnnotationRequest struct {
	MessageID  string
	Annotation models.Annotation
}

// Rate writes the supplied annotation fields to a message the caller owns.
// Session counters are left untouched.
func (s *Service) Rate(ctx context.Context, req AnnotationRequest) error {
	caller, err := s.guard.ResolveCaller(ctx)
	if err != nil {
		return err
	}
	if err := validateAnnotation(req.Annotation); err != nil {
		return err
	}
	msg, err := s.guard.AuthorizeMessageWrite(ctx, caller, req.MessageID)
	if err != nil {
		return err
	}
	if err := s.store.AnnotateMessage(ctx, msg.ID, req.Annotation, s.now().UTC()); err != nil {
		// deleted between the ownership read and the write
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFoundOrForbidden
		}
		return &StorageError{Op: "annotate message", Err: err}
	}
	return nil
}

func validateAnnotation(a models.Annotation) error {
	if a.Empty() {
		return NewValidationError("body", "at least one of userRating or userFoundHelpful is required")
	}
	if rating, ok := a.UserRating.Get(); ok && (rating < models.MinRating || rating > models.MaxRating) {
		return NewValidationError("userRating", fmt.Sprintf("must be between %d and %d", models.MinRating, models.MaxRating))
	}
	return nil
}
