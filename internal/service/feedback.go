package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/logger"
	"github.com/timmy/cropguard/internal/metrics"
)

// FeedbackStore persists feedback rows.
type FeedbackStore interface {
	Create(ctx context.Context, fb *domain.Feedback) error
}

// FeedbackRequest is a user's rating of a prediction.
type FeedbackRequest struct {
	PredictionID int64
	Rating       int
	IsCorrect    bool
	Comment      string
}

// FeedbackService records feedback on past predictions.
type FeedbackService struct {
	feedback FeedbackStore
	metrics  *metrics.Metrics
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(feedback FeedbackStore, m *metrics.Metrics) *FeedbackService {
	return &FeedbackService{feedback: feedback, metrics: m}
}

// Submit stores feedback. It returns an error wrapping domain.ErrInvalidArgument
// for a rating outside [1,5] and domain.ErrNotFound for an unknown prediction.
// Nothing is written in either case.
func (s *FeedbackService) Submit(ctx context.Context, req *FeedbackRequest) error {
	ctx = logger.SetPredictionID(ctx, req.PredictionID)

	if !domain.ValidRating(req.Rating) {
		s.metrics.RecordFeedback("invalid")
		return fmt.Errorf("rating %d: %w", req.Rating, domain.ErrInvalidArgument)
	}

	fb := &domain.Feedback{
		PredictionID: req.PredictionID,
		Rating:       req.Rating,
		IsCorrect:    req.IsCorrect,
		Comment:      req.Comment,
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.metrics.RecordFeedback("not_found")
		case errors.Is(err, domain.ErrInvalidArgument):
			s.metrics.RecordFeedback("invalid")
		default:
			s.metrics.RecordFeedback("error")
			logger.FromContext(ctx).WithError(err).Error("Failed to save feedback")
		}
		return err
	}

	s.metrics.RecordFeedback("accepted")
	logger.CtxInfo(ctx, "Feedback recorded: rating=%d correct=%t", fb.Rating, fb.IsCorrect)
	return nil
}
