package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/cropguard/internal/domain"
)

// FeedbackRepository handles feedback records.
type FeedbackRepository struct {
	store *Store
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(store *Store) *FeedbackRepository {
	return &FeedbackRepository{store: store}
}

// Create appends feedback for an existing prediction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fb: feedback to persist; ID and Timestamp are assigned by the store.
// Returns:
//   - error: wraps domain.ErrInvalidArgument for a rating outside [1,5],
//     domain.ErrNotFound when the prediction does not exist.
func (r *FeedbackRepository) Create(ctx context.Context, fb *domain.Feedback) error {
	if !domain.ValidRating(fb.Rating) {
		return fmt.Errorf("rating %d: %w", fb.Rating, domain.ErrInvalidArgument)
	}
	fb.ID = 0

	return r.store.insert(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			ok, err := predictionExists(tx, fb.PredictionID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("prediction %d: %w", fb.PredictionID, domain.ErrNotFound)
			}
			return tx.Omit("Prediction").Create(fb).Error
		})
	})
}
