package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/timmy/cropguard/internal/domain"
)

// ContactRepository handles contact form submissions.
type ContactRepository struct {
	store *Store
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(store *Store) *ContactRepository {
	return &ContactRepository{store: store}
}

// Create appends a contact message.
func (r *ContactRepository) Create(ctx context.Context, msg *domain.ContactMessage) error {
	msg.ID = 0
	return r.store.insert(ctx, func(db *gorm.DB) error {
		return db.Create(msg).Error
	})
}

// Count returns the number of stored contact messages.
func (r *ContactRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.db.WithContext(ctx).Model(&domain.ContactMessage{}).Count(&n).Error
	return n, err
}
