package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/cropguard/internal/domain"
)

// PredictionRepository handles prediction records and the read-side history.
type PredictionRepository struct {
	store *Store
}

// NewPredictionRepository creates a new PredictionRepository.
func NewPredictionRepository(store *Store) *PredictionRepository {
	return &PredictionRepository{store: store}
}

// Create appends a prediction and fills in its id and timestamp.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - p: prediction to persist; ID and Timestamp are assigned by the store.
// Returns:
//   - error: non-nil if the insert fails.
func (r *PredictionRepository) Create(ctx context.Context, p *domain.Prediction) error {
	p.ID = 0
	return r.store.insert(ctx, func(tx *gorm.DB) error {
		if !r.store.schema.HasModelKind() {
			tx = tx.Omit("ModelType")
		}
		return tx.Create(p).Error
	})
}

// GetByID retrieves a prediction by id.
// Returns domain.ErrNotFound when no such prediction exists.
func (r *PredictionRepository) GetByID(ctx context.Context, id int64) (*domain.Prediction, error) {
	var p domain.Prediction
	if err := r.store.db.WithContext(ctx).Table(domain.Prediction{}.TableName()).
		Select(r.predictionColumns()).
		Where("id = ?", id).
		Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("prediction %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func predictionExists(db *gorm.DB, id int64) (bool, error) {
	var n int64
	if err := db.Model(&domain.Prediction{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// modelTypeExpr yields each row's model kind under the store's schema shape.
func (r *PredictionRepository) modelTypeExpr(alias string) string {
	if !r.store.schema.HasModelKind() {
		return fmt.Sprintf("'%s'", domain.LegacyModelKind)
	}
	return fmt.Sprintf("COALESCE(NULLIF(%s.model_type, ''), '%s')", alias, domain.LegacyModelKind)
}

func (r *PredictionRepository) predictionColumns() string {
	return "id, timestamp, " + r.modelTypeExpr("predictions") + " AS model_type, predicted_class, confidence, class_index, filename, user_ip"
}

// History lists predictions left-joined with their feedback, newest first.
// A prediction with several feedback rows appears once per feedback row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - q: page bounds and optional model kind filter.
// Returns:
//   - []domain.HistoryEntry: the page, possibly empty.
//   - error: non-nil if the query fails.
func (r *PredictionRepository) History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoryEntry, error) {
	if q.Limit <= 0 {
		q.Limit = domain.DefaultHistoryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	entries := make([]domain.HistoryEntry, 0)
	modelType := r.modelTypeExpr("p")

	query := r.store.db.WithContext(ctx).
		Table("predictions AS p").
		Select("p.id, p.timestamp, p.predicted_class, p.confidence, " + modelType + " AS model_type, f.rating, f.is_correct, f.comment").
		Joins("LEFT JOIN feedback AS f ON f.prediction_id = p.id")

	if q.ModelType != "" {
		if !r.store.schema.HasModelKind() {
			if q.ModelType != domain.LegacyModelKind {
				return entries, nil
			}
		} else {
			query = query.Where(modelType+" = ?", string(q.ModelType))
		}
	}

	if err := query.
		Order("p.timestamp DESC").
		Order("p.id DESC").
		Order("f.id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return entries, nil
}

// Stats returns the prediction count, distinct requester count and mean confidence.
func (r *PredictionRepository) Stats(ctx context.Context) (*domain.PredictionStats, error) {
	var row struct {
		Total   int64
		Users   int64
		AvgConf float64
	}
	if err := r.store.db.WithContext(ctx).
		Model(&domain.Prediction{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT user_ip) AS users, COALESCE(AVG(confidence), 0) AS avg_conf").
		Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate predictions: %w", err)
	}
	return &domain.PredictionStats{
		TotalPredictions:  row.Total,
		TotalUsers:        row.Users,
		AverageConfidence: row.AvgConf,
	}, nil
}
