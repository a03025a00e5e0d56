package domain

import "time"

// Prediction is one completed inference. Rows are append-only.
type Prediction struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp      time.Time `gorm:"autoCreateTime;index:idx_predictions_timestamp" json:"timestamp"`
	ModelType      ModelKind `gorm:"type:text;default:leaf;index:idx_predictions_model_type" json:"model_type"`
	PredictedClass string    `gorm:"type:text" json:"predicted_class"`
	Confidence     float64   `json:"confidence"`
	ClassIndex     int       `json:"class_index"`
	Filename       string    `gorm:"type:text" json:"filename"`
	UserIP         string    `gorm:"type:text" json:"user_ip"`
}

// TableName returns the database table name for Prediction.
func (Prediction) TableName() string {
	return "predictions"
}

// Feedback is a user's rating of exactly one Prediction. Rows are append-only.
type Feedback struct {
	ID           int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	PredictionID int64       `gorm:"not null;index:idx_feedback_prediction" json:"prediction_id"`
	Prediction   *Prediction `gorm:"foreignKey:PredictionID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
	Rating       int         `gorm:"not null;check:chk_feedback_rating,rating >= 1 AND rating <= 5" json:"rating"`
	IsCorrect    bool        `json:"is_correct"`
	Comment      string      `gorm:"type:text" json:"comment"`
	Timestamp    time.Time   `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string {
	return "feedback"
}

// MinRating and MaxRating bound Feedback.Rating, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is an accepted feedback rating.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
