package domain

import "time"

// HistoryEntry is one row of the prediction history: a prediction joined
// with at most one of its feedback rows. Feedback fields are nil when the
// prediction has no feedback.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	PredictedClass string    `json:"predicted_class"`
	Confidence     float64   `json:"confidence"`
	ModelType      ModelKind `json:"model_type"`
	Rating         *int      `json:"rating"`
	IsCorrect      *bool     `json:"is_correct"`
	Comment        *string   `json:"comment"`
}

// HistoryQuery selects a page of history, optionally restricted to one model kind.
type HistoryQuery struct {
	Limit     int
	Offset    int
	ModelType ModelKind
}

// DefaultHistoryLimit is the page size used when none is requested.
const DefaultHistoryLimit = 50

// PredictionStats aggregates the predictions table.
type PredictionStats struct {
	TotalPredictions  int64
	TotalUsers        int64
	AverageConfidence float64
}
