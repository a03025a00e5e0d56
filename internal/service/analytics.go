package service

import (
	"context"
	"math"

	"github.com/timmy/cropguard/internal/domain"
)

// PredictionReader is the read side of the prediction store.
type PredictionReader interface {
	History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoryEntry, error)
	Stats(ctx context.Context) (*domain.PredictionStats, error)
}

// ContactCounter counts stored contact messages.
type ContactCounter interface {
	Count(ctx context.Context) (int64, error)
}

// AnalyticsConfig holds the static figures reported alongside live aggregates.
type AnalyticsConfig struct {
	Version         string
	ContactEmail    string
	ContactWhatsApp string
	// Accuracy maps model kind to its reported accuracy percentage.
	Accuracy map[string]float64
}

// Analytics is the aggregate report over all predictions.
type Analytics struct {
	TotalPredictions  int64              `json:"total_predictions"`
	TotalUsers        int64              `json:"total_users"`
	AverageConfidence float64            `json:"average_confidence"`
	SystemAccuracy    map[string]float64 `json:"system_accuracy"`
}

// SystemStats is the service-wide counters report.
type SystemStats struct {
	TotalPredictions int64  `json:"total_predictions"`
	TotalUsers       int64  `json:"total_users"`
	TotalContacts    int64  `json:"total_contacts"`
	Version          string `json:"version"`
	ContactEmail     string `json:"contact_email"`
	ContactWhatsApp  string `json:"contact_whatsapp"`
}

// AnalyticsService answers history and aggregate queries.
type AnalyticsService struct {
	predictions PredictionReader
	contacts    ContactCounter
	cfg         AnalyticsConfig
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(predictions PredictionReader, contacts ContactCounter, cfg AnalyticsConfig) *AnalyticsService {
	return &AnalyticsService{predictions: predictions, contacts: contacts, cfg: cfg}
}

// History returns a page of predictions with their feedback, newest first.
func (s *AnalyticsService) History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoryEntry, error) {
	return s.predictions.History(ctx, q)
}

// Analytics aggregates all predictions. Average confidence is rounded to 4 decimals.
func (s *AnalyticsService) Analytics(ctx context.Context) (*Analytics, error) {
	stats, err := s.predictions.Stats(ctx)
	if err != nil {
		return nil, err
	}

	accuracy := make(map[string]float64, len(s.cfg.Accuracy))
	for kind, v := range s.cfg.Accuracy {
		accuracy[kind+"_model"] = v
	}

	return &Analytics{
		TotalPredictions:  stats.TotalPredictions,
		TotalUsers:        stats.TotalUsers,
		AverageConfidence: math.Round(stats.AverageConfidence*1e4) / 1e4,
		SystemAccuracy:    accuracy,
	}, nil
}

// Stats reports prediction, requester and contact counts with static metadata.
func (s *AnalyticsService) Stats(ctx context.Context) (*SystemStats, error) {
	stats, err := s.predictions.Stats(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := s.contacts.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &SystemStats{
		TotalPredictions: stats.TotalPredictions,
		TotalUsers:       stats.TotalUsers,
		TotalContacts:    contacts,
		Version:          s.cfg.Version,
		ContactEmail:     s.cfg.ContactEmail,
		ContactWhatsApp:  s.cfg.ContactWhatsApp,
	}, nil
}
