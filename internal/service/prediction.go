package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/timmy/cropguard/internal/classifier"
	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/knowledge"
	"github.com/timmy/cropguard/internal/logger"
	"github.com/timmy/cropguard/internal/metrics"
	"github.com/timmy/cropguard/internal/staging"
	"github.com/timmy/cropguard/internal/storage"
)

// PredictionStore persists completed predictions.
type PredictionStore interface {
	Create(ctx context.Context, p *domain.Prediction) error
}

// PredictRequest is one uploaded image to classify.
type PredictRequest struct {
	// Image is nil when the request carried no image part.
	Image    io.Reader
	Filename string

	ModelType    string
	HasModelType bool

	ClientIP string
}

// PredictionResult is the outcome returned to the caller.
// PredictionID is nil when the prediction could not be persisted.
type PredictionResult struct {
	PredictionID   *int64             `json:"prediction_id"`
	ModelType      domain.ModelKind   `json:"model_type"`
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	ClassIndex     int                `json:"class_index"`
	Timestamp      time.Time          `json:"timestamp"`
	DiseaseInfo    knowledge.Advisory `json:"disease_info"`
}

// PredictionService runs the prediction pipeline: validate, stage, preprocess,
// infer, resolve, persist, release.
type PredictionService struct {
	registry    *classifier.Registry
	staging     *staging.Area
	knowledge   *knowledge.Resolver
	predictions PredictionStore
	archive     storage.Archive
	metrics     *metrics.Metrics
}

// NewPredictionService creates a new prediction service.
// Parameters:
//   - registry: loaded classifiers.
//   - area: scratch area for uploads.
//   - resolver: advisory lookup.
//   - predictions: prediction store.
//   - archive: optional upload archive, may be nil.
//   - m: optional metrics, may be nil.
//
// Returns:
//   - *PredictionService: initialized service.
func NewPredictionService(
	registry *classifier.Registry,
	area *staging.Area,
	resolver *knowledge.Resolver,
	predictions PredictionStore,
	archive storage.Archive,
	m *metrics.Metrics,
) *PredictionService {
	return &PredictionService{
		registry:    registry,
		staging:     area,
		knowledge:   resolver,
		predictions: predictions,
		archive:     archive,
		metrics:     m,
	}
}

// Predict classifies one upload. Validation and preprocessing failures are
// returned as *ClientError; any other error is a server fault. The staged copy
// of the upload is removed before Predict returns, whatever the outcome.
func (s *PredictionService) Predict(ctx context.Context, req *PredictRequest) (*PredictionResult, error) {
	start := time.Now()

	kind, err := s.validate(req)
	if err != nil {
		s.metrics.RecordPrediction(req.ModelType, metrics.OutcomeClientError)
		return nil, err
	}
	ctx = logger.SetModelType(ctx, kind.String())

	result, err := s.run(ctx, kind, req)
	switch {
	case err == nil:
		s.metrics.RecordPrediction(kind.String(), metrics.OutcomeSuccess)
		logger.With(logger.Fields{
			"predicted_class":      result.PredictedClass,
			logger.FieldConfidence: result.Confidence,
		}).Since(start).Info(ctx, "Prediction completed")
	case IsClientError(err):
		s.metrics.RecordPrediction(kind.String(), metrics.OutcomeClientError)
		logger.CtxWarn(ctx, "Prediction rejected: %v", err)
	default:
		s.metrics.RecordPrediction(kind.String(), metrics.OutcomeServerError)
		logger.CtxError(ctx, "Prediction failed: %v", err)
	}
	return result, err
}

func (s *PredictionService) validate(req *PredictRequest) (domain.ModelKind, error) {
	if req.Image == nil {
		return "", clientError("No image file provided", nil)
	}
	if !req.HasModelType {
		return "", clientError("Model type not specified (fruit/leaf)", nil)
	}
	kind := domain.ParseModelKind(req.ModelType)
	if !s.registry.IsAvailable(kind) {
		return "", clientError(fmt.Sprintf("%s model not available", req.ModelType), domain.ErrModelUnavailable)
	}
	if req.Filename == "" {
		return "", clientError("No file selected", nil)
	}
	if !staging.Allowed(req.Filename) {
		return "", clientError("Invalid file type", domain.ErrInvalidFileType)
	}
	return kind, nil
}

func (s *PredictionService) run(ctx context.Context, kind domain.ModelKind, req *PredictRequest) (*PredictionResult, error) {
	staged, err := s.staging.Stage(ctx, req.Filename, req.Image)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFileType) {
			return nil, clientError("Invalid file type", err)
		}
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer staged.Release(ctx)
	ctx = logger.SetStagedFile(ctx, staged.Name)

	size, err := s.registry.InputSize(kind)
	if err != nil {
		return nil, err
	}
	tensor, err := s.preprocess(staged, size)
	if err != nil {
		return nil, clientError(fmt.Sprintf("Preprocessing failed: %v", err), err)
	}

	inferStart := time.Now()
	res, err := s.registry.Predict(ctx, kind, tensor)
	s.metrics.RecordInference(kind.String(), time.Since(inferStart).Seconds())
	if err != nil {
		return nil, err
	}

	result := &PredictionResult{
		ModelType:      kind,
		PredictedClass: res.Label,
		Confidence:     res.Confidence,
		ClassIndex:     res.ClassIndex,
		Timestamp:      time.Now().UTC(),
		DiseaseInfo:    s.knowledge.Resolve(kind, res.Label, res.Confidence),
	}

	pred := &domain.Prediction{
		ModelType:      kind,
		PredictedClass: res.Label,
		Confidence:     res.Confidence,
		ClassIndex:     res.ClassIndex,
		Filename:       staged.Name,
		UserIP:         clientIP(req.ClientIP),
	}
	if err := s.predictions.Create(ctx, pred); err != nil {
		s.metrics.RecordPersistenceFailure("insert_prediction")
		logger.FromContext(ctx).WithError(err).Error("Failed to save prediction")
	} else {
		id := pred.ID
		result.PredictionID = &id
		result.Timestamp = pred.Timestamp
		ctx = logger.SetPredictionID(ctx, id)
	}

	s.archiveUpload(ctx, kind, staged)
	return result, nil
}

func (s *PredictionService) preprocess(staged *staging.File, size int) (*classifier.Tensor, error) {
	f, err := staged.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return classifier.Preprocess(f, size)
}

// archiveUpload copies the staged file to the archive. Failures are logged only.
func (s *PredictionService) archiveUpload(ctx context.Context, kind domain.ModelKind, staged *staging.File) {
	if s.archive == nil {
		return
	}
	key := storage.UploadKey(kind, staged.Name)
	f, err := staged.Open()
	if err == nil {
		defer f.Close()
		err = s.archive.Upload(ctx, key, f, staged.Size, storage.ContentType(staged.Name))
	}
	if err != nil {
		s.metrics.RecordPersistenceFailure("archive")
		logger.FromContext(ctx).WithError(err).Warn("Failed to archive upload")
		return
	}
	logger.CtxDebug(ctx, "Upload archived: url=%s", s.archive.GetURL(key))
}

func clientIP(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}
