package classifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/logger"
)

// Registry holds the classifiers loaded at startup. It is read-only once
// initialization finishes and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handles  map[domain.ModelKind]*Handle
	declared map[domain.ModelKind]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handles:  make(map[domain.ModelKind]*Handle),
		declared: make(map[domain.ModelKind]struct{}),
	}
}

// Declare records a kind as configured without making it available.
func (r *Registry) Declare(kind domain.ModelKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declared[kind] = struct{}{}
}

// Register makes kind available with the given handle.
func (r *Registry) Register(kind domain.ModelKind, h *Handle) error {
	if h == nil || h.Classifier == nil {
		return fmt.Errorf("register %s: nil classifier", kind)
	}
	if h.InputSize <= 0 {
		h.InputSize = config.DefaultInputSize
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declared[kind] = struct{}{}
	r.handles[kind] = h
	return nil
}

// IsAvailable reports whether a classifier is loaded for kind.
func (r *Registry) IsAvailable(kind domain.ModelKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[kind]
	return ok
}

// Kinds returns every configured kind, loaded or not, sorted.
func (r *Registry) Kinds() []domain.ModelKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.ModelKind, 0, len(r.declared))
	for k := range r.declared {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Availability reports the loaded state of every configured kind.
func (r *Registry) Availability() map[string]bool {
	out := make(map[string]bool)
	for _, k := range r.Kinds() {
		out[string(k)] = r.IsAvailable(k)
	}
	return out
}

// ClassCounts reports the label map size of every loaded kind.
func (r *Registry) ClassCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.declared))
	for k := range r.declared {
		out[string(k)] = 0
		if h, ok := r.handles[k]; ok {
			out[string(k)] = len(h.Labels)
		}
	}
	return out
}

// InputSize returns the square input resolution of kind's classifier.
func (r *Registry) InputSize(kind domain.ModelKind) (int, error) {
	h, err := r.handle(kind)
	if err != nil {
		return 0, err
	}
	return h.InputSize, nil
}

// Labels returns kind's label map.
func (r *Registry) Labels(kind domain.ModelKind) (LabelMap, error) {
	h, err := r.handle(kind)
	if err != nil {
		return nil, err
	}
	return h.Labels, nil
}

func (r *Registry) handle(kind domain.ModelKind) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrModelUnavailable)
	}
	return h, nil
}

// Predict runs kind's classifier and resolves the arg-max class.
// Confidence is the raw probability at that index. Indices outside the label map
// resolve to Unknown_Class_<index>.
func (r *Registry) Predict(ctx context.Context, kind domain.ModelKind, input *Tensor) (*Result, error) {
	h, err := r.handle(kind)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	probs, err := h.Classifier.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%s classifier: %w", kind, err)
	}

	idx := ArgMax(probs)
	if idx < 0 {
		return nil, fmt.Errorf("%s classifier returned no scores", kind)
	}
	if len(probs) != len(h.Labels) {
		logger.CtxWarn(ctx, "Classifier output size %d differs from label map size %d for %s",
			len(probs), len(h.Labels), kind)
	}

	return &Result{
		ClassIndex: idx,
		Confidence: float64(probs[idx]),
		Label:      h.Labels.Label(idx),
	}, nil
}

// Close releases every loaded classifier.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for kind, h := range r.handles {
		if err := h.Classifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", kind, err))
		}
	}
	r.handles = make(map[domain.ModelKind]*Handle)
	return errors.Join(errs...)
}

// Load builds a registry from configuration. Each kind loads independently;
// a kind that fails is logged and left unavailable.
func Load(ctx context.Context, models map[string]config.ModelConfig) *Registry {
	reg := NewRegistry()
	for name, mc := range models {
		kind := domain.ParseModelKind(name)
		reg.Declare(kind)

		log := logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldModelType: string(kind),
			"backend":             mc.Backend,
		})

		h, err := loadHandle(kind, mc)
		if err != nil {
			log.WithError(err).Error("Failed to load classifier")
			continue
		}
		if err := reg.Register(kind, h); err != nil {
			log.WithError(err).Error("Failed to register classifier")
			continue
		}
		log.WithField(logger.FieldCount, len(h.Labels)).Info("Classifier loaded")
	}
	return reg
}

func loadHandle(kind domain.ModelKind, mc config.ModelConfig) (*Handle, error) {
	labels, err := LoadLabels(mc.LabelsPath)
	if err != nil {
		if kind != domain.ModelKindLeaf {
			return nil, err
		}
		logger.Warn("Using built-in leaf labels: %v", err)
		labels = DefaultLeafLabels()
	}

	var clf Classifier
	switch mc.Backend {
	case "tflite":
		t, err := NewTFLiteClassifier(mc.ModelPath, mc.Threads)
		if err != nil {
			return nil, err
		}
		if t.OutputSize() != len(labels) {
			logger.Warn("%s model has %d outputs but %d labels", kind, t.OutputSize(), len(labels))
		}
		clf = t
	case "remote":
		clf = NewRemoteClassifier(&RemoteConfig{
			Endpoint: mc.Endpoint,
			Timeout:  mc.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", mc.Backend)
	}

	return &Handle{
		Classifier: clf,
		Labels:     labels,
		InputSize:  mc.InputSize,
		Backend:    mc.Backend,
	}, nil
}
