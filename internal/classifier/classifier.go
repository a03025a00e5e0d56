// Package classifier holds the model registry: loaded classifiers keyed by model kind,
// their label maps, and the image preprocessing that feeds them.
package classifier

import (
	"context"
	"fmt"
)

// Tensor is a dense float32 tensor in row-major NHWC layout.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NumElements returns the product of the shape dimensions.
func (t *Tensor) NumElements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Validate checks that Data matches Shape.
func (t *Tensor) Validate() error {
	if t == nil {
		return fmt.Errorf("nil tensor")
	}
	if n := t.NumElements(); n == 0 || n != len(t.Data) {
		return fmt.Errorf("tensor shape %v does not match %d values", t.Shape, len(t.Data))
	}
	return nil
}

// Classifier maps an input tensor to an ordered vector of per-class probabilities.
type Classifier interface {
	Predict(ctx context.Context, input *Tensor) ([]float32, error)
	Close() error
}

// Handle pairs a loaded classifier with its index to label mapping.
type Handle struct {
	Classifier Classifier
	Labels     LabelMap
	InputSize  int
	Backend    string
}

// Result is the outcome of one registry prediction.
type Result struct {
	ClassIndex int     `json:"class_index"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"predicted_class"`
}

// ArgMax returns the index of the largest value; the first index wins ties.
// It returns -1 for an empty vector.
func ArgMax(probs []float32) int {
	best := -1
	for i, p := range probs {
		if best == -1 || p > probs[best] {
			best = i
		}
	}
	return best
}
