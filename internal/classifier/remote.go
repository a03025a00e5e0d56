package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteClassifier calls a TensorFlow Serving compatible REST predict endpoint.
type RemoteClassifier struct {
	client   *resty.Client
	endpoint string
}

// RemoteConfig holds configuration for a remote classifier.
type RemoteConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float32 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// NewRemoteClassifier creates a client for the model server at cfg.Endpoint,
// e.g. http://localhost:8501/v1/models/leaf:predict.
func NewRemoteClassifier(cfg *RemoteConfig) *RemoteClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &RemoteClassifier{
		client:   client,
		endpoint: cfg.Endpoint,
	}
}

// Predict sends input as a single instance and returns its prediction vector.
func (c *RemoteClassifier) Predict(ctx context.Context, input *Tensor) ([]float32, error) {
	instance, err := toInstance(input)
	if err != nil {
		return nil, err
	}

	var result predictResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Instances: [][][][]float32{instance}}).
		SetResult(&result).
		SetError(&result).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("model server request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("model server error: status %d: %s", resp.StatusCode(), result.Error)
	}
	if len(result.Predictions) == 0 || len(result.Predictions[0]) == 0 {
		return nil, fmt.Errorf("model server returned no predictions")
	}
	return result.Predictions[0], nil
}

// Close is a no-op; the HTTP client holds no per-model resources.
func (c *RemoteClassifier) Close() error {
	return nil
}

// toInstance reshapes a [1,H,W,C] tensor into nested H x W x C slices.
func toInstance(t *Tensor) ([][][]float32, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(t.Shape) != 4 || t.Shape[0] != 1 {
		return nil, fmt.Errorf("expected [1,H,W,C] tensor, got %v", t.Shape)
	}
	h, w, ch := t.Shape[1], t.Shape[2], t.Shape[3]

	rows := make([][][]float32, h)
	for y := 0; y < h; y++ {
		cols := make([][]float32, w)
		for x := 0; x < w; x++ {
			off := (y*w + x) * ch
			cols[x] = t.Data[off : off+ch]
		}
		rows[y] = cols
	}
	return rows, nil
}
