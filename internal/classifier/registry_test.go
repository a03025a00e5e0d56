package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/domain"
)

type fakeClassifier struct {
	probs  []float32
	err    error
	calls  int
	closed bool
}

func (f *fakeClassifier) Predict(_ context.Context, _ *Tensor) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.probs, nil
}

func (f *fakeClassifier) Close() error {
	f.closed = true
	return nil
}

func testTensor() *Tensor {
	return &Tensor{Shape: []int{1, 1, 1, 3}, Data: []float32{0.1, 0.2, 0.3}}
}

func TestArgMax(t *testing.T) {
	testCases := []struct {
		name  string
		probs []float32
		want  int
	}{
		{name: "empty", probs: nil, want: -1},
		{name: "single", probs: []float32{0.4}, want: 0},
		{name: "max in middle", probs: []float32{0.1, 0.8, 0.1}, want: 1},
		{name: "tie keeps first", probs: []float32{0.2, 0.4, 0.4}, want: 1},
		{name: "all equal", probs: []float32{0.5, 0.5}, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ArgMax(tc.probs))
		})
	}
}

func TestRegistryPredict(t *testing.T) {
	probs := make([]float32, 10)
	probs[5] = 0.91
	probs[2] = 0.05
	clf := &fakeClassifier{probs: probs}

	reg := NewRegistry()
	require.NoError(t, reg.Register(domain.ModelKindLeaf, &Handle{
		Classifier: clf,
		Labels:     DefaultLeafLabels(),
	}))

	res, err := reg.Predict(context.Background(), domain.ModelKindLeaf, testTensor())
	require.NoError(t, err)
	assert.Equal(t, 5, res.ClassIndex)
	assert.Equal(t, "Tomato_Bacterial_spot", res.Label)
	assert.InDelta(t, 0.91, res.Confidence, 1e-6)

	again, err := reg.Predict(context.Background(), domain.ModelKindLeaf, testTensor())
	require.NoError(t, err)
	assert.Equal(t, res, again)

	size, err := reg.InputSize(domain.ModelKindLeaf)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultInputSize, size)
}

func TestRegistryUnknownClassIndex(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(domain.ModelKindFruit, &Handle{
		Classifier: &fakeClassifier{probs: []float32{0.1, 0.2, 0.7}},
		Labels:     LabelMap{0: "APPLE", 1: "MANGO"},
	}))

	res, err := reg.Predict(context.Background(), domain.ModelKindFruit, testTensor())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ClassIndex)
	assert.Equal(t, "Unknown_Class_2", res.Label)
}

func TestRegistryUnavailable(t *testing.T) {
	reg := NewRegistry()
	reg.Declare(domain.ModelKindFruit)

	assert.False(t, reg.IsAvailable(domain.ModelKindFruit))
	assert.Equal(t, map[string]bool{"fruit": false}, reg.Availability())

	_, err := reg.Predict(context.Background(), domain.ModelKindFruit, testTensor())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	_, err = reg.InputSize("banana")
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestRegistryClassifierError(t *testing.T) {
	boom := errors.New("interpreter crashed")
	reg := NewRegistry()
	require.NoError(t, reg.Register(domain.ModelKindLeaf, &Handle{
		Classifier: &fakeClassifier{err: boom},
		Labels:     DefaultLeafLabels(),
	}))

	_, err := reg.Predict(context.Background(), domain.ModelKindLeaf, testTensor())
	assert.ErrorIs(t, err, boom)

	_, err = reg.Predict(context.Background(), domain.ModelKindLeaf, &Tensor{Shape: []int{1, 2}, Data: []float32{1}})
	assert.Error(t, err)
}

func TestRegistryClose(t *testing.T) {
	clf := &fakeClassifier{probs: []float32{1}}
	reg := NewRegistry()
	require.NoError(t, reg.Register(domain.ModelKindLeaf, &Handle{Classifier: clf, Labels: LabelMap{0: "x"}}))

	require.NoError(t, reg.Close())
	assert.True(t, clf.closed)
	assert.False(t, reg.IsAvailable(domain.ModelKindLeaf))
}

func TestLoadIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	labels := filepath.Join(dir, "leaf.json")
	require.NoError(t, os.WriteFile(labels, []byte(`{"0":"a","1":"b"}`), 0o644))

	reg := Load(context.Background(), map[string]config.ModelConfig{
		"fruit": {Backend: "tflite", ModelPath: filepath.Join(dir, "missing.tflite"), LabelsPath: labels},
		"leaf":  {Backend: "remote", Endpoint: "http://127.0.0.1:1/v1/models/leaf:predict", LabelsPath: labels},
	})
	defer reg.Close()

	assert.False(t, reg.IsAvailable(domain.ModelKindFruit))
	assert.True(t, reg.IsAvailable(domain.ModelKindLeaf))
	assert.Equal(t, []domain.ModelKind{domain.ModelKindFruit, domain.ModelKindLeaf}, reg.Kinds())
	assert.Equal(t, map[string]int{"fruit": 0, "leaf": 2}, reg.ClassCounts())
}

func TestLoadLeafFallsBackToBuiltinLabels(t *testing.T) {
	reg := Load(context.Background(), map[string]config.ModelConfig{
		"leaf": {Backend: "remote", Endpoint: "http://127.0.0.1:1/predict", LabelsPath: filepath.Join(t.TempDir(), "none.json")},
	})
	defer reg.Close()

	labels, err := reg.Labels(domain.ModelKindLeaf)
	require.NoError(t, err)
	assert.Equal(t, DefaultLeafLabels(), labels)
}
