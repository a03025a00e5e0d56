package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/cropguard/internal/classifier"
	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/knowledge"
	"github.com/timmy/cropguard/internal/logger"
	"github.com/timmy/cropguard/internal/staging"
)

type fakeClassifier struct {
	probs []float32
	err   error
}

func (f *fakeClassifier) Predict(context.Context, *classifier.Tensor) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.probs, nil
}

func (f *fakeClassifier) Close() error { return nil }

type fakePredictionStore struct {
	mu     sync.Mutex
	err    error
	nextID int64
	saved  []domain.Prediction
}

func (s *fakePredictionStore) Create(_ context.Context, p *domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	p.ID = s.nextID
	s.saved = append(s.saved, *p)
	return nil
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchive) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if a.err != nil {
		return a.err
	}
	_, _ = io.Copy(io.Discard, r)
	a.mu.Lock()
	a.keys = append(a.keys, key)
	a.mu.Unlock()
	return nil
}

func (a *fakeArchive) GetURL(key string) string {
	return "https://archive.example/" + key
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 160, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func leafProbs() []float32 {
	probs := make([]float32, 10)
	for i := range probs {
		probs[i] = 0.01
	}
	probs[5] = 0.91
	return probs
}

type pipelineFixture struct {
	svc     *PredictionService
	fs      afero.Fs
	store   *fakePredictionStore
	archive *fakeArchive
	leaf    *fakeClassifier
}

func newPipeline(t *testing.T) *pipelineFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	area, err := staging.NewWithFs(fs, "uploads")
	require.NoError(t, err)

	leaf := &fakeClassifier{probs: leafProbs()}
	reg := classifier.NewRegistry()
	require.NoError(t, reg.Register(domain.ModelKindLeaf, &classifier.Handle{
		Classifier: leaf,
		Labels:     classifier.DefaultLeafLabels(),
		InputSize:  16,
	}))
	reg.Declare(domain.ModelKindFruit)

	resolver, err := knowledge.Load()
	require.NoError(t, err)

	store := &fakePredictionStore{}
	archive := &fakeArchive{}
	svc := NewPredictionService(reg, area, resolver, store, archive, nil)
	return &pipelineFixture{svc: svc, fs: fs, store: store, archive: archive, leaf: leaf}
}

func (f *pipelineFixture) assertNoStagedFiles(t *testing.T) {
	t.Helper()
	entries, err := afero.ReadDir(f.fs, "uploads")
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files left behind")
}

func TestPredictLeafScenario(t *testing.T) {
	f := newPipeline(t)

	var logs bytes.Buffer
	ctx := logger.New(&logger.Config{Level: "debug", Format: "text", Output: &logs}).WithContext(context.Background())

	res, err := f.svc.Predict(ctx, &PredictRequest{
		Image:        bytes.NewReader(pngBytes(t)),
		Filename:     "tomato.PNG",
		ModelType:    "leaf",
		HasModelType: true,
		ClientIP:     "192.0.2.1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModelKindLeaf, res.ModelType)
	assert.Equal(t, 5, res.ClassIndex)
	assert.Equal(t, "Tomato_Bacterial_spot", res.PredictedClass)
	assert.InDelta(t, 0.91, res.Confidence, 1e-6)
	assert.Equal(t, "Bacterial Disease", res.DiseaseInfo.Type)
	require.NotNil(t, res.PredictionID)
	assert.EqualValues(t, 1, *res.PredictionID)

	require.Len(t, f.store.saved, 1)
	saved := f.store.saved[0]
	assert.Equal(t, "192.0.2.1", saved.UserIP)
	assert.True(t, strings.HasSuffix(saved.Filename, ".png"))
	assert.NotEqual(t, "tomato.PNG", saved.Filename)

	assert.Equal(t, []string{"leaf/" + saved.Filename}, f.archive.keys)
	assert.Contains(t, logs.String(), "https://archive.example/leaf/"+saved.Filename)
	f.assertNoStagedFiles(t)
}

func TestPredictValidation(t *testing.T) {
	img := func() io.Reader { return bytes.NewReader([]byte("x")) }

	testCases := []struct {
		name    string
		req     PredictRequest
		wantMsg string
	}{
		{
			name:    "no image",
			req:     PredictRequest{Filename: "a.png", ModelType: "leaf", HasModelType: true},
			wantMsg: "No image file provided",
		},
		{
			name:    "no model type",
			req:     PredictRequest{Image: img(), Filename: "a.png"},
			wantMsg: "Model type not specified (fruit/leaf)",
		},
		{
			name:    "model not loaded",
			req:     PredictRequest{Image: img(), Filename: "a.png", ModelType: "fruit", HasModelType: true},
			wantMsg: "fruit model not available",
		},
		{
			name:    "unknown model",
			req:     PredictRequest{Image: img(), Filename: "a.png", ModelType: "banana", HasModelType: true},
			wantMsg: "banana model not available",
		},
		{
			name:    "empty filename",
			req:     PredictRequest{Image: img(), ModelType: "leaf", HasModelType: true},
			wantMsg: "No file selected",
		},
		{
			name:    "disallowed extension",
			req:     PredictRequest{Image: img(), Filename: "leaf.bmp", ModelType: "leaf", HasModelType: true},
			wantMsg: "Invalid file type",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipeline(t)
			req := tc.req

			_, err := f.svc.Predict(context.Background(), &req)
			require.Error(t, err)

			var ce *ClientError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.wantMsg, ce.Message)
			assert.Empty(t, f.store.saved)
			f.assertNoStagedFiles(t)
		})
	}
}

func TestPredictCorruptImage(t *testing.T) {
	f := newPipeline(t)

	_, err := f.svc.Predict(context.Background(), &PredictRequest{
		Image:        strings.NewReader("definitely not a png"),
		Filename:     "leaf.png",
		ModelType:    "leaf",
		HasModelType: true,
	})

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.True(t, strings.HasPrefix(ce.Message, "Preprocessing failed: "), ce.Message)
	assert.Empty(t, f.store.saved)
	f.assertNoStagedFiles(t)
}

func TestPredictClassifierFailure(t *testing.T) {
	f := newPipeline(t)
	f.leaf.err = errors.New("interpreter crashed")

	_, err := f.svc.Predict(context.Background(), &PredictRequest{
		Image:        bytes.NewReader(pngBytes(t)),
		Filename:     "leaf.jpg",
		ModelType:    "leaf",
		HasModelType: true,
	})
	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.Contains(t, err.Error(), "interpreter crashed")
	assert.Empty(t, f.store.saved)
	f.assertNoStagedFiles(t)
}

func TestPredictPersistenceFailureKeepsResult(t *testing.T) {
	f := newPipeline(t)
	f.store.err = errors.New("database is locked")
	f.archive.err = errors.New("bucket gone")

	res, err := f.svc.Predict(context.Background(), &PredictRequest{
		Image:        bytes.NewReader(pngBytes(t)),
		Filename:     "leaf.gif",
		ModelType:    "leaf",
		HasModelType: true,
	})
	require.NoError(t, err)
	assert.Nil(t, res.PredictionID)
	assert.Equal(t, "Tomato_Bacterial_spot", res.PredictedClass)
	assert.False(t, res.Timestamp.IsZero())
	f.assertNoStagedFiles(t)
}

func TestPredictUnknownClassIndex(t *testing.T) {
	f := newPipeline(t)
	probs := append(leafProbs(), 0.99)
	f.leaf.probs = probs

	res, err := f.svc.Predict(context.Background(), &PredictRequest{
		Image:        bytes.NewReader(pngBytes(t)),
		Filename:     "leaf.png",
		ModelType:    "leaf",
		HasModelType: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.ClassIndex)
	assert.Equal(t, "Unknown_Class_10", res.PredictedClass)
	assert.Equal(t, "Unknown Classification", res.DiseaseInfo.Type)
	assert.Equal(t, "unknown", f.store.saved[0].UserIP)
}

func TestPredictConcurrentRequests(t *testing.T) {
	f := newPipeline(t)
	data := pngBytes(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Predict(context.Background(), &PredictRequest{
				Image:        bytes.NewReader(data),
				Filename:     "leaf.png",
				ModelType:    "leaf",
				HasModelType: true,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.store.saved, 16)
	f.assertNoStagedFiles(t)
}
