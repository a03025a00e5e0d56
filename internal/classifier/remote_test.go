package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteClassifierPredict(t *testing.T) {
	var got predictRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/models/leaf:predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions": [[0.1, 0.7, 0.2]]}`))
	}))
	defer server.Close()

	clf := NewRemoteClassifier(&RemoteConfig{Endpoint: server.URL + "/v1/models/leaf:predict"})
	input := &Tensor{
		Shape: []int{1, 2, 1, 3},
		Data:  []float32{0, 0.5, 1, 0.25, 0.75, 1},
	}

	probs, err := clf.Predict(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.7, 0.2}, probs)

	require.Len(t, got.Instances, 1)
	assert.Equal(t, [][][]float32{
		{{0, 0.5, 1}},
		{{0.25, 0.75, 1}},
	}, got.Instances[0])
}

func TestRemoteClassifierErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error": "model not loaded"}`},
		{name: "empty predictions", status: http.StatusOK, body: `{"predictions": []}`},
		{name: "empty vector", status: http.StatusOK, body: `{"predictions": [[]]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			clf := NewRemoteClassifier(&RemoteConfig{Endpoint: server.URL})
			_, err := clf.Predict(context.Background(), testTensor())
			assert.Error(t, err)
		})
	}
}

func TestToInstanceRejectsBatch(t *testing.T) {
	_, err := toInstance(&Tensor{Shape: []int{2, 1, 1, 1}, Data: []float32{1, 2}})
	assert.Error(t, err)
}
