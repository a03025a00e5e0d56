package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/domain"
)

var _ Archive = (*S3Storage)(nil)

func TestDetectStorageType(t *testing.T) {
	testCases := []struct {
		endpoint string
		want     StorageType
	}{
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.eu-west-1.amazonaws.com", StorageTypeS3},
		{"", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}

	for _, tc := range testCases {
		t.Run(tc.endpoint, func(t *testing.T) {
			assert.Equal(t, tc.want, detectStorageType(tc.endpoint))
		})
	}
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", endpointURL("http://localhost:9000/some/path", false))
	assert.Equal(t, "https://objects.internal", endpointURL("objects.internal", true))
	assert.Equal(t, "", endpointURL("", true))
}

func TestUploadKeyAndContentType(t *testing.T) {
	assert.Equal(t, "leaf/3f1c.png", UploadKey(domain.ModelKindLeaf, "3f1c.png"))
	assert.Equal(t, "fruit/x.jpg", UploadKey(domain.ModelKindFruit, "../../x.jpg"))

	assert.Equal(t, "image/png", ContentType("a.PNG"))
	assert.Equal(t, "image/jpeg", ContentType("a.jpeg"))
	assert.Equal(t, "image/gif", ContentType("a.gif"))
	assert.Equal(t, "application/octet-stream", ContentType("a"))
}

func TestGetURL(t *testing.T) {
	s, err := NewS3Storage(&S3Config{Endpoint: "localhost:9000", Bucket: "uploads", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/uploads/leaf/a.png", s.GetURL("leaf/a.png"))

	s, err = NewS3Storage(&S3Config{Bucket: "uploads", Region: "eu-west-1", PublicURL: "https://cdn.example.com/", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/leaf/a.png", s.GetURL("leaf/a.png"))
}

func TestNewArchiveDisabled(t *testing.T) {
	a, err := NewArchive(context.Background(), &config.ArchiveConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, a)
}
