// Package storage archives staged uploads to S3-compatible object storage.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/domain"
)

// Archive keeps a copy of classified uploads.
type Archive interface {
	// Upload stores size bytes from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns where an uploaded key can be fetched.
	GetURL(key string) string
}

// NewArchive creates an Archive from configuration. It returns nil when archiving is disabled.
// Parameters:
//   - ctx: context for bucket checks.
//   - cfg: archive configuration including endpoint, credentials, and bucket.
// Returns:
//   - Archive: initialized archive, or nil if disabled.
//   - error: non-nil if the client cannot be created or the bucket is unusable.
func NewArchive(ctx context.Context, cfg *config.ArchiveConfig) (Archive, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	s3cfg := &S3Config{
		Type:      StorageType(cfg.Type),
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	}
	if s3cfg.Type == "" {
		s3cfg.Type = detectStorageType(cfg.Endpoint)
	}

	s, err := NewS3Storage(s3cfg)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case endpoint == "" || strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

// UploadKey is the object key of a staged file classified under kind.
func UploadKey(kind domain.ModelKind, stagedName string) string {
	return path.Join(string(kind), path.Base(stagedName))
}

// ContentType maps an image file name to its MIME type.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
