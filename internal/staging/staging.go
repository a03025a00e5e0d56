// Package staging holds uploaded images in a scratch directory for the
// duration of a single prediction.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/logger"
)

var allowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
}

// Extension returns the lowercased segment after the last dot of name.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// Allowed reports whether name has an accepted image extension.
func Allowed(name string) bool {
	_, ok := allowedExtensions[Extension(name)]
	return ok
}

// Area is a scratch directory for staged uploads.
type Area struct {
	fs  afero.Fs
	dir string
}

// New creates a staging area rooted at dir on the OS filesystem.
func New(dir string) (*Area, error) {
	return NewWithFs(afero.NewOsFs(), dir)
}

// NewWithFs creates a staging area on fs, creating dir if needed.
func NewWithFs(fs afero.Fs, dir string) (*Area, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	return &Area{fs: fs, dir: dir}, nil
}

// File is one staged upload. Release must be called exactly once on every path.
type File struct {
	area *Area
	Name string
	Path string
	Size int64
}

// Stage validates originalName and writes content under a fresh random name
// that keeps the original extension. A partial write is removed before returning.
func (a *Area) Stage(ctx context.Context, originalName string, content io.Reader) (*File, error) {
	if !Allowed(originalName) {
		return nil, domain.ErrInvalidFileType
	}

	name := uuid.New().String() + "." + Extension(originalName)
	path := filepath.Join(a.dir, name)

	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	n, copyErr := io.Copy(f, content)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := a.fs.Remove(path); rmErr != nil {
			logger.CtxWarn(ctx, "Failed to remove partial staged file %s: %v", path, rmErr)
		}
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldStagedFile: name,
		logger.FieldSize:       n,
	}).Debug("Upload staged")

	return &File{area: a, Name: name, Path: path, Size: n}, nil
}

// Open opens the staged file for reading.
func (f *File) Open() (afero.File, error) {
	return f.area.fs.Open(f.Path)
}

// Release removes the staged file. Failure is logged, never returned.
// Releasing an already removed file is a no-op.
func (f *File) Release(ctx context.Context) {
	if f == nil {
		return
	}
	if err := f.area.fs.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		logger.FromContext(ctx).WithError(err).
			WithField(logger.FieldStagedFile, f.Name).
			Warn("Failed to remove staged file")
	}
}
