package domain

import "errors"

var (
	// ErrInvalidFileType is returned for uploads outside the image extension allow-list.
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrModelUnavailable is returned when no classifier is loaded for a model kind.
	ErrModelUnavailable = errors.New("model not available")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for field values outside their allowed range.
	ErrInvalidArgument = errors.New("invalid argument")
)
