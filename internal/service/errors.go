package service

import "errors"

// ClientError is a request the caller must fix. Message is safe to return verbatim.
type ClientError struct {
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func clientError(msg string, err error) *ClientError {
	return &ClientError{Message: msg, Err: err}
}

// IsClientError reports whether err carries a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}
