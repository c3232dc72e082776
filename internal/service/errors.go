package service

import (
	"errors"
	"fmt"
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrReaderNil         = errors.New("reader is nil")
	ErrFileNameRequired  = errors.New("file name is required")
	ErrOwnerRequired     = errors.New("owner is required")
	ErrNotFound          = errors.New("document not found")
	ErrForbidden         = errors.New("access to document denied")
	ErrObjectUnavailable = errors.New("document object unavailable")
	ErrUploadFailed      = errors.New("upload failed")
)

// UploadError reports a failed upload together with the object address it targeted.
// It matches ErrUploadFailed under errors.Is and unwraps to the step's cause.
type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload to bucket %s with key %s: %v", e.Bucket, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUploadFailed }
