package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransient       = errors.New("transient remote failure")
	ErrRejected        = errors.New("remote service rejected the request")
	ErrAssetNotFound   = errors.New("remote asset not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrVersionConflict = errors.New("course was modified concurrently")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// ValidationErrors collects every field problem found at the request boundary.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrCourseNotFound && e.Resource == "course"
}

// UploadFailedError is returned once the upload retry budget is spent.
type UploadFailedError struct {
	FileName string
	Attempts int
	LastErr  error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload of %q failed after %d attempts: %v", e.FileName, e.Attempts, e.LastErr)
}

func (e *UploadFailedError) Unwrap() error { return e.LastErr }

// Retryable is false when the file never left the host or the remote service
// refused it outright.
func (e *UploadFailedError) Retryable() bool {
	return e.Attempts > 0 && !errors.Is(e.LastErr, ErrRejected) && !errors.Is(e.LastErr, ErrAssetNotFound)
}

type ConflictError struct {
	CourseID        string
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("course %s changed since version %d", e.CourseID, e.ExpectedVersion)
}

func (e *ConflictError) Unwrap() error { return ErrVersionConflict }

// RemoteDeleteError never aborts a mutation; it is logged and recorded as an orphan.
type RemoteDeleteError struct {
	StorageID string
	Err       error
}

func (e *RemoteDeleteError) Error() string {
	return fmt.Sprintf("remote delete of %s failed: %v", e.StorageID, e.Err)
}

func (e *RemoteDeleteError) Unwrap() error { return e.Err }

// MutationError carries the stage a create/edit/delete reached before failing.
type MutationError struct {
	Op    MutationOp
	Stage Stage
	Err   error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s course failed at %s: %v", e.Op, e.Stage, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Retryable tells the caller whether resubmitting the same request may succeed.
func (e *MutationError) Retryable() bool {
	var upload *UploadFailedError
	if errors.As(e.Err, &upload) {
		return upload.Retryable()
	}
	return errors.Is(e.Err, ErrVersionConflict) || errors.Is(e.Err, ErrTransient)
}

// Attempts returns the upload attempt count when the failure came from an upload.
func (e *MutationError) Attempts() int {
	var upload *UploadFailedError
	if errors.As(e.Err, &upload) {
		return upload.Attempts
	}
	return 0
}
