package models

import (
	"errors"
	"fmt"
)

// ErrorKind represents different categories of errors
type ErrorKind int

const (
	ErrMissingDependency ErrorKind = iota
	ErrPreconditionFailed
	ErrAlreadyInitialized
	ErrInvalidArtifact
	ErrArtifactNotFound
	ErrCopyFailed
	ErrArtifactConflict
	ErrNotARepository
	ErrBadInput
	ErrInvalidProvenance
	ErrIndexGeneration
	ErrStorage
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrMissingDependency:
		return "MissingDependency"
	case ErrPreconditionFailed:
		return "PreconditionFailed"
	case ErrAlreadyInitialized:
		return "AlreadyInitialized"
	case ErrInvalidArtifact:
		return "InvalidArtifact"
	case ErrArtifactNotFound:
		return "ArtifactNotFound"
	case ErrCopyFailed:
		return "CopyFailed"
	case ErrArtifactConflict:
		return "ArtifactConflict"
	case ErrNotARepository:
		return "NotARepository"
	case ErrBadInput:
		return "BadInput"
	case ErrInvalidProvenance:
		return "InvalidProvenance"
	case ErrIndexGeneration:
		return "IndexGeneration"
	case ErrStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// RepoError represents an error during a repository operation
type RepoError struct {
	Kind   ErrorKind
	Bucket string
	Err    error
}

// Error implements the error interface
func (e *RepoError) Error() string {
	if e.Bucket != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Bucket, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
}

// Unwrap returns the wrapped error
func (e *RepoError) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of the first RepoError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var re *RepoError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries a RepoError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
