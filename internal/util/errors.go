package util

import "errors"

// Sentinel errors shared by the store, reconciler and renamer
var (
	// ErrNotFound indicates a required file, record or directory is missing
	ErrNotFound = errors.New("not found")

	// ErrCorrupt indicates the metadata document exists but cannot be parsed
	ErrCorrupt = errors.New("corrupt metadata document")

	// ErrConflict indicates a rename target already exists on disk or in the store
	ErrConflict = errors.New("destination conflict")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPermission indicates a permission error
	ErrPermission = errors.New("permission denied")
)
