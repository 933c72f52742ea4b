package domain

import (
	"errors"
	"fmt"
)

// Input and lifecycle errors. Callers match them with errors.Is.
var (
	ErrNoFile         = errors.New("no uploaded file")
	ErrInvalidToken   = errors.New("invalid stash token")
	ErrMissingKey     = errors.New("metadata key not present")
	ErrFileNotFound   = errors.New("file does not exist")
	ErrNotWritable    = errors.New("directory is not writable")
	ErrNotReadable    = errors.New("file is not readable")
	ErrFilesystem     = errors.New("filesystem operation failed")
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidTable   = errors.New("invalid table name")
	ErrInvalidField   = errors.New("invalid field name")
)

// ConfigError reports a storage setting that cannot be used. It is raised once
// at startup and is not recoverable per call.
type ConfigError struct {
	Setting string
	Path    string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Setting, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Setting, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Reasons carried by ConfigError.
var (
	ErrDirectoryUnset   = errors.New("directory not defined")
	ErrDirectoryMissing = errors.New("directory does not exist")
)
