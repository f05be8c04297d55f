package importer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound indicates the upload expired or never existed.
	ErrSessionNotFound = errors.New("importer: session not found")
	// ErrNotImportable is returned when a session still has validation errors.
	ErrNotImportable = errors.New("importer: session has validation errors")
	// ErrAlreadyExecuted is returned when a session was already claimed by a run.
	ErrAlreadyExecuted = errors.New("importer: session already executed")
)

// FileReadError reports a workbook that could not be decoded.
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("importer: read workbook: %v", e.Err)
	}
	return fmt.Sprintf("importer: read workbook %s: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// ValidationErrors lists every rule violation found in a batch. An empty list
// means the batch is importable.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	switch len(v) {
	case 0:
		return "importer: no validation errors"
	case 1:
		return v[0]
	default:
		return fmt.Sprintf("%s (and %d more)", v[0], len(v)-1)
	}
}

// String joins all messages, one per line.
func (v ValidationErrors) String() string {
	return strings.Join(v, "\n")
}

// RowSubmissionError records a single row the backend did not accept.
type RowSubmissionError struct {
	Entity string
	Key    string
	Row    int
	Err    error
}

func (e *RowSubmissionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Key, e.Err)
}

func (e *RowSubmissionError) Unwrap() error { return e.Err }

// BatchError aborts the remainder of a batch.
type BatchError struct {
	Sheet string
	Row   int
	Err   error
}

func (e *BatchError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("import aborted: %v", e.Err)
	}
	return fmt.Sprintf("import aborted at %s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
