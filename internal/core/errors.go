package core

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned when input exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnreadable is returned when the file cannot be read at all.
	ErrUnreadable = errors.New("unreadable file")

	// ErrNoFile is returned when an import is requested without content or path.
	ErrNoFile = errors.New("no file provided")

	// ErrDecode marks content that no strict encoding accepted. The loader
	// recovers from it with a lossy decode, so it only appears in diagnostics.
	ErrDecode = errors.New("encoding error")

	// ErrDetection marks a failed delimiter or row-count analysis.
	ErrDetection = errors.New("detection failed")

	// ErrSchemaResolution marks a missing registry or an unknown directive schema.
	ErrSchemaResolution = errors.New("note type not resolved")

	// ErrEmptyInput is returned when no data rows remain after stripping
	// directives and the header.
	ErrEmptyInput = errors.New("no data rows found")

	// ErrCollectionUnresolved is returned when the target deck cannot be resolved.
	ErrCollectionUnresolved = errors.New("target deck not resolved")

	// ErrRecordEmit is the sentinel wrapped by RecordEmitError.
	ErrRecordEmit = errors.New("record rejected by sink")

	// ErrImportBusy is returned when another import holds the collection.
	ErrImportBusy = errors.New("too many imports in progress")
)

// RecordEmitError reports a sink failure that aborted the run.
// Added is the number of records already handed to the sink.
type RecordEmitError struct {
	Added int
	Line  int
	Err   error
}

func (e *RecordEmitError) Error() string {
	return fmt.Sprintf("%v at row %d after %d note(s) added: %v", ErrRecordEmit, e.Line, e.Added, e.Err)
}

func (e *RecordEmitError) Unwrap() []error {
	return []error{ErrRecordEmit, e.Err}
}
