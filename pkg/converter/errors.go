package converter

import "errors"

// These errors categorize failures returned by Run or recorded in Report.Errors.
// Check them with errors.Is.
var (
	// ErrStatFailed indicates a failure to stat a discovered file.
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrReadFailed indicates a failure to open or read a file.
	// The underlying lineending.ErrIO is preserved in the chain when the scanner failed.
	ErrReadFailed = errors.New("failed to read file")

	// ErrWriteFailed indicates a failure to write a converted file back.
	ErrWriteFailed = errors.New("failed to write file")

	// ErrBinaryFile indicates that a file was detected as binary and BinaryMode is "error".
	ErrBinaryFile = errors.New("binary file encountered")

	// ErrConfigValidation indicates that the provided Options failed validation.
	// It is returned directly by Run.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrDiscovery indicates that the list of candidate files could not be produced.
	ErrDiscovery = errors.New("file discovery failed")
)
