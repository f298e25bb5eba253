// Package filetype decides which files are worth scanning for line endings.
package filetype

import (
	"path/filepath"

	"github.com/go-enry/go-enry/v2"
)

// SniffLen is the number of leading bytes a Detector needs to classify content.
// It matches the window git uses for its own binary check.
const SniffLen = 8000

// Detector classifies files before their line endings are touched.
// Implementations must be safe for concurrent use.
type Detector interface {
	// IsBinary reports whether the leading bytes of a file look like binary data.
	IsBinary(sample []byte) bool
	// IsVendor reports whether a slash-separated relative path points into vendored
	// or third-party code.
	IsVendor(relPath string) bool
}

type enryDetector struct{}

// NewEnryDetector returns a Detector backed by go-enry.
func NewEnryDetector() Detector {
	return enryDetector{}
}

// IsBinary reports content with a NUL byte in the sniff window as binary, the
// same rule as `git grep -I`. Magic numbers alone do not count: a text file
// starting with "BM" or "%PDF-" is still text. UTF-16 text contains NUL bytes
// and is reported as binary.
func (enryDetector) IsBinary(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	if len(sample) > SniffLen {
		sample = sample[:SniffLen]
	}
	return enry.IsBinary(sample)
}

func (enryDetector) IsVendor(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if relPath == "" {
		return false
	}
	return enry.IsVendor(relPath)
}
