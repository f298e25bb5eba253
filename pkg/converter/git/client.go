package git

import (
	"context"
	"errors"
	"fmt"
)

// ErrGitOperation indicates a failure while asking git for the file list.
// Implementations wrap the underlying cause with it (see Errorf) so callers
// can check errors.Is(err, ErrGitOperation).
var ErrGitOperation = errors.New("git operation failed")

// FileLister returns the text files git knows about, tracked or untracked but
// not ignored, that match a selection pattern.
//
// Implementations might use the native `git` command via `os/exec` or a
// library like `go-git`, and must be safe for use by a single run.
type FileLister interface {
	// ListFiles returns slash-separated paths relative to repoPath.
	// An empty result is not an error.
	ListFiles(ctx context.Context, repoPath, pattern string) ([]string, error)
}

// Errorf returns a formatted error that wraps ErrGitOperation.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrGitOperation}, args...)...)
}

// PathspecFor maps a selection pattern onto a git pathspec.
// The catch-all "**/*" becomes "*", which git already applies recursively.
func PathspecFor(pattern string) string {
	if pattern == "" || pattern == "**/*" || pattern == "**" {
		return "*"
	}
	return pattern
}
