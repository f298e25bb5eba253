//go:build !gogit

package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	libgit "github.com/PaddyThePaddy/crlf/pkg/converter/git"
)

// ExecFileLister implements libgit.FileLister by running `git grep`.
type ExecFileLister struct {
	logger *slog.Logger
}

// NewFileLister returns the FileLister for this build: the native git binary.
func NewFileLister(loggerHandler slog.Handler) libgit.FileLister {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "gitClient"), slog.String("backend", "exec"))
	logger.Debug("Using 'exec' backend for Git operations.")
	return &ExecFileLister{logger: logger}
}

// ListFiles asks git for tracked and untracked, non-ignored text files with
// at least one line matching the pathspec. Empty files are never listed.
func (c *ExecFileLister) ListFiles(ctx context.Context, repoPath, pattern string) ([]string, error) {
	pathspec := libgit.PathspecFor(pattern)
	args := []string{"-c", "core.quotePath=false", "grep", "-I", "--name-only", "--untracked", "-e", ".", "--", pathspec}
	logArgs := []any{slog.String("repo", repoPath), slog.String("pathspec", pathspec)}
	c.logger.Debug("Listing files via git grep", logArgs...)

	stdout, stderr, exitCode, err := c.runGitCommand(ctx, repoPath, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// git grep exits 1 when nothing matched.
		if exitCode == 1 && strings.TrimSpace(stdout) == "" && strings.TrimSpace(stderr) == "" {
			c.logger.Debug("git grep matched no files", logArgs...)
			return []string{}, nil
		}
		if exitCode >= 0 {
			return nil, libgit.Errorf("git grep exited with code %d in '%s': %s", exitCode, repoPath, strings.TrimSpace(stderr))
		}
		return nil, libgit.Errorf("failed to run git in '%s': %w", repoPath, err)
	}

	files := parseFileList(stdout)
	c.logger.Debug("git grep listed files", append(logArgs, slog.Int("count", len(files)))...)
	return files, nil
}

// runGitCommand returns stdout, stderr and the process exit code (-1 when git
// never ran or was killed).
func (c *ExecFileLister) runGitCommand(ctx context.Context, repoPath string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr == nil {
		return stdout.String(), stderr.String(), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return stdout.String(), stderr.String(), exitErr.ExitCode(), runErr
	}
	return stdout.String(), stderr.String(), -1, fmt.Errorf("command 'git %s' failed: %w", strings.Join(args, " "), runErr)
}

func parseFileList(output string) []string {
	var files []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files = append(files, line)
		}
	}
	if files == nil {
		files = []string{}
	}
	return files
}
