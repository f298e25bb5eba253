//go:build gogit

package git

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/PaddyThePaddy/crlf/pkg/converter/filetype"
	libgit "github.com/PaddyThePaddy/crlf/pkg/converter/git"
	"github.com/PaddyThePaddy/crlf/pkg/util"
)

var textDetector = filetype.NewEnryDetector()

// GoGitFileLister implements libgit.FileLister with go-git, without a git binary.
type GoGitFileLister struct {
	logger *slog.Logger
}

// NewFileLister returns the FileLister for this build: the go-git library.
func NewFileLister(loggerHandler slog.Handler) libgit.FileLister {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "gitClient"), slog.String("backend", "go-git"))
	logger.Debug("Using 'go-git' backend for Git operations.")
	return &GoGitFileLister{logger: logger}
}

func (c *GoGitFileLister) openRepo(repoPath string) (*git.Repository, error) {
	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, libgit.Errorf("failed to get absolute path for repository '%s': %w", repoPath, err)
	}
	repo, err := git.PlainOpenWithOptions(absRepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, libgit.Errorf("repository not found at or above path '%s': %w", absRepoPath, err)
		}
		return nil, libgit.Errorf("failed to open repository at '%s': %w", absRepoPath, err)
	}
	return repo, nil
}

// ListFiles returns indexed files plus untracked, non-ignored ones below
// repoPath. Deleted, binary and empty files are left out, matching what
// `git grep -I --untracked -e .` reports.
func (c *GoGitFileLister) ListFiles(ctx context.Context, repoPath, pattern string) ([]string, error) {
	logArgs := []any{slog.String("repo", repoPath), slog.String("pattern", pattern)}
	c.logger.Debug("Listing files via go-git", logArgs...)

	repo, err := c.openRepo(repoPath)
	if err != nil {
		return nil, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, libgit.Errorf("failed to get worktree for repository '%s': %w", repoPath, err)
	}
	prefix, err := worktreePrefix(worktree.Filesystem.Root(), repoPath)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]struct{})
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, libgit.Errorf("failed to read index of '%s': %w", repoPath, err)
	}
	for _, entry := range idx.Entries {
		candidates[entry.Name] = struct{}{}
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, libgit.Errorf("failed to get git status for repository '%s': %w", repoPath, err)
	}
	for filePath, fileStatus := range status {
		switch {
		case fileStatus.Worktree == git.Untracked:
			candidates[filePath] = struct{}{}
		case fileStatus.Worktree == git.Deleted, fileStatus.Staging == git.Deleted:
			delete(candidates, filePath)
		}
	}

	root := worktree.Filesystem.Root()
	matchAll := libgit.PathspecFor(pattern) == "*"
	files := make([]string, 0, len(candidates))
	for name := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := name
		if prefix != "" {
			if !strings.HasPrefix(name, prefix+"/") {
				continue
			}
			rel = strings.TrimPrefix(name, prefix+"/")
		}
		rel = path.Clean(rel)
		if !matchAll && !util.MatchPattern(pattern, rel) {
			continue
		}
		listed, err := isListableText(filepath.Join(root, filepath.FromSlash(name)))
		if err != nil {
			c.logger.Debug("Skipping unreadable file", slog.String("path", name), slog.Any("error", err))
			continue
		}
		if listed {
			files = append(files, rel)
		}
	}
	sort.Strings(files)
	c.logger.Debug("go-git listed files", append(logArgs, slog.Int("count", len(files)))...)
	return files, nil
}

// worktreePrefix returns repoPath relative to the worktree root, slash separated,
// or "" when they are the same directory.
func worktreePrefix(root, repoPath string) (string, error) {
	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return "", libgit.Errorf("failed to get absolute path for '%s': %w", repoPath, err)
	}
	if resolved, err := filepath.EvalSymlinks(absRepo); err == nil {
		absRepo = resolved
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, absRepo)
	if err != nil {
		return "", libgit.Errorf("path '%s' is outside worktree '%s': %w", absRepo, root, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// isListableText reports whether the file is a regular, non-binary file with
// at least one byte that is not a newline.
func isListableText(absPath string) (bool, error) {
	info, err := os.Lstat(absPath)
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	f, err := os.Open(absPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, filetype.SniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	head = head[:n]
	if textDetector.IsBinary(head) {
		return false, nil
	}
	if len(bytes.Trim(head, "\n")) > 0 {
		return true, nil
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if len(bytes.Trim(buf[:n], "\n")) > 0 {
			return true, nil
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}
