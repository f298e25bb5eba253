package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaddyThePaddy/crlf/internal/cli/git"
	"github.com/PaddyThePaddy/crlf/internal/testutil"
	libgit "github.com/PaddyThePaddy/crlf/pkg/converter/git"
)

func runGit(t *testing.T, repoPath string, args ...string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), output)
}

// setupTestGitRepo builds a repository with tracked, untracked, ignored,
// empty, binary and deleted files.
func setupTestGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("Skipping Git test: 'git' command not found in PATH")
	}
	repoPath := t.TempDir()
	runGit(t, repoPath, "init", "--initial-branch=main")
	runGit(t, repoPath, "config", "user.email", "test@example.com")
	runGit(t, repoPath, "config", "user.name", "Test User")
	runGit(t, repoPath, "config", "commit.gpgsign", "false")
	runGit(t, repoPath, "config", "core.autocrlf", "false")

	testutil.CreateDummyFile(t, filepath.Join(repoPath, "README.md"), "# readme\r\n")
	testutil.CreateDummyFile(t, filepath.Join(repoPath, "sub", "a.txt"), "a\nb\n")
	testutil.CreateDummyFile(t, filepath.Join(repoPath, "empty.txt"), "")
	testutil.CreateDummyFile(t, filepath.Join(repoPath, "blank.txt"), "\n\n")
	testutil.CreateDummyFile(t, filepath.Join(repoPath, "bin.dat"), "ab\x00cd\n")
	testutil.CreateDummyFile(t, filepath.Join(repoPath, "gone.txt"), "soon deleted\n")
	testutil.CreateDummyFile(t, filepath.Join(repoPath, ".gitignore"), "*.log\n")
	runGit(t, repoPath, "add", ".")
	runGit(t, repoPath, "commit", "-m", "initial")

	require.NoError(t, os.Remove(filepath.Join(repoPath, "gone.txt")))
	testutil.CreateDummyFile(t, filepath.Join(repoPath, "untracked.txt"), "new\n")
	testutil.CreateDummyFile(t, filepath.Join(repoPath, "debug.log"), "ignored\n")
	return repoPath
}

func TestFileLister_ListFiles(t *testing.T) {
	repoPath := setupTestGitRepo(t)
	handler, _ := testutil.NewTestLogger()
	lister := git.NewFileLister(handler)
	require.NotNil(t, lister)

	testCases := []struct {
		name     string
		subDir   string
		pattern  string
		expected []string
	}{
		{
			name:     "catch-all pattern",
			pattern:  "**/*",
			expected: []string{".gitignore", "README.md", "sub/a.txt", "untracked.txt"},
		},
		{
			name:     "extension pattern",
			pattern:  "*.md",
			expected: []string{"README.md"},
		},
		{
			name:     "subdirectory",
			subDir:   "sub",
			pattern:  "**/*",
			expected: []string{"a.txt"},
		},
		{
			name:     "no match",
			pattern:  "*.none",
			expected: []string{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			files, err := lister.ListFiles(context.Background(), filepath.Join(repoPath, tc.subDir), tc.pattern)
			require.NoError(t, err)
			if len(tc.expected) == 0 {
				assert.Empty(t, files)
				return
			}
			assert.ElementsMatch(t, tc.expected, files)
		})
	}
}

func TestFileLister_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("Skipping Git test: 'git' command not found in PATH")
	}
	handler, _ := testutil.NewTestLogger()
	lister := git.NewFileLister(handler)

	_, err := lister.ListFiles(context.Background(), t.TempDir(), "**/*")
	require.Error(t, err)
	assert.ErrorIs(t, err, libgit.ErrGitOperation)
}

func TestFileLister_CancelledContext(t *testing.T) {
	repoPath := setupTestGitRepo(t)
	handler, _ := testutil.NewTestLogger()
	lister := git.NewFileLister(handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lister.ListFiles(ctx, repoPath, "**/*")
	require.Error(t, err)
}
