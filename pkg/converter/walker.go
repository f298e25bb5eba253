package converter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/util"
)

// gitDirName is never descended into in glob mode.
const gitDirName = ".git"

// Walker finds candidate files, applies ignore rules and dispatches eligible
// paths to the worker pool. In SourceGlob mode it walks InputPath itself; in
// SourceGit mode it asks Options.FileLister.
type Walker struct {
	opts                 *Options
	workerChan           chan<- string
	hooks                Hooks
	logger               *slog.Logger
	ignoreMatcher        *ignoreMatcher
	pattern              string
	cacheFileAbs         string
	dispatchWarnDuration time.Duration
}

// NewWalker creates a new Walker. It is the default DiscovererFactory.
func NewWalker(opts *Options, workerChan chan<- string, loggerHandler slog.Handler) (Discoverer, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "walker"))
	matcher, err := newIgnoreMatcher(opts.InputPath, opts.IgnorePatterns, logger)
	if err != nil {
		logger.Error("Failed to initialize ignore pattern matcher", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize ignore patterns: %w", err)
	}
	logger.Debug("Ignore patterns loaded", slog.Int("count", matcher.patternCount()))

	if opts.SourceMode == SourceGit && opts.FileLister == nil {
		return nil, fmt.Errorf("%w: git source mode requires a FileLister", ErrConfigValidation)
	}

	dispatchWarnDuration := opts.DispatchWarnThreshold
	if dispatchWarnDuration <= 0 {
		dispatchWarnDuration = 1 * time.Second
	}
	var cacheFileAbs string
	if opts.CacheEnabled && opts.CacheFilePath != "" {
		cacheFileAbs, _ = filepath.Abs(opts.CacheFilePath)
	}
	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	return &Walker{
		opts:                 opts,
		workerChan:           workerChan,
		hooks:                hooks,
		logger:               logger,
		ignoreMatcher:        matcher,
		pattern:              normalizePattern(opts.Pattern),
		cacheFileAbs:         cacheFileAbs,
		dispatchWarnDuration: dispatchWarnDuration,
	}, nil
}

func normalizePattern(p string) string {
	p = strings.TrimPrefix(filepath.ToSlash(p), "./")
	if p == "" {
		return DefaultPattern
	}
	return p
}

// StartWalk produces every eligible file and closes the worker channel when done.
func (w *Walker) StartWalk(ctx context.Context) error {
	defer func() {
		close(w.workerChan)
		w.logger.Debug("Worker channel closed")
	}()

	var err error
	if w.opts.SourceMode == SourceGit {
		err = w.listFromGit(ctx)
	} else {
		w.logger.Debug("Starting directory walk", slog.String("path", w.opts.InputPath), slog.String("pattern", w.pattern))
		err = filepath.WalkDir(w.opts.InputPath, w.walkFunc(ctx))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			w.logger.Info("File discovery cancelled", slog.String("reason", err.Error()))
			return err
		}
		w.logger.Error("File discovery failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	w.logger.Debug("File discovery completed")
	return nil
}

func (w *Walker) listFromGit(ctx context.Context) error {
	w.logger.Debug("Listing files from git", slog.String("path", w.opts.InputPath), slog.String("pattern", w.pattern))
	files, err := w.opts.FileLister.ListFiles(ctx, w.opts.InputPath, w.pattern)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel = path.Clean(filepath.ToSlash(rel))
		if rel == "." || rel == "" {
			continue
		}
		if w.ignoredWithParents(rel) {
			continue
		}
		if err := w.dispatch(ctx, filepath.Join(w.opts.InputPath, filepath.FromSlash(rel)), rel); err != nil {
			return err
		}
	}
	return nil
}

// ignoredWithParents checks rel and each of its parent directories against the ignore rules.
func (w *Walker) ignoredWithParents(rel string) bool {
	w.discovered(rel)
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		dir := strings.Join(parts[:i], "/")
		if w.ignoreMatcher.Match(dir, true) {
			w.markIgnored(rel, w.ignoreMatcher.LastMatchPattern(dir, true))
			return true
		}
	}
	if w.ignoreMatcher.Match(rel, false) {
		w.markIgnored(rel, w.ignoreMatcher.LastMatchPattern(rel, false))
		return true
	}
	return false
}

func (w *Walker) discovered(rel string) {
	if hookErr := w.hooks.OnFileDiscovered(rel); hookErr != nil {
		w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
	}
}

func (w *Walker) markIgnored(rel, pattern string) {
	w.logger.Debug("Path ignored", slog.String("path", rel), slog.String("pattern", pattern))
	msg := fmt.Sprintf("Ignored by pattern: %s", pattern)
	if hookErr := w.hooks.OnFileStatusUpdate(rel, StatusSkipped, msg, 0); hookErr != nil {
		w.logger.Warn("Event hook OnFileStatusUpdate (ignored) failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
	}
}

// walkFunc returns the WalkDirFunc used by filepath.WalkDir.
func (w *Walker) walkFunc(ctx context.Context) fs.WalkDirFunc {
	return func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Error accessing path during walk", slog.String("path", p), slog.String("error", err.Error()))
			if p == w.opts.InputPath {
				return fmt.Errorf("cannot read input directory %q: %w", p, err)
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("Skipping symbolic link", slog.String("path", p))
			return nil
		}
		relativePath, err := filepath.Rel(w.opts.InputPath, p)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)
		if relativePath == "." {
			return nil
		}

		if d.IsDir() {
			if d.Name() == gitDirName {
				return filepath.SkipDir
			}
			if w.ignoreMatcher.Match(relativePath, true) {
				w.logger.Debug("Directory ignored", slog.String("path", relativePath),
					slog.String("pattern", w.ignoreMatcher.LastMatchPattern(relativePath, true)))
				return filepath.SkipDir
			}
			return nil
		}

		if !util.MatchPattern(w.pattern, relativePath) {
			return nil
		}
		if w.isCacheFile(p) {
			return nil
		}
		w.discovered(relativePath)
		if w.ignoreMatcher.Match(relativePath, false) {
			w.markIgnored(relativePath, w.ignoreMatcher.LastMatchPattern(relativePath, false))
			return nil
		}
		return w.dispatch(ctx, p, relativePath)
	}
}

func (w *Walker) isCacheFile(p string) bool {
	if w.cacheFileAbs == "" {
		return false
	}
	abs, err := filepath.Abs(p)
	return err == nil && abs == w.cacheFileAbs
}

// dispatch sends a path to the workers, warning once if they are slow to accept it.
func (w *Walker) dispatch(ctx context.Context, p, relativePath string) error {
	w.logger.Debug("Dispatching file to worker channel", slog.String("path", relativePath))
	timer := time.NewTimer(w.dispatchWarnDuration)
	defer timer.Stop()
	select {
	case w.workerChan <- p:
	case <-timer.C:
		w.logger.Warn("Worker channel dispatch blocked, workers might be busy or pool too small",
			slog.String("path", relativePath), slog.Duration("threshold", w.dispatchWarnDuration))
		select {
		case w.workerChan <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

type ignoreMatcher struct {
	patterns []ignorePattern
	basePath string // absolute input directory
	logger   *slog.Logger
}

type ignorePattern struct {
	pattern     string // slash-separated, without ! / prefix or trailing /
	origPattern string
	negated     bool
	isDirOnly   bool
	isRooted    bool
	baseAbsPath string // directory the pattern is relative to
}

// newIgnoreMatcher loads the nearest ignore file, then the configured patterns, which take precedence.
func newIgnoreMatcher(inputPath string, configPatterns []string, logger *slog.Logger) (*ignoreMatcher, error) {
	absInputPath, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path for input: %w", err)
	}
	matcher := &ignoreMatcher{
		basePath: absInputPath,
		logger:   logger.With(slog.String("component", "ignoreMatcher")),
	}
	ignoreFilePath, err := findIgnoreFile(absInputPath)
	if err != nil {
		matcher.logger.Warn("Error searching for ignore file", slog.String("error", err.Error()))
	}
	if ignoreFilePath != "" {
		filePatterns, err := loadPatternsFromFile(ignoreFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore file %s: %w", ignoreFilePath, err)
		}
		matcher.addPatterns(filePatterns, filepath.Dir(ignoreFilePath))
		matcher.logger.Debug("Loaded patterns from ignore file", slog.String("path", ignoreFilePath), slog.Int("count", len(filePatterns)))
	}
	matcher.addPatterns(configPatterns, absInputPath)
	return matcher, nil
}

// findIgnoreFile walks up from absStartPath looking for IgnoreFileName.
func findIgnoreFile(absStartPath string) (string, error) {
	currentPath := absStartPath
	for {
		candidate := filepath.Join(currentPath, IgnoreFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error checking for ignore file at %s: %w", candidate, err)
		}
		parent := filepath.Dir(currentPath)
		if parent == currentPath || parent == "" {
			return "", nil
		}
		currentPath = parent
	}
}

// loadPatternsFromFile returns the non-empty, non-comment lines of an ignore file.
func loadPatternsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open ignore file %s: %w", filePath, err)
	}
	defer file.Close()
	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", filePath, err)
	}
	return patterns, nil
}

func (m *ignoreMatcher) addPatterns(rawPatterns []string, baseAbsPath string) {
	for _, rawPattern := range rawPatterns {
		p := ignorePattern{origPattern: rawPattern, baseAbsPath: baseAbsPath}
		trimmed := strings.TrimSpace(rawPattern)
		if strings.HasPrefix(trimmed, "!") {
			p.negated = true
			trimmed = strings.TrimSpace(trimmed[1:])
		}
		if strings.HasPrefix(trimmed, "/") {
			p.isRooted = true
			trimmed = strings.TrimPrefix(trimmed, "/")
		}
		if strings.HasSuffix(trimmed, "/") {
			p.isDirOnly = true
			trimmed = strings.TrimSuffix(trimmed, "/")
		}
		p.pattern = filepath.ToSlash(trimmed)
		if p.pattern == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
}

// Match reports whether relativePath is ignored. The last matching pattern wins.
func (m *ignoreMatcher) Match(relativePath string, isDir bool) bool {
	_, ignored := m.lastMatch(relativePath, isDir)
	return ignored
}

// LastMatchPattern returns the pattern that caused relativePath to be ignored, or "".
func (m *ignoreMatcher) LastMatchPattern(relativePath string, isDir bool) string {
	p, ignored := m.lastMatch(relativePath, isDir)
	if !ignored {
		return ""
	}
	return p
}

func (m *ignoreMatcher) lastMatch(relativePath string, isDir bool) (string, bool) {
	lastPattern, ignored := "", false
	for _, p := range m.patterns {
		if p.isDirOnly && !isDir {
			continue
		}
		if util.MatchesGitignore(p.pattern, p.baseAbsPath, m.basePath, relativePath, p.isRooted) {
			lastPattern = p.origPattern
			ignored = !p.negated
		}
	}
	return lastPattern, ignored
}

func (m *ignoreMatcher) patternCount() int {
	return len(m.patterns)
}
