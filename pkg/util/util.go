package util

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesGitignore checks if a relative path matches a gitignore-style pattern.
// Unrooted patterns match any trailing run of path segments, so "*.log" matches
// "a/b/debug.log" and "build" matches "build/out.txt".
func MatchesGitignore(pattern, patternBaseAbsPath, walkerBaseAbsPath, pathToMatchRel string, isRooted bool) bool {
	pattern = filepath.ToSlash(pattern)
	pathToMatchRel = filepath.ToSlash(pathToMatchRel)
	if pattern == "" || pathToMatchRel == "" || pathToMatchRel == "." {
		return false
	}
	pathToMatchAbs := filepath.Join(walkerBaseAbsPath, filepath.FromSlash(pathToMatchRel))
	pathRelToPatternBase, err := filepath.Rel(patternBaseAbsPath, pathToMatchAbs)
	if err != nil {
		return false
	}
	pathRelToPatternBase = filepath.ToSlash(pathRelToPatternBase)
	if strings.HasPrefix(pathRelToPatternBase, "../") {
		return false
	}

	if matchPrefixes(pattern, pathRelToPatternBase) {
		return true
	}
	if isRooted {
		return false
	}
	parts := strings.Split(pathRelToPatternBase, "/")
	for i := 1; i < len(parts); i++ {
		if matchPrefixes(pattern, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

// matchPrefixes reports whether pattern matches p or any of its leading directories.
func matchPrefixes(pattern, p string) bool {
	for {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}

// MatchPattern reports whether a slash-separated relative path matches a
// doublestar selection pattern. An invalid pattern never matches.
func MatchPattern(pattern, relPath string) bool {
	ok, err := doublestar.Match(filepath.ToSlash(pattern), filepath.ToSlash(relPath))
	return err == nil && ok
}

// ValidatePattern reports whether pattern is a well-formed doublestar pattern.
func ValidatePattern(pattern string) bool {
	return doublestar.ValidatePattern(filepath.ToSlash(pattern))
}
