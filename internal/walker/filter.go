package walker

import (
	"path/filepath"
	"strings"
)

// DefaultExcludePatterns covers VCS directories, build outputs, virtualenvs,
// editor junk, OS metadata, and temp files.
func DefaultExcludePatterns() []string {
	return []string{
		".git", ".hg", ".svn",
		"node_modules", "vendor", "dist", "build", "target", "out",
		".venv", "venv", "__pycache__", ".tox",
		".idea", ".vscode",
		".DS_Store", "Thumbs.db",
		"*.tmp", "*.temp", "*.swp", "*.swo", "*.swn", "*~",
	}
}

// isExcluded reports whether path matches any glob in patterns. A pattern
// may match the path's base name, any path segment, or the path's full
// string form.
func isExcluded(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	base := filepath.Base(path)
	segments := strings.Split(filepath.ToSlash(path), "/")

	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
		for _, seg := range segments {
			if matched, _ := filepath.Match(pattern, seg); matched {
				return true
			}
		}
	}

	return false
}

// IsExcluded is the exported form, used by callers outside this package
// (e.g. the directory watcher) that need to pre-filter a single path.
func IsExcluded(path string, patterns []string) bool {
	return isExcluded(path, patterns)
}
