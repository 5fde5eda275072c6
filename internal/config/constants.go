package config

// DefaultSkipHidden controls whether dotfiles are skipped by default.
const DefaultSkipHidden = true

// DefaultSkipExtensions are skipped by the walker unless overridden.
// Single-extension suffixes only; multi-part patterns like *.min.js go in
// DefaultSkipFiles, since filepath.Ext can't see them.
var DefaultSkipExtensions = []string{
	// archives and disk images
	".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar", ".dmg", ".iso",
	// binaries and build intermediates
	".exe", ".dll", ".so", ".dylib", ".bin", ".o", ".a", ".pyc", ".pyo", ".class",
	// churn
	".log", ".tmp", ".bak", ".swp", ".lock",
}

// DefaultSkipFiles are skipped by the walker unless overridden. Entries
// may be exact names or glob patterns matched against the base name.
var DefaultSkipFiles = []string{
	// OS metadata
	".DS_Store", "Thumbs.db", "desktop.ini",
	// dependency lockfiles (huge, machine-generated)
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "Cargo.lock", "go.sum",
	// minified bundles
	"*.min.js", "*.min.css", "*.bundle.js",
	// editor artifacts
	"4913", "#*", "*~", ".#*",
}

// DefaultSkipDirectories are skipped by the walker unless overridden.
var DefaultSkipDirectories = []string{
	// VCS
	".git", ".hg", ".svn",
	// build outputs and dependency trees
	"node_modules", "vendor", "target", "dist", "build", "out", "bin",
	"__pycache__", ".venv", "venv", ".tox", ".eggs",
	// editor/tool state
	".vscode", ".idea", ".cache", ".pytest_cache", ".mypy_cache",
}
