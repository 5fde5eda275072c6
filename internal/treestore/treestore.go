// Package treestore persists a ContextTree to disk and reloads it.
// The primary file is a single JSON document; saves are
// atomic via a temp-file-then-rename, with a ".bak" copy of the previous
// generation kept alongside it.
package treestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// CurrentVersion is the on-disk schema version written by Save. No
// migrations exist yet; Load warns but proceeds optimistically on a
// mismatch.
const CurrentVersion = 1

const (
	primaryFileName = "tree.json"
	tmpFileName     = "tree.json.tmp"
	backupFileName  = "tree.json.bak"
	nodesDirName    = "nodes"
)

// DefaultBaseDir returns "~/.codex/context/", resolving the user's home
// directory. If the home directory can't be resolved, it falls back to
// a relative ".codex/context" so callers still get a usable path.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".codex", "context")
	}
	return filepath.Join(home, ".codex", "context")
}

// document is the on-disk schema of tree.json.
type document struct {
	Version     int                 `json:"version"`
	RootID      string              `json:"root_id"`
	Nodes       []types.ContextNode `json:"nodes"`
	DomainIndex map[string]string   `json:"domain_index"`
}

// TreeStore reads and writes a ContextTree under BaseDir.
type TreeStore struct {
	baseDir string
	logger  *slog.Logger
}

// Option configures a TreeStore.
type Option func(*TreeStore)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *TreeStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a TreeStore rooted at baseDir. An empty baseDir defaults
// to DefaultBaseDir().
func New(baseDir string, opts ...Option) *TreeStore {
	if baseDir == "" {
		baseDir = DefaultBaseDir()
	}
	s := &TreeStore{
		baseDir: baseDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseDir returns the directory the store reads and writes under.
func (s *TreeStore) BaseDir() string {
	return s.baseDir
}

func (s *TreeStore) primaryPath() string { return filepath.Join(s.baseDir, primaryFileName) }
func (s *TreeStore) tmpPath() string     { return filepath.Join(s.baseDir, tmpFileName) }
func (s *TreeStore) backupPath() string  { return filepath.Join(s.baseDir, backupFileName) }
func (s *TreeStore) nodesDir() string    { return filepath.Join(s.baseDir, nodesDirName) }

// Save atomically writes t's current state to the primary file. If a
// primary file already exists, it is copied to tree.json.bak before
// being overwritten.
func (s *TreeStore) Save(t *tree.ContextTree) error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("creating tree store directory; %w", err)
	}

	doc := document{
		Version:     CurrentVersion,
		RootID:      t.RootID(),
		Nodes:       t.Snapshot(),
		DomainIndex: t.DomainIndexSnapshot(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tree; %w", err)
	}

	if _, err := os.Stat(s.primaryPath()); err == nil {
		if err := copyFile(s.primaryPath(), s.backupPath()); err != nil {
			return fmt.Errorf("backing up tree.json; %w", err)
		}
	}

	tmp := s.tmpPath()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temporary tree file; %w", err)
	}
	if err := os.Rename(tmp, s.primaryPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temporary tree file; %w", err)
	}

	return nil
}

// Load reads the primary file and returns a populated ContextTree. A
// missing, empty, unparseable, or structurally odd file degrades to a
// fresh empty tree; an error return means the file exists but could not
// be read at all.
func (s *TreeStore) Load() (*tree.ContextTree, error) {
	t := tree.New()

	data, err := os.ReadFile(s.primaryPath())
	if err != nil {
		if os.IsNotExist(err) {
			t.EnsureRoot()
			return t, nil
		}
		return nil, fmt.Errorf("reading tree file; %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Startup never fails because of a broken tree.json: degrade to a
		// fresh tree and leave the damaged file for tree.json.bak recovery.
		s.logger.Warn("tree file is not valid JSON, starting with an empty tree", "error", err)
		t.EnsureRoot()
		return t, nil
	}

	if doc.Version != 0 && doc.Version != CurrentVersion {
		s.logger.Warn("tree file version mismatch, loading optimistically",
			"found_version", doc.Version, "expected_version", CurrentVersion)
	}

	if len(doc.Nodes) == 0 {
		t.EnsureRoot()
		return t, nil
	}

	found := false
	for _, n := range doc.Nodes {
		if n.ID == doc.RootID {
			found = true
			break
		}
	}
	if !found {
		s.logger.Warn("tree file root_id not present among nodes, discarding",
			"root_id", doc.RootID)
		t.EnsureRoot()
		return t, nil
	}

	// LoadFrom always rebuilds the domain index from the node set, so the
	// persisted domain_index is read but never trusted directly — it is
	// purely a human-readable convenience in the saved file.
	t.LoadFrom(doc.RootID, doc.Nodes)
	t.EnsureRoot()

	return t, nil
}

// SaveNode writes a single node's spill file under nodes/<id>.json. This
// is an optional incremental-snapshot aid; it is never required to
// reconstruct the tree and Load never reads from it.
func (s *TreeStore) SaveNode(node types.ContextNode) error {
	dir := s.nodesDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating node spill directory; %w", err)
	}

	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding node; %w", err)
	}

	path := filepath.Join(dir, node.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temporary node file; %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temporary node file; %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// ExportStructure renders t as an indented human-readable listing, 2
// spaces per depth level: "<name> [<Type>] — <summary truncated to 50>+…".
func ExportStructure(t *tree.ContextTree) string {
	var b strings.Builder
	rootID := t.RootID()
	root, ok := t.Get(rootID)
	if !ok {
		return ""
	}
	writeNode(&b, t, root, 0)
	return b.String()
}

func writeNode(b *strings.Builder, t *tree.ContextTree, node types.ContextNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(node.Name)
	b.WriteString(" [")
	b.WriteString(string(node.Type))
	b.WriteString("] — ")
	b.WriteString(truncateSummary(node.Summary, 50))
	b.WriteString("\n")

	for _, childID := range node.Children {
		child, ok := t.Get(childID)
		if !ok {
			continue
		}
		writeNode(b, t, child, depth+1)
	}
}

func truncateSummary(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
