package cmdutil

import (
	"fmt"
	"log/slog"

	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/internal/treestore"
)

// OpenTree loads the persisted ContextTree for the current configuration,
// returning both the tree and the store it was loaded from so callers can
// Save() back to the same location. A nil logger falls back to slog.Default().
func OpenTree(logger *slog.Logger) (*tree.ContextTree, *treestore.TreeStore, error) {
	cfg := config.MustGet()

	baseDir := config.ExpandPath(cfg.Tree.BaseDir)
	if logger == nil {
		logger = slog.Default()
	}
	store := treestore.New(baseDir, treestore.WithLogger(logger))

	t, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading tree; %w", err)
	}

	return t, store, nil
}
