package config

import (
	"fmt"
	"time"

	"github.com/leefowlercu/memorizer/internal/errs"
	"github.com/leefowlercu/memorizer/internal/watcher"
)

// ToDirectoryConfig converts the YAML-facing WatchedDirectory into the
// watcher package's runtime DirectoryConfig.
func (d WatchedDirectory) ToDirectoryConfig() (watcher.DirectoryConfig, error) {
	mode, err := parseWatchMode(d.Mode)
	if err != nil {
		return watcher.DirectoryConfig{}, err
	}

	return watcher.DirectoryConfig{
		Path:            d.Path,
		Enabled:         d.Enabled,
		Mode:            mode,
		ExcludePatterns: d.ExcludePatterns,
		Priority:        d.Priority,
		MaxDepth:        d.MaxDepth,
		FollowSymlinks:  d.FollowSymlinks,
		RescanInterval:  time.Duration(d.RescanIntervalSeconds) * time.Second,
	}, nil
}

func parseWatchMode(s string) (watcher.WatchMode, error) {
	switch s {
	case "", "realtime":
		return watcher.Realtime, nil
	case "scheduled":
		return watcher.Scheduled, nil
	case "manual":
		return watcher.Manual, nil
	default:
		return 0, fmt.Errorf("unknown watch mode %q; %w", s, errs.ErrConfig)
	}
}
