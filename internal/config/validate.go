package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// validEmbeddingsProviders lists recognized embeddings providers.
var validEmbeddingsProviders = map[string]bool{
	"openai": true,
	"google": true,
}

// validWatchModes lists recognized watch modes.
var validWatchModes = map[string]bool{
	"": true, "realtime": true, "scheduled": true, "manual": true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.Tree.BaseDir == "" {
		errs = append(errs, ValidationError{
			Field:   "tree.base_dir",
			Message: "must not be empty",
		})
	}

	if cfg.Agent.MaxFilesPerFolder < 1 {
		errs = append(errs, ValidationError{
			Field:   "agent.max_files_per_folder",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Agent.MaxFilesPerFolder),
		})
	}

	if cfg.Optimizer.MaxIdleDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "optimizer.max_idle_days",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Optimizer.MaxIdleDays),
		})
	}

	if cfg.Optimizer.MinSiblingsForMerge < 2 {
		errs = append(errs, ValidationError{
			Field:   "optimizer.min_siblings_for_merge",
			Message: fmt.Sprintf("must be at least 2, got %d", cfg.Optimizer.MinSiblingsForMerge),
		})
	}

	if cfg.Optimizer.MaxDepthThreshold < 1 {
		errs = append(errs, ValidationError{
			Field:   "optimizer.max_depth_threshold",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Optimizer.MaxDepthThreshold),
		})
	}

	for i, dir := range cfg.Watcher.Directories {
		if dir.Path == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watcher.directories[%d].path", i),
				Message: "must not be empty",
			})
		}
		if !validWatchModes[dir.Mode] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watcher.directories[%d].mode", i),
				Message: fmt.Sprintf("must be one of: realtime, scheduled, manual; got %q", dir.Mode),
			})
		}
	}

	if cfg.Watcher.DebounceWindowMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "watcher.debounce_window_ms",
			Message: "must be non-negative",
		})
	}

	if cfg.Query.MaxResults < 1 {
		errs = append(errs, ValidationError{
			Field:   "query.max_results",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Query.MaxResults),
		})
	}

	if cfg.Query.MinRelevance < 0 || cfg.Query.MinRelevance > 1 {
		errs = append(errs, ValidationError{
			Field:   "query.min_relevance",
			Message: fmt.Sprintf("must be between 0 and 1, got %f", cfg.Query.MinRelevance),
		})
	}

	// Validate embeddings config (only if enabled)
	if cfg.Embeddings.Enabled {
		if cfg.Embeddings.Provider == "" {
			errs = append(errs, ValidationError{
				Field:   "embeddings.provider",
				Message: "must not be empty when embeddings are enabled",
			})
		} else if !validEmbeddingsProviders[cfg.Embeddings.Provider] {
			errs = append(errs, ValidationError{
				Field:   "embeddings.provider",
				Message: fmt.Sprintf("must be one of: openai, google; got %q", cfg.Embeddings.Provider),
			})
		}

		if cfg.Embeddings.Model == "" {
			errs = append(errs, ValidationError{
				Field:   "embeddings.model",
				Message: "must not be empty when embeddings are enabled",
			})
		}

		if cfg.Embeddings.Dimensions < 1 {
			errs = append(errs, ValidationError{
				Field:   "embeddings.dimensions",
				Message: fmt.Sprintf("must be at least 1, got %d", cfg.Embeddings.Dimensions),
			})
		}
	}

	// Validate graph mirror config (only if enabled)
	if cfg.GraphMirror.Enabled {
		if cfg.GraphMirror.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "graph_mirror.host",
				Message: "must not be empty when graph_mirror is enabled",
			})
		}

		if cfg.GraphMirror.Port < 1 || cfg.GraphMirror.Port > 65535 {
			errs = append(errs, ValidationError{
				Field:   "graph_mirror.port",
				Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.GraphMirror.Port),
			})
		}

		if cfg.GraphMirror.GraphName == "" {
			errs = append(errs, ValidationError{
				Field:   "graph_mirror.graph_name",
				Message: "must not be empty when graph_mirror is enabled",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
