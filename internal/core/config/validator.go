package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Validate returns every problem found in cfg; an empty result means valid.
func Validate(cfg *Config) []error {
	var errs []error
	errs = append(errs, validateSource(cfg)...)
	errs = append(errs, validateAnalysis(cfg)...)
	errs = append(errs, validateOutput(cfg)...)
	errs = append(errs, validateWatch(cfg)...)
	errs = append(errs, validateHistory(cfg)...)
	return errs
}

func validateSource(cfg *Config) []error {
	var errs []error
	if len(cfg.Source.Extensions) == 0 {
		errs = append(errs, fmt.Errorf("source.extensions must not be empty"))
	}
	for i, ext := range cfg.Source.Extensions {
		if ext == "" || ext == "." {
			errs = append(errs, fmt.Errorf("source.extensions[%d] must not be empty", i))
		}
	}
	for i, pattern := range cfg.Source.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("source.exclude_files[%d] %q is not a valid glob: %w", i, pattern, err))
		}
	}
	return errs
}

func validateAnalysis(cfg *Config) []error {
	var errs []error
	if cfg.Analysis.Workers < 1 || cfg.Analysis.Workers > 256 {
		errs = append(errs, fmt.Errorf("analysis.workers must be between 1 and 256, got %d", cfg.Analysis.Workers))
	}
	if cfg.Analysis.TokenCacheSize < 1 {
		errs = append(errs, fmt.Errorf("analysis.token_cache_size must be >= 1"))
	}
	return errs
}

func validateOutput(cfg *Config) []error {
	var errs []error
	if cfg.Output.Compile {
		if cfg.Output.Join == "" {
			errs = append(errs, fmt.Errorf("output.compile requires output.join"))
		}
		if cfg.Output.CompileCommand == "" {
			errs = append(errs, fmt.Errorf("output.compile requires output.compile_command"))
		}
	}

	outputs := make(map[string]string)
	checkConflict := func(path, name string) {
		if path == "" {
			return
		}
		path = filepath.Clean(path)
		if owner, exists := outputs[path]; exists {
			errs = append(errs, fmt.Errorf("output conflict: %s and %s share the same path %q", owner, name, path))
			return
		}
		outputs[path] = name
	}
	checkConflict(cfg.Output.Join, "output.join")
	checkConflict(cfg.Output.DOT, "output.dot")
	checkConflict(cfg.Output.TSV, "output.tsv")
	return errs
}

func validateWatch(cfg *Config) []error {
	var errs []error
	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}
	if cfg.Watch.RebuildsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("watch.rebuilds_per_second must be > 0"))
	}
	return errs
}

func validateHistory(cfg *Config) []error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return []error{fmt.Errorf("history.path must not be empty when history.enabled=true")}
	}
	return nil
}
