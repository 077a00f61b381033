package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: COFFEEGRAPH_[SECTION]_[KEY] (e.g., COFFEEGRAPH_ANALYSIS_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvList(&cfg.Sources, "COFFEEGRAPH_SOURCES")

	// Source
	setEnvList(&cfg.Source.Extensions, "COFFEEGRAPH_SOURCE_EXTENSIONS")
	setEnvList(&cfg.Source.ExcludeDirs, "COFFEEGRAPH_SOURCE_EXCLUDE_DIRS")
	setEnvList(&cfg.Source.ExcludeFiles, "COFFEEGRAPH_SOURCE_EXCLUDE_FILES")

	// Analysis
	setEnvInt(&cfg.Analysis.Workers, "COFFEEGRAPH_ANALYSIS_WORKERS")
	setEnvBool(&cfg.Analysis.StrictAliasing, "COFFEEGRAPH_ANALYSIS_STRICT_ALIASING")
	setEnvInt(&cfg.Analysis.TokenCacheSize, "COFFEEGRAPH_ANALYSIS_TOKEN_CACHE_SIZE")

	// Output
	setEnvString(&cfg.Output.Join, "COFFEEGRAPH_OUTPUT_JOIN")
	setEnvBool(&cfg.Output.Compile, "COFFEEGRAPH_OUTPUT_COMPILE")
	setEnvString(&cfg.Output.CompileCommand, "COFFEEGRAPH_OUTPUT_COMPILE_COMMAND")
	setEnvString(&cfg.Output.DOT, "COFFEEGRAPH_OUTPUT_DOT")
	setEnvString(&cfg.Output.TSV, "COFFEEGRAPH_OUTPUT_TSV")

	// History
	setEnvBool(&cfg.History.Enabled, "COFFEEGRAPH_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "COFFEEGRAPH_HISTORY_PATH")
	setEnvString(&cfg.History.Project, "COFFEEGRAPH_HISTORY_PROJECT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "COFFEEGRAPH_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RebuildsPerSecond, "COFFEEGRAPH_WATCH_REBUILDS_PER_SECOND")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "COFFEEGRAPH_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "COFFEEGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "COFFEEGRAPH_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma separated value.
func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var items []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	slog.Debug("applying env override", "key", key, "value", val)
	*target = items
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
