// # internal/core/config/config.go
package config

import "time"

// DefaultFile is looked up in the working directory when --config is not set.
const DefaultFile = "coffeegraph.toml"

// DefaultCompileCommand prints compiled JavaScript for the given file.
const DefaultCompileCommand = "coffee -p"

type Config struct {
	Sources       []string      `toml:"sources"`
	Source        Source        `toml:"source"`
	Analysis      Analysis      `toml:"analysis"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Source struct {
	Extensions   []string `toml:"extensions"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"` // glob patterns, matched against base name and full path
}

type Analysis struct {
	Workers        int  `toml:"workers"`
	StrictAliasing bool `toml:"strict_aliasing"`
	TokenCacheSize int  `toml:"token_cache_size"`
}

type Output struct {
	Print          bool   `toml:"print"`
	Println        bool   `toml:"println"`
	Tree           bool   `toml:"tree"`
	Clipboard      bool   `toml:"clipboard"`
	Join           string `toml:"join"`
	// Compile pipes every joined file through CompileCommand, with the file
	// path appended as last argument.
	Compile        bool   `toml:"compile"`
	CompileCommand string `toml:"compile_command"`
	DOT            string `toml:"dot"`
	TSV            string `toml:"tsv"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Project string `toml:"project"`
}

type Watch struct {
	Debounce          time.Duration `toml:"debounce"`
	RebuildsPerSecond float64       `toml:"rebuilds_per_second"`
}

type Observability struct {
	MetricsAddr   string `toml:"metrics_addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// HasExporter reports whether any output is requested.
func (o Output) HasExporter() bool {
	return o.Print || o.Println || o.Tree || o.Clipboard || o.Join != "" || o.DOT != "" || o.TSV != ""
}
