package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML config, applies defaults and environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}
	for _, key := range meta.Undecoded() {
		slog.Warn("unknown config key", "path", path, "key", key.String())
	}

	return finish(&cfg)
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(&Config{})
	}
	return cfg, err
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)
	normalize(cfg)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Source.Extensions) == 0 {
		cfg.Source.Extensions = []string{".coffee"}
	}
	if len(cfg.Source.ExcludeDirs) == 0 {
		cfg.Source.ExcludeDirs = []string{".git", "node_modules"}
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = 4
	}
	if cfg.Analysis.TokenCacheSize <= 0 {
		cfg.Analysis.TokenCacheSize = 1024
	}
	if strings.TrimSpace(cfg.Output.CompileCommand) == "" {
		cfg.Output.CompileCommand = DefaultCompileCommand
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = filepath.Join(".coffeegraph", "history.db")
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.RebuildsPerSecond <= 0 {
		cfg.Watch.RebuildsPerSecond = 2
	}
}

func normalize(cfg *Config) {
	for i, ext := range cfg.Source.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Source.Extensions[i] = ext
	}
	for i, p := range cfg.Sources {
		cfg.Sources[i] = strings.TrimSpace(p)
	}
	cfg.History.Project = strings.TrimSpace(cfg.History.Project)
	cfg.Output.Join = strings.TrimSpace(cfg.Output.Join)
	cfg.Output.CompileCommand = strings.TrimSpace(cfg.Output.CompileCommand)
}
