package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file looked up by the CLI.
const FileName = "weft.yaml"

// Config represents the optional weft.yaml configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Trace   TraceConfig   `yaml:"trace"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// RuntimeConfig contains runtime settings.
type RuntimeConfig struct {
	// StrictHookOrder is a pointer so an explicit false can be told apart
	// from an absent key.
	StrictHookOrder *bool `yaml:"strict_hook_order,omitempty"`
}

// TraceConfig controls how lifecycle traces are printed.
type TraceConfig struct {
	Format string `yaml:"format,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	// Path is the file the values were read from, or empty for defaults.
	Path            string
	// ModulePath is the module enclosing the working directory, if any.
	ModulePath      string
	LogLevel        slog.Level
	Verbose         bool
	StrictHookOrder bool
	Format          string
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// LoadOptional reads weft.yaml from dir if present.
func LoadOptional(dir string) (*Config, string, error) {
	path := filepath.Join(dir, FileName)
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, "", nil
		}
		return nil, "", err
	}
	return cfg, path, nil
}

// Resolve loads the configuration and applies defaults. When path is empty
// weft.yaml is searched for upward from dir, up to the module root; a
// missing file yields defaults.
func Resolve(dir, path string) (*Resolved, error) {
	var (
		cfg  *Config
		err  error
		modp string
	)
	if root, ok := FindProjectRoot(dir); ok {
		if modp, err = modulePath(root); err != nil {
			return nil, err
		}
	}
	if path != "" {
		cfg, err = Load(path)
	} else {
		found := FindConfigDir(dir)
		cfg, path, err = LoadOptional(found)
	}
	if err != nil {
		return nil, err
	}

	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Trace.Format))
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("trace.format must be text or json (got %q)", cfg.Trace.Format)
	}

	strict := true
	if cfg.Runtime.StrictHookOrder != nil {
		strict = *cfg.Runtime.StrictHookOrder
	}

	return &Resolved{
		Path:            path,
		ModulePath:      modp,
		LogLevel:        level,
		Verbose:         cfg.Log.Verbose,
		StrictHookOrder: strict,
		Format:          format,
	}, nil
}

// FindConfigDir walks up from dir to the first directory containing
// weft.yaml. The walk stops at the directory holding go.mod, so a file
// outside the module is never picked up. It returns dir itself when none
// is found.
func FindConfigDir(dir string) string {
	cur := dir
	for {
		if exists(filepath.Join(cur, FileName)) {
			return cur
		}
		if exists(filepath.Join(cur, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

// FindProjectRoot walks up from dir to the nearest directory with go.mod.
func FindProjectRoot(dir string) (string, bool) {
	cur := dir
	for {
		if exists(filepath.Join(cur, "go.mod")) {
			return cur, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		cur = parent
	}
}

func modulePath(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from %s", filepath.Join(root, "go.mod"))
	}
	return path, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error (got %q)", name)
	}
}
