package config

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no file is given.
const DefaultConfigFile = ".mmreality.yaml"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfig wraps every validation and parse failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values; filter and sorting maps are merged key by key and
// headers through MergeHeaders.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cfg := Default()
	defaults := cfg.Headers
	cfg.Headers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	cfg.Headers = MergeHeaders(defaults, cfg.Headers)

	return cfg, nil
}

// MergeHeaders returns base with overrides applied. Names are compared in
// canonical form (user-agent and User-Agent are one header); an override
// with an empty value removes the header. Keys are applied in sorted order
// so duplicate spellings resolve the same way on every run.
func MergeHeaders(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for _, src := range []map[string]string{base, overrides} {
		keys := make([]string, 0, len(src))
		for k := range src {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			name := http.CanonicalHeaderKey(strings.TrimSpace(k))
			if name == "" {
				continue
			}
			if v := src[k]; v != "" {
				out[name] = v
			} else {
				delete(out, name)
			}
		}
	}
	return out
}

// FindConfigFile returns configPath if given and present, otherwise
// DefaultConfigFile in the working directory if present, otherwise "".
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(cwd, DefaultConfigFile)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Resolve builds the effective configuration: defaults, then the file found
// by FindConfigFile, then the environment. An explicit configPath that does
// not exist is an error.
func Resolve(configPath string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	path := FindConfigFile(configPath)
	switch {
	case path != "":
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case configPath != "":
		return nil, ErrConfigNotFound
	}

	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	return cfg, nil
}
