package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// FileName is the default project config file name.
const FileName = "contentpack.yaml"

const configDirName = "contentpack"

// ConfigLevel represents the precedence level of a configuration file.
type ConfigLevel string

const (
	LevelSystem  ConfigLevel = "system"
	LevelUser    ConfigLevel = "user"
	LevelProject ConfigLevel = "project"
)

// ConfigLayerInfo describes a discovered config file and its load status.
type ConfigLayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  ConfigLevel
	Loaded bool
}

// DiscoverOptions controls how config paths are discovered.
type DiscoverOptions struct {
	// ProjectPath is the project-level config path (required).
	ProjectPath string

	// SystemConfigPath overrides the default system config path.
	// Empty means use the XDG default. Set to a nonexistent path to skip.
	SystemConfigPath string

	// UserConfigPath overrides the default user config path.
	// Empty means use the XDG default. Set to a nonexistent path to skip.
	UserConfigPath string

	// NoInherit loads only the project config.
	NoInherit bool
}

// DiscoverPaths returns the ordered list of config file paths to check,
// from lowest precedence (system) to highest (project).
// Paths are deduplicated by resolved absolute path.
func DiscoverPaths(opts DiscoverOptions) []ConfigLayerInfo {
	var layers []ConfigLayerInfo
	seen := make(map[string]bool)

	addLayer := func(level ConfigLevel, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, ConfigLayerInfo{
			Path:  path,
			Level: level,
		})
	}

	if !opts.NoInherit {
		sysPath := opts.SystemConfigPath
		if sysPath == "" {
			sysPath = defaultSystemConfigPath()
		}
		addLayer(LevelSystem, sysPath)

		userPath := opts.UserConfigPath
		if userPath == "" {
			userPath = defaultUserConfigPath()
		}
		addLayer(LevelUser, userPath)
	}

	// Project-level config (always last, highest precedence).
	addLayer(LevelProject, opts.ProjectPath)

	return layers
}

// LoadLayered discovers, loads and merges all config layers. Missing system
// and user layers are skipped; the project layer is required. The merged
// result is validated once.
func LoadLayered(opts DiscoverOptions) (*Config, []ConfigLayerInfo, error) {
	layers := DiscoverPaths(opts)
	var configs []*Config

	for i := range layers {
		l := &layers[i]
		cfg, err := read(l.Path)
		if err != nil {
			if l.Level != LevelProject && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			l.Err = err
			return nil, layers, err
		}
		l.Loaded = true
		configs = append(configs, cfg)
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return nil, layers, err
	}
	if errs := Validate(merged); len(errs) > 0 {
		return nil, layers, &ValidationError{Errors: errs}
	}
	return merged, layers, nil
}

// defaultSystemConfigPath returns the first XDG system config directory path.
func defaultSystemConfigPath() string {
	if len(xdg.ConfigDirs) == 0 {
		return filepath.Join("/etc", configDirName, FileName)
	}
	return filepath.Join(xdg.ConfigDirs[0], configDirName, FileName)
}

// defaultUserConfigPath returns the XDG user config path.
func defaultUserConfigPath() string {
	if xdg.ConfigHome == "" {
		return ""
	}
	return filepath.Join(xdg.ConfigHome, configDirName, FileName)
}

// EnvNoInherit returns true if CONTENTPACK_NO_INHERIT is set to "1" or "true".
func EnvNoInherit() bool {
	return envBoolTrue("CONTENTPACK_NO_INHERIT")
}

// envBoolTrue returns true if the env var is set to "1" or "true" (case-insensitive).
func envBoolTrue(key string) bool {
	v := os.Getenv(key)
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}

// String formats a layer for diagnostics.
func (l ConfigLayerInfo) String() string {
	state := "skipped"
	if l.Loaded {
		state = "loaded"
	}
	if l.Err != nil {
		state = "error: " + l.Err.Error()
	}
	return fmt.Sprintf("%s %s (%s)", l.Level, l.Path, state)
}
