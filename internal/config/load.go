package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bianoble/contentpack/internal/platform"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a contentpack.yaml configuration file.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// read parses a config file without validating it. Partial layers are
// validated only after merging.
func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

var (
	rootKinds          = []string{"scene", "prefab"}
	meshCompressions   = []string{"off", "low", "medium", "high"}
	bundleCompressions = []string{"none", "lz4", "zstd"}
)

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}

	if len(cfg.Roots) == 0 {
		errs = append(errs, "at least one content root is required")
	}

	ids := make(map[string]bool)
	for _, r := range cfg.Roots {
		if r.ID != "" {
			ids[r.ID] = true
		}
	}

	seen := make(map[string]bool)
	for i, r := range cfg.Roots {
		prefix := fmt.Sprintf("root[%d]", i)
		if r.ID != "" {
			prefix = fmt.Sprintf("root '%s'", r.ID)
		}

		switch {
		case r.ID == "":
			errs = append(errs, fmt.Sprintf("%s: 'id' is required", prefix))
		case strings.ContainsAny(r.ID, "/\\ "):
			errs = append(errs, fmt.Sprintf("%s: 'id' must not contain slashes or spaces", prefix))
		case seen[r.ID]:
			errs = append(errs, fmt.Sprintf("%s: duplicate root id '%s'", prefix, r.ID))
		default:
			seen[r.ID] = true
		}

		if !oneOf(r.Kind, rootKinds) {
			errs = append(errs, fmt.Sprintf("%s: invalid kind '%s' — must be one of: %s", prefix, r.Kind, strings.Join(rootKinds, ", ")))
		}
		if r.Document == "" {
			errs = append(errs, fmt.Sprintf("%s: 'document' is required", prefix))
		}
		errs = append(errs, validatePlatforms(prefix+": platforms", r.Platforms)...)

		for _, extra := range r.ExtraRoots {
			if extra == r.ID {
				errs = append(errs, fmt.Sprintf("%s: extra root '%s' refers to itself", prefix, extra))
			} else if !ids[extra] {
				errs = append(errs, fmt.Sprintf("%s: references undefined extra root '%s'", prefix, extra))
			}
		}
	}

	for name, pol := range cfg.Policies {
		prefix := fmt.Sprintf("policy '%s'", name)
		if _, err := platform.Parse(name); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
		}
		if pol.Texture.Quality < 0 || pol.Texture.Quality > 100 {
			errs = append(errs, fmt.Sprintf("%s: texture quality %d out of range 0-100", prefix, pol.Texture.Quality))
		}
		if pol.Texture.MaxDimension < 0 {
			errs = append(errs, fmt.Sprintf("%s: texture max_dimension must not be negative", prefix))
		}
		if pol.MeshCompression != "" && !oneOf(pol.MeshCompression, meshCompressions) {
			errs = append(errs, fmt.Sprintf("%s: invalid mesh_compression '%s' — must be one of: %s", prefix, pol.MeshCompression, strings.Join(meshCompressions, ", ")))
		}
		if pol.BundleCompression != "" && !oneOf(pol.BundleCompression, bundleCompressions) {
			errs = append(errs, fmt.Sprintf("%s: invalid bundle_compression '%s' — must be one of: %s", prefix, pol.BundleCompression, strings.Join(bundleCompressions, ", ")))
		}
	}

	errs = append(errs, validatePlatforms("ordering.priority", cfg.Ordering.Priority)...)
	errs = append(errs, validatePlatforms("ordering.terminal", cfg.Ordering.Terminal)...)
	errs = append(errs, validatePlatforms("toolchain.installed", cfg.Toolchain.Installed)...)

	mapped := make(map[string]bool)
	for i, td := range cfg.Toolchain.Targets {
		prefix := fmt.Sprintf("toolchain.targets[%d]", i)
		p, err := platform.Parse(td.Platform)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
		} else if mapped[p.String()] {
			errs = append(errs, fmt.Sprintf("%s: duplicate target for platform '%s'", prefix, p))
		} else {
			mapped[p.String()] = true
		}
		if td.Target == "" {
			errs = append(errs, fmt.Sprintf("%s: 'target' is required", prefix))
		}
	}

	for i, dir := range cfg.Toolchain.HotReload {
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, fmt.Sprintf("toolchain.hot_reload[%d]: empty directory", i))
		}
	}

	return errs
}

func validatePlatforms(prefix string, names []string) []string {
	var errs []string
	for _, n := range names {
		if _, err := platform.ParseList([]string{n}); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
		}
	}
	return errs
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Root returns the root with the given id.
func (c *Config) Root(id string) (Root, bool) {
	for _, r := range c.Roots {
		if r.ID == id {
			return r, true
		}
	}
	return Root{}, false
}

// PlatformOrdering returns the configured ordering, falling back to the
// default slots when none is set.
func (c *Config) PlatformOrdering() platform.Ordering {
	o := platform.DefaultOrdering
	if len(c.Ordering.Priority) > 0 {
		ps, _ := platform.ParseList(c.Ordering.Priority)
		o.Priority = platform.Union(ps...)
	}
	if len(c.Ordering.Terminal) > 0 {
		ps, _ := platform.ParseList(c.Ordering.Terminal)
		o.Terminal = platform.Union(ps...)
	}
	return o
}
