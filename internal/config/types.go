package config

// Config represents the contentpack.yaml configuration file.
type Config struct {
	Version   int                       `yaml:"version"`
	Project   Project                   `yaml:"project,omitempty"`
	Roots     []Root                    `yaml:"roots"`
	Policies  map[string]PlatformPolicy `yaml:"policies,omitempty"`
	Ordering  Ordering                  `yaml:"ordering,omitempty"`
	Toolchain Toolchain                 `yaml:"toolchain,omitempty"`
	Build     BuildSettings             `yaml:"build,omitempty"`
}

// Default locations, relative to the project root.
const (
	DefaultOutputDir = "build/bundles"
	DefaultStateDir  = ".contentpack"
)

// Project holds project-relative directories.
type Project struct {
	Output string `yaml:"output,omitempty"` // bundle output directory
	State  string `yaml:"state,omitempty"`  // descriptor registry and host state
}

// OutputDir returns the configured output directory or the default.
func (p Project) OutputDir() string {
	if p.Output == "" {
		return DefaultOutputDir
	}
	return p.Output
}

// StateDir returns the configured state directory or the default.
func (p Project) StateDir() string {
	if p.State == "" {
		return DefaultStateDir
	}
	return p.State
}

// Root declares one publishable content root.
type Root struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name,omitempty"`
	Kind       string   `yaml:"kind"`     // "scene", "prefab"
	Document   string   `yaml:"document"` // authored representation, project-relative
	Platforms  []string `yaml:"platforms,omitempty"`
	ExtraRoots []string `yaml:"extra_roots,omitempty"` // ids of shared roots bundled alongside
}

// PlatformPolicy is the encoding policy applied when building one platform.
type PlatformPolicy struct {
	OverrideDefaults  bool              `yaml:"override_defaults"`
	Texture           TexturePolicy     `yaml:"texture,omitempty"`
	MeshCompression   string            `yaml:"mesh_compression,omitempty"` // "off", "low", "medium", "high"
	GraphicsBackends  []string          `yaml:"graphics_backends,omitempty"`
	Settings          map[string]string `yaml:"settings,omitempty"`
	BundleCompression string            `yaml:"bundle_compression,omitempty"` // "none", "lz4", "zstd"
}

// TexturePolicy caps and compresses texture-like assets.
type TexturePolicy struct {
	MaxDimension int  `yaml:"max_dimension,omitempty"`
	Compression  bool `yaml:"compression"`
	Quality      int  `yaml:"quality,omitempty"`
}

// Ordering overrides the canonical build order slots.
type Ordering struct {
	Priority []string `yaml:"priority,omitempty"`
	Terminal []string `yaml:"terminal,omitempty"`
}

// Toolchain describes the build host installation.
type Toolchain struct {
	Installed []string           `yaml:"installed,omitempty"` // platforms the host can build; empty = all
	Targets   []TargetDefinition `yaml:"targets,omitempty"`
	HotReload []string           `yaml:"hot_reload,omitempty"` // directories watched for compiled-code changes
}

// TargetDefinition remaps a platform to a toolchain target.
type TargetDefinition struct {
	Platform string   `yaml:"platform"`
	Target   string   `yaml:"target"`
	Backends []string `yaml:"backends,omitempty"`
}

// BuildSettings holds orchestrator defaults.
type BuildSettings struct {
	StopOnFailure bool `yaml:"stop_on_failure"`
}
