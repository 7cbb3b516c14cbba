// Package policy holds the per-platform encoding policy table.
package policy

import (
	"fmt"
	"sort"

	"github.com/bianoble/contentpack/internal/config"
	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/platform"
)

// Bundle compression modes.
const (
	CompressionNone = "none"
	CompressionLZ4  = "lz4"
	CompressionZstd = "zstd"
)

// Policy is the encoding policy for one platform.
type Policy struct {
	Platform         platform.Platform
	OverrideDefaults bool
	MaxDimension     int
	UseCompression   bool
	Quality          int
	MeshCompression  string
	GraphicsBackends []string
	Settings         map[string]string
	Compression      string
}

// Override returns the per-asset encoding override the policy describes.
func (p Policy) Override() descriptor.EncodingOverride {
	return descriptor.EncodingOverride{
		MaxDimension:       p.MaxDimension,
		UseCompression:     p.UseCompression,
		CompressionQuality: p.Quality,
		MeshCompression:    p.MeshCompression,
	}
}

// Overridable reports whether the policy applies to assets of kind k.
func Overridable(k descriptor.Kind) bool {
	return k == descriptor.KindTexture || k == descriptor.KindMesh
}

// DefaultTable returns the built-in policies. Desktop platforms keep asset
// settings untouched; mobile and web platforms cap and compress.
func DefaultTable() *Table {
	t := &Table{policies: make(map[platform.Platform]Policy)}
	for _, p := range []Policy{
		{Platform: platform.Windows, GraphicsBackends: []string{"d3d11"}, Compression: CompressionLZ4},
		{Platform: platform.OSX, GraphicsBackends: []string{"metal"}, Compression: CompressionLZ4},
		{Platform: platform.Linux, GraphicsBackends: []string{"vulkan"}, Compression: CompressionLZ4},
		{
			Platform:         platform.IOS,
			OverrideDefaults: true,
			MaxDimension:     2048,
			UseCompression:   true,
			Quality:          50,
			MeshCompression:  "medium",
			GraphicsBackends: []string{"metal"},
			Settings:         map[string]string{"architecture": "arm64"},
			Compression:      CompressionLZ4,
		},
		{
			Platform:         platform.Android,
			OverrideDefaults: true,
			MaxDimension:     2048,
			UseCompression:   true,
			Quality:          50,
			MeshCompression:  "medium",
			GraphicsBackends: []string{"vulkan", "gles3"},
			Settings:         map[string]string{"architecture": "arm64", "texture_format": "astc"},
			Compression:      CompressionLZ4,
		},
		{
			Platform:         platform.WebGL,
			OverrideDefaults: true,
			MaxDimension:     1024,
			UseCompression:   true,
			Quality:          40,
			MeshCompression:  "high",
			GraphicsBackends: []string{"webgl2"},
			Settings:         map[string]string{"exceptions": "none"},
			Compression:      CompressionZstd,
		},
		{
			Platform:         platform.TVOS,
			OverrideDefaults: true,
			MaxDimension:     2048,
			UseCompression:   true,
			Quality:          50,
			MeshCompression:  "medium",
			GraphicsBackends: []string{"metal"},
			Compression:      CompressionLZ4,
		},
	} {
		t.policies[p.Platform] = p
	}
	return t
}

// Table maps platforms to policies.
type Table struct {
	policies map[platform.Platform]Policy
}

// NewTable returns the default table with configured policies replacing the
// built-in entry for their platform.
func NewTable(configured map[string]config.PlatformPolicy) (*Table, error) {
	t := DefaultTable()

	names := make([]string, 0, len(configured))
	for name := range configured {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, err := platform.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		cp := configured[name]
		pol := Policy{
			Platform:         p,
			OverrideDefaults: cp.OverrideDefaults,
			MaxDimension:     cp.Texture.MaxDimension,
			UseCompression:   cp.Texture.Compression,
			Quality:          cp.Texture.Quality,
			MeshCompression:  cp.MeshCompression,
			GraphicsBackends: cp.GraphicsBackends,
			Settings:         cp.Settings,
			Compression:      cp.BundleCompression,
		}
		if pol.Compression == "" {
			pol.Compression = CompressionNone
		}
		t.policies[p] = pol
	}
	return t, nil
}

// Lookup returns the policy for a single platform. Platforms without an
// entry get an empty policy that overrides nothing.
func (t *Table) Lookup(p platform.Platform) Policy {
	if pol, ok := t.policies[p]; ok {
		return pol
	}
	return Policy{Platform: p, Compression: CompressionNone}
}
