// Package toolchain maps build platforms to the toolchain target the host
// must activate before packaging for them.
package toolchain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bianoble/contentpack/internal/config"
	"github.com/bianoble/contentpack/internal/platform"
)

// Target is a toolchain target identifier as understood by the build host.
type Target string

// Definition is what a platform resolves to: the target to activate and the
// graphics backends that target offers.
type Definition struct {
	Platform platform.Platform
	Target   Target
	Backends []string
}

// Supports reports whether the target offers the given graphics backend.
func (d Definition) Supports(backend string) bool {
	for _, b := range d.Backends {
		if strings.EqualFold(b, backend) {
			return true
		}
	}
	return false
}

// ErrUnmapped is returned by Resolve for a platform with no target.
var ErrUnmapped = errors.New("platform has no toolchain target")

// builtinTargets is the static platform to target table.
var builtinTargets = map[platform.Platform]Definition{
	platform.Windows: {Target: "StandaloneWindows64", Backends: []string{"d3d11", "d3d12", "vulkan", "opengl"}},
	platform.OSX:     {Target: "StandaloneOSX", Backends: []string{"metal", "opengl"}},
	platform.Linux:   {Target: "StandaloneLinux64", Backends: []string{"vulkan", "opengl"}},
	platform.IOS:     {Target: "iOS", Backends: []string{"metal"}},
	platform.Android: {Target: "Android", Backends: []string{"vulkan", "gles3", "gles2"}},
	platform.WebGL:   {Target: "WebGL", Backends: []string{"webgl2", "webgl1"}},
	platform.TVOS:    {Target: "tvOS", Backends: []string{"metal"}},
}

// Map resolves platforms to toolchain definitions.
type Map struct {
	definitions map[platform.Platform]Definition
	custom      map[platform.Platform]bool
}

// NewMap creates a Map with the built-in targets and optional custom
// overrides from the toolchain.targets config section. A custom entry with
// no backends keeps the built-in backend list for that platform.
func NewMap(custom []config.TargetDefinition) (*Map, error) {
	m := &Map{
		definitions: make(map[platform.Platform]Definition, len(builtinTargets)),
		custom:      make(map[platform.Platform]bool),
	}
	for p, d := range builtinTargets {
		d.Platform = p
		m.definitions[p] = d
	}

	for _, td := range custom {
		p, err := platform.Parse(td.Platform)
		if err != nil {
			return nil, fmt.Errorf("toolchain target: %w", err)
		}
		if td.Target == "" {
			return nil, fmt.Errorf("toolchain target for '%s': empty target id", p)
		}
		d := Definition{Platform: p, Target: Target(td.Target), Backends: td.Backends}
		if len(d.Backends) == 0 {
			d.Backends = builtinTargets[p].Backends
		}
		m.definitions[p] = d
		m.custom[p] = true
	}
	return m, nil
}

// Resolve returns the definition for a single platform.
func (m *Map) Resolve(p platform.Platform) (Definition, error) {
	if !p.IsSingle() {
		return Definition{}, fmt.Errorf("resolving '%s': %w", p, ErrUnmapped)
	}
	d, ok := m.definitions[p]
	if !ok {
		return Definition{}, fmt.Errorf("resolving '%s': %w", p, ErrUnmapped)
	}
	return d, nil
}

// Platforms returns every mapped platform in declaration order.
func (m *Map) Platforms() []platform.Platform {
	var all platform.Platform
	for p := range m.definitions {
		all |= p
	}
	return all.Expand()
}

// IsCustom returns whether a platform's target comes from configuration
// rather than the built-in table.
func (m *Map) IsCustom(p platform.Platform) bool {
	return m.custom[p]
}
