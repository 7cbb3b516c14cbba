package toolchain

import (
	"errors"
	"testing"

	"github.com/bianoble/contentpack/internal/config"
	"github.com/bianoble/contentpack/internal/platform"
)

func TestBuiltinTargetResolution(t *testing.T) {
	m, err := NewMap(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		p    platform.Platform
		want Target
	}{
		{platform.Windows, "StandaloneWindows64"},
		{platform.OSX, "StandaloneOSX"},
		{platform.Linux, "StandaloneLinux64"},
		{platform.IOS, "iOS"},
		{platform.Android, "Android"},
		{platform.WebGL, "WebGL"},
		{platform.TVOS, "tvOS"},
	}

	for _, tt := range tests {
		got, err := m.Resolve(tt.p)
		if err != nil {
			t.Errorf("Resolve(%s): %v", tt.p, err)
			continue
		}
		if got.Target != tt.want {
			t.Errorf("Resolve(%s) = %q, want %q", tt.p, got.Target, tt.want)
		}
		if got.Platform != tt.p {
			t.Errorf("Resolve(%s).Platform = %s", tt.p, got.Platform)
		}
	}
}

func TestResolveCombinedPlatform(t *testing.T) {
	m, _ := NewMap(nil)
	_, err := m.Resolve(platform.IOS | platform.Android)
	if !errors.Is(err, ErrUnmapped) {
		t.Errorf("expected ErrUnmapped, got %v", err)
	}
}

func TestCustomTargetOverridesBuiltin(t *testing.T) {
	m, err := NewMap([]config.TargetDefinition{
		{Platform: "windows", Target: "StandaloneWindows"},
		{Platform: "android", Target: "AndroidTV", Backends: []string{"gles3"}},
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	win, _ := m.Resolve(platform.Windows)
	if win.Target != "StandaloneWindows" {
		t.Errorf("windows target = %q", win.Target)
	}
	if !win.Supports("d3d11") {
		t.Error("custom target without backends should keep built-in backends")
	}

	and, _ := m.Resolve(platform.Android)
	if and.Supports("vulkan") {
		t.Error("custom backends should replace built-in list")
	}
	if !m.IsCustom(platform.Android) || m.IsCustom(platform.IOS) {
		t.Error("IsCustom mismatch")
	}
}

func TestCustomTargetInvalid(t *testing.T) {
	if _, err := NewMap([]config.TargetDefinition{{Platform: "saturn", Target: "X"}}); err == nil {
		t.Error("expected error for unknown platform")
	}
	if _, err := NewMap([]config.TargetDefinition{{Platform: "ios"}}); err == nil {
		t.Error("expected error for empty target")
	}
}

func TestPlatformsInDeclarationOrder(t *testing.T) {
	m, _ := NewMap(nil)
	got := m.Platforms()
	want := []platform.Platform{platform.Windows, platform.OSX, platform.Linux, platform.IOS, platform.Android, platform.WebGL, platform.TVOS}
	if len(got) != len(want) {
		t.Fatalf("Platforms() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Platforms()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSupportsCaseInsensitive(t *testing.T) {
	d := Definition{Backends: []string{"Metal"}}
	if !d.Supports("metal") {
		t.Error("Supports should be case-insensitive")
	}
	if d.Supports("vulkan") {
		t.Error("vulkan should not be supported")
	}
}
