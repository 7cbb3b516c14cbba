package config

import (
	"strings"
	"testing"
)

func TestMergeNilConfigs(t *testing.T) {
	cfg := &Config{Version: 1}
	if got, _ := Merge(nil, cfg); got != cfg {
		t.Error("Merge(nil, cfg) should return overlay")
	}
	if got, _ := Merge(cfg, nil); got != cfg {
		t.Error("Merge(cfg, nil) should return base")
	}
}

func TestMergeVersionMismatch(t *testing.T) {
	_, err := Merge(&Config{Version: 1}, &Config{Version: 2})
	if err == nil {
		t.Fatal("expected version mismatch error")
	}
	if !strings.Contains(err.Error(), "version mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMergeRootsByID(t *testing.T) {
	base := &Config{Roots: []Root{
		{ID: "lobby", Kind: "scene", Document: "old.yaml"},
		{ID: "globals", Kind: "prefab", Document: "g.yaml"},
	}}
	overlay := &Config{Version: 1, Roots: []Root{
		{ID: "lobby", Kind: "scene", Document: "new.yaml"},
	}}

	got, err := Merge(base, overlay)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	if len(got.Roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(got.Roots))
	}
	lobby, _ := got.Root("lobby")
	if lobby.Document != "new.yaml" {
		t.Errorf("lobby document = %q, want overlay value", lobby.Document)
	}
}

func TestMergePoliciesAndToolchain(t *testing.T) {
	base := &Config{
		Policies: map[string]PlatformPolicy{
			"ios":     {MeshCompression: "low"},
			"android": {MeshCompression: "high"},
		},
		Toolchain: Toolchain{
			Installed: []string{"windows"},
			Targets:   []TargetDefinition{{Platform: "windows", Target: "A"}, {Platform: "linux", Target: "L"}},
			HotReload: []string{"base/"},
		},
		Ordering: Ordering{Priority: []string{"ios"}, Terminal: []string{"webgl"}},
	}
	overlay := &Config{
		Policies:  map[string]PlatformPolicy{"ios": {MeshCompression: "medium"}},
		Toolchain: Toolchain{Targets: []TargetDefinition{{Platform: "windows", Target: "B"}}, HotReload: []string{"proj/"}},
		Ordering:  Ordering{Terminal: []string{"android"}},
		Build:     BuildSettings{StopOnFailure: true},
	}

	got, err := Merge(base, overlay)
	if err != nil {
		t.Fatal(err)
	}
	if got.Policies["ios"].MeshCompression != "medium" || got.Policies["android"].MeshCompression != "high" {
		t.Errorf("policies = %+v", got.Policies)
	}
	if len(got.Toolchain.Installed) != 1 || got.Toolchain.Installed[0] != "windows" {
		t.Errorf("installed = %v, want base value kept", got.Toolchain.Installed)
	}
	if len(got.Toolchain.Targets) != 2 || got.Toolchain.Targets[1].Target != "B" {
		t.Errorf("targets = %+v", got.Toolchain.Targets)
	}
	if strings.Join(got.Toolchain.HotReload, ",") != "base/,proj/" {
		t.Errorf("hot_reload = %v", got.Toolchain.HotReload)
	}
	if got.Ordering.Priority[0] != "ios" || got.Ordering.Terminal[0] != "android" {
		t.Errorf("ordering = %+v", got.Ordering)
	}
	if !got.Build.StopOnFailure {
		t.Error("stop_on_failure should be enabled by overlay")
	}
}

func TestMergeAllEmpty(t *testing.T) {
	if _, err := MergeAll(nil); err == nil {
		t.Fatal("expected error merging no configs")
	}
}
