package contentpack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/project"
)

const testConfig = `version: 1
roots:
  - id: lobby
    name: Lobby
    kind: scene
    document: scenes/lobby.scene.yaml
    platforms: [windows, webgl, tvos]
    extra_roots: [globals]
  - id: globals
    kind: prefab
    document: prefabs/globals.prefab.yaml
toolchain:
  installed: [windows, webgl, android, ios]
`

var testFiles = map[string]string{
	"scenes/lobby.scene.yaml":     "dependencies:\n  - textures/wall.png\n  - meshes/crate.fbx\n  - scripts/lobby.cs\n  - Editor/gizmo.png\n",
	"prefabs/globals.prefab.yaml": "dependencies:\n  - audio/theme.ogg\n",
	"textures/wall.png":           "png-bytes",
	"meshes/crate.fbx":            "fbx-bytes",
	"scripts/lobby.cs":            "class Lobby {}",
	"Editor/gizmo.png":            "gizmo",
	"audio/theme.ogg":             "ogg-bytes",
}

// setupProject writes the config and the authored files and returns the
// config path.
func setupProject(t *testing.T, dir string) string {
	t.Helper()
	for name, content := range testFiles {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfgPath := filepath.Join(dir, "contentpack.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

// newTestClient creates a client with isolated temp paths.
func newTestClient(t *testing.T, dir, cfgPath string) *Client {
	t.Helper()
	client, err := New(Options{
		ProjectRoot: dir,
		ConfigPath:  cfgPath,
		NoInherit:   true,
		CacheDir:    filepath.Join(t.TempDir(), "cache"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewDefaultProjectRoot(t *testing.T) {
	dir := t.TempDir()
	cfgPath := setupProject(t, dir)

	client, err := New(Options{
		ConfigPath: cfgPath,
		NoInherit:  true,
		CacheDir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	want, _ := filepath.EvalSymlinks(dir)
	if got := client.project.Files.Dir(); got != want {
		t.Errorf("project root = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, ".contentpack", "batches.db")); err != nil {
		t.Errorf("batch store not created: %v", err)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "contentpack.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{ConfigPath: cfgPath, NoInherit: true, CacheDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestNewMissingConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Options{ConfigPath: filepath.Join(dir, "contentpack.yaml"), NoInherit: true, CacheDir: t.TempDir()})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestBuildWritesBundles(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))

	report, err := client.Build(context.Background(), "lobby", BuildOptions{
		Platforms: []Platform{WebGL, Windows},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.Succeeded) != 2 || len(report.Failed) != 0 {
		t.Fatalf("succeeded=%d failed=%d, want 2/0", len(report.Succeeded), len(report.Failed))
	}
	if report.Succeeded[0].Platform != Windows {
		t.Errorf("first platform = %s, want windows (webgl builds last)", report.Succeeded[0].Platform)
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	bundlePath := filepath.Join(resolved, "build", "bundles", "windows", "lobby_windows.bundle")
	if report.Succeeded[0].OutputArtifactPath != bundlePath {
		t.Errorf("artifact path = %q, want %q", report.Succeeded[0].OutputArtifactPath, bundlePath)
	}

	b, err := client.Inspect(bundlePath)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	var paths []descriptor.AssetPath
	for _, e := range b.Manifest.Entries {
		paths = append(paths, e.Path)
	}
	want := []descriptor.AssetPath{
		"audio/theme.ogg",
		"meshes/crate.fbx",
		"prefabs/globals.prefab.yaml",
		"scenes/lobby.scene.yaml",
		"textures/wall.png",
	}
	if len(paths) != len(want) {
		t.Fatalf("bundle entries = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("entry[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
	if data, ok := b.Asset("textures/wall.png"); !ok || string(data) != "png-bytes" {
		t.Errorf("wall.png = %q, %v", data, ok)
	}

	env, err := client.Environment()
	if err != nil {
		t.Fatal(err)
	}
	if env.Active != "" {
		t.Errorf("environment not restored: active = %q", env.Active)
	}
	if _, err := os.Stat(filepath.Join(dir, ".contentpack", "descriptors.yaml")); err != nil {
		t.Errorf("descriptors not saved: %v", err)
	}
}

func TestBuildUnsupportedPlatform(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))

	report, err := client.Build(context.Background(), "lobby", BuildOptions{
		Platforms: []Platform{TVOS},
	})
	if !errors.Is(err, ErrNoSuccessfulBuilds) {
		t.Fatalf("expected ErrNoSuccessfulBuilds, got %v", err)
	}
	if len(report.Failed) != 1 || report.Failed[0].ErrorKind != "platform_unsupported" {
		t.Errorf("failed = %+v", report.Failed)
	}
}

func TestInspectByDigest(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))

	report, err := client.Build(context.Background(), "globals", BuildOptions{
		Platforms: []Platform{Android},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	b, err := client.Inspect(report.Succeeded[0].Digest.String())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if b.Manifest.Bundle != "globals_android" {
		t.Errorf("bundle = %q", b.Manifest.Bundle)
	}
	if b.Manifest.Target != "Android" {
		t.Errorf("target = %q", b.Manifest.Target)
	}
}

func TestBuildBatch(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))

	if _, err := client.Batches().Create("nightly"); err != nil {
		t.Fatal(err)
	}
	if err := client.Batches().SetSelection("nightly", []string{"lobby", "globals"}); err != nil {
		t.Fatal(err)
	}

	out, err := client.BuildBatch(context.Background(), "nightly", BuildOptions{
		Platforms: []Platform{Windows},
	})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(out.Results))
	}
	if out.Results[0].Root != "globals" || out.Results[1].Root != "lobby" {
		t.Errorf("roots built out of order: %s, %s", out.Results[0].Root, out.Results[1].Root)
	}
}

func TestBuildBatchStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))

	if err := client.Batches().SetSelection("Default", []string{"lobby", "globals"}); err != nil {
		t.Fatal(err)
	}
	if err := client.Batches().SetStopOnFailure("Default", true); err != nil {
		t.Fatal(err)
	}

	// globals builds first; tvos is not installed so it fails.
	out, err := client.BuildBatch(context.Background(), "Default", BuildOptions{
		Platforms: []Platform{TVOS},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(out.Results) != 1 {
		t.Errorf("results = %d, want 1", len(out.Results))
	}
}

func TestRelease(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))

	if _, err := client.Build(context.Background(), "lobby", BuildOptions{Platforms: []Platform{Windows}}); err != nil {
		t.Fatal(err)
	}
	n, err := client.Release("lobby")
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("released %d assets, want 5", n)
	}

	if _, err := client.Release("missing"); !errors.Is(err, project.ErrUnknownRoot) {
		t.Errorf("expected ErrUnknownRoot, got %v", err)
	}
}

func TestPlatforms(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))

	byName := make(map[string]PlatformInfo)
	for _, info := range client.Platforms() {
		byName[info.Platform.String()] = info
	}
	if !byName["windows"].Installed {
		t.Error("windows should be installed")
	}
	if byName["tvos"].Installed {
		t.Error("tvos should not be installed")
	}
	if byName["ios"].Slot != "first" || byName["webgl"].Slot != "last" {
		t.Errorf("slots: ios=%q webgl=%q", byName["ios"].Slot, byName["webgl"].Slot)
	}
}

func TestCloseTwice(t *testing.T) {
	dir := t.TempDir()
	client := newTestClient(t, dir, setupProject(t, dir))
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
}
