package descriptor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const exampleDescriptors = `version: 1
assets:
  - path: textures/logo.png
    bundle: lobby_webgl
    overrides:
      webgl:
        max_dimension: 1024
        use_compression: true
        compression_quality: 50
  - path: meshes/chair.fbx
  - path: editor/gizmo.png
    editor_only: true
`

func TestLoadValidDescriptors(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(exampleDescriptors), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Assets) != 3 {
		t.Fatalf("assets = %d, want 3", len(f.Assets))
	}
	if f.Assets[0].Overrides["webgl"].MaxDimension != 1024 {
		t.Errorf("override = %+v", f.Assets[0].Overrides)
	}
	if !f.Assets[2].EditorOnly {
		t.Error("editor_only not parsed")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/descriptors.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateErrors(t *testing.T) {
	f := &File{
		Version: 3,
		Assets: []Descriptor{
			{Path: ""},
			{Path: "a.png", Overrides: map[string]EncodingOverride{
				"ps2": {},
				"ios": {CompressionQuality: 120},
				"osx": {MeshCompression: "max"},
			}},
			{Path: "a.png"},
		},
	}

	joined := strings.Join(Validate(f), "\n")
	for _, want := range []string{
		"unsupported version 3",
		"'path' is required",
		"unknown platform 'ps2'",
		"quality 120 out of range",
		"invalid mesh_compression 'max'",
		"duplicate asset path",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", FileName)

	if err := Save(path, &File{Version: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	leftover, err := filepath.Glob(filepath.Join(dir, "state", "*.tmp"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(leftover) != 0 {
		t.Errorf("temp files should not remain after save: %v", leftover)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load after Save: %v", err)
	}
}
