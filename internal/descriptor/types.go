// Package descriptor holds the per-asset import descriptors: which bundle an
// asset is affiliated with and which encoding overrides apply to it on each
// platform.
package descriptor

import (
	"path"
	"strings"
)

// AssetPath is a project-relative, slash separated asset identifier.
type AssetPath string

// Kind classifies an asset by what it contains.
type Kind string

const (
	KindTexture  Kind = "texture"
	KindMesh     Kind = "mesh"
	KindAudio    Kind = "audio"
	KindMaterial Kind = "material"
	KindScene    Kind = "scene"
	KindPrefab   Kind = "prefab"
	KindScript   Kind = "script"
	KindOther    Kind = "other"
)

var kindsByExt = map[string]Kind{
	".png":  KindTexture,
	".jpg":  KindTexture,
	".jpeg": KindTexture,
	".tga":  KindTexture,
	".psd":  KindTexture,
	".exr":  KindTexture,
	".fbx":  KindMesh,
	".obj":  KindMesh,
	".gltf": KindMesh,
	".glb":  KindMesh,
	".wav":  KindAudio,
	".ogg":  KindAudio,
	".mp3":  KindAudio,
	".mat":  KindMaterial,
	".cs":   KindScript,
}

// KindOf derives an asset's kind from its file name. Documents use a double
// extension such as "lobby.scene.yaml".
func KindOf(p AssetPath) Kind {
	name := strings.ToLower(path.Base(string(p)))
	switch {
	case strings.HasSuffix(name, ".scene.yaml"), strings.HasSuffix(name, ".unity"):
		return KindScene
	case strings.HasSuffix(name, ".prefab.yaml"), strings.HasSuffix(name, ".prefab"):
		return KindPrefab
	}
	if k, ok := kindsByExt[path.Ext(name)]; ok {
		return k
	}
	return KindOther
}

// EncodingOverride is a platform specific import setting for one asset.
type EncodingOverride struct {
	MaxDimension       int    `yaml:"max_dimension,omitempty" cbor:"1,keyasint,omitempty"`
	UseCompression     bool   `yaml:"use_compression,omitempty" cbor:"2,keyasint,omitempty"`
	CompressionQuality int    `yaml:"compression_quality,omitempty" cbor:"3,keyasint,omitempty"`
	MeshCompression    string `yaml:"mesh_compression,omitempty" cbor:"4,keyasint,omitempty"`
}

// Descriptor is the mutable import record of one asset.
type Descriptor struct {
	Path       AssetPath                   `yaml:"path"`
	Bundle     string                      `yaml:"bundle,omitempty"`
	EditorOnly bool                        `yaml:"editor_only,omitempty"`
	Transient  bool                        `yaml:"transient,omitempty"`
	Overrides  map[string]EncodingOverride `yaml:"overrides,omitempty"`
}

// File is the on-disk form of the registry.
type File struct {
	Version int          `yaml:"version"`
	Assets  []Descriptor `yaml:"assets"`
}

func (d Descriptor) clone() Descriptor {
	if d.Overrides != nil {
		o := make(map[string]EncodingOverride, len(d.Overrides))
		for k, v := range d.Overrides {
			o[k] = v
		}
		d.Overrides = o
	}
	return d
}
