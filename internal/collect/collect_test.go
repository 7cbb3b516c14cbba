package collect

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/contentpack/internal/descriptor"
)

type mapGraph map[descriptor.AssetPath][]descriptor.AssetPath

func (g mapGraph) Dependencies(_ context.Context, p descriptor.AssetPath) ([]descriptor.AssetPath, error) {
	deps, ok := g[p]
	if !ok {
		return nil, fmt.Errorf("asset '%s': %w", p, fs.ErrNotExist)
	}
	return deps, nil
}

func TestCollectClosure(t *testing.T) {
	g := mapGraph{
		"scenes/lobby.scene.yaml":  {"prefabs/door.prefab.yaml", "textures/sky.png", "scripts/Lobby.cs"},
		"prefabs/door.prefab.yaml": {"meshes/door.fbx", "materials/wood.mat", "Editor/gizmo.png"},
		"materials/wood.mat":       {"textures/wood.png", "textures/sky.png"},
		"meshes/door.fbx":          nil,
		"textures/sky.png":         nil,
		"textures/wood.png":        nil,
		"scripts/Lobby.cs":         nil,
		"Editor/gizmo.png":         {"textures/only-editor.png"},
		"textures/only-editor.png": nil,
	}
	c := &Collector{Graph: g, Exclusions: descriptor.New()}

	got, err := c.Collect(context.Background(), "scenes/lobby.scene.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, []descriptor.AssetPath{
		"materials/wood.mat",
		"meshes/door.fbx",
		"prefabs/door.prefab.yaml",
		"scenes/lobby.scene.yaml",
		"textures/sky.png",
		"textures/wood.png",
	}, got)
}

func TestCollectIncludesExtraRoots(t *testing.T) {
	g := mapGraph{
		"scenes/lobby.scene.yaml":     {"textures/a.png"},
		"prefabs/globals.prefab.yaml": {"audio/theme.ogg", "textures/a.png"},
		"textures/a.png":              nil,
		"audio/theme.ogg":             nil,
	}
	c := &Collector{Graph: g}

	got, err := c.Collect(context.Background(), "scenes/lobby.scene.yaml", []descriptor.AssetPath{"prefabs/globals.prefab.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []descriptor.AssetPath{
		"audio/theme.ogg",
		"prefabs/globals.prefab.yaml",
		"scenes/lobby.scene.yaml",
		"textures/a.png",
	}, got)
}

func TestCollectSkipsExcludedDescriptors(t *testing.T) {
	reg := descriptor.New()
	reg.SetFlags("textures/debug.png", true, false)
	reg.SetFlags("cache/baked.bin", false, true)
	g := mapGraph{
		"root.prefab.yaml":   {"textures/debug.png", "cache/baked.bin", "textures/ok.png"},
		"textures/debug.png": nil,
		"cache/baked.bin":    nil,
		"textures/ok.png":    nil,
	}
	c := &Collector{Graph: g, Exclusions: reg}

	got, err := c.Collect(context.Background(), "root.prefab.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, []descriptor.AssetPath{"root.prefab.yaml", "textures/ok.png"}, got)
}

func TestCollectToleratesCyclesAndMissing(t *testing.T) {
	g := mapGraph{
		"a.prefab.yaml": {"b.prefab.yaml", "missing.png"},
		"b.prefab.yaml": {"a.prefab.yaml"},
	}
	c := &Collector{Graph: g}

	got, err := c.Collect(context.Background(), "a.prefab.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, []descriptor.AssetPath{"a.prefab.yaml", "b.prefab.yaml"}, got)
}

func TestCollectIsDeterministic(t *testing.T) {
	g := mapGraph{
		"r.prefab.yaml": {"z.png", "m.png", "a.png"},
		"z.png":         nil,
		"m.png":         nil,
		"a.png":         nil,
	}
	c := &Collector{Graph: g}
	first, err := c.Collect(context.Background(), "r.prefab.yaml", nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Collect(context.Background(), "r.prefab.yaml", nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCollectEmptyWhenRootMissing(t *testing.T) {
	c := &Collector{Graph: mapGraph{}}
	got, err := c.Collect(context.Background(), "gone.scene.yaml", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingGraph struct{}

func (failingGraph) Dependencies(context.Context, descriptor.AssetPath) ([]descriptor.AssetPath, error) {
	return nil, errors.New("disk on fire")
}

func TestCollectPropagatesGraphErrors(t *testing.T) {
	c := &Collector{Graph: failingGraph{}}
	_, err := c.Collect(context.Background(), "r.prefab.yaml", nil)
	assert.EqualError(t, err, "disk on fire")
}

func TestCollectHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Collector{Graph: mapGraph{"r.prefab.yaml": nil}}
	_, err := c.Collect(ctx, "r.prefab.yaml", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInEditorFolder(t *testing.T) {
	assert.True(t, inEditorFolder("Assets/Editor/tool.png"))
	assert.False(t, inEditorFolder("Assets/Editor.png"))
	assert.False(t, inEditorFolder("Assets/EditorTools/x.png"))
}
