package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/contentpack/internal/config"
	"github.com/bianoble/contentpack/internal/descriptor"
	"github.com/bianoble/contentpack/internal/platform"
)

func TestDefaultTableCoversEveryPlatform(t *testing.T) {
	table := DefaultTable()
	for _, p := range platform.All.Expand() {
		pol := table.Lookup(p)
		assert.Equal(t, p, pol.Platform)
		assert.NotEmpty(t, pol.GraphicsBackends, "platform %s", p)
		assert.NotEmpty(t, pol.Compression, "platform %s", p)
	}
	assert.False(t, table.Lookup(platform.Windows).OverrideDefaults)
	assert.True(t, table.Lookup(platform.IOS).OverrideDefaults)
}

func TestOverride(t *testing.T) {
	pol := Policy{MaxDimension: 512, UseCompression: true, Quality: 30, MeshCompression: "low"}
	assert.Equal(t, descriptor.EncodingOverride{
		MaxDimension:       512,
		UseCompression:     true,
		CompressionQuality: 30,
		MeshCompression:    "low",
	}, pol.Override())
}

func TestOverridable(t *testing.T) {
	assert.True(t, Overridable(descriptor.KindTexture))
	assert.True(t, Overridable(descriptor.KindMesh))
	assert.False(t, Overridable(descriptor.KindAudio))
	assert.False(t, Overridable(descriptor.KindScene))
	assert.False(t, Overridable(descriptor.KindScript))
}

func TestNewTableReplacesBuiltin(t *testing.T) {
	table, err := NewTable(map[string]config.PlatformPolicy{
		"webgl": {
			Texture:          config.TexturePolicy{MaxDimension: 256},
			GraphicsBackends: []string{"webgl1"},
		},
	})
	require.NoError(t, err)

	pol := table.Lookup(platform.WebGL)
	assert.False(t, pol.OverrideDefaults)
	assert.Equal(t, 256, pol.MaxDimension)
	assert.Equal(t, []string{"webgl1"}, pol.GraphicsBackends)
	assert.Equal(t, CompressionNone, pol.Compression)

	assert.True(t, table.Lookup(platform.IOS).OverrideDefaults, "other platforms keep defaults")
}

func TestNewTableRejectsUnknownPlatform(t *testing.T) {
	_, err := NewTable(map[string]config.PlatformPolicy{"n64": {}})
	require.Error(t, err)
}

func TestLookupUnknownIsEmpty(t *testing.T) {
	table := &Table{policies: map[platform.Platform]Policy{}}
	pol := table.Lookup(platform.Linux)
	assert.False(t, pol.OverrideDefaults)
	assert.Equal(t, CompressionNone, pol.Compression)
}
