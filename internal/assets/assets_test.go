package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowscene/core"
	sceneio "snowscene/io"
	"snowscene/scene"
)

func TestGenerateLoadsAsScene(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Subdivisions: 4, TextureSize: 8, Manifest: true}
	require.NoError(t, Generate(dir, opts, core.NewNopLogger()))

	m, err := sceneio.LoadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, dir, m.BaseDir)

	s, err := scene.Loader{Overrides: m.Overrides()}.Load(m.MeshPath(), m.TexturePaths())
	require.NoError(t, err)
	require.Len(t, s.Models, 1)

	model := s.Models[0]
	assert.Equal(t, DiffuseName, model.Textures[scene.SlotDiffuse])
	assert.Equal(t, NormalName, model.Textures[scene.SlotNormal])
	assert.Len(t, model.Mesh.Indices, 4*4*6)
	assert.Len(t, model.Mesh.Vertices, 5*5)

	require.Contains(t, s.Textures, DiffuseName)
	assert.Equal(t, 8, s.Textures[DiffuseName].Width)

	// Unit terrain: x and z span [-0.5, 0.5].
	b := s.Bounds()
	require.True(t, b.Valid)
	assert.InDelta(t, -0.5, b.Min.X(), 1e-5)
	assert.InDelta(t, 0.5, b.Max.Z(), 1e-5)
	assert.Less(t, b.Size().Y(), float32(0.2))
}

func TestGenerateWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Generate(dir, Options{Subdivisions: 1, TextureSize: 2}, core.NewNopLogger()))
	_, err := os.Stat(filepath.Join(dir, ManifestFile))
	assert.True(t, os.IsNotExist(err))

	mtl, err := os.ReadFile(filepath.Join(dir, MTLFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(mtl), "map_Kd "+DiffuseName))
	assert.True(t, strings.Contains(string(mtl), "map_Bump "+NormalName))
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	err := Generate(t.TempDir(), Options{Subdivisions: 0, TextureSize: 8}, core.NewNopLogger())
	assert.ErrorIs(t, err, core.ErrInvariant)
}

func TestNormalImageFacesUp(t *testing.T) {
	img := NormalImage(16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := img.NRGBAAt(x, y)
			assert.Greater(t, c.B, uint8(200), "normal at %d,%d tilts too far", x, y)
		}
	}
}

func TestDiffuseImageIsSnow(t *testing.T) {
	img := DiffuseImage(16)
	c := img.NRGBAAt(8, 8)
	assert.Equal(t, uint8(255), c.A)
	assert.GreaterOrEqual(t, c.B, c.R, "snow leans blue, never warm")
}
