package io

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowscene/core"
	"snowscene/scene"
)

func TestDefaultManifestIsValid(t *testing.T) {
	m := DefaultManifest()
	require.NoError(t, m.Validate())
	assert.Equal(t, 8192, m.Particles.Count)
	assert.Equal(t, float32(-2), m.Particles.MinY)
	assert.Equal(t, filepath.Join("assets", "terrain.obj"), m.MeshPath())
	assert.Equal(t, "", m.SpritePath())

	cam := m.NewCamera()
	assert.InDelta(t, math.Pi/4, cam.FOV, 1e-6)
	assert.Equal(t, mgl32.Vec3{0, 3, 10}, cam.Position)

	tr := m.TerrainTransform()
	assert.Equal(t, mgl32.Vec3{0, -1.5, 0}, tr.Position)
	assert.Equal(t, mgl32.QuatIdent(), tr.Rotation)

	ov := m.Overrides()
	require.Len(t, ov, 1)
	assert.Equal(t, "terraindiff", ov[0].Textures[scene.SlotDiffuse])
	assert.Equal(t, "terrainnorm", ov[0].Textures[scene.SlotNormal])
	assert.Empty(t, ov[0].Textures[scene.SlotSpecular])
}

func TestSaveLoadManifestResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	m := DefaultManifest()
	seed := uint64(99)
	m.Particles.Seed = &seed
	m.Particles.Backend = BackendCPU
	m.Light.Position = Vec3ToArray(mgl32.Vec3{1, 2, 3})
	p := filepath.Join(dir, "scene.json")
	require.NoError(t, SaveManifest(p, m))

	got, err := LoadManifest(p)
	require.NoError(t, err)
	assert.Equal(t, dir, got.BaseDir)
	assert.Equal(t, filepath.Join(dir, "terrain.obj"), got.MeshPath())
	assert.Equal(t, filepath.Join(dir, "terraindiff.png"), got.TexturePaths()["terraindiff"])
	require.NotNil(t, got.Particles.Seed)
	assert.Equal(t, uint64(99), *got.Particles.Seed)
	assert.Equal(t, BackendCPU, got.Particles.Backend)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, got.PointLight().Position)
}

func TestLoadManifestPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "scene.json")
	body := `{"terrain": {"mesh": "/abs/hill.glb", "textures": {"rock": "rock.jpg"}, "scale": [1, 1, 1]}}`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	m, err := LoadManifest(p)
	require.NoError(t, err)
	assert.Equal(t, "/abs/hill.glb", m.MeshPath())
	assert.Equal(t, map[string]string{"rock": filepath.Join(dir, "rock.jpg")}, m.TexturePaths())
	assert.Empty(t, m.Terrain.Overrides)
	assert.Equal(t, 640, m.Window.Width)
	assert.Equal(t, 8192, m.Particles.Count)
}

func TestManifestValidation(t *testing.T) {
	cases := map[string]func(m *Manifest){
		"zero count":    func(m *Manifest) { m.Particles.Count = 0 },
		"nan min y":     func(m *Manifest) { m.Particles.MinY = float32(math.NaN()) },
		"no mesh":       func(m *Manifest) { m.Terrain.Mesh = "" },
		"bad backend":   func(m *Manifest) { m.Particles.Backend = "vulkan" },
		"zero max step": func(m *Manifest) { m.Particles.MaxStep = 0 },
		"far < near":    func(m *Manifest) { m.Camera.Far = 0.1 },
		"zero scale":    func(m *Manifest) { m.Terrain.Scale[1] = 0 },
		"empty window":  func(m *Manifest) { m.Window.Height = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := DefaultManifest()
			mutate(m)
			err := m.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvariant))
		})
	}
}

func TestLoadManifestOrDefault(t *testing.T) {
	m, found, err := LoadManifestOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, DefaultManifest(), m)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, _, err = LoadManifestOrDefault(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrResourceLoad))
}
