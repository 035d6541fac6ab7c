package scene

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowscene/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func solidImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

const quadOBJ = `# two triangles as one quad
mtllib terrain.mtl
o ground
v -1 0 -1
v  1 0 -1
v  1 0  1
v -1 0  1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl ground
f 1/1 4/4 3/3 2/2
`

const groundMTL = `newmtl ground
map_Kd terraindiff.png
map_Bump -bm 1.0 terrainnorm.png
`

func TestLoadSceneOBJ(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "terrain.obj", quadOBJ)
	writeFile(t, dir, "terrain.mtl", groundMTL)
	diff := writePNG(t, dir, "diff.png", solidImage(color.RGBA{200, 210, 220, 255}))
	norm := writePNG(t, dir, "norm.png", solidImage(color.RGBA{128, 128, 255, 255}))

	s, err := LoadScene(objPath, map[string]string{
		"terraindiff.png": diff,
		"terrainnorm.png": norm,
	})
	require.NoError(t, err)
	require.Len(t, s.Models, 1)

	m := s.Models[0]
	assert.Equal(t, "terraindiff.png", m.Textures[SlotDiffuse])
	assert.Equal(t, "terrainnorm.png", m.Textures[SlotNormal])
	assert.Empty(t, m.Textures[SlotSpecular])
	assert.Len(t, m.Mesh.Indices, 6)
	assert.Len(t, m.Mesh.Vertices, 4)
	assert.NoError(t, m.Mesh.CheckTriangles())

	for _, v := range m.Mesh.Vertices {
		// Generated normals face up for a CCW quad seen from above.
		assert.InDelta(t, 1, v.Normal.Y(), 1e-5)
		assert.InDelta(t, 1, v.Tangent.Len(), 1e-5)
		assert.InDelta(t, 1, v.Bitangent.Len(), 1e-5)
		assert.InDelta(t, 0, v.Tangent.Dot(v.Normal), 1e-5)
	}

	require.Contains(t, s.Textures, "terraindiff.png")
	tex := s.Textures["terraindiff.png"]
	assert.Equal(t, 2, tex.Width)
	assert.Equal(t, []byte{200, 210, 220, 255}, tex.Pixels[:4])
	assert.Equal(t, core.NewTransform(), s.Transform)
}

func TestLoadSceneRejectsMissingTextureBeforeDecoding(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "terrain.obj", quadOBJ)
	writeFile(t, dir, "terrain.mtl", groundMTL)
	// Present but undecodable: a decode attempt would report ErrResourceLoad.
	bogus := writeFile(t, dir, "bogus.png", "not an image")

	_, err := LoadScene(objPath, map[string]string{
		"terraindiff.png": bogus,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvariant), "got %v", err)
	assert.False(t, errors.Is(err, core.ErrResourceLoad))
	assert.Contains(t, err.Error(), "terrainnorm.png")
}

func TestLoaderOverridesTextures(t *testing.T) {
	dir := t.TempDir()
	objPath := writeFile(t, dir, "terrain.obj", quadOBJ)
	writeFile(t, dir, "terrain.mtl", groundMTL)
	img := writePNG(t, dir, "a.png", solidImage(color.White))

	l := Loader{Overrides: []TextureOverride{{
		Model:    0,
		Textures: [slotCount]string{SlotDiffuse: "terraindiff", SlotNormal: "terrainnorm"},
	}}}
	s, err := l.Load(objPath, map[string]string{
		"terraindiff": img,
		"terrainnorm": img,
	})
	require.NoError(t, err)
	assert.Equal(t, "terraindiff", s.Models[0].Textures[SlotDiffuse])
	assert.Equal(t, "terrainnorm", s.Models[0].Textures[SlotNormal])

	l.Overrides[0].Model = 3
	_, err = l.Load(objPath, map[string]string{"terraindiff": img, "terrainnorm": img})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvariant))
}

func TestValidateRejectsDanglingReference(t *testing.T) {
	s := &Scene{
		Textures: map[string]*Texture{"terraindiff": NewSolidTexture("terraindiff", 255, 255, 255, 255)},
		Models: []*Model{
			{Textures: [slotCount]string{SlotDiffuse: "terraindiff"}},
			{Textures: [slotCount]string{SlotSpecular: "rockspec"}},
		},
	}
	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvariant))
	assert.Contains(t, err.Error(), "specular")

	s.Textures["rockspec"] = NewSolidTexture("rockspec", 0, 0, 0, 255)
	assert.NoError(t, s.Validate())
}

func TestLoadOBJUndefinedMaterial(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.obj", "v 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl nowhere\nf 1 2 3\n")
	_, err := LoadOBJ(p, core.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvariant))
}

func TestLoadOBJIndexOutOfRange(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.obj", "v 0 0 0\nv 1 0 0\nf 1 2 3\n")
	_, err := LoadOBJ(p, core.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrResourceLoad))
}

func TestImportFileUnsupported(t *testing.T) {
	_, err := ImportFile("terrain.dae", core.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrResourceLoad))
}

// gltfTriangle builds a minimal .gltf with one indexed triangle under a
// translated node and a normal-mapped material pointing at an external URI.
func gltfTriangle() string {
	var buf bytes.Buffer
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 0, -1} {
		_ = binary.Write(&buf, binary.LittleEndian, f)
	}
	for _, i := range []uint16{0, 1, 2, 0} { // last entry pads to 4 bytes
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	data := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "ground", "mesh": 0, "translation": [0, 1, 0]}],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"name": "snow", "normalTexture": {"index": 0}}],
  "textures": [{"source": 0}],
  "images": [{"uri": "snow_n.png"}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, -1], "max": [1, 0, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}]
}`, buf.Len(), data)
}

func TestLoadSceneGLTFFlattensHierarchy(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "terrain.gltf", gltfTriangle())
	norm := writePNG(t, dir, "n.png", solidImage(color.RGBA{128, 128, 255, 255}))

	s, err := LoadScene(p, map[string]string{"snow_n.png": norm})
	require.NoError(t, err)
	require.Len(t, s.Models, 1)

	m := s.Models[0]
	assert.Equal(t, "snow_n.png", m.Textures[SlotNormal])
	assert.Empty(t, m.Textures[SlotDiffuse])
	require.Len(t, m.Mesh.Vertices, 3)
	for _, v := range m.Mesh.Vertices {
		assert.InDelta(t, 1, v.Position.Y(), 1e-6, "node translation baked in")
		assert.InDelta(t, 1, v.Normal.Y(), 1e-5)
	}

	_, err = LoadScene(p, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvariant))
}

func TestMeshCheckTriangles(t *testing.T) {
	m := CreateMeshFromData("m", make([]core.Vertex, 3), []uint32{0, 1})
	assert.True(t, errors.Is(m.CheckTriangles(), core.ErrInvariant))
	m.Indices = []uint32{0, 1, 3}
	assert.True(t, errors.Is(m.CheckTriangles(), core.ErrInvariant))
	m.Indices = []uint32{0, 1, 2}
	assert.NoError(t, m.CheckTriangles())
}

func TestJoinIdenticalVertices(t *testing.T) {
	a := core.Vertex{Position: mgl32.Vec3{0, 0, 0}}
	b := core.Vertex{Position: mgl32.Vec3{1, 0, 0}}
	c := core.Vertex{Position: mgl32.Vec3{0, 0, 1}}
	m := CreateMeshFromData("m", []core.Vertex{a, b, c, a, c, b}, nil)
	m.JoinIdenticalVertices()
	assert.Len(t, m.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 1}, m.Indices)
}

func TestMergeRedundantMaterials(t *testing.T) {
	mats := []Material{
		{Name: "a", Textures: [slotCount]string{SlotDiffuse: "d"}},
		{Name: "b", Textures: [slotCount]string{SlotDiffuse: "d"}},
		{Name: "c", Textures: [slotCount]string{SlotNormal: "n"}},
	}
	meshes := []*Mesh{{MaterialIndex: 1}, {MaterialIndex: 2}, {MaterialIndex: -1}}
	merged := MergeRedundantMaterials(mats, meshes)
	require.Len(t, merged, 2)
	assert.Equal(t, 0, meshes[0].MaterialIndex)
	assert.Equal(t, 1, meshes[1].MaterialIndex)
	assert.Equal(t, -1, meshes[2].MaterialIndex)
}

func TestDecodeTextureFlipsRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255}) // top
	img.Set(0, 1, color.RGBA{0, 0, 255, 255}) // bottom
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	tex, err := DecodeTexture("t", &buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, tex.Pixels)

	_, err = DecodeTexture("junk", bytes.NewReader([]byte("junk")))
	assert.True(t, errors.Is(err, core.ErrResourceLoad))
}

func TestFlakeTexture(t *testing.T) {
	tex := NewFlakeTexture(32)
	require.Len(t, tex.Pixels, 32*32*4)
	centre := (16*32 + 16) * 4
	assert.Greater(t, tex.Pixels[centre+3], uint8(240))
	assert.Equal(t, uint8(0), tex.Pixels[3], "corner is transparent")
}

func TestCameraOrbit(t *testing.T) {
	c := DefaultCamera()
	width := 640
	// Half a turn: 10*dx/width = pi.
	c.Orbit(math.Pi*float64(width)/OrbitSpeed, width)
	assert.InDelta(t, 0, c.Position.X(), 1e-4)
	assert.InDelta(t, 3, c.Position.Y(), 1e-6)
	assert.InDelta(t, -10, c.Position.Z(), 1e-4)

	before := c.Position
	c.Orbit(25, 0)
	assert.Equal(t, before, c.Position)

	p := c.ProjectionMatrix(0)
	assert.Equal(t, c.ProjectionMatrix(1), p)
}
