// Package assets generates the bundled demo scene: a heightfield terrain
// as OBJ/MTL, its diffuse and normal textures, and the scene manifest.
package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"

	"snowscene/core"
	sceneio "snowscene/io"
	"snowscene/scene"
)

// Options controls the generated scene.
type Options struct {
	Subdivisions int // grid cells per side of the terrain mesh
	TextureSize  int // edge of the square textures in pixels
	Manifest     bool
}

func DefaultOptions() Options {
	return Options{Subdivisions: 64, TextureSize: 256, Manifest: true}
}

// File names written by Generate.
const (
	MeshFile     = "terrain.obj"
	MTLFile      = "terrain.mtl"
	DiffuseFile  = "terraindiff.png"
	NormalFile   = "terrainnorm.png"
	ManifestFile = "scene.json"
)

// Texture names referenced by the material and the manifest.
const (
	DiffuseName = "terraindiff"
	NormalName  = "terrainnorm"
)

var (
	snowLit    = colorful.Color{R: 0.97, G: 0.98, B: 1.0}
	snowShadow = colorful.Color{R: 0.62, G: 0.70, B: 0.84}
)

// Generate writes every asset into dir, creating it when needed.
func Generate(dir string, opts Options, log core.Logger) error {
	if opts.Subdivisions < 1 || opts.TextureSize < 2 {
		return fmt.Errorf("%w: subdivisions %d, texture size %d",
			core.ErrInvariant, opts.Subdivisions, opts.TextureSize)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %q: %w", dir, err)
	}

	mesh := scene.CreateHeightfield("terrain", 1, opts.Subdivisions, scene.SnowHills)
	if err := mesh.PostProcess(); err != nil {
		return err
	}
	mat := scene.Material{Name: "snow"}
	mat.Textures[scene.SlotDiffuse] = DiffuseName
	mat.Textures[scene.SlotNormal] = NormalName

	if err := writeFile(filepath.Join(dir, MeshFile), func(f *os.File) error {
		return scene.WriteOBJ(f, mesh, MTLFile, mat.Name)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, MTLFile), func(f *os.File) error {
		return scene.WriteMTL(f, []scene.Material{mat})
	}); err != nil {
		return err
	}
	if err := writePNG(filepath.Join(dir, DiffuseFile), DiffuseImage(opts.TextureSize)); err != nil {
		return err
	}
	if err := writePNG(filepath.Join(dir, NormalFile), NormalImage(opts.TextureSize)); err != nil {
		return err
	}
	log.Infof("assets: %s: terrain %d vertices, textures %dpx", dir, len(mesh.Vertices), opts.TextureSize)

	if !opts.Manifest {
		return nil
	}
	m := sceneio.DefaultManifest()
	m.Terrain.Mesh = MeshFile
	m.Terrain.Textures = map[string]string{DiffuseName: DiffuseFile, NormalName: NormalFile}
	return sceneio.SaveManifest(filepath.Join(dir, ManifestFile), m)
}

// ── Texture content ──────────────────────────────────────────────────────────

// Texture u runs along +X and v along -Z over the unit terrain, with v=0 on
// the bottom image row.
func terrainXZ(px, py, size int) (x, z float32) {
	u := float32(px) / float32(size-1)
	v := 1 - float32(py)/float32(size-1)
	return u - 0.5, 0.5 - v
}

// ripple is the fine wind-blown relief carried only by the normal map.
func ripple(x, z float32) float32 {
	fx, fz := float64(x), float64(z)
	return float32(0.0015*math.Sin(fx*140+math.Sin(fz*23)*2) + 0.0008*math.Sin(fz*97-fx*31))
}

// DiffuseImage shades snow from bluish in hollows to white on crests.
func DiffuseImage(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			x, z := terrainXZ(px, py, size)
			t := 0.55 + float64(scene.SnowHills(x, z))*7 + float64(ripple(x, z))*60
			t = math.Max(0, math.Min(1, t))
			r, g, b := snowShadow.BlendLab(snowLit, t).Clamped().RGB255()
			img.SetNRGBA(px, py, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// NormalImage encodes the tangent-space normal of the ripple relief, with
// the tangent along +X and the bitangent along -Z.
func NormalImage(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	const eps = 1e-3
	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			x, z := terrainXZ(px, py, size)
			dx := (ripple(x+eps, z) - ripple(x-eps, z)) / (2 * eps)
			dz := (ripple(x, z+eps) - ripple(x, z-eps)) / (2 * eps)
			// World normal (-dx, 1, -dz) in the (T, B, N) = (+X, -Z, +Y) frame.
			n := [3]float64{float64(-dx), float64(dz), 1}
			l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
			img.SetNRGBA(px, py, color.NRGBA{
				R: encodeUnit(n[0] / l),
				G: encodeUnit(n[1] / l),
				B: encodeUnit(n[2] / l),
				A: 255,
			})
		}
	}
	return img
}

func encodeUnit(v float64) uint8 {
	return uint8(math.Round((v*0.5 + 0.5) * 255))
}

// ── Files ────────────────────────────────────────────────────────────────────

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	return f.Close()
}

func writePNG(path string, img image.Image) error {
	return writeFile(path, func(f *os.File) error { return png.Encode(f, img) })
}
