package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
	"snowscene/scene"
)

// ManifestVersion is written by SaveManifest.
const ManifestVersion = "1.0"

// Backend names accepted in ParticleData.Backend.
const (
	BackendGPU = "gpu"
	BackendCPU = "cpu"
)

// Manifest is the scene description read by the snowscene executable.
// Relative paths are resolved against BaseDir.
type Manifest struct {
	Version   string       `json:"version"`
	Name      string       `json:"name"`
	Window    WindowData   `json:"window"`
	Terrain   TerrainData  `json:"terrain"`
	Camera    CameraData   `json:"camera"`
	Light     LightData    `json:"light"`
	Particles ParticleData `json:"particles"`
	Sprite    string       `json:"sprite,omitempty"` // empty: procedural flake
	Debug     bool         `json:"debug,omitempty"`

	BaseDir string `json:"-"`
}

type WindowData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Title   string `json:"title"`
	VSync   bool   `json:"vsync"`
	Samples int    `json:"samples"`
}

// TerrainData names the mesh file, its textures (name to file) and the
// rigid transform applied to the whole terrain.
type TerrainData struct {
	Mesh      string            `json:"mesh"`
	Textures  map[string]string `json:"textures"`
	Overrides []OverrideData    `json:"overrides,omitempty"`
	Position  [3]float32        `json:"position"`
	Rotation  [4]float32        `json:"rotation"` // Quaternion (x,y,z,w)
	Scale     [3]float32        `json:"scale"`
}

// OverrideData forces texture names onto one imported model.
type OverrideData struct {
	Model    int    `json:"model"`
	Diffuse  string `json:"diffuse,omitempty"`
	Normal   string `json:"normal,omitempty"`
	Specular string `json:"specular,omitempty"`
}

type CameraData struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
	FOV      float32    `json:"fov"` // vertical, degrees
	Near     float32    `json:"near"`
	Far      float32    `json:"far"`
}

type LightData struct {
	Position [3]float32 `json:"position"`
}

// ParticleData holds the simulation constants. Seed pins the initial
// particle layout; when absent the executable seeds from the clock.
type ParticleData struct {
	Count   int     `json:"count"`
	MinY    float32 `json:"min_y"`
	MaxStep float32 `json:"max_step"`
	Seed    *uint64 `json:"seed,omitempty"`
	Backend string  `json:"backend"`
}

// DefaultManifest describes the bundled demo scene under ./assets.
func DefaultManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Name:    "snowscene",
		Window: WindowData{
			Width:   640,
			Height:  480,
			Title:   "snowscene",
			VSync:   true,
			Samples: 4,
		},
		Terrain: TerrainData{
			Mesh: "terrain.obj",
			Textures: map[string]string{
				"terraindiff": "terraindiff.png",
				"terrainnorm": "terrainnorm.png",
			},
			Overrides: []OverrideData{
				{Model: 0, Diffuse: "terraindiff", Normal: "terrainnorm"},
			},
			Position: [3]float32{0, -1.5, 0},
			Rotation: [4]float32{0, 0, 0, 1},
			Scale:    [3]float32{20, 20, 20},
		},
		Camera: CameraData{
			Position: [3]float32{0, 3, 10},
			Target:   [3]float32{0, 0, 0},
			FOV:      45,
			Near:     0.5,
			Far:      25,
		},
		Light: LightData{
			Position: [3]float32{5, 5, -5},
		},
		Particles: ParticleData{
			Count:   scene.DefaultParticleCount,
			MinY:    scene.DefaultMinY,
			MaxStep: 0.25,
			Backend: BackendGPU,
		},
		BaseDir: "assets",
	}
}

// SaveManifest serializes m to a JSON file.
func SaveManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadManifest reads a JSON manifest. Omitted fields keep their defaults,
// except the texture map and overrides, which are replaced wholesale.
// The result is validated.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w: %w", core.ErrResourceLoad, err)
	}

	m := DefaultManifest()
	m.Terrain.Textures = nil
	m.Terrain.Overrides = nil
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %q: %w: %w", path, core.ErrResourceLoad, err)
	}
	m.BaseDir = filepath.Dir(path)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %q: %w", path, err)
	}
	return m, nil
}

// LoadManifestOrDefault loads path, falling back to DefaultManifest when
// the file does not exist. found reports which one was used.
func LoadManifestOrDefault(path string) (m *Manifest, found bool, err error) {
	m, err = LoadManifest(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultManifest(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrInvariant, fmt.Sprintf(format, args...))
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate checks the constraints the renderer relies on.
func (m *Manifest) Validate() error {
	if m.Window.Width <= 0 || m.Window.Height <= 0 {
		return invalid("window size %dx%d", m.Window.Width, m.Window.Height)
	}
	if m.Window.Samples < 0 {
		return invalid("negative sample count %d", m.Window.Samples)
	}
	if m.Terrain.Mesh == "" {
		return invalid("terrain mesh path is empty")
	}
	for name, p := range m.Terrain.Textures {
		if name == "" || p == "" {
			return invalid("texture map entry %q -> %q", name, p)
		}
	}
	for _, o := range m.Terrain.Overrides {
		if o.Model < 0 {
			return invalid("override model index %d", o.Model)
		}
	}
	for _, s := range m.Terrain.Scale {
		if s == 0 || !finite(s) {
			return invalid("terrain scale %v", m.Terrain.Scale)
		}
	}
	c := m.Camera
	if !(c.FOV > 0 && c.FOV < 180) {
		return invalid("camera fov %v", c.FOV)
	}
	if !(c.Near > 0 && c.Far > c.Near) {
		return invalid("camera clip planes near=%v far=%v", c.Near, c.Far)
	}
	if c.Position == c.Target {
		return invalid("camera position equals target")
	}
	p := m.Particles
	if p.Count <= 0 {
		return invalid("particle count %d", p.Count)
	}
	if !finite(p.MinY) {
		return invalid("particle min_y %v", p.MinY)
	}
	if !(p.MaxStep > 0) || !finite(p.MaxStep) {
		return invalid("particle max_step %v", p.MaxStep)
	}
	if p.Backend != BackendGPU && p.Backend != BackendCPU {
		return invalid("particle backend %q", p.Backend)
	}
	return nil
}

// Path resolves p against BaseDir unless it is absolute or empty.
func (m *Manifest) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.BaseDir, p)
}

func (m *Manifest) MeshPath() string { return m.Path(m.Terrain.Mesh) }

func (m *Manifest) SpritePath() string { return m.Path(m.Sprite) }

// TexturePaths returns the texture map with resolved file paths.
func (m *Manifest) TexturePaths() map[string]string {
	out := make(map[string]string, len(m.Terrain.Textures))
	for name, p := range m.Terrain.Textures {
		out[name] = m.Path(p)
	}
	return out
}

func (m *Manifest) Overrides() []scene.TextureOverride {
	out := make([]scene.TextureOverride, 0, len(m.Terrain.Overrides))
	for _, o := range m.Terrain.Overrides {
		var t scene.TextureOverride
		t.Model = o.Model
		t.Textures[scene.SlotDiffuse] = o.Diffuse
		t.Textures[scene.SlotNormal] = o.Normal
		t.Textures[scene.SlotSpecular] = o.Specular
		out = append(out, t)
	}
	return out
}

func (m *Manifest) TerrainTransform() core.Transform {
	t := core.NewTransform()
	t.Position = ArrayToVec3(m.Terrain.Position)
	t.Rotation = ArrayToQuat(m.Terrain.Rotation)
	t.Scale = ArrayToVec3(m.Terrain.Scale)
	return t
}

func (m *Manifest) NewCamera() *scene.Camera {
	c := m.Camera
	return scene.NewCamera(ArrayToVec3(c.Position), ArrayToVec3(c.Target),
		mgl32.DegToRad(c.FOV), c.Near, c.Far)
}

func (m *Manifest) PointLight() scene.PointLight {
	return scene.PointLight{Position: ArrayToVec3(m.Light.Position)}
}

// --- Helper conversions ---

// Vec3ToArray converts a Vec3 to a [3]float32
func Vec3ToArray(v mgl32.Vec3) [3]float32 {
	return [3]float32{v.X(), v.Y(), v.Z()}
}

// ArrayToVec3 converts a [3]float32 to Vec3
func ArrayToVec3(a [3]float32) mgl32.Vec3 {
	return mgl32.Vec3(a)
}

// ArrayToQuat converts (x,y,z,w) to a quaternion. The zero array maps to
// the identity.
func ArrayToQuat(a [4]float32) mgl32.Quat {
	if a == [4]float32{} {
		return mgl32.QuatIdent()
	}
	return mgl32.Quat{W: a[3], V: mgl32.Vec3{a[0], a[1], a[2]}}
}
