package scene

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"snowscene/core"
)

// Import is the raw result of reading a mesh file, before post-processing.
type Import struct {
	Roots     []*Node // hierarchy to flatten, may be empty
	Meshes    []*Mesh // meshes already in scene space
	Materials []Material
	Embedded  map[string]*Texture // images stored inside the file, by name
}

// ImportFile picks a loader by file extension.
func ImportFile(path string, log core.Logger) (*Import, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return LoadGLTF(path, log)
	case ".obj":
		return LoadOBJ(path, log)
	}
	return nil, fmt.Errorf("%w: unsupported mesh format %q", core.ErrResourceLoad, path)
}

// Process runs the import post-processing: per-mesh triangle check, missing
// normals, tangent frames and vertex joining, then hierarchy flattening and
// material merging. Material indices are range-checked last.
func (imp *Import) Process() ([]*Mesh, []Material, error) {
	var all []*Mesh
	seen := map[*Mesh]bool{}
	collect := func(m *Mesh) {
		if !seen[m] {
			seen[m] = true
			all = append(all, m)
		}
	}
	for _, root := range imp.Roots {
		root.Traverse(func(n *Node) {
			for _, m := range n.Meshes {
				collect(m)
			}
		})
	}
	for _, m := range imp.Meshes {
		collect(m)
	}
	for _, m := range all {
		if err := m.PostProcess(); err != nil {
			return nil, nil, err
		}
	}

	meshes := append(Flatten(imp.Roots), imp.Meshes...)
	if len(meshes) == 0 {
		return nil, nil, fmt.Errorf("%w: import contains no meshes", core.ErrResourceLoad)
	}
	for _, m := range meshes {
		if m.MaterialIndex >= len(imp.Materials) {
			return nil, nil, fmt.Errorf("%w: mesh %q material index %d out of range (%d materials)",
				core.ErrInvariant, m.Name, m.MaterialIndex, len(imp.Materials))
		}
	}
	materials := MergeRedundantMaterials(imp.Materials, meshes)
	return meshes, materials, nil
}

// Model is one drawable part of the terrain: geometry plus up to three
// texture names. Empty names mean the channel is unused.
type Model struct {
	Mesh     *Mesh
	Textures [slotCount]string
}

// PointLight is the single light of the scene.
type PointLight struct {
	Position mgl32.Vec3
}

// Scene is the imported terrain: named textures, models and one rigid
// transform applied to all models.
type Scene struct {
	Textures  map[string]*Texture
	Models    []*Model
	Transform core.Transform
}

// TextureOverride forces texture names onto one model's slots. Empty
// entries leave the imported name in place.
type TextureOverride struct {
	Model    int
	Textures [slotCount]string
}

func (s *Scene) ApplyOverride(o TextureOverride) error {
	if o.Model < 0 || o.Model >= len(s.Models) {
		return fmt.Errorf("%w: texture override for model %d, scene has %d",
			core.ErrInvariant, o.Model, len(s.Models))
	}
	m := s.Models[o.Model]
	for slot, name := range o.Textures {
		if name != "" {
			m.Textures[slot] = name
		}
	}
	return nil
}

// Validate checks that every non-empty texture reference names a texture
// in the scene's texture map.
func (s *Scene) Validate() error {
	for i, m := range s.Models {
		for slot, name := range m.Textures {
			if name == "" {
				continue
			}
			if _, ok := s.Textures[name]; !ok {
				return fmt.Errorf("%w: model %d %s texture %q is not in the texture map",
					core.ErrInvariant, i, TextureSlot(slot), name)
			}
		}
	}
	return nil
}

func (s *Scene) ModelMatrix() mgl32.Mat4 {
	return s.Transform.GetMatrix()
}

// Loader imports a scene file and resolves its texture references.
type Loader struct {
	Log       core.Logger
	Overrides []TextureOverride
}

// LoadScene imports path with no overrides and no logging.
func LoadScene(path string, textures map[string]string) (*Scene, error) {
	return Loader{}.Load(path, textures)
}

// Load imports the mesh file, post-processes it, applies overrides, checks
// every texture reference against textures (name to file path) and the
// file's embedded images, and only then decodes the texture files.
// The returned scene has the identity transform.
func (l Loader) Load(path string, textures map[string]string) (*Scene, error) {
	log := l.Log
	if log == nil {
		log = core.NewNopLogger()
	}

	imp, err := ImportFile(path, log)
	if err != nil {
		return nil, err
	}
	meshes, materials, err := imp.Process()
	if err != nil {
		return nil, fmt.Errorf("import %q: %w", path, err)
	}

	s := &Scene{
		Textures:  make(map[string]*Texture, len(textures)),
		Transform: core.NewTransform(),
	}
	for _, m := range meshes {
		model := &Model{Mesh: m}
		if m.MaterialIndex >= 0 {
			model.Textures = materials[m.MaterialIndex].Textures
		}
		s.Models = append(s.Models, model)
	}
	for _, o := range l.Overrides {
		if err := s.ApplyOverride(o); err != nil {
			return nil, err
		}
	}

	// References are checked before any image is decoded.
	for i, m := range s.Models {
		for slot, name := range m.Textures {
			if name == "" {
				continue
			}
			_, inMap := textures[name]
			_, embedded := imp.Embedded[name]
			if !inMap && !embedded {
				return nil, fmt.Errorf("%w: model %d %s texture %q is not in the texture map",
					core.ErrInvariant, i, TextureSlot(slot), name)
			}
		}
	}

	names := make([]string, 0, len(textures))
	for name := range textures {
		names = append(names, name)
	}
	slices.Sort(names)

	// Decoding is independent per file; results land in a slice indexed
	// like names so the map is filled in a fixed order.
	decoded := make([]*Texture, len(names))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		g.Go(func() error {
			tex, err := LoadTexture(textures[name])
			if err != nil {
				return err
			}
			tex.Name = name
			decoded[i] = tex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, tex := range decoded {
		s.Textures[tex.Name] = tex
		log.Debugf("scene: texture %q %dx%d", tex.Name, tex.Width, tex.Height)
	}
	for name, tex := range imp.Embedded {
		if _, ok := s.Textures[name]; !ok {
			s.Textures[name] = tex
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	log.Infof("scene: %s: %d models, %d textures", path, len(s.Models), len(s.Textures))
	if b := s.Bounds(); b.Valid {
		log.Debugf("scene: bounds %v..%v", b.Min, b.Max)
	}
	return s, nil
}
