package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
)

// Mesh holds CPU-side vertex/index data for one imported primitive.
// GPU upload is managed by the renderer backend.
type Mesh struct {
	Name     string
	Vertices []core.Vertex
	Indices  []uint32

	// MaterialIndex points into the owning import's material list.
	// -1 means the mesh has no material.
	MaterialIndex int

	// HasNormals is false when the source file carried no normals and
	// GenerateSmoothNormals still has to run.
	HasNormals bool
}

func CreateMeshFromData(name string, vertices []core.Vertex, indices []uint32) *Mesh {
	return &Mesh{
		Name:          name,
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: -1,
	}
}

// ensureIndexed gives non-indexed meshes a trivial 0..n-1 index list.
func (m *Mesh) ensureIndexed() {
	if len(m.Indices) > 0 {
		return
	}
	m.Indices = make([]uint32, len(m.Vertices))
	for i := range m.Indices {
		m.Indices[i] = uint32(i)
	}
}

// CheckTriangles verifies that the index list describes whole triangles
// with every index in range.
func (m *Mesh) CheckTriangles() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: mesh %q: %d indices is not a triangle list",
			core.ErrInvariant, m.Name, len(m.Indices))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: mesh %q: index %d at %d out of range (%d vertices)",
				core.ErrInvariant, m.Name, idx, i, n)
		}
	}
	return nil
}

// GenerateSmoothNormals accumulates area-weighted face normals on shared
// vertices and normalizes them.
func (m *Mesh) GenerateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = mgl32.Vec3{}
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		p0 := m.Vertices[i0].Position
		e1 := m.Vertices[i1].Position.Sub(p0)
		e2 := m.Vertices[i2].Position.Sub(p0)
		fn := e1.Cross(e2)
		m.Vertices[i0].Normal = m.Vertices[i0].Normal.Add(fn)
		m.Vertices[i1].Normal = m.Vertices[i1].Normal.Add(fn)
		m.Vertices[i2].Normal = m.Vertices[i2].Normal.Add(fn)
	}
	for i := range m.Vertices {
		n := m.Vertices[i].Normal
		if n.Len() < 1e-12 {
			m.Vertices[i].Normal = mgl32.Vec3{0, 1, 0}
			continue
		}
		m.Vertices[i].Normal = n.Normalize()
	}
	m.HasNormals = true
}

// JoinIdenticalVertices merges vertices whose attributes are bit-identical
// and rewrites the index list.
func (m *Mesh) JoinIdenticalVertices() {
	m.ensureIndexed()
	unique := make([]core.Vertex, 0, len(m.Vertices))
	seen := make(map[core.Vertex]uint32, len(m.Vertices))
	remap := make([]uint32, len(m.Vertices))
	for i, v := range m.Vertices {
		if j, ok := seen[v]; ok {
			remap[i] = j
			continue
		}
		j := uint32(len(unique))
		seen[v] = j
		remap[i] = j
		unique = append(unique, v)
	}
	for i, idx := range m.Indices {
		m.Indices[i] = remap[idx]
	}
	m.Vertices = unique
}

// ApplyTransform bakes a node transform into the vertex data.
func (m *Mesh) ApplyTransform(model mgl32.Mat4) {
	normal := model.Inv().Transpose().Mat3()
	basis := model.Mat3()
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mgl32.TransformCoordinate(v.Position, model)
		v.Normal = normalizeOrKeep(normal.Mul3x1(v.Normal))
		v.Tangent = normalizeOrKeep(basis.Mul3x1(v.Tangent))
		v.Bitangent = normalizeOrKeep(basis.Mul3x1(v.Bitangent))
	}
}

func normalizeOrKeep(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() < 1e-12 {
		return v
	}
	return v.Normalize()
}

// PostProcess runs the import pipeline on one mesh: triangle check,
// normals when missing, tangent frame, identical-vertex join.
func (m *Mesh) PostProcess() error {
	m.ensureIndexed()
	if err := m.CheckTriangles(); err != nil {
		return err
	}
	if !m.HasNormals {
		m.GenerateSmoothNormals()
	}
	ComputeTangents(m)
	m.JoinIdenticalVertices()
	return nil
}
