package scene

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box. The zero value with Valid false
// is the empty box.
type AABB struct {
	Min, Max mgl32.Vec3
	Valid    bool
}

// Extend grows the box to contain p.
func (b *AABB) Extend(p mgl32.Vec3) {
	if !b.Valid {
		b.Min, b.Max, b.Valid = p, p, true
		return
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

func (b AABB) Union(o AABB) AABB {
	if !o.Valid {
		return b
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
	return b
}

func (b AABB) Size() mgl32.Vec3 {
	if !b.Valid {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Transform returns the box around all eight transformed corners.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if !b.Valid {
		return b
	}
	var out AABB
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		out.Extend(mgl32.TransformCoordinate(c, m))
	}
	return out
}

// ComputeAABB returns the mesh's bounds in its own space.
func ComputeAABB(mesh *Mesh) AABB {
	var out AABB
	for _, v := range mesh.Vertices {
		out.Extend(v.Position)
	}
	return out
}

// Bounds returns the world-space bounds of every model under the scene
// transform.
func (s *Scene) Bounds() AABB {
	var local AABB
	for _, m := range s.Models {
		if m.Mesh != nil {
			local = local.Union(ComputeAABB(m.Mesh))
		}
	}
	return local.Transform(s.ModelMatrix())
}
