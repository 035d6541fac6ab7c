package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
)

// HeightFunc returns the surface height at (x, z) in mesh space.
type HeightFunc func(x, z float32) float32

// CreateHeightfield generates a size x size grid in the XZ plane centred on
// the origin, displaced along +Y by height. Triangles wind counter-clockwise
// seen from above. UVs span [0,1] with v growing towards -Z. Normals and
// tangents are left for PostProcess.
func CreateHeightfield(name string, size float32, subdivisions int, height HeightFunc) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}
	if height == nil {
		height = func(x, z float32) float32 { return 0 }
	}

	var vertices []core.Vertex
	var indices []uint32

	half := size / 2
	row := subdivisions + 1
	for iz := 0; iz <= subdivisions; iz++ {
		for ix := 0; ix <= subdivisions; ix++ {
			u := float32(ix) / float32(subdivisions)
			v := float32(iz) / float32(subdivisions)
			x := -half + u*size
			z := half - v*size
			vertices = append(vertices, core.Vertex{
				Position: mgl32.Vec3{x, height(x, z), z},
				UV:       mgl32.Vec2{u, v},
			})
		}
	}

	for iz := 0; iz < subdivisions; iz++ {
		for ix := 0; ix < subdivisions; ix++ {
			a := uint32(iz*row + ix) // near left
			b := a + 1               // near right
			c := a + uint32(row)     // far left
			d := c + 1               // far right
			indices = append(indices, a, b, d)
			indices = append(indices, a, d, c)
		}
	}

	return CreateMeshFromData(name, vertices, indices)
}

// SnowHills is the rolling terrain of the bundled scene for a unit-sized
// grid: a few overlapping swells at most 0.06 high.
func SnowHills(x, z float32) float32 {
	fx, fz := float64(x), float64(z)
	h := 0.035*math.Sin(fx*7.0+0.4)*math.Cos(fz*5.0-0.3) +
		0.02*math.Sin((fx+fz)*11.0) +
		0.012*math.Cos(fx*17.0-fz*13.0)
	return float32(h)
}
