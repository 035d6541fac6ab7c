package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Color struct {
	R, G, B, A float32
}

// Vertex is the interleaved terrain vertex: 14 float32, no padding.
// The field order is the attribute order of the phong shader.
type Vertex struct {
	Position  mgl32.Vec3
	UV        mgl32.Vec2
	Normal    mgl32.Vec3
	Tangent   mgl32.Vec3
	Bitangent mgl32.Vec3
}

// VertexFloats is the number of float32 values in one Vertex.
const VertexFloats = 3 + 2 + 3 + 3 + 3

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// GetMatrix returns translate * rotate * scale.
func (t Transform) GetMatrix() mgl32.Mat4 {
	translation := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotation := t.Rotation.Normalize().Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translation.Mul4(rotation).Mul4(scale)
}

// GetNormalMatrix returns the inverse-transpose of the upper 3x3 of GetMatrix.
func (t Transform) GetNormalMatrix() mgl32.Mat3 {
	return t.GetMatrix().Inv().Transpose().Mat3()
}
