package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitSpeed is the rotation in radians for a horizontal drag across the
// full viewport width.
const OrbitSpeed = 10.0

// Camera looks from Position at Target with +Y up.
type Camera struct {
	Position  mgl32.Vec3
	Target    mgl32.Vec3
	FOV       float32 // vertical, radians
	NearPlane float32
	FarPlane  float32
}

func NewCamera(position, target mgl32.Vec3, fov, nearPlane, farPlane float32) *Camera {
	return &Camera{
		Position:  position,
		Target:    target,
		FOV:       fov,
		NearPlane: nearPlane,
		FarPlane:  farPlane,
	}
}

// DefaultCamera is the demo view: (0,3,10) looking at the origin, 45°
// vertical field of view, near 0.5, far 25.
func DefaultCamera() *Camera {
	return NewCamera(mgl32.Vec3{0, 3, 10}, mgl32.Vec3{}, math.Pi/4, 0.5, 25)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, mgl32.Vec3{0, 1, 0})
}

// ProjectionMatrix returns the perspective projection for the given aspect
// ratio. A non-positive aspect (minimised window) falls back to 1.
func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 || math.IsNaN(float64(aspect)) {
		aspect = 1
	}
	return mgl32.Perspective(c.FOV, aspect, c.NearPlane, c.FarPlane)
}

// Orbit rotates Position about the vertical axis through Target by
// OrbitSpeed*dx/viewportWidth radians. Distance to the target and height
// are preserved. A zero width is ignored.
func (c *Camera) Orbit(dx float64, viewportWidth int) {
	if viewportWidth <= 0 || dx == 0 {
		return
	}
	angle := float32(OrbitSpeed * dx / float64(viewportWidth))
	rot := mgl32.HomogRotate3DY(angle)
	offset := c.Position.Sub(c.Target)
	c.Position = c.Target.Add(mgl32.TransformNormal(offset, rot))
}
