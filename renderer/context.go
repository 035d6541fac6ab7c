package renderer

import (
	"snowscene/core"
	"snowscene/scene"
)

// RenderContext is the mutable per-window state shared by the frame driver
// and the input callbacks. Callbacks close over a *RenderContext instead of
// touching package-level variables.
type RenderContext struct {
	Width  int
	Height int
	Camera *scene.Camera
	Light  scene.PointLight
	Log    core.Logger

	dragging     bool
	lastX, lastY float64
	haveCursor   bool
}

func NewRenderContext(width, height int, cam *scene.Camera, light scene.PointLight, log core.Logger) *RenderContext {
	if log == nil {
		log = core.NewNopLogger()
	}
	return &RenderContext{Width: width, Height: height, Camera: cam, Light: light, Log: log}
}

// Resize records the new framebuffer size. A minimised window reports 0x0;
// Aspect falls back to 1 in that case.
func (c *RenderContext) Resize(width, height int) {
	c.Width, c.Height = width, height
	c.Log.Debugf("resize %dx%d", width, height)
}

func (c *RenderContext) Aspect() float32 {
	if c.Width <= 0 || c.Height <= 0 {
		return 1
	}
	return float32(c.Width) / float32(c.Height)
}

// SetCursor seeds the last known cursor position so the first motion event
// does not produce a jump.
func (c *RenderContext) SetCursor(x, y float64) {
	c.lastX, c.lastY = x, y
	c.haveCursor = true
}

func (c *RenderContext) SetDragging(pressed bool) { c.dragging = pressed }

func (c *RenderContext) Dragging() bool { return c.dragging }

// CursorMoved tracks the cursor and orbits the camera about its target by
// the horizontal motion while dragging.
func (c *RenderContext) CursorMoved(x, y float64) {
	if !c.haveCursor {
		c.SetCursor(x, y)
		return
	}
	dx := x - c.lastX
	c.lastX, c.lastY = x, y
	if !c.dragging || c.Camera == nil || dx == 0 {
		return
	}
	c.Camera.Orbit(dx, c.Width)
}
