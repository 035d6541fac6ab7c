package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"snowscene/core"
)

// Renderer owns the global OpenGL state of the window: the function
// pointers, the fixed pipeline state and the default framebuffer viewport.
type Renderer struct {
	viewportW int32
	viewportH int32
	clear     core.Color
}

// NewRenderer initialises OpenGL.
// Must be called after the GLFW window context is made current.
func NewRenderer(log core.Logger) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	log.Infof("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))
	log.Debugf("GLSL version: %s", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)))
	log.Debugf("renderer: %s", gl.GoStr(gl.GetString(gl.RENDERER)))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
	gl.Enable(gl.MULTISAMPLE)
	gl.Disable(gl.BLEND)

	return &Renderer{clear: core.Color{A: 1}}, nil
}

// SetViewport resizes the default framebuffer viewport. Passes that render
// offscreen restore it with BeginFrame.
func (r *Renderer) SetViewport(width, height int) {
	r.viewportW = int32(width)
	r.viewportH = int32(height)
	gl.Viewport(0, 0, r.viewportW, r.viewportH)
}

// BeginFrame binds the default framebuffer and clears colour and depth.
func (r *Renderer) BeginFrame() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, r.viewportW, r.viewportH)
	gl.ClearColor(r.clear.R, r.clear.G, r.clear.B, r.clear.A)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// CheckError reports the first pending GL error, if any.
func (r *Renderer) CheckError(where string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: gl error 0x%x after %s", core.ErrInvariant, code, where)
	}
	return nil
}

func (r *Renderer) Destroy() {}
