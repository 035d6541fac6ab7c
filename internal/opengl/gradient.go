package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"snowscene/core"
	"snowscene/internal/opengl/shaders"
)

// Gradient paints the three-colour sky behind everything else. It is drawn
// last, at the far plane, with depth LEQUAL so only pixels nothing else
// covered receive it.
type Gradient struct {
	vao  uint32
	vbo  uint32
	prog uint32
}

// Sky colours: top of the screen, the band at GradientLimit, and the bottom.
var (
	GradientTop    = core.Color{R: 0.8, G: 0.91, B: 1.0, A: 1}
	GradientMiddle = core.Color{R: 1.0, G: 0.937, B: 0.745, A: 1}
	GradientBottom = core.Color{R: 0.992, G: 0.722, B: 0.557, A: 1}
)

// GradientLimit is the NDC height of the middle colour band.
const GradientLimit = 0.325

// GradientVertices returns the two screen-space quads (12 vertices of
// x, y, r, g, b) between top, middle and bottom, counter-clockwise.
func GradientVertices(top, middle, bottom core.Color, limit float32) []float32 {
	v := func(x, y float32, c core.Color) []float32 { return []float32{x, y, c.R, c.G, c.B} }
	quad := func(yHi, yLo float32, hi, lo core.Color) []float32 {
		var out []float32
		for _, p := range [][]float32{
			v(-1, yHi, hi), v(-1, yLo, lo), v(1, yLo, lo),
			v(-1, yHi, hi), v(1, yLo, lo), v(1, yHi, hi),
		} {
			out = append(out, p...)
		}
		return out
	}
	return append(quad(1, limit, top, middle), quad(limit, -1, middle, bottom)...)
}

// NewGradient compiles the gradient shader and uploads the default colours.
func NewGradient() (*Gradient, error) {
	prog, err := BuildProgram(shaders.FS, []StageSource{
		{Type: gl.VERTEX_SHADER, Path: "gradient.vert"},
		{Type: gl.FRAGMENT_SHADER, Path: "gradient.frag"},
	})
	if err != nil {
		return nil, fmt.Errorf("gradient shader: %w", err)
	}

	verts := GradientVertices(GradientTop, GradientMiddle, GradientBottom, GradientLimit)
	g := &Gradient{prog: prog}
	gl.GenVertexArrays(1, &g.vao)
	gl.GenBuffers(1, &g.vbo)
	gl.BindVertexArray(g.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(2*4))
	gl.BindVertexArray(0)

	return g, nil
}

// Draw renders the gradient. The depth function is expected to be LEQUAL.
func (g *Gradient) Draw() {
	gl.DepthMask(false)
	gl.UseProgram(g.prog)
	gl.BindVertexArray(g.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 12)
	gl.BindVertexArray(0)
	gl.DepthMask(true)
}

// Destroy frees all GPU resources owned by the gradient.
func (g *Gradient) Destroy() {
	gl.DeleteVertexArrays(1, &g.vao)
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteProgram(g.prog)
}
