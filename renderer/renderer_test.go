package renderer

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snowscene/core"
	"snowscene/scene"
)

// recorder implements every collaborator and logs calls in order.
type recorder struct {
	calls      []string
	closeAfter int // ShouldClose turns true after this many PollEvents
	polls      int
	elapsed    float64
	steps      []float32
	stepErr    error
	swapErr    error
	sizes      [][2]int
	stateAt    func() State
	stateDraws []State
}

func (r *recorder) ShouldClose() bool { return r.polls >= r.closeAfter }
func (r *recorder) PollEvents()       { r.polls++; r.calls = append(r.calls, "poll") }
func (r *recorder) SwapBuffers()      { r.calls = append(r.calls, "present") }
func (r *recorder) Elapsed() float64  { return r.elapsed }
func (r *recorder) ResetTimer()       { r.calls = append(r.calls, "reset") }

func (r *recorder) BeginFrame(w, h int) {
	r.sizes = append(r.sizes, [2]int{w, h})
	r.calls = append(r.calls, "clear")
}

func (r *recorder) DrawTerrain(view, proj mgl32.Mat4) { r.calls = append(r.calls, "terrain") }

func (r *recorder) DrawParticles(view, proj mgl32.Mat4) {
	if r.stateAt != nil {
		r.stateDraws = append(r.stateDraws, r.stateAt())
	}
	r.calls = append(r.calls, "particles")
}

func (r *recorder) DrawBackground() { r.calls = append(r.calls, "gradient") }

func (r *recorder) Step(dt float32) error {
	r.steps = append(r.steps, dt)
	r.calls = append(r.calls, "step")
	return r.stepErr
}

func (r *recorder) Swap() error {
	r.calls = append(r.calls, "swap")
	return r.swapErr
}

func newTestDriver(r *recorder) *FrameDriver {
	ctx := NewRenderContext(640, 480, scene.DefaultCamera(), scene.PointLight{}, core.NewNopLogger())
	return NewFrameDriver(ctx, r, r, r, r, r, DefaultConfig())
}

func TestFrameDriverOrder(t *testing.T) {
	r := &recorder{closeAfter: 2, elapsed: 0.016}
	d := newTestDriver(r)
	assert.Equal(t, StateInit, d.State())

	require.NoError(t, d.Run())
	assert.Equal(t, StateTerminated, d.State())
	assert.Equal(t, uint64(2), d.Frames())

	frame := []string{"clear", "terrain", "particles", "gradient", "present", "reset", "step", "swap", "poll"}
	want := append([]string{"reset"}, frame...)
	want = append(want, frame...)
	assert.Equal(t, want, r.calls)
	assert.Equal(t, [][2]int{{640, 480}, {640, 480}}, r.sizes)
	assert.Equal(t, []float32{0.016, 0.016}, r.steps)
}

func TestFrameDriverStates(t *testing.T) {
	r := &recorder{closeAfter: 1}
	d := newTestDriver(r)
	r.stateAt = d.State

	d.Start()
	assert.Equal(t, StateRendering, d.State())
	require.NoError(t, d.Tick())
	assert.Equal(t, []State{StateRendering}, r.stateDraws)
	assert.Equal(t, StateTerminated, d.State())

	// Terminated is absorbing.
	n := len(r.calls)
	require.NoError(t, d.Tick())
	assert.Len(t, r.calls, n)
	assert.Equal(t, "terminated", d.State().String())
}

func TestFrameDriverClosedBeforeFirstFrame(t *testing.T) {
	r := &recorder{closeAfter: 0}
	d := newTestDriver(r)
	require.NoError(t, d.Run())
	assert.Equal(t, StateTerminated, d.State())
	assert.Zero(t, d.Frames())
	assert.NotContains(t, r.calls, "clear")
}

func TestFrameDriverStepErrorSkipsSwap(t *testing.T) {
	boom := errors.New("boom")
	r := &recorder{closeAfter: 5, stepErr: boom}
	d := newTestDriver(r)

	err := d.Run()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateStepping, d.State())
	assert.NotContains(t, r.calls, "swap")
	assert.Zero(t, d.Frames())
}

func TestFrameDriverSwapError(t *testing.T) {
	boom := errors.New("incomplete")
	r := &recorder{closeAfter: 5, swapErr: boom}
	d := newTestDriver(r)

	require.ErrorIs(t, d.Run(), boom)
	assert.Equal(t, StateSwapping, d.State())
}

func TestFrameDriverClampsDelta(t *testing.T) {
	r := &recorder{closeAfter: 1, elapsed: 3}
	d := newTestDriver(r)
	require.NoError(t, d.Run())
	assert.Equal(t, []float32{DefaultConfig().MaxStep}, r.steps)
}

func TestClampDelta(t *testing.T) {
	assert.Equal(t, float32(0), ClampDelta(math.NaN(), 0.25))
	assert.Equal(t, float32(0), ClampDelta(-1, 0.25))
	assert.Equal(t, float32(0.25), ClampDelta(10, 0.25))
	assert.InDelta(t, 0.1, ClampDelta(0.1, 0.25), 1e-7)
	assert.Equal(t, float32(10), ClampDelta(10, 0))
}

func TestRenderContextDragOrbits(t *testing.T) {
	cam := scene.DefaultCamera()
	ctx := NewRenderContext(640, 480, cam, scene.PointLight{}, nil)
	start := cam.Position

	ctx.SetCursor(100, 100)
	ctx.CursorMoved(200, 120)
	assert.Equal(t, start, cam.Position, "no orbit without a drag")

	ctx.SetDragging(true)
	assert.True(t, ctx.Dragging())
	ctx.CursorMoved(200, 300)
	assert.Equal(t, start, cam.Position, "vertical motion does not orbit")

	// Quarter turn: 10*dx/640 = pi/2.
	ctx.CursorMoved(200+math.Pi/2*640/scene.OrbitSpeed, 300)
	assert.InDelta(t, 10, cam.Position.X(), 1e-3)
	assert.InDelta(t, 3, cam.Position.Y(), 1e-6)
	assert.InDelta(t, 0, cam.Position.Z(), 1e-3)

	ctx.SetDragging(false)
	moved := cam.Position
	ctx.CursorMoved(0, 0)
	assert.Equal(t, moved, cam.Position)
}

func TestRenderContextFirstMotionIsNotADrag(t *testing.T) {
	cam := scene.DefaultCamera()
	ctx := NewRenderContext(640, 480, cam, scene.PointLight{}, nil)
	ctx.SetDragging(true)
	ctx.CursorMoved(500, 0)
	assert.Equal(t, scene.DefaultCamera().Position, cam.Position)
}

func TestRenderContextAspect(t *testing.T) {
	ctx := NewRenderContext(640, 480, nil, scene.PointLight{}, nil)
	assert.InDelta(t, 4.0/3.0, ctx.Aspect(), 1e-6)
	ctx.Resize(0, 0)
	assert.Equal(t, float32(1), ctx.Aspect())
}
