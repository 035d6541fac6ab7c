package renderer

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// State is a phase of the frame loop.
type State int

const (
	StateInit State = iota
	StateRendering
	StateStepping
	StateSwapping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRendering:
		return "rendering"
	case StateStepping:
		return "stepping"
	case StateSwapping:
		return "swapping"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ── Collaborators ─────────────────────────────────────────────────────────────

// Surface is the window the driver presents to.
type Surface interface {
	ShouldClose() bool
	PollEvents()
	SwapBuffers()
	// Elapsed returns seconds since the last ResetTimer.
	Elapsed() float64
	ResetTimer()
}

// FrameTarget prepares the default framebuffer for a new frame.
type FrameTarget interface {
	BeginFrame(width, height int)
}

type TerrainPass interface {
	DrawTerrain(view, proj mgl32.Mat4)
}

// ParticlePass draws from the current state, steps into the next state and
// swaps the two designations.
type ParticlePass interface {
	DrawParticles(view, proj mgl32.Mat4)
	Step(dt float32) error
	Swap() error
}

type BackgroundPass interface {
	DrawBackground()
}

// ── Config ────────────────────────────────────────────────────────────────────

// Config tunes the frame driver.
type Config struct {
	// MaxStep caps the simulation step in seconds so a stalled frame (window
	// drag, breakpoint) does not throw every particle through the floor.
	MaxStep float32
}

func DefaultConfig() Config {
	return Config{MaxStep: 0.25}
}

// ClampDelta maps a raw frame time to a step the particle stepper accepts:
// NaN and negative values become 0, values above max become max. A
// non-positive max disables the upper bound.
func ClampDelta(dt float64, max float32) float32 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	if max > 0 && dt > float64(max) {
		return max
	}
	return float32(dt)
}

// ── FrameDriver ───────────────────────────────────────────────────────────────

// FrameDriver runs the strictly sequential loop: render the frame from the
// current particle state, present, step into the next state, swap, poll.
type FrameDriver struct {
	ctx        *RenderContext
	surface    Surface
	target     FrameTarget
	terrain    TerrainPass
	particles  ParticlePass
	background BackgroundPass
	cfg        Config

	state  State
	frames uint64
}

func NewFrameDriver(ctx *RenderContext, surface Surface, target FrameTarget,
	terrain TerrainPass, particles ParticlePass, background BackgroundPass, cfg Config) *FrameDriver {
	return &FrameDriver{
		ctx:        ctx,
		surface:    surface,
		target:     target,
		terrain:    terrain,
		particles:  particles,
		background: background,
		cfg:        cfg,
		state:      StateInit,
	}
}

func (d *FrameDriver) State() State { return d.state }

// Frames is the number of completed iterations.
func (d *FrameDriver) Frames() uint64 { return d.frames }

// Start leaves StateInit. All resources must exist by now. The frame timer
// is reset so the first step does not include startup time.
func (d *FrameDriver) Start() {
	if d.state != StateInit {
		return
	}
	d.surface.ResetTimer()
	if d.surface.ShouldClose() {
		d.state = StateTerminated
		return
	}
	d.state = StateRendering
}

// Tick runs one full iteration. It is a no-op once terminated. On error the
// driver stays in the state that failed.
func (d *FrameDriver) Tick() error {
	switch d.state {
	case StateTerminated:
		return nil
	case StateInit:
		d.Start()
		if d.state == StateTerminated {
			return nil
		}
	}

	d.state = StateRendering
	d.target.BeginFrame(d.ctx.Width, d.ctx.Height)
	view := d.ctx.Camera.ViewMatrix()
	proj := d.ctx.Camera.ProjectionMatrix(d.ctx.Aspect())
	d.terrain.DrawTerrain(view, proj)
	d.particles.DrawParticles(view, proj)
	d.background.DrawBackground()
	d.surface.SwapBuffers()

	d.state = StateStepping
	dt := ClampDelta(d.surface.Elapsed(), d.cfg.MaxStep)
	d.surface.ResetTimer()
	if err := d.particles.Step(dt); err != nil {
		return fmt.Errorf("frame %d: step: %w", d.frames, err)
	}

	d.state = StateSwapping
	if err := d.particles.Swap(); err != nil {
		return fmt.Errorf("frame %d: swap: %w", d.frames, err)
	}
	d.frames++

	d.surface.PollEvents()
	if d.surface.ShouldClose() {
		d.state = StateTerminated
		d.ctx.Log.Debugf("frame loop terminated after %d frames", d.frames)
		return nil
	}
	d.state = StateRendering
	return nil
}

// Run loops until the surface asks to close or a frame fails.
func (d *FrameDriver) Run() error {
	d.Start()
	for d.state != StateTerminated {
		if err := d.Tick(); err != nil {
			return err
		}
	}
	return nil
}
