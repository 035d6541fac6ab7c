package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
	"snowscene/internal/opengl"
	"snowscene/scene"
)

// EngineOptions selects the particle backend and frame timing.
type EngineOptions struct {
	MinY   float32
	UseCPU bool
	Config Config
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{MinY: scene.DefaultMinY, Config: DefaultConfig()}
}

// RenderEngine owns every OpenGL resource of the snow scene and implements
// the frame driver's passes on top of them.
type RenderEngine struct {
	gl       *opengl.Renderer
	window   *core.Window
	ctx      *RenderContext
	terrain  *opengl.TerrainRenderer
	gpuScene *opengl.GPUScene
	gradient *opengl.Gradient
	snow     *opengl.ParticleSystem
	driver   *FrameDriver
}

// NewRenderEngine initialises OpenGL on the window's context and uploads the
// scene, the particle state and the sprite. Any failure releases what was
// already created.
func NewRenderEngine(window *core.Window, ctx *RenderContext, sc *scene.Scene,
	initial *scene.StateBuffer, sprite *scene.Texture, opts EngineOptions) (*RenderEngine, error) {
	glRenderer, err := opengl.NewRenderer(ctx.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenGL renderer: %w", err)
	}
	re := &RenderEngine{gl: glRenderer, window: window, ctx: ctx}

	if re.terrain, err = opengl.NewTerrainRenderer(); err != nil {
		re.Destroy()
		return nil, err
	}
	if re.gpuScene, err = opengl.UploadScene(sc); err != nil {
		re.Destroy()
		return nil, fmt.Errorf("upload scene: %w", err)
	}
	if re.gradient, err = opengl.NewGradient(); err != nil {
		re.Destroy()
		return nil, err
	}
	if re.snow, err = opengl.NewParticleSystem(initial, sprite, opts.MinY, opts.UseCPU); err != nil {
		re.Destroy()
		return nil, fmt.Errorf("particle system: %w", err)
	}
	if err := glRenderer.CheckError("setup"); err != nil {
		re.Destroy()
		return nil, err
	}

	backend := "gpu"
	if opts.UseCPU {
		backend = "cpu"
	}
	ctx.Log.Infof("Render engine initialized: %d models, %d particles (%s stepper)",
		len(re.gpuScene.Models), re.snow.Store.Count(), backend)

	re.driver = NewFrameDriver(ctx, window, re, re, re, re, opts.Config)
	return re, nil
}

// Driver exposes the frame loop, mainly for its State and Frames.
func (re *RenderEngine) Driver() *FrameDriver { return re.driver }

// Run drives frames until the window is closed.
func (re *RenderEngine) Run() error { return re.driver.Run() }

// ── Passes ────────────────────────────────────────────────────────────────────

func (re *RenderEngine) BeginFrame(width, height int) {
	re.gl.SetViewport(width, height)
	re.gl.BeginFrame()
}

func (re *RenderEngine) DrawTerrain(view, proj mgl32.Mat4) {
	re.terrain.Draw(re.gpuScene, re.ctx.Camera, re.ctx.Light, view, proj)
}

func (re *RenderEngine) DrawParticles(view, proj mgl32.Mat4) {
	re.snow.Draw(view, proj)
}

func (re *RenderEngine) DrawBackground() {
	re.gradient.Draw()
}

func (re *RenderEngine) Step(dt float32) error {
	return re.snow.Step(dt)
}

func (re *RenderEngine) Swap() error {
	return re.snow.Swap()
}

// Destroy releases all GPU resources. Safe on a partially built engine.
func (re *RenderEngine) Destroy() {
	if re.snow != nil {
		re.snow.Destroy()
	}
	if re.gradient != nil {
		re.gradient.Destroy()
	}
	if re.gpuScene != nil {
		re.gpuScene.Destroy()
	}
	if re.terrain != nil {
		re.terrain.Destroy()
	}
	re.gl.Destroy()
}
