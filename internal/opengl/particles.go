package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
	"snowscene/internal/opengl/shaders"
	"snowscene/scene"
)

// ── ParticleStore ─────────────────────────────────────────────────────────────

// ParticleStore owns the two state textures (RecordWidth x count, R32F) and
// the framebuffer the stepper renders into. The framebuffer's colour
// attachment is always the texture designated Next.
type ParticleStore struct {
	fbo      uint32
	textures *scene.PingPong[uint32]
	count    int
}

// NewParticleStore uploads initial as the current state and allocates an
// empty companion texture of the same shape.
func NewParticleStore(initial *scene.StateBuffer) (*ParticleStore, error) {
	if initial.Width != scene.RecordWidth || initial.Height <= 0 {
		return nil, fmt.Errorf("%w: particle state %dx%d", core.ErrInvariant, initial.Width, initial.Height)
	}
	cur, err := newStateTexture(initial.Width, initial.Height, initial.Data)
	if err != nil {
		return nil, err
	}
	next, err := newStateTexture(initial.Width, initial.Height, nil)
	if err != nil {
		gl.DeleteTextures(1, &cur)
		return nil, err
	}

	s := &ParticleStore{
		textures: scene.NewPingPong(cur, next),
		count:    initial.Height,
	}
	gl.GenFramebuffers(1, &s.fbo)
	if err := s.attachNext(); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *ParticleStore) attachNext() error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_RECTANGLE, s.textures.Next(), 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: particle framebuffer incomplete: 0x%x", core.ErrInvariant, status)
	}
	return nil
}

// Current is the texture the renderer and stepper read this frame.
func (s *ParticleStore) Current() uint32 { return s.textures.Current() }

// Next is the texture the stepper writes this frame.
func (s *ParticleStore) Next() uint32 { return s.textures.Next() }

func (s *ParticleStore) Count() int { return s.count }

// Swap exchanges the designations and re-attaches the new Next texture.
func (s *ParticleStore) Swap() error {
	s.textures.Swap()
	return s.attachNext()
}

func (s *ParticleStore) Destroy() {
	if s.fbo != 0 {
		gl.DeleteFramebuffers(1, &s.fbo)
		s.fbo = 0
	}
	slots := s.textures.Slots()
	gl.DeleteTextures(2, &slots[0])
}

// ── Steppers ──────────────────────────────────────────────────────────────────

// Stepper advances the store's Current state into its Next texture.
type Stepper interface {
	Step(store *ParticleStore, dt, minY float32) error
	// Swapped is called after the store swapped designations.
	Swapped()
	Destroy()
}

// GPUStepper runs the step fragment shader over every texel of the Next
// texture.
type GPUStepper struct {
	prog uint32
	vao  uint32

	stateLoc int32
	dtLoc    int32
	minYLoc  int32
}

func NewGPUStepper(count int) (*GPUStepper, error) {
	defines := shaders.ParticleDefines(count)
	prog, err := BuildProgram(shaders.FS, []StageSource{
		{Type: gl.VERTEX_SHADER, Path: "step.vert", Defines: defines},
		{Type: gl.FRAGMENT_SHADER, Path: "step.frag", Defines: defines},
	})
	if err != nil {
		return nil, fmt.Errorf("particle step shader: %w", err)
	}

	st := &GPUStepper{
		prog:     prog,
		stateLoc: uniform(prog, "state"),
		dtLoc:    uniform(prog, "deltaTime"),
		minYLoc:  uniform(prog, "minY"),
	}
	gl.GenVertexArrays(1, &st.vao)

	gl.UseProgram(prog)
	gl.Uniform1i(st.stateLoc, 0)
	return st, nil
}

func (st *GPUStepper) Step(store *ParticleStore, dt, minY float32) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, store.fbo)
	gl.Viewport(0, 0, scene.RecordWidth, int32(store.count))
	gl.Disable(gl.DEPTH_TEST)

	gl.UseProgram(st.prog)
	gl.Uniform1f(st.dtLoc, dt)
	gl.Uniform1f(st.minYLoc, minY)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_RECTANGLE, store.Current())

	gl.BindVertexArray(st.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)

	gl.BindTexture(gl.TEXTURE_RECTANGLE, 0)
	gl.Enable(gl.DEPTH_TEST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

func (st *GPUStepper) Swapped() {}

func (st *GPUStepper) Destroy() {
	gl.DeleteVertexArrays(1, &st.vao)
	gl.DeleteProgram(st.prog)
}

// CPUStepper runs scene.StepParticles on a host copy of the state and
// uploads the result into the Next texture.
type CPUStepper struct {
	sim *scene.ParticleSim
}

// NewCPUStepper takes the same initial buffer the store was created from.
func NewCPUStepper(initial *scene.StateBuffer) *CPUStepper {
	return &CPUStepper{sim: scene.NewParticleSim(initial, scene.DefaultMinY)}
}

func (st *CPUStepper) Step(store *ParticleStore, dt, minY float32) error {
	st.sim.MinY = minY
	if err := st.sim.Step(dt); err != nil {
		return err
	}
	writeStateTexture(store.Next(), st.sim.Next())
	return nil
}

func (st *CPUStepper) Swapped() { st.sim.Swap() }

func (st *CPUStepper) Destroy() {}

// ── ParticleRenderer ─────────────────────────────────────────────────────────

// ParticleRenderer draws one instanced point per particle, expanded into a
// sprite quad by the geometry stage. Flakes write depth and discard
// transparent texels instead of blending.
type ParticleRenderer struct {
	prog uint32
	vao  uint32

	stateLoc  int32
	spriteLoc int32
	viewLoc   int32
	projLoc   int32
}

func NewParticleRenderer(count int) (*ParticleRenderer, error) {
	defines := shaders.ParticleDefines(count)
	prog, err := BuildProgram(shaders.FS, []StageSource{
		{Type: gl.VERTEX_SHADER, Path: "particles.vert", Defines: defines},
		{Type: gl.GEOMETRY_SHADER, Path: "particles.geom", Defines: defines},
		{Type: gl.FRAGMENT_SHADER, Path: "particles.frag", Defines: defines},
	})
	if err != nil {
		return nil, fmt.Errorf("particle shader: %w", err)
	}

	pr := &ParticleRenderer{
		prog:      prog,
		stateLoc:  uniform(prog, "state"),
		spriteLoc: uniform(prog, "sprite"),
		viewLoc:   uniform(prog, "view"),
		projLoc:   uniform(prog, "proj"),
	}
	gl.GenVertexArrays(1, &pr.vao)

	// Texture units: state=0, sprite=1
	gl.UseProgram(prog)
	gl.Uniform1i(pr.stateLoc, 0)
	gl.Uniform1i(pr.spriteLoc, 1)
	return pr, nil
}

func (pr *ParticleRenderer) Draw(store *ParticleStore, sprite uint32, view, proj mgl32.Mat4) {
	gl.UseProgram(pr.prog)
	gl.UniformMatrix4fv(pr.viewLoc, 1, false, &view[0])
	gl.UniformMatrix4fv(pr.projLoc, 1, false, &proj[0])

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_RECTANGLE, store.Current())
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, sprite)

	gl.BindVertexArray(pr.vao)
	gl.DrawArraysInstanced(gl.POINTS, 0, 1, int32(store.count))
	gl.BindVertexArray(0)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_RECTANGLE, 0)
}

func (pr *ParticleRenderer) Destroy() {
	gl.DeleteVertexArrays(1, &pr.vao)
	gl.DeleteProgram(pr.prog)
}

// ── ParticleSystem ───────────────────────────────────────────────────────────

// ParticleSystem ties the store to a stepper and a renderer.
type ParticleSystem struct {
	Store    *ParticleStore
	Stepper  Stepper
	Renderer *ParticleRenderer
	Sprite   *scene.Texture
	MinY     float32
}

// NewParticleSystem uploads initial and the sprite and builds the stepper
// selected by useCPU.
func NewParticleSystem(initial *scene.StateBuffer, sprite *scene.Texture, minY float32, useCPU bool) (*ParticleSystem, error) {
	// The CPU stepper keeps its own copy; the store only reads initial once.
	var stepper Stepper
	if useCPU {
		host := &scene.StateBuffer{Width: initial.Width, Height: initial.Height, Data: append([]float32(nil), initial.Data...)}
		stepper = NewCPUStepper(host)
	}

	store, err := NewParticleStore(initial)
	if err != nil {
		return nil, err
	}
	ps := &ParticleSystem{Store: store, Sprite: sprite, MinY: minY}

	if stepper == nil {
		gpu, err := NewGPUStepper(store.Count())
		if err != nil {
			ps.Destroy()
			return nil, err
		}
		stepper = gpu
	}
	ps.Stepper = stepper

	if ps.Renderer, err = NewParticleRenderer(store.Count()); err != nil {
		ps.Destroy()
		return nil, err
	}
	if sprite.GLID == 0 {
		if err := UploadTexture(sprite); err != nil {
			ps.Destroy()
			return nil, err
		}
	}
	return ps, nil
}

// Step writes the advanced state into the store's Next texture.
func (ps *ParticleSystem) Step(dt float32) error {
	return ps.Stepper.Step(ps.Store, dt, ps.MinY)
}

func (ps *ParticleSystem) Swap() error {
	if err := ps.Store.Swap(); err != nil {
		return err
	}
	ps.Stepper.Swapped()
	return nil
}

func (ps *ParticleSystem) Draw(view, proj mgl32.Mat4) {
	ps.Renderer.Draw(ps.Store, ps.Sprite.GLID, view, proj)
}

func (ps *ParticleSystem) Destroy() {
	if ps.Renderer != nil {
		ps.Renderer.Destroy()
	}
	if ps.Stepper != nil {
		ps.Stepper.Destroy()
	}
	if ps.Store != nil {
		ps.Store.Destroy()
	}
	DeleteTexture(ps.Sprite)
}
