package scene

import (
	"fmt"
	"math/rand/v2"

	"snowscene/core"
)

// Field offsets inside one particle record. The same table is injected into
// the stepper and particle shaders as preprocessor defines, so the host and
// GPU layouts cannot drift apart.
//
//	 0  1  2 | 3  4  5 | 6  7  8 |   9   | 10 11 12 | 13  14  15
//	 x  y  z | vx vy vz| ax ay az| scale | ix iy iz | ivx ivy ivz
const (
	FieldX = iota
	FieldY
	FieldZ
	FieldVX
	FieldVY
	FieldVZ
	FieldAX
	FieldAY
	FieldAZ
	FieldScale
	FieldInitialX
	FieldInitialY
	FieldInitialZ
	FieldInitialVX
	FieldInitialVY
	FieldInitialVZ

	// RecordWidth is the number of float32 fields per particle.
	RecordWidth
)

// RecordStride is the byte size of one record (little-endian float32s).
const RecordStride = RecordWidth * 4

const (
	DefaultParticleCount = 8192
	DefaultMinY          = float32(-2.0)
)

// FieldNames maps field offsets to the names used in shader defines.
var FieldNames = [RecordWidth]string{
	"FIELD_X", "FIELD_Y", "FIELD_Z",
	"FIELD_VX", "FIELD_VY", "FIELD_VZ",
	"FIELD_AX", "FIELD_AY", "FIELD_AZ",
	"FIELD_SCALE",
	"FIELD_INITIAL_X", "FIELD_INITIAL_Y", "FIELD_INITIAL_Z",
	"FIELD_INITIAL_VX", "FIELD_INITIAL_VY", "FIELD_INITIAL_VZ",
}

// StateBuffer is a RecordWidth x Height grid of float32, one row per
// particle. Data is laid out exactly as the GPU state texture.
type StateBuffer struct {
	Width  int
	Height int
	Data   []float32
}

// NewStateBuffer allocates a zeroed buffer for n particles.
func NewStateBuffer(n int) *StateBuffer {
	return &StateBuffer{
		Width:  RecordWidth,
		Height: n,
		Data:   make([]float32, n*RecordWidth),
	}
}

func (b *StateBuffer) At(i, field int) float32 {
	return b.Data[i*b.Width+field]
}

func (b *StateBuffer) Set(i, field int, v float32) {
	b.Data[i*b.Width+field] = v
}

// Record returns particle i's row. The slice aliases the buffer.
func (b *StateBuffer) Record(i int) []float32 {
	off := i * b.Width
	return b.Data[off : off+b.Width : off+b.Width]
}

func (b *StateBuffer) SameShape(o *StateBuffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// Range is a closed-open uniform sampling interval.
type Range struct {
	Min, Max float32
}

func (r Range) sample(rng *rand.Rand) float32 {
	return r.Min + (r.Max-r.Min)*rng.Float32()
}

func (r Range) Contains(v float32) bool {
	return v >= r.Min && v <= r.Max
}

// SnowRanges are the per-field sampling intervals of the initializer.
type SnowRanges struct {
	X, Y, Z    Range
	InitialY   Range // reset height; above Y so flakes start low and respawn high
	VX, VY, VZ Range
	AX, AY, AZ Range
	Scale      Range
}

func DefaultSnowRanges() SnowRanges {
	return SnowRanges{
		X:        Range{-5.5, 5.5},
		Y:        Range{0, 5.5},
		Z:        Range{-5.5, 5.5},
		InitialY: Range{4.5, 6.0},
		VX:       Range{-0.5, 0.5},
		VY:       Range{-0.5, -0.15},
		VZ:       Range{-0.5, 0.5},
		AX:       Range{-0.015, 0.015},
		AY:       Range{-0.015, -0.001},
		AZ:       Range{-0.015, 0.015},
		Scale:    Range{0.025, 0.085},
	}
}

// Populate draws n records. The initial* fields snapshot the starting
// x, z and velocity; initial y comes from its own range.
func (r SnowRanges) Populate(rng *rand.Rand, n int) *StateBuffer {
	buf := NewStateBuffer(n)
	for i := 0; i < n; i++ {
		p := buf.Record(i)
		p[FieldX] = r.X.sample(rng)
		p[FieldY] = r.Y.sample(rng)
		p[FieldInitialY] = r.InitialY.sample(rng)
		p[FieldZ] = r.Z.sample(rng)
		p[FieldVX] = r.VX.sample(rng)
		p[FieldVY] = r.VY.sample(rng)
		p[FieldVZ] = r.VZ.sample(rng)
		p[FieldAX] = r.AX.sample(rng)
		p[FieldAY] = r.AY.sample(rng)
		p[FieldAZ] = r.AZ.sample(rng)
		p[FieldScale] = r.Scale.sample(rng)

		p[FieldInitialX] = p[FieldX]
		p[FieldInitialZ] = p[FieldZ]
		p[FieldInitialVX] = p[FieldVX]
		p[FieldInitialVY] = p[FieldVY]
		p[FieldInitialVZ] = p[FieldVZ]
	}
	return buf
}

// InitParticles creates n snow particles with DefaultSnowRanges.
func InitParticles(rng *rand.Rand, n int) *StateBuffer {
	return DefaultSnowRanges().Populate(rng, n)
}

// NewSeededRand returns the deterministic random source used for
// particle initialisation.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// StepParticles advances every record of src by dt and writes the result to
// dst using semi-implicit Euler:
//
//	v' = v + a*dt
//	p' = p + v'*dt
//
// A particle whose new y falls below minY is put back to its initial
// position and velocity. Acceleration, scale and the initial snapshot are
// copied unchanged. dt must already be clamped to a finite value >= 0.
func StepParticles(dst, src *StateBuffer, dt, minY float32) error {
	if dst == src {
		return fmt.Errorf("%w: step source and destination are the same buffer", core.ErrInvariant)
	}
	if !dst.SameShape(src) {
		return fmt.Errorf("%w: step shape mismatch: %dx%d -> %dx%d",
			core.ErrInvariant, src.Width, src.Height, dst.Width, dst.Height)
	}
	if src.Width != RecordWidth {
		return fmt.Errorf("%w: record width %d, want %d", core.ErrInvariant, src.Width, RecordWidth)
	}
	for i := 0; i < src.Height; i++ {
		stepRecord(dst.Record(i), src.Record(i), dt, minY)
	}
	return nil
}

func stepRecord(out, in []float32, dt, minY float32) {
	copy(out, in)

	vx := in[FieldVX] + in[FieldAX]*dt
	vy := in[FieldVY] + in[FieldAY]*dt
	vz := in[FieldVZ] + in[FieldAZ]*dt
	x := in[FieldX] + vx*dt
	y := in[FieldY] + vy*dt
	z := in[FieldZ] + vz*dt

	if y < minY {
		x, y, z = in[FieldInitialX], in[FieldInitialY], in[FieldInitialZ]
		vx, vy, vz = in[FieldInitialVX], in[FieldInitialVY], in[FieldInitialVZ]
	}

	out[FieldX], out[FieldY], out[FieldZ] = x, y, z
	out[FieldVX], out[FieldVY], out[FieldVZ] = vx, vy, vz
}

// ParticleSim is the host-side simulation: a ping-pong pair of state
// buffers stepped on the CPU.
type ParticleSim struct {
	buffers *PingPong[*StateBuffer]
	MinY    float32
}

// NewParticleSim takes ownership of initial; the companion buffer is
// allocated with the same shape.
func NewParticleSim(initial *StateBuffer, minY float32) *ParticleSim {
	return &ParticleSim{
		buffers: NewPingPong(initial, NewStateBuffer(initial.Height)),
		MinY:    minY,
	}
}

func (s *ParticleSim) Current() *StateBuffer { return s.buffers.Current() }

func (s *ParticleSim) Next() *StateBuffer { return s.buffers.Next() }

// Step writes the advanced state into Next. It does not swap.
func (s *ParticleSim) Step(dt float32) error {
	return StepParticles(s.buffers.Next(), s.buffers.Current(), dt, s.MinY)
}

func (s *ParticleSim) Swap() { s.buffers.Swap() }

func (s *ParticleSim) Count() int { return s.buffers.Current().Height }
