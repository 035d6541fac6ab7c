package scene

// PingPong holds two buffers and a single bit naming the current one.
// Swapping flips the bit; the buffers themselves never move. Readers must
// resolve Current and Next again after every Swap.
type PingPong[T any] struct {
	slots [2]T
	cur   uint8
}

func NewPingPong[T any](current, next T) *PingPong[T] {
	return &PingPong[T]{slots: [2]T{current, next}}
}

func (p *PingPong[T]) Current() T { return p.slots[p.cur] }

func (p *PingPong[T]) Next() T { return p.slots[p.cur^1] }

func (p *PingPong[T]) Swap() { p.cur ^= 1 }

// Index reports which slot (0 or 1) is current.
func (p *PingPong[T]) Index() int { return int(p.cur) }

// Slots returns both buffers in creation order, for teardown.
func (p *PingPong[T]) Slots() [2]T { return p.slots }
