package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPingPongSwap(t *testing.T) {
	pp := NewPingPong[uint32](11, 22)
	assert.Equal(t, uint32(11), pp.Current())
	assert.Equal(t, uint32(22), pp.Next())
	assert.Equal(t, 0, pp.Index())

	pp.Swap()
	assert.Equal(t, uint32(22), pp.Current())
	assert.Equal(t, uint32(11), pp.Next())
	assert.Equal(t, 1, pp.Index())
	assert.Equal(t, [2]uint32{11, 22}, pp.Slots())
}

func TestPingPongDoubleSwapRestores(t *testing.T) {
	a, b := NewStateBuffer(1), NewStateBuffer(1)
	pp := NewPingPong(a, b)
	for i := 0; i < 5; i++ {
		cur, next := pp.Current(), pp.Next()
		pp.Swap()
		pp.Swap()
		assert.Same(t, cur, pp.Current())
		assert.Same(t, next, pp.Next())
		pp.Swap()
	}
}
