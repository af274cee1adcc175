package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuromore/engine/internal/pool"
	"github.com/neuromore/engine/signal"
)

func TestPool(t *testing.T) {
	tests := []struct {
		numChannels int
		sizes       []int
	}{
		{
			numChannels: 1,
			sizes:       []int{512, 10, 1024},
		},
		{
			numChannels: 100,
			sizes:       []int{1, 0, 64},
		},
	}
	for _, test := range tests {
		p := pool.Get(test.numChannels)
		assert.Same(t, p, pool.Get(test.numChannels))
		assert.Equal(t, test.numChannels, p.NumChannels())
		for _, size := range test.sizes {
			b := p.Alloc(size)
			assert.Equal(t, test.numChannels, b.NumChannels())
			assert.Equal(t, size, b.Size())
			p.Free(b)
		}
		p.Free(signal.EmptyFloat64(test.numChannels+1, 1))
	}
}
