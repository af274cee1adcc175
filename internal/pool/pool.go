// Package pool shares short lived sample blocks between components with
// the same channel count.
package pool

import (
	"sync"

	"github.com/neuromore/engine/signal"
)

var m = struct {
	sync.Mutex
	pools map[int]*Pool
}{
	pools: map[int]*Pool{},
}

// Get returns the pool for blocks of numChannels. Pools are cached, so
// every component writing the same channel count shares one pool.
func Get(numChannels int) *Pool {
	m.Lock()
	defer m.Unlock()
	if p, ok := m.pools[numChannels]; ok {
		return p
	}

	p := &Pool{numChannels: numChannels}
	m.pools[numChannels] = p
	return p
}

// Pool recycles blocks of one channel count. Block sizes vary, capacity
// grows to the largest size requested.
type Pool struct {
	numChannels int
	pool        sync.Pool
}

// NumChannels returns the channel count of the blocks.
func (p *Pool) NumChannels() int {
	return p.numChannels
}

// Alloc returns a block with size samples per channel. Values are not
// zeroed.
func (p *Pool) Alloc(size int) signal.Float64 {
	b, ok := p.pool.Get().(signal.Float64)
	if !ok {
		b = make(signal.Float64, p.numChannels)
	}
	for i := range b {
		if cap(b[i]) < size {
			b[i] = make([]float64, size)
		}
		b[i] = b[i][:size]
	}
	return b
}

// Free returns a block to the pool. Blocks of other channel counts are
// dropped.
func (p *Pool) Free(b signal.Float64) {
	if b.NumChannels() != p.numChannels {
		return
	}
	p.pool.Put(b)
}
