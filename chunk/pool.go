package chunk

import "sync"

// Pool is a fixed-capacity allocator of Chunks with a free list. Residency
// holds dense indices rather than raw pointers so eviction never dangles a
// concurrent query; the live map is keyed by Coord for Query lookups.
type Pool struct {
	mu       sync.RWMutex
	slots    []*Chunk
	free     []int32
	liveIdx  map[Coord]int32
	side     int
}

// NewPool preallocates capacity Chunks of the given side length.
func NewPool(capacity, side int) *Pool {
	p := &Pool{
		slots:   make([]*Chunk, capacity),
		free:    make([]int32, capacity),
		liveIdx: make(map[Coord]int32, capacity),
		side:    side,
	}
	for i := 0; i < capacity; i++ {
		p.slots[i] = New(Coord{}, side)
		p.free[i] = int32(capacity - 1 - i)
	}
	return p
}

// Capacity returns the pool's fixed chunk capacity.
func (p *Pool) Capacity() int { return len(p.slots) }

// Len returns how many slots are currently allocated to a coord.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.liveIdx)
}

// Allocate assigns a free slot to coord, resetting it to Empty. Returns
// ok=false (ResourceExhausted) if the pool is full.
func (p *Pool) Allocate(coord Coord) (*Chunk, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.liveIdx[coord]; ok {
		return p.slots[idx], true
	}
	if len(p.free) == 0 {
		return nil, false
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	c := p.slots[idx]
	c.Reset(coord)
	p.liveIdx[coord] = idx
	return c, true
}

// Free returns coord's slot to the free list.
func (p *Pool) Free(coord Coord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.liveIdx[coord]
	if !ok {
		return
	}
	delete(p.liveIdx, coord)
	p.free = append(p.free, idx)
}

// Get returns the chunk allocated at coord, if any (regardless of Status).
func (p *Pool) Get(coord Coord) (*Chunk, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx, ok := p.liveIdx[coord]
	if !ok {
		return nil, false
	}
	return p.slots[idx], true
}

// Allocated reports whether coord currently holds a slot.
func (p *Pool) Allocated(coord Coord) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.liveIdx[coord]
	return ok
}

// Coords returns every coord currently holding a slot (allocation order is
// unspecified).
func (p *Pool) Coords() []Coord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Coord, 0, len(p.liveIdx))
	for c := range p.liveIdx {
		out = append(out, c)
	}
	return out
}
