package overlay

// arena tracks drawn-primitive handles keyed by redraw-pass generation.
// Each pass owns exactly its own generation's handles, so a late teardown
// can never release handles created by a newer pass.
type arena struct {
	gen     uint64
	handles map[uint64][]Handle
}

func newArena() *arena {
	return &arena{handles: make(map[uint64][]Handle)}
}

// begin opens a new generation and returns its number.
func (a *arena) begin() uint64 {
	a.gen++
	return a.gen
}

// track records a handle under the given generation.
func (a *arena) track(gen uint64, h Handle) {
	a.handles[gen] = append(a.handles[gen], h)
}

// drain removes and returns every tracked handle across all generations.
// Called at the start of a redraw pass and on disable.
func (a *arena) drain() []Handle {
	var all []Handle
	for gen, hs := range a.handles {
		all = append(all, hs...)
		delete(a.handles, gen)
	}
	return all
}

// size returns the number of currently tracked handles.
func (a *arena) size() int {
	n := 0
	for _, hs := range a.handles {
		n += len(hs)
	}
	return n
}
