package gvmheap

// Collect runs a full mark and sweep cycle.
//
// Roots are the Nil node, everything yielded by the RootFunc and the pinning stack.
// Unmarked nodes and existing free runs are coalesced into new free runs.
func (h *Heap) Collect() CollectStats {
	h.mark()
	freed, live := h.sweep()
	h.stats.Collections++
	h.stats.LiveWords = live
	cs := CollectStats{
		Freed: freed,
		Free:  h.FreeWords(),
		Live:  live,
	}
	if h.onCollect != nil {
		h.onCollect(cs)
	}
	return cs
}

func (h *Heap) mark() {
	h.marks.Clear(0, h.marks.Words())
	work := []Addr{0}
	if h.roots != nil {
		h.roots(func(a Addr) {
			work = append(work, a)
		})
	}
	work = append(work, h.pins...)
	for len(work) > 0 {
		a := work[len(work)-1]
		work = work[:len(work)-1]
		if h.isMarked(a) {
			continue
		}
		h.setMark(a)
		work = h.Node(a).AppendChildren(work)
	}
}

// sweep rebuilds the free list from every run of unmarked or free nodes.
func (h *Heap) sweep() (freed, live int) {
	h.free = h.free[:0]
	var run span
	flush := func() {
		if run.size > 0 {
			h.setHeader(run.addr, TagFree, run.size)
			h.free = append(h.free, run)
		}
		run = span{}
	}
	for a := 0; a < h.Words(); {
		tag, size := h.tag(a), h.size(a)
		if size < 1 {
			panic(ErrCorrupt{Addr: Addr(a)})
		}
		switch {
		case tag != TagFree && h.isMarked(Addr(a)):
			live += size
			flush()
		default:
			if tag != TagFree {
				freed += size
			}
			if run.size == 0 {
				run.addr = a
			}
			run.size += size
		}
		a += size
	}
	flush()
	return freed, live
}

func (h *Heap) isMarked(a Addr) bool {
	wb := h.marks.WordBits()
	return h.marks.GetBits(int(a)/wb, 1, int(a)%wb) == 1
}

func (h *Heap) setMark(a Addr) {
	wb := h.marks.WordBits()
	h.marks.SetBits(1, int(a)/wb, 1, int(a)%wb)
}
