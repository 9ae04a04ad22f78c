package vm

// gcGrowthFactor controls how far bytesAllocated must grow past the
// live set measured at the end of the last collection before the next
// one is triggered automatically.
const gcGrowthFactor = 2

// GCStats summarizes one collection, used for --log-gc diagnostics.
type GCStats struct {
	ObjectsFreed int
	BytesBefore  int64
	BytesAfter   int64
	NextGC       int64
}

// gcState carries the mark-phase worklist state for a single
// collection; it exists only for the duration of Heap.Collect.
type gcState struct {
	heap *Heap
}

func (g *gcState) markValue(v Value) {
	if v.Type == ValObj {
		g.markObject(v.Handle)
	}
}

// markObject marks handle live and, the first time it is marked in
// this collection, recurses into every reference it owns. The
// markIfUnmarked guard is what keeps reference cycles (an instance
// whose field points back to itself, mutually referencing closures)
// from recursing forever.
func (g *gcState) markObject(handle Handle) {
	if !g.heap.markIfUnmarked(handle) {
		return
	}
	switch handle.Kind {
	case KindClosure:
		if c, ok := g.heap.Closure(handle); ok {
			g.markObject(c.Function)
			for _, uv := range c.Upvalues {
				g.markObject(uv)
			}
		}
	case KindUpvalue:
		if u, ok := g.heap.Upvalue(handle); ok && u.Location < 0 {
			g.markValue(u.Closed)
		}
	case KindFunction:
		if f, ok := g.heap.Function(handle); ok && f.Chunk != nil {
			for _, c := range f.Chunk.Constants {
				g.markValue(c)
			}
		}
	case KindClass:
		if c, ok := g.heap.Class(handle); ok {
			for _, m := range c.Methods {
				g.markObject(m)
			}
		}
	case KindInstance:
		if i, ok := g.heap.Instance(handle); ok {
			g.markObject(i.Class)
			for _, fv := range i.Fields {
				g.markValue(fv)
			}
		}
	case KindBoundMethod:
		if b, ok := g.heap.BoundMethod(handle); ok {
			g.markValue(b.Receiver)
			g.markObject(b.Method)
		}
	}
}

// markIfUnmarked marks handle's slot and reports whether this call
// was the one that set the mark (false if the handle is already
// marked, dead, or stale).
func (h *Heap) markIfUnmarked(handle Handle) bool {
	switch handle.Kind {
	case KindString:
		_, ok := h.strings.markNew(handle.Index, handle.Gen)
		return ok
	case KindFunction:
		_, ok := h.functions.markNew(handle.Index, handle.Gen)
		return ok
	case KindClosure:
		_, ok := h.closures.markNew(handle.Index, handle.Gen)
		return ok
	case KindUpvalue:
		_, ok := h.upvalues.markNew(handle.Index, handle.Gen)
		return ok
	case KindClass:
		_, ok := h.classes.markNew(handle.Index, handle.Gen)
		return ok
	case KindInstance:
		_, ok := h.instances.markNew(handle.Index, handle.Gen)
		return ok
	case KindBoundMethod:
		_, ok := h.boundMethods.markNew(handle.Index, handle.Gen)
		return ok
	case KindNative:
		_, ok := h.natives.markNew(handle.Index, handle.Gen)
		return ok
	}
	return false
}

func (a *arena[T]) markNew(index, gen uint32) (T, bool) {
	var zero T
	if int(index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[index]
	if !s.alive || s.gen != gen || s.mark {
		return zero, false
	}
	s.mark = true
	return s.value, true
}

// GCRoots is everything outside the Heap itself that a collection
// must treat as live: the value stack, active call frames, the
// globals table, the open-upvalue chain, and any values the compiler
// is holding onto mid-compile (e.g. a string constant not yet written
// into a chunk's constant pool).
type GCRoots struct {
	Stack        []Value
	FrameClosures []Handle
	Globals      map[string]Value
	OpenUpvalues []Handle
	ExtraValues  []Value
	ExtraObjects []Handle
}

// Collect runs one full tracing mark-sweep pass: mark every object
// reachable from roots, then sweep every arena, then drop any interned
// string whose backing StringObj didn't survive the sweep.
func (h *Heap) Collect(roots GCRoots) GCStats {
	g := &gcState{heap: h}

	for _, v := range roots.Stack {
		g.markValue(v)
	}
	for _, handle := range roots.FrameClosures {
		g.markObject(handle)
	}
	for _, v := range roots.Globals {
		g.markValue(v)
	}
	for _, handle := range roots.OpenUpvalues {
		g.markObject(handle)
	}
	for _, v := range roots.ExtraValues {
		g.markValue(v)
	}
	for _, handle := range roots.ExtraObjects {
		g.markObject(handle)
	}

	before := h.bytesAllocated
	freed := 0
	freed += h.strings.sweep()
	freed += h.functions.sweep()
	freed += h.closures.sweep()
	freed += h.upvalues.sweep()
	freed += h.classes.sweep()
	freed += h.instances.sweep()
	freed += h.boundMethods.sweep()
	freed += h.natives.sweep()

	for s, handle := range h.internTable {
		if _, ok := h.strings.get(handle.Index, handle.Gen); !ok {
			delete(h.internTable, s)
		}
	}

	h.bytesAllocated = h.approxLiveBytes()
	h.nextGC = h.bytesAllocated * gcGrowthFactor
	if h.nextGC < defaultNextGC {
		h.nextGC = defaultNextGC
	}

	return GCStats{ObjectsFreed: freed, BytesBefore: before, BytesAfter: h.bytesAllocated, NextGC: h.nextGC}
}

// approxLiveBytes re-derives bytesAllocated from what's still alive
// after a sweep, rather than trying to subtract freed bytes precisely
// per-kind.
func (h *Heap) approxLiveBytes() int64 {
	var total int64
	for i := range h.strings.slots {
		if h.strings.slots[i].alive {
			total += int64(len(h.strings.slots[i].value.Chars))
		}
	}
	for i := range h.functions.slots {
		if h.functions.slots[i].alive {
			total += 64
		}
	}
	for i := range h.closures.slots {
		if s := &h.closures.slots[i]; s.alive {
			total += int64(32 + 8*len(s.value.Upvalues))
		}
	}
	for i := range h.upvalues.slots {
		if h.upvalues.slots[i].alive {
			total += 32
		}
	}
	for i := range h.classes.slots {
		if h.classes.slots[i].alive {
			total += 48
		}
	}
	for i := range h.instances.slots {
		if h.instances.slots[i].alive {
			total += 48
		}
	}
	for i := range h.boundMethods.slots {
		if h.boundMethods.slots[i].alive {
			total += 40
		}
	}
	return total
}

// NeedsCollection reports whether bytesAllocated has crossed nextGC,
// the trigger an automatic (non-stress-mode) collection checks.
func (h *Heap) NeedsCollection() bool {
	return h.bytesAllocated >= h.nextGC
}
