package gvmtrace

import (
	"go.brendoncarroll.net/exp/slices2"

	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmprog"
)

// Tracer renders heap resident contexts into Snapshots.
type Tracer struct {
	h    *gvmheap.Heap
	syms *gvmprog.Symbols
	rec  Recorder

	prev map[uint32][]stackKey
}

type stackKey struct {
	addr  gvmheap.Addr
	value string
}

func NewTracer(h *gvmheap.Heap, syms *gvmprog.Symbols, rec Recorder) *Tracer {
	return &Tracer{
		h:    h,
		syms: syms,
		rec:  rec,
		prev: map[uint32][]stackKey{},
	}
}

// Capture records the state of ctxs after dispatch number step.
// ctxs are rendered in order, cur is flagged as running.
func (t *Tracer) Capture(step uint64, cur gvmheap.Context, ctxs []gvmheap.Context) {
	snap := Snapshot{
		Step:     step,
		Current:  cur.ID(),
		Contexts: make([]ContextState, 0, len(ctxs)),
	}
	live := make(map[uint32]struct{}, len(ctxs))
	for _, c := range ctxs {
		cs := t.contextState(c)
		cs.Current = c.Addr() == cur.Addr()
		snap.Contexts = append(snap.Contexts, cs)
		live[c.ID()] = struct{}{}
	}
	for id := range t.prev {
		if _, ok := live[id]; !ok {
			delete(t.prev, id)
		}
	}
	t.rec.Record(snap)
}

func (t *Tracer) contextState(c gvmheap.Context) ContextState {
	cs := ContextState{
		ID:      c.ID(),
		PC:      c.PC(),
		Blocked: c.Blocked(),
	}
	if loc, ok := t.syms.Loc(c.PC()); ok {
		cs.Loc = &loc
	}

	prev := t.prev[c.ID()]
	keys := slices2.Map(c.OpStack().Values(), func(a gvmheap.Addr) stackKey {
		return stackKey{addr: a, value: t.h.Format(a)}
	})
	cs.Stack = make([]StackValue, len(keys))
	for i, k := range keys {
		cs.Stack[i] = StackValue{
			Value:    k.value,
			Modified: i >= len(prev) || prev[i] != k,
		}
	}
	t.prev[c.ID()] = keys

	cs.Scopes = slices2.Map(c.Env().Chain(), t.scope)
	return cs
}

func (t *Tracer) scope(e gvmheap.Env) Scope {
	f := e.Frame()
	vars := make([]Var, f.Len())
	for slot := range vars {
		a, _ := f.Get(slot)
		vars[slot] = Var{
			Name:  t.syms.VarName(e.Site(), slot),
			Value: t.h.Format(a),
		}
	}
	return Scope{
		Env:  uint32(e.Addr()),
		Site: e.Site(),
		Loop: e.IsLoop(),
		Vars: vars,
	}
}
