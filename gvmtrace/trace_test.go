package gvmtrace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/internal/testutil"
)

func TestCapture(t *testing.T) {
	h := testutil.NewHeap(t, 1000)
	frame, err := gvmheap.NewFrame(h, 2)
	require.NoError(t, err)
	env, err := gvmheap.ExtendEnv(h, 0, frame.Addr(), false, gvmprog.RootSite)
	require.NoError(t, err)
	c, err := gvmheap.NewContext(h, 0, 3, env.Addr())
	require.NoError(t, err)
	h.SetRoots(func(yield func(gvmheap.Addr)) { yield(c.Addr()) })

	x, err := gvmheap.NewInt(h, 5)
	require.NoError(t, err)
	require.NoError(t, env.Assign(0, 0, x.Addr()))
	require.NoError(t, c.Push(x.Addr()))

	syms := &gvmprog.Symbols{
		Locs:   []gvmprog.Loc{{Line: 1}, {Line: 2}, {Line: 3}, {Line: 4}},
		Scopes: map[int][]string{gvmprog.RootSite: {"x"}},
	}
	ring := NewRing(10)
	tr := NewTracer(h, syms, ring)
	tr.Capture(1, c, []gvmheap.Context{c})

	y, err := gvmheap.NewString(h, "hi")
	require.NoError(t, err)
	require.NoError(t, c.Push(y.Addr()))
	tr.Capture(2, c, []gvmheap.Context{c})

	snaps := ring.Snapshots()
	require.Len(t, snaps, 2)
	s0 := snaps[0].Contexts[0]
	require.True(t, s0.Current)
	require.Equal(t, 3, s0.PC)
	require.Equal(t, &gvmprog.Loc{Line: 4}, s0.Loc)
	require.Equal(t, []StackValue{{Value: "5", Modified: true}}, s0.Stack)
	require.Equal(t, []Scope{{
		Env:  uint32(env.Addr()),
		Site: gvmprog.RootSite,
		Vars: []Var{{Name: "x", Value: "5"}, {Name: "slot1", Value: "<nil>"}},
	}}, s0.Scopes)

	s1 := snaps[1].Contexts[0]
	require.Equal(t, []StackValue{{Value: "5"}, {Value: "hi", Modified: true}}, s1.Stack)
}

func TestRing(t *testing.T) {
	r := NewRing(2)
	for i := 0; i < 5; i++ {
		r.Record(Snapshot{Step: uint64(i)})
	}
	snaps := r.Snapshots()
	require.Len(t, snaps, 2)
	require.Equal(t, uint64(3), snaps[0].Step)
	require.Equal(t, 3, r.Dropped())
	require.Equal(t, DefaultLimit, NewRing(0).rb.MaxLen())
}

func TestMarshal(t *testing.T) {
	trace := []Snapshot{{
		Step:    7,
		Current: 1,
		Contexts: []ContextState{{
			ID:     1,
			PC:     4,
			Loc:    &gvmprog.Loc{Line: 2, Col: 3},
			Stack:  []StackValue{{Value: "1", Modified: true}},
			Scopes: []Scope{{Env: 9, Site: -1, Vars: []Var{{Name: "a", Value: "1"}}}},
		}},
	}}
	data, err := Marshal(trace)
	require.NoError(t, err)
	trace2, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, trace, trace2)
}

func TestLine(t *testing.T) {
	s := Snapshot{
		Step:    12,
		Current: 1,
		Contexts: []ContextState{
			{ID: 0, PC: 3, Blocked: true},
			{
				ID: 1, PC: 5, Current: true,
				Loc:   &gvmprog.Loc{Line: 9},
				Stack: []StackValue{{Value: "1"}, {Value: "2", Modified: true}},
				Scopes: []Scope{
					{Vars: []Var{{Name: "i", Value: "2"}}},
					{Vars: []Var{{Name: "n", Value: "10"}, {Name: "s", Value: "hi"}}},
				},
			},
		},
	}
	require.Equal(t, "    12 g1 pc=5 line=9 stack=[1 2*] vars=[i=2 n=10 s=hi]", s.Line())

	var sb strings.Builder
	require.NoError(t, WriteText(&sb, []Snapshot{s, {Step: 13}}))
	require.Equal(t, s.Line()+"\n"+"    13 g0\n", sb.String())
}
