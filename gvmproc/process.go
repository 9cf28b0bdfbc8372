// package gvmproc runs programs as a set of cooperatively scheduled goroutines.
//
// A Process owns the heap and every goroutine Context on it.
// Contexts wait in a ready queue and a blocked queue, both of which are heap nodes
// and serve as the roots for garbage collection.
// The scheduler takes the context at the front of the ready queue and dispatches
// its instructions until its quantum expires, it blocks or it terminates.
package gvmproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"gvm.dev/gvm"
	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/gvmtrace"
)

type Config struct {
	// Quantum is the number of dispatches a goroutine gets before it is preempted.
	Quantum int
	// MaxSteps is the most dispatches allowed for the whole run.
	MaxSteps uint64
	// Trace enables snapshots after every dispatch.
	Trace bool
	// TraceLimit is the number of snapshots kept, 0 means gvmtrace.DefaultLimit.
	TraceLimit int
}

func DefaultConfig() Config {
	return Config{
		Quantum:  gvm.DefaultQuantum,
		MaxSteps: gvm.DefaultMaxSteps,
	}
}

func (c Config) Validate() error {
	if c.Quantum < 1 {
		return fmt.Errorf("gvmproc: quantum must be positive, have %d", c.Quantum)
	}
	if c.MaxSteps < 1 {
		return errors.New("gvmproc: max steps must be positive")
	}
	if c.TraceLimit < 0 {
		return fmt.Errorf("gvmproc: negative trace limit %d", c.TraceLimit)
	}
	return nil
}

// Result is the outcome of a run.
// Output and Trace are populated even when Err is set.
type Result struct {
	Output string
	Err    error
	Steps  uint64
	Trace  []gvmtrace.Snapshot
}

type Process struct {
	h    *gvmheap.Heap
	prog []I
	syms *gvmprog.Symbols
	reg  *Registry
	cfg  Config

	ready, blocked gvmheap.Queue
	main           gvmheap.Context
	cur            gvmheap.Context
	nextID         uint32
	steps          uint64
	out            bytes.Buffer

	// slice state of cur
	exited, parked, yielded bool

	tracer *gvmtrace.Tracer
	ring   *gvmtrace.Ring
}

// New creates a Process with a main goroutine starting at pc 0.
// The root frame has prog.Globals slots.
func New(ctx context.Context, h *gvmheap.Heap, prog gvmprog.Program, reg *Registry, cfg Config) (*Process, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	code, err := Decode(prog)
	if err != nil {
		return nil, err
	}
	p := &Process{
		h:    h,
		prog: code,
		syms: prog.Symbols,
		reg:  reg,
		cfg:  cfg,
	}
	h.SetRoots(p.roots)
	h.OnCollect(func(cs gvmheap.CollectStats) {
		logctx.Debug(ctx, "gc", zap.Int("freed", cs.Freed), zap.Int("free", cs.Free), zap.Int("live", cs.Live))
	})
	if p.ready, err = gvmheap.NewQueue(h); err != nil {
		return nil, err
	}
	if p.blocked, err = gvmheap.NewQueue(h); err != nil {
		return nil, err
	}
	frame, err := gvmheap.NewFrame(h, prog.Globals)
	if err != nil {
		return nil, err
	}
	env, err := gvmheap.ExtendEnv(h, 0, frame.Addr(), false, gvmprog.RootSite)
	if err != nil {
		return nil, err
	}
	if p.main, err = p.newContext(0, env.Addr()); err != nil {
		return nil, err
	}
	if err := p.ready.Enqueue(p.main.Addr()); err != nil {
		return nil, err
	}
	if cfg.Trace {
		p.ring = gvmtrace.NewRing(cfg.TraceLimit)
		p.tracer = gvmtrace.NewTracer(h, prog.Symbols, p.ring)
	}
	return p, nil
}

func (p *Process) roots(yield func(gvmheap.Addr)) {
	yield(p.ready.Addr())
	yield(p.blocked.Addr())
	yield(p.main.Addr())
	yield(p.cur.Addr())
}

func (p *Process) newContext(pc int, env gvmheap.Addr) (gvmheap.Context, error) {
	c, err := gvmheap.NewContext(p.h, p.nextID, pc, env)
	if err != nil {
		return gvmheap.Context{}, err
	}
	p.nextID++
	return c, nil
}

// Run schedules goroutines until the main goroutine terminates or the run fails.
// ctx is only checked between time slices.
func (p *Process) Run(ctx context.Context) Result {
	err := p.run(ctx)
	res := Result{
		Output: p.out.String(),
		Err:    err,
		Steps:  p.steps,
	}
	if p.ring != nil {
		res.Trace = p.ring.Snapshots()
	}
	st := p.h.Stats()
	fields := []zap.Field{
		zap.Uint64("steps", p.steps),
		zap.Uint32("goroutines", p.nextID),
		zap.Uint64("allocations", st.Allocations),
		zap.Uint64("collections", st.Collections),
	}
	if err != nil {
		logctx.Info(ctx, "run failed", append(fields, zap.Error(err))...)
	} else {
		logctx.Info(ctx, "run finished", fields...)
	}
	return res
}

func (p *Process) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.ready.Len() == 0 {
			return ErrDeadlock
		}
		a, err := p.ready.Dequeue()
		if err != nil {
			return err
		}
		p.cur = p.h.Context(a)
		if err := p.runSlice(); err != nil {
			return err
		}
		switch {
		case p.exited:
			if p.cur.Addr() == p.main.Addr() {
				// the remaining goroutines are abandoned
				return nil
			}
		case p.parked:
		default:
			if err := p.ready.Enqueue(p.cur.Addr()); err != nil {
				return err
			}
		}
		p.cur = gvmheap.Context{}
	}
}

// runSlice dispatches instructions of cur for up to one quantum.
func (p *Process) runSlice() error {
	p.exited, p.parked, p.yielded = false, false, false
	for i := 0; i < p.cfg.Quantum; i++ {
		if p.steps >= p.cfg.MaxSteps {
			return ErrTimeLimit
		}
		pc := p.cur.PC()
		if pc < 0 || pc >= len(p.prog) {
			return ErrBadPC{PC: pc}
		}
		// the pc is advanced first so that the instruction can override it
		p.cur.SetPC(pc + 1)
		p.steps++
		if err := p.step(p.prog[pc]); err != nil {
			e := ErrExec{PC: pc, Err: err}
			if loc, ok := p.syms.Loc(pc); ok {
				e.Loc = &loc
			}
			return e
		}
		if p.tracer != nil {
			p.capture()
		}
		if p.exited || p.parked || p.yielded {
			break
		}
	}
	return nil
}

// capture records every live goroutine.
// A goroutine that just terminated is left out of its final snapshot.
func (p *Process) capture() {
	var ctxs []gvmheap.Context
	add := func(a gvmheap.Addr) {
		if a != p.cur.Addr() {
			ctxs = append(ctxs, p.h.Context(a))
		}
	}
	if !p.exited {
		ctxs = append(ctxs, p.cur)
	}
	for _, a := range p.ready.Values() {
		add(a)
	}
	for _, a := range p.blocked.Values() {
		add(a)
	}
	slices.SortFunc(ctxs, func(a, b gvmheap.Context) int {
		return int(a.ID()) - int(b.ID())
	})
	p.tracer.Capture(p.steps, p.cur, ctxs)
}

func (p *Process) Heap() *gvmheap.Heap {
	return p.h
}

// Current returns the running goroutine.
func (p *Process) Current() gvmheap.Context {
	return p.cur
}

// Output is where builtins write program output.
func (p *Process) Output() io.Writer {
	return &p.out
}

func (p *Process) Steps() uint64 {
	return p.steps
}

// Block parks the running goroutine in the blocked queue.
// The goroutine finishes its current instruction and then yields, it runs again
// only after a call to Wake.
func (p *Process) Block() error {
	p.cur.SetBlocked(true)
	if err := p.blocked.Enqueue(p.cur.Addr()); err != nil {
		return err
	}
	p.parked = true
	return nil
}

// Wake moves a blocked goroutine to the back of the ready queue.
// Waking a goroutine which is not blocked does nothing.
func (p *Process) Wake(c gvmheap.Context) error {
	if !c.Blocked() {
		return nil
	}
	defer p.h.Pin(c.Addr())()
	p.blocked.Remove(c.Addr())
	c.SetBlocked(false)
	return p.ready.Enqueue(c.Addr())
}

// Spawn starts fn on a new goroutine at the back of the ready queue.
func (p *Process) Spawn(fn gvmheap.Func, args []gvmheap.Addr) (gvmheap.Context, error) {
	h := p.h
	defer h.Pin(args...)()
	defer h.Pin(fn.Addr())()
	env, err := p.bindArgs(fn, args)
	if err != nil {
		return gvmheap.Context{}, err
	}
	defer h.Pin(env.Addr())()
	c, err := p.newContext(fn.PC(), env.Addr())
	if err != nil {
		return gvmheap.Context{}, err
	}
	defer h.Pin(c.Addr())()
	if err := p.ready.Enqueue(c.Addr()); err != nil {
		return gvmheap.Context{}, err
	}
	return c, nil
}

// Yield ends the time slice of the running goroutine after the current instruction.
func (p *Process) Yield() {
	p.yielded = true
}

// Goroutines returns the number of live goroutines, including the running one.
func (p *Process) Goroutines() int {
	n := p.ready.Len() + p.blocked.Len()
	if p.cur.Addr() != 0 && !p.cur.Blocked() {
		n++
	}
	return n
}
