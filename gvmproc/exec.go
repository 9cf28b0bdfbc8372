package gvmproc

import (
	"errors"
	"fmt"

	"gvm.dev/gvm/gvmheap"
)

// step executes one instruction against the current goroutine.
func (p *Process) step(ix I) error {
	switch ix := ix.(type) {
	// literals
	case PushIntI:
		return p.pushNew(newInt(p.h, ix.X))
	case PushFloatI:
		return p.pushNew(newFloat(p.h, ix.X))
	case PushBoolI:
		return p.pushNew(newBool(p.h, ix.X))
	case PushStringI:
		s, err := gvmheap.NewString(p.h, ix.X)
		return p.pushNew(s.Addr(), err)
	case PushNilI:
		return p.cur.Push(0)

	// stack
	case PopI:
		_, err := p.cur.Pop()
		return err
	case DupI:
		x, err := p.cur.Peek()
		if err != nil {
			return err
		}
		return p.pushCopy(x)

	// variables
	case LoadVarI:
		x, err := p.cur.Env().Lookup(ix.Depth, ix.Slot)
		if err != nil {
			return err
		}
		return p.pushCopy(x)
	case StoreVarI:
		return p.storeVar(ix)

	// operators
	case BinaryI:
		xs, err := p.cur.PopN(2)
		if err != nil {
			return err
		}
		defer p.h.Pin(xs...)()
		return p.pushNew(binaryOp(p.h, ix.Op, xs[0], xs[1]))
	case UnaryI:
		x, err := p.cur.Pop()
		if err != nil {
			return err
		}
		defer p.h.Pin(x)()
		return p.pushNew(unaryOp(p.h, ix.Op, x))

	// control flow
	case JumpI:
		p.cur.SetPC(ix.PC)
		return nil
	case JumpIfFalseI:
		return p.jumpIfFalse(ix)
	case DoneI:
		p.exited = true
		return nil
	case YieldI:
		p.yielded = true
		return nil

	// scopes
	case BlockI:
		return p.enterBlock(ix)
	case ExitBlockI:
		return p.exitBlock()

	// functions
	case FuncI:
		fn, err := gvmheap.NewFunc(p.h, ix.PC, p.cur.Env().Addr(), ix.Arity, ix.FrameSize)
		return p.pushNew(fn.Addr(), err)
	case CallI:
		return p.call(ix)
	case ReturnI:
		return p.ret()
	case GoI:
		return p.goStmt(ix)

	// composites
	case MakeArrayI:
		return p.makeArray(ix)
	case IndexI:
		return p.index()
	case StoreIndexI:
		return p.storeIndex()
	case SliceI:
		return p.slice(ix)
	case LenI:
		return p.length()
	case CapI:
		return p.capacity()
	case AppendI:
		return p.append(ix)

	// packages
	case LoadPackageI:
		return p.loadPackage(ix)
	case SelectI:
		return p.selectMember(ix)

	default:
		return fmt.Errorf("unrecognized instruction %T", ix)
	}
}

// pushNew pushes the result of a constructor.
func (p *Process) pushNew(x gvmheap.Addr, err error) error {
	if err != nil {
		return err
	}
	return p.cur.Push(x)
}

// pushCopy pushes a copy of x if it is a primitive, otherwise x itself.
// Primitive values on the operand stack are never shared with a variable.
func (p *Process) pushCopy(x gvmheap.Addr) error {
	return p.pushNew(p.h.Clone(x))
}

// bind returns the value to store in a slot currently holding old.
// A primitive of the same type is overwritten in place.
func (p *Process) bind(old, x gvmheap.Addr) (gvmheap.Addr, error) {
	if old != 0 && p.h.Node(old).Tag().IsPrimitive() && p.h.Node(old).Tag() == p.h.Node(x).Tag() {
		return old, p.h.Copy(old, x)
	}
	return x, nil
}

func (p *Process) storeVar(ix StoreVarI) error {
	x, err := p.cur.Pop()
	if err != nil {
		return err
	}
	env, err := p.cur.Env().Ancestor(ix.Depth)
	if err != nil {
		return err
	}
	frame := env.Frame()
	old, err := frame.Get(ix.Slot)
	if err != nil {
		return err
	}
	x, err = p.bind(old, x)
	if err != nil {
		return err
	}
	return frame.Set(ix.Slot, x)
}

func (p *Process) jumpIfFalse(ix JumpIfFalseI) error {
	x, err := p.cur.Pop()
	if err != nil {
		return err
	}
	if err := p.h.Node(x).Expect(gvmheap.TagBool); err != nil {
		return err
	}
	if !p.h.Bool(x).Value() {
		p.cur.SetPC(ix.PC)
	}
	return nil
}

func (p *Process) enterBlock(ix BlockI) error {
	h := p.h
	frame, err := gvmheap.NewFrame(h, ix.FrameSize)
	if err != nil {
		return err
	}
	outer := p.cur.Env().Addr()
	// the block site is the pc of this instruction
	env, err := gvmheap.ExtendEnv(h, outer, frame.Addr(), ix.Loop, p.cur.PC()-1)
	if err != nil {
		return err
	}
	defer h.Pin(outer)()
	p.cur.SetEnv(env.Addr())
	return p.cur.PushScope(outer)
}

func (p *Process) exitBlock() error {
	scope, err := p.cur.ScopeStack().Back()
	if err != nil {
		return errors.New("exit_block outside of a block")
	}
	if err := p.h.Node(scope).Expect(gvmheap.TagEnv); err != nil {
		return fmt.Errorf("exit_block: %w", err)
	}
	if _, err := p.cur.PopScope(); err != nil {
		return err
	}
	p.cur.SetEnv(scope)
	return nil
}

// bindArgs creates the environment for an activation of fn.
// Arguments are copied into the first slots of a fresh frame.
func (p *Process) bindArgs(fn gvmheap.Func, args []gvmheap.Addr) (gvmheap.Env, error) {
	h := p.h
	if fn.Arity() != len(args) {
		return gvmheap.Env{}, ErrArity{Want: fn.Arity(), Have: len(args)}
	}
	frame, err := gvmheap.NewFrame(h, fn.FrameSize())
	if err != nil {
		return gvmheap.Env{}, err
	}
	defer h.Pin(frame.Addr())()
	for i, a := range args {
		x, err := h.Clone(a)
		if err != nil {
			return gvmheap.Env{}, err
		}
		if err := frame.Set(i, x); err != nil {
			return gvmheap.Env{}, err
		}
	}
	return gvmheap.ExtendEnv(h, fn.Env().Addr(), frame.Addr(), false, fn.PC())
}

// popCall pops n arguments and then the callee.
func (p *Process) popCall(n int) (gvmheap.Addr, []gvmheap.Addr, error) {
	args, err := p.cur.PopN(n)
	if err != nil {
		return 0, nil, err
	}
	fn, err := p.cur.Pop()
	if err != nil {
		return 0, nil, err
	}
	return fn, args, nil
}

func (p *Process) call(ix CallI) error {
	h := p.h
	fnAddr, args, err := p.popCall(ix.Args)
	if err != nil {
		return err
	}
	defer h.Pin(args...)()
	defer h.Pin(fnAddr)()

	switch n := h.Node(fnAddr); n.Tag() {
	case gvmheap.TagBuiltin:
		return p.pushNew(p.callBuiltin(h.Builtin(fnAddr), args))
	case gvmheap.TagFunc:
		fn := h.Func(fnAddr)
		env, err := p.bindArgs(fn, args)
		if err != nil {
			return err
		}
		defer h.Pin(env.Addr())()
		cf, err := gvmheap.NewCallFrame(h, p.cur.PC(), p.cur.Env().Addr())
		if err != nil {
			return err
		}
		if err := p.cur.PushScope(cf.Addr()); err != nil {
			return err
		}
		p.cur.SetEnv(env.Addr())
		p.cur.SetPC(fn.PC())
		return nil
	default:
		return n.Expect(gvmheap.TagFunc, gvmheap.TagBuiltin)
	}
}

func (p *Process) callBuiltin(b gvmheap.Builtin, args []gvmheap.Addr) (gvmheap.Addr, error) {
	m := p.reg.Package(b.Package()).Members[b.Func()]
	return m.Fn(p, args)
}

// ret unwinds the scope stack to the innermost call frame.
// The return value, if any, stays on the operand stack.
// Returning with no call frame terminates the goroutine.
func (p *Process) ret() error {
	for {
		scope, err := p.cur.PopScope()
		if errors.Is(err, gvmheap.ErrEmptyList) {
			p.exited = true
			return nil
		} else if err != nil {
			return err
		}
		if p.h.Node(scope).Tag() == gvmheap.TagCallFrame {
			cf := p.h.CallFrame(scope)
			p.cur.SetEnv(cf.Env().Addr())
			p.cur.SetPC(cf.PC())
			return nil
		}
	}
}

// goStmt starts a goroutine.
// A builtin has no code to schedule, so it runs to completion on the caller.
func (p *Process) goStmt(ix GoI) error {
	h := p.h
	fnAddr, args, err := p.popCall(ix.Args)
	if err != nil {
		return err
	}
	defer h.Pin(args...)()
	defer h.Pin(fnAddr)()

	switch n := h.Node(fnAddr); n.Tag() {
	case gvmheap.TagBuiltin:
		_, err := p.callBuiltin(h.Builtin(fnAddr), args)
		return err
	case gvmheap.TagFunc:
		_, err := p.Spawn(h.Func(fnAddr), args)
		return err
	default:
		return n.Expect(gvmheap.TagFunc, gvmheap.TagBuiltin)
	}
}

func (p *Process) makeArray(ix MakeArrayI) error {
	elems, err := p.cur.PopN(ix.N)
	if err != nil {
		return err
	}
	arr, err := gvmheap.NewArray(p.h, elems)
	if err != nil {
		return err
	}
	s, err := gvmheap.NewSlice(p.h, arr.Addr(), 0, ix.N)
	return p.pushNew(s.Addr(), err)
}

func (p *Process) intArg(x gvmheap.Addr) (int, error) {
	if err := p.h.Node(x).Expect(gvmheap.TagInt); err != nil {
		return 0, err
	}
	return int(p.h.Int(x).Value()), nil
}

// element returns the slot accessors of element i of coll.
func (p *Process) element(coll gvmheap.Addr, i int) (get func() (gvmheap.Addr, error), set func(gvmheap.Addr) error, err error) {
	h := p.h
	switch n := h.Node(coll); n.Tag() {
	case gvmheap.TagSlice:
		s := h.Slice(coll)
		return func() (gvmheap.Addr, error) { return s.Get(i) }, func(x gvmheap.Addr) error { return s.Set(i, x) }, nil
	case gvmheap.TagArray:
		a := h.Array(coll)
		return func() (gvmheap.Addr, error) { return a.Get(i) }, func(x gvmheap.Addr) error { return a.Set(i, x) }, nil
	case gvmheap.TagNil:
		return nil, nil, gvmheap.ErrIndexOutOfRange{Index: i, Len: 0}
	default:
		return nil, nil, n.Expect(gvmheap.TagSlice, gvmheap.TagArray)
	}
}

func (p *Process) index() error {
	h := p.h
	xs, err := p.cur.PopN(2)
	if err != nil {
		return err
	}
	defer h.Pin(xs...)()
	coll := xs[0]
	i, err := p.intArg(xs[1])
	if err != nil {
		return err
	}
	if h.Node(coll).Tag() == gvmheap.TagString {
		s := h.Str(coll).Value()
		if i < 0 || i >= len(s) {
			return gvmheap.ErrIndexOutOfRange{Index: i, Len: len(s)}
		}
		return p.pushNew(newInt(h, int32(s[i])))
	}
	get, _, err := p.element(coll, i)
	if err != nil {
		return err
	}
	x, err := get()
	if err != nil {
		return err
	}
	return p.pushCopy(x)
}

func (p *Process) storeIndex() error {
	xs, err := p.cur.PopN(3)
	if err != nil {
		return err
	}
	defer p.h.Pin(xs...)()
	i, err := p.intArg(xs[1])
	if err != nil {
		return err
	}
	get, set, err := p.element(xs[0], i)
	if err != nil {
		return err
	}
	old, err := get()
	if err != nil {
		return err
	}
	x, err := p.bind(old, xs[2])
	if err != nil {
		return err
	}
	return set(x)
}

func (p *Process) slice(ix SliceI) error {
	h := p.h
	lo, hi := 0, -1
	var err error
	if ix.HasHigh {
		if hi, err = p.popInt(); err != nil {
			return err
		}
	}
	if ix.HasLow {
		if lo, err = p.popInt(); err != nil {
			return err
		}
	}
	coll, err := p.cur.Pop()
	if err != nil {
		return err
	}
	defer h.Pin(coll)()

	switch n := h.Node(coll); n.Tag() {
	case gvmheap.TagSlice:
		s := h.Slice(coll)
		if hi < 0 && !ix.HasHigh {
			hi = s.Len()
		}
		r, err := s.Reslice(lo, hi)
		return p.pushNew(r.Addr(), err)
	case gvmheap.TagArray:
		a := h.Array(coll)
		if hi < 0 && !ix.HasHigh {
			hi = a.Len()
		}
		r, err := gvmheap.NewSlice(h, coll, lo, hi)
		return p.pushNew(r.Addr(), err)
	case gvmheap.TagString:
		s := h.Str(coll).Value()
		if hi < 0 && !ix.HasHigh {
			hi = len(s)
		}
		if lo < 0 || lo > hi || hi > len(s) {
			return gvmheap.ErrSliceBounds{Low: lo, High: hi, Cap: len(s)}
		}
		r, err := gvmheap.NewString(h, s[lo:hi])
		return p.pushNew(r.Addr(), err)
	case gvmheap.TagNil:
		if hi < 0 && !ix.HasHigh {
			hi = 0
		}
		if lo != 0 || hi != 0 {
			return gvmheap.ErrSliceBounds{Low: lo, High: hi, Cap: 0}
		}
		return p.cur.Push(0)
	default:
		return n.Expect(gvmheap.TagSlice, gvmheap.TagArray, gvmheap.TagString)
	}
}

func (p *Process) popInt() (int, error) {
	x, err := p.cur.Pop()
	if err != nil {
		return 0, err
	}
	return p.intArg(x)
}

func (p *Process) length() error {
	h := p.h
	x, err := p.cur.Pop()
	if err != nil {
		return err
	}
	var l int
	switch n := h.Node(x); n.Tag() {
	case gvmheap.TagSlice:
		l = h.Slice(x).Len()
	case gvmheap.TagArray:
		l = h.Array(x).Len()
	case gvmheap.TagString:
		l = h.Str(x).Len()
	case gvmheap.TagNil:
	default:
		return n.Expect(gvmheap.TagSlice, gvmheap.TagArray, gvmheap.TagString)
	}
	return p.pushNew(newInt(h, int32(l)))
}

func (p *Process) capacity() error {
	h := p.h
	x, err := p.cur.Pop()
	if err != nil {
		return err
	}
	var c int
	switch n := h.Node(x); n.Tag() {
	case gvmheap.TagSlice:
		c = h.Slice(x).Cap()
	case gvmheap.TagArray:
		c = h.Array(x).Len()
	case gvmheap.TagNil:
	default:
		return n.Expect(gvmheap.TagSlice, gvmheap.TagArray)
	}
	return p.pushNew(newInt(h, int32(c)))
}

func (p *Process) append(ix AppendI) error {
	h := p.h
	xs, err := p.cur.PopN(ix.N)
	if err != nil {
		return err
	}
	defer h.Pin(xs...)()
	sAddr, err := p.cur.Pop()
	if err != nil {
		return err
	}
	defer h.Pin(sAddr)()

	var s gvmheap.Slice
	switch n := h.Node(sAddr); n.Tag() {
	case gvmheap.TagSlice:
		s = h.Slice(sAddr)
	case gvmheap.TagNil:
		arr, err := gvmheap.NewArray(h, nil)
		if err != nil {
			return err
		}
		if s, err = gvmheap.NewSlice(h, arr.Addr(), 0, 0); err != nil {
			return err
		}
	default:
		return n.Expect(gvmheap.TagSlice)
	}
	for _, x := range xs {
		if s, err = s.Append(x); err != nil {
			return err
		}
	}
	return p.cur.Push(s.Addr())
}

func (p *Process) loadPackage(ix LoadPackageI) error {
	id, ok := p.reg.Lookup(ix.Name)
	if !ok {
		return ErrUnknownPackage{Name: ix.Name}
	}
	pkg, err := gvmheap.NewPackage(p.h, id)
	return p.pushNew(pkg.Addr(), err)
}

func (p *Process) selectMember(ix SelectI) error {
	x, err := p.cur.Pop()
	if err != nil {
		return err
	}
	if err := p.h.Node(x).Expect(gvmheap.TagPackage); err != nil {
		return err
	}
	id := p.h.Package(x).ID()
	m, ok := p.reg.Member(id, ix.Name)
	if !ok {
		return ErrUnknownMember{Package: p.reg.Package(id).Name, Name: ix.Name}
	}
	b, err := gvmheap.NewBuiltin(p.h, id, m)
	return p.pushNew(b.Addr(), err)
}
