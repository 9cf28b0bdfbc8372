package gvmproc

import (
	"fmt"

	"gvm.dev/gvm/gvmprog"
)

// I is an instruction, it changes the state of the current goroutine and the heap
type I interface {
	isI()
}

type baseI struct{}

func (baseI) isI() {}

// literals

type PushIntI struct {
	X int32
	baseI
}

type PushFloatI struct {
	X float32
	baseI
}

type PushBoolI struct {
	X bool
	baseI
}

type PushStringI struct {
	X string
	baseI
}

type PushNilI struct{ baseI }

// stack

type PopI struct{ baseI }

type DupI struct{ baseI }

// variables

type LoadVarI struct {
	Depth, Slot int
	baseI
}

type StoreVarI struct {
	Depth, Slot int
	baseI
}

// operators

type BinaryI struct {
	Op string
	baseI
}

type UnaryI struct {
	Op string
	baseI
}

// control flow

type JumpI struct {
	PC int
	baseI
}

type JumpIfFalseI struct {
	PC int
	baseI
}

// DoneI terminates the goroutine
type DoneI struct{ baseI }

// YieldI ends the time slice early
type YieldI struct{ baseI }

// scopes

type BlockI struct {
	FrameSize int
	Loop      bool
	baseI
}

type ExitBlockI struct{ baseI }

// functions

type FuncI struct {
	PC        int
	Arity     int
	FrameSize int
	baseI
}

type CallI struct {
	Args int
	baseI
}

type ReturnI struct{ baseI }

type GoI struct {
	Args int
	baseI
}

// composites

type MakeArrayI struct {
	N int
	baseI
}

type IndexI struct{ baseI }

type StoreIndexI struct{ baseI }

type SliceI struct {
	HasLow, HasHigh bool
	baseI
}

type LenI struct{ baseI }

type CapI struct{ baseI }

type AppendI struct {
	N int
	baseI
}

// packages

type LoadPackageI struct {
	Name string
	baseI
}

type SelectI struct {
	Name string
	baseI
}

// Decode validates prog and converts its instructions into executable form.
func Decode(prog gvmprog.Program) ([]I, error) {
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	ret := make([]I, len(prog.Instrs))
	for pc, in := range prog.Instrs {
		ix, err := decodeInsn(in)
		if err != nil {
			return nil, fmt.Errorf("pc=%d: %w", pc, err)
		}
		ret[pc] = ix
	}
	return ret, nil
}

func decodeInsn(in gvmprog.Insn) (I, error) {
	switch in.Op {
	case gvmprog.PushInt:
		return PushIntI{X: in.Int}, nil
	case gvmprog.PushFloat:
		return PushFloatI{X: in.Float}, nil
	case gvmprog.PushBool:
		return PushBoolI{X: in.Bool}, nil
	case gvmprog.PushString:
		return PushStringI{X: in.Str}, nil
	case gvmprog.PushNil:
		return PushNilI{}, nil
	case gvmprog.Pop:
		return PopI{}, nil
	case gvmprog.Dup:
		return DupI{}, nil

	case gvmprog.Load:
		return LoadVarI{Depth: in.A, Slot: in.B}, nil
	case gvmprog.Store:
		return StoreVarI{Depth: in.A, Slot: in.B}, nil

	case gvmprog.Binary:
		return BinaryI{Op: in.Str}, nil
	case gvmprog.Unary:
		return UnaryI{Op: in.Str}, nil

	case gvmprog.Jump:
		return JumpI{PC: in.A}, nil
	case gvmprog.JumpIfFalse:
		return JumpIfFalseI{PC: in.A}, nil
	case gvmprog.Done:
		return DoneI{}, nil
	case gvmprog.Yield:
		return YieldI{}, nil

	case gvmprog.Block:
		return BlockI{FrameSize: in.A, Loop: in.Bool}, nil
	case gvmprog.ExitBlock:
		return ExitBlockI{}, nil

	case gvmprog.Func:
		return FuncI{PC: in.A, Arity: in.B, FrameSize: in.C}, nil
	case gvmprog.Call:
		return CallI{Args: in.A}, nil
	case gvmprog.Return:
		return ReturnI{}, nil
	case gvmprog.Go:
		return GoI{Args: in.A}, nil

	case gvmprog.MakeArray:
		return MakeArrayI{N: in.A}, nil
	case gvmprog.Index:
		return IndexI{}, nil
	case gvmprog.StoreIndex:
		return StoreIndexI{}, nil
	case gvmprog.Slice:
		return SliceI{HasLow: in.A != 0, HasHigh: in.B != 0}, nil
	case gvmprog.Len:
		return LenI{}, nil
	case gvmprog.Cap:
		return CapI{}, nil
	case gvmprog.Append:
		return AppendI{N: in.A}, nil

	case gvmprog.LoadPackage:
		return LoadPackageI{Name: in.Str}, nil
	case gvmprog.Select:
		return SelectI{Name: in.Str}, nil
	default:
		return nil, fmt.Errorf("cannot decode op %v", in.Op)
	}
}
