// package gvmprog defines the program format consumed by the virtual machine.
//
// A Program is a flat sequence of instructions produced by a compiler, plus a
// debug symbol table. It can be stored as JSON, canonical CBOR or assembly text.
package gvmprog

import (
	"errors"
	"fmt"
	"slices"

	"gvm.dev/gvm/gvmheap"
)

// MaxOperand bounds every count, size and scope operand.
// No node larger than the largest heap can be allocated, so larger operands can never succeed.
const MaxOperand = gvmheap.MaxWords

// RootSite is the scope site of the global frame.
const RootSite = -1

type Program struct {
	// Globals is the number of slots in the root frame.
	Globals int      `json:"globals" cbor:"1,keyasint"`
	Instrs  []Insn   `json:"instrs" cbor:"2,keyasint"`
	Symbols *Symbols `json:"symbols,omitempty" cbor:"3,keyasint,omitempty"`
}

// Insn is an encoded instruction.
type Insn struct {
	Op    Op      `json:"op" cbor:"1,keyasint"`
	Int   int32   `json:"int,omitempty" cbor:"2,keyasint,omitempty"`
	Float float32 `json:"float,omitempty" cbor:"3,keyasint,omitempty"`
	Str   string  `json:"str,omitempty" cbor:"4,keyasint,omitempty"`
	Bool  bool    `json:"bool,omitempty" cbor:"5,keyasint,omitempty"`
	A     int     `json:"a,omitempty" cbor:"6,keyasint,omitempty"`
	B     int     `json:"b,omitempty" cbor:"7,keyasint,omitempty"`
	C     int     `json:"c,omitempty" cbor:"8,keyasint,omitempty"`
}

// Symbols is the debug symbol table.
type Symbols struct {
	// Locs is the source location of each instruction, by index.
	Locs []Loc `json:"locs,omitempty" cbor:"1,keyasint,omitempty"`
	// Scopes holds the variable names of each frame, keyed by the site that creates it.
	// The site of a block is the pc of its Block instruction, the site of a function
	// is its entry pc and the root frame has site RootSite.
	Scopes map[int][]string `json:"scopes,omitempty" cbor:"2,keyasint,omitempty"`
}

type Loc struct {
	Line int `json:"line" cbor:"1,keyasint"`
	Col  int `json:"col,omitempty" cbor:"2,keyasint,omitempty"`
}

// Loc returns the source location of the instruction at pc, if known.
func (s *Symbols) Loc(pc int) (Loc, bool) {
	if s == nil || pc < 0 || pc >= len(s.Locs) {
		return Loc{}, false
	}
	return s.Locs[pc], true
}

// VarName returns the name of slot in the frame created at site.
func (s *Symbols) VarName(site, slot int) string {
	if s != nil {
		if names := s.Scopes[site]; slot < len(names) {
			return names[slot]
		}
	}
	return fmt.Sprintf("slot%d", slot)
}

// ErrInvalid is returned by Validate.
type ErrInvalid struct {
	PC  int
	Msg string
}

func (e ErrInvalid) Error() string {
	if e.PC < 0 {
		return "invalid program: " + e.Msg
	}
	return fmt.Sprintf("invalid program: pc=%d: %s", e.PC, e.Msg)
}

// Validate checks the structure of the program.
// It does not check that operand stacks balance, which is the compiler's job.
func (p *Program) Validate() error {
	var errs []error
	if p.Globals < 0 || p.Globals > MaxOperand {
		errs = append(errs, ErrInvalid{PC: -1, Msg: fmt.Sprintf("globals %d out of range [0, %d]", p.Globals, MaxOperand)})
	}
	if len(p.Instrs) == 0 {
		errs = append(errs, ErrInvalid{PC: -1, Msg: "no instructions"})
	}
	for pc, in := range p.Instrs {
		if err := in.validate(len(p.Instrs)); err != nil {
			errs = append(errs, ErrInvalid{PC: pc, Msg: err.Error()})
		}
	}
	if p.Symbols != nil && len(p.Symbols.Locs) > len(p.Instrs) {
		errs = append(errs, ErrInvalid{PC: -1, Msg: "more locations than instructions"})
	}
	return errors.Join(errs...)
}

func (in Insn) validate(n int) error {
	if !in.Op.IsValid() {
		return fmt.Errorf("unknown op %d", in.Op)
	}
	if in.Op.IsJump() && (in.A < 0 || in.A >= n) {
		return fmt.Errorf("%v target %d out of range", in.Op, in.A)
	}
	switch in.Op {
	case Load, Store:
		if !inOperandRange(in.A) || !inOperandRange(in.B) {
			return fmt.Errorf("%v (%d, %d) out of range [0, %d]", in.Op, in.A, in.B, MaxOperand)
		}
	case Block, Call, Go, MakeArray, Append:
		if !inOperandRange(in.A) {
			return fmt.Errorf("%v operand %d out of range [0, %d]", in.Op, in.A, MaxOperand)
		}
	case Func:
		if !inOperandRange(in.C) {
			return fmt.Errorf("func frame %d out of range [0, %d]", in.C, MaxOperand)
		}
		if in.B < 0 || in.C < in.B {
			return fmt.Errorf("func arity %d does not fit frame of %d", in.B, in.C)
		}
	case Binary:
		if !slices.Contains(BinaryOps, in.Str) {
			return fmt.Errorf("unknown binary operator %q", in.Str)
		}
	case Unary:
		if !slices.Contains(UnaryOps, in.Str) {
			return fmt.Errorf("unknown unary operator %q", in.Str)
		}
	case LoadPackage, Select:
		if in.Str == "" {
			return fmt.Errorf("%v needs a name", in.Op)
		}
	}
	return nil
}

func inOperandRange(x int) bool {
	return x >= 0 && x <= MaxOperand
}

// BinaryOps are the operators accepted by Binary.
var BinaryOps = []string{
	"+", "-", "*", "/", "%",
	"&", "|", "^", "<<", ">>",
	"==", "!=", "<", "<=", ">", ">=",
	"&&", "||",
}

// UnaryOps are the operators accepted by Unary.
var UnaryOps = []string{"-", "!", "^"}
