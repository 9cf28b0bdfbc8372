package gvmprog

import (
	"encoding/json"
	"fmt"
)

// Op is an instruction opcode.
// The meaning of the operand fields of an Insn depends on its Op.
type Op uint8

const (
	Unknown Op = iota

	// PushInt pushes a new Int holding Insn.Int
	PushInt
	// PushFloat pushes a new Float holding Insn.Float
	PushFloat
	// PushBool pushes a new Bool holding Insn.Bool
	PushBool
	// PushString pushes a new String holding Insn.Str
	PushString
	// PushNil pushes Nil
	PushNil
	// Pop discards the top of the operand stack
	Pop
	// Dup pushes the top of the operand stack again
	Dup

	// Load pushes the variable at (depth A, slot B)
	Load
	// Store pops a value into the variable at (depth A, slot B)
	Store

	// Binary applies the binary operator Insn.Str to the top two values
	Binary
	// Unary applies the unary operator Insn.Str to the top value
	Unary

	// Jump sets the program counter to A
	Jump
	// JumpIfFalse pops a Bool and jumps to A if it is false
	JumpIfFalse
	// Done terminates the goroutine
	Done
	// Yield ends the current time slice
	Yield

	// Block enters a new scope with a frame of A slots, Bool marks a loop body
	Block
	// ExitBlock leaves the innermost scope
	ExitBlock

	// Func pushes a function with entry A, arity B and a frame of C slots
	Func
	// Call pops A arguments and a function and calls it
	Call
	// Return leaves the innermost function call
	Return
	// Go pops A arguments and a function and calls it on a new goroutine
	Go

	// MakeArray pops A values into a new slice
	MakeArray
	// Index pops an index and a collection and pushes the element
	Index
	// StoreIndex pops a value, an index and a collection and stores the element
	StoreIndex
	// Slice pops the optional high bound (B != 0), the optional low bound (A != 0) and a collection
	Slice
	// Len pushes the length of a collection or string
	Len
	// Cap pushes the capacity of a collection
	Cap
	// Append pops A values and a slice and pushes the extended slice
	Append

	// LoadPackage pushes the package named Insn.Str
	LoadPackage
	// Select pops a package and pushes its member named Insn.Str
	Select

	opCount
)

var opNames = [opCount]string{
	Unknown: "unknown",

	PushInt:    "push_int",
	PushFloat:  "push_float",
	PushBool:   "push_bool",
	PushString: "push_string",
	PushNil:    "push_nil",
	Pop:        "pop",
	Dup:        "dup",

	Load:  "load",
	Store: "store",

	Binary: "binary",
	Unary:  "unary",

	Jump:        "jump",
	JumpIfFalse: "jump_if_false",
	Done:        "done",
	Yield:       "yield",

	Block:     "block",
	ExitBlock: "exit_block",

	Func:   "func",
	Call:   "call",
	Return: "return",
	Go:     "go",

	MakeArray:  "make_array",
	Index:      "index",
	StoreIndex: "store_index",
	Slice:      "slice",
	Len:        "len",
	Cap:        "cap",
	Append:     "append",

	LoadPackage: "load_package",
	Select:      "select",
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for i, name := range opNames {
		m[name] = Op(i)
	}
	return m
}()

func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// ParseOp returns the Op with the given name.
func ParseOp(name string) (Op, error) {
	o, ok := opByName[name]
	if !ok || o == Unknown {
		return Unknown, fmt.Errorf("unknown op %q", name)
	}
	return o, nil
}

// IsValid returns true if o is a known opcode.
func (o Op) IsValid() bool {
	return o > Unknown && o < opCount
}

// IsJump returns true if operand A of the op is a program counter.
func (o Op) IsJump() bool {
	switch o {
	case Jump, JumpIfFalse, Func:
		return true
	}
	return false
}

// IsTerminal returns true for ops after which control never falls through.
func (o Op) IsTerminal() bool {
	switch o {
	case Jump, Done, Return:
		return true
	}
	return false
}

func (o Op) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Op) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	op, err := ParseOp(name)
	if err != nil {
		return err
	}
	*o = op
	return nil
}
