package gvmproc

import (
	"errors"
	"fmt"

	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmprog"
)

var (
	// ErrTimeLimit is returned when a run dispatches more instructions than Config.MaxSteps.
	ErrTimeLimit = errors.New("time limit exceeded")
	// ErrDeadlock is returned when no goroutine can run before the main goroutine is done.
	ErrDeadlock = errors.New("all threads are blocked")
	// ErrOutOfMemory is returned when the heap cannot satisfy an allocation.
	ErrOutOfMemory = gvmheap.ErrOutOfMemory
	// ErrDivideByZero is returned for integer division or remainder by zero.
	ErrDivideByZero = errors.New("integer divide by zero")
)

// ErrUnknownPackage is returned when loading a package that is not in the Registry.
type ErrUnknownPackage struct {
	Name string
}

func (e ErrUnknownPackage) Error() string {
	return fmt.Sprintf("unknown package %q", e.Name)
}

type ErrUnknownMember struct {
	Package, Name string
}

func (e ErrUnknownMember) Error() string {
	return fmt.Sprintf("package %s has no member %q", e.Package, e.Name)
}

type ErrArity struct {
	Want, Have int
}

func (e ErrArity) Error() string {
	return fmt.Sprintf("function takes %d arguments, called with %d", e.Want, e.Have)
}

// ErrOperator is returned when an operator is not defined for its operands.
type ErrOperator struct {
	Op       string
	Operands []gvmheap.Tag
}

func (e ErrOperator) Error() string {
	return fmt.Sprintf("operator %s not defined on %v", e.Op, e.Operands)
}

type ErrBadPC struct {
	PC int
}

func (e ErrBadPC) Error() string {
	return fmt.Sprintf("program counter %d out of range", e.PC)
}

// ErrExec is an error raised by the instruction at PC.
type ErrExec struct {
	PC  int
	Loc *gvmprog.Loc
	Err error
}

func (e ErrExec) Error() string {
	if e.Loc != nil {
		return fmt.Sprintf("%v (pc=%d line=%d)", e.Err, e.PC, e.Loc.Line)
	}
	return fmt.Sprintf("%v (pc=%d)", e.Err, e.PC)
}

func (e ErrExec) Unwrap() error {
	return e.Err
}
