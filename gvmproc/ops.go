package gvmproc

import (
	"cmp"
	"errors"

	"gvm.dev/gvm/gvmheap"
)

// operator tables, keyed by operator within each operand kind
var (
	intOps = map[string]func(x, y int32) (int32, error){
		"+": func(x, y int32) (int32, error) { return x + y, nil },
		"-": func(x, y int32) (int32, error) { return x - y, nil },
		"*": func(x, y int32) (int32, error) { return x * y, nil },
		"/": func(x, y int32) (int32, error) {
			if y == 0 {
				return 0, ErrDivideByZero
			}
			return x / y, nil
		},
		"%": func(x, y int32) (int32, error) {
			if y == 0 {
				return 0, ErrDivideByZero
			}
			return x % y, nil
		},
		"&": func(x, y int32) (int32, error) { return x & y, nil },
		"|": func(x, y int32) (int32, error) { return x | y, nil },
		"^": func(x, y int32) (int32, error) { return x ^ y, nil },
		"<<": func(x, y int32) (int32, error) {
			if y < 0 {
				return 0, errNegativeShift
			}
			return x << uint32(y), nil
		},
		">>": func(x, y int32) (int32, error) {
			if y < 0 {
				return 0, errNegativeShift
			}
			return x >> uint32(y), nil
		},
	}
	floatOps = map[string]func(x, y float32) float32{
		"+": func(x, y float32) float32 { return x + y },
		"-": func(x, y float32) float32 { return x - y },
		"*": func(x, y float32) float32 { return x * y },
		"/": func(x, y float32) float32 { return x / y },
	}
	stringOps = map[string]func(x, y string) string{
		"+": func(x, y string) string { return x + y },
	}
	boolOps = map[string]func(x, y bool) bool{
		"&&": func(x, y bool) bool { return x && y },
		"||": func(x, y bool) bool { return x || y },
		"==": func(x, y bool) bool { return x == y },
		"!=": func(x, y bool) bool { return x != y },
	}
)

var errNegativeShift = errors.New("negative shift amount")

func compare[T cmp.Ordered](op string, x, y T) (ret, ok bool) {
	switch op {
	case "==":
		return x == y, true
	case "!=":
		return x != y, true
	case "<":
		return x < y, true
	case "<=":
		return x <= y, true
	case ">":
		return x > y, true
	case ">=":
		return x >= y, true
	}
	return false, false
}

func isEquality(op string) bool {
	return op == "==" || op == "!="
}

// binaryOp applies op to the values at x and y and returns the address of a new result node.
func binaryOp(h *gvmheap.Heap, op string, x, y gvmheap.Addr) (gvmheap.Addr, error) {
	tx, ty := h.Node(x).Tag(), h.Node(y).Tag()
	if tx != ty || !hasValue(tx) {
		// everything else compares by identity
		if isEquality(op) {
			return newBool(h, (x == y) == (op == "=="))
		}
		return 0, ErrOperator{Op: op, Operands: []gvmheap.Tag{tx, ty}}
	}
	switch tx {
	case gvmheap.TagInt:
		a, b := h.Int(x).Value(), h.Int(y).Value()
		if r, ok := compare(op, a, b); ok {
			return newBool(h, r)
		}
		if fn, ok := intOps[op]; ok {
			r, err := fn(a, b)
			if err != nil {
				return 0, err
			}
			return newInt(h, r)
		}
	case gvmheap.TagFloat:
		a, b := h.Float(x).Value(), h.Float(y).Value()
		if r, ok := compare(op, a, b); ok {
			return newBool(h, r)
		}
		if fn, ok := floatOps[op]; ok {
			return newFloat(h, fn(a, b))
		}
	case gvmheap.TagString:
		a, b := h.Str(x).Value(), h.Str(y).Value()
		if r, ok := compare(op, a, b); ok {
			return newBool(h, r)
		}
		if fn, ok := stringOps[op]; ok {
			s, err := gvmheap.NewString(h, fn(a, b))
			return s.Addr(), err
		}
	case gvmheap.TagBool:
		if fn, ok := boolOps[op]; ok {
			return newBool(h, fn(h.Bool(x).Value(), h.Bool(y).Value()))
		}
	}
	return 0, ErrOperator{Op: op, Operands: []gvmheap.Tag{tx, ty}}
}

func unaryOp(h *gvmheap.Heap, op string, x gvmheap.Addr) (gvmheap.Addr, error) {
	tx := h.Node(x).Tag()
	switch {
	case op == "-" && tx == gvmheap.TagInt:
		return newInt(h, -h.Int(x).Value())
	case op == "-" && tx == gvmheap.TagFloat:
		return newFloat(h, -h.Float(x).Value())
	case op == "^" && tx == gvmheap.TagInt:
		return newInt(h, ^h.Int(x).Value())
	case op == "!" && tx == gvmheap.TagBool:
		return newBool(h, !h.Bool(x).Value())
	}
	return 0, ErrOperator{Op: op, Operands: []gvmheap.Tag{tx}}
}

// hasValue is true for tags compared by value rather than identity.
func hasValue(t gvmheap.Tag) bool {
	return t.IsPrimitive() || t == gvmheap.TagString
}

func newInt(h *gvmheap.Heap, x int32) (gvmheap.Addr, error) {
	n, err := gvmheap.NewInt(h, x)
	return n.Addr(), err
}

func newFloat(h *gvmheap.Heap, x float32) (gvmheap.Addr, error) {
	n, err := gvmheap.NewFloat(h, x)
	return n.Addr(), err
}

func newBool(h *gvmheap.Heap, x bool) (gvmheap.Addr, error) {
	n, err := gvmheap.NewBool(h, x)
	return n.Addr(), err
}
