package gvmpkg

import (
	"fmt"

	"go.brendoncarroll.net/exp/slices2"

	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmproc"
)

// Fmt is formatted output, following the verbs of the fmt package.
func Fmt() gvmproc.Package {
	return gvmproc.Package{
		Name: "fmt",
		Members: []gvmproc.Member{
			{Name: "Print", Fn: fmtPrint},
			{Name: "Println", Fn: fmtPrintln},
			{Name: "Printf", Fn: fmtPrintf},
			{Name: "Sprint", Fn: fmtSprint},
			{Name: "Sprintf", Fn: fmtSprintf},
		},
	}
}

// goValue converts a heap value to the Go value with the same formatting.
func goValue(h *gvmheap.Heap, a gvmheap.Addr) any {
	switch h.Node(a).Tag() {
	case gvmheap.TagInt:
		return h.Int(a).Value()
	case gvmheap.TagFloat:
		return h.Float(a).Value()
	case gvmheap.TagBool:
		return h.Bool(a).Value()
	case gvmheap.TagString:
		return h.Str(a).Value()
	case gvmheap.TagNil:
		return nil
	default:
		return formatted(h.Format(a))
	}
}

// formatted is a composite value rendered ahead of time.
type formatted string

func (f formatted) String() string {
	return string(f)
}

func goValues(h *gvmheap.Heap, args []gvmheap.Addr) []any {
	return slices2.Map(args, func(a gvmheap.Addr) any {
		return goValue(h, a)
	})
}

func fmtPrint(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	_, err := fmt.Fprint(p.Output(), goValues(p.Heap(), args)...)
	return 0, err
}

func fmtPrintln(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	_, err := fmt.Fprintln(p.Output(), goValues(p.Heap(), args)...)
	return 0, err
}

func formatArgs(h *gvmheap.Heap, fn string, args []gvmheap.Addr) (string, []any, error) {
	if len(args) < 1 {
		return "", nil, fmt.Errorf("%s: missing format string", fn)
	}
	if err := h.Node(args[0]).Expect(gvmheap.TagString); err != nil {
		return "", nil, fmt.Errorf("%s: format: %w", fn, err)
	}
	return h.Str(args[0]).Value(), goValues(h, args[1:]), nil
}

func fmtPrintf(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	format, vals, err := formatArgs(p.Heap(), "Printf", args)
	if err != nil {
		return 0, err
	}
	_, err = fmt.Fprintf(p.Output(), format, vals...)
	return 0, err
}

func fmtSprint(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	s, err := gvmheap.NewString(p.Heap(), fmt.Sprint(goValues(p.Heap(), args)...))
	return s.Addr(), err
}

func fmtSprintf(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	format, vals, err := formatArgs(p.Heap(), "Sprintf", args)
	if err != nil {
		return 0, err
	}
	s, err := gvmheap.NewString(p.Heap(), fmt.Sprintf(format, vals...))
	return s.Addr(), err
}
