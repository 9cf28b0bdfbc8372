package gvmpkg

import (
	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmproc"
)

func Runtime() gvmproc.Package {
	return gvmproc.Package{
		Name: "runtime",
		Members: []gvmproc.Member{
			{Name: "Gosched", Fn: gosched},
			{Name: "NumGoroutine", Fn: numGoroutine},
			{Name: "GC", Fn: collect},
		},
	}
}

func gosched(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	if err := checkArgs(p.Heap(), "Gosched", args); err != nil {
		return 0, err
	}
	p.Yield()
	return 0, nil
}

func numGoroutine(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	if err := checkArgs(p.Heap(), "NumGoroutine", args); err != nil {
		return 0, err
	}
	n, err := gvmheap.NewInt(p.Heap(), int32(p.Goroutines()))
	return n.Addr(), err
}

func collect(p *gvmproc.Process, args []gvmheap.Addr) (gvmheap.Addr, error) {
	if err := checkArgs(p.Heap(), "GC", args); err != nil {
		return 0, err
	}
	p.Heap().Collect()
	return 0, nil
}
