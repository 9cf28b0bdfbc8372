// package gvmpkg provides the builtin packages available to programs.
package gvmpkg

import (
	"fmt"

	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmproc"
)

// Default returns a registry holding every package in this module.
func Default() *gvmproc.Registry {
	return gvmproc.NewRegistry(Fmt(), Sync(), Runtime())
}

// checkArgs returns an error unless args has exactly one node per tag.
// TagFree matches any node.
func checkArgs(h *gvmheap.Heap, fn string, args []gvmheap.Addr, tags ...gvmheap.Tag) error {
	if len(args) != len(tags) {
		return fmt.Errorf("%s: %w", fn, gvmproc.ErrArity{Want: len(tags), Have: len(args)})
	}
	for i, tag := range tags {
		if tag == gvmheap.TagFree {
			continue
		}
		if err := h.Node(args[i]).Expect(tag); err != nil {
			return fmt.Errorf("%s: argument %d: %w", fn, i, err)
		}
	}
	return nil
}
