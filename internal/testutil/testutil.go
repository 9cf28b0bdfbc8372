package testutil

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"gvm.dev/gvm/gvmheap"
)

func Context(t testing.TB) context.Context {
	ctx := context.Background()
	ctx, cf := context.WithCancel(ctx)
	t.Cleanup(cf)
	l, err := zap.NewDevelopment()
	require.NoError(t, err)
	ctx = logctx.NewContext(ctx, l)
	return ctx
}

// NewHeap creates a heap with 4 byte words.
func NewHeap(t testing.TB, words int) *gvmheap.Heap {
	h, err := gvmheap.New(gvmheap.Config{WordBytes: 4, Words: words})
	require.NoError(t, err)
	return h
}

func Listen(t testing.TB) net.Listener {
	l, err := net.Listen("tcp", "127.0.0.1:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

