package gvmpkg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gvm.dev/gvm/gvmpkg"
	"gvm.dev/gvm/gvmproc"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/internal/testutil"
)

func run(t testing.TB, src string) gvmproc.Result {
	ctx := testutil.Context(t)
	prog, err := gvmprog.ParseAsm([]byte(src))
	require.NoError(t, err)
	h := testutil.NewHeap(t, 1<<12)
	p, err := gvmproc.New(ctx, h, prog, gvmpkg.Default(), gvmproc.DefaultConfig())
	require.NoError(t, err)
	return p.Run(ctx)
}

func TestFmt(t *testing.T) {
	src := `
.globals 1
	load_package "fmt"
	store 0 0

	load 0 0
	select Println
	push_string "a"
	push_int 1
	push_float 2.5
	push_bool true
	push_nil
	call 5
	pop

	load 0 0
	select Print
	push_int 1
	push_int 2
	push_string "x"
	push_string "y"
	call 4
	pop

	load 0 0
	select Printf
	push_string "\n%d|%5.2f|%s|%v|%t|%%\n"
	push_int 42
	push_float 3.14159
	push_string "str"
	push_int 1
	push_int 2
	make_array 2
	push_bool false
	call 6
	pop

	load 0 0
	select Println
	load 0 0
	select Sprintf
	push_string "%03d"
	push_int 7
	call 2
	load 0 0
	select Sprint
	push_string "k="
	push_int 9
	call 2
	call 2
	pop
	done
`
	res := run(t, src)
	require.NoError(t, res.Err)
	require.Equal(t, "a 1 2.5 true <nil>\n"+
		"1 2xy"+
		"\n42| 3.14|str|[1 2]|false|%\n"+
		"007 k=9\n", res.Output)
}

func TestFmtErrors(t *testing.T) {
	res := run(t, `
	load_package "fmt"
	select Printf
	push_int 1
	call 1
	done
`)
	require.Error(t, res.Err)
}

func TestSyncErrors(t *testing.T) {
	res := run(t, `
.globals 1
	load_package "sync"
	select NewWaitGroup
	call 0
	store 0 0
	load_package "sync"
	select Done
	load 0 0
	call 1
	done
`)
	require.ErrorIs(t, res.Err, gvmpkg.ErrNegativeCounter)

	res = run(t, `
	load_package "sync"
	select Unlock
	load_package "sync"
	select NewMutex
	call 0
	call 1
	done
`)
	require.ErrorIs(t, res.Err, gvmpkg.ErrUnlockUnlocked)

	res = run(t, `
	load_package "sync"
	select Wait
	push_int 1
	call 1
	done
`)
	require.Error(t, res.Err)
}

func TestWaitGroupZero(t *testing.T) {
	res := run(t, `
.globals 1
	load_package "sync"
	select NewWaitGroup
	call 0
	store 0 0
	load_package "sync"
	select Wait
	load 0 0
	call 1
	pop
	load_package "fmt"
	select Print
	push_string "ok"
	call 1
	done
`)
	require.NoError(t, res.Err)
	require.Equal(t, "ok", res.Output)
}

func TestNumGoroutine(t *testing.T) {
	res := run(t, `
.globals 1
	func sleeper 0 0
	store 0 0
	load 0 0
	go 0
	load 0 0
	go 0
	load_package "fmt"
	select Print
	load_package "runtime"
	select NumGoroutine
	call 0
	call 1
	done
sleeper:
	load_package "runtime"
	select Gosched
	call 0
	pop
	jump sleeper
`)
	require.NoError(t, res.Err)
	require.Equal(t, "3", res.Output)
}
