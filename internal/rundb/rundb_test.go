package rundb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gvm.dev/gvm/gvmproc"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/gvmtrace"
	"gvm.dev/gvm/internal/rundb"
	"gvm.dev/gvm/internal/rundb/testrundb"
	"gvm.dev/gvm/internal/testutil"
)

func testProgram(x int32) gvmprog.Program {
	return gvmprog.Program{
		Instrs: []gvmprog.Insn{
			{Op: gvmprog.PushInt, Int: x},
			{Op: gvmprog.Pop},
			{Op: gvmprog.Done},
		},
	}
}

func TestInsertGet(t *testing.T) {
	ctx := testutil.Context(t)
	db := testrundb.New(t)
	prog := testProgram(1)

	run, err := rundb.Insert(ctx, db, prog, gvmproc.Result{
		Output: "hello\n",
		Steps:  3,
		Trace:  []gvmtrace.Snapshot{{Step: 1}, {Step: 2}},
	})
	require.NoError(t, err)
	require.NotZero(t, run.ID)
	require.Equal(t, gvmprog.Fingerprint(prog), run.Program)

	run2, err := rundb.Get(ctx, db, run.ID)
	require.NoError(t, err)
	require.Equal(t, run, run2)
	snaps, err := run2.Snapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Equal(t, uint64(2), snaps[1].Step)

	prog2, err := rundb.GetProgram(ctx, db, run.Program)
	require.NoError(t, err)
	require.Equal(t, gvmprog.Fingerprint(prog), gvmprog.Fingerprint(prog2))
}

func TestInsertError(t *testing.T) {
	ctx := testutil.Context(t)
	db := testrundb.New(t)
	run, err := rundb.Insert(ctx, db, testProgram(1), gvmproc.Result{Err: gvmproc.ErrDeadlock, Steps: 10})
	require.NoError(t, err)
	run, err = rundb.Get(ctx, db, run.ID)
	require.NoError(t, err)
	require.Equal(t, "all threads are blocked", run.Error)
	require.Nil(t, run.Trace)
	snaps, err := run.Snapshots()
	require.NoError(t, err)
	require.Nil(t, snaps)
}

func TestNotFound(t *testing.T) {
	ctx := testutil.Context(t)
	db := testrundb.New(t)
	_, err := rundb.Get(ctx, db, 7)
	require.ErrorIs(t, err, rundb.ErrRunNotFound{RunID: 7})
	_, err = rundb.GetProgram(ctx, db, gvmprog.Fingerprint(testProgram(1)))
	require.ErrorAs(t, err, &rundb.ErrProgramNotFound{})
	require.ErrorIs(t, rundb.Delete(ctx, db, 7), rundb.ErrRunNotFound{RunID: 7})
}

func TestListDelete(t *testing.T) {
	ctx := testutil.Context(t)
	db := testrundb.New(t)
	var ids []rundb.RunID
	for i := 0; i < 5; i++ {
		run, err := rundb.Insert(ctx, db, testProgram(int32(i%2)), gvmproc.Result{Steps: uint64(i)})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	runs, err := rundb.List(ctx, db, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, ids[4], runs[0].ID)
	require.Equal(t, ids[2], runs[2].ID)

	// the program is shared with ids[2] and ids[4]
	require.NoError(t, rundb.Delete(ctx, db, ids[0]))
	_, err = rundb.GetProgram(ctx, db, gvmprog.Fingerprint(testProgram(0)))
	require.NoError(t, err)

	require.NoError(t, rundb.Delete(ctx, db, ids[1]))
	require.NoError(t, rundb.Delete(ctx, db, ids[3]))
	_, err = rundb.GetProgram(ctx, db, gvmprog.Fingerprint(testProgram(1)))
	require.ErrorAs(t, err, &rundb.ErrProgramNotFound{})

	runs, err = rundb.List(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}
