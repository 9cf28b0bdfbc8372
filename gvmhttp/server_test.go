package gvmhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/fasthttp/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"gvm.dev/gvm"
	"gvm.dev/gvm/gvmconf"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/gvmtrace"
	"gvm.dev/gvm/internal/rundb/testrundb"
	"gvm.dev/gvm/internal/testutil"
)

const hello = `
	load_package "fmt"
	select Println
	push_string "hi"
	call 1
	pop
	done
`

func TestRun(t *testing.T) {
	addr := startServing(t, testrundb.New(t))

	var info RunInfo
	code := postJSON(t, mkURL(addr, "/v1/run?format=asm"), hello, &info)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "hi\n", info.Output)
	require.Empty(t, info.Error)
	require.Equal(t, uint64(6), info.Steps)
	require.NotZero(t, info.ID)
	require.Nil(t, info.Trace)

	var info2 RunInfo
	code = getJSON(t, mkURL(addr, fmt.Sprintf("/v1/runs/%d", info.ID)), &info2)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, info, info2)

	var runs []RunInfo
	code = getJSON(t, mkURL(addr, "/v1/runs"), &runs)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, runs, 1)
	require.Equal(t, info.ID, runs[0].ID)
}

func TestRunFailure(t *testing.T) {
	addr := startServing(t, testrundb.New(t))
	var info RunInfo
	code := postJSON(t, mkURL(addr, "/v1/run?format=asm"), "loop: jump loop", &info)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "time limit exceeded", info.Error)
	require.Equal(t, uint64(gvm.DefaultMaxSteps), info.Steps)
}

func TestTrace(t *testing.T) {
	addr := startServing(t, testrundb.New(t))
	var info RunInfo
	code := postJSON(t, mkURL(addr, "/v1/run?format=asm&trace=true"), hello, &info)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, info.Trace, 6)
	require.Equal(t, uint64(1), info.Trace[0].Step)

	var info2 RunInfo
	getJSON(t, mkURL(addr, fmt.Sprintf("/v1/runs/%d", info.ID)), &info2)
	require.Equal(t, info.Trace, info2.Trace)

	u := "ws://" + addr.String() + fmt.Sprintf("/v1/runs/%d/ws", info.ID)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()
	for i := range info.Trace {
		var snap gvmtrace.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		require.Equal(t, info.Trace[i].Step, snap.Step)
	}
}

func TestPrograms(t *testing.T) {
	addr := startServing(t, testrundb.New(t))
	var resp struct {
		Fingerprint gvm.Fingerprint `json:"fingerprint"`
	}
	code := postJSON(t, mkURL(addr, "/v1/programs?format=asm"), hello, &resp)
	require.Equal(t, http.StatusOK, code)
	require.False(t, resp.Fingerprint.IsZero())

	var info RunInfo
	code = postJSON(t, mkURL(addr, "/v1/programs/"+resp.Fingerprint.String()+"/run"), "", &info)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "hi\n", info.Output)
	require.Equal(t, resp.Fingerprint, info.Program)

	res, err := http.Get(mkURL(addr, "/v1/programs/"+resp.Fingerprint.String()+"?format=asm"))
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(data), `load_package "fmt"`)
}

func TestErrors(t *testing.T) {
	addr := startServing(t, testrundb.New(t))
	var body map[string]string

	code := getJSON(t, mkURL(addr, "/v1/runs/99"), &body)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "run 99 not found", body["error"])

	code = postJSON(t, mkURL(addr, "/v1/run?format=asm"), "frobnicate 1", &body)
	require.Equal(t, http.StatusBadRequest, code)

	code = postJSON(t, mkURL(addr, "/v1/run?format=yaml"), hello, &body)
	require.Equal(t, http.StatusBadRequest, code)

	code = getJSON(t, mkURL(addr, "/v1/runs/abc"), &body)
	require.Equal(t, http.StatusBadRequest, code)

	code = getJSON(t, mkURL(addr, "/v1/runs?limit=0"), &body)
	require.Equal(t, http.StatusBadRequest, code)

	var fp gvm.Fingerprint
	code = postJSON(t, mkURL(addr, "/v1/programs/"+fp.String()+"/run"), "", &body)
	require.Equal(t, http.StatusNotFound, code)
}

func TestNoDB(t *testing.T) {
	addr := startServing(t, nil)
	var info RunInfo
	code := postJSON(t, mkURL(addr, "/v1/run?format=asm"), hello, &info)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "hi\n", info.Output)
	require.Zero(t, info.ID)

	// the program is still cached
	var info2 RunInfo
	code = postJSON(t, mkURL(addr, "/v1/programs/"+info.Program.String()+"/run"), "", &info2)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, info.Output, info2.Output)

	var runs []RunInfo
	code = getJSON(t, mkURL(addr, "/v1/runs"), &runs)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, runs)
}

func TestExecCancel(t *testing.T) {
	srv, err := New(gvmconf.Default(), nil)
	require.NoError(t, err)
	srv.bgCtx = testutil.Context(t)
	prog, err := gvmprog.ParseAsm([]byte("loop:\n\tjump loop\n"))
	require.NoError(t, err)

	req, cancel := context.WithCancel(context.Background())
	cancel()
	info, err := srv.exec(req, prog, false)
	require.NoError(t, err)
	require.Equal(t, context.Canceled.Error(), info.Error)
	require.Zero(t, info.Steps)

	runCtx, stop := srv.requestContext(context.Background())
	require.NoError(t, runCtx.Err())
	stop()
	require.ErrorIs(t, runCtx.Err(), context.Canceled)
}

func TestViews(t *testing.T) {
	addr := startServing(t, testrundb.New(t))

	res, err := http.PostForm(mkURL(addr, "/run"), url.Values{"src": {hello}, "trace": {"1"}})
	require.NoError(t, err)
	data := readAll(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Contains(t, string(data), "<pre>hi\n</pre>")
	require.Contains(t, string(data), "Trace")

	res, err = http.Get(mkURL(addr, "/"))
	require.NoError(t, err)
	data = readAll(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(data), `href="/runs/1"`)
}

func startServing(t testing.TB, db *sqlx.DB) net.Addr {
	ctx := testutil.Context(t)
	srv, err := New(gvmconf.Default(), db)
	require.NoError(t, err)
	lis := testutil.Listen(t)
	go srv.Serve(ctx, lis)
	return lis.Addr()
}

func mkURL(addr net.Addr, p string) string {
	return "http://" + addr.String() + p
}

func readAll(t testing.TB, res *http.Response) []byte {
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return data
}

func postJSON(t testing.TB, u, body string, dst any) int {
	res, err := http.Post(u, "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	data := readAll(t, res)
	require.NoError(t, json.Unmarshal(data, dst), "%s", data)
	return res.StatusCode
}

func getJSON(t testing.TB, u string, dst any) int {
	res, err := http.Get(u)
	require.NoError(t, err)
	data := readAll(t, res)
	require.NoError(t, json.Unmarshal(data, dst), "%s", data)
	return res.StatusCode
}
