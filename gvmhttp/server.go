// package gvmhttp serves a playground for running programs over HTTP.
package gvmhttp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/exp/slices2"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"gvm.dev/gvm"
	"gvm.dev/gvm/gvmconf"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/gvmrun"
	"gvm.dev/gvm/gvmtrace"
	"gvm.dev/gvm/internal/rundb"
)

// DefaultListLimit is the number of runs listed when no limit is requested.
const DefaultListLimit = 20

//go:embed view/*
var viewFS embed.FS

type Server struct {
	cfg   gvmconf.Config
	db    *sqlx.DB
	app   *fiber.App
	bgCtx context.Context

	mu    sync.Mutex
	cache *simplelru.LRU[gvm.Fingerprint, gvmprog.Program]
}

// New creates a Server.
// If db is nil runs are not recorded and the run history endpoints return 404.
func New(cfg gvmconf.Config, db *sqlx.DB) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, gvmconf.ErrConfig{Err: err}
	}
	cache, err := simplelru.NewLRU[gvm.Fingerprint, gvmprog.Program](cfg.Server.CacheSize, nil)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   cfg,
		db:    db,
		cache: cache,
		bgCtx: context.Background(),
	}

	renderer := html.NewFileSystem(http.FS(viewFS), ".html")
	renderer.AddFunc("millis", func(x int64) string {
		return time.UnixMilli(x).UTC().Format(time.DateTime)
	})
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 renderer,
		ErrorHandler:          s.handleError,
	})
	// views
	app.Get("/", s.home)
	app.Post("/run", s.postRun)
	app.Get("/runs/:runID", s.runView)

	v1 := app.Group("/v1")
	v1.Post("/programs", s.postProgram)
	v1.Get("/programs/:fp", s.getProgram)
	v1.Post("/programs/:fp/run", s.runProgram)
	v1.Post("/run", s.run)
	v1.Get("/runs", s.listRuns)
	v1.Get("/runs/:runID", s.getRun)
	v1.Get("/runs/:runID/ws", websocket.New(s.handleWS))
	s.app = app
	return s, nil
}

// Serve handles requests on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.bgCtx = ctx
	logctx.Infof(ctx, "serving on %v", l.Addr())
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			logctx.Error(ctx, "shutdown", zap.Error(err))
		}
	}()
	return s.app.Listener(l)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &ferr):
		code = ferr.Code
	case errors.As(err, &rundb.ErrRunNotFound{}), errors.As(err, &rundb.ErrProgramNotFound{}):
		code = fiber.StatusNotFound
	case errors.As(err, &gvmconf.ErrConfig{}):
		code = fiber.StatusBadRequest
	}
	if code == fiber.StatusInternalServerError {
		logctx.Error(s.bgCtx, "handling request", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// RunInfo is the JSON form of a run.
type RunInfo struct {
	ID        rundb.RunID         `json:"id,omitempty"`
	Program   gvm.Fingerprint     `json:"program"`
	Output    string              `json:"output"`
	Error     string              `json:"error,omitempty"`
	Steps     uint64              `json:"steps"`
	Trace     []gvmtrace.Snapshot `json:"trace,omitempty"`
	CreatedAt int64               `json:"created_at,omitempty"`
}

func runInfoFromDB(run rundb.Run) RunInfo {
	return RunInfo{
		ID:        run.ID,
		Program:   run.Program,
		Output:    run.Output,
		Error:     run.Error,
		Steps:     uint64(run.Steps),
		CreatedAt: run.CreatedAt,
	}
}

// parseBody decodes a program from the request body.
// The format is the "format" query parameter, defaulting to JSON.
func parseBody(c *fiber.Ctx) (gvmprog.Program, error) {
	f := gvmprog.Format(c.Query("format", string(gvmprog.FormatJSON)))
	prog, err := gvmprog.Parse(f, c.Body())
	if err != nil {
		return gvmprog.Program{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return prog, nil
}

// remember caches prog and returns its fingerprint.
func (s *Server) remember(prog gvmprog.Program) gvm.Fingerprint {
	fp := gvmprog.Fingerprint(prog)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(fp, prog)
	return fp
}

// lookup finds a program in the cache, falling back to the database.
func (s *Server) lookup(ctx context.Context, fp gvm.Fingerprint) (gvmprog.Program, error) {
	s.mu.Lock()
	prog, ok := s.cache.Get(fp)
	s.mu.Unlock()
	if ok {
		return prog, nil
	}
	if s.db == nil {
		return gvmprog.Program{}, rundb.ErrProgramNotFound{Fingerprint: fp}
	}
	prog, err := rundb.GetProgram(ctx, s.db, fp)
	if err != nil {
		return gvmprog.Program{}, err
	}
	s.remember(prog)
	return prog, nil
}

// requestContext carries the server's logger and is cancelled with either the server or req.
func (s *Server) requestContext(req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(s.bgCtx)
	stop := context.AfterFunc(req, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// exec runs prog and records the result if there is a database.
func (s *Server) exec(ctx context.Context, prog gvmprog.Program, trace bool) (RunInfo, error) {
	cfg := s.cfg
	cfg.Sched.Trace = cfg.Sched.Trace || trace
	fp := s.remember(prog)
	runCtx, cancel := s.requestContext(ctx)
	defer cancel()
	res, err := gvmrun.Exec(runCtx, cfg, prog)
	if err != nil {
		return RunInfo{}, err
	}
	info := RunInfo{
		Program: fp,
		Output:  res.Output,
		Steps:   res.Steps,
		Trace:   res.Trace,
	}
	if res.Err != nil {
		info.Error = res.Err.Error()
	}
	if s.db != nil {
		run, err := rundb.Insert(ctx, s.db, prog, res)
		if err != nil {
			return RunInfo{}, err
		}
		info.ID = run.ID
		info.CreatedAt = run.CreatedAt
	}
	logctx.Info(s.bgCtx, "ran program", zap.Stringer("program", fp), zap.Int64("run", info.ID), zap.Uint64("steps", res.Steps))
	return info, nil
}

func (s *Server) postProgram(c *fiber.Ctx) error {
	prog, err := parseBody(c)
	if err != nil {
		return err
	}
	fp := s.remember(prog)
	if s.db != nil {
		if _, err := rundb.SaveProgram(c.Context(), s.db, prog); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"fingerprint": fp})
}

func (s *Server) getProgram(c *fiber.Ctx) error {
	fp, err := paramFingerprint(c)
	if err != nil {
		return err
	}
	prog, err := s.lookup(c.Context(), fp)
	if err != nil {
		return err
	}
	f := gvmprog.Format(c.Query("format", string(gvmprog.FormatJSON)))
	data, err := gvmprog.Marshal(f, prog)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	switch f {
	case gvmprog.FormatJSON:
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	case gvmprog.FormatCBOR:
		c.Set(fiber.HeaderContentType, "application/cbor")
	default:
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	}
	return c.Send(data)
}

func (s *Server) run(c *fiber.Ctx) error {
	prog, err := parseBody(c)
	if err != nil {
		return err
	}
	info, err := s.exec(c.Context(), prog, c.QueryBool("trace"))
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (s *Server) runProgram(c *fiber.Ctx) error {
	fp, err := paramFingerprint(c)
	if err != nil {
		return err
	}
	prog, err := s.lookup(c.Context(), fp)
	if err != nil {
		return err
	}
	info, err := s.exec(c.Context(), prog, c.QueryBool("trace"))
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	runs, err := s.recentRuns(c.Context(), c.QueryInt("limit", DefaultListLimit))
	if err != nil {
		return err
	}
	return c.JSON(runs)
}

func (s *Server) recentRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if s.db == nil {
		return []RunInfo{}, nil
	}
	if limit < 1 {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid limit %d", limit))
	}
	runs, err := rundb.List(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	return slices2.Map(runs, runInfoFromDB), nil
}

func (s *Server) getRun(c *fiber.Ctx) error {
	info, err := s.loadRun(c)
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (s *Server) loadRun(c *fiber.Ctx) (RunInfo, error) {
	id, err := strconv.ParseInt(c.Params("runID"), 10, 64)
	if err != nil {
		return RunInfo{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if s.db == nil {
		return RunInfo{}, rundb.ErrRunNotFound{RunID: id}
	}
	run, err := rundb.Get(c.Context(), s.db, id)
	if err != nil {
		return RunInfo{}, err
	}
	info := runInfoFromDB(run)
	if info.Trace, err = run.Snapshots(); err != nil {
		return RunInfo{}, err
	}
	return info, nil
}

func paramFingerprint(c *fiber.Ctx) (gvm.Fingerprint, error) {
	fp, err := gvm.ParseFingerprint(c.Params("fp"))
	if err != nil {
		return gvm.Fingerprint{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fp, nil
}

// handleWS sends the snapshots of a run one message at a time.
func (s *Server) handleWS(c *websocket.Conn) {
	ctx := s.bgCtx
	id, err := strconv.ParseInt(c.Params("runID"), 10, 64)
	if err != nil {
		return
	}
	logctx.Debug(ctx, "started websocket", zap.Int64("run", id))
	defer logctx.Debug(ctx, "closing websocket", zap.Int64("run", id))

	if err := func() error {
		if s.db == nil {
			return rundb.ErrRunNotFound{RunID: id}
		}
		run, err := rundb.Get(ctx, s.db, id)
		if err != nil {
			return err
		}
		snaps, err := run.Snapshots()
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if err := c.WriteJSON(snap); err != nil {
				return err
			}
		}
		return nil
	}(); err != nil {
		logctx.Error(ctx, "handling websocket", zap.Error(err))
		c.WriteJSON(fiber.Map{"error": err.Error()})
	}
}

// views

const defaultSource = `	load_package "fmt"
	select Println
	push_string "hello, world"
	call 1
	pop
	done
`

func (s *Server) home(c *fiber.Ctx) error {
	runs, err := s.recentRuns(c.Context(), DefaultListLimit)
	if err != nil {
		return err
	}
	return c.Render("view/home", struct {
		Hostname string
		Source   string
		Runs     []RunInfo
	}{
		Hostname: c.Hostname(),
		Source:   defaultSource,
		Runs:     runs,
	}, "view/layout")
}

func (s *Server) postRun(c *fiber.Ctx) error {
	prog, err := gvmprog.Parse(gvmprog.FormatAsm, []byte(c.FormValue("src")))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	info, err := s.exec(c.Context(), prog, c.FormValue("trace") != "")
	if err != nil {
		return err
	}
	if info.ID == 0 {
		return s.renderRun(c, info)
	}
	return c.Redirect(fmt.Sprintf("/runs/%d", info.ID))
}

func (s *Server) runView(c *fiber.Ctx) error {
	info, err := s.loadRun(c)
	if err != nil {
		return err
	}
	return s.renderRun(c, info)
}

func (s *Server) renderRun(c *fiber.Ctx, info RunInfo) error {
	return c.Render("view/run", struct {
		Hostname string
		Run      RunInfo
	}{
		Hostname: c.Hostname(),
		Run:      info,
	}, "view/layout")
}

