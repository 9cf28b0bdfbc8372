package gvmcmd

import (
	"errors"
	"fmt"
	"net"

	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"
	"golang.org/x/sync/errgroup"

	"gvm.dev/gvm/gvmhttp"
	"gvm.dev/gvm/gvmproc"
	"gvm.dev/gvm/gvmrun"
	"gvm.dev/gvm/gvmtrace"
	"gvm.dev/gvm/internal/rundb"
)

var run = star.Command{
	Metadata: star.Metadata{
		Short: "run programs, each in its own heap",
	},
	Flags: []star.IParam{ConfigParam, DBParam, traceParam, verboseParam},
	Pos:   []star.IParam{programsParam},
	F: func(c star.Context) error {
		c.Context = withLogger(c)
		cfg := ConfigParam.Load(c)
		cfg.Sched.Trace = cfg.Sched.Trace || traceParam.Load(c)
		progs := programsParam.LoadAll(c)
		db, err := openDB(c.Context, DBParam.Load(c), cfg)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		results := make([]gvmproc.Result, len(progs))
		eg, ctx := errgroup.WithContext(c.Context)
		for i, np := range progs {
			eg.Go(func() error {
				res, err := gvmrun.Exec(ctx, cfg, np.Prog)
				if err != nil {
					return fmt.Errorf("%s: %w", np.Path, err)
				}
				results[i] = res
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		var errs []error
		for i, np := range progs {
			res := results[i]
			if len(progs) > 1 {
				c.Printf("== %s\n", np.Path)
			}
			c.Printf("%s", res.Output)
			if res.Trace != nil {
				if err := gvmtrace.WriteText(c.StdOut, res.Trace); err != nil {
					return err
				}
			}
			if db != nil {
				r, err := rundb.Insert(c.Context, db, np.Prog, res)
				if err != nil {
					return err
				}
				logctx.Infof(c.Context, "%s recorded as run %d", np.Path, r.ID)
			}
			if res.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", np.Path, res.Err))
			}
		}
		return errors.Join(errs...)
	},
}

var listenParam = star.Param[string]{
	Name:    "l",
	Default: star.Ptr(""),
	Parse:   star.ParseString,
}

var serve = star.Command{
	Metadata: star.Metadata{
		Short: "serve the HTTP playground",
	},
	Flags: []star.IParam{ConfigParam, DBParam, listenParam, verboseParam},
	F: func(c star.Context) error {
		c.Context = withLogger(c)
		cfg := ConfigParam.Load(c)
		if x := listenParam.Load(c); x != "" {
			cfg.Server.Listen = x
		}
		db, err := openDB(c.Context, DBParam.Load(c), cfg)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		srv, err := gvmhttp.New(cfg, db)
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", cfg.Server.Listen)
		if err != nil {
			return err
		}
		return srv.Serve(c.Context, lis)
	},
}
