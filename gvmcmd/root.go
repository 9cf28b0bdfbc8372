// package gvmcmd implements the gvm command line tool.
package gvmcmd

import (
	"context"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/star"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gvm.dev/gvm/gvmconf"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/internal/rundb"
)

func Root() star.Command {
	return root
}

var root = star.NewDir(star.Metadata{
	Short: "goroutine bytecode virtual machine",
}, map[star.Symbol]star.Command{
	"run":   run,
	"serve": serve,

	"runs":   runsCmd,
	"prog":   progCmd,
	"config": configCmd,
})

var ConfigParam = star.Param[gvmconf.Config]{
	Name:    "config",
	Default: star.Ptr(gvmconf.DefaultFilename),
	Parse:   gvmconf.LoadOrDefault,
}

// DBParam is the path of the run database.
// When it is empty the server.db setting from the config is used.
var DBParam = star.Param[string]{
	Name:    "db",
	Default: star.Ptr(""),
	Parse:   star.ParseString,
}

var errNoDB = errors.New("no run database, set -db or server.db in the config")

// openDB opens the run database, returning nil if none is configured.
func openDB(ctx context.Context, path string, cfg gvmconf.Config) (*sqlx.DB, error) {
	if path == "" {
		path = cfg.Server.DB
	}
	if path == "" {
		return nil, nil
	}
	return rundb.Open(ctx, path)
}

func requireDB(c star.Context) (*sqlx.DB, error) {
	db, err := openDB(c.Context, DBParam.Load(c), ConfigParam.Load(c))
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errNoDB
	}
	return db, nil
}

var traceParam = star.Param[bool]{
	Name:    "trace",
	Default: star.Ptr("false"),
	Parse:   strconv.ParseBool,
}

// namedProgram is a program and the path it was loaded from.
type namedProgram struct {
	Path string
	Prog gvmprog.Program
}

func parseProgram(x string) (namedProgram, error) {
	prog, err := gvmprog.LoadFile(x)
	if err != nil {
		return namedProgram{}, err
	}
	return namedProgram{Path: x, Prog: prog}, nil
}

var programsParam = star.Param[namedProgram]{
	Name:     "programs",
	Repeated: true,
	Parse:    parseProgram,
}

var programParam = star.Param[namedProgram]{
	Name:  "program",
	Parse: parseProgram,
}

var verboseParam = star.Param[bool]{
	Name:    "v",
	Default: star.Ptr("false"),
	Parse:   strconv.ParseBool,
}

// withLogger returns the command context with a zap logger writing to stderr.
// Only warnings are logged unless -v is set.
func withLogger(c star.Context) context.Context {
	lcfg := zap.NewDevelopmentConfig()
	lcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verboseParam.Load(c) {
		lcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := lcfg.Build()
	if err != nil {
		return c.Context
	}
	return logctx.NewContext(c.Context, l)
}
