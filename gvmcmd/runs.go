package gvmcmd

import (
	"strconv"

	"go.brendoncarroll.net/star"

	"gvm.dev/gvm/gvmtrace"
	"gvm.dev/gvm/internal/rundb"
)

var runsCmd = star.NewDir(star.Metadata{
	Short: "inspect the run history",
}, map[star.Symbol]star.Command{
	"list": runsList,
	"show": runsShow,
	"rm":   runsRm,
})

var limitParam = star.Param[int]{
	Name:    "limit",
	Default: star.Ptr("20"),
	Parse:   strconv.Atoi,
}

var runIDParam = star.Param[rundb.RunID]{
	Name: "run",
	Parse: func(x string) (rundb.RunID, error) {
		return strconv.ParseInt(x, 10, 64)
	},
}

var runsList = star.Command{
	Metadata: star.Metadata{
		Short: "list recent runs, newest first",
		Tags:  []string{"runs"},
	},
	Flags: []star.IParam{ConfigParam, DBParam, limitParam},
	F: func(c star.Context) error {
		db, err := requireDB(c)
		if err != nil {
			return err
		}
		defer db.Close()
		runs, err := rundb.List(c.Context, db, limitParam.Load(c))
		if err != nil {
			return err
		}
		c.Printf("%-6s %-44s %-8s %s\n", "ID", "PROGRAM", "STEPS", "ERROR")
		for _, r := range runs {
			c.Printf("%-6d %-44v %-8d %s\n", r.ID, r.Program, r.Steps, r.Error)
		}
		return nil
	},
}

var runsShow = star.Command{
	Metadata: star.Metadata{
		Short: "print the output and trace of a run",
		Tags:  []string{"runs"},
	},
	Flags: []star.IParam{ConfigParam, DBParam},
	Pos:   []star.IParam{runIDParam},
	F: func(c star.Context) error {
		db, err := requireDB(c)
		if err != nil {
			return err
		}
		defer db.Close()
		r, err := rundb.Get(c.Context, db, runIDParam.Load(c))
		if err != nil {
			return err
		}
		c.Printf("RUN: %d\n", r.ID)
		c.Printf("PROGRAM: %v\n", r.Program)
		c.Printf("CREATED: %v\n", r.Time())
		c.Printf("STEPS: %d\n", r.Steps)
		if r.Error != "" {
			c.Printf("ERROR: %s\n", r.Error)
		}
		c.Printf("OUTPUT:\n%s", r.Output)
		snaps, err := r.Snapshots()
		if err != nil {
			return err
		}
		if snaps != nil {
			c.Printf("TRACE:\n")
			return gvmtrace.WriteText(c.StdOut, snaps)
		}
		return nil
	},
}

var runsRm = star.Command{
	Metadata: star.Metadata{
		Short: "delete a run",
		Tags:  []string{"runs"},
	},
	Flags: []star.IParam{ConfigParam, DBParam},
	Pos:   []star.IParam{runIDParam},
	F: func(c star.Context) error {
		db, err := requireDB(c)
		if err != nil {
			return err
		}
		defer db.Close()
		return rundb.Delete(c.Context, db, runIDParam.Load(c))
	},
}
