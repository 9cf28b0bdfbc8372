package gvmcmd

import (
	"go.brendoncarroll.net/star"

	"gvm.dev/gvm/gvmprog"
)

var progCmd = star.NewDir(star.Metadata{
	Short: "work with program files",
}, map[star.Symbol]star.Command{
	"convert": progConvert,
	"inspect": progInspect,
})

var formatParam = star.Param[gvmprog.Format]{
	Name:    "format",
	Default: star.Ptr(string(gvmprog.FormatAsm)),
	Parse: func(x string) (gvmprog.Format, error) {
		return gvmprog.Format(x), nil
	},
}

var progConvert = star.Command{
	Metadata: star.Metadata{
		Short: "write a program to stdout in another format",
	},
	Flags: []star.IParam{formatParam},
	Pos:   []star.IParam{programParam},
	F: func(c star.Context) error {
		np := programParam.Load(c)
		data, err := gvmprog.Marshal(formatParam.Load(c), np.Prog)
		if err != nil {
			return err
		}
		_, err = c.StdOut.Write(data)
		return err
	},
}

var progInspect = star.Command{
	Metadata: star.Metadata{
		Short: "print the fingerprint and size of a program",
	},
	Pos: []star.IParam{programParam},
	F: func(c star.Context) error {
		np := programParam.Load(c)
		c.Printf("FINGERPRINT: %v\n", gvmprog.Fingerprint(np.Prog))
		c.Printf("GLOBALS: %d\n", np.Prog.Globals)
		c.Printf("INSTRUCTIONS: %d\n", len(np.Prog.Instrs))
		counts := make(map[gvmprog.Op]int)
		for _, in := range np.Prog.Instrs {
			counts[in.Op]++
		}
		for op := gvmprog.Unknown + 1; op.IsValid(); op++ {
			if n := counts[op]; n > 0 {
				c.Printf("  %-14v %d\n", op, n)
			}
		}
		return nil
	},
}
