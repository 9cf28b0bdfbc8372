package gvmcmd

import (
	"go.brendoncarroll.net/star"

	"gvm.dev/gvm/gvmconf"
)

var configCmd = star.Command{
	Metadata: star.Metadata{
		Short: "print the effective configuration as TOML",
	},
	Flags: []star.IParam{ConfigParam},
	F: func(c star.Context) error {
		data, err := gvmconf.Marshal(ConfigParam.Load(c))
		if err != nil {
			return err
		}
		_, err = c.StdOut.Write(data)
		return err
	},
}
