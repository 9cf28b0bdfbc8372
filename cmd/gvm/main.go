package main

import (
	"go.brendoncarroll.net/star"

	"gvm.dev/gvm/gvmcmd"
)

func main() {
	star.Main(gvmcmd.Root())
}
