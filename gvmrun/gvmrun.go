// package gvmrun runs programs with a fresh heap and the built-in packages.
package gvmrun

import (
	"context"

	"gvm.dev/gvm/gvmconf"
	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmpkg"
	"gvm.dev/gvm/gvmproc"
	"gvm.dev/gvm/gvmprog"
)

// Exec runs prog to completion.
// Configuration and setup failures are returned as the error,
// failures of the program itself are reported in Result.Err.
func Exec(ctx context.Context, cfg gvmconf.Config, prog gvmprog.Program) (gvmproc.Result, error) {
	if err := cfg.Validate(); err != nil {
		return gvmproc.Result{}, gvmconf.ErrConfig{Err: err}
	}
	h, err := gvmheap.New(cfg.HeapConfig())
	if err != nil {
		return gvmproc.Result{}, err
	}
	p, err := gvmproc.New(ctx, h, prog, gvmpkg.Default(), cfg.ProcConfig())
	if err != nil {
		return gvmproc.Result{}, err
	}
	return p.Run(ctx), nil
}
