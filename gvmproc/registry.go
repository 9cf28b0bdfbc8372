package gvmproc

import (
	"gvm.dev/gvm/gvmheap"
)

// BuiltinFunc implements a package member.
// The returned address is pushed as the result of the call, 0 pushes Nil.
type BuiltinFunc = func(p *Process, args []gvmheap.Addr) (gvmheap.Addr, error)

type Member struct {
	Name string
	Fn   BuiltinFunc
}

// Package is a named set of builtins which programs load with LoadPackageI.
type Package struct {
	Name    string
	Members []Member
}

// Registry resolves package names to packages.
// Package and member ids are indexes, stable for the lifetime of the Registry.
type Registry struct {
	pkgs   []Package
	byName map[string]int
}

func NewRegistry(pkgs ...Package) *Registry {
	r := &Registry{byName: make(map[string]int, len(pkgs))}
	for _, pkg := range pkgs {
		if _, exists := r.byName[pkg.Name]; exists {
			panic("gvmproc: duplicate package " + pkg.Name)
		}
		r.byName[pkg.Name] = len(r.pkgs)
		r.pkgs = append(r.pkgs, pkg)
	}
	return r
}

// Lookup returns the id of the package called name.
func (r *Registry) Lookup(name string) (int, bool) {
	if r == nil {
		return 0, false
	}
	id, ok := r.byName[name]
	return id, ok
}

func (r *Registry) Package(id int) Package {
	return r.pkgs[id]
}

// Member returns the index of the member called name in package id.
func (r *Registry) Member(id int, name string) (int, bool) {
	for i, m := range r.pkgs[id].Members {
		if m.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	ret := make([]string, len(r.pkgs))
	for i, pkg := range r.pkgs {
		ret[i] = pkg.Name
	}
	return ret
}
