package gvmprog

import (
	"bufio"
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ErrAsm is a syntax error in assembly text.
type ErrAsm struct {
	Line int
	Msg  string
}

func (e ErrAsm) Error() string {
	return fmt.Sprintf("asm:%d: %s", e.Line, e.Msg)
}

// ParseAsm parses assembly text.
//
// Each line holds an optional "label:" followed by an op name and its operands.
// Comments start with ';'. Jump and function targets are labels or absolute pcs.
// Directives:
//
//	.globals N              size of the root frame
//	.scope SITE NAME...     variable names of the frame created at SITE,
//	                        which is "root", a label or a pc
//
// The source line of every instruction is recorded in the symbol table.
func ParseAsm(data []byte) (Program, error) {
	a := assembler{
		labels: map[string]int{},
		syms:   &Symbols{Scopes: map[int][]string{}},
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for lineNum := 1; sc.Scan(); lineNum++ {
		if err := a.line(lineNum, sc.Text()); err != nil {
			return Program{}, err
		}
	}
	if err := sc.Err(); err != nil {
		return Program{}, err
	}
	return a.finish()
}

type fixup struct {
	pc    int
	line  int
	label string
}

type scopeRef struct {
	line  int
	site  string
	names []string
}

type assembler struct {
	prog   Program
	labels map[string]int
	fixups []fixup
	scopes []scopeRef
	syms   *Symbols
}

func (a *assembler) line(n int, text string) error {
	fields, err := splitFields(text)
	if err != nil {
		return ErrAsm{Line: n, Msg: err.Error()}
	}
	for len(fields) > 0 && strings.HasSuffix(fields[0], ":") && !isQuoted(fields[0]) {
		label := strings.TrimSuffix(fields[0], ":")
		if label == "" {
			return ErrAsm{Line: n, Msg: "empty label"}
		}
		if _, exists := a.labels[label]; exists {
			return ErrAsm{Line: n, Msg: fmt.Sprintf("duplicate label %q", label)}
		}
		a.labels[label] = len(a.prog.Instrs)
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return nil
	}
	if strings.HasPrefix(fields[0], ".") {
		return a.directive(n, fields[0], fields[1:])
	}
	op, err := ParseOp(fields[0])
	if err != nil {
		return ErrAsm{Line: n, Msg: err.Error()}
	}
	in, err := a.operands(n, op, fields[1:])
	if err != nil {
		return ErrAsm{Line: n, Msg: fmt.Sprintf("%v: %v", op, err)}
	}
	a.prog.Instrs = append(a.prog.Instrs, in)
	a.syms.Locs = append(a.syms.Locs, Loc{Line: n})
	return nil
}

func (a *assembler) directive(n int, name string, args []string) error {
	switch name {
	case ".globals":
		if len(args) != 1 {
			return ErrAsm{Line: n, Msg: ".globals takes 1 argument"}
		}
		g, err := strconv.Atoi(args[0])
		if err != nil {
			return ErrAsm{Line: n, Msg: err.Error()}
		}
		a.prog.Globals = g
	case ".scope":
		if len(args) < 1 {
			return ErrAsm{Line: n, Msg: ".scope needs a site"}
		}
		a.scopes = append(a.scopes, scopeRef{line: n, site: args[0], names: args[1:]})
	default:
		return ErrAsm{Line: n, Msg: fmt.Sprintf("unknown directive %s", name)}
	}
	return nil
}

func (a *assembler) operands(line int, op Op, args []string) (Insn, error) {
	in := Insn{Op: op}
	want := func(k int) error {
		if len(args) != k {
			return fmt.Errorf("want %d operands, have %d", k, len(args))
		}
		return nil
	}
	ints := func(dsts ...*int) error {
		if err := want(len(dsts)); err != nil {
			return err
		}
		for i, dst := range dsts {
			x, err := strconv.Atoi(args[i])
			if err != nil {
				return err
			}
			*dst = x
		}
		return nil
	}
	target := func(i int) {
		if x, err := strconv.Atoi(args[i]); err == nil {
			in.A = x
			return
		}
		a.fixups = append(a.fixups, fixup{pc: len(a.prog.Instrs), line: line, label: args[i]})
	}

	switch op {
	case PushInt:
		if err := want(1); err != nil {
			return in, err
		}
		x, err := strconv.ParseInt(args[0], 0, 32)
		if err != nil {
			return in, err
		}
		in.Int = int32(x)
	case PushFloat:
		if err := want(1); err != nil {
			return in, err
		}
		x, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return in, err
		}
		in.Float = float32(x)
	case PushBool:
		if err := want(1); err != nil {
			return in, err
		}
		x, err := strconv.ParseBool(args[0])
		if err != nil {
			return in, err
		}
		in.Bool = x
	case PushString, LoadPackage, Select:
		if err := want(1); err != nil {
			return in, err
		}
		in.Str = unquote(args[0])
	case Binary, Unary:
		if err := want(1); err != nil {
			return in, err
		}
		in.Str = args[0]
	case Load, Store:
		return in, ints(&in.A, &in.B)
	case Jump, JumpIfFalse:
		if err := want(1); err != nil {
			return in, err
		}
		target(0)
	case Block:
		if len(args) == 2 && args[1] == "loop" {
			in.Bool = true
			args = args[:1]
		}
		return in, ints(&in.A)
	case Func:
		if err := want(3); err != nil {
			return in, err
		}
		target(0)
		args = args[1:]
		return in, ints(&in.B, &in.C)
	case Call, Go, MakeArray, Append:
		return in, ints(&in.A)
	case Slice:
		return in, ints(&in.A, &in.B)
	default:
		return in, want(0)
	}
	return in, nil
}

func (a *assembler) finish() (Program, error) {
	for _, f := range a.fixups {
		pc, ok := a.labels[f.label]
		if !ok {
			return Program{}, ErrAsm{Line: f.line, Msg: fmt.Sprintf("undefined label %q", f.label)}
		}
		a.prog.Instrs[f.pc].A = pc
	}
	for _, s := range a.scopes {
		site, err := a.site(s.site)
		if err != nil {
			return Program{}, ErrAsm{Line: s.line, Msg: err.Error()}
		}
		a.syms.Scopes[site] = s.names
	}
	if len(a.syms.Scopes) == 0 {
		a.syms.Scopes = nil
	}
	a.prog.Symbols = a.syms
	return a.prog, nil
}

func (a *assembler) site(s string) (int, error) {
	if s == "root" {
		return RootSite, nil
	}
	if pc, ok := a.labels[s]; ok {
		return pc, nil
	}
	pc, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("undefined site %q", s)
	}
	return pc, nil
}

// splitFields splits a line on whitespace, keeping quoted strings whole and dropping comments.
func splitFields(line string) ([]string, error) {
	var ret []string
	for {
		line = strings.TrimLeft(line, " \t")
		if line == "" || line[0] == ';' {
			return ret, nil
		}
		if line[0] == '"' || line[0] == '`' {
			q, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, fmt.Errorf("bad string literal")
			}
			ret = append(ret, q)
			line = line[len(q):]
			continue
		}
		end := strings.IndexAny(line, " \t;")
		if end < 0 {
			end = len(line)
		}
		ret = append(ret, line[:end])
		line = line[end:]
	}
}

func isQuoted(s string) bool {
	return strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "`")
}

func unquote(s string) string {
	if isQuoted(s) {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// FormatAsmText renders p as assembly text accepted by ParseAsm.
// Targets are written as labels of the form L<pc>.
func FormatAsmText(p Program) []byte {
	targets := map[int]bool{}
	for _, in := range p.Instrs {
		if in.Op.IsJump() {
			targets[in.A] = true
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, ".globals %d\n", p.Globals)
	if p.Symbols != nil {
		for _, site := range slices.Sorted(maps.Keys(p.Symbols.Scopes)) {
			siteStr := "root"
			if site != RootSite {
				siteStr = strconv.Itoa(site)
			}
			fmt.Fprintf(&sb, ".scope %s %s\n", siteStr, strings.Join(p.Symbols.Scopes[site], " "))
		}
	}
	for pc, in := range p.Instrs {
		if targets[pc] {
			fmt.Fprintf(&sb, "L%d:\n", pc)
		}
		sb.WriteString("\t")
		sb.WriteString(in.String())
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

func (in Insn) String() string {
	switch in.Op {
	case PushInt:
		return fmt.Sprintf("%v %d", in.Op, in.Int)
	case PushFloat:
		return fmt.Sprintf("%v %v", in.Op, strconv.FormatFloat(float64(in.Float), 'g', -1, 32))
	case PushBool:
		return fmt.Sprintf("%v %t", in.Op, in.Bool)
	case PushString, LoadPackage, Select:
		return fmt.Sprintf("%v %q", in.Op, in.Str)
	case Binary, Unary:
		return fmt.Sprintf("%v %s", in.Op, in.Str)
	case Load, Store, Slice:
		return fmt.Sprintf("%v %d %d", in.Op, in.A, in.B)
	case Jump, JumpIfFalse:
		return fmt.Sprintf("%v L%d", in.Op, in.A)
	case Block:
		if in.Bool {
			return fmt.Sprintf("%v %d loop", in.Op, in.A)
		}
		return fmt.Sprintf("%v %d", in.Op, in.A)
	case Func:
		return fmt.Sprintf("%v L%d %d %d", in.Op, in.A, in.B, in.C)
	case Call, Go, MakeArray, Append:
		return fmt.Sprintf("%v %d", in.Op, in.A)
	default:
		return in.Op.String()
	}
}
