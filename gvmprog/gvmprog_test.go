package gvmprog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const counterAsm = `
; count to three
.globals 1
.scope root i
.scope body tmp

	push_int 0
	store 0 0
top:
	load 0 0
	push_int 3
	binary <
	jump_if_false end
body:	block 1 loop
	load 1 0
	push_int 1
	binary +
	store 1 0
	exit_block
	jump top
end:
	load_package "fmt"
	select Println
	push_string "done; ok"
	call 1
	pop
	done
`

func TestParseAsm(t *testing.T) {
	p, err := ParseAsm([]byte(counterAsm))
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	require.Equal(t, 1, p.Globals)
	require.Len(t, p.Instrs, 19)

	require.Equal(t, Insn{Op: PushInt, Int: 0}, p.Instrs[0])
	require.Equal(t, Insn{Op: Store, A: 0, B: 0}, p.Instrs[1])
	require.Equal(t, Insn{Op: JumpIfFalse, A: 13}, p.Instrs[5])
	require.Equal(t, Insn{Op: Block, A: 1, Bool: true}, p.Instrs[6])
	require.Equal(t, Insn{Op: Jump, A: 2}, p.Instrs[12])
	require.Equal(t, Insn{Op: PushString, Str: "done; ok"}, p.Instrs[15])
	require.Equal(t, Insn{Op: Select, Str: "Println"}, p.Instrs[14])

	require.Equal(t, []string{"i"}, p.Symbols.Scopes[RootSite])
	require.Equal(t, []string{"tmp"}, p.Symbols.Scopes[6])
	require.Equal(t, "i", p.Symbols.VarName(RootSite, 0))
	require.Equal(t, "slot3", p.Symbols.VarName(RootSite, 3))
	loc, ok := p.Symbols.Loc(0)
	require.True(t, ok)
	require.Equal(t, 7, loc.Line)
}

func TestParseAsmErrors(t *testing.T) {
	tcs := []struct {
		src  string
		line int
	}{
		{"jump nowhere", 1},
		{"\nfrobnicate", 2},
		{"a:\na:\n\tdone", 2},
		{"load 1", 1},
		{"push_int x", 1},
		{".scope nowhere x\ndone", 1},
		{".bogus", 1},
		{`push_string "abc`, 1},
	}
	for _, tc := range tcs {
		_, err := ParseAsm([]byte(tc.src))
		require.Error(t, err, tc.src)
		var asmErr ErrAsm
		require.ErrorAs(t, err, &asmErr, tc.src)
		require.Equal(t, tc.line, asmErr.Line, tc.src)
	}
}

func TestAsmRoundTrip(t *testing.T) {
	p, err := ParseAsm([]byte(counterAsm))
	require.NoError(t, err)
	text := FormatAsmText(p)
	p2, err := ParseAsm(text)
	require.NoError(t, err, "%s", text)
	require.Equal(t, p.Globals, p2.Globals)
	require.Equal(t, p.Instrs, p2.Instrs)
	require.Equal(t, p.Symbols.Scopes, p2.Symbols.Scopes)
}

func TestEncodings(t *testing.T) {
	p, err := ParseAsm([]byte(counterAsm))
	require.NoError(t, err)
	p.Instrs = append(p.Instrs[:len(p.Instrs)-1], Insn{Op: PushFloat, Float: 2.5}, Insn{Op: Done})
	for _, f := range []Format{FormatJSON, FormatCBOR} {
		data, err := Marshal(f, p)
		require.NoError(t, err)
		p2, err := Parse(f, data)
		require.NoError(t, err)
		require.Equal(t, p, p2, f)
	}
}

func TestFingerprint(t *testing.T) {
	p, err := ParseAsm([]byte(counterAsm))
	require.NoError(t, err)
	fp := Fingerprint(p)

	stripped := p
	stripped.Symbols = nil
	require.Equal(t, fp, Fingerprint(stripped))

	changed := p
	changed.Globals++
	require.NotEqual(t, fp, Fingerprint(changed))
}

func TestValidate(t *testing.T) {
	tcs := []Program{
		{},
		{Globals: -1, Instrs: []Insn{{Op: Done}}},
		{Instrs: []Insn{{Op: Jump, A: 5}}},
		{Instrs: []Insn{{Op: Binary, Str: "**"}}},
		{Instrs: []Insn{{Op: Func, A: 0, B: 3, C: 1}}},
		{Instrs: []Insn{{Op: Op(200)}}},
		{Instrs: []Insn{{Op: LoadPackage}}},
		{Globals: math.MaxInt64, Instrs: []Insn{{Op: Done}}},
		{Instrs: []Insn{{Op: Block, A: math.MaxInt64}, {Op: Done}}},
		{Instrs: []Insn{{Op: MakeArray, A: MaxOperand + 1}, {Op: Done}}},
		{Instrs: []Insn{{Op: Call, A: math.MaxInt64}, {Op: Done}}},
		{Instrs: []Insn{{Op: Go, A: math.MaxInt64}, {Op: Done}}},
		{Instrs: []Insn{{Op: Append, A: math.MaxInt64}, {Op: Done}}},
		{Instrs: []Insn{{Op: Load, A: 0, B: math.MaxInt64}, {Op: Done}}},
		{Instrs: []Insn{{Op: Store, A: math.MaxInt64, B: 0}, {Op: Done}}},
		{Instrs: []Insn{{Op: Func, A: 0, B: 0, C: math.MaxInt64}, {Op: Done}}},
	}
	for i, p := range tcs {
		require.Error(t, p.Validate(), "%d", i)
	}
	ok := Program{Instrs: []Insn{{Op: Done}}}
	require.NoError(t, ok.Validate())
	edge := Program{Globals: MaxOperand, Instrs: []Insn{{Op: Block, A: MaxOperand}, {Op: Done}}}
	require.NoError(t, edge.Validate())
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("a/b.json")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)
	f, err = FormatFromPath("x.gvms")
	require.NoError(t, err)
	require.Equal(t, FormatAsm, f)
	_, err = FormatFromPath("x.txt")
	require.Error(t, err)
}
