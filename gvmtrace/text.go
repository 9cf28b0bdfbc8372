package gvmtrace

import (
	"fmt"
	"io"
	"strings"
)

// WriteText writes one line per snapshot describing the goroutine that ran.
// Modified stack values are marked with a '*'.
func WriteText(w io.Writer, snaps []Snapshot) error {
	for _, s := range snaps {
		if _, err := fmt.Fprintln(w, s.Line()); err != nil {
			return err
		}
	}
	return nil
}

// Line renders the current goroutine of s on a single line.
func (s Snapshot) Line() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%6d g%d", s.Step, s.Current)
	for _, cs := range s.Contexts {
		if !cs.Current {
			continue
		}
		fmt.Fprintf(&sb, " pc=%d", cs.PC)
		if cs.Loc != nil {
			fmt.Fprintf(&sb, " line=%d", cs.Loc.Line)
		}
		sb.WriteString(" stack=[")
		for i, v := range cs.Stack {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(v.Value)
			if v.Modified {
				sb.WriteString("*")
			}
		}
		sb.WriteString("]")
		if len(cs.Scopes) > 0 {
			sb.WriteString(" vars=[")
			first := true
			for _, sc := range cs.Scopes {
				for _, v := range sc.Vars {
					if !first {
						sb.WriteString(" ")
					}
					first = false
					sb.WriteString(v.Name + "=" + v.Value)
				}
			}
			sb.WriteString("]")
		}
	}
	return sb.String()
}
