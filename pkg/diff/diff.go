package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/aryann/difflib"

	"luna/pkg/session"
	"luna/pkg/utils"
)

type ChangeType int

const (
	Unchanged ChangeType = iota
	Added
	Modified
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Modified:
		return "modified"
	default:
		return "unchanged"
	}
}

type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

type WordDelta struct {
	Op   Op
	Text string
}

type StringDiff struct {
	Old    string
	New    string
	Deltas []WordDelta
}

// Change is one record of a knowledge base that a turn added or rewrote.
type Change struct {
	Kind  string
	Name  string
	State ChangeType
	Str   StringDiff
}

// KnowledgeBases lists the records of merged that are new or differ from
// prior, in merged order. Records are never removed, so there are no deletions.
func KnowledgeBases(kind string, prior, merged session.KnowledgeBase) []Change {
	var out []Change
	for _, r := range merged.Records() {
		old, ok := prior.Get(r.Name)
		switch {
		case !ok:
			out = append(out, Change{Kind: kind, Name: r.Name, State: Added, Str: strEq("", r.Description)})
		case old != r.Description:
			out = append(out, Change{Kind: kind, Name: r.Name, State: Modified, Str: strDiff(old, r.Description)})
		}
	}
	return out
}

func strEq(a, b string) StringDiff {
	return StringDiff{Old: a, New: b, Deltas: []WordDelta{{Op: Insert, Text: b}}}
}

func strDiff(a, b string) StringDiff {
	if a == b {
		return StringDiff{Old: a, New: b, Deltas: []WordDelta{{Op: Equal, Text: a}}}
	}
	at := utils.TokenizeWords(a)
	bt := utils.TokenizeWords(b)
	recs := difflib.Diff(at, bt)
	deltas := make([]WordDelta, 0, len(recs))
	for _, r := range recs {
		switch r.Delta {
		case difflib.Common:
			deltas = append(deltas, WordDelta{Op: Equal, Text: r.Payload})
		case difflib.LeftOnly:
			deltas = append(deltas, WordDelta{Op: Delete, Text: r.Payload})
		case difflib.RightOnly:
			deltas = append(deltas, WordDelta{Op: Insert, Text: r.Payload})
		}
	}
	return StringDiff{Old: a, New: b, Deltas: coalesceSpaces(deltas)}
}

// coalesceSpaces merges runs of the same op, folding whitespace-only common
// tokens into the surrounding run.
func coalesceSpaces(in []WordDelta) []WordDelta {
	out := make([]WordDelta, 0, len(in))
	flush := func(op Op, buf *strings.Builder) {
		if buf.Len() == 0 {
			return
		}
		out = append(out, WordDelta{Op: op, Text: buf.String()})
		buf.Reset()
	}
	var curOp Op = -1
	var buf strings.Builder
	for _, d := range in {
		if strings.TrimSpace(d.Text) == "" && d.Op == Equal {
			buf.WriteString(d.Text)
			continue
		}
		if curOp != d.Op && curOp != -1 {
			flush(curOp, &buf)
		}
		if curOp != d.Op {
			curOp = d.Op
		}
		buf.WriteString(d.Text)
	}
	flush(curOp, &buf)
	return out
}

const (
	ansiReset = "\x1b[0m"
	fgGreen   = "\x1b[32m"
	fgRed     = "\x1b[31m"
	fgYellow  = "\x1b[33m"
	fgCyan    = "\x1b[36m"
	uline     = "\x1b[4m"
	strike    = "\x1b[9m"
)

// Plain renders a diff without colors: insertions as {+text+} and deletions
// as [-text-], suitable for log lines.
func (sd StringDiff) Plain() string {
	var b strings.Builder
	for _, d := range sd.Deltas {
		switch d.Op {
		case Equal:
			b.WriteString(d.Text)
		case Insert:
			fmt.Fprintf(&b, "{+%s+}", d.Text)
		case Delete:
			fmt.Fprintf(&b, "[-%s-]", d.Text)
		}
	}
	return b.String()
}

func renderStringDiff(sd StringDiff) string {
	var b strings.Builder
	for _, d := range sd.Deltas {
		switch d.Op {
		case Equal:
			b.WriteString(d.Text)
		case Insert:
			fmt.Fprintf(&b, "%s%s%s%s", fgGreen, uline, d.Text, ansiReset)
		case Delete:
			fmt.Fprintf(&b, "%s%s%s%s", fgRed, strike, d.Text, ansiReset)
		}
	}
	return b.String()
}

// Print writes changes grouped by kind with terminal colors.
func Print(w io.Writer, changes []Change) {
	kind := ""
	for _, c := range changes {
		if c.Kind != kind {
			kind = c.Kind
			fmt.Fprintln(w, fgCyan+kind+ansiReset)
		}
		tag := fgGreen + "[+]" + ansiReset
		if c.State == Modified {
			tag = fgYellow + "[~]" + ansiReset
		}
		fmt.Fprintf(w, "  %s %s: %s\n", tag, c.Name, renderStringDiff(c.Str))
	}
}
