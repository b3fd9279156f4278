package logger

import (
	"fmt"
	"io"
	"os"
)

// Progress overwrites a single status line with the latest device timestamp.
// A nil or disabled Progress drops every update.
type Progress struct {
	out     io.Writer
	enabled bool
	dirty   bool
}

// NewProgress returns a Progress on stderr, enabled only when requested and
// stderr is a terminal.
func NewProgress(enabled bool) *Progress {
	return NewProgressWriter(os.Stderr, enabled && isTerminal(os.Stderr))
}

// NewProgressWriter returns a Progress writing to out.
func NewProgressWriter(out io.Writer, enabled bool) *Progress {
	return &Progress{out: out, enabled: enabled}
}

// Timestamp replaces the status line with ts.
func (p *Progress) Timestamp(ts int32) {
	if p == nil || !p.enabled {
		return
	}
	fmt.Fprintf(p.out, "\r%12d                ", ts)
	p.dirty = true
}

// Break ends the status line so the next log line starts on a fresh row.
func (p *Progress) Break() {
	if p == nil || !p.enabled || !p.dirty {
		return
	}
	fmt.Fprintln(p.out)
	p.dirty = false
}
