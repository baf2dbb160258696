package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/handiism/tubesync/internal/monitor"
)

// progressPrinter writes a line for each rendered update of the tracked
// job. Terminal updates are left to the completion events.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	jobID   string
	renders int
	last    string
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, renders: -1}
}

func (p *progressPrinter) update(s monitor.IndicatorState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.JobID == "" || !s.Active || s.State.IsTerminal() {
		return
	}
	if s.JobID != p.jobID {
		p.last = ""
	} else if s.Renders == p.renders {
		return
	}
	p.jobID, p.renders = s.JobID, s.Renders

	// Polls repeat the same update until the server moves on
	line := fmt.Sprintf("  %5.1f%%  %s", s.Percent, s.Message)
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.w, line)
}
