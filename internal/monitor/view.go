package monitor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/handiism/tubesync/internal/model"
)

// Tone is the visual treatment of the progress bar.
type Tone int

const (
	ToneProgress Tone = iota
	ToneSuccess
	ToneFailure
)

func (t Tone) String() string {
	switch t {
	case ToneSuccess:
		return "success"
	case ToneFailure:
		return "failure"
	default:
		return "progress"
	}
}

// Projection is what the progress indicator should show.
type Projection struct {
	JobID string

	// Percent is the fill width in [0, 100].
	Percent float64

	Message string
	Tone    Tone
	State   model.JobState
}

// View is the UI surface a Monitor drives.
type View interface {
	// Reset shows the progress indicator for a newly started job and hides
	// the control that started it.
	Reset(p Projection)

	// Render updates the indicator.
	Render(p Projection)

	// Restore hides the indicator of jobID and shows the originating
	// control again.
	Restore(jobID string)
}

// Project maps a job onto its indicator projection.
//
// Percent drives the fill width directly. Playlist jobs get a composite
// message with completed/total counts and, when non-zero, the failed count.
// Terminal states replace the message with a fixed string.
func Project(job model.DownloadJob) Projection {
	p := Projection{
		JobID:   job.ID,
		Percent: model.ClampPercent(job.Percent),
		Message: projectMessage(job),
		Tone:    ToneProgress,
		State:   job.State,
	}

	switch job.State {
	case model.JobCompleted:
		p.Tone = ToneSuccess
		p.Message = CompletedMessage
	case model.JobFailed:
		p.Tone = ToneFailure
		p.Message = FailedMessage
	}
	return p
}

func projectMessage(job model.DownloadJob) string {
	if agg := job.Aggregate; agg != nil && agg.Total > 0 {
		var b strings.Builder
		if job.Message != "" {
			b.WriteString(job.Message)
		} else {
			b.WriteString("Downloading...")
		}
		fmt.Fprintf(&b, " (%d/%d completed", agg.Completed, agg.Total)
		if agg.Failed > 0 {
			fmt.Fprintf(&b, ", %d failed", agg.Failed)
		}
		b.WriteString(")")
		return b.String()
	}

	if job.Message != "" {
		return job.Message
	}
	return fmt.Sprintf("Downloading... %.1f%%", model.ClampPercent(job.Percent))
}

type nopView struct{}

func (nopView) Reset(Projection)  {}
func (nopView) Render(Projection) {}
func (nopView) Restore(string)    {}

// IndicatorState is a snapshot of an Indicator.
type IndicatorState struct {
	Projection

	// Active is true while the progress indicator replaces the download
	// control, i.e. between Reset and Restore.
	Active bool

	// Renders counts Render calls since the last Reset.
	Renders int
}

// Indicator is a View that records the latest projection. It suits front
// ends that redraw on their own clock, such as a Bubble Tea program that
// reads Snapshot on every tick.
//
// After Restore the last projection is kept so that the final message can
// still be displayed next to the restored control.
type Indicator struct {
	mu       sync.Mutex
	state    IndicatorState
	onChange func(IndicatorState)
}

// NewIndicator creates an Indicator. onChange, if set, is called after
// every update with the new state; it runs under the Monitor's lock.
func NewIndicator(onChange func(IndicatorState)) *Indicator {
	return &Indicator{onChange: onChange}
}

func (i *Indicator) Reset(p Projection) {
	i.update(func(s *IndicatorState) {
		*s = IndicatorState{Projection: p, Active: true}
	})
}

func (i *Indicator) Render(p Projection) {
	i.update(func(s *IndicatorState) {
		if s.JobID != p.JobID {
			return
		}
		s.Projection = p
		s.Renders++
	})
}

func (i *Indicator) Restore(jobID string) {
	i.update(func(s *IndicatorState) {
		if s.JobID == jobID {
			s.Active = false
		}
	})
}

// Snapshot returns the current state.
func (i *Indicator) Snapshot() IndicatorState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *Indicator) update(fn func(*IndicatorState)) {
	i.mu.Lock()
	fn(&i.state)
	s := i.state
	i.mu.Unlock()

	if i.onChange != nil {
		i.onChange(s)
	}
}
