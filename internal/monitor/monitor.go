package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/handiism/tubesync/internal/model"
)

const (
	// DefaultInterval is the time between two status requests.
	DefaultInterval = 500 * time.Millisecond

	// DefaultMaxConsecutiveFailures gives up after 10s of failed polls
	// at the default interval.
	DefaultMaxConsecutiveFailures = 20
)

// Fixed messages shown by the indicator.
const (
	StartingMessage       = "Starting download..."
	CompletedMessage      = "Download completed!"
	FailedMessage         = "Download failed"
	LostConnectionMessage = "Lost connection to server"
)

var (
	// ErrEmptyJobID is returned by Start for an empty job id.
	ErrEmptyJobID = errors.New("monitor: empty job id")

	// ErrStaleResponse marks a status that arrived for a job that is no
	// longer being tracked. Such responses are discarded.
	ErrStaleResponse = errors.New("monitor: stale response")
)

// TransportError wraps a failed status request. It is never fatal; the
// next tick retries.
type TransportError struct {
	JobID   string
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("poll %s (attempt %d): %v", e.JobID, e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fetcher returns the backend status of a job.
type Fetcher interface {
	Progress(ctx context.Context, jobID string) (*model.Status, error)
}

// Phase is the monitor's state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePolling
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePolling:
		return "polling"
	case PhaseTerminal:
		return "terminal"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Options configures a Monitor.
type Options struct {
	// Interval between status requests.
	// Default: 500ms
	Interval time.Duration

	// MaxConsecutiveFailures projects the job as failed after this many
	// failed polls in a row. Zero disables the cap.
	MaxConsecutiveFailures int

	// Refresh is called once after a job completes, to reload the list of
	// finished files.
	Refresh func()

	// OnFinish is called once when a job reaches a terminal state,
	// including when the failure cap is hit. It is not called for jobs
	// that were superseded or stopped.
	OnFinish func(job model.DownloadJob)

	// OnEvent receives log-style events. Transport errors are reported at
	// LevelVerbose.
	OnEvent func(model.Event)
}

// DefaultOptions returns options with the default interval and failure cap.
func DefaultOptions() Options {
	return Options{
		Interval:               DefaultInterval,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
	}
}

type ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) Chan() <-chan time.Time { return t.C }

func newTimeTicker(d time.Duration) ticker {
	return timeTicker{time.NewTicker(d)}
}

// Monitor polls one backend job at a time and projects its status onto a
// View until the job reaches a terminal state.
//
// Starting a new job stops tracking of the previous one. Responses that
// arrive for a job that is no longer current are discarded. View methods
// are called with the monitor's lock held and must not call back into the
// Monitor; Refresh and OnFinish are called without it.
type Monitor struct {
	fetcher   Fetcher
	view      View
	opts      Options
	newTicker func(time.Duration) ticker

	mu       sync.Mutex
	phase    Phase
	jobID    string
	gen      uint64
	cancel   context.CancelFunc
	tick     ticker
	failures int
	last     model.DownloadJob
	hasLast  bool
}

// New creates a Monitor. A nil view discards all projections.
func New(fetcher Fetcher, view View, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if view == nil {
		view = nopView{}
	}
	return &Monitor{
		fetcher:   fetcher,
		view:      view,
		opts:      opts,
		newTicker: newTimeTicker,
	}
}

// Start begins tracking jobID, replacing any job that is being tracked.
// The indicator is reset to 0% and the first status request is made one
// interval later. Polling stops when ctx is done, when Stop is called, or
// when the job reaches a terminal state.
func (m *Monitor) Start(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrEmptyJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked(PhaseIdle)

	m.gen++
	m.jobID = jobID
	m.phase = PhasePolling
	m.failures = 0
	m.hasLast = false

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.view.Reset(Projection{
		JobID:   jobID,
		Message: StartingMessage,
		Tone:    ToneProgress,
		State:   model.JobPending,
	})

	m.tick = m.newTicker(m.opts.Interval)
	go m.loop(loopCtx, m.gen, jobID, m.tick)

	return nil
}

// Stop cancels polling, restores the originating control and forgets the
// current job. It is a no-op when nothing is being tracked.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case PhasePolling:
		m.stopLocked(PhaseIdle)
	case PhaseTerminal:
		m.phase = PhaseIdle
	}
}

// JobID returns the job being tracked, or "" if none.
func (m *Monitor) JobID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobID
}

// Phase returns the current state.
func (m *Monitor) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Last returns the most recent status applied for the current or most
// recently finished job.
func (m *Monitor) Last() (model.DownloadJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}

func (m *Monitor) stopLocked(next Phase) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.tick != nil {
		m.tick.Stop()
		m.tick = nil
	}
	if m.jobID != "" {
		m.view.Restore(m.jobID)
	}
	m.jobID = ""
	m.phase = next
}

func (m *Monitor) loop(ctx context.Context, gen uint64, jobID string, t ticker) {
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if !m.poll(ctx, gen, jobID) {
				return
			}
		}
	}
}

// poll performs one status request and reports whether the loop should
// keep running.
func (m *Monitor) poll(ctx context.Context, gen uint64, jobID string) bool {
	if !m.isCurrent(gen, jobID) {
		return false
	}

	st, err := m.fetcher.Progress(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		return m.recordFailure(gen, jobID, err)
	}

	finished, err := m.apply(gen, st.Job(jobID))
	if err != nil {
		return false
	}
	return !finished
}

func (m *Monitor) isCurrent(gen uint64, jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobID != "" && m.gen == gen && m.jobID == jobID
}

// apply projects job onto the view. It returns ErrStaleResponse when the
// job is no longer current, and finished=true when the job is terminal.
func (m *Monitor) apply(gen uint64, job model.DownloadJob) (finished bool, err error) {
	m.mu.Lock()
	if m.gen != gen || m.jobID == "" || m.jobID != job.ID {
		m.mu.Unlock()
		m.emit(model.Event{Message: "discarded status for superseded job " + job.ID, Level: model.LevelVerbose, JobID: job.ID})
		return false, ErrStaleResponse
	}

	m.failures = 0
	m.last = job
	m.hasLast = true
	m.view.Render(Project(job))

	if !job.State.IsTerminal() {
		m.mu.Unlock()
		return false, nil
	}

	m.stopLocked(PhaseTerminal)
	m.mu.Unlock()

	m.finish(job)
	return true, nil
}

func (m *Monitor) recordFailure(gen uint64, jobID string, err error) bool {
	m.mu.Lock()
	if m.gen != gen || m.jobID != jobID {
		m.mu.Unlock()
		return false
	}

	m.failures++
	terr := &TransportError{JobID: jobID, Attempt: m.failures, Err: err}

	if m.opts.MaxConsecutiveFailures <= 0 || m.failures < m.opts.MaxConsecutiveFailures {
		m.mu.Unlock()
		m.emit(model.Event{Message: terr.Error(), Level: model.LevelVerbose, JobID: jobID})
		return true
	}

	job := model.DownloadJob{ID: jobID, State: model.JobFailed, Message: LostConnectionMessage}
	if m.hasLast {
		job.Percent = m.last.Percent
		job.Aggregate = m.last.Aggregate
	}
	m.last = job
	m.hasLast = true
	m.view.Render(Projection{
		JobID:   jobID,
		Percent: model.ClampPercent(job.Percent),
		Message: LostConnectionMessage,
		Tone:    ToneFailure,
		State:   model.JobFailed,
	})
	m.stopLocked(PhaseTerminal)
	m.mu.Unlock()

	m.emit(model.Event{Message: fmt.Sprintf("giving up on %s after %d failed polls: %v", jobID, terr.Attempt, err), Level: model.LevelError, JobID: jobID})
	if m.opts.OnFinish != nil {
		m.opts.OnFinish(job)
	}
	return false
}

func (m *Monitor) finish(job model.DownloadJob) {
	if job.State == model.JobCompleted {
		m.emit(model.Event{Message: CompletedMessage, Level: model.LevelSuccess, JobID: job.ID})
		if m.opts.Refresh != nil {
			m.opts.Refresh()
		}
	} else {
		msg := FailedMessage
		if job.Message != "" {
			msg += ": " + job.Message
		}
		m.emit(model.Event{Message: msg, Level: model.LevelError, JobID: job.ID})
	}

	if m.opts.OnFinish != nil {
		m.opts.OnFinish(job)
	}
}

func (m *Monitor) emit(e model.Event) {
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(e)
	}
}
