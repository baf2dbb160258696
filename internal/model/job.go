package model

import (
	"fmt"
	"math"
)

// JobState is the lifecycle state of a backend download job.
type JobState int

const (
	// JobPending means the backend accepted the job but has not started it.
	JobPending JobState = iota

	// JobDownloading means the backend is actively downloading.
	JobDownloading

	// JobCompleted is terminal: every item finished.
	JobCompleted

	// JobFailed is terminal: the backend reported an error.
	JobFailed
)

// String returns the lower-case name used in logs.
func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobDownloading:
		return "downloading"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	}
	return fmt.Sprintf("JobState(%d)", int(s))
}

// IsTerminal reports whether polling must stop in this state.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ParseJobState maps the backend "status" string onto a JobState.
//
// "starting" is what the backend reports right after job creation and is
// treated as pending. Unknown values are treated as pending too, so a client
// talking to a newer backend keeps polling instead of stopping early.
func ParseJobState(status string) JobState {
	switch status {
	case "downloading":
		return JobDownloading
	case "completed":
		return JobCompleted
	case "error":
		return JobFailed
	default:
		return JobPending
	}
}

// Aggregate carries per-item counts for playlist jobs.
type Aggregate struct {
	Completed int
	Failed    int
	Total     int
}

// DownloadJob is the client-side view of one backend job.
type DownloadJob struct {
	// ID is the opaque identifier assigned by the backend.
	ID string

	State JobState

	// Percent is the overall progress in [0, 100].
	Percent float64

	// Message is the human-readable status from the backend.
	Message string

	// Aggregate is nil for single-video jobs.
	Aggregate *Aggregate

	// CurrentVideo names the playlist item being processed, if any.
	CurrentVideo string
}

// Status is the JSON body returned by GET /api/progress/{id}.
type Status struct {
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	Message         string  `json:"message"`
	TotalVideos     *int    `json:"total_videos,omitempty"`
	CompletedVideos *int    `json:"completed_videos,omitempty"`
	FailedVideos    *int    `json:"failed_videos,omitempty"`
	CurrentVideo    any     `json:"current_video,omitempty"`
}

// Job converts a wire status into a DownloadJob for the given id.
func (s *Status) Job(id string) DownloadJob {
	job := DownloadJob{
		ID:      id,
		State:   ParseJobState(s.Status),
		Percent: s.Progress,
		Message: s.Message,
	}

	if s.TotalVideos != nil && *s.TotalVideos > 0 {
		agg := &Aggregate{Total: *s.TotalVideos}
		if s.CompletedVideos != nil {
			agg.Completed = *s.CompletedVideos
		}
		if s.FailedVideos != nil {
			agg.Failed = *s.FailedVideos
		}
		job.Aggregate = agg
	}

	// The backend sends either an index or a title here depending on version.
	switch v := s.CurrentVideo.(type) {
	case string:
		job.CurrentVideo = v
	case float64:
		if v > 0 {
			job.CurrentVideo = fmt.Sprintf("%d", int(v))
		}
	}

	return job
}

// ClampPercent limits p to [0, 100].
func ClampPercent(p float64) float64 {
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
