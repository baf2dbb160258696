package monitor

import "testing"

func TestIndicator(t *testing.T) {
	var changes []IndicatorState
	i := NewIndicator(func(s IndicatorState) {
		changes = append(changes, s)
	})

	i.Reset(Projection{JobID: "download_1", Message: "Starting download..."})
	i.Render(Projection{JobID: "download_1", Percent: 40, Message: "Downloading... 40.0%"})
	i.Render(Projection{JobID: "download_2", Percent: 90})
	i.Restore("download_2")

	s := i.Snapshot()
	if !s.Active || s.Percent != 40 || s.Renders != 1 {
		t.Errorf("snapshot = %+v, want active at 40%% after one render", s)
	}

	i.Restore("download_1")
	s = i.Snapshot()
	if s.Active {
		t.Error("still active after Restore")
	}
	if s.Message != "Downloading... 40.0%" {
		t.Errorf("Message = %q, want the last projection kept", s.Message)
	}
	if len(changes) != 5 {
		t.Errorf("onChange called %d times, want 5", len(changes))
	}

	i.Reset(Projection{JobID: "download_3"})
	if s := i.Snapshot(); !s.Active || s.Renders != 0 || s.JobID != "download_3" {
		t.Errorf("snapshot after Reset = %+v", s)
	}
}
