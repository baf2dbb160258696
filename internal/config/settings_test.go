package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/handiism/tubesync/internal/model"
	"github.com/handiism/tubesync/internal/monitor"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.ServerURL != "http://127.0.0.1:5000" {
		t.Errorf("ServerURL = %q", s.ServerURL)
	}
	if s.PollInterval() != monitor.DefaultInterval {
		t.Errorf("PollInterval() = %v", s.PollInterval())
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, name := range []string{"settings.json", "settings.yaml", "settings.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			want := DefaultSettings()
			want.ServerURL = "http://media.lan:8080"
			want.DownloadType = "audio"
			want.PollIntervalMs = 250
			want.PlaylistFormat = "pls"
			want.ArchiveBucket = "mem://"
			want.TagAudio = false

			if err := want.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if *got != *want {
				t.Errorf("Load() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("server_url: http://box:5000\nmax_poll_failures: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.ServerURL != "http://box:5000" || s.MaxPollFailures != 3 {
		t.Errorf("overrides not applied: %+v", s)
	}
	if s.PlaylistFormat != "m3u" || !s.M3UExtended {
		t.Errorf("defaults lost: %+v", s)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid JSON")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvServerURL, "http://env:9000")
	t.Setenv(EnvDownloadPath, "/srv/videos")

	s := DefaultSettings()
	s.ApplyEnv()
	if s.ServerURL != "http://env:9000" {
		t.Errorf("ServerURL = %q", s.ServerURL)
	}
	if s.DownloadPath != "/srv/videos" {
		t.Errorf("DownloadPath = %q", s.DownloadPath)
	}
}

func TestApplyEnv_BlankServerIgnored(t *testing.T) {
	t.Setenv(EnvServerURL, "  ")

	s := DefaultSettings()
	s.ApplyEnv()
	if s.ServerURL != "http://127.0.0.1:5000" {
		t.Errorf("ServerURL = %q", s.ServerURL)
	}
}

func TestToClientOptions(t *testing.T) {
	s := DefaultSettings()
	s.ServerURL = "http://host:5000/"
	s.RequestTimeout = 1.5
	s.RequestsPerSecond = 0

	opts := s.ToClientOptions()
	if opts.BaseURL != "http://host:5000" {
		t.Errorf("BaseURL = %q", opts.BaseURL)
	}
	if opts.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %v", opts.Timeout)
	}
	if opts.RequestsPerSecond != 0 {
		t.Errorf("RequestsPerSecond = %v", opts.RequestsPerSecond)
	}
	if opts.UserAgent != "TubeSync" {
		t.Errorf("UserAgent = %q", opts.UserAgent)
	}
}

func TestToMonitorOptions(t *testing.T) {
	tests := []struct {
		ms       int
		failures int
		want     time.Duration
	}{
		{ms: 500, failures: 20, want: 500 * time.Millisecond},
		{ms: 100, failures: 0, want: 100 * time.Millisecond},
		{ms: 0, failures: 5, want: monitor.DefaultInterval},
		{ms: -1, failures: 5, want: monitor.DefaultInterval},
	}

	for _, tt := range tests {
		s := DefaultSettings()
		s.PollIntervalMs = tt.ms
		s.MaxPollFailures = tt.failures

		opts := s.ToMonitorOptions()
		if opts.Interval != tt.want {
			t.Errorf("ms=%d: Interval = %v, want %v", tt.ms, opts.Interval, tt.want)
		}
		if opts.MaxConsecutiveFailures != tt.failures {
			t.Errorf("ms=%d: MaxConsecutiveFailures = %d", tt.ms, opts.MaxConsecutiveFailures)
		}
	}
}

func TestType(t *testing.T) {
	tests := map[string]model.DownloadType{
		"audio": model.DownloadAudio,
		"AUDIO": model.DownloadAudio,
		"video": model.DownloadVideo,
		"":      model.DownloadVideo,
		"mp4":   model.DownloadVideo,
	}
	for in, want := range tests {
		s := &Settings{DownloadType: in}
		if got := s.Type(); got != want {
			t.Errorf("Type(%q) = %v, want %v", in, got, want)
		}
	}
}
