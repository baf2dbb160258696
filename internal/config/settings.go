package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/handiism/tubesync/internal/http"
	"github.com/handiism/tubesync/internal/model"
	"github.com/handiism/tubesync/internal/monitor"
)

// Environment variables read by ApplyEnv.
const (
	EnvServerURL    = "TUBESYNC_SERVER"
	EnvDownloadPath = "TUBESYNC_DOWNLOAD_PATH"
)

// Settings holds all configuration options.
type Settings struct {
	// Backend settings
	ServerURL         string  `json:"server_url" yaml:"server_url"`
	RequestTimeout    float64 `json:"request_timeout" yaml:"request_timeout"` // seconds
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	UserAgent         string  `json:"user_agent" yaml:"user_agent"`

	// Download settings
	DownloadPath        string `json:"download_path" yaml:"download_path"` // on the backend host, empty = backend default
	DownloadType        string `json:"download_type" yaml:"download_type"` // video, audio
	PlaylistMaxVideos   int    `json:"playlist_max_videos" yaml:"playlist_max_videos"`
	MaxConcurrentStarts int    `json:"max_concurrent_starts" yaml:"max_concurrent_starts"`

	// Progress polling
	PollIntervalMs  int `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	MaxPollFailures int `json:"max_poll_failures" yaml:"max_poll_failures"`

	// Local copies
	FetchPath            string `json:"fetch_path" yaml:"fetch_path"`
	MaxConcurrentFetches int    `json:"max_concurrent_fetches" yaml:"max_concurrent_fetches"`
	ArchiveBucket        string `json:"archive_bucket" yaml:"archive_bucket"` // e.g. file:///srv/archive, mem://

	// Tag settings
	TagAudio         bool `json:"tag_audio" yaml:"tag_audio"`
	EmbedThumbnail   bool `json:"embed_thumbnail" yaml:"embed_thumbnail"`
	ThumbnailMaxSize int  `json:"thumbnail_max_size" yaml:"thumbnail_max_size"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist" yaml:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" yaml:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended" yaml:"m3u_extended"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		ServerURL:         "http://127.0.0.1:5000",
		RequestTimeout:    30,
		RequestsPerSecond: 10,
		UserAgent:         "TubeSync",

		DownloadPath:        "",
		DownloadType:        string(model.DownloadVideo),
		PlaylistMaxVideos:   0,
		MaxConcurrentStarts: 4,

		PollIntervalMs:  int(monitor.DefaultInterval / time.Millisecond),
		MaxPollFailures: monitor.DefaultMaxConsecutiveFailures,

		FetchPath:            filepath.Join(homeDir, "Music", "TubeSync"),
		MaxConcurrentFetches: 4,

		TagAudio:         true,
		EmbedThumbnail:   true,
		ThumbnailMaxSize: 1000,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,
	}
}

// Load reads settings from a JSON file, or a YAML file when the extension
// is .yaml or .yml. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isYAML(path) {
		err = yaml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to path, as YAML for .yaml/.yml and JSON otherwise.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides the server URL and download path from the environment.
func (s *Settings) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		s.ServerURL = v
	}
	if v, ok := os.LookupEnv(EnvDownloadPath); ok {
		s.DownloadPath = v
	}
}

// ToClientOptions converts settings to http.Options.
func (s *Settings) ToClientOptions() http.Options {
	opts := http.DefaultOptions()
	if s.ServerURL != "" {
		opts.BaseURL = strings.TrimRight(s.ServerURL, "/")
	}
	if s.RequestTimeout > 0 {
		opts.Timeout = time.Duration(s.RequestTimeout * float64(time.Second))
	}
	opts.RequestsPerSecond = s.RequestsPerSecond
	if s.UserAgent != "" {
		opts.UserAgent = s.UserAgent
	}
	return opts
}

// ToMonitorOptions converts settings to monitor.Options. Callbacks are left
// for the caller to set.
func (s *Settings) ToMonitorOptions() monitor.Options {
	return monitor.Options{
		Interval:               s.PollInterval(),
		MaxConsecutiveFailures: s.MaxPollFailures,
	}
}

// PollInterval returns the polling interval, falling back to the default
// for non-positive values.
func (s *Settings) PollInterval() time.Duration {
	if s.PollIntervalMs <= 0 {
		return monitor.DefaultInterval
	}
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// Type returns the configured download type; anything but "audio" is video.
func (s *Settings) Type() model.DownloadType {
	if strings.EqualFold(s.DownloadType, string(model.DownloadAudio)) {
		return model.DownloadAudio
	}
	return model.DownloadVideo
}

// Playlist returns the configured playlist format.
func (s *Settings) Playlist() model.PlaylistFormat {
	return model.ParsePlaylistFormat(s.PlaylistFormat)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
