package model

import (
	"regexp"
	"sort"
	"time"
)

// DownloadType selects what the backend extracts for a format.
type DownloadType string

const (
	DownloadVideo DownloadType = "video"
	DownloadAudio DownloadType = "audio"
)

// Format download_type values reported by the backend.
const (
	FormatAudioOnly = "audio_only"
	FormatCombined  = "combined_format"
	FormatEnhanced  = "enhanced_format"
)

// VideoInfo is the response of POST /api/video-info.
//
// For playlists IsPlaylist is set, Duration and ViewCount are zero, and
// Formats are those of the first entry.
type VideoInfo struct {
	Title           string          `json:"title"`
	Uploader        string          `json:"uploader"`
	Duration        float64         `json:"duration"`
	ViewCount       int64           `json:"view_count"`
	Thumbnail       string          `json:"thumbnail"`
	Formats         []Format        `json:"formats"`
	IsPlaylist      bool            `json:"is_playlist"`
	PlaylistCount   int             `json:"playlist_count"`
	PlaylistEntries []PlaylistEntry `json:"playlist_entries"`
}

// Format is one downloadable format offered by the backend.
type Format struct {
	FormatID     string  `json:"format_id"`
	Ext          string  `json:"ext"`
	Resolution   string  `json:"resolution"`
	Filesize     int64   `json:"filesize"`
	VCodec       string  `json:"vcodec"`
	ACodec       string  `json:"acodec"`
	FPS          float64 `json:"fps"`
	Height       int     `json:"height"`
	Width        int     `json:"width"`
	DownloadType string  `json:"download_type"`
	Description  string  `json:"description"`
	Quality      string  `json:"quality"`
	ABR          float64 `json:"abr"`
}

// IsAudioOnly reports whether the format carries no video stream.
func (f Format) IsAudioOnly() bool {
	if f.DownloadType == FormatAudioOnly {
		return true
	}
	return f.VCodec == "none" && f.ACodec != "" && f.ACodec != "none"
}

// ResolveDownloadType returns the type to request for this format.
// Audio-only formats force audio and combined formats force video;
// anything else keeps the session's current choice.
func (f Format) ResolveDownloadType(current DownloadType) DownloadType {
	switch {
	case f.IsAudioOnly():
		return DownloadAudio
	case f.DownloadType == FormatCombined:
		return DownloadVideo
	}
	return current
}

// PlaylistEntry is one video inside a playlist.
type PlaylistEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
	Uploader   string  `json:"uploader"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
}

// WatchURL returns a URL the backend can download this entry from.
func (e PlaylistEntry) WatchURL() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	if e.URL != "" && urlScheme.MatchString(e.URL) {
		return e.URL
	}
	if e.ID != "" {
		return "https://www.youtube.com/watch?v=" + e.ID
	}
	return e.URL
}

var urlScheme = regexp.MustCompile(`^https?://`)

// DownloadedFile is one entry of GET /api/downloads.
type DownloadedFile struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"`
	Path     string  `json:"path"`
}

// ModTime converts the backend's epoch seconds to a time.Time.
func (f DownloadedFile) ModTime() time.Time {
	sec := int64(f.Modified)
	nsec := int64((f.Modified - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// FilterFormatsByQuality returns the formats whose Quality equals quality.
// An empty quality returns all formats.
func FilterFormatsByQuality(formats []Format, quality string) []Format {
	if quality == "" {
		return formats
	}
	var out []Format
	for _, f := range formats {
		if f.Quality == quality {
			out = append(out, f)
		}
	}
	return out
}

// Qualities returns the distinct quality labels in order of first appearance.
func Qualities(formats []Format) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range formats {
		if f.Quality == "" || seen[f.Quality] {
			continue
		}
		seen[f.Quality] = true
		out = append(out, f.Quality)
	}
	return out
}

// FindFormat returns the format with the given id.
func FindFormat(formats []Format, id string) (Format, bool) {
	for _, f := range formats {
		if f.FormatID == id {
			return f, true
		}
	}
	return Format{}, false
}

// SortDownloadsNewestFirst orders files by modification time, newest first.
func SortDownloadsNewestFirst(files []DownloadedFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified > files[j].Modified
	})
}
